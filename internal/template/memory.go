package template

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps templates in process memory.
type MemoryStore struct {
	mu        sync.RWMutex
	templates map[string]Template
	now       func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		templates: make(map[string]Template),
		now:       time.Now,
	}
}

func (s *MemoryStore) Save(_ context.Context, t Template) (Template, error) {
	t, err := prepare(t, s.now)
	if err != nil {
		return Template{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.templates[t.ID] = clone(t)
	return t, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.templates[id]
	if !ok {
		return Template{}, ErrNotFound
	}
	return clone(t), nil
}

func (s *MemoryStore) List(_ context.Context) ([]Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Template, 0, len(s.templates))
	for _, t := range s.templates {
		out = append(out, clone(t))
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.templates[id]; !ok {
		return ErrNotFound
	}
	delete(s.templates, id)
	return nil
}

func clone(t Template) Template {
	fields := make([]Position, len(t.Fields))
	for i, p := range t.Fields {
		if p.Rect != nil {
			r := *p.Rect
			p.Rect = &r
		}
		fields[i] = p
	}
	t.Fields = fields
	return t
}
