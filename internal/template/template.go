// Package template persists named sets of field positions so that a layout
// discovered once can be reused without reloading the source document.
package template

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joshasn/medical-form-app-sub001/internal/pdf/document"
	"github.com/joshasn/medical-form-app-sub001/internal/pdf/geometry"
)

// ErrNotFound is returned when no template has the requested ID.
var ErrNotFound = errors.New("template not found")

// Position is one field of a template.
type Position struct {
	Field string         `json:"field"`
	Kind  document.Kind  `json:"kind"`
	Rect  *geometry.Rect `json:"rect,omitempty"`
}

// Template is a named field-position set.
type Template struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Fields    []Position `json:"fields"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Store is the persistence capability for templates. Implementations are
// safe for concurrent use.
type Store interface {
	// Save stores t, assigning an ID and creation time when missing, and
	// returns the stored template.
	Save(ctx context.Context, t Template) (Template, error)
	Get(ctx context.Context, id string) (Template, error)
	// List returns all templates ordered by creation time, then name.
	List(ctx context.Context) ([]Template, error)
	Delete(ctx context.Context, id string) error
}

// FromFields builds an unsaved template from a discovered field catalog.
func FromFields(name string, fields []document.Field) Template {
	t := Template{Name: name, Fields: make([]Position, 0, len(fields))}
	for _, f := range fields {
		t.Fields = append(t.Fields, Position{Field: f.Name, Kind: f.Kind, Rect: f.Rect})
	}
	return t
}

// prepare validates t and fills in the ID and creation time.
func prepare(t Template, now func() time.Time) (Template, error) {
	t.Name = strings.TrimSpace(t.Name)
	if t.Name == "" {
		return Template{}, errors.New("template name is required")
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now().UTC()
	}
	if t.Fields == nil {
		t.Fields = []Position{}
	}
	return t, nil
}

func less(a, b Template) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.ID < b.ID
}
