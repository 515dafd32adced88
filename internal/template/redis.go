package template

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the hash that holds all templates.
const DefaultRedisKey = "formfill:templates"

// RedisStore keeps templates as JSON values in a single Redis hash keyed by
// template ID.
type RedisStore struct {
	client *redis.Client
	key    string
	now    func() time.Time
}

// NewRedisStore connects to the Redis server at url and verifies the
// connection.
func NewRedisStore(ctx context.Context, url, key string) (*RedisStore, error) {
	if url == "" {
		return nil, fmt.Errorf("redis URL is required")
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStoreWithClient(client, key), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key, now: time.Now}
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Save(ctx context.Context, t Template) (Template, error) {
	t, err := prepare(t, s.now)
	if err != nil {
		return Template{}, err
	}

	data, err := json.Marshal(t)
	if err != nil {
		return Template{}, fmt.Errorf("failed to encode template: %w", err)
	}
	if err := s.client.HSet(ctx, s.key, t.ID, data).Err(); err != nil {
		return Template{}, fmt.Errorf("failed to store template: %w", err)
	}
	return t, nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (Template, error) {
	data, err := s.client.HGet(ctx, s.key, id).Result()
	if errors.Is(err, redis.Nil) {
		return Template{}, ErrNotFound
	}
	if err != nil {
		return Template{}, fmt.Errorf("failed to load template: %w", err)
	}
	return decode(data)
}

func (s *RedisStore) List(ctx context.Context) ([]Template, error) {
	all, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}

	out := make([]Template, 0, len(all))
	for id, data := range all {
		t, err := decode(data)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", id, err)
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.HDel(ctx, s.key, id).Result()
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func decode(data string) (Template, error) {
	var t Template
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		return Template{}, fmt.Errorf("failed to decode template: %w", err)
	}
	return t, nil
}
