package template

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshasn/medical-form-app-sub001/internal/pdf/document"
	"github.com/joshasn/medical-form-app-sub001/internal/pdf/geometry"
)

func sampleFields() []document.Field {
	return []document.Field{
		{Name: "firstName", Kind: document.KindText, Rect: &geometry.Rect{Page: 1, X: 100, Y: 72, Width: 200, Height: 20}},
		{Name: "consent", Kind: document.KindCheckBox},
	}
}

func exerciseStore(t *testing.T, store Store) {
	ctx := context.Background()

	_, err := store.Save(ctx, Template{Name: "  "})
	assert.Error(t, err)

	first, err := store.Save(ctx, FromFields("intake", sampleFields()))
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	second, err := store.Save(ctx, Template{Name: "discharge", CreatedAt: first.CreatedAt.Add(time.Minute)})
	require.NoError(t, err)

	got, err := store.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "intake", got.Name)
	require.Len(t, got.Fields, 2)
	assert.Equal(t, document.KindText, got.Fields[0].Kind)
	assert.Equal(t, geometry.Rect{Page: 1, X: 100, Y: 72, Width: 200, Height: 20}, *got.Fields[0].Rect)
	assert.Nil(t, got.Fields[1].Rect)
	assert.True(t, first.CreatedAt.Equal(got.CreatedAt))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)

	require.NoError(t, store.Delete(ctx, first.ID))
	_, err = store.Get(ctx, first.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, first.ID), ErrNotFound)

	list, err = store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	saved, err := store.Save(context.Background(), FromFields("intake", sampleFields()))
	require.NoError(t, err)

	got, err := store.Get(context.Background(), saved.ID)
	require.NoError(t, err)
	got.Fields[0].Rect.X = 1

	again, err := store.Get(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, again.Fields[0].Rect.X)
}

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	srv := miniredis.RunT(t)
	store, err := NewRedisStore(context.Background(), "redis://"+srv.Addr(), "formfill:test")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, srv
}

func TestRedisStore(t *testing.T) {
	store, srv := newRedisStore(t)
	exerciseStore(t, store)

	keys, err := srv.HKeys("formfill:test")
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestRedisStoreDefaultKey(t *testing.T) {
	srv := miniredis.RunT(t)
	store, err := NewRedisStore(context.Background(), "redis://"+srv.Addr(), "")
	require.NoError(t, err)
	defer store.Close()

	saved, err := store.Save(context.Background(), FromFields("intake", sampleFields()))
	require.NoError(t, err)
	assert.NotEmpty(t, srv.HGet(DefaultRedisKey, saved.ID))
}

func TestRedisStoreCorruptEntry(t *testing.T) {
	store, srv := newRedisStore(t)
	srv.HSet("formfill:test", "broken", "{not json")

	_, err := store.Get(context.Background(), "broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	_, err = store.List(context.Background())
	assert.ErrorContains(t, err, "template broken")
}

func TestRedisStoreUnavailable(t *testing.T) {
	store, srv := newRedisStore(t)
	srv.Close()

	_, err := store.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	srv = miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()
	_, err = NewRedisStore(context.Background(), "redis://"+addr, "")
	assert.ErrorContains(t, err, "failed to connect to Redis")
}

func TestNewRedisStoreRejectsBadURL(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "", "")
	assert.Error(t, err)

	_, err = NewRedisStore(context.Background(), "not-a-redis-url", "")
	assert.Error(t, err)
}

func TestFromFields(t *testing.T) {
	tmpl := FromFields("intake", sampleFields())
	assert.Equal(t, "intake", tmpl.Name)
	assert.Empty(t, tmpl.ID)
	assert.Equal(t, []Position{
		{Field: "firstName", Kind: document.KindText, Rect: &geometry.Rect{Page: 1, X: 100, Y: 72, Width: 200, Height: 20}},
		{Field: "consent", Kind: document.KindCheckBox},
	}, tmpl.Fields)
}
