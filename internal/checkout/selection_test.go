package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapSelectionBackend struct {
	values map[string]string
}

func newMapSelectionBackend() *mapSelectionBackend {
	return &mapSelectionBackend{values: make(map[string]string)}
}

func (b *mapSelectionBackend) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	b.values[key] = value.(string)
	return nil
}

func (b *mapSelectionBackend) Get(ctx context.Context, key string) (string, error) {
	value, ok := b.values[key]
	if !ok {
		return "", redislib.Nil
	}
	return value, nil
}

func (b *mapSelectionBackend) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(b.values, key)
	}
	return nil
}

func (b *mapSelectionBackend) CheckoutSelectionKey(buyerID string) string {
	return "tl:checkout:selection:" + buyerID
}

func TestSelectionRoundTrip(t *testing.T) {
	store, err := NewSelectionStore(newMapSelectionBackend(), 30*time.Minute)
	require.NoError(t, err)
	ctx := context.Background()
	buyerID := uuid.New()
	cartIDs := []uuid.UUID{uuid.New(), uuid.New()}

	require.NoError(t, store.Save(ctx, buyerID, cartIDs))

	loaded, err := store.Load(ctx, buyerID)
	require.NoError(t, err)
	assert.Equal(t, cartIDs, loaded)

	require.NoError(t, store.Clear(ctx, buyerID))
	_, err = store.Load(ctx, buyerID)
	assert.ErrorIs(t, err, ErrNoSelection)
}

func TestSelectionLoadMissing(t *testing.T) {
	store, err := NewSelectionStore(newMapSelectionBackend(), 30*time.Minute)
	require.NoError(t, err)

	_, err = store.Load(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNoSelection)
}

func TestSelectionDropLine(t *testing.T) {
	store, err := NewSelectionStore(newMapSelectionBackend(), 30*time.Minute)
	require.NoError(t, err)
	ctx := context.Background()
	buyerID := uuid.New()
	keep := uuid.New()
	drop := uuid.New()

	require.NoError(t, store.Save(ctx, buyerID, []uuid.UUID{keep, drop}))
	require.NoError(t, store.DropLine(ctx, buyerID, drop))

	loaded, err := store.Load(ctx, buyerID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{keep}, loaded)

	// Dropping the last line clears the selection.
	require.NoError(t, store.DropLine(ctx, buyerID, keep))
	_, err = store.Load(ctx, buyerID)
	assert.ErrorIs(t, err, ErrNoSelection)

	// Dropping against an empty selection is a no-op.
	require.NoError(t, store.DropLine(ctx, buyerID, uuid.New()))
}
