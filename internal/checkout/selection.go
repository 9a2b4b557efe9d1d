package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
)

// ErrNoSelection signals an absent or expired checkout selection.
var ErrNoSelection = errors.New("no checkout selection")

type selectionBackend interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	CheckoutSelectionKey(buyerID string) string
}

// SelectionStore keeps each buyer's pending checkout selection in redis
// under a TTL, so an abandoned checkout expires on its own.
type SelectionStore struct {
	store selectionBackend
	ttl   time.Duration
}

// NewSelectionStore builds a selection store with the given TTL.
func NewSelectionStore(store selectionBackend, ttl time.Duration) (*SelectionStore, error) {
	if store == nil {
		return nil, fmt.Errorf("selection backend is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("selection ttl must be positive")
	}
	return &SelectionStore{store: store, ttl: ttl}, nil
}

// Save replaces the buyer's selection.
func (s *SelectionStore) Save(ctx context.Context, buyerID uuid.UUID, cartIDs []uuid.UUID) error {
	payload, err := json.Marshal(cartIDs)
	if err != nil {
		return fmt.Errorf("encode selection: %w", err)
	}
	key := s.store.CheckoutSelectionKey(buyerID.String())
	if err := s.store.Set(ctx, key, string(payload), s.ttl); err != nil {
		return fmt.Errorf("store selection: %w", err)
	}
	return nil
}

// Load returns the buyer's selection or ErrNoSelection when absent.
func (s *SelectionStore) Load(ctx context.Context, buyerID uuid.UUID) ([]uuid.UUID, error) {
	key := s.store.CheckoutSelectionKey(buyerID.String())
	raw, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, ErrNoSelection
		}
		return nil, fmt.Errorf("load selection: %w", err)
	}
	var cartIDs []uuid.UUID
	if err := json.Unmarshal([]byte(raw), &cartIDs); err != nil {
		return nil, fmt.Errorf("decode selection: %w", err)
	}
	if len(cartIDs) == 0 {
		return nil, ErrNoSelection
	}
	return cartIDs, nil
}

// Clear drops the buyer's selection.
func (s *SelectionStore) Clear(ctx context.Context, buyerID uuid.UUID) error {
	return s.store.Del(ctx, s.store.CheckoutSelectionKey(buyerID.String()))
}

// DropLine removes one cart line from the stored selection, clearing the
// selection entirely when it was the last line. Cart removal calls this so
// a deleted line can never be checked out.
func (s *SelectionStore) DropLine(ctx context.Context, buyerID, cartID uuid.UUID) error {
	cartIDs, err := s.Load(ctx, buyerID)
	if err != nil {
		if errors.Is(err, ErrNoSelection) {
			return nil
		}
		return err
	}
	remaining := make([]uuid.UUID, 0, len(cartIDs))
	for _, id := range cartIDs {
		if id != cartID {
			remaining = append(remaining, id)
		}
	}
	if len(remaining) == len(cartIDs) {
		return nil
	}
	if len(remaining) == 0 {
		return s.Clear(ctx, buyerID)
	}
	return s.Save(ctx, buyerID, remaining)
}
