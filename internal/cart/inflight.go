package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
)

const defaultGuardTTL = 10 * time.Second

type tokenStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	CartLineTokenKey(buyerID, lineID string) string
}

// LineGuard serializes quantity updates per cart line with a redis token.
// Begin unconditionally replaces any prior token, so the newest request
// wins; the replaced holder notices via StillHolds and backs off.
type LineGuard struct {
	store tokenStore
	ttl   time.Duration
}

// NewLineGuard builds a guard over the provided token store.
func NewLineGuard(store tokenStore, ttl time.Duration) (*LineGuard, error) {
	if store == nil {
		return nil, fmt.Errorf("token store is required")
	}
	if ttl <= 0 {
		ttl = defaultGuardTTL
	}
	return &LineGuard{store: store, ttl: ttl}, nil
}

// Begin claims the line for this request, replacing any in-flight token.
func (g *LineGuard) Begin(ctx context.Context, buyerID, lineID uuid.UUID) (string, error) {
	token := uuid.NewString()
	key := g.store.CartLineTokenKey(buyerID.String(), lineID.String())
	if err := g.store.Set(ctx, key, token, g.ttl); err != nil {
		return "", fmt.Errorf("claim cart line: %w", err)
	}
	return token, nil
}

// StillHolds reports whether the token is still the current claim on the line.
func (g *LineGuard) StillHolds(ctx context.Context, buyerID, lineID uuid.UUID, token string) (bool, error) {
	key := g.store.CartLineTokenKey(buyerID.String(), lineID.String())
	current, err := g.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("read cart line token: %w", err)
	}
	return current == token, nil
}

// Release drops the claim if this request still owns it.
func (g *LineGuard) Release(ctx context.Context, buyerID, lineID uuid.UUID, token string) error {
	held, err := g.StillHolds(ctx, buyerID, lineID, token)
	if err != nil || !held {
		return err
	}
	key := g.store.CartLineTokenKey(buyerID.String(), lineID.String())
	return g.store.Del(ctx, key)
}
