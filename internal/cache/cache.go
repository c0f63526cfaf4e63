// Package cache provides a server-side read cache for cart snapshots.
// The document store stays authoritative; the cache only shortcuts the
// read path and is invalidated or refreshed on every mutation.
package cache

import (
	"context"
	"errors"

	"github.com/dukerupert/idunn/internal/domain"
)

// ErrCacheMiss is returned when no snapshot is cached for a user.
var ErrCacheMiss = errors.New("cache miss")

// CartCache caches the last-known cart snapshot per user.
type CartCache interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Set(ctx context.Context, userID string, cart *domain.Cart) error
	Delete(ctx context.Context, userID string) error
}

// Noop is a CartCache that caches nothing. Used when no Redis address is
// configured.
type Noop struct{}

func (Noop) Get(context.Context, string) (*domain.Cart, error) { return nil, ErrCacheMiss }
func (Noop) Set(context.Context, string, *domain.Cart) error   { return nil }
func (Noop) Delete(context.Context, string) error              { return nil }
