package repository

import (
	"context"
	"errors"

	"github.com/dukerupert/idunn/internal/domain"
)

var (
	// ErrCartNotFound is returned when no cart document exists for a user.
	ErrCartNotFound = errors.New("cart not found")

	// ErrVersionConflict is returned when a save loses the optimistic
	// write race: the document changed between the caller's read and its
	// write. Callers reload and replay their transform.
	ErrVersionConflict = errors.New("cart version conflict")
)

// CartRepository is the storage boundary for cart documents. One document
// per user, fetched and written whole; there is no field-level patching.
type CartRepository interface {
	// FindByUserID returns the cart document for a user, or ErrCartNotFound.
	FindByUserID(ctx context.Context, userID string) (*domain.Cart, error)

	// Save persists the full cart document atomically. A cart with
	// Version 0 is inserted; otherwise the write is version-checked and
	// fails with ErrVersionConflict if the stored version has moved.
	// On success the cart's Version is advanced in place.
	Save(ctx context.Context, cart *domain.Cart) error

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error
}
