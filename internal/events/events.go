// Package events publishes cart mutation notifications for downstream
// consumers (order history, analytics). Publishing is best-effort: a
// failed publish is logged and never fails the originating request.
package events

import (
	"context"
	"time"

	"github.com/dukerupert/idunn/internal/domain"
)

// Event subjects.
const (
	SubjectCartUpdated = "cart.updated"
	SubjectCartCleared = "cart.cleared"
)

// CartEvent is the payload published after a successful cart mutation.
type CartEvent struct {
	UserID        string    `json:"userId"`
	Action        string    `json:"action"` // add, remove, update, clear
	TotalItems    int       `json:"totalItems"`
	TotalQuantity int       `json:"totalQuantity"`
	Total         float64   `json:"total"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// Publisher emits cart events.
type Publisher interface {
	CartUpdated(ctx context.Context, action string, cart *domain.Cart)
	CartCleared(ctx context.Context, cart *domain.Cart)
	Close()
}

// NoopPublisher drops all events. Used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) CartUpdated(context.Context, string, *domain.Cart) {}
func (NoopPublisher) CartCleared(context.Context, *domain.Cart)         {}
func (NoopPublisher) Close()                                            {}
