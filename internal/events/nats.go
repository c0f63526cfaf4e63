package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dukerupert/idunn/internal/domain"
)

// NATSPublisher publishes cart events to a NATS subject per event type.
type NATSPublisher struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// NewNATSPublisher connects to the broker at url.
func NewNATSPublisher(url string, logger *slog.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("idunn-cart"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &NATSPublisher{conn: conn, logger: logger}, nil
}

func (p *NATSPublisher) CartUpdated(ctx context.Context, action string, cart *domain.Cart) {
	p.publish(SubjectCartUpdated, action, cart)
}

func (p *NATSPublisher) CartCleared(ctx context.Context, cart *domain.Cart) {
	p.publish(SubjectCartCleared, "clear", cart)
}

func (p *NATSPublisher) publish(subject, action string, cart *domain.Cart) {
	event := CartEvent{
		UserID:        cart.UserID,
		Action:        action,
		TotalItems:    cart.Summary.TotalItems,
		TotalQuantity: cart.Summary.TotalQuantity,
		Total:         cart.Summary.Total,
		OccurredAt:    time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to marshal cart event", "subject", subject, "error", err)
		return
	}

	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Warn("failed to publish cart event",
			"subject", subject,
			"user_id", cart.UserID,
			"error", err,
		)
	}
}

func (p *NATSPublisher) Close() {
	p.conn.Drain()
}
