package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dukerupert/idunn/internal/cache"
	"github.com/dukerupert/idunn/internal/cart"
	"github.com/dukerupert/idunn/internal/domain"
	"github.com/dukerupert/idunn/internal/events"
	"github.com/dukerupert/idunn/internal/repository"
)

// maxWriteRetries bounds how many times a mutation replays its transform
// after losing the optimistic write race.
const maxWriteRetries = 3

// absentPolicy controls what a mutation does when no cart document exists
// for the user yet.
type absentPolicy int

const (
	createWhenAbsent   absentPolicy = iota // Add: find-or-create
	notFoundWhenAbsent                     // Remove, UpdateQuantity
	noopWhenAbsent                         // Clear: clearing nothing succeeds
)

type cartService struct {
	repo   repository.CartRepository
	cache  cache.CartCache
	events events.Publisher
	logger *slog.Logger
	sfg    singleflight.Group

	// now is swappable in tests.
	now func() time.Time
}

// NewCartService creates the cart aggregation service. cache and events
// may be the package Noop implementations when Redis or NATS is not
// configured.
func NewCartService(repo repository.CartRepository, c cache.CartCache, pub events.Publisher, logger *slog.Logger) domain.CartService {
	if logger == nil {
		logger = slog.Default()
	}
	return &cartService{
		repo:   repo,
		cache:  c,
		events: pub,
		logger: logger,
		now:    time.Now,
	}
}

// GetOrCreate returns the user's cart, or a transient empty cart when none
// exists. It never writes: the empty cart is synthesized, not persisted,
// so browsing users do not litter the store with empty documents.
func (s *cartService) GetOrCreate(ctx context.Context, userID string) (*domain.Cart, error) {
	const op = "cart.get"

	if userID == "" {
		return nil, domain.ErrUserIDRequired
	}

	if cached, err := s.cache.Get(ctx, userID); err == nil {
		return cached, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("cart cache read failed", "user_id", userID, "error", err)
	}

	// Collapse concurrent misses for the same user into one store read.
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		loaded, err := s.repo.FindByUserID(ctx, userID)
		if errors.Is(err, repository.ErrCartNotFound) {
			return domain.NewCart(userID, s.now()), nil
		}
		if err != nil {
			return nil, domain.Unavailable(err, op, "cart store unreachable")
		}

		go func() {
			cacheCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := s.cache.Set(cacheCtx, userID, loaded); err != nil {
				s.logger.Warn("cart cache write failed", "user_id", userID, "error", err)
			}
		}()

		return loaded, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

// Add merges a product into the cart, creating the cart on first use.
func (s *cartService) Add(ctx context.Context, userID string, product domain.ProductInput, quantity int, details *domain.UserDetails) (*domain.Cart, *domain.SummaryView, error) {
	const op = "cart.add"

	if userID == "" {
		return nil, nil, domain.ErrUserIDRequired
	}
	if err := validateProduct(op, product); err != nil {
		return nil, nil, err
	}
	if quantity < 1 {
		return nil, nil, domain.ErrInvalidQuantity
	}

	saved, err := s.mutate(ctx, op, userID, createWhenAbsent, func(c *domain.Cart) error {
		if details != nil {
			if c.UserDetails == nil {
				c.UserDetails = &domain.UserDetails{}
			}
			c.UserDetails.Merge(details)
		}
		c.Items = cart.Merge(c.Items, product, quantity, s.now())
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.events.CartUpdated(ctx, "add", saved)

	return saved, &domain.SummaryView{
		ItemsInCart:   saved.Summary.TotalItems,
		TotalQuantity: saved.Summary.TotalQuantity,
		TotalAmount:   saved.Summary.Total,
	}, nil
}

// Remove drops a line item. Unlike Add, Remove never creates a cart.
func (s *cartService) Remove(ctx context.Context, userID string, itemID string) (*domain.Cart, error) {
	const op = "cart.remove"

	if userID == "" {
		return nil, domain.ErrUserIDRequired
	}
	if itemID == "" {
		return nil, domain.Invalid(op, "item ID is required")
	}

	saved, err := s.mutate(ctx, op, userID, notFoundWhenAbsent, func(c *domain.Cart) error {
		filtered, found := cart.RemoveItem(c.Items, itemID)
		if !found {
			return domain.NotFound(op, "cart item", itemID)
		}
		c.Items = filtered
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.CartUpdated(ctx, "remove", saved)
	return saved, nil
}

// Clear empties the cart. Clearing a cart that does not exist succeeds
// without writing anything.
func (s *cartService) Clear(ctx context.Context, userID string) (*domain.Cart, error) {
	const op = "cart.clear"

	if userID == "" {
		return nil, domain.ErrUserIDRequired
	}

	saved, err := s.mutate(ctx, op, userID, noopWhenAbsent, func(c *domain.Cart) error {
		c.Items = []domain.LineItem{}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if saved.Version > 0 {
		s.events.CartCleared(ctx, saved)
	}
	return saved, nil
}

// UpdateQuantity sets an item's quantity; below 1 it delegates to Remove.
func (s *cartService) UpdateQuantity(ctx context.Context, userID string, itemID string, quantity int) (*domain.Cart, error) {
	const op = "cart.update_quantity"

	if quantity < 1 {
		return s.Remove(ctx, userID, itemID)
	}

	if userID == "" {
		return nil, domain.ErrUserIDRequired
	}
	if itemID == "" {
		return nil, domain.Invalid(op, "item ID is required")
	}

	saved, err := s.mutate(ctx, op, userID, notFoundWhenAbsent, func(c *domain.Cart) error {
		updated, found := cart.SetQuantity(c.Items, itemID, quantity)
		if !found {
			return domain.NotFound(op, "cart item", itemID)
		}
		c.Items = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.CartUpdated(ctx, "update", saved)
	return saved, nil
}

// mutate runs the shared load -> transform -> summarize -> persist shape
// every mutation follows. Validation happens before mutate is called, so
// a failed read never leaves a partial write behind. A lost optimistic
// write race reloads and replays the transform against the fresh
// document, up to maxWriteRetries attempts.
func (s *cartService) mutate(ctx context.Context, op, userID string, onAbsent absentPolicy, transform func(*domain.Cart) error) (*domain.Cart, error) {
	for attempt := 0; attempt < maxWriteRetries; attempt++ {
		loaded, err := s.repo.FindByUserID(ctx, userID)
		switch {
		case errors.Is(err, repository.ErrCartNotFound):
			switch onAbsent {
			case notFoundWhenAbsent:
				return nil, domain.NotFound(op, "cart", userID)
			case noopWhenAbsent:
				return domain.NewCart(userID, s.now()), nil
			default:
				loaded = domain.NewCart(userID, s.now())
			}
		case err != nil:
			return nil, domain.Unavailable(err, op, "cart store unreachable")
		}

		if err := transform(loaded); err != nil {
			return nil, err
		}

		// The summary is recomputed in full on every mutation; it is
		// never patched, so it cannot drift from the items.
		loaded.Summary = cart.Summarize(loaded.Items)
		loaded.UpdatedAt = s.now()

		err = s.repo.Save(ctx, loaded)
		if errors.Is(err, repository.ErrVersionConflict) {
			s.logger.Debug("cart write conflict, replaying", "user_id", userID, "op", op, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return nil, domain.Unavailable(err, op, "failed to persist cart")
		}

		s.refreshCache(userID, loaded)
		return loaded, nil
	}

	return nil, domain.Conflict(op, "cart was modified concurrently, please retry")
}

// refreshCache writes the authoritative post-mutation snapshot through to
// the cache off the request path.
func (s *cartService) refreshCache(userID string, c *domain.Cart) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := s.cache.Set(ctx, userID, c); err != nil {
			s.logger.Warn("cart cache refresh failed", "user_id", userID, "error", err)
		}
	}()
}

func validateProduct(op string, p domain.ProductInput) error {
	if p.ID == "" {
		return domain.Invalid(op, "product ID is required")
	}
	if p.Title == "" {
		return domain.Invalid(op, "product title is required")
	}
	if p.Price < 0 {
		return domain.Invalid(op, "product price must be non-negative")
	}
	return nil
}
