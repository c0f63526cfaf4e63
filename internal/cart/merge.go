// Package cart holds the pure cart computations: line-item merging and
// order-summary calculation. Nothing in this package touches I/O; the
// aggregation service in internal/service orchestrates these functions
// around the store adapter.
package cart

import (
	"time"

	"github.com/dukerupert/idunn/internal/domain"
)

// Merge folds an incoming product into an existing item list and returns
// a new list; the input slice is never mutated, which is what lets the
// service persist the whole document atomically without aliasing bugs.
//
// When an item with the same product ID already exists, its quantity is
// increased and its subtotal recomputed from the item's original
// snapshotted price. The incoming price is deliberately ignored for
// existing items: price is immutable once a product first enters the
// cart, even if the catalog price has moved since.
func Merge(items []domain.LineItem, product domain.ProductInput, quantity int, now time.Time) []domain.LineItem {
	merged := make([]domain.LineItem, len(items))
	copy(merged, items)

	for i := range merged {
		if merged[i].ID == product.ID {
			merged[i].Quantity += quantity
			merged[i].Subtotal = LineSubtotal(merged[i].Price, merged[i].Quantity)
			return merged
		}
	}

	return append(merged, domain.LineItem{
		ID:          product.ID,
		Title:       product.Title,
		Price:       product.Price,
		Quantity:    quantity,
		Image:       product.Image,
		Category:    product.Category,
		Description: product.Description,
		Stock:       product.Stock,
		Subtotal:    LineSubtotal(product.Price, quantity),
		AddedAt:     now,
	})
}

// RemoveItem returns a new list without the item matching id, plus whether
// the item was present.
func RemoveItem(items []domain.LineItem, id string) ([]domain.LineItem, bool) {
	filtered := make([]domain.LineItem, 0, len(items))
	found := false
	for _, item := range items {
		if item.ID == id {
			found = true
			continue
		}
		filtered = append(filtered, item)
	}
	return filtered, found
}

// SetQuantity returns a new list with the matching item's quantity and
// line subtotal updated, plus whether the item was present.
func SetQuantity(items []domain.LineItem, id string, quantity int) ([]domain.LineItem, bool) {
	updated := make([]domain.LineItem, len(items))
	copy(updated, items)
	for i := range updated {
		if updated[i].ID == id {
			updated[i].Quantity = quantity
			updated[i].Subtotal = LineSubtotal(updated[i].Price, quantity)
			return updated, true
		}
	}
	return updated, false
}
