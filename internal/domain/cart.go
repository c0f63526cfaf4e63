package domain

import (
	"context"
	"time"
)

// =============================================================================
// CART DOMAIN ERRORS
// =============================================================================

var (
	ErrCartNotFound     = &Error{Code: ENOTFOUND, Message: "Cart not found"}
	ErrCartItemNotFound = &Error{Code: ENOTFOUND, Message: "Cart item not found"}
	ErrInvalidQuantity  = &Error{Code: EINVALID, Message: "Quantity must be greater than 0"}
	ErrUserIDRequired   = &Error{Code: EINVALID, Message: "User ID is required"}
)

// CartService provides business logic for shopping cart operations.
// Every mutation loads the full cart document, applies a pure transform,
// recomputes the order summary, and persists the whole document in one
// write; the summary is never patched independently of the items.
type CartService interface {
	// GetOrCreate returns the user's cart, or a transient empty cart if
	// none exists yet. Read-only; never writes to the store.
	GetOrCreate(ctx context.Context, userID string) (*Cart, error)

	// Add merges a product into the cart, creating the cart implicitly on
	// first use. Returns the saved cart and a small summary view.
	Add(ctx context.Context, userID string, product ProductInput, quantity int, details *UserDetails) (*Cart, *SummaryView, error)

	// Remove drops a line item from an existing cart. Unlike Add, Remove
	// does not implicitly create a cart.
	Remove(ctx context.Context, userID string, itemID string) (*Cart, error)

	// Clear empties the cart and zeroes its summary. Clearing a cart that
	// does not exist is a no-op success.
	Clear(ctx context.Context, userID string) (*Cart, error)

	// UpdateQuantity sets a line item's quantity. A quantity below 1
	// delegates to Remove.
	UpdateQuantity(ctx context.Context, userID string, itemID string, quantity int) (*Cart, error)
}

// Cart is the single per-user aggregate of line items and derived totals.
// Exactly one cart exists per user ID; creation is implicit on the first
// add-to-cart call.
type Cart struct {
	UserID      string       `bson:"user_id" json:"userId"`
	UserDetails *UserDetails `bson:"user_details,omitempty" json:"userDetails,omitempty"`
	Items       []LineItem   `bson:"items" json:"items"`
	Summary     Summary      `bson:"order_summary" json:"orderSummary"`

	// Version is the optimistic-concurrency token checked at write time.
	// Two tabs mutating the same cart cannot silently clobber each other.
	Version   int64     `bson:"version" json:"version,omitempty"`
	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// NewCart returns an empty, unpersisted cart for a user.
func NewCart(userID string, now time.Time) *Cart {
	return &Cart{
		UserID:    userID,
		Items:     []LineItem{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// UserDetails is a denormalized snapshot of the cart owner, shallow-merged
// whenever a mutation supplies it.
type UserDetails struct {
	Username *string `bson:"username,omitempty" json:"username,omitempty"`
	Email    *string `bson:"email,omitempty" json:"email,omitempty"`
	Phone    *string `bson:"phone,omitempty" json:"phone,omitempty"`
}

// Merge overlays the non-nil fields of other onto d.
func (d *UserDetails) Merge(other *UserDetails) {
	if other == nil {
		return
	}
	if other.Username != nil {
		d.Username = other.Username
	}
	if other.Email != nil {
		d.Email = other.Email
	}
	if other.Phone != nil {
		d.Phone = other.Phone
	}
}

// LineItem is one product entry within a cart. Price is snapshotted when
// the item first enters the cart and is not re-read from the catalog;
// re-adding the same product with a different price does not change the
// stored unit price.
type LineItem struct {
	ID          string    `bson:"id" json:"id"`
	Title       string    `bson:"title" json:"title"`
	Price       float64   `bson:"price" json:"price"`
	Quantity    int       `bson:"quantity" json:"quantity"`
	Image       string    `bson:"image,omitempty" json:"image,omitempty"`
	Category    string    `bson:"category,omitempty" json:"category,omitempty"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	Stock       int       `bson:"stock,omitempty" json:"stock,omitempty"`
	Subtotal    float64   `bson:"subtotal" json:"subtotal"`
	AddedAt     time.Time `bson:"added_at" json:"addedAt"`
}

// Summary is the derived totals block, always a pure function of the
// cart's items. Monetary fields are rounded to 2 decimal places at the
// point of computation.
type Summary struct {
	TotalItems    int     `bson:"total_items" json:"totalItems"`
	TotalQuantity int     `bson:"total_quantity" json:"totalQuantity"`
	Subtotal      float64 `bson:"subtotal" json:"subtotal"`
	Tax           float64 `bson:"tax" json:"tax"`
	Shipping      float64 `bson:"shipping" json:"shipping"`
	Total         float64 `bson:"total" json:"total"`
}

// SummaryView is the condensed response shape returned alongside the cart
// on a successful add.
type SummaryView struct {
	ItemsInCart   int     `json:"itemsInCart"`
	TotalQuantity int     `json:"totalQuantity"`
	TotalAmount   float64 `json:"totalAmount"`
}

// ProductInput carries the denormalized product metadata supplied by an
// add-to-cart request. ID, Title, and Price are required.
type ProductInput struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Price       float64 `json:"price"`
	Image       string  `json:"image,omitempty"`
	Category    string  `json:"category,omitempty"`
	Description string  `json:"description,omitempty"`
	Stock       int     `json:"stock,omitempty"`
}
