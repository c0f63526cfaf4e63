package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/dukerupert/idunn/internal/domain"
)

// CartHandler exposes the cart aggregation service over JSON HTTP. Every
// transport entry point goes through the one service; no business rule
// lives in this package.
type CartHandler struct {
	carts    domain.CartService
	validate *validator.Validate
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(carts domain.CartService) *CartHandler {
	return &CartHandler{
		carts:    carts,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

type productPayload struct {
	ID          string  `json:"id" validate:"required"`
	Title       string  `json:"title" validate:"required"`
	Price       float64 `json:"price" validate:"required,gte=0"`
	Image       string  `json:"image"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Stock       int     `json:"stock"`
}

func (p productPayload) toInput() domain.ProductInput {
	return domain.ProductInput{
		ID:          p.ID,
		Title:       p.Title,
		Price:       p.Price,
		Image:       p.Image,
		Category:    p.Category,
		Description: p.Description,
		Stock:       p.Stock,
	}
}

type addRequest struct {
	UserID      string              `json:"userId" validate:"required"`
	Product     productPayload      `json:"product"`
	Quantity    int                 `json:"quantity" validate:"omitempty,min=1"`
	UserDetails *domain.UserDetails `json:"userDetails"`
}

type removeRequest struct {
	UserID string `json:"userId" validate:"required"`
	ItemID string `json:"itemId" validate:"required"`
}

type clearRequest struct {
	UserID string `json:"userId" validate:"required"`
}

type updateRequest struct {
	UserID   string `json:"userId" validate:"required"`
	ItemID   string `json:"itemId" validate:"required"`
	Quantity int    `json:"quantity"`
}

// Add handles POST /cart/add.
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := h.decode(r, &req); err != nil {
		ErrorResponse(w, r, err)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	saved, view, err := h.carts.Add(r.Context(), req.UserID, req.Product.toInput(), req.Quantity, req.UserDetails)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	JSONResponse(w, http.StatusCreated, map[string]any{
		"success": true,
		"cart":    saved,
		"message": "Item added to cart",
		"summary": view,
	})
}

// Get handles GET /cart/{userId}. A user without a cart receives a
// synthesized empty cart, never a 404.
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")

	cart, err := h.carts.GetOrCreate(r.Context(), userID)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	JSONResponse(w, http.StatusOK, map[string]any{
		"success":   true,
		"cart":      cart,
		"itemCount": cart.Summary.TotalItems,
	})
}

// Remove handles DELETE /cart/remove.
func (h *CartHandler) Remove(w http.ResponseWriter, r *http.Request) {
	var req removeRequest
	if err := h.decode(r, &req); err != nil {
		ErrorResponse(w, r, err)
		return
	}

	saved, err := h.carts.Remove(r.Context(), req.UserID, req.ItemID)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	JSONResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"cart":    saved,
		"message": "Item removed from cart",
	})
}

// Clear handles DELETE /cart/clear. Clearing an absent cart is a success.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	var req clearRequest
	if err := h.decode(r, &req); err != nil {
		ErrorResponse(w, r, err)
		return
	}

	if _, err := h.carts.Clear(r.Context(), req.UserID); err != nil {
		ErrorResponse(w, r, err)
		return
	}

	JSONResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Cart cleared",
	})
}

// UpdateQuantity handles PUT /cart/update.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := h.decode(r, &req); err != nil {
		ErrorResponse(w, r, err)
		return
	}

	saved, err := h.carts.UpdateQuantity(r.Context(), req.UserID, req.ItemID, req.Quantity)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	JSONResponse(w, http.StatusOK, map[string]any{
		"success": true,
		"cart":    saved,
	})
}

// decode parses and validates a JSON request body. Both malformed JSON
// and failed field validation come back as EINVALID.
func (h *CartHandler) decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.Invalid("cart.decode", "invalid request body")
	}

	if err := h.validate.Struct(v); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return domain.Invalid("cart.validate", "missing or invalid field: "+fieldErrs[0].Field())
		}
		return domain.Invalid("cart.validate", "invalid request")
	}

	return nil
}
