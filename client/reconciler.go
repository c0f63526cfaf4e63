package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/dukerupert/idunn/internal/domain"
)

// Config wires a Reconciler to a cart service.
type Config struct {
	// BaseURL is the cart service root, e.g. http://localhost:8080.
	BaseURL string

	// HTTPClient overrides the default client. Optional.
	HTTPClient *http.Client

	// Mirror persists the last-known cart between sessions. Defaults
	// to an in-memory mirror.
	Mirror MirrorStore

	// OnNetworkError is invoked when a server fetch fails in transit.
	// The mirror is left untouched in that case; the callback lets the
	// caller show a non-blocking indicator. Optional.
	OnNetworkError func(err error)

	Logger *slog.Logger
}

// Reconciler keeps a local cart mirror in step with the server. The
// mirror is authoritative for painting a UI immediately; the server is
// authoritative for the actual cart state, and every successful
// mutation response overwrites the mirror wholesale.
type Reconciler struct {
	baseURL string
	http    *http.Client
	mirror  MirrorStore
	onError func(err error)
	logger  *slog.Logger

	mu      sync.Mutex
	current *domain.Cart
	userID  string
}

func NewReconciler(cfg Config) *Reconciler {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	mirror := cfg.Mirror
	if mirror == nil {
		mirror = NewMemoryMirror()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &Reconciler{
		baseURL: cfg.BaseURL,
		http:    httpClient,
		mirror:  mirror,
		onError: cfg.OnNetworkError,
		logger:  logger,
	}

	// Seed from the persisted mirror so Current is useful before any
	// network traffic. A missing or corrupt mirror just starts empty.
	if cart, err := mirror.Load(); err == nil {
		r.current = cart
		r.userID = cart.UserID
	}

	return r
}

// Current returns the last-known cart, or nil when no user is signed in
// and nothing has been mirrored.
func (r *Reconciler) Current() *domain.Cart {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return nil
	}
	clone := *r.current
	return &clone
}

// OnAuthChange reacts to a sign-in or sign-out. A non-empty userID
// triggers exactly one fetch of that user's cart; an empty userID
// clears the mirror.
func (r *Reconciler) OnAuthChange(ctx context.Context, userID string) error {
	if userID == "" {
		r.mu.Lock()
		r.current = nil
		r.userID = ""
		r.mu.Unlock()
		return r.mirror.Clear()
	}

	r.mu.Lock()
	r.userID = userID
	r.mu.Unlock()

	return r.Refresh(ctx)
}

// Refresh fetches the signed-in user's cart from the server. A definite
// server answer, including "not found" or a server-side failure body,
// resets the mirror to an empty cart; a transport failure keeps the
// current mirror and surfaces the error through OnNetworkError.
func (r *Reconciler) Refresh(ctx context.Context) error {
	r.mu.Lock()
	userID := r.userID
	r.mu.Unlock()

	if userID == "" {
		return fmt.Errorf("no user signed in")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/cart/"+userID, nil)
	if err != nil {
		return err
	}

	resp, err := r.http.Do(req)
	if err != nil {
		// In transit: the server said nothing, so the mirror stays.
		r.logger.Warn("cart fetch failed in transit", slog.String("error", err.Error()))
		if r.onError != nil {
			r.onError(err)
		}
		return err
	}
	defer resp.Body.Close()

	var envelope struct {
		Success bool         `json:"success"`
		Cart    *domain.Cart `json:"cart"`
		Message string       `json:"message"`
	}
	decodeErr := json.NewDecoder(resp.Body).Decode(&envelope)

	if resp.StatusCode != http.StatusOK || decodeErr != nil || envelope.Cart == nil {
		// The server answered, just not with a cart. Fall back to a
		// fresh empty cart rather than trusting the stale mirror.
		empty := domain.NewCart(userID, time.Now().UTC())
		r.replaceMirror(empty)
		return nil
	}

	r.replaceMirror(envelope.Cart)
	return nil
}

// OnMutationResult overwrites the mirror with an authoritative cart
// returned by the server after a mutation.
func (r *Reconciler) OnMutationResult(cart *domain.Cart) {
	if cart == nil {
		return
	}
	r.replaceMirror(cart)
}

func (r *Reconciler) replaceMirror(cart *domain.Cart) {
	r.mu.Lock()
	clone := *cart
	r.current = &clone
	r.mu.Unlock()

	if err := r.mirror.Save(cart); err != nil {
		r.logger.Warn("failed to persist cart mirror", slog.String("error", err.Error()))
	}
}

// Add sends an add-to-cart mutation and reconciles the mirror with the
// server's response.
func (r *Reconciler) Add(ctx context.Context, userID string, product domain.ProductInput, quantity int, details *domain.UserDetails) (*domain.Cart, error) {
	body := map[string]any{
		"userId":   userID,
		"product":  product,
		"quantity": quantity,
	}
	if details != nil {
		body["userDetails"] = details
	}
	return r.mutate(ctx, http.MethodPost, "/cart/add", body)
}

// Remove deletes a single line item.
func (r *Reconciler) Remove(ctx context.Context, userID, itemID string) (*domain.Cart, error) {
	return r.mutate(ctx, http.MethodDelete, "/cart/remove", map[string]any{
		"userId": userID,
		"itemId": itemID,
	})
}

// UpdateQuantity sets a line item's quantity.
func (r *Reconciler) UpdateQuantity(ctx context.Context, userID, itemID string, quantity int) (*domain.Cart, error) {
	return r.mutate(ctx, http.MethodPut, "/cart/update", map[string]any{
		"userId":   userID,
		"itemId":   itemID,
		"quantity": quantity,
	})
}

// Clear empties the cart. The server omits the cart from its response,
// so the mirror is reset to an empty cart locally.
func (r *Reconciler) Clear(ctx context.Context, userID string) error {
	_, err := r.mutate(ctx, http.MethodDelete, "/cart/clear", map[string]any{
		"userId": userID,
	})
	if err != nil {
		return err
	}
	r.replaceMirror(domain.NewCart(userID, time.Now().UTC()))
	return nil
}

// mutate performs a cart mutation. A mutation failure, whether in
// transit or a definite error body, never blanks the mirror: the cart
// on the server did not change, so the last-known state stands.
func (r *Reconciler) mutate(ctx context.Context, method, path string, body map[string]any) (*domain.Cart, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		r.logger.Warn("cart mutation failed in transit",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		if r.onError != nil {
			r.onError(err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	var envelope struct {
		Success bool         `json:"success"`
		Cart    *domain.Cart `json:"cart"`
		Code    string       `json:"code"`
		Message string       `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode cart response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &domain.Error{
			Code:    envelope.Code,
			Message: envelope.Message,
			Op:      "client." + path,
		}
	}

	if envelope.Cart != nil {
		r.OnMutationResult(envelope.Cart)
	}

	return envelope.Cart, nil
}
