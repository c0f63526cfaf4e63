package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/idunn/internal/domain"
)

func serverCart(userID string, items ...domain.LineItem) *domain.Cart {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	cart := domain.NewCart(userID, now)
	cart.Items = items
	cart.Version = 3
	return cart
}

func writeCartResponse(t *testing.T, w http.ResponseWriter, status int, cart *domain.Cart) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"cart":    cart,
	})
	require.NoError(t, err)
}

func TestOnAuthChange_SignInFetchesOnce(t *testing.T) {
	var fetches atomic.Int64
	cart := serverCart("user-1", domain.LineItem{ID: "p1", Title: "Widget", Price: 10, Quantity: 2, Subtotal: 20})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/cart/user-1", r.URL.Path)
		fetches.Add(1)
		writeCartResponse(t, w, http.StatusOK, cart)
	}))
	defer srv.Close()

	rec := NewReconciler(Config{BaseURL: srv.URL})

	err := rec.OnAuthChange(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, int64(1), fetches.Load())

	current := rec.Current()
	require.NotNil(t, current)
	assert.Equal(t, "user-1", current.UserID)
	require.Len(t, current.Items, 1)
	assert.Equal(t, "p1", current.Items[0].ID)
}

func TestOnAuthChange_SignOutClearsMirror(t *testing.T) {
	mirror := NewMemoryMirror()
	require.NoError(t, mirror.Save(serverCart("user-1", domain.LineItem{ID: "p1"})))

	rec := NewReconciler(Config{BaseURL: "http://unreachable.invalid", Mirror: mirror})
	require.NotNil(t, rec.Current())

	err := rec.OnAuthChange(context.Background(), "")
	require.NoError(t, err)

	assert.Nil(t, rec.Current())
	_, err = mirror.Load()
	assert.ErrorIs(t, err, ErrNoMirror)
}

func TestRefresh_ServerErrorFallsBackToEmptyCart(t *testing.T) {
	mirror := NewMemoryMirror()
	require.NoError(t, mirror.Save(serverCart("user-1", domain.LineItem{ID: "p1", Quantity: 2})))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"code":"internal","message":"boom"}`))
	}))
	defer srv.Close()

	rec := NewReconciler(Config{BaseURL: srv.URL, Mirror: mirror})

	err := rec.OnAuthChange(context.Background(), "user-1")
	require.NoError(t, err)

	// A definite server answer resets the mirror rather than carrying
	// stale items forward.
	current := rec.Current()
	require.NotNil(t, current)
	assert.Equal(t, "user-1", current.UserID)
	assert.Empty(t, current.Items)
}

func TestRefresh_TransportErrorKeepsMirror(t *testing.T) {
	mirror := NewMemoryMirror()
	require.NoError(t, mirror.Save(serverCart("user-1", domain.LineItem{ID: "p1", Quantity: 2})))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	var notified atomic.Bool
	rec := NewReconciler(Config{
		BaseURL: srv.URL,
		Mirror:  mirror,
		OnNetworkError: func(err error) {
			notified.Store(true)
		},
	})

	err := rec.OnAuthChange(context.Background(), "user-1")
	require.Error(t, err)

	assert.True(t, notified.Load())

	// The server never answered, so the last-known cart stands.
	current := rec.Current()
	require.NotNil(t, current)
	require.Len(t, current.Items, 1)
	assert.Equal(t, "p1", current.Items[0].ID)
}

func TestAdd_ReconcilesMirrorWithResponse(t *testing.T) {
	updated := serverCart("user-1",
		domain.LineItem{ID: "p1", Title: "Widget", Price: 10, Quantity: 3, Subtotal: 30},
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/cart/add", r.URL.Path)

		var body struct {
			UserID   string              `json:"userId"`
			Product  domain.ProductInput `json:"product"`
			Quantity int                 `json:"quantity"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "user-1", body.UserID)
		assert.Equal(t, "p1", body.Product.ID)
		assert.Equal(t, 3, body.Quantity)

		writeCartResponse(t, w, http.StatusCreated, updated)
	}))
	defer srv.Close()

	mirror := NewMemoryMirror()
	rec := NewReconciler(Config{BaseURL: srv.URL, Mirror: mirror})

	cart, err := rec.Add(context.Background(), "user-1", domain.ProductInput{ID: "p1", Title: "Widget", Price: 10}, 3, nil)
	require.NoError(t, err)
	require.NotNil(t, cart)
	assert.Equal(t, 3, cart.Items[0].Quantity)

	// The mirror holds the authoritative response wholesale.
	saved, err := mirror.Load()
	require.NoError(t, err)
	assert.Equal(t, int64(3), saved.Version)
	assert.Equal(t, 3, saved.Items[0].Quantity)
}

func TestMutate_DefiniteErrorKeepsMirror(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"success":false,"code":"not_found","message":"cart not found: user-1"}`))
	}))
	defer srv.Close()

	mirror := NewMemoryMirror()
	require.NoError(t, mirror.Save(serverCart("user-1", domain.LineItem{ID: "p1"})))

	rec := NewReconciler(Config{BaseURL: srv.URL, Mirror: mirror})

	_, err := rec.Remove(context.Background(), "user-1", "p9")
	require.Error(t, err)
	assert.True(t, domain.IsCode(err, domain.ENOTFOUND))

	// A failed mutation changes nothing server-side, so the mirror is
	// left alone.
	current := rec.Current()
	require.NotNil(t, current)
	require.Len(t, current.Items, 1)
}

func TestClear_ResetsMirrorLocally(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/cart/clear", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"message":"Cart cleared"}`))
	}))
	defer srv.Close()

	mirror := NewMemoryMirror()
	require.NoError(t, mirror.Save(serverCart("user-1", domain.LineItem{ID: "p1", Quantity: 4})))

	rec := NewReconciler(Config{BaseURL: srv.URL, Mirror: mirror})

	err := rec.Clear(context.Background(), "user-1")
	require.NoError(t, err)

	current := rec.Current()
	require.NotNil(t, current)
	assert.Empty(t, current.Items)
}

func TestNewReconciler_SeedsFromPersistedMirror(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cart.json")
	mirror := NewFileMirror(path)
	require.NoError(t, mirror.Save(serverCart("user-1", domain.LineItem{ID: "p1", Quantity: 2})))

	rec := NewReconciler(Config{BaseURL: "http://unreachable.invalid", Mirror: NewFileMirror(path)})

	// The UI can paint immediately from the persisted snapshot.
	current := rec.Current()
	require.NotNil(t, current)
	assert.Equal(t, "user-1", current.UserID)
	require.Len(t, current.Items, 1)
	assert.Equal(t, 2, current.Items[0].Quantity)
}

func TestFileMirror(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cart.json")
	mirror := NewFileMirror(path)

	_, err := mirror.Load()
	assert.ErrorIs(t, err, ErrNoMirror)

	cart := serverCart("user-1", domain.LineItem{ID: "p1", Price: 9.99, Quantity: 1, Subtotal: 9.99})
	require.NoError(t, mirror.Save(cart))

	loaded, err := mirror.Load()
	require.NoError(t, err)
	assert.Equal(t, "user-1", loaded.UserID)
	assert.Equal(t, int64(3), loaded.Version)
	assert.InDelta(t, 9.99, loaded.Items[0].Subtotal, 0.0001)

	require.NoError(t, mirror.Clear())
	require.NoError(t, mirror.Clear()) // idempotent

	_, err = mirror.Load()
	assert.ErrorIs(t, err, ErrNoMirror)
}
