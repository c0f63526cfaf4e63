package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/dukerupert/idunn/internal/domain"
)

// ErrNoMirror is returned when no snapshot has been persisted yet.
var ErrNoMirror = errors.New("no cart mirror persisted")

// MirrorStore persists the last-known cart snapshot between sessions so
// the UI can paint a cart immediately, before any network round trip.
type MirrorStore interface {
	Load() (*domain.Cart, error)
	Save(cart *domain.Cart) error
	Clear() error
}

// MemoryMirror keeps the snapshot in process memory only.
type MemoryMirror struct {
	mu   sync.Mutex
	cart *domain.Cart
}

func NewMemoryMirror() *MemoryMirror {
	return &MemoryMirror{}
}

func (m *MemoryMirror) Load() (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cart == nil {
		return nil, ErrNoMirror
	}
	clone := *m.cart
	return &clone, nil
}

func (m *MemoryMirror) Save(cart *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *cart
	m.cart = &clone
	return nil
}

func (m *MemoryMirror) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cart = nil
	return nil
}

// FileMirror persists the snapshot as a JSON file, surviving process
// restarts the way browser local storage survives page loads.
type FileMirror struct {
	mu   sync.Mutex
	path string
}

func NewFileMirror(path string) *FileMirror {
	return &FileMirror{path: path}
}

func (f *FileMirror) Load() (*domain.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoMirror
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cart mirror: %w", err)
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		// A corrupt mirror is treated as absent rather than fatal.
		return nil, ErrNoMirror
	}

	return &cart, nil
}

func (f *FileMirror) Save(cart *domain.Cart) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("failed to marshal cart mirror: %w", err)
	}

	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write cart mirror: %w", err)
	}

	return nil
}

func (f *FileMirror) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to clear cart mirror: %w", err)
	}

	return nil
}
