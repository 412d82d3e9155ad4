package http

import (
	"context"
	"sync"

	"github.com/Nvetto/magknives-tienda/internal/service"
)

// CartManager hands out one CartService per owner, restoring the
// persisted cart the first time an owner shows up.
type CartManager struct {
	mu      sync.Mutex
	carts   map[string]*cartEntry
	factory func(ownerID string) *service.CartService
}

// cartEntry defers the initial Load so a slow restore for one owner
// never holds the manager-wide lock against everyone else.
type cartEntry struct {
	once sync.Once
	cart *service.CartService
}

func NewCartManager(factory func(ownerID string) *service.CartService) *CartManager {
	return &CartManager{
		carts:   make(map[string]*cartEntry),
		factory: factory,
	}
}

func (m *CartManager) Cart(ctx context.Context, ownerID string) *service.CartService {
	m.mu.Lock()
	entry, ok := m.carts[ownerID]
	if !ok {
		entry = &cartEntry{cart: m.factory(ownerID)}
		m.carts[ownerID] = entry
	}
	m.mu.Unlock()

	// Restore before anyone can observe the empty cart; concurrent
	// callers for the same owner wait here, others do not.
	entry.once.Do(func() { entry.cart.Load(ctx) })
	return entry.cart
}
