package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Nvetto/magknives-tienda/internal/catalog"
	"github.com/Nvetto/magknives-tienda/internal/checkout"
	"github.com/Nvetto/magknives-tienda/internal/domain"
	"github.com/Nvetto/magknives-tienda/internal/repository"
)

// CartService owns one cart: the in-memory line item sequence, its
// durable mirror and the derived view renderers read from. Every
// mutation persists, then notifies subscribers. While a checkout call
// is in flight the cart is locked against further mutation.
type CartService struct {
	ownerID  string
	repo     repository.CartRepository
	catalog  catalog.Provider
	reserver checkout.Reserver
	waPhone  string

	mu          sync.Mutex
	cart        domain.Cart
	checkingOut bool
	checkoutKey string
	listeners   []func(domain.Event)
}

func NewCartService(ownerID string, repo repository.CartRepository, provider catalog.Provider, reserver checkout.Reserver, waPhone string) *CartService {
	return &CartService{
		ownerID:  ownerID,
		repo:     repo,
		catalog:  provider,
		reserver: reserver,
		waPhone:  waPhone,
		cart:     domain.Cart{OwnerID: ownerID},
	}
}

// Subscribe registers a listener for store events. Listeners are called
// synchronously after the mutation that produced the event has been
// applied and persisted.
func (s *CartService) Subscribe(fn func(domain.Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Load replaces the in-memory cart with the persisted record. An absent
// or corrupt record falls open to an empty cart, never an error.
func (s *CartService) Load(ctx context.Context) {
	cart, err := s.repo.GetCart(ctx, s.ownerID)
	if err != nil {
		if !errors.Is(err, repository.ErrCartNotFound) {
			log.Printf("load cart for %s: %v", s.ownerID, err)
		}
		cart = &domain.Cart{OwnerID: s.ownerID, CreatedAt: time.Now()}
	}

	s.mu.Lock()
	s.cart = *cart
	s.checkoutKey = ""
	s.mu.Unlock()

	s.emit(domain.Event{Kind: domain.EventCartChanged})
}

// Add puts one unit of the product in the cart, or bumps the quantity
// of the existing line. The stock bound is the snapshot the caller just
// saw. Adding a product with zero stock is a silent no-op.
func (s *CartService) Add(ctx context.Context, product domain.Product) error {
	s.mu.Lock()

	if s.checkingOut {
		s.mu.Unlock()
		return domain.ErrCheckoutInFlight
	}

	idx := s.cart.FindItem(product.ID)
	if idx >= 0 {
		if s.cart.Items[idx].Quantity >= product.Stock {
			s.mu.Unlock()
			s.emit(domain.Event{Kind: domain.EventOutOfStock, ProductID: product.ID})
			return domain.ErrOutOfStock
		}
		s.cart.Items[idx].Quantity++
	} else {
		if product.Stock <= 0 {
			s.mu.Unlock()
			return nil
		}
		s.cart.Items = append(s.cart.Items, domain.LineItem{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Stock:     product.Stock,
			Images:    product.Images,
			Quantity:  1,
			AddedAt:   time.Now(),
		})
	}

	err := s.persistLocked(ctx)
	s.mu.Unlock()

	s.emit(
		domain.Event{Kind: domain.EventItemAdded, ProductID: product.ID},
		domain.Event{Kind: domain.EventCartChanged},
	)
	return err
}

// Increment bumps the quantity of the line at idx, bounded by the
// product's live stock from the catalog, which may have diverged from
// the snapshot inside the line item. Out-of-range indexes are ignored.
func (s *CartService) Increment(ctx context.Context, idx int) error {
	s.mu.Lock()
	if s.checkingOut {
		s.mu.Unlock()
		return domain.ErrCheckoutInFlight
	}
	if idx < 0 || idx >= len(s.cart.Items) {
		s.mu.Unlock()
		return nil
	}
	productID := s.cart.Items[idx].ProductID
	s.mu.Unlock()

	// Catalog lookup happens outside the lock, it may hit the network.
	stock, err := s.catalog.Stock(ctx, productID)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			s.emit(domain.Event{Kind: domain.EventOutOfStock, ProductID: productID})
			return domain.ErrOutOfStock
		}
		return fmt.Errorf("stock lookup for product %d: %w", productID, err)
	}

	s.mu.Lock()
	if s.checkingOut {
		s.mu.Unlock()
		return domain.ErrCheckoutInFlight
	}

	// Re-find the line, the sequence may have shifted while unlocked.
	pos := s.cart.FindItem(productID)
	if pos < 0 {
		s.mu.Unlock()
		return nil
	}
	if s.cart.Items[pos].Quantity >= stock {
		s.mu.Unlock()
		s.emit(domain.Event{Kind: domain.EventOutOfStock, ProductID: productID})
		return domain.ErrOutOfStock
	}
	s.cart.Items[pos].Quantity++

	err = s.persistLocked(ctx)
	s.mu.Unlock()

	s.emit(domain.Event{Kind: domain.EventCartChanged})
	return err
}

// Decrement lowers the quantity of the line at idx by one; at quantity
// one the line is removed entirely, quantity never reaches zero.
func (s *CartService) Decrement(ctx context.Context, idx int) error {
	s.mu.Lock()
	if s.checkingOut {
		s.mu.Unlock()
		return domain.ErrCheckoutInFlight
	}
	if idx < 0 || idx >= len(s.cart.Items) {
		s.mu.Unlock()
		return nil
	}

	if s.cart.Items[idx].Quantity > 1 {
		s.cart.Items[idx].Quantity--
	} else {
		s.cart.Items = append(s.cart.Items[:idx], s.cart.Items[idx+1:]...)
	}

	err := s.persistLocked(ctx)
	s.mu.Unlock()

	s.emit(domain.Event{Kind: domain.EventCartChanged})
	return err
}

// Remove drops the line at idx unconditionally.
func (s *CartService) Remove(ctx context.Context, idx int) error {
	s.mu.Lock()
	if s.checkingOut {
		s.mu.Unlock()
		return domain.ErrCheckoutInFlight
	}
	if idx < 0 || idx >= len(s.cart.Items) {
		s.mu.Unlock()
		return nil
	}

	s.cart.Items = append(s.cart.Items[:idx], s.cart.Items[idx+1:]...)

	err := s.persistLocked(ctx)
	s.mu.Unlock()

	s.emit(domain.Event{Kind: domain.EventCartChanged})
	return err
}

// Snapshot returns a copy of the current cart for rendering.
func (s *CartService) Snapshot() domain.Cart {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.cart
	cart.Items = make([]domain.LineItem, len(s.cart.Items))
	copy(cart.Items, s.cart.Items)
	return cart
}

// Totals derives subtotals, grand total and badge count.
func (s *CartService) Totals() domain.Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Totals()
}

// CheckoutMessage renders the WhatsApp text for the current cart.
func (s *CartService) CheckoutMessage() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return checkout.Message(&s.cart)
}

// Checkout reserves backend stock for the whole cart and, on success,
// clears it and returns the WhatsApp deep link. On failure the cart is
// left exactly as it was so the user can retry. Concurrent mutations
// are rejected while the reservation call is in flight.
func (s *CartService) Checkout(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.checkingOut {
		s.mu.Unlock()
		return "", domain.ErrCheckoutInFlight
	}
	if s.cart.IsEmpty() {
		s.mu.Unlock()
		return "", domain.ErrEmptyCart
	}

	// Render the message before clearing anything; the link describes
	// the cart as it was reserved.
	msg, err := checkout.Message(&s.cart)
	if err != nil {
		s.mu.Unlock()
		return "", err
	}

	items := make([]domain.LineItem, len(s.cart.Items))
	copy(items, s.cart.Items)

	// One idempotency key per attempt: a retry after a failed call
	// reuses it so the backend can dedupe, any cart change resets it.
	if s.checkoutKey == "" {
		s.checkoutKey = uuid.NewString()
	}
	key := s.checkoutKey
	s.checkingOut = true
	s.mu.Unlock()

	reserveErr := s.reserver.Reserve(ctx, key, items)

	s.mu.Lock()
	s.checkingOut = false
	if reserveErr != nil {
		s.mu.Unlock()
		s.emit(domain.Event{Kind: domain.EventCheckoutFailed, Detail: reserveErr.Error()})
		return "", reserveErr
	}

	s.cart.Items = nil
	if err := s.persistLocked(ctx); err != nil {
		log.Printf("persist cleared cart for %s: %v", s.ownerID, err)
	}
	s.mu.Unlock()

	s.emit(
		domain.Event{Kind: domain.EventCheckoutDone},
		domain.Event{Kind: domain.EventCartChanged},
	)
	return checkout.Link(s.waPhone, msg), nil
}

func (s *CartService) persistLocked(ctx context.Context) error {
	s.checkoutKey = ""
	s.cart.UpdatedAt = time.Now()
	if err := s.repo.SaveCart(ctx, &s.cart); err != nil {
		log.Printf("persist cart for %s: %v", s.ownerID, err)
		return fmt.Errorf("persist cart: %w", err)
	}
	return nil
}

func (s *CartService) emit(events ...domain.Event) {
	s.mu.Lock()
	listeners := make([]func(domain.Event), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, event := range events {
		for _, fn := range listeners {
			fn(event)
		}
	}
}
