package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Nvetto/magknives-tienda/internal/catalog"
	"github.com/Nvetto/magknives-tienda/internal/checkout"
	"github.com/Nvetto/magknives-tienda/internal/domain"
)

type CartHandler struct {
	manager *CartManager
	catalog catalog.Provider
	timeout time.Duration
}

func NewCartHandler(manager *CartManager, provider catalog.Provider, timeout time.Duration) *CartHandler {
	return &CartHandler{
		manager: manager,
		catalog: provider,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
}

type CartItemDTO struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Quantity  int    `json:"quantity"`
	Subtotal  string `json:"subtotal"`
	Image     string `json:"image,omitempty"`
}

// CartViewDTO is everything a renderer needs: the list view, the grand
// total and the badge count.
type CartViewDTO struct {
	Items      []CartItemDTO `json:"items"`
	GrandTotal string        `json:"grand_total"`
	ItemCount  int           `json:"item_count"`
}

type CheckoutResponseDTO struct {
	WhatsappLink string `json:"whatsapp_link"`
}

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart := h.manager.Cart(ctx, getUserIDFromContext(ctx))
	respondJSON(w, http.StatusOK, buildCartView(cart.Snapshot()))
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductID <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be positive")
		return
	}

	product, err := h.catalog.Product(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			respondError(w, http.StatusNotFound, "product_not_found", "product not found")
			return
		}
		log.Printf("catalog lookup failed: %v", err)
		respondError(w, http.StatusBadGateway, "catalog_unavailable", "could not reach catalog")
		return
	}

	cart := h.manager.Cart(ctx, getUserIDFromContext(ctx))
	if err := cart.Add(ctx, product); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, buildCartView(cart.Snapshot()))
}

func (h *CartHandler) IncrementItem(w http.ResponseWriter, r *http.Request) {
	h.mutateByIndex(w, r, func(ctx context.Context, cart cartStore, idx int) error {
		return cart.Increment(ctx, idx)
	})
}

func (h *CartHandler) DecrementItem(w http.ResponseWriter, r *http.Request) {
	h.mutateByIndex(w, r, func(ctx context.Context, cart cartStore, idx int) error {
		return cart.Decrement(ctx, idx)
	})
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.mutateByIndex(w, r, func(ctx context.Context, cart cartStore, idx int) error {
		return cart.Remove(ctx, idx)
	})
}

func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	cart := h.manager.Cart(ctx, getUserIDFromContext(ctx))
	link, err := cart.Checkout(ctx)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, CheckoutResponseDTO{WhatsappLink: link})
}

// cartStore is the slice of CartService the index mutations need.
type cartStore interface {
	Increment(ctx context.Context, idx int) error
	Decrement(ctx context.Context, idx int) error
	Remove(ctx context.Context, idx int) error
}

func (h *CartHandler) mutateByIndex(w http.ResponseWriter, r *http.Request, mutate func(context.Context, cartStore, int) error) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || idx < 0 {
		respondError(w, http.StatusBadRequest, "invalid_index", "index must be a non-negative integer")
		return
	}

	cart := h.manager.Cart(ctx, getUserIDFromContext(ctx))
	if err := mutate(ctx, cart, idx); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, buildCartView(cart.Snapshot()))
}

func buildCartView(cart domain.Cart) CartViewDTO {
	totals := cart.Totals()
	view := CartViewDTO{
		Items:      make([]CartItemDTO, len(cart.Items)),
		GrandTotal: checkout.FormatAmount(totals.GrandTotal),
		ItemCount:  totals.ItemCount,
	}
	for i, item := range cart.Items {
		dto := CartItemDTO{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price.String(),
			Quantity:  item.Quantity,
			Subtotal:  checkout.FormatAmount(totals.Lines[i].Subtotal),
		}
		if len(item.Images) > 0 {
			dto.Image = item.Images[0]
		}
		view.Items[i] = dto
	}
	return view
}

func respondServiceError(w http.ResponseWriter, err error) {
	var resErr *checkout.ReservationError
	switch {
	case errors.Is(err, domain.ErrOutOfStock):
		respondError(w, http.StatusConflict, "out_of_stock", err.Error())
	case errors.Is(err, domain.ErrCheckoutInFlight):
		respondError(w, http.StatusConflict, "checkout_in_flight", err.Error())
	case errors.Is(err, domain.ErrEmptyCart):
		respondError(w, http.StatusConflict, "empty_cart", err.Error())
	case errors.As(err, &resErr):
		// Preserve the backend's reason verbatim, the user needs to
		// know which item ran out.
		respondError(w, http.StatusConflict, "reservation_failed", resErr.Reason)
	default:
		log.Printf("cart operation failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "cart operation failed")
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{Error: message, Code: code})
}
