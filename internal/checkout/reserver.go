package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/Nvetto/magknives-tienda/internal/domain"
)

// Reserver reserves backend stock for the full cart, all-or-nothing.
// A nil error means every line item was deducted. The key identifies
// the checkout attempt; retries of the same attempt reuse it so the
// backend can dedupe the deduction.
type Reserver interface {
	Reserve(ctx context.Context, key string, items []domain.LineItem) error
}

// ReservationError is a failure reported by the backend itself, for
// example insufficient stock for one of the items. The cart must stay
// untouched so the user can retry without re-adding anything.
type ReservationError struct {
	Reason string
}

func (e *ReservationError) Error() string {
	return e.Reason
}

// reservationItem matches the backend wire format (Spanish field names).
type reservationItem struct {
	Name     string `json:"nombre"`
	Quantity int    `json:"cantidad"`
}

type reservationResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HTTPReserver posts the cart to /api/actualizar-stock. Calls run
// through a circuit breaker; backend-reported failures do not count as
// breaker failures, only transport errors do.
type HTTPReserver struct {
	baseURL string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker[*reservationResponse]
}

func NewHTTPReserver(baseURL string, client *http.Client) *HTTPReserver {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	settings := gobreaker.Settings{
		Name:    "stock-reservation",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			var resErr *ReservationError
			return err == nil || errors.As(err, &resErr)
		},
	}

	return &HTTPReserver{
		baseURL: baseURL,
		client:  client,
		cb:      gobreaker.NewCircuitBreaker[*reservationResponse](settings),
	}
}

func (r *HTTPReserver) Reserve(ctx context.Context, key string, items []domain.LineItem) error {
	payload := make([]reservationItem, len(items))
	for i, item := range items {
		payload[i] = reservationItem{
			Name:     item.Name,
			Quantity: item.Quantity,
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal reservation payload: %w", err)
	}

	result, err := r.cb.Execute(func() (*reservationResponse, error) {
		return r.post(ctx, key, body)
	})
	if err != nil {
		return err
	}

	if !result.Success {
		reason := result.Error
		if reason == "" {
			reason = "stock reservation rejected"
		}
		return &ReservationError{Reason: reason}
	}
	return nil
}

func (r *HTTPReserver) post(ctx context.Context, key string, body []byte) (*reservationResponse, error) {
	url := r.baseURL + "/api/actualizar-stock"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build reservation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", key)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reservation call failed: %w", err)
	}
	defer resp.Body.Close()

	var result reservationResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode reservation response: %w", err)
	}

	// The backend reports business failures with a 4xx status and a
	// populated error field; pass those through as ReservationError.
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("reservation returned status %d", resp.StatusCode)
	}

	return &result, nil
}
