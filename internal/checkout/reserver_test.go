package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nvetto/magknives-tienda/internal/domain"
)

func reserveItems() []domain.LineItem {
	return []domain.LineItem{
		{ProductID: 1, Name: "Bowie-10", Price: decimal.NewFromInt(12500), Quantity: 2},
		{ProductID: 4, Name: "Verijero-12", Price: decimal.NewFromInt(9800), Quantity: 1},
	}
}

func TestReserve_Success(t *testing.T) {
	var gotPayload []reservationItem
	var gotIdempotencyKey string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/actualizar-stock", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		gotIdempotencyKey = r.Header.Get("Idempotency-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true, "message": "Stock actualizado correctamente."}`))
	}))
	defer server.Close()

	reserver := NewHTTPReserver(server.URL, server.Client())
	err := reserver.Reserve(context.Background(), "attempt-1", reserveItems())
	require.NoError(t, err)

	require.Len(t, gotPayload, 2)
	assert.Equal(t, "Bowie-10", gotPayload[0].Name)
	assert.Equal(t, 2, gotPayload[0].Quantity)
	assert.Equal(t, "attempt-1", gotIdempotencyKey)
}

func TestReserve_BackendFailurePreservesReason(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"success": false, "error": "Stock insuficiente para Bowie-10"}`))
	}))
	defer server.Close()

	reserver := NewHTTPReserver(server.URL, server.Client())
	err := reserver.Reserve(context.Background(), "attempt-1", reserveItems())

	var resErr *ReservationError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, "Stock insuficiente para Bowie-10", resErr.Reason)
}

func TestReserve_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	reserver := NewHTTPReserver(server.URL, http.DefaultClient)
	err := reserver.Reserve(context.Background(), "attempt-1", reserveItems())

	require.Error(t, err)
	var resErr *ReservationError
	assert.False(t, errors.As(err, &resErr), "transport error must not look like a backend rejection")
}

func TestReserve_ServerErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success": false}`))
	}))
	defer server.Close()

	reserver := NewHTTPReserver(server.URL, server.Client())
	err := reserver.Reserve(context.Background(), "attempt-1", reserveItems())
	require.ErrorContains(t, err, "status 500")
}

func TestReserve_BusinessFailuresDoNotTripBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"success": false, "error": "Stock insuficiente para Bowie-10"}`))
	}))
	defer server.Close()

	reserver := NewHTTPReserver(server.URL, server.Client())
	for i := 0; i < 10; i++ {
		err := reserver.Reserve(context.Background(), "attempt-1", reserveItems())
		var resErr *ReservationError
		require.ErrorAs(t, err, &resErr, "call %d should still reach the backend", i)
	}
}

func TestReserve_TransportFailuresTripBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	reserver := NewHTTPReserver(server.URL, http.DefaultClient)
	for i := 0; i < 5; i++ {
		require.Error(t, reserver.Reserve(context.Background(), "attempt-1", reserveItems()))
	}

	err := reserver.Reserve(context.Background(), "attempt-1", reserveItems())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}
