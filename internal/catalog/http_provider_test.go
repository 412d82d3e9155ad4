package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nvetto/magknives-tienda/internal/domain"
)

const productosJSON = `[
	{"id": 1, "nombre": "Bowie-10", "precio": 12500, "stock": 3, "imagenes": ["/img/bowie-10.webp"], "categoria": "cuchillos"},
	{"id": 4, "nombre": "Verijero-12", "precio": 9800, "stock": 0, "imagenes": [], "categoria": "cuchillos"}
]`

func newCatalogServer(t *testing.T, hits *atomic.Int64, fail *atomic.Bool) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/productos", r.URL.Path)
		hits.Add(1)
		if fail != nil && fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(productosJSON))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestProducts_FetchAndMap(t *testing.T) {
	var hits atomic.Int64
	server := newCatalogServer(t, &hits, nil)

	provider := NewHTTPProvider(server.URL, server.Client(), time.Minute)
	products, err := provider.Products(context.Background())
	require.NoError(t, err)

	require.Len(t, products, 2)
	assert.Equal(t, "Bowie-10", products[0].Name)
	assert.True(t, products[0].Price.Equal(decimal.NewFromInt(12500)))
	assert.Equal(t, 3, products[0].Stock)
	assert.Equal(t, "cuchillos", products[0].Category)
	assert.Equal(t, 0, products[1].Stock)
}

func TestProducts_CachedWithinTTL(t *testing.T) {
	var hits atomic.Int64
	server := newCatalogServer(t, &hits, nil)

	provider := NewHTTPProvider(server.URL, server.Client(), time.Minute)
	ctx := context.Background()

	_, err := provider.Products(ctx)
	require.NoError(t, err)
	_, err = provider.Products(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(1), hits.Load())
}

func TestProducts_RefetchesAfterTTL(t *testing.T) {
	var hits atomic.Int64
	server := newCatalogServer(t, &hits, nil)

	provider := NewHTTPProvider(server.URL, server.Client(), time.Nanosecond)
	ctx := context.Background()

	_, err := provider.Products(ctx)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	_, err = provider.Products(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(2), hits.Load())
}

func TestProducts_ServesStaleOnBackendFailure(t *testing.T) {
	var hits atomic.Int64
	var fail atomic.Bool
	server := newCatalogServer(t, &hits, &fail)

	provider := NewHTTPProvider(server.URL, server.Client(), time.Nanosecond)
	ctx := context.Background()

	products, err := provider.Products(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)

	fail.Store(true)
	time.Sleep(time.Millisecond)

	stale, err := provider.Products(ctx)
	require.NoError(t, err)
	assert.Len(t, stale, 2)
}

func TestProducts_ErrorWithNoSnapshot(t *testing.T) {
	var hits atomic.Int64
	var fail atomic.Bool
	fail.Store(true)
	server := newCatalogServer(t, &hits, &fail)

	provider := NewHTTPProvider(server.URL, server.Client(), time.Minute)
	_, err := provider.Products(context.Background())
	require.ErrorContains(t, err, "status 500")
}

func TestStock_LiveLookup(t *testing.T) {
	var hits atomic.Int64
	server := newCatalogServer(t, &hits, nil)

	provider := NewHTTPProvider(server.URL, server.Client(), time.Minute)
	ctx := context.Background()

	stock, err := provider.Stock(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, stock)

	_, err = provider.Stock(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}
