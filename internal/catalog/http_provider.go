package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/Nvetto/magknives-tienda/internal/domain"
)

// productDoc matches the backend wire format, which keeps the original
// Spanish field names.
type productDoc struct {
	ID          int64           `json:"id"`
	Name        string          `json:"nombre"`
	Price       decimal.Decimal `json:"precio"`
	Stock       int             `json:"stock"`
	Images      []string        `json:"imagenes"`
	Category    string          `json:"categoria"`
	Description string          `json:"descripcion"`
}

// HTTPProvider fetches /api/productos from the storefront backend and
// caches the snapshot for a TTL. Concurrent refreshes for an expired
// snapshot are collapsed with singleflight.
type HTTPProvider struct {
	baseURL string
	client  *http.Client
	ttl     time.Duration
	sfg     singleflight.Group

	mu        sync.RWMutex
	products  []domain.Product
	fetchedAt time.Time
}

func NewHTTPProvider(baseURL string, client *http.Client, ttl time.Duration) *HTTPProvider {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPProvider{
		baseURL: baseURL,
		client:  client,
		ttl:     ttl,
	}
}

func (p *HTTPProvider) Products(ctx context.Context) ([]domain.Product, error) {
	p.mu.RLock()
	if p.products != nil && time.Since(p.fetchedAt) < p.ttl {
		products := p.products
		p.mu.RUnlock()
		return products, nil
	}
	p.mu.RUnlock()

	v, err, _ := p.sfg.Do("products", func() (interface{}, error) {
		products, err := p.fetch(ctx)
		if err != nil {
			return nil, err
		}

		p.mu.Lock()
		p.products = products
		p.fetchedAt = time.Now()
		p.mu.Unlock()

		return products, nil
	})
	if err != nil {
		// Serve the stale snapshot if we have one; an unreachable
		// backend should not take the cart down with it.
		p.mu.RLock()
		defer p.mu.RUnlock()
		if p.products != nil {
			return p.products, nil
		}
		return nil, err
	}

	return v.([]domain.Product), nil
}

func (p *HTTPProvider) Product(ctx context.Context, productID int64) (domain.Product, error) {
	products, err := p.Products(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	for _, product := range products {
		if product.ID == productID {
			return product, nil
		}
	}
	return domain.Product{}, domain.ErrProductNotFound
}

func (p *HTTPProvider) Stock(ctx context.Context, productID int64) (int, error) {
	product, err := p.Product(ctx, productID)
	if err != nil {
		return 0, err
	}
	return product.Stock, nil
}

func (p *HTTPProvider) fetch(ctx context.Context) ([]domain.Product, error) {
	url := p.baseURL + "/api/productos"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}

	var docs []productDoc
	if err := json.NewDecoder(resp.Body).Decode(&docs); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	products := make([]domain.Product, len(docs))
	for i, doc := range docs {
		products[i] = domain.Product{
			ID:          doc.ID,
			Name:        doc.Name,
			Price:       doc.Price,
			Stock:       doc.Stock,
			Images:      doc.Images,
			Category:    doc.Category,
			Description: doc.Description,
		}
	}
	return products, nil
}
