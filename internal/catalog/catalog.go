package catalog

import (
	"context"

	"github.com/Nvetto/magknives-tienda/internal/domain"
)

// Provider supplies the current product snapshot list. The cart store
// uses it to re-check live stock on increment; it never mutates it.
type Provider interface {
	Products(ctx context.Context) ([]domain.Product, error)
	Product(ctx context.Context, productID int64) (domain.Product, error)
	Stock(ctx context.Context, productID int64) (int, error)
}
