package repository

import (
	"context"
	"errors"

	"github.com/Nvetto/magknives-tienda/internal/domain"
)

// CartRepository is the durable cart record. Consumers define this
// interface, not the Redis/Mongo implementations.
type CartRepository interface {
	GetCart(ctx context.Context, ownerID string) (*domain.Cart, error)
	SaveCart(ctx context.Context, cart *domain.Cart) error
	DeleteCart(ctx context.Context, ownerID string) error
}

var ErrCartNotFound = errors.New("cart not found")
