package domain

import "github.com/shopspring/decimal"

// Product is a catalog snapshot as fetched from the storefront backend.
// It may go stale relative to live stock; the cart only reads it at
// decision time and never mutates it.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Images      []string        `json:"images"`
	Category    string          `json:"category,omitempty"`
	Description string          `json:"description,omitempty"`
}
