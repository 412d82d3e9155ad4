package domain

import "errors"

var (
	ErrOutOfStock       = errors.New("not enough stock for product")
	ErrEmptyCart        = errors.New("cart is empty, nothing to checkout")
	ErrCheckoutInFlight = errors.New("checkout in progress, cart is locked")
	ErrProductNotFound  = errors.New("product not found in catalog")
)
