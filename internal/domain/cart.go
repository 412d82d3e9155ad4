package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineItem is one product entry in the cart. Display fields are copied
// from the product snapshot at add time; Stock is the stock seen then
// and is only a soft bound (live stock is re-checked on increment).
type LineItem struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	Images    []string        `json:"images"`
	Quantity  int             `json:"quantity"`
	AddedAt   time.Time       `json:"added_at"`
}

// Cart is an ordered sequence of line items, insertion order preserved.
// Identity key is the product ID: adding an existing product increments
// its quantity instead of inserting a duplicate line.
type Cart struct {
	OwnerID   string     `json:"owner_id"`
	Items     []LineItem `json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// FindItem returns the position of the line item for productID, or -1.
func (c *Cart) FindItem(productID int64) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

type LineTotal struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// Totals is the derived view of a cart: per-line subtotals, the grand
// total and the badge count (summed quantities, not line count).
type Totals struct {
	Lines      []LineTotal     `json:"lines"`
	GrandTotal decimal.Decimal `json:"grand_total"`
	ItemCount  int             `json:"item_count"`
}

// Totals recomputes the derived view from scratch on every call, there
// is no incremental accumulator to drift.
func (c *Cart) Totals() Totals {
	t := Totals{GrandTotal: decimal.Zero}
	for _, item := range c.Items {
		subtotal := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		t.Lines = append(t.Lines, LineTotal{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Subtotal:  subtotal,
		})
		t.GrandTotal = t.GrandTotal.Add(subtotal)
		t.ItemCount += item.Quantity
	}
	return t
}
