package domain

// EventKind identifies a cart store notification.
type EventKind int

const (
	// EventCartChanged fires after any state change; renderers re-read
	// the snapshot and totals from the store.
	EventCartChanged EventKind = iota
	// EventItemAdded is the transient "added to cart" toast.
	EventItemAdded
	// EventOutOfStock fires when add/increment hits the stock bound.
	EventOutOfStock
	// EventCheckoutDone fires once the reservation succeeded and the
	// cart was cleared.
	EventCheckoutDone
	// EventCheckoutFailed carries the reservation failure reason.
	EventCheckoutFailed
)

func (k EventKind) String() string {
	switch k {
	case EventCartChanged:
		return "cart_changed"
	case EventItemAdded:
		return "item_added"
	case EventOutOfStock:
		return "out_of_stock"
	case EventCheckoutDone:
		return "checkout_done"
	case EventCheckoutFailed:
		return "checkout_failed"
	default:
		return "unknown"
	}
}

// Event is delivered to store subscribers after the mutation that
// produced it has been applied and persisted.
type Event struct {
	Kind      EventKind
	ProductID int64  // set for item-level events
	Detail    string // failure reason for EventCheckoutFailed
}
