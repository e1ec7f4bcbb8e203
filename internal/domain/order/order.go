package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is the order lifecycle state. Normal flow is
// pending -> paid -> shipped -> completed, but the payment bridge creates
// orders directly in the paid state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPaid      Status = "paid"
	StatusShipped   Status = "shipped"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is one of the defined order states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusShipped, StatusCompleted:
		return true
	}
	return false
}

// Sentinel errors for order operations.
var (
	ErrNotFound      = errors.New("order not found")
	ErrEmptyLines    = errors.New("order lines required")
	ErrInvalidStatus = errors.New("invalid order status")
	// ErrNotPending is returned when deleting an order that has left the
	// pending state. This is a policy violation, not a storage error.
	ErrNotPending = errors.New("only pending orders can be deleted")
)

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// TotalMismatchError indicates the declared total diverges from the sum of
// the line items by more than the currency rounding tolerance.
type TotalMismatchError struct {
	Declared decimal.Decimal
	Computed decimal.Decimal
}

func (e *TotalMismatchError) Error() string {
	return fmt.Sprintf("declared total %s does not match computed total %s",
		e.Declared.StringFixed(2), e.Computed.StringFixed(2))
}

// Tolerance is the maximum allowed divergence between independently
// computed monetary totals (2-digit currency rounding).
var Tolerance = decimal.New(1, -2)

// WithinTolerance reports whether a and b agree within Tolerance.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}

// Order is the durable record of a checkout.
type Order struct {
	ID            string
	UserID        string
	Total         decimal.Decimal
	Status        Status
	PaymentMethod string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Line is an immutable order line item. UnitPrice captures the price at
// time of purchase, independent of later product price changes.
type Line struct {
	ID        string
	OrderID   string
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// LineView is a Line with product and vendor display metadata where the
// catalog still knows the product.
type LineView struct {
	Line
	ProductName string
	VendorID    string
	VendorName  string
}

// Hydrated is an order with its lines and display metadata.
type Hydrated struct {
	Order
	Lines []LineView
}

// Capture correlates an order with the gateway capture that paid for it.
// Recording it in the same transaction as the order is what makes
// capture-to-order creation exactly-once.
type Capture struct {
	GatewayOrderID string
	TransactionID  string
	Amount         decimal.Decimal
	Currency       string
	Status         string
}

// Stats summarizes the order ledger.
type Stats struct {
	Total        int
	Pending      int
	Paid         int
	Shipped      int
	Completed    int
	TotalRevenue decimal.Decimal
}

// Repository defines persistence operations for orders. Create and Delete
// are all-or-nothing: a partial write (order without lines, or lines
// without an order) must never persist.
type Repository interface {
	Create(ctx context.Context, o *Order, lines []Line, capture *Capture) error
	GetByID(ctx context.Context, id string) (*Order, []Line, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	ListByVendor(ctx context.Context, vendorID string) ([]Order, error)
	ListByStatus(ctx context.Context, status Status) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	// Delete verifies status = pending and removes the order and its lines
	// in one transaction. Returns ErrNotFound or ErrNotPending.
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*Stats, error)
}
