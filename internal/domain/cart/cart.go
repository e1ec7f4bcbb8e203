package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for cart validation.
var (
	ErrLineNotFound       = errors.New("cart line not found")
	ErrInvalidQuantity    = errors.New("quantity must be greater than 0")
	ErrProductUnavailable = errors.New("product is not available")
)

// InsufficientStockError indicates a product cannot cover the requested
// quantity. Available reports how many units the caller could still get.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// Line is a single cart row, unique per (user, product).
type Line struct {
	ID        string
	UserID    string
	ProductID string
	Quantity  int
	AddedAt   time.Time
}

// LineView is a Line hydrated with product and vendor display metadata.
type LineView struct {
	Line
	ProductName string
	UnitPrice   decimal.Decimal
	Available   bool
	Stock       int
	VendorID    string
	VendorName  string
	Subtotal    decimal.Decimal
}

// View is the full cart for a user with computed totals.
type View struct {
	Lines     []LineView
	Total     decimal.Decimal
	ItemCount int
}

// LineAvailability is the pre-checkout verdict for one cart line.
type LineAvailability struct {
	LineID      string
	ProductID   string
	ProductName string
	Requested   int
	Available   bool
	Stock       int
	// OK is true when the product is available and stock covers Requested.
	OK bool
}

// Snapshot is the availability report for an entire cart.
type Snapshot struct {
	AllAvailable bool
	Unavailable  []LineAvailability
	Lines        []LineAvailability
}

// VendorGroup is the slice of a cart owned by one vendor, with its own
// subtotal, used to shard a multi-vendor cart for checkout views.
type VendorGroup struct {
	VendorID   string
	VendorName string
	Address    string
	Lines      []LineView
	Subtotal   decimal.Decimal
}

// GroupedView is a cart partitioned by vendor plus the grand total.
type GroupedView struct {
	Vendors []VendorGroup
	Total   decimal.Decimal
}

// Repository defines persistence operations for cart lines.
type Repository interface {
	// Upsert inserts the line or, when the user already has that product,
	// adds the quantity to the existing row. Returns the line id.
	Upsert(ctx context.Context, line Line) (string, error)
	UpdateQuantity(ctx context.Context, lineID string, qty int) error
	Remove(ctx context.Context, lineID string) error
	// Clear removes every line for the user and returns how many were removed.
	Clear(ctx context.Context, userID string) (int64, error)
	ListByUser(ctx context.Context, userID string) ([]Line, error)
}
