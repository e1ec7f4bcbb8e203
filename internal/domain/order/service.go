package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/arroyoseco/marketplace/internal/domain/catalog"
	"github.com/arroyoseco/marketplace/internal/domain/identity"
)

// LineInput is one requested order line.
type LineInput struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// CreateRequest holds the input for creating an order.
type CreateRequest struct {
	UserID        string
	Lines         []LineInput
	DeclaredTotal decimal.Decimal
	// Status defaults to pending; the payment bridge sets paid directly.
	Status        Status
	PaymentMethod string
	// Capture, when set, is recorded in the same transaction as the order.
	Capture *Capture
}

// Service encapsulates the order ledger business logic.
type Service struct {
	orders   Repository
	users    identity.Reader
	products catalog.ProductReader
	vendors  catalog.VendorReader
}

// NewService creates an order Service with the required dependencies.
func NewService(
	orders Repository,
	users identity.Reader,
	products catalog.ProductReader,
	vendors catalog.VendorReader,
) *Service {
	return &Service{
		orders:   orders,
		users:    users,
		products: products,
		vendors:  vendors,
	}
}

// Create validates the request, reconciles the declared total against the
// line items, and persists the order with all its lines atomically.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Hydrated, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyLines
	}

	status := req.Status
	if status == "" {
		status = StatusPending
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	if _, err := s.users.FindUserByID(ctx, req.UserID); err != nil {
		return nil, errors.Wrapf(err, "find user %s", req.UserID)
	}

	// Every referenced product must exist and every quantity must be
	// positive; the total is recomputed independently of the caller.
	computed := decimal.Zero
	for _, in := range req.Lines {
		if in.Quantity < 1 {
			return nil, &InvalidQuantityError{ProductID: in.ProductID}
		}
		if _, err := s.products.FindProductByID(ctx, in.ProductID); err != nil {
			return nil, errors.Wrapf(err, "find product %s", in.ProductID)
		}
		computed = computed.Add(in.UnitPrice.Mul(decimal.NewFromInt(int64(in.Quantity))))
	}

	if !WithinTolerance(computed, req.DeclaredTotal) {
		return nil, &TotalMismatchError{
			Declared: req.DeclaredTotal,
			Computed: computed,
		}
	}

	o := &Order{
		ID:            uuid.New().String(),
		UserID:        req.UserID,
		Total:         req.DeclaredTotal.Round(2),
		Status:        status,
		PaymentMethod: req.PaymentMethod,
	}
	lines := make([]Line, len(req.Lines))
	for i, in := range req.Lines {
		lines[i] = Line{
			ID:        uuid.New().String(),
			OrderID:   o.ID,
			ProductID: in.ProductID,
			Quantity:  in.Quantity,
			UnitPrice: in.UnitPrice.Round(2),
		}
	}

	if err := s.orders.Create(ctx, o, lines, req.Capture); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	return s.Get(ctx, o.ID)
}

// Get returns the order with its lines, hydrated with product and vendor
// display metadata where the catalog still knows the product.
func (s *Service) Get(ctx context.Context, id string) (*Hydrated, error) {
	o, lines, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	h := &Hydrated{Order: *o, Lines: make([]LineView, len(lines))}
	for i, line := range lines {
		view := LineView{Line: line}
		if p, err := s.products.FindProductByID(ctx, line.ProductID); err == nil {
			view.ProductName = p.Name
			view.VendorID = p.VendorID
			if v, err := s.vendors.FindVendorByID(ctx, p.VendorID); err == nil {
				view.VendorName = v.BusinessName
			}
		}
		h.Lines[i] = view
	}
	return h, nil
}

// ListByUser returns the user's orders, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// ListByVendor returns orders containing at least one line item owned by
// the vendor.
func (s *Service) ListByVendor(ctx context.Context, vendorID string) ([]Order, error) {
	return s.orders.ListByVendor(ctx, vendorID)
}

// ListByStatus returns orders in the given state.
func (s *Service) ListByStatus(ctx context.Context, status Status) ([]Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	return s.orders.ListByStatus(ctx, status)
}

// UpdateStatus sets the order state. Any defined state is reachable from
// any other; only the enum itself is enforced.
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	return s.orders.UpdateStatus(ctx, id, status)
}

// Delete removes a pending order together with its lines. Orders that have
// left the pending state cannot be deleted.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.orders.Delete(ctx, id)
}

// Stats summarizes the ledger for dashboards.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.orders.Stats(ctx)
}
