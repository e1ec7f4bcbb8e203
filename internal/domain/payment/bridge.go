// Package payment implements the reconciliation bridge between the cart,
// the external payment gateway and the order ledger. A checkout attempt
// moves through Initiated -> GatewayOrderCreated -> Captured -> Reconciled
// -> OrderPersisted, or aborts at any step with no local writes.
package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/arroyoseco/marketplace/internal/domain/order"
)

// Sentinel errors for bridge validation.
var (
	ErrNoItems = errors.New("cart items required")
	// ErrDuplicateCapture is returned when a gateway order id has already
	// produced a local order.
	ErrDuplicateCapture = errors.New("gateway order already captured")
)

// TotalMismatchError indicates the client-declared total diverges from the
// total recomputed from the cart items. Raised before any gateway call.
type TotalMismatchError struct {
	Declared decimal.Decimal
	Computed decimal.Decimal
}

func (e *TotalMismatchError) Error() string {
	return fmt.Sprintf("declared total %s does not match cart total %s",
		e.Declared.StringFixed(2), e.Computed.StringFixed(2))
}

// NotCompletedError indicates the gateway reported a capture status other
// than completed. No local writes occur.
type NotCompletedError struct {
	Status string
}

func (e *NotCompletedError) Error() string {
	return fmt.Sprintf("payment not completed: gateway status %q", e.Status)
}

// AmountMismatchError indicates the gateway captured an amount that does
// not reconcile with the cart total. Funds have already moved, so this is
// a reportable anomaly requiring manual reconciliation, never an automatic
// refund and never a silent acceptance.
type AmountMismatchError struct {
	Captured decimal.Decimal
	Declared decimal.Decimal
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("captured amount %s does not match cart total %s",
		e.Captured.StringFixed(2), e.Declared.StringFixed(2))
}

// Item is one cart line presented for checkout.
type Item struct {
	ProductID string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

// CaptureRequest carries a capture attempt: the gateway order opened by
// CreateIntent plus the same cart payload it was opened for.
type CaptureRequest struct {
	GatewayOrderID string
	UserID         string
	Items          []Item
	DeclaredTotal  decimal.Decimal
}

// Result is a completed checkout: the persisted order and the gateway
// transaction that paid for it.
type Result struct {
	Order         *order.Hydrated
	TransactionID string
	Amount        decimal.Decimal
	Currency      string
	Status        string
}

// CaptureStore reports whether a gateway order id already has a durable
// capture record.
type CaptureStore interface {
	Seen(ctx context.Context, gatewayOrderID string) (bool, error)
}

// Bridge drives the checkout state machine.
//
// Duplicate captures are guarded twice: a process-local bloom filter gives
// a cheap fast-path rejection for repeated capture posts, and the unique
// capture row written inside the order transaction is the authoritative
// cross-instance guard.
type Bridge struct {
	gateway  Gateway
	orders   *order.Service
	captures CaptureStore
	currency string

	mu   sync.Mutex
	seen *bloom.BloomFilter
}

// NewBridge creates a Bridge that settles in the given currency.
func NewBridge(gateway Gateway, orders *order.Service, captures CaptureStore, currency string) *Bridge {
	return &Bridge{
		gateway:  gateway,
		orders:   orders,
		captures: captures,
		currency: currency,
		seen:     bloom.NewWithEstimates(1_000_000, 0.001),
	}
}

// CreateIntent recomputes the cart total, verifies it against the declared
// total, and opens a gateway-side order for the verified amount. The
// gateway is never contacted when the totals disagree.
func (b *Bridge) CreateIntent(ctx context.Context, items []Item, declaredTotal decimal.Decimal) (*GatewayOrder, error) {
	if len(items) == 0 {
		return nil, ErrNoItems
	}

	computed := cartTotal(items)
	if !order.WithinTolerance(computed, declaredTotal) {
		return nil, &TotalMismatchError{
			Declared: declaredTotal,
			Computed: computed,
		}
	}

	gatewayItems := make([]GatewayItem, len(items))
	for i, it := range items {
		gatewayItems[i] = GatewayItem{
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
		}
	}

	gw, err := b.gateway.CreateOrder(ctx, declaredTotal.Round(2), b.currency, gatewayItems)
	if err != nil {
		return nil, errors.Wrap(err, "create gateway order")
	}
	return gw, nil
}

// Capture finalizes the payment for a previously opened gateway order and,
// on successful reconciliation, persists the local order exactly once with
// status paid and the gateway-captured amount as the authoritative total.
func (b *Bridge) Capture(ctx context.Context, req CaptureRequest) (*Result, error) {
	if req.GatewayOrderID == "" {
		return nil, errors.New("gateway order id required")
	}
	if len(req.Items) == 0 {
		return nil, ErrNoItems
	}

	// Fast-path duplicate rejection. The filter only says "maybe seen";
	// the store confirms before we reject, and the capture row's unique
	// key remains the guard that actually closes the race.
	if b.maybeSeen(req.GatewayOrderID) {
		seen, err := b.captures.Seen(ctx, req.GatewayOrderID)
		if err != nil {
			return nil, errors.Wrap(err, "check capture record")
		}
		if seen {
			return nil, ErrDuplicateCapture
		}
	}

	res, err := b.gateway.Capture(ctx, req.GatewayOrderID)
	if err != nil {
		return nil, errors.Wrapf(err, "capture gateway order %s", req.GatewayOrderID)
	}
	if res.Status != CaptureCompleted {
		return nil, &NotCompletedError{Status: res.Status}
	}

	if !order.WithinTolerance(res.Amount, req.DeclaredTotal) {
		return nil, &AmountMismatchError{
			Captured: res.Amount,
			Declared: req.DeclaredTotal,
		}
	}

	lines := make([]order.LineInput, len(req.Items))
	for i, it := range req.Items {
		lines[i] = order.LineInput{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		}
	}

	h, err := b.orders.Create(ctx, order.CreateRequest{
		UserID:        req.UserID,
		Lines:         lines,
		DeclaredTotal: res.Amount,
		Status:        order.StatusPaid,
		PaymentMethod: "paypal",
		Capture: &order.Capture{
			GatewayOrderID: req.GatewayOrderID,
			TransactionID:  res.TransactionID,
			Amount:         res.Amount,
			Currency:       res.Currency,
			Status:         res.Status,
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "persist captured order")
	}

	b.markSeen(req.GatewayOrderID)

	return &Result{
		Order:         h,
		TransactionID: res.TransactionID,
		Amount:        res.Amount,
		Currency:      res.Currency,
		Status:        res.Status,
	}, nil
}

// GetGatewayOrder returns the gateway's view of an order, used by callers
// to inspect an in-flight checkout.
func (b *Bridge) GetGatewayOrder(ctx context.Context, gatewayOrderID string) (*GatewayOrder, error) {
	return b.gateway.GetOrder(ctx, gatewayOrderID)
}

func (b *Bridge) maybeSeen(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seen.TestString(id)
}

func (b *Bridge) markSeen(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seen.AddString(id)
}

func cartTotal(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum
}
