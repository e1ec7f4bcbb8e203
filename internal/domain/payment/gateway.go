package payment

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// CaptureCompleted is the only gateway capture status that permits local
// writes; anything else aborts the checkout.
const CaptureCompleted = "COMPLETED"

// ErrGatewayTimeout is returned when the gateway does not answer within
// the bounded call deadline. The caller may retry the whole attempt.
var ErrGatewayTimeout = errors.New("payment gateway timed out")

// GatewayError is a non-timeout failure reported by the gateway transport.
type GatewayError struct {
	StatusCode int
	Body       string
}

func (e *GatewayError) Error() string {
	return "gateway error: " + e.Body
}

// GatewayItem is one line item sent to the gateway when opening an order.
type GatewayItem struct {
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

// GatewayOrder is the gateway-side order opened for a verified total.
type GatewayOrder struct {
	ID     string
	Status string
}

// CaptureResult is the gateway's report of a finalized payment.
type CaptureResult struct {
	TransactionID string
	Status        string
	Amount        decimal.Decimal
	Currency      string
}

// Gateway is the external payment collaborator. All calls must observe a
// bounded deadline and surface ErrGatewayTimeout rather than hang.
type Gateway interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal, currency string, items []GatewayItem) (*GatewayOrder, error)
	Capture(ctx context.Context, gatewayOrderID string) (*CaptureResult, error)
	GetOrder(ctx context.Context, gatewayOrderID string) (*GatewayOrder, error)
}
