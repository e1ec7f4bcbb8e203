package handler

import (
	"net/http"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/arroyoseco/marketplace/internal/domain/booking"
	"github.com/arroyoseco/marketplace/internal/domain/cart"
	"github.com/arroyoseco/marketplace/internal/domain/catalog"
	"github.com/arroyoseco/marketplace/internal/domain/order"
	"github.com/arroyoseco/marketplace/internal/domain/payment"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid quantity", cart.ErrInvalidQuantity, http.StatusBadRequest},
		{"empty order", order.ErrEmptyLines, http.StatusBadRequest},
		{"invalid party size", booking.ErrInvalidPartySize, http.StatusBadRequest},
		{"line not found", cart.ErrLineNotFound, http.StatusNotFound},
		{"order not found", order.ErrNotFound, http.StatusNotFound},
		{"product not found", catalog.ErrProductNotFound, http.StatusNotFound},
		{"wrapped not found", errors.Wrap(booking.ErrNotFound, "get reservation"), http.StatusNotFound},
		{"user date conflict", booking.ErrUserDateConflict, http.StatusConflict},
		{"slot conflict", booking.ErrSlotConflict, http.StatusConflict},
		{"duplicate capture", payment.ErrDuplicateCapture, http.StatusConflict},
		{"delete non-pending", order.ErrNotPending, http.StatusConflict},
		{"unavailable product", cart.ErrProductUnavailable, http.StatusUnprocessableEntity},
		{"past date", booking.ErrPastDate, http.StatusUnprocessableEntity},
		{"suspended service", booking.ErrServiceUnavailable, http.StatusUnprocessableEntity},
		{
			"insufficient stock",
			&cart.InsufficientStockError{ProductID: "p1", Requested: 5, Available: 2},
			http.StatusUnprocessableEntity,
		},
		{
			"capacity exceeded",
			&booking.CapacityError{Capacity: 8},
			http.StatusUnprocessableEntity,
		},
		{
			"order total mismatch",
			&order.TotalMismatchError{Declared: decimal.New(100, 0), Computed: decimal.New(90, 0)},
			http.StatusUnprocessableEntity,
		},
		{
			"cart total mismatch",
			&payment.TotalMismatchError{Declared: decimal.New(100, 0), Computed: decimal.New(90, 0)},
			http.StatusUnprocessableEntity,
		},
		{
			"payment not completed",
			&payment.NotCompletedError{Status: "DECLINED"},
			http.StatusUnprocessableEntity,
		},
		{
			"amount mismatch",
			&payment.AmountMismatchError{Captured: decimal.New(90, 0), Declared: decimal.New(100, 0)},
			http.StatusUnprocessableEntity,
		},
		{"gateway timeout", payment.ErrGatewayTimeout, http.StatusGatewayTimeout},
		{
			"gateway failure",
			&payment.GatewayError{StatusCode: 500, Body: "upstream broke"},
			http.StatusBadGateway,
		},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := classify(tt.err)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestClassify_MismatchCarriesReconciliationPayload(t *testing.T) {
	_, body := classify(&payment.AmountMismatchError{
		Captured: decimal.RequireFromString("90.00"),
		Declared: decimal.RequireFromString("100.00"),
	})

	details, ok := body.Details.(map[string]string)
	assert.True(t, ok)
	assert.Equal(t, "90.00", details["captured"])
	assert.Equal(t, "100.00", details["declared"])
}
