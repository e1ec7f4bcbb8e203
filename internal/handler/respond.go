package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/arroyoseco/marketplace/internal/domain/booking"
	"github.com/arroyoseco/marketplace/internal/domain/cart"
	"github.com/arroyoseco/marketplace/internal/domain/catalog"
	"github.com/arroyoseco/marketplace/internal/domain/identity"
	"github.com/arroyoseco/marketplace/internal/domain/order"
	"github.com/arroyoseco/marketplace/internal/domain/payment"
)

type errorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := classify(err)
	if status >= http.StatusInternalServerError {
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, body)
}

// classify maps domain errors to HTTP status codes. Unrecognized errors
// are internal.
func classify(err error) (int, errorResponse) {
	var (
		stockErr      *cart.InsufficientStockError
		qtyErr        *order.InvalidQuantityError
		orderTotalErr *order.TotalMismatchError
		totalErr      *payment.TotalMismatchError
		notDoneErr    *payment.NotCompletedError
		amountErr     *payment.AmountMismatchError
		capacityErr   *booking.CapacityError
		gatewayErr    *payment.GatewayError
	)

	switch {
	// Validation.
	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, order.ErrEmptyLines),
		errors.Is(err, order.ErrInvalidStatus),
		errors.Is(err, booking.ErrInvalidStatus),
		errors.Is(err, booking.ErrInvalidPartySize),
		errors.Is(err, booking.ErrInvalidTime),
		errors.Is(err, payment.ErrNoItems):
		return http.StatusBadRequest, errorResponse{Error: err.Error()}
	case errors.As(err, &qtyErr):
		return http.StatusBadRequest, errorResponse{Error: qtyErr.Error()}

	// Not found.
	case errors.Is(err, cart.ErrLineNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, booking.ErrNotFound),
		errors.Is(err, identity.ErrNotFound),
		errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, catalog.ErrServiceNotFound):
		return http.StatusNotFound, errorResponse{Error: err.Error()}

	// Conflicts.
	case errors.Is(err, booking.ErrUserDateConflict),
		errors.Is(err, booking.ErrSlotConflict),
		errors.Is(err, payment.ErrDuplicateCapture),
		errors.Is(err, order.ErrNotPending):
		return http.StatusConflict, errorResponse{Error: err.Error()}

	// Unprocessable business states.
	case errors.Is(err, cart.ErrProductUnavailable),
		errors.Is(err, booking.ErrPastDate),
		errors.Is(err, booking.ErrServiceUnavailable):
		return http.StatusUnprocessableEntity, errorResponse{Error: err.Error()}
	case errors.As(err, &stockErr):
		return http.StatusUnprocessableEntity, errorResponse{
			Error: stockErr.Error(),
			Details: map[string]any{
				"product_id": stockErr.ProductID,
				"requested":  stockErr.Requested,
				"available":  stockErr.Available,
			},
		}
	case errors.As(err, &capacityErr):
		return http.StatusUnprocessableEntity, errorResponse{
			Error:   capacityErr.Error(),
			Details: map[string]any{"capacity": capacityErr.Capacity},
		}
	case errors.As(err, &orderTotalErr):
		return http.StatusUnprocessableEntity, errorResponse{
			Error: orderTotalErr.Error(),
			Details: map[string]string{
				"declared": orderTotalErr.Declared.StringFixed(2),
				"computed": orderTotalErr.Computed.StringFixed(2),
			},
		}
	case errors.As(err, &totalErr):
		return http.StatusUnprocessableEntity, errorResponse{
			Error: totalErr.Error(),
			Details: map[string]string{
				"declared": totalErr.Declared.StringFixed(2),
				"computed": totalErr.Computed.StringFixed(2),
			},
		}
	case errors.As(err, &notDoneErr):
		return http.StatusUnprocessableEntity, errorResponse{
			Error:   notDoneErr.Error(),
			Details: map[string]string{"gateway_status": notDoneErr.Status},
		}
	case errors.As(err, &amountErr):
		return http.StatusUnprocessableEntity, errorResponse{
			Error: amountErr.Error(),
			Details: map[string]string{
				"captured": amountErr.Captured.StringFixed(2),
				"declared": amountErr.Declared.StringFixed(2),
			},
		}

	// Gateway transport failures.
	case errors.Is(err, payment.ErrGatewayTimeout):
		return http.StatusGatewayTimeout, errorResponse{Error: err.Error()}
	case errors.As(err, &gatewayErr):
		return http.StatusBadGateway, errorResponse{Error: "payment gateway error"}
	}

	return http.StatusInternalServerError, errorResponse{Error: "internal error"}
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Wrap(err, "decode request body")
	}
	return nil
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}
