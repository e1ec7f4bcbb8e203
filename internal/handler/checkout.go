package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/arroyoseco/marketplace/internal/domain/payment"
)

type checkoutItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

func toPaymentItems(in []checkoutItem) []payment.Item {
	out := make([]payment.Item, len(in))
	for i, it := range in {
		out[i] = payment.Item{
			ProductID: it.ProductID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
		}
	}
	return out
}

func (h *Handler) createIntent(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []checkoutItem  `json:"items"`
		Total decimal.Decimal `json:"total"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	gw, err := h.bridge.CreateIntent(r.Context(), toPaymentItems(req.Items), req.Total)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"gateway_order_id": gw.ID,
		"status":           gw.Status,
	})
}

func (h *Handler) captureOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GatewayOrderID string          `json:"gateway_order_id"`
		UserID         string          `json:"user_id"`
		Items          []checkoutItem  `json:"items"`
		Total          decimal.Decimal `json:"total"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.GatewayOrderID == "" {
		badRequest(w, "gateway_order_id is required")
		return
	}
	if req.UserID == "" {
		badRequest(w, "user_id is required")
		return
	}

	res, err := h.bridge.Capture(r.Context(), payment.CaptureRequest{
		GatewayOrderID: req.GatewayOrderID,
		UserID:         req.UserID,
		Items:          toPaymentItems(req.Items),
		DeclaredTotal:  req.Total,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"order":          toHydratedResponse(res.Order),
		"transaction_id": res.TransactionID,
		"amount":         res.Amount,
		"currency":       res.Currency,
		"status":         res.Status,
	})
}

func (h *Handler) getGatewayOrder(w http.ResponseWriter, r *http.Request) {
	gw, err := h.bridge.GetGatewayOrder(r.Context(), pathParam(r, "gatewayOrderID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"gateway_order_id": gw.ID,
		"status":           gw.Status,
	})
}
