package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/arroyoseco/marketplace/internal/domain/order"
)

type orderLineResponse struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	VendorID    string          `json:"vendor_id,omitempty"`
	VendorName  string          `json:"vendor_name,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type orderResponse struct {
	ID            string              `json:"id"`
	UserID        string              `json:"user_id"`
	Total         decimal.Decimal     `json:"total"`
	Status        order.Status        `json:"status"`
	PaymentMethod string              `json:"payment_method,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
	Lines         []orderLineResponse `json:"lines,omitempty"`
}

func toOrderResponse(o order.Order) orderResponse {
	return orderResponse{
		ID:            o.ID,
		UserID:        o.UserID,
		Total:         o.Total,
		Status:        o.Status,
		PaymentMethod: o.PaymentMethod,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

func toHydratedResponse(h *order.Hydrated) orderResponse {
	resp := toOrderResponse(h.Order)
	resp.Lines = make([]orderLineResponse, len(h.Lines))
	for i, l := range h.Lines {
		resp.Lines[i] = orderLineResponse{
			ID:          l.ID,
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			VendorID:    l.VendorID,
			VendorName:  l.VendorName,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
		}
	}
	return resp
}

func toOrderList(orders []order.Order) []orderResponse {
	out := make([]orderResponse, len(orders))
	for i, o := range orders {
		out[i] = toOrderResponse(o)
	}
	return out
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
		Lines  []struct {
			ProductID string          `json:"product_id"`
			Quantity  int             `json:"quantity"`
			UnitPrice decimal.Decimal `json:"unit_price"`
		} `json:"lines"`
		Total         decimal.Decimal `json:"total"`
		PaymentMethod string          `json:"payment_method"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.UserID == "" {
		badRequest(w, "user_id is required")
		return
	}

	lines := make([]order.LineInput, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = order.LineInput{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		}
	}

	created, err := h.orders.Create(r.Context(), order.CreateRequest{
		UserID:        req.UserID,
		Lines:         lines,
		DeclaredTotal: req.Total,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toHydratedResponse(created))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHydratedResponse(o))
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status order.Status `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	if err := h.orders.UpdateStatus(r.Context(), pathParam(r, "id"), req.Status); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.Delete(r.Context(), pathParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listOrdersByUser(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListByUser(r.Context(), pathParam(r, "userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderList(orders))
}

func (h *Handler) listOrdersByVendor(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListByVendor(r.Context(), pathParam(r, "vendorID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderList(orders))
}

func (h *Handler) listOrdersByStatus(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListByStatus(r.Context(), order.Status(pathParam(r, "status")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderList(orders))
}

func (h *Handler) orderStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.orders.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":         stats.Total,
		"pending":       stats.Pending,
		"paid":          stats.Paid,
		"shipped":       stats.Shipped,
		"completed":     stats.Completed,
		"total_revenue": stats.TotalRevenue,
	})
}
