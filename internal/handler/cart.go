package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/arroyoseco/marketplace/internal/domain/cart"
)

type cartLineResponse struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Available   bool            `json:"available"`
	Stock       int             `json:"stock"`
	VendorID    string          `json:"vendor_id"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

type cartResponse struct {
	Lines     []cartLineResponse `json:"lines"`
	Total     decimal.Decimal    `json:"total"`
	ItemCount int                `json:"item_count"`
}

func toCartLines(views []cart.LineView) []cartLineResponse {
	out := make([]cartLineResponse, len(views))
	for i, v := range views {
		out[i] = cartLineResponse{
			ID:          v.ID,
			ProductID:   v.ProductID,
			ProductName: v.ProductName,
			Quantity:    v.Quantity,
			UnitPrice:   v.UnitPrice,
			Available:   v.Available,
			Stock:       v.Stock,
			VendorID:    v.VendorID,
			Subtotal:    v.Subtotal,
		}
	}
	return out
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	view, err := h.carts.Get(r.Context(), pathParam(r, "userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cartResponse{
		Lines:     toCartLines(view.Lines),
		Total:     view.Total,
		ItemCount: view.ItemCount,
	})
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.ProductID == "" {
		badRequest(w, "product_id is required")
		return
	}

	id, err := h.carts.AddItem(r.Context(), pathParam(r, "userID"), req.ProductID, req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	if err := h.carts.UpdateQuantity(r.Context(), pathParam(r, "lineID"), req.Quantity); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	if err := h.carts.RemoveItem(r.Context(), pathParam(r, "lineID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	removed, err := h.carts.Clear(r.Context(), pathParam(r, "userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"removed": removed})
}

type lineAvailabilityResponse struct {
	LineID      string `json:"line_id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Requested   int    `json:"requested"`
	Available   bool   `json:"available"`
	Stock       int    `json:"stock"`
	OK          bool   `json:"ok"`
}

func toLineAvailability(in []cart.LineAvailability) []lineAvailabilityResponse {
	out := make([]lineAvailabilityResponse, len(in))
	for i, a := range in {
		out[i] = lineAvailabilityResponse{
			LineID:      a.LineID,
			ProductID:   a.ProductID,
			ProductName: a.ProductName,
			Requested:   a.Requested,
			Available:   a.Available,
			Stock:       a.Stock,
			OK:          a.OK,
		}
	}
	return out
}

func (h *Handler) cartAvailability(w http.ResponseWriter, r *http.Request) {
	snap, err := h.carts.AvailabilitySnapshot(r.Context(), pathParam(r, "userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"all_available": snap.AllAvailable,
		"unavailable":   toLineAvailability(snap.Unavailable),
		"lines":         toLineAvailability(snap.Lines),
	})
}

func (h *Handler) cartByVendor(w http.ResponseWriter, r *http.Request) {
	grouped, err := h.carts.GroupByVendor(r.Context(), pathParam(r, "userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	type groupResponse struct {
		VendorID   string             `json:"vendor_id"`
		VendorName string             `json:"vendor_name"`
		Address    string             `json:"address"`
		Lines      []cartLineResponse `json:"lines"`
		Subtotal   decimal.Decimal    `json:"subtotal"`
	}
	groups := make([]groupResponse, len(grouped.Vendors))
	for i, g := range grouped.Vendors {
		groups[i] = groupResponse{
			VendorID:   g.VendorID,
			VendorName: g.VendorName,
			Address:    g.Address,
			Lines:      toCartLines(g.Lines),
			Subtotal:   g.Subtotal,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"vendors": groups,
		"total":   grouped.Total,
	})
}
