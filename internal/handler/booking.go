package handler

import (
	"net/http"
	"time"

	"github.com/arroyoseco/marketplace/internal/domain/booking"
)

// dateLayout is the wire format for reservation dates.
const dateLayout = "2006-01-02"

type reservationResponse struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	UserName    string         `json:"user_name,omitempty"`
	UserEmail   string         `json:"user_email,omitempty"`
	ServiceID   string         `json:"service_id"`
	ServiceName string         `json:"service_name,omitempty"`
	VendorID    string         `json:"vendor_id,omitempty"`
	VendorName  string         `json:"vendor_name,omitempty"`
	Date        string         `json:"date"`
	Time        string         `json:"time"`
	PartySize   int            `json:"party_size"`
	Status      booking.Status `json:"status"`
	Notes       string         `json:"notes,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

func toReservationResponse(res booking.Reservation) reservationResponse {
	return reservationResponse{
		ID:        res.ID,
		UserID:    res.UserID,
		ServiceID: res.ServiceID,
		Date:      res.Date.Format(dateLayout),
		Time:      res.Time,
		PartySize: res.PartySize,
		Status:    res.Status,
		Notes:     res.Notes,
		CreatedAt: res.CreatedAt,
	}
}

func toHydratedReservation(h *booking.Hydrated) reservationResponse {
	resp := toReservationResponse(h.Reservation)
	resp.UserName = h.UserName
	resp.UserEmail = h.UserEmail
	resp.ServiceName = h.ServiceName
	resp.VendorID = h.VendorID
	resp.VendorName = h.VendorName
	return resp
}

func toReservationList(in []booking.Reservation) []reservationResponse {
	out := make([]reservationResponse, len(in))
	for i, res := range in {
		out[i] = toReservationResponse(res)
	}
	return out
}

func (h *Handler) createReservation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID    string         `json:"user_id"`
		ServiceID string         `json:"service_id"`
		Date      string         `json:"date"`
		Time      string         `json:"time"`
		PartySize int            `json:"party_size"`
		Status    booking.Status `json:"status"`
		Notes     string         `json:"notes"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if req.UserID == "" || req.ServiceID == "" {
		badRequest(w, "user_id and service_id are required")
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		badRequest(w, "date must be in YYYY-MM-DD format")
		return
	}

	created, err := h.bookings.Create(r.Context(), booking.CreateRequest{
		UserID:    req.UserID,
		ServiceID: req.ServiceID,
		Date:      date,
		Time:      req.Time,
		PartySize: req.PartySize,
		Status:    req.Status,
		Notes:     req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toHydratedReservation(created))
}

func (h *Handler) getReservation(w http.ResponseWriter, r *http.Request) {
	res, err := h.bookings.Get(r.Context(), pathParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHydratedReservation(res))
}

func (h *Handler) updateReservation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ServiceID *string         `json:"service_id"`
		Date      *string         `json:"date"`
		Time      *string         `json:"time"`
		PartySize *int            `json:"party_size"`
		Status    *booking.Status `json:"status"`
		Notes     *string         `json:"notes"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	update := booking.UpdateRequest{
		ServiceID: req.ServiceID,
		Time:      req.Time,
		PartySize: req.PartySize,
		Status:    req.Status,
		Notes:     req.Notes,
	}
	if req.Date != nil {
		date, err := time.Parse(dateLayout, *req.Date)
		if err != nil {
			badRequest(w, "date must be in YYYY-MM-DD format")
			return
		}
		update.Date = &date
	}

	updated, err := h.bookings.Update(r.Context(), pathParam(r, "id"), update)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHydratedReservation(updated))
}

func (h *Handler) updateReservationStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status booking.Status `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "invalid request body")
		return
	}

	updated, err := h.bookings.UpdateStatus(r.Context(), pathParam(r, "id"), req.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toHydratedReservation(updated))
}

func (h *Handler) deleteReservation(w http.ResponseWriter, r *http.Request) {
	if err := h.bookings.Delete(r.Context(), pathParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listReservationsByUser(w http.ResponseWriter, r *http.Request) {
	list, err := h.bookings.ListByUser(r.Context(), pathParam(r, "userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationList(list))
}

func (h *Handler) listReservationsByService(w http.ResponseWriter, r *http.Request) {
	list, err := h.bookings.ListByService(r.Context(), pathParam(r, "serviceID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationList(list))
}

func (h *Handler) listReservationsByVendor(w http.ResponseWriter, r *http.Request) {
	list, err := h.bookings.ListByVendor(r.Context(), pathParam(r, "vendorID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationList(list))
}

func (h *Handler) listReservationsByStatus(w http.ResponseWriter, r *http.Request) {
	list, err := h.bookings.ListByStatus(r.Context(), booking.Status(pathParam(r, "status")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationList(list))
}

func (h *Handler) reservationStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.bookings.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"total":     stats.Total,
		"pending":   stats.Pending,
		"confirmed": stats.Confirmed,
		"cancelled": stats.Cancelled,
	})
}

func (h *Handler) checkAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	serviceID := q.Get("service_id")
	at := q.Get("time")
	if serviceID == "" || q.Get("date") == "" || at == "" {
		badRequest(w, "service_id, date and time are required")
		return
	}
	date, err := time.Parse(dateLayout, q.Get("date"))
	if err != nil {
		badRequest(w, "date must be in YYYY-MM-DD format")
		return
	}

	available, err := h.bookings.CheckAvailability(r.Context(), serviceID, date, at)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"available": available})
}
