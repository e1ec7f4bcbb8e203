// Package handler exposes the HTTP surface: cart, orders, checkout and
// reservations, JSON over chi.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/arroyoseco/marketplace/internal/domain/booking"
	"github.com/arroyoseco/marketplace/internal/domain/cart"
	"github.com/arroyoseco/marketplace/internal/domain/order"
	"github.com/arroyoseco/marketplace/internal/domain/payment"
)

// Handler routes API requests to the domain services.
type Handler struct {
	carts    *cart.Service
	orders   *order.Service
	bridge   *payment.Bridge
	bookings *booking.Service
}

// New creates a Handler over the given services.
func New(carts *cart.Service, orders *order.Service, bridge *payment.Bridge, bookings *booking.Service) *Handler {
	return &Handler{
		carts:    carts,
		orders:   orders,
		bridge:   bridge,
		bookings: bookings,
	}
}

// Routes mounts every API route on a fresh router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/cart", func(r chi.Router) {
		r.Get("/{userID}", h.getCart)
		r.Get("/{userID}/availability", h.cartAvailability)
		r.Get("/{userID}/vendors", h.cartByVendor)
		r.Post("/{userID}/items", h.addCartItem)
		r.Put("/items/{lineID}", h.updateCartItem)
		r.Delete("/items/{lineID}", h.removeCartItem)
		r.Delete("/{userID}", h.clearCart)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.createOrder)
		r.Get("/stats", h.orderStats)
		r.Get("/{id}", h.getOrder)
		r.Put("/{id}/status", h.updateOrderStatus)
		r.Delete("/{id}", h.deleteOrder)
		r.Get("/user/{userID}", h.listOrdersByUser)
		r.Get("/vendor/{vendorID}", h.listOrdersByVendor)
		r.Get("/status/{status}", h.listOrdersByStatus)
	})

	r.Route("/checkout", func(r chi.Router) {
		r.Post("/intent", h.createIntent)
		r.Post("/capture", h.captureOrder)
		r.Get("/orders/{gatewayOrderID}", h.getGatewayOrder)
	})

	r.Route("/reservations", func(r chi.Router) {
		r.Post("/", h.createReservation)
		r.Get("/stats", h.reservationStats)
		r.Get("/availability", h.checkAvailability)
		r.Get("/{id}", h.getReservation)
		r.Put("/{id}", h.updateReservation)
		r.Put("/{id}/status", h.updateReservationStatus)
		r.Delete("/{id}", h.deleteReservation)
		r.Get("/user/{userID}", h.listReservationsByUser)
		r.Get("/service/{serviceID}", h.listReservationsByService)
		r.Get("/vendor/{vendorID}", h.listReservationsByVendor)
		r.Get("/status/{status}", h.listReservationsByStatus)
	})

	return r
}

func pathParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}
