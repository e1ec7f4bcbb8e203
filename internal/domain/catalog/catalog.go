// Package catalog exposes the read-only view of products, bookable
// services and vendors owned by the catalog service. Product and service
// administration is out of scope here; this package only declares what the
// checkout and booking flows consume.
package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrProductNotFound is returned when a referenced product does not exist.
	ErrProductNotFound = errors.New("product not found")
	// ErrServiceNotFound is returned when a referenced service does not exist.
	ErrServiceNotFound = errors.New("service not found")
)

// ServiceStatus values for a bookable service.
const (
	ServiceActive    = "active"
	ServiceSuspended = "suspended"
)

// Product is a catalog item available for purchase.
type Product struct {
	ID        string
	VendorID  string
	Name      string
	Price     decimal.Decimal
	Stock     int
	Available bool
}

// Service is a capacity-bearing bookable entity (a restaurant table
// service, a tour slot). Capacity 0 means the service declares no limit.
type Service struct {
	ID       string
	VendorID string
	Name     string
	Capacity int
	Status   string
}

// Vendor owns products and services.
type Vendor struct {
	ID           string
	BusinessName string
	Address      string
}

// Bookable reports whether the service currently accepts reservations.
func (s *Service) Bookable() bool {
	return s.Status == ServiceActive
}

// ProductReader provides read access to the product catalog.
type ProductReader interface {
	FindProductByID(ctx context.Context, id string) (*Product, error)
	// CheckStock reports whether the product has at least qty units.
	CheckStock(ctx context.Context, id string, qty int) (bool, error)
}

// ServiceReader provides read access to bookable services.
type ServiceReader interface {
	FindServiceByID(ctx context.Context, id string) (*Service, error)
}

// VendorReader provides read access to vendors for display hydration.
type VendorReader interface {
	FindVendorByID(ctx context.Context, id string) (*Vendor, error)
}
