package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
)

// Status is the reservation lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is one of the defined reservation states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

// Sentinel errors for booking operations.
var (
	ErrNotFound         = errors.New("reservation not found")
	ErrInvalidStatus    = errors.New("invalid reservation status")
	ErrInvalidPartySize = errors.New("party size must be at least 1")
	ErrInvalidTime      = errors.New("time must be in HH:MM format")
	ErrPastDate         = errors.New("reservation date cannot be in the past")
	ErrServiceUnavailable = errors.New("service is not accepting reservations")
	// ErrUserDateConflict: the user already holds an active reservation on
	// that date, regardless of service.
	ErrUserDateConflict = errors.New("user already has a reservation on this date")
	// ErrSlotConflict: the (service, date, time) slot already holds an
	// active reservation, regardless of user.
	ErrSlotConflict = errors.New("slot is already reserved")
)

// CapacityError indicates the requested party exceeds the service's
// declared capacity.
type CapacityError struct {
	Capacity int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("party size exceeds service capacity of %d", e.Capacity)
}

// Reservation occupies one booking slot. Date is a calendar date (no time
// component); Time is wall-clock HH:MM in the deployment timezone.
type Reservation struct {
	ID        string
	UserID    string
	ServiceID string
	Date      time.Time
	Time      string
	PartySize int
	Status    Status
	Notes     string
	CreatedAt time.Time
}

// Hydrated is a reservation with user, service and vendor display fields.
type Hydrated struct {
	Reservation
	UserName    string
	UserEmail   string
	ServiceName string
	VendorID    string
	VendorName  string
}

// Stats summarizes reservations per state.
type Stats struct {
	Total     int
	Pending   int
	Confirmed int
	Cancelled int
}

// Repository defines persistence operations for reservations. Create and
// Update must map storage-level uniqueness violations to the same conflict
// errors the pre-insert checks raise, so the race between check and write
// stays closed.
type Repository interface {
	Create(ctx context.Context, r *Reservation) error
	GetByID(ctx context.Context, id string) (*Reservation, error)
	Update(ctx context.Context, r *Reservation) error
	UpdateStatus(ctx context.Context, id string, status Status) error
	Delete(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string) ([]Reservation, error)
	ListByService(ctx context.Context, serviceID string) ([]Reservation, error)
	ListByVendor(ctx context.Context, vendorID string) ([]Reservation, error)
	ListByStatus(ctx context.Context, status Status) ([]Reservation, error)
	// ExistsForUserOnDate reports whether the user holds a non-cancelled
	// reservation on the date, ignoring the reservation with excludeID.
	ExistsForUserOnDate(ctx context.Context, userID string, date time.Time, excludeID string) (bool, error)
	// SlotTaken reports whether a non-cancelled reservation occupies the
	// (service, date, time) slot, ignoring the reservation with excludeID.
	SlotTaken(ctx context.Context, serviceID string, date time.Time, at string, excludeID string) (bool, error)
	Stats(ctx context.Context) (*Stats, error)
}
