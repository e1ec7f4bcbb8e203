package booking

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/arroyoseco/marketplace/internal/domain/catalog"
	"github.com/arroyoseco/marketplace/internal/domain/identity"
)

// CreateRequest holds the input for creating a reservation.
type CreateRequest struct {
	UserID    string
	ServiceID string
	Date      time.Time
	Time      string
	PartySize int
	// Status defaults to pending.
	Status Status
	Notes  string
}

// UpdateRequest holds a partial reservation update. Nil fields are left
// unchanged.
type UpdateRequest struct {
	ServiceID *string
	Date      *time.Time
	Time      *string
	PartySize *int
	Status    *Status
	Notes     *string
}

// Service enforces the booking invariants: one active reservation per user
// per day, one active reservation per slot, capacity and bookability.
type Service struct {
	reservations Repository
	users        identity.Reader
	services     catalog.ServiceReader
	vendors      catalog.VendorReader
	now          func() time.Time
}

// NewService creates a booking Service with the required dependencies.
func NewService(
	reservations Repository,
	users identity.Reader,
	services catalog.ServiceReader,
	vendors catalog.VendorReader,
) *Service {
	return &Service{
		reservations: reservations,
		users:        users,
		services:     services,
		vendors:      vendors,
		now:          time.Now,
	}
}

// Create validates the request against the service's capacity and status
// and both uniqueness invariants, then inserts the reservation. The
// pre-insert checks give precise errors; the partial unique indexes close
// the race between concurrent creates, and the repository maps the
// resulting violations to the same conflict errors.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Hydrated, error) {
	if req.PartySize < 1 {
		return nil, ErrInvalidPartySize
	}
	if !validClock(req.Time) {
		return nil, ErrInvalidTime
	}

	status := req.Status
	if status == "" {
		status = StatusPending
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	if _, err := s.users.FindUserByID(ctx, req.UserID); err != nil {
		return nil, errors.Wrapf(err, "find user %s", req.UserID)
	}

	svc, err := s.services.FindServiceByID(ctx, req.ServiceID)
	if err != nil {
		return nil, errors.Wrapf(err, "find service %s", req.ServiceID)
	}
	if !svc.Bookable() {
		return nil, ErrServiceUnavailable
	}
	if svc.Capacity > 0 && req.PartySize > svc.Capacity {
		return nil, &CapacityError{Capacity: svc.Capacity}
	}

	date := dateOnly(req.Date)
	if date.Before(dateOnly(s.now())) {
		return nil, ErrPastDate
	}

	taken, err := s.reservations.ExistsForUserOnDate(ctx, req.UserID, date, "")
	if err != nil {
		return nil, errors.Wrap(err, "check user date")
	}
	if taken {
		return nil, ErrUserDateConflict
	}

	taken, err = s.reservations.SlotTaken(ctx, req.ServiceID, date, req.Time, "")
	if err != nil {
		return nil, errors.Wrap(err, "check slot")
	}
	if taken {
		return nil, ErrSlotConflict
	}

	r := &Reservation{
		ID:        uuid.New().String(),
		UserID:    req.UserID,
		ServiceID: req.ServiceID,
		Date:      date,
		Time:      req.Time,
		PartySize: req.PartySize,
		Status:    status,
		Notes:     req.Notes,
	}
	if err := s.reservations.Create(ctx, r); err != nil {
		return nil, errors.Wrap(err, "create reservation")
	}

	return s.Get(ctx, r.ID)
}

// Update applies a partial update. The user/date invariant is re-checked
// only when the date changes, and the slot invariant when date, time or
// service changes; both comparisons exclude the reservation's own id so it
// never conflicts with itself.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*Hydrated, error) {
	r, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Status != nil && !req.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if req.PartySize != nil && *req.PartySize < 1 {
		return nil, ErrInvalidPartySize
	}
	if req.Time != nil && !validClock(*req.Time) {
		return nil, ErrInvalidTime
	}

	newServiceID := r.ServiceID
	if req.ServiceID != nil {
		newServiceID = *req.ServiceID
	}
	newPartySize := r.PartySize
	if req.PartySize != nil {
		newPartySize = *req.PartySize
	}

	// Re-validate the target service whenever it changes or the party
	// grows, so a capacity-bearing service is never overbooked by update.
	if req.ServiceID != nil || req.PartySize != nil {
		svc, err := s.services.FindServiceByID(ctx, newServiceID)
		if err != nil {
			return nil, errors.Wrapf(err, "find service %s", newServiceID)
		}
		if req.ServiceID != nil && !svc.Bookable() {
			return nil, ErrServiceUnavailable
		}
		if svc.Capacity > 0 && newPartySize > svc.Capacity {
			return nil, &CapacityError{Capacity: svc.Capacity}
		}
	}

	newDate := r.Date
	if req.Date != nil {
		newDate = dateOnly(*req.Date)
		if newDate.Before(dateOnly(s.now())) {
			return nil, ErrPastDate
		}
	}
	newTime := r.Time
	if req.Time != nil {
		newTime = *req.Time
	}

	dateChanged := !newDate.Equal(dateOnly(r.Date))
	if dateChanged {
		taken, err := s.reservations.ExistsForUserOnDate(ctx, r.UserID, newDate, r.ID)
		if err != nil {
			return nil, errors.Wrap(err, "check user date")
		}
		if taken {
			return nil, ErrUserDateConflict
		}
	}

	if dateChanged || newTime != r.Time || newServiceID != r.ServiceID {
		taken, err := s.reservations.SlotTaken(ctx, newServiceID, newDate, newTime, r.ID)
		if err != nil {
			return nil, errors.Wrap(err, "check slot")
		}
		if taken {
			return nil, ErrSlotConflict
		}
	}

	r.ServiceID = newServiceID
	r.Date = newDate
	r.Time = newTime
	r.PartySize = newPartySize
	if req.Status != nil {
		r.Status = *req.Status
	}
	if req.Notes != nil {
		r.Notes = *req.Notes
	}

	if err := s.reservations.Update(ctx, r); err != nil {
		return nil, errors.Wrap(err, "update reservation")
	}
	return s.Get(ctx, r.ID)
}

// UpdateStatus sets just the reservation state.
func (s *Service) UpdateStatus(ctx context.Context, id string, status Status) (*Hydrated, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	if err := s.reservations.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}

// Delete removes a reservation.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.reservations.Delete(ctx, id)
}

// Get returns the reservation hydrated with user, service and vendor
// display fields where they can still be resolved.
func (s *Service) Get(ctx context.Context, id string) (*Hydrated, error) {
	r, err := s.reservations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	h := &Hydrated{Reservation: *r}
	if u, err := s.users.FindUserByID(ctx, r.UserID); err == nil {
		h.UserName = u.Name
		h.UserEmail = u.Email
	}
	if svc, err := s.services.FindServiceByID(ctx, r.ServiceID); err == nil {
		h.ServiceName = svc.Name
		h.VendorID = svc.VendorID
		if v, err := s.vendors.FindVendorByID(ctx, svc.VendorID); err == nil {
			h.VendorName = v.BusinessName
		}
	}
	return h, nil
}

// ListByUser returns the user's reservations, newest slot first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Reservation, error) {
	return s.reservations.ListByUser(ctx, userID)
}

// ListByService returns all reservations for a service.
func (s *Service) ListByService(ctx context.Context, serviceID string) ([]Reservation, error) {
	return s.reservations.ListByService(ctx, serviceID)
}

// ListByVendor returns reservations across every service the vendor owns.
func (s *Service) ListByVendor(ctx context.Context, vendorID string) ([]Reservation, error) {
	return s.reservations.ListByVendor(ctx, vendorID)
}

// ListByStatus returns reservations in the given state.
func (s *Service) ListByStatus(ctx context.Context, status Status) ([]Reservation, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	return s.reservations.ListByStatus(ctx, status)
}

// Stats summarizes reservations per state.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.reservations.Stats(ctx)
}

// CheckAvailability reports whether the (service, date, time) slot is free
// of non-cancelled reservations. Callers use it as a pre-flight check;
// Create independently re-verifies.
func (s *Service) CheckAvailability(ctx context.Context, serviceID string, date time.Time, at string) (bool, error) {
	taken, err := s.reservations.SlotTaken(ctx, serviceID, dateOnly(date), at, "")
	if err != nil {
		return false, errors.Wrap(err, "check slot")
	}
	return !taken, nil
}

// dateOnly strips the time component, leaving a calendar date.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// validClock reports whether s is a wall-clock time in HH:MM form.
func validClock(s string) bool {
	_, err := time.Parse("15:04", s)
	return err == nil
}
