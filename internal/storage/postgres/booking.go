package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arroyoseco/marketplace/internal/domain/booking"
)

var _ booking.Repository = (*ReservationRepository)(nil)

// ReservationRepository implements booking.Repository backed by
// PostgreSQL. The partial unique indexes reservations_user_date_key and
// reservations_slot_key are the authoritative enforcement of the two
// booking invariants; violations are mapped back to the domain conflict
// errors here.
type ReservationRepository struct {
	pool *pgxpool.Pool
}

// NewReservationRepository returns a ReservationRepository that uses the
// given pool.
func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

func (r *ReservationRepository) Create(ctx context.Context, res *booking.Reservation) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO reservations (id, user_id, service_id, date, time, party_size, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, res.ID, res.UserID, res.ServiceID, res.Date, res.Time, res.PartySize, res.Status, res.Notes)
	if err != nil {
		return mapConflict(err, "insert reservation")
	}
	return nil
}

func (r *ReservationRepository) GetByID(ctx context.Context, id string) (*booking.Reservation, error) {
	var res booking.Reservation
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, service_id, date, time, party_size, status, notes, created_at
		FROM reservations WHERE id = $1
	`, id).Scan(&res.ID, &res.UserID, &res.ServiceID, &res.Date, &res.Time,
		&res.PartySize, &res.Status, &res.Notes, &res.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, booking.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get reservation %s", id)
	}
	return &res, nil
}

func (r *ReservationRepository) Update(ctx context.Context, res *booking.Reservation) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE reservations
		SET service_id = $2, date = $3, time = $4, party_size = $5, status = $6, notes = $7
		WHERE id = $1
	`, res.ID, res.ServiceID, res.Date, res.Time, res.PartySize, res.Status, res.Notes)
	if err != nil {
		return mapConflict(err, "update reservation")
	}
	if tag.RowsAffected() == 0 {
		return booking.ErrNotFound
	}
	return nil
}

func (r *ReservationRepository) UpdateStatus(ctx context.Context, id string, status booking.Status) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE reservations SET status = $2 WHERE id = $1
	`, id, status)
	if err != nil {
		return mapConflict(err, "update reservation status")
	}
	if tag.RowsAffected() == 0 {
		return booking.ErrNotFound
	}
	return nil
}

func (r *ReservationRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM reservations WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "delete reservation")
	}
	if tag.RowsAffected() == 0 {
		return booking.ErrNotFound
	}
	return nil
}

func (r *ReservationRepository) ListByUser(ctx context.Context, userID string) ([]booking.Reservation, error) {
	return r.list(ctx, `
		SELECT id, user_id, service_id, date, time, party_size, status, notes, created_at
		FROM reservations WHERE user_id = $1
		ORDER BY date DESC, time DESC
	`, userID)
}

func (r *ReservationRepository) ListByService(ctx context.Context, serviceID string) ([]booking.Reservation, error) {
	return r.list(ctx, `
		SELECT id, user_id, service_id, date, time, party_size, status, notes, created_at
		FROM reservations WHERE service_id = $1
		ORDER BY date DESC, time DESC
	`, serviceID)
}

func (r *ReservationRepository) ListByVendor(ctx context.Context, vendorID string) ([]booking.Reservation, error) {
	return r.list(ctx, `
		SELECT res.id, res.user_id, res.service_id, res.date, res.time,
		       res.party_size, res.status, res.notes, res.created_at
		FROM reservations res
		JOIN services s ON s.id = res.service_id
		WHERE s.vendor_id = $1
		ORDER BY res.date DESC, res.time DESC
	`, vendorID)
}

func (r *ReservationRepository) ListByStatus(ctx context.Context, status booking.Status) ([]booking.Reservation, error) {
	return r.list(ctx, `
		SELECT id, user_id, service_id, date, time, party_size, status, notes, created_at
		FROM reservations WHERE status = $1
		ORDER BY date DESC, time DESC
	`, status)
}

func (r *ReservationRepository) list(ctx context.Context, query string, arg any) ([]booking.Reservation, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, errors.Wrap(err, "list reservations")
	}
	defer rows.Close()

	var out []booking.Reservation
	for rows.Next() {
		var res booking.Reservation
		if err := rows.Scan(&res.ID, &res.UserID, &res.ServiceID, &res.Date, &res.Time,
			&res.PartySize, &res.Status, &res.Notes, &res.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan reservation")
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

func (r *ReservationRepository) ExistsForUserOnDate(ctx context.Context, userID string, date time.Time, excludeID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM reservations
			WHERE user_id = $1 AND date = $2 AND status <> 'cancelled' AND id <> $3
		)
	`, userID, date, excludeID).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "check user date")
	}
	return exists, nil
}

func (r *ReservationRepository) SlotTaken(ctx context.Context, serviceID string, date time.Time, at string, excludeID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM reservations
			WHERE service_id = $1 AND date = $2 AND time = $3
			AND status <> 'cancelled' AND id <> $4
		)
	`, serviceID, date, at, excludeID).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "check slot")
	}
	return exists, nil
}

func (r *ReservationRepository) Stats(ctx context.Context) (*booking.Stats, error) {
	var s booking.Stats
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'pending'),
		       COUNT(*) FILTER (WHERE status = 'confirmed'),
		       COUNT(*) FILTER (WHERE status = 'cancelled')
		FROM reservations
	`).Scan(&s.Total, &s.Pending, &s.Confirmed, &s.Cancelled)
	if err != nil {
		return nil, errors.Wrap(err, "reservation stats")
	}
	return &s, nil
}

// mapConflict translates unique-index violations on the booking invariants
// to the domain conflict errors, so a write that loses the race reports
// the same failure as one caught by the pre-insert check.
func mapConflict(err error, msg string) error {
	switch {
	case uniqueViolation(err, "reservations_user_date_key"):
		return booking.ErrUserDateConflict
	case uniqueViolation(err, "reservations_slot_key"):
		return booking.ErrSlotConflict
	}
	return errors.Wrap(err, msg)
}
