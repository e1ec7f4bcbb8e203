package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arroyoseco/marketplace/internal/domain/payment"
)

var _ payment.CaptureStore = (*CaptureRepository)(nil)

// CaptureRepository answers duplicate-capture lookups against the
// payment_captures table. Writes happen inside OrderRepository.Create so
// the capture record and the order it produced commit together.
type CaptureRepository struct {
	pool *pgxpool.Pool
}

// NewCaptureRepository returns a CaptureRepository that uses the given pool.
func NewCaptureRepository(pool *pgxpool.Pool) *CaptureRepository {
	return &CaptureRepository{pool: pool}
}

func (r *CaptureRepository) Seen(ctx context.Context, gatewayOrderID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM payment_captures WHERE gateway_order_id = $1)
	`, gatewayOrderID).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "check capture")
	}
	return exists, nil
}
