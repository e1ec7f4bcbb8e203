package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arroyoseco/marketplace/internal/domain/cart"
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Upsert inserts the line or increments the user's existing line for the
// same product. The single statement is what makes the add path safe under
// concurrent requests for the same (user, product).
func (r *CartRepository) Upsert(ctx context.Context, line cart.Line) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx, `
		INSERT INTO cart_items (id, user_id, product_id, quantity)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		RETURNING id
	`, line.ID, line.UserID, line.ProductID, line.Quantity).Scan(&id)
	if err != nil {
		return "", errors.Wrap(err, "upsert cart line")
	}
	return id, nil
}

func (r *CartRepository) UpdateQuantity(ctx context.Context, lineID string, qty int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE cart_items SET quantity = $2 WHERE id = $1
	`, lineID, qty)
	if err != nil {
		return errors.Wrap(err, "update cart line quantity")
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrLineNotFound
	}
	return nil
}

func (r *CartRepository) Remove(ctx context.Context, lineID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE id = $1`, lineID)
	if err != nil {
		return errors.Wrap(err, "remove cart line")
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrLineNotFound
	}
	return nil
}

func (r *CartRepository) Clear(ctx context.Context, userID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	if err != nil {
		return 0, errors.Wrap(err, "clear cart")
	}
	return tag.RowsAffected(), nil
}

func (r *CartRepository) ListByUser(ctx context.Context, userID string) ([]cart.Line, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, product_id, quantity, added_at
		FROM cart_items
		WHERE user_id = $1
		ORDER BY added_at DESC
	`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list cart lines")
	}
	defer rows.Close()

	var lines []cart.Line
	for rows.Next() {
		var l cart.Line
		if err := rows.Scan(&l.ID, &l.UserID, &l.ProductID, &l.Quantity, &l.AddedAt); err != nil {
			return nil, errors.Wrap(err, "scan cart line")
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
