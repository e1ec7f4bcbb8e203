package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arroyoseco/marketplace/internal/domain/order"
	"github.com/arroyoseco/marketplace/internal/domain/payment"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create writes the order, all its lines and, when present, the capture
// record in a single transaction. A duplicate gateway order id violates
// the payment_captures primary key and nothing persists.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order, lines []order.Line, capture *order.Capture) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		INSERT INTO orders (id, user_id, total, status, payment_method, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	`, o.ID, o.UserID, o.Total, o.Status, o.PaymentMethod); err != nil {
		return errors.Wrap(err, "insert order")
	}

	for _, l := range lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4, $5)
		`, l.ID, l.OrderID, l.ProductID, l.Quantity, l.UnitPrice); err != nil {
			return errors.Wrapf(err, "insert order line for product %s", l.ProductID)
		}
	}

	if capture != nil {
		if _, err := tx.Exec(ctx, `
			INSERT INTO payment_captures (gateway_order_id, transaction_id, order_id, amount, currency, status)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, capture.GatewayOrderID, capture.TransactionID, o.ID, capture.Amount, capture.Currency, capture.Status); err != nil {
			if uniqueViolation(err, "") {
				return payment.ErrDuplicateCapture
			}
			return errors.Wrap(err, "insert capture record")
		}
	}

	return tx.Commit(ctx)
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, []order.Line, error) {
	var o order.Order
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, total, status, payment_method, created_at, updated_at
		FROM orders WHERE id = $1
	`, id).Scan(&o.ID, &o.UserID, &o.Total, &o.Status, &o.PaymentMethod, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, order.ErrNotFound
		}
		return nil, nil, errors.Wrapf(err, "get order %s", id)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, order_id, product_id, quantity, unit_price
		FROM order_items WHERE order_id = $1
	`, id)
	if err != nil {
		return nil, nil, errors.Wrap(err, "get order lines")
	}
	defer rows.Close()

	var lines []order.Line
	for rows.Next() {
		var l order.Line
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Quantity, &l.UnitPrice); err != nil {
			return nil, nil, errors.Wrap(err, "scan order line")
		}
		lines = append(lines, l)
	}
	return &o, lines, rows.Err()
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	return r.list(ctx, `
		SELECT id, user_id, total, status, payment_method, created_at, updated_at
		FROM orders WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
}

func (r *OrderRepository) ListByVendor(ctx context.Context, vendorID string) ([]order.Order, error) {
	return r.list(ctx, `
		SELECT DISTINCT o.id, o.user_id, o.total, o.status, o.payment_method, o.created_at, o.updated_at
		FROM orders o
		JOIN order_items oi ON oi.order_id = o.id
		JOIN products p ON p.id = oi.product_id
		WHERE p.vendor_id = $1
		ORDER BY o.created_at DESC
	`, vendorID)
}

func (r *OrderRepository) ListByStatus(ctx context.Context, status order.Status) ([]order.Order, error) {
	return r.list(ctx, `
		SELECT id, user_id, total, status, payment_method, created_at, updated_at
		FROM orders WHERE status = $1
		ORDER BY created_at DESC
	`, status)
}

func (r *OrderRepository) list(ctx context.Context, query string, arg any) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	defer rows.Close()

	var out []order.Order
	for rows.Next() {
		var o order.Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.Total, &o.Status, &o.PaymentMethod, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "scan order")
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status order.Status) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1
	`, id, status)
	if err != nil {
		return errors.Wrap(err, "update order status")
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// Delete verifies the order is still pending and removes it together with
// its lines in one transaction. The row is locked for the check so a
// concurrent status update cannot slip between verify and delete.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var status order.Status
	err = tx.QueryRow(ctx, `
		SELECT status FROM orders WHERE id = $1 FOR UPDATE
	`, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return order.ErrNotFound
		}
		return errors.Wrapf(err, "lock order %s", id)
	}
	if status != order.StatusPending {
		return order.ErrNotPending
	}

	if _, err := tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, id); err != nil {
		return errors.Wrap(err, "delete order lines")
	}
	if _, err := tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id); err != nil {
		return errors.Wrap(err, "delete order")
	}
	return tx.Commit(ctx)
}

func (r *OrderRepository) Stats(ctx context.Context) (*order.Stats, error) {
	var s order.Stats
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'pending'),
		       COUNT(*) FILTER (WHERE status = 'paid'),
		       COUNT(*) FILTER (WHERE status = 'shipped'),
		       COUNT(*) FILTER (WHERE status = 'completed'),
		       COALESCE(SUM(total), 0)
		FROM orders
	`).Scan(&s.Total, &s.Pending, &s.Paid, &s.Shipped, &s.Completed, &s.TotalRevenue)
	if err != nil {
		return nil, errors.Wrap(err, "order stats")
	}
	return &s, nil
}
