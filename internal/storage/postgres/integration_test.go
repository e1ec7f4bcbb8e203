//go:build integration

package postgres

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/arroyoseco/marketplace/internal/domain/booking"
	"github.com/arroyoseco/marketplace/internal/domain/cart"
	"github.com/arroyoseco/marketplace/internal/domain/order"
	"github.com/arroyoseco/marketplace/internal/domain/payment"
)

var pool *pgxpool.Pool

func TestMain(m *testing.M) {
	os.Exit(testMain(m))
}

func testMain(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("marketplace_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	if err != nil {
		log.Fatalf("start postgres container: %v", err)
	}
	defer func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			log.Printf("terminate container: %v", err)
		}
	}()

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Fatalf("connection string: %v", err)
	}

	pool, err = NewPool(ctx, dsn)
	if err != nil {
		log.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	if err := RunMigrations(ctx, pool); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	if err := seedFixtures(ctx); err != nil {
		log.Fatalf("seed fixtures: %v", err)
	}

	return m.Run()
}

func seedFixtures(ctx context.Context) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO users (id, name, email) VALUES
			('u1', 'Ana', 'ana@example.com'),
			('u2', 'Bruno', 'bruno@example.com');
		INSERT INTO vendors (id, business_name, address) VALUES
			('v1', 'Acme Foods', '1 Main St');
		INSERT INTO products (id, vendor_id, name, price, stock, available) VALUES
			('p1', 'v1', 'Empanadas', 12.50, 20, TRUE),
			('p2', 'v1', 'Milanesa', 18.00, 10, TRUE);
		INSERT INTO services (id, vendor_id, name, capacity, status) VALUES
			('s1', 'v1', 'Dinner Table', 8, 'active');
	`)
	return err
}

func testReservation(userID, serviceID string, date time.Time, at string) *booking.Reservation {
	return &booking.Reservation{
		ID:        uuid.New().String(),
		UserID:    userID,
		ServiceID: serviceID,
		Date:      date,
		Time:      at,
		PartySize: 2,
		Status:    booking.StatusPending,
	}
}

func TestReservationConstraints(t *testing.T) {
	ctx := context.Background()
	repo := NewReservationRepository(pool)
	date := time.Date(2030, time.March, 10, 0, 0, 0, 0, time.UTC)

	first := testReservation("u1", "s1", date, "19:00")
	require.NoError(t, repo.Create(ctx, first))

	// Same slot, different user: the partial unique index rejects it even
	// though no service-level check ran.
	err := repo.Create(ctx, testReservation("u2", "s1", date, "19:00"))
	require.ErrorIs(t, err, booking.ErrSlotConflict)

	// Same user, same date, different slot.
	err = repo.Create(ctx, testReservation("u1", "s1", date, "21:00"))
	require.ErrorIs(t, err, booking.ErrUserDateConflict)

	// Cancelling frees both the slot and the user's day.
	require.NoError(t, repo.UpdateStatus(ctx, first.ID, booking.StatusCancelled))

	second := testReservation("u2", "s1", date, "19:00")
	require.NoError(t, repo.Create(ctx, second))

	taken, err := repo.ExistsForUserOnDate(ctx, "u1", date, "")
	require.NoError(t, err)
	assert.False(t, taken, "cancelled reservation must not block the user")

	taken, err = repo.SlotTaken(ctx, "s1", date, "19:00", second.ID)
	require.NoError(t, err)
	assert.False(t, taken, "exclusion by id must ignore the holder itself")
}

func TestCartUpsertIncrements(t *testing.T) {
	ctx := context.Background()
	repo := NewCartRepository(pool)

	id1, err := repo.Upsert(ctx, cart.Line{
		ID: uuid.New().String(), UserID: "u1", ProductID: "p1", Quantity: 2,
	})
	require.NoError(t, err)

	id2, err := repo.Upsert(ctx, cart.Line{
		ID: uuid.New().String(), UserID: "u1", ProductID: "p1", Quantity: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	lines, err := repo.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)

	removed, err := repo.Clear(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestOrderCreateIsAtomic(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(pool)

	o := &order.Order{
		ID:     uuid.New().String(),
		UserID: "u1",
		Total:  decimal.RequireFromString("30.50"),
		Status: order.StatusPending,
	}
	lines := []order.Line{
		{ID: uuid.New().String(), OrderID: o.ID, ProductID: "p1", Quantity: 1, UnitPrice: decimal.RequireFromString("12.50")},
		// Unknown product violates the FK; the whole transaction must roll back.
		{ID: uuid.New().String(), OrderID: o.ID, ProductID: "ghost", Quantity: 1, UnitPrice: decimal.RequireFromString("18.00")},
	}

	err := repo.Create(ctx, o, lines, nil)
	require.Error(t, err)

	_, _, err = repo.GetByID(ctx, o.ID)
	require.ErrorIs(t, err, order.ErrNotFound, "no partial order may survive")
}

func TestOrderDeleteOnlyPending(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(pool)

	o := &order.Order{
		ID:     uuid.New().String(),
		UserID: "u1",
		Total:  decimal.RequireFromString("12.50"),
		Status: order.StatusPending,
	}
	lines := []order.Line{
		{ID: uuid.New().String(), OrderID: o.ID, ProductID: "p1", Quantity: 1, UnitPrice: decimal.RequireFromString("12.50")},
	}
	require.NoError(t, repo.Create(ctx, o, lines, nil))

	require.NoError(t, repo.UpdateStatus(ctx, o.ID, order.StatusPaid))
	require.ErrorIs(t, repo.Delete(ctx, o.ID), order.ErrNotPending)

	require.NoError(t, repo.UpdateStatus(ctx, o.ID, order.StatusPending))
	require.NoError(t, repo.Delete(ctx, o.ID))

	_, _, err := repo.GetByID(ctx, o.ID)
	require.ErrorIs(t, err, order.ErrNotFound)
}

func TestDuplicateCaptureRejected(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(pool)
	captures := NewCaptureRepository(pool)

	gatewayOrderID := "GW-" + uuid.New().String()
	capture := &order.Capture{
		GatewayOrderID: gatewayOrderID,
		TransactionID:  "TX-1",
		Amount:         decimal.RequireFromString("12.50"),
		Currency:       "USD",
		Status:         "COMPLETED",
	}

	makeOrder := func() (*order.Order, []order.Line) {
		o := &order.Order{
			ID:     uuid.New().String(),
			UserID: "u1",
			Total:  decimal.RequireFromString("12.50"),
			Status: order.StatusPaid,
		}
		return o, []order.Line{
			{ID: uuid.New().String(), OrderID: o.ID, ProductID: "p1", Quantity: 1, UnitPrice: decimal.RequireFromString("12.50")},
		}
	}

	o1, lines1 := makeOrder()
	require.NoError(t, repo.Create(ctx, o1, lines1, capture))

	seen, err := captures.Seen(ctx, gatewayOrderID)
	require.NoError(t, err)
	assert.True(t, seen)

	// Replaying the same gateway order rolls back the second order entirely.
	o2, lines2 := makeOrder()
	err = repo.Create(ctx, o2, lines2, capture)
	require.ErrorIs(t, err, payment.ErrDuplicateCapture)

	_, _, err = repo.GetByID(ctx, o2.ID)
	require.ErrorIs(t, err, order.ErrNotFound)
}
