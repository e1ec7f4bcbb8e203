package order

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arroyoseco/marketplace/internal/domain/catalog"
	"github.com/arroyoseco/marketplace/internal/domain/identity"
)

// --- Mock implementations ---

type mockOrderRepo struct {
	orders map[string]*Order
	lines  map[string][]Line
	// lastCapture records the capture passed to the most recent Create.
	lastCapture *Capture
	createErr   error
}

func newOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{
		orders: make(map[string]*Order),
		lines:  make(map[string][]Line),
	}
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order, lines []Line, capture *Capture) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.orders[o.ID] = o
	m.lines[o.ID] = lines
	m.lastCapture = capture
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*Order, []Line, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, nil, ErrNotFound
	}
	return o, m.lines[id], nil
}

func (m *mockOrderRepo) ListByUser(_ context.Context, userID string) ([]Order, error) {
	var out []Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) ListByVendor(_ context.Context, _ string) ([]Order, error) {
	return nil, nil
}

func (m *mockOrderRepo) ListByStatus(_ context.Context, status Status) ([]Order, error) {
	var out []Order
	for _, o := range m.orders {
		if o.Status == status {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id string, status Status) error {
	o, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	o.Status = status
	return nil
}

func (m *mockOrderRepo) Delete(_ context.Context, id string) error {
	o, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	if o.Status != StatusPending {
		return ErrNotPending
	}
	delete(m.orders, id)
	delete(m.lines, id)
	return nil
}

func (m *mockOrderRepo) Stats(_ context.Context) (*Stats, error) {
	return &Stats{Total: len(m.orders)}, nil
}

type mockUsers struct {
	ids map[string]bool
}

func (m *mockUsers) FindUserByID(_ context.Context, id string) (*identity.User, error) {
	if !m.ids[id] {
		return nil, identity.ErrNotFound
	}
	return &identity.User{ID: id, Name: "Test User", Active: true}, nil
}

type mockProducts struct {
	byID map[string]*catalog.Product
}

func (m *mockProducts) FindProductByID(_ context.Context, id string) (*catalog.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return p, nil
}

func (m *mockProducts) CheckStock(_ context.Context, id string, qty int) (bool, error) {
	p, ok := m.byID[id]
	if !ok {
		return false, catalog.ErrProductNotFound
	}
	return p.Stock >= qty, nil
}

type mockVendors struct{}

func (m *mockVendors) FindVendorByID(_ context.Context, id string) (*catalog.Vendor, error) {
	return &catalog.Vendor{ID: id, BusinessName: "Acme Foods"}, nil
}

// --- Helpers ---

func newService(repo *mockOrderRepo, products ...catalog.Product) *Service {
	byID := make(map[string]*catalog.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return NewService(repo,
		&mockUsers{ids: map[string]bool{"u1": true}},
		&mockProducts{byID: byID},
		&mockVendors{},
	)
}

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// --- Tests ---

func TestCreate_EmptyLines(t *testing.T) {
	svc := newService(newOrderRepo())

	_, err := svc.Create(context.Background(), CreateRequest{UserID: "u1"})
	require.ErrorIs(t, err, ErrEmptyLines)
}

func TestCreate_UnknownUser(t *testing.T) {
	svc := newService(newOrderRepo(), catalog.Product{ID: "p1", Price: price("10.00")})

	_, err := svc.Create(context.Background(), CreateRequest{
		UserID:        "stranger",
		Lines:         []LineInput{{ProductID: "p1", Quantity: 1, UnitPrice: price("10.00")}},
		DeclaredTotal: price("10.00"),
	})
	require.ErrorIs(t, err, identity.ErrNotFound)
}

func TestCreate_InvalidQuantity(t *testing.T) {
	svc := newService(newOrderRepo(), catalog.Product{ID: "p1", Price: price("10.00")})

	_, err := svc.Create(context.Background(), CreateRequest{
		UserID:        "u1",
		Lines:         []LineInput{{ProductID: "p1", Quantity: 0, UnitPrice: price("10.00")}},
		DeclaredTotal: price("0.00"),
	})

	var qtyErr *InvalidQuantityError
	require.ErrorAs(t, err, &qtyErr)
	assert.Equal(t, "p1", qtyErr.ProductID)
}

func TestCreate_UnknownProduct(t *testing.T) {
	svc := newService(newOrderRepo())

	_, err := svc.Create(context.Background(), CreateRequest{
		UserID:        "u1",
		Lines:         []LineInput{{ProductID: "missing", Quantity: 1, UnitPrice: price("10.00")}},
		DeclaredTotal: price("10.00"),
	})
	require.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func TestCreate_TotalWithinTolerance(t *testing.T) {
	repo := newOrderRepo()
	svc := newService(repo, catalog.Product{ID: "p1", VendorID: "v1", Price: price("33.33")})

	// Computed total is 99.99; a declared 100.00 is within the 0.01 slack.
	h, err := svc.Create(context.Background(), CreateRequest{
		UserID:        "u1",
		Lines:         []LineInput{{ProductID: "p1", Quantity: 3, UnitPrice: price("33.33")}},
		DeclaredTotal: price("100.00"),
	})
	require.NoError(t, err)

	assert.True(t, h.Total.Equal(price("100.00")), "total = %s", h.Total)
	assert.Equal(t, StatusPending, h.Status)
	require.Len(t, h.Lines, 1)
	assert.Equal(t, "p1", h.Lines[0].ProductID)
}

func TestCreate_TotalMismatch(t *testing.T) {
	svc := newService(newOrderRepo(), catalog.Product{ID: "p1", Price: price("10.00")})

	_, err := svc.Create(context.Background(), CreateRequest{
		UserID:        "u1",
		Lines:         []LineInput{{ProductID: "p1", Quantity: 2, UnitPrice: price("10.00")}},
		DeclaredTotal: price("20.02"),
	})

	var mismatch *TotalMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.True(t, mismatch.Declared.Equal(price("20.02")))
	assert.True(t, mismatch.Computed.Equal(price("20.00")))
}

func TestCreate_InvalidStatus(t *testing.T) {
	svc := newService(newOrderRepo(), catalog.Product{ID: "p1", Price: price("10.00")})

	_, err := svc.Create(context.Background(), CreateRequest{
		UserID:        "u1",
		Lines:         []LineInput{{ProductID: "p1", Quantity: 1, UnitPrice: price("10.00")}},
		DeclaredTotal: price("10.00"),
		Status:        Status("refunded"),
	})
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestCreate_PassesCaptureToRepo(t *testing.T) {
	repo := newOrderRepo()
	svc := newService(repo, catalog.Product{ID: "p1", Price: price("10.00")})

	capture := &Capture{
		GatewayOrderID: "GW-1",
		TransactionID:  "TX-1",
		Amount:         price("10.00"),
		Currency:       "USD",
		Status:         "COMPLETED",
	}
	_, err := svc.Create(context.Background(), CreateRequest{
		UserID:        "u1",
		Lines:         []LineInput{{ProductID: "p1", Quantity: 1, UnitPrice: price("10.00")}},
		DeclaredTotal: price("10.00"),
		Status:        StatusPaid,
		PaymentMethod: "paypal",
		Capture:       capture,
	})
	require.NoError(t, err)
	require.NotNil(t, repo.lastCapture)
	assert.Equal(t, "GW-1", repo.lastCapture.GatewayOrderID)
}

func TestUpdateStatus_InvalidStatus(t *testing.T) {
	svc := newService(newOrderRepo())

	err := svc.UpdateStatus(context.Background(), "o1", Status("refunded"))
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestUpdateStatus_AnyTransitionAllowed(t *testing.T) {
	repo := newOrderRepo()
	repo.orders["o1"] = &Order{ID: "o1", UserID: "u1", Status: StatusCompleted}
	svc := newService(repo)

	require.NoError(t, svc.UpdateStatus(context.Background(), "o1", StatusPending))
	assert.Equal(t, StatusPending, repo.orders["o1"].Status)
}

func TestDelete_OnlyPending(t *testing.T) {
	repo := newOrderRepo()
	repo.orders["o1"] = &Order{ID: "o1", Status: StatusPaid}
	svc := newService(repo)

	require.ErrorIs(t, svc.Delete(context.Background(), "o1"), ErrNotPending)

	repo.orders["o1"].Status = StatusPending
	require.NoError(t, svc.Delete(context.Background(), "o1"))
	_, _, err := repo.GetByID(context.Background(), "o1")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListByStatus_InvalidStatus(t *testing.T) {
	svc := newService(newOrderRepo())

	_, err := svc.ListByStatus(context.Background(), Status("refunded"))
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestWithinTolerance(t *testing.T) {
	assert.True(t, WithinTolerance(price("10.00"), price("10.01")))
	assert.True(t, WithinTolerance(price("10.01"), price("10.00")))
	assert.False(t, WithinTolerance(price("10.00"), price("10.02")))
}
