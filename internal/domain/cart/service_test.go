package cart

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arroyoseco/marketplace/internal/domain/catalog"
)

// --- Mock implementations ---

type mockLineRepo struct {
	lines map[string]*Line // by id
	err   error
}

func newLineRepo() *mockLineRepo {
	return &mockLineRepo{lines: make(map[string]*Line)}
}

func (m *mockLineRepo) Upsert(_ context.Context, line Line) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	for _, l := range m.lines {
		if l.UserID == line.UserID && l.ProductID == line.ProductID {
			l.Quantity += line.Quantity
			return l.ID, nil
		}
	}
	m.lines[line.ID] = &line
	return line.ID, nil
}

func (m *mockLineRepo) UpdateQuantity(_ context.Context, lineID string, qty int) error {
	l, ok := m.lines[lineID]
	if !ok {
		return ErrLineNotFound
	}
	l.Quantity = qty
	return nil
}

func (m *mockLineRepo) Remove(_ context.Context, lineID string) error {
	if _, ok := m.lines[lineID]; !ok {
		return ErrLineNotFound
	}
	delete(m.lines, lineID)
	return nil
}

func (m *mockLineRepo) Clear(_ context.Context, userID string) (int64, error) {
	var removed int64
	for id, l := range m.lines {
		if l.UserID == userID {
			delete(m.lines, id)
			removed++
		}
	}
	return removed, nil
}

func (m *mockLineRepo) ListByUser(_ context.Context, userID string) ([]Line, error) {
	var out []Line
	for _, l := range m.lines {
		if l.UserID == userID {
			out = append(out, *l)
		}
	}
	return out, nil
}

type mockCatalog struct {
	products map[string]*catalog.Product
	vendors  map[string]*catalog.Vendor
}

func (m *mockCatalog) FindProductByID(_ context.Context, id string) (*catalog.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return p, nil
}

func (m *mockCatalog) CheckStock(_ context.Context, id string, qty int) (bool, error) {
	p, ok := m.products[id]
	if !ok {
		return false, catalog.ErrProductNotFound
	}
	return p.Stock >= qty, nil
}

func (m *mockCatalog) FindVendorByID(_ context.Context, id string) (*catalog.Vendor, error) {
	v, ok := m.vendors[id]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return v, nil
}

// --- Helpers ---

func newCatalog(products ...catalog.Product) *mockCatalog {
	c := &mockCatalog{
		products: make(map[string]*catalog.Product),
		vendors: map[string]*catalog.Vendor{
			"v1": {ID: "v1", BusinessName: "Acme Foods", Address: "1 Main St"},
			"v2": {ID: "v2", BusinessName: "Best Tours", Address: "2 Side St"},
		},
	}
	for i := range products {
		c.products[products[i].ID] = &products[i]
	}
	return c
}

func testProduct(id, vendorID, name string, price string, stock int) catalog.Product {
	return catalog.Product{
		ID:        id,
		VendorID:  vendorID,
		Name:      name,
		Price:     decimal.RequireFromString(price),
		Stock:     stock,
		Available: true,
	}
}

// --- Tests ---

func TestAddItem_SumsQuantities(t *testing.T) {
	repo := newLineRepo()
	svc := NewService(repo, newCatalog(testProduct("p1", "v1", "Empanadas", "12.50", 20)), nil)

	id1, err := svc.AddItem(context.Background(), "u1", "p1", 2)
	require.NoError(t, err)

	id2, err := svc.AddItem(context.Background(), "u1", "p1", 3)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	lines, err := repo.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)
}

func TestAddItem_InvalidQuantity(t *testing.T) {
	svc := NewService(newLineRepo(), newCatalog(), nil)

	_, err := svc.AddItem(context.Background(), "u1", "p1", 0)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestAddItem_ProductNotFound(t *testing.T) {
	svc := NewService(newLineRepo(), newCatalog(), nil)

	_, err := svc.AddItem(context.Background(), "u1", "missing", 1)
	require.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func TestAddItem_ProductUnavailable(t *testing.T) {
	p := testProduct("p1", "v1", "Empanadas", "12.50", 20)
	p.Available = false
	svc := NewService(newLineRepo(), newCatalog(p), nil)

	_, err := svc.AddItem(context.Background(), "u1", "p1", 1)
	require.ErrorIs(t, err, ErrProductUnavailable)
}

func TestAddItem_InsufficientStock(t *testing.T) {
	svc := NewService(newLineRepo(), newCatalog(testProduct("p1", "v1", "Empanadas", "12.50", 3)), nil)

	_, err := svc.AddItem(context.Background(), "u1", "p1", 5)

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "p1", stockErr.ProductID)
	assert.Equal(t, 5, stockErr.Requested)
	assert.Equal(t, 3, stockErr.Available)
}

func TestUpdateQuantity_ZeroRemovesLine(t *testing.T) {
	repo := newLineRepo()
	svc := NewService(repo, newCatalog(testProduct("p1", "v1", "Empanadas", "12.50", 20)), nil)

	id, err := svc.AddItem(context.Background(), "u1", "p1", 2)
	require.NoError(t, err)

	require.NoError(t, svc.UpdateQuantity(context.Background(), id, 0))

	lines, err := repo.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestUpdateQuantity_LineNotFound(t *testing.T) {
	svc := NewService(newLineRepo(), newCatalog(), nil)

	err := svc.UpdateQuantity(context.Background(), "missing", 3)
	require.ErrorIs(t, err, ErrLineNotFound)
}

func TestClear_ReportsRemovedCount(t *testing.T) {
	repo := newLineRepo()
	cat := newCatalog(
		testProduct("p1", "v1", "Empanadas", "12.50", 20),
		testProduct("p2", "v1", "Milanesa", "18.00", 10),
	)
	svc := NewService(repo, cat, nil)

	_, err := svc.AddItem(context.Background(), "u1", "p1", 1)
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), "u1", "p2", 1)
	require.NoError(t, err)

	removed, err := svc.Clear(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
}

func TestGet_ComputesTotals(t *testing.T) {
	repo := newLineRepo()
	cat := newCatalog(
		testProduct("p1", "v1", "Empanadas", "12.50", 20),
		testProduct("p2", "v1", "Milanesa", "18.00", 10),
	)
	svc := NewService(repo, cat, cat)

	_, err := svc.AddItem(context.Background(), "u1", "p1", 2)
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), "u1", "p2", 1)
	require.NoError(t, err)

	view, err := svc.Get(context.Background(), "u1")
	require.NoError(t, err)

	assert.Len(t, view.Lines, 2)
	assert.Equal(t, 3, view.ItemCount)
	assert.True(t, view.Total.Equal(decimal.RequireFromString("43.00")),
		"total = %s", view.Total)
}

func TestAvailabilitySnapshot_FlagsStaleLines(t *testing.T) {
	repo := newLineRepo()
	cat := newCatalog(
		testProduct("p1", "v1", "Empanadas", "12.50", 20),
		testProduct("p2", "v1", "Milanesa", "18.00", 10),
	)
	svc := NewService(repo, cat, cat)

	_, err := svc.AddItem(context.Background(), "u1", "p1", 2)
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), "u1", "p2", 5)
	require.NoError(t, err)

	// Stock drops after the items were added.
	cat.products["p2"].Stock = 1

	snap, err := svc.AvailabilitySnapshot(context.Background(), "u1")
	require.NoError(t, err)

	assert.False(t, snap.AllAvailable)
	require.Len(t, snap.Unavailable, 1)
	assert.Equal(t, "p2", snap.Unavailable[0].ProductID)
	assert.Equal(t, 5, snap.Unavailable[0].Requested)
	assert.Equal(t, 1, snap.Unavailable[0].Stock)
}

func TestAvailabilitySnapshot_DoesNotMutate(t *testing.T) {
	repo := newLineRepo()
	cat := newCatalog(testProduct("p1", "v1", "Empanadas", "12.50", 0))
	svc := NewService(repo, cat, cat)

	repo.lines["l1"] = &Line{ID: "l1", UserID: "u1", ProductID: "p1", Quantity: 2}

	snap, err := svc.AvailabilitySnapshot(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, snap.AllAvailable)

	lines, err := repo.ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestGroupByVendor(t *testing.T) {
	repo := newLineRepo()
	cat := newCatalog(
		testProduct("p1", "v1", "Empanadas", "12.50", 20),
		testProduct("p2", "v2", "City Tour", "50.00", 10),
		testProduct("p3", "v1", "Milanesa", "18.00", 10),
	)
	svc := NewService(repo, cat, cat)

	for _, add := range []struct {
		productID string
		qty       int
	}{{"p1", 2}, {"p2", 1}, {"p3", 1}} {
		_, err := svc.AddItem(context.Background(), "u1", add.productID, add.qty)
		require.NoError(t, err)
	}

	grouped, err := svc.GroupByVendor(context.Background(), "u1")
	require.NoError(t, err)

	require.Len(t, grouped.Vendors, 2)
	assert.Equal(t, "v1", grouped.Vendors[0].VendorID)
	assert.Equal(t, "Acme Foods", grouped.Vendors[0].VendorName)
	assert.True(t, grouped.Vendors[0].Subtotal.Equal(decimal.RequireFromString("43.00")),
		"v1 subtotal = %s", grouped.Vendors[0].Subtotal)
	assert.Equal(t, "v2", grouped.Vendors[1].VendorID)
	assert.True(t, grouped.Vendors[1].Subtotal.Equal(decimal.RequireFromString("50.00")),
		"v2 subtotal = %s", grouped.Vendors[1].Subtotal)
	assert.True(t, grouped.Total.Equal(decimal.RequireFromString("93.00")),
		"total = %s", grouped.Total)
}
