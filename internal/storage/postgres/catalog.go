package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/arroyoseco/marketplace/internal/domain/catalog"
)

var (
	_ catalog.ProductReader = (*CatalogRepository)(nil)
	_ catalog.ServiceReader = (*CatalogRepository)(nil)
	_ catalog.VendorReader  = (*CatalogRepository)(nil)
)

// CatalogRepository reads products, services and vendors. The tables are
// owned by the catalog service; this repository never writes them.
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository returns a CatalogRepository that uses the given pool.
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

func (r *CatalogRepository) FindProductByID(ctx context.Context, id string) (*catalog.Product, error) {
	var p catalog.Product
	err := r.pool.QueryRow(ctx, `
		SELECT id, vendor_id, name, price, stock, available
		FROM products WHERE id = $1
	`, id).Scan(&p.ID, &p.VendorID, &p.Name, &p.Price, &p.Stock, &p.Available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, errors.Wrapf(err, "find product %s", id)
	}
	return &p, nil
}

func (r *CatalogRepository) CheckStock(ctx context.Context, id string, qty int) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `
		SELECT stock >= $2 FROM products WHERE id = $1
	`, id, qty).Scan(&ok)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, catalog.ErrProductNotFound
		}
		return false, errors.Wrapf(err, "check stock %s", id)
	}
	return ok, nil
}

func (r *CatalogRepository) FindServiceByID(ctx context.Context, id string) (*catalog.Service, error) {
	var s catalog.Service
	err := r.pool.QueryRow(ctx, `
		SELECT id, vendor_id, name, capacity, status
		FROM services WHERE id = $1
	`, id).Scan(&s.ID, &s.VendorID, &s.Name, &s.Capacity, &s.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrServiceNotFound
		}
		return nil, errors.Wrapf(err, "find service %s", id)
	}
	return &s, nil
}

func (r *CatalogRepository) FindVendorByID(ctx context.Context, id string) (*catalog.Vendor, error) {
	var v catalog.Vendor
	err := r.pool.QueryRow(ctx, `
		SELECT id, business_name, address
		FROM vendors WHERE id = $1
	`, id).Scan(&v.ID, &v.BusinessName, &v.Address)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.Errorf("vendor %s not found", id)
		}
		return nil, errors.Wrapf(err, "find vendor %s", id)
	}
	return &v, nil
}
