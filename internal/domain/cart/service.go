package cart

import (
	"context"
	"sort"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/arroyoseco/marketplace/internal/domain/catalog"
)

// snapshotConcurrency bounds the product lookups fanned out per snapshot.
const snapshotConcurrency = 4

// Service holds the cart aggregation logic: per-user line items, totals,
// staleness detection and vendor grouping.
type Service struct {
	lines    Repository
	products catalog.ProductReader
	vendors  catalog.VendorReader
}

// NewService creates a cart Service with the required dependencies.
func NewService(lines Repository, products catalog.ProductReader, vendors catalog.VendorReader) *Service {
	return &Service{
		lines:    lines,
		products: products,
		vendors:  vendors,
	}
}

// AddItem validates the product and adds qty units to the user's cart.
// If the user already has a line for the product, the quantities are
// summed, never replaced.
func (s *Service) AddItem(ctx context.Context, userID, productID string, qty int) (string, error) {
	if qty < 1 {
		return "", ErrInvalidQuantity
	}

	p, err := s.products.FindProductByID(ctx, productID)
	if err != nil {
		return "", errors.Wrapf(err, "find product %s", productID)
	}
	if !p.Available {
		return "", ErrProductUnavailable
	}

	ok, err := s.products.CheckStock(ctx, productID, qty)
	if err != nil {
		return "", errors.Wrapf(err, "check stock for %s", productID)
	}
	if !ok {
		return "", &InsufficientStockError{
			ProductID: productID,
			Requested: qty,
			Available: p.Stock,
		}
	}

	id, err := s.lines.Upsert(ctx, Line{
		ID:        uuid.New().String(),
		UserID:    userID,
		ProductID: productID,
		Quantity:  qty,
	})
	if err != nil {
		return "", errors.Wrap(err, "upsert cart line")
	}
	return id, nil
}

// UpdateQuantity sets the quantity of a line. A quantity of zero or less
// removes the line; removal and zero-quantity update are the same operation.
func (s *Service) UpdateQuantity(ctx context.Context, lineID string, qty int) error {
	if qty <= 0 {
		return s.RemoveItem(ctx, lineID)
	}
	return s.lines.UpdateQuantity(ctx, lineID, qty)
}

// RemoveItem deletes a single line from the cart.
func (s *Service) RemoveItem(ctx context.Context, lineID string) error {
	return s.lines.Remove(ctx, lineID)
}

// Clear removes every line for the user and reports how many were removed.
func (s *Service) Clear(ctx context.Context, userID string) (int64, error) {
	return s.lines.Clear(ctx, userID)
}

// Get returns the user's cart hydrated with product and vendor metadata,
// per-line subtotals, the grand total and the total item count.
func (s *Service) Get(ctx context.Context, userID string) (*View, error) {
	views, err := s.hydrate(ctx, userID)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	count := 0
	for _, v := range views {
		if v.Available {
			total = total.Add(v.Subtotal)
		}
		count += v.Quantity
	}

	return &View{
		Lines:     views,
		Total:     total.Round(2),
		ItemCount: count,
	}, nil
}

// AvailabilitySnapshot reports, for every line, whether the underlying
// product is still available in sufficient stock. It mutates nothing and
// is the pre-checkout gate.
func (s *Service) AvailabilitySnapshot(ctx context.Context, userID string) (*Snapshot, error) {
	lines, err := s.lines.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list cart lines")
	}

	results := make([]LineAvailability, len(lines))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(snapshotConcurrency)
	for i, line := range lines {
		g.Go(func() error {
			p, err := s.products.FindProductByID(gctx, line.ProductID)
			if err != nil {
				return errors.Wrapf(err, "find product %s", line.ProductID)
			}
			results[i] = LineAvailability{
				LineID:      line.ID,
				ProductID:   line.ProductID,
				ProductName: p.Name,
				Requested:   line.Quantity,
				Available:   p.Available,
				Stock:       p.Stock,
				OK:          p.Available && p.Stock >= line.Quantity,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap := &Snapshot{AllAvailable: true, Lines: results}
	for _, r := range results {
		if !r.OK {
			snap.AllAvailable = false
			snap.Unavailable = append(snap.Unavailable, r)
		}
	}
	return snap, nil
}

// GroupByVendor partitions the user's available lines by owning vendor and
// computes a per-vendor subtotal plus the grand total.
func (s *Service) GroupByVendor(ctx context.Context, userID string) (*GroupedView, error) {
	views, err := s.hydrate(ctx, userID)
	if err != nil {
		return nil, err
	}

	byVendor := make(map[string]*VendorGroup)
	total := decimal.Zero
	for _, v := range views {
		if !v.Available {
			continue
		}
		g, ok := byVendor[v.VendorID]
		if !ok {
			vendor, err := s.vendors.FindVendorByID(ctx, v.VendorID)
			if err != nil {
				return nil, errors.Wrapf(err, "find vendor %s", v.VendorID)
			}
			g = &VendorGroup{
				VendorID:   vendor.ID,
				VendorName: vendor.BusinessName,
				Address:    vendor.Address,
				Subtotal:   decimal.Zero,
			}
			byVendor[v.VendorID] = g
		}
		g.Lines = append(g.Lines, v)
		g.Subtotal = g.Subtotal.Add(v.Subtotal)
		total = total.Add(v.Subtotal)
	}

	groups := make([]VendorGroup, 0, len(byVendor))
	for _, g := range byVendor {
		g.Subtotal = g.Subtotal.Round(2)
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].VendorID < groups[j].VendorID })

	return &GroupedView{Vendors: groups, Total: total.Round(2)}, nil
}

// hydrate loads the user's lines and resolves product metadata for each.
func (s *Service) hydrate(ctx context.Context, userID string) ([]LineView, error) {
	lines, err := s.lines.ListByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "list cart lines")
	}

	// Lookups write disjoint indexes, so no locking is needed.
	views := make([]LineView, len(lines))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(snapshotConcurrency)
	for i, line := range lines {
		g.Go(func() error {
			p, err := s.products.FindProductByID(gctx, line.ProductID)
			if err != nil {
				return errors.Wrapf(err, "find product %s", line.ProductID)
			}
			views[i] = LineView{
				Line:        line,
				ProductName: p.Name,
				UnitPrice:   p.Price,
				Available:   p.Available,
				Stock:       p.Stock,
				VendorID:    p.VendorID,
				Subtotal:    p.Price.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return views, nil
}
