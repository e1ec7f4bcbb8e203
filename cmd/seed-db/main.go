// Command seed-db loads the read-side tables (users, vendors, products,
// services) from a gzipped JSON-lines dataset. Each line is one record
// tagged with its kind:
//
//	{"kind":"vendor","id":"v1","business_name":"...","address":"..."}
//	{"kind":"product","id":"p1","vendor_id":"v1","name":"...","price":"9.99","stock":5,"available":true}
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/arroyoseco/marketplace/internal/storage/postgres"
)

const writerConcurrency = 4

type record struct {
	Kind string `json:"kind"`

	ID   string `json:"id"`
	Name string `json:"name"`

	// user
	Email  string `json:"email"`
	Role   string `json:"role"`
	Active bool   `json:"active"`

	// vendor
	BusinessName string `json:"business_name"`
	Address      string `json:"address"`

	// product
	VendorID  string          `json:"vendor_id"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	Available bool            `json:"available"`

	// service
	Capacity int    `json:"capacity"`
	Status   string `json:"status"`
}

func main() {
	var (
		databaseURL string
		dataFile    string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&dataFile, "data-file", "db/seed/marketplace.jsonl.gz", "path to gzipped JSON-lines dataset")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, dataFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, dataFile string) error {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	slog.Info("streaming dataset", slog.String("path", dataFile))

	// Vendors first: products and services reference them. The dataset is
	// streamed twice rather than buffered whole.
	if err := seedPass(ctx, pool, dataFile, map[string]bool{"user": true, "vendor": true}); err != nil {
		return errors.Wrap(err, "seed users and vendors")
	}
	if err := seedPass(ctx, pool, dataFile, map[string]bool{"product": true, "service": true}); err != nil {
		return errors.Wrap(err, "seed products and services")
	}

	return nil
}

// seedPass streams the dataset and upserts records of the wanted kinds
// through a bounded pool of writers.
func seedPass(ctx context.Context, pool *pgxpool.Pool, dataFile string, kinds map[string]bool) error {
	f, err := os.Open(dataFile)
	if err != nil {
		return errors.Wrapf(err, "open %s", dataFile)
	}
	defer func() { _ = f.Close() }()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		return errors.Wrapf(err, "create gzip reader for %s", dataFile)
	}
	defer func() { _ = gz.Close() }()

	records := make(chan record, writerConcurrency*4)
	var written atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	for range writerConcurrency {
		g.Go(func() error {
			for rec := range records {
				if err := upsert(gctx, pool, rec); err != nil {
					return errors.Wrapf(err, "upsert %s %s", rec.Kind, rec.ID)
				}
				written.Add(1)
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(records)

		scanner := bufio.NewScanner(gz)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			var rec record
			if err := json.Unmarshal(line, &rec); err != nil {
				return errors.Wrap(err, "parse record")
			}
			if !kinds[rec.Kind] {
				continue
			}
			select {
			case records <- rec:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return errors.Wrap(scanner.Err(), "scan dataset")
	})

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("pass complete", slog.Int64("records", written.Load()))
	return nil
}

func upsert(ctx context.Context, pool *pgxpool.Pool, rec record) error {
	switch rec.Kind {
	case "user":
		_, err := pool.Exec(ctx, `
			INSERT INTO users (id, name, email, role, active)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name, email = EXCLUDED.email,
			    role = EXCLUDED.role, active = EXCLUDED.active
		`, rec.ID, rec.Name, rec.Email, rec.Role, rec.Active)
		return err
	case "vendor":
		_, err := pool.Exec(ctx, `
			INSERT INTO vendors (id, business_name, address)
			VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE
			SET business_name = EXCLUDED.business_name, address = EXCLUDED.address
		`, rec.ID, rec.BusinessName, rec.Address)
		return err
	case "product":
		_, err := pool.Exec(ctx, `
			INSERT INTO products (id, vendor_id, name, price, stock, available)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE
			SET vendor_id = EXCLUDED.vendor_id, name = EXCLUDED.name,
			    price = EXCLUDED.price, stock = EXCLUDED.stock,
			    available = EXCLUDED.available
		`, rec.ID, rec.VendorID, rec.Name, rec.Price, rec.Stock, rec.Available)
		return err
	case "service":
		_, err := pool.Exec(ctx, `
			INSERT INTO services (id, vendor_id, name, capacity, status)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE
			SET vendor_id = EXCLUDED.vendor_id, name = EXCLUDED.name,
			    capacity = EXCLUDED.capacity, status = EXCLUDED.status
		`, rec.ID, rec.VendorID, rec.Name, rec.Capacity, rec.Status)
		return err
	}
	return errors.Errorf("unknown record kind %q", rec.Kind)
}
