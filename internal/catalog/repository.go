package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Product is one sellable catalog entry. Prices are stored in cents to keep
// order arithmetic exact.
type Product struct {
	ID          int64
	Name        string
	Description string
	PriceCents  int64
	Active      bool
}

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository reads the product catalog.
type Repository struct {
	db dbtx
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("catalog: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting pgxmock for tests.
func NewRepositoryWithDB(db dbtx) *Repository {
	return &Repository{db: db}
}

// SearchFuzzy matches active products by name substring, case-insensitive.
// Not plain equality CRUD, which is why it gets its own named operation.
func (r *Repository) SearchFuzzy(ctx context.Context, query string) ([]Product, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, description, price_cents, active
		FROM products
		WHERE active AND name ILIKE $1
		ORDER BY id`, "%"+query+"%")
	if err != nil {
		return nil, fmt.Errorf("catalog: fuzzy search: %w", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.Active); err != nil {
			return nil, fmt.Errorf("catalog: scan: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetByID returns a product or nil when absent.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Product, error) {
	var p Product
	err := r.db.QueryRow(ctx, `
		SELECT id, name, description, price_cents, active
		FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.PriceCents, &p.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("catalog: load by id: %w", err)
	}
	return &p, nil
}
