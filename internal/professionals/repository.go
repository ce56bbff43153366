package professionals

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository reads professional reference data.
type Repository struct {
	db dbtx
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("professionals: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting pgxmock for tests.
func NewRepositoryWithDB(db dbtx) *Repository {
	return &Repository{db: db}
}

// ListByType returns professionals of the given type, optionally narrowed by
// a fuzzy name match, ordered by id. That ordering defines the pool iteration
// order used for first-match slot assignment.
func (r *Repository) ListByType(ctx context.Context, profType Type, nameFilter string) ([]Professional, error) {
	query := `
		SELECT id, name, type, calendar_id
		FROM professionals
		WHERE type = $1
	`
	args := []any{string(profType)}
	if nameFilter != "" {
		query += ` AND name ILIKE $2`
		args = append(args, "%"+nameFilter+"%")
	}
	query += ` ORDER BY id`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("professionals: list by type: %w", err)
	}
	defer rows.Close()

	var out []Professional
	for rows.Next() {
		var p Professional
		var typ string
		if err := rows.Scan(&p.ID, &p.Name, &typ, &p.CalendarID); err != nil {
			return nil, fmt.Errorf("professionals: scan: %w", err)
		}
		p.Type = Type(typ)
		out = append(out, p)
	}
	return out, rows.Err()
}
