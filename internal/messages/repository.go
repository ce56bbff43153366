package messages

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one immutable turn of conversation. Append-only; insertion
// order defines the history replayed to the LLM.
type Message struct {
	ID        int64
	ClientID  int64
	Role      string
	Content   string
	CreatedAt time.Time
}

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists conversation turns.
type Repository struct {
	db dbtx
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("messages: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting pgxmock for tests.
func NewRepositoryWithDB(db dbtx) *Repository {
	return &Repository{db: db}
}

// Append records one turn.
func (r *Repository) Append(ctx context.Context, clientID int64, role, content string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO messages (client_id, role, content)
		VALUES ($1, $2, $3)`, clientID, role, content)
	if err != nil {
		return fmt.Errorf("messages: append: %w", err)
	}
	return nil
}

// Recent returns the latest N turns for a client in chronological order
// (oldest first), ready to replay as LLM history.
func (r *Repository) Recent(ctx context.Context, clientID int64, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, client_id, role, content, created_at FROM (
			SELECT id, client_id, role, content, created_at
			FROM messages
			WHERE client_id = $1
			ORDER BY id DESC
			LIMIT $2
		) latest
		ORDER BY id ASC`, clientID, limit)
	if err != nil {
		return nil, fmt.Errorf("messages: recent: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ClientID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("messages: scan: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
