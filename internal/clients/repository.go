package clients

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Client is one end-user conversation identity. Created on first inbound
// message; name/phone/email fill in progressively via registration tool
// calls. Never deleted, for audit trail.
type Client struct {
	ID          int64
	InstagramID string
	Name        *string
	Phone       *string
	Email       *string
	CreatedAt   time.Time
}

// Registered reports whether the client has the data required to book.
func (c *Client) Registered() bool {
	return c != nil && c.Name != nil && *c.Name != "" && c.Phone != nil && *c.Phone != ""
}

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists clients.
type Repository struct {
	db dbtx
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("clients: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting pgxmock for tests.
func NewRepositoryWithDB(db dbtx) *Repository {
	return &Repository{db: db}
}

// GetByInstagramID returns the client for a channel identity, or nil when
// none exists yet.
func (r *Repository) GetByInstagramID(ctx context.Context, instagramID string) (*Client, error) {
	var c Client
	err := r.db.QueryRow(ctx, `
		SELECT id, instagram_id, name, phone, email, created_at
		FROM clients WHERE instagram_id = $1`, instagramID).
		Scan(&c.ID, &c.InstagramID, &c.Name, &c.Phone, &c.Email, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("clients: load by instagram id: %w", err)
	}
	return &c, nil
}

// Create inserts a bare client record for a newly seen identity.
func (r *Repository) Create(ctx context.Context, instagramID string) (*Client, error) {
	var c Client
	err := r.db.QueryRow(ctx, `
		INSERT INTO clients (instagram_id)
		VALUES ($1)
		RETURNING id, instagram_id, name, phone, email, created_at`, instagramID).
		Scan(&c.ID, &c.InstagramID, &c.Name, &c.Phone, &c.Email, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("clients: create: %w", err)
	}
	return &c, nil
}

// GetOrCreate loads the client, creating the record on first contact.
func (r *Repository) GetOrCreate(ctx context.Context, instagramID string) (*Client, error) {
	c, err := r.GetByInstagramID(ctx, instagramID)
	if err != nil {
		return nil, err
	}
	if c != nil {
		return c, nil
	}
	return r.Create(ctx, instagramID)
}

// UpdateContact fills in the fields that are non-nil, leaving the rest
// untouched.
func (r *Repository) UpdateContact(ctx context.Context, id int64, name, phone, email *string) (*Client, error) {
	var c Client
	err := r.db.QueryRow(ctx, `
		UPDATE clients SET
			name  = COALESCE($2, name),
			phone = COALESCE($3, phone),
			email = COALESCE($4, email)
		WHERE id = $1
		RETURNING id, instagram_id, name, phone, email, created_at`,
		id, name, phone, email).
		Scan(&c.ID, &c.InstagramID, &c.Name, &c.Phone, &c.Email, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("clients: update contact: %w", err)
	}
	return &c, nil
}
