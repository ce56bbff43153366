package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	StatusPending   = "pending"
	StatusPaid      = "paid"
	StatusCancelled = "cancelled"
)

// Order is a persistent cart tied to one client. The running total is kept
// on the row and updated in the same transaction as each item insert.
type Order struct {
	ID             int64
	ClientID       int64
	Status         string
	TotalCents     int64
	PaymentLink    *string
	MPPreferenceID *string
	CreatedAt      time.Time
}

// Item is one line of an order with the unit price frozen at add time.
type Item struct {
	ID             int64
	OrderID        int64
	ProductID      *int64
	Title          string
	Quantity       int32
	UnitPriceCents int64
}

type dbtx interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository persists orders and their items.
type Repository struct {
	db dbtx
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("orders: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting pgxmock for tests.
func NewRepositoryWithDB(db dbtx) *Repository {
	return &Repository{db: db}
}

// Create opens a pending order with a zero total.
func (r *Repository) Create(ctx context.Context, clientID int64) (*Order, error) {
	var o Order
	err := r.db.QueryRow(ctx, `
		INSERT INTO orders (client_id, status, total_cents)
		VALUES ($1, $2, 0)
		RETURNING id, client_id, status, total_cents, payment_link, mp_preference_id, created_at`,
		clientID, StatusPending).
		Scan(&o.ID, &o.ClientID, &o.Status, &o.TotalCents, &o.PaymentLink, &o.MPPreferenceID, &o.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("orders: create: %w", err)
	}
	return &o, nil
}

// AddItem inserts an item and bumps the order total atomically. The two
// writes share a transaction so a crash cannot leave the total out of sync
// with the line items.
func (r *Repository) AddItem(ctx context.Context, orderID int64, productID *int64, title string, quantity int32, unitPriceCents int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("orders: begin add item: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO order_items (order_id, product_id, title, quantity, unit_price_cents)
		VALUES ($1, $2, $3, $4, $5)`,
		orderID, productID, title, quantity, unitPriceCents); err != nil {
		return fmt.Errorf("orders: insert item: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE orders SET total_cents = total_cents + $2 WHERE id = $1`,
		orderID, unitPriceCents*int64(quantity)); err != nil {
		return fmt.Errorf("orders: update total: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("orders: commit add item: %w", err)
	}
	return nil
}

// SetPaymentLink stores the provider link and preference id on the order.
func (r *Repository) SetPaymentLink(ctx context.Context, orderID int64, link, preferenceID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE orders SET payment_link = $2, mp_preference_id = $3 WHERE id = $1`,
		orderID, link, preferenceID)
	if err != nil {
		return fmt.Errorf("orders: set payment link: %w", err)
	}
	return nil
}

// SetStatus flips an order's lifecycle state.
func (r *Repository) SetStatus(ctx context.Context, orderID int64, status string) error {
	_, err := r.db.Exec(ctx, `UPDATE orders SET status = $2 WHERE id = $1`, orderID, status)
	if err != nil {
		return fmt.Errorf("orders: set status: %w", err)
	}
	return nil
}

// GetByID loads an order.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Order, error) {
	var o Order
	err := r.db.QueryRow(ctx, `
		SELECT id, client_id, status, total_cents, payment_link, mp_preference_id, created_at
		FROM orders WHERE id = $1`, id).
		Scan(&o.ID, &o.ClientID, &o.Status, &o.TotalCents, &o.PaymentLink, &o.MPPreferenceID, &o.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("orders: load by id: %w", err)
	}
	return &o, nil
}
