package orders

import (
	"context"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func orderRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "client_id", "status", "total_cents", "payment_link", "mp_preference_id", "created_at",
	})
}

func TestRepositoryCreate(t *testing.T) {
	mock := newMock(t)
	repo := NewRepositoryWithDB(mock)

	created := time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO orders").
		WithArgs(int64(7), StatusPending).
		WillReturnRows(orderRows().AddRow(int64(12), int64(7), StatusPending, int64(0), nil, nil, created))

	o, err := repo.Create(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(12), o.ID)
	assert.Equal(t, int64(0), o.TotalCents)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddItemBumpsTotalInOneTransaction(t *testing.T) {
	mock := newMock(t)
	repo := NewRepositoryWithDB(mock)

	productID := int64(3)
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(int64(12), &productID, "Lentes de contacto", int32(2), int64(150050)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE orders SET total_cents").
		WithArgs(int64(12), int64(300100)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.AddItem(context.Background(), 12, &productID, "Lentes de contacto", 2, 150050))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddItemRollsBackOnTotalFailure(t *testing.T) {
	mock := newMock(t)
	repo := NewRepositoryWithDB(mock)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(int64(12), (*int64)(nil), "Corte", int32(1), int64(80000)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE orders SET total_cents").
		WithArgs(int64(12), int64(80000)).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := repo.AddItem(context.Background(), 12, nil, "Corte", 1, 80000)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetPaymentLink(t *testing.T) {
	mock := newMock(t)
	repo := NewRepositoryWithDB(mock)

	mock.ExpectExec("UPDATE orders SET payment_link").
		WithArgs(int64(12), "https://mp.example/init", "pref-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.SetPaymentLink(context.Background(), 12, "https://mp.example/init", "pref-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetStatus(t *testing.T) {
	mock := newMock(t)
	repo := NewRepositoryWithDB(mock)

	mock.ExpectExec("UPDATE orders SET status").
		WithArgs(int64(12), StatusPaid).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.SetStatus(context.Background(), 12, StatusPaid))
	require.NoError(t, mock.ExpectationsWereMet())
}
