package repo

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"diag-storefront/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receipt(id, user string, at time.Time) *domain.BookingReceipt {
	return &domain.BookingReceipt{
		ID:              id,
		UserID:          user,
		Status:          domain.ReceiptConfirmed,
		BookingID:       900,
		CustomPackageID: 12,
		MemberID:        3,
		AddressID:       4,
		OrderID:         "order_1",
		PaymentID:       "pay_1",
		AmountMinor:     72000,
		Currency:        "INR",
		CreatedAt:       at,
	}
}

func TestMemoryReceiptRepo_ListNewestFirst(t *testing.T) {
	r := NewMemoryReceiptRepo()
	ctx := context.Background()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, r.PutReceipt(ctx, receipt("a", "u1", base)))
	require.NoError(t, r.PutReceipt(ctx, receipt("b", "u1", base.Add(time.Minute))))
	require.NoError(t, r.PutReceipt(ctx, receipt("c", "u2", base)))

	list, total, err := r.ListReceipts(ctx, "u1", 1, 10)
	require.NoError(t, err)

	assert.Equal(t, 2, total)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)

	got, ok := r.GetReceipt(ctx, "c")
	require.True(t, ok)
	assert.Equal(t, "u2", got.UserID)

	page2, _, err := r.ListReceipts(ctx, "u1", 2, 1)
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, "a", page2[0].ID)
}

func TestPostgresRepo_PutReceipt(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	r := NewPostgresRepo(db)
	rc := receipt("r1", "u1", time.Now().UTC())
	rc.Status = domain.ReceiptNeedsSupport
	rc.ErrorMsg = "booking failed"

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO booking_receipts")).
		WithArgs("r1", "u1", "needs_support", int64(900), int64(12), int64(3), int64(4),
			"order_1", "pay_1", "", int64(72000), "INR", "booking failed", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, r.PutReceipt(context.Background(), rc))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_GetReceipt(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	r := NewPostgresRepo(db)
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "user_id", "status", "booking_id", "custom_package_id", "member_id", "address_id",
		"order_id", "payment_id", "coupon_code", "amount_minor", "currency", "error_msg", "created_at"}).
		AddRow("r1", "u1", "confirmed", int64(900), int64(12), int64(3), int64(4), "order_1", "pay_1", "SAVE10", int64(72000), "INR", "", at)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + receiptColumns + " FROM booking_receipts WHERE id=$1")).
		WithArgs("r1").
		WillReturnRows(rows)

	got, ok := r.GetReceipt(context.Background(), "r1")

	require.True(t, ok)
	assert.Equal(t, domain.ReceiptConfirmed, got.Status)
	assert.Equal(t, "SAVE10", got.CouponCode)
	assert.Equal(t, at, got.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_GetReceipt_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("FROM booking_receipts WHERE id=$1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, ok := NewPostgresRepo(db).GetReceipt(context.Background(), "missing")
	assert.False(t, ok)
}

func receiptRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "status", "booking_id", "custom_package_id", "member_id", "address_id",
		"order_id", "payment_id", "coupon_code", "amount_minor", "currency", "error_msg", "created_at"})
}

func TestPostgresRepo_ListReceipts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("FROM booking_receipts WHERE user_id=$1 ORDER BY created_at DESC")).
		WithArgs("u1", 10, 0).
		WillReturnRows(receiptRows().
			AddRow("r1", "u1", "needs_support", int64(0), int64(12), int64(3), int64(4), "order_1", "pay_1", "", int64(72000), "INR", "booking failed", at))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(1) FROM booking_receipts WHERE user_id=$1")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	list, total, err := NewPostgresRepo(db).ListReceipts(context.Background(), "u1", 1, 10)

	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, domain.ReceiptNeedsSupport, list[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_ListReceipts_SurfacesErrors(t *testing.T) {
	t.Run("query", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectQuery(regexp.QuoteMeta("FROM booking_receipts WHERE user_id=$1")).
			WillReturnError(errors.New("connection reset"))

		_, _, err = NewPostgresRepo(db).ListReceipts(context.Background(), "u1", 1, 10)
		assert.ErrorContains(t, err, "connection reset")
	})

	t.Run("scan", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		mock.ExpectQuery(regexp.QuoteMeta("FROM booking_receipts WHERE user_id=$1")).
			WillReturnRows(receiptRows().
				AddRow("r1", "u1", "confirmed", "not-a-number", int64(12), int64(3), int64(4), "order_1", "pay_1", "", int64(72000), "INR", "", time.Now()))

		list, _, err := NewPostgresRepo(db).ListReceipts(context.Background(), "u1", 1, 10)
		assert.ErrorContains(t, err, "scan receipt")
		assert.Nil(t, list)
	})
}
