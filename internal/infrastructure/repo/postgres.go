package repo

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"diag-storefront/internal/domain"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrations embed.FS

type PostgresRepo struct {
	db *sql.DB
}

func OpenPostgres(dsn string) (*PostgresRepo, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	r := NewPostgresRepo(db)
	if err := r.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Close() error {
	return r.db.Close()
}

func (r *PostgresRepo) Migrate() error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	driver, err := postgres.WithInstance(r.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrate instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

const receiptColumns = `id,user_id,status,booking_id,custom_package_id,member_id,address_id,order_id,payment_id,coupon_code,amount_minor,currency,error_msg,created_at`

func (r *PostgresRepo) PutReceipt(ctx context.Context, rc *domain.BookingReceipt) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO booking_receipts (`+receiptColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (id) DO UPDATE SET status=$3,booking_id=$4,error_msg=$13`,
		rc.ID, rc.UserID, string(rc.Status), rc.BookingID, rc.CustomPackageID, rc.MemberID, rc.AddressID,
		rc.OrderID, rc.PaymentID, rc.CouponCode, rc.AmountMinor, rc.Currency, rc.ErrorMsg, rc.CreatedAt)
	if err != nil {
		return fmt.Errorf("persist receipt: %w", err)
	}
	return nil
}

func (r *PostgresRepo) GetReceipt(ctx context.Context, id string) (*domain.BookingReceipt, bool) {
	row := r.db.QueryRowContext(ctx, `SELECT `+receiptColumns+` FROM booking_receipts WHERE id=$1`, id)
	rc, err := scanReceipt(row)
	if err != nil {
		return nil, false
	}
	return rc, true
}

func (r *PostgresRepo) ListReceipts(ctx context.Context, userID string, page, pageSize int) ([]domain.BookingReceipt, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+receiptColumns+` FROM booking_receipts WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("list receipts: %w", err)
	}
	defer rows.Close()
	out := make([]domain.BookingReceipt, 0, pageSize)
	for rows.Next() {
		rc, err := scanReceipt(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan receipt: %w", err)
		}
		out = append(out, *rc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list receipts: %w", err)
	}
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM booking_receipts WHERE user_id=$1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count receipts: %w", err)
	}
	return out, total, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReceipt(s scanner) (*domain.BookingReceipt, error) {
	var rc domain.BookingReceipt
	err := s.Scan(&rc.ID, &rc.UserID, (*string)(&rc.Status), &rc.BookingID, &rc.CustomPackageID, &rc.MemberID, &rc.AddressID,
		&rc.OrderID, &rc.PaymentID, &rc.CouponCode, &rc.AmountMinor, &rc.Currency, &rc.ErrorMsg, &rc.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &rc, nil
}
