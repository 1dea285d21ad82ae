package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const selectColumns = `id, display_name, tracking_url, (current_price::double precision), last_updated_at, last_checked_at`

// querier is the subset of *pgxpool.Pool the store uses.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore keeps tracked products in the tracked_products table.
type PostgresStore struct {
	db   querier
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn and verifies the connection.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: pool, pool: pool}, nil
}

// Close releases the connection pool
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ping checks the database is reachable
func (s *PostgresStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_, err := s.db.Exec(ctx, `SELECT 1`)
	return err
}

// FindMany implements Store
func (s *PostgresStore) FindMany(ctx context.Context) ([]TrackedProduct, error) {
	rows, err := s.db.Query(ctx, `SELECT `+selectColumns+` FROM tracked_products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracked products: %w", err)
	}
	defer rows.Close()

	var products []TrackedProduct
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list tracked products: %w", err)
	}
	return products, nil
}

// FindUnique implements Store
func (s *PostgresStore) FindUnique(ctx context.Context, id int64) (TrackedProduct, error) {
	row := s.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM tracked_products WHERE id = $1`, id)
	return scanProduct(row)
}

// UpdatePrice implements Store
func (s *PostgresStore) UpdatePrice(ctx context.Context, id int64, price float64) (TrackedProduct, error) {
	row := s.db.QueryRow(ctx, `
UPDATE tracked_products
SET current_price = $2, last_updated_at = now(), last_checked_at = now()
WHERE id = $1
RETURNING `+selectColumns, id, price)
	return scanProduct(row)
}

// MarkChecked implements Store
func (s *PostgresStore) MarkChecked(ctx context.Context, id int64) (TrackedProduct, error) {
	row := s.db.QueryRow(ctx, `
UPDATE tracked_products
SET last_checked_at = now()
WHERE id = $1
RETURNING `+selectColumns, id)
	return scanProduct(row)
}

func scanProduct(row pgx.Row) (TrackedProduct, error) {
	var (
		p           TrackedProduct
		trackingURL *string
		checkedAt   *time.Time
	)
	if err := row.Scan(&p.ID, &p.DisplayName, &trackingURL, &p.CurrentPrice, &p.LastUpdatedAt, &checkedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TrackedProduct{}, ErrNotFound
		}
		return TrackedProduct{}, fmt.Errorf("failed to scan tracked product: %w", err)
	}
	if trackingURL != nil {
		p.TrackingURL = *trackingURL
	}
	if checkedAt != nil {
		p.LastCheckedAt = *checkedAt
	}
	return p, nil
}
