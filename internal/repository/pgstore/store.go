// Package pgstore implements the repository contracts on PostgreSQL with
// database/sql and lib/pq. Guarded transitions are single UPDATE statements
// whose WHERE clause carries the expected state.
package pgstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/Lixing-Zhang/food-ordering/backend/internal/repository"
)

//go:embed schema.sql
var schema string

const uniqueViolation = "23505"

// New builds a repository.Store on db. Close closes db.
func New(db *sql.DB) *repository.Store {
	return &repository.Store{
		Catalog: &CatalogRepository{db: db},
		Coupons: &CouponRepository{db: db, now: time.Now},
		Orders:  &OrderRepository{db: db, now: time.Now},
		Users:   &UserRepository{db: db},
		Ping:    db.PingContext,
		Close: func(context.Context) error {
			return db.Close()
		},
	}
}

// Migrate creates the tables and indexes if they do not exist
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	return err
}

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func nullInt(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func intPtr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func nullTime(p *time.Time) sql.NullTime {
	if p == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: p.UTC(), Valid: true}
}

func timePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	v := n.Time.UTC()
	return &v
}

func requireOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
