package pgstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Lixing-Zhang/food-ordering/backend/internal/models"
	"github.com/Lixing-Zhang/food-ordering/backend/internal/repository"
)

const userColumns = `id, email, name, admin, banned, created_at`

// UserRepository stores accounts keyed by user id
type UserRepository struct {
	db *sql.DB
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.queryOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.queryOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// Upsert writes u, keeping the creation time of an existing record.
func (r *UserRepository) Upsert(ctx context.Context, u *models.User) error {
	createdAt := u.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
		    email = EXCLUDED.email,
		    name = EXCLUDED.name,
		    admin = EXCLUDED.admin,
		    banned = EXCLUDED.banned
	`
	_, err := r.db.ExecContext(ctx, query, u.ID, u.Email, u.Name, u.Admin, u.Banned, createdAt)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (r *UserRepository) SetAdmin(ctx context.Context, id string, admin bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET admin = $2 WHERE id = $1`, id, admin)
	if err != nil {
		return fmt.Errorf("set admin: %w", err)
	}
	return requireOne(res)
}

func (r *UserRepository) SetBanned(ctx context.Context, id string, banned bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET banned = $2 WHERE id = $1`, id, banned)
	if err != nil {
		return fmt.Errorf("set banned: %w", err)
	}
	return requireOne(res)
}

func (r *UserRepository) queryOne(ctx context.Context, query string, arg string) (*models.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		return nil, notFound(err)
	}
	return u, nil
}

func scanUser(s scanner) (*models.User, error) {
	var u models.User
	if err := s.Scan(&u.ID, &u.Email, &u.Name, &u.Admin, &u.Banned, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return &u, nil
}
