package auth

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/ledgerline/internal/platform/db"
)

// Repository looks up operator accounts.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (User, error)
	FindByID(ctx context.Context, id int64) (User, error)
}

type pgRepository struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool, timeout time.Duration) Repository {
	return &pgRepository{pool: pool, timeout: timeout}
}

const userColumns = `id, email, name, role, password_hash, is_active, created_at, updated_at`

func (r *pgRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	ctx, cancel := db.Deadline(ctx, r.timeout)
	defer cancel()

	var u User
	err := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email).
		Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return User{}, db.MapError(err, "user")
	}
	return u, nil
}

func (r *pgRepository) FindByID(ctx context.Context, id int64) (User, error) {
	ctx, cancel := db.Deadline(ctx, r.timeout)
	defer cancel()

	var u User
	err := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id).
		Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return User{}, db.MapError(err, "user")
	}
	return u, nil
}
