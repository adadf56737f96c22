package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/ledgerline/internal/shared"
)

// WithTx executes fn within a repeatable-read transaction. The transaction is
// rolled back when fn returns an error or the context is cancelled mid-way.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("platform/db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("platform/db: commit tx: %w", err)
	}

	return nil
}

// Deadline derives a child context bounded by the configured storage timeout.
// Repositories wrap every call with it so no operation blocks indefinitely.
func Deadline(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// MapError normalises driver errors into the shared taxonomy: deadline expiry
// becomes a timeout error, pgx.ErrNoRows a not-found error. Other errors pass
// through unchanged.
func MapError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return shared.Timeoutf(err, "%s exceeded storage deadline", what)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.NotFoundf("%s not found", what)
	}
	return err
}

// IsUniqueViolation reports whether err is a 23505 unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
