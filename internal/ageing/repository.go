package ageing

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/ledgerline/internal/platform/db"
)

// Repository reads open-bill snapshots for ageing runs. It never writes.
type Repository interface {
	OpenRows(ctx context.Context, side Side) ([]OutstandingRow, error)
}

type pgRepository struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool, timeout time.Duration) Repository {
	return &pgRepository{pool: pool, timeout: timeout}
}

func (r *pgRepository) OpenRows(ctx context.Context, side Side) ([]OutstandingRow, error) {
	ctx, cancel := db.Deadline(ctx, r.timeout)
	defer cancel()

	query := `SELECT b.customer_id, c.name, b.due_date, b.amount - b.collected_amount
FROM receivable_bills b
JOIN customers c ON c.id = b.customer_id
WHERE b.status = 'active' AND b.collected_amount < b.amount`
	if side == SidePayable {
		query = `SELECT b.vendor_id, v.name, b.due_date, b.amount - b.paid_amount
FROM payable_bills b
JOIN vendors v ON v.id = b.vendor_id
WHERE b.status = 'active' AND b.paid_amount < b.amount`
	}

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, db.MapError(err, "ageing snapshot")
	}
	defer rows.Close()

	out, err := scanRows(rows)
	if err != nil {
		return nil, db.MapError(err, "ageing snapshot")
	}
	return out, nil
}

func scanRows(rows pgx.Rows) ([]OutstandingRow, error) {
	var out []OutstandingRow
	for rows.Next() {
		var row OutstandingRow
		if err := rows.Scan(&row.CounterpartyID, &row.CounterpartyName, &row.DueDate, &row.Outstanding); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
