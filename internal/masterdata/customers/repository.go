package customers

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/ledgerline/internal/platform/db"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// Repository defines customer data access.
type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Customer, int, error)
	Get(ctx context.Context, id int64) (Customer, error)
	Create(ctx context.Context, c Customer) (Customer, error)
	Update(ctx context.Context, id int64, c Customer) error
	SetActive(ctx context.Context, id int64, active bool) error
	OutstandingBillCount(ctx context.Context, id int64) (int, error)
}

type pgRepository struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool, timeout time.Duration) Repository {
	return &pgRepository{pool: pool, timeout: timeout}
}

const customerColumns = `id, code, name, contact_person, phone, email, address, credit_days, is_active, created_at, updated_at`

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Code, &c.Name, &c.ContactPerson, &c.Phone, &c.Email, &c.Address,
		&c.CreditDays, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *pgRepository) List(ctx context.Context, filters ListFilters) ([]Customer, int, error) {
	ctx, cancel := db.Deadline(ctx, r.timeout)
	defer cancel()

	limit := filters.Limit
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx, `SELECT `+customerColumns+` FROM customers
WHERE ($1 = '' OR code ILIKE '%'||$1||'%' OR name ILIKE '%'||$1||'%')
  AND (NOT $2 OR is_active)
ORDER BY code LIMIT $3 OFFSET $4`, filters.Search, filters.ActiveOnly, limit, filters.Offset)
	if err != nil {
		return nil, 0, db.MapError(err, "customers")
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers
WHERE ($1 = '' OR code ILIKE '%'||$1||'%' OR name ILIKE '%'||$1||'%')
  AND (NOT $2 OR is_active)`, filters.Search, filters.ActiveOnly).Scan(&total)
	if err != nil {
		return nil, 0, db.MapError(err, "customers")
	}
	return out, total, nil
}

func (r *pgRepository) Get(ctx context.Context, id int64) (Customer, error) {
	ctx, cancel := db.Deadline(ctx, r.timeout)
	defer cancel()

	c, err := scanCustomer(r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id=$1`, id))
	if err != nil {
		return Customer{}, db.MapError(err, "customer")
	}
	return c, nil
}

func (r *pgRepository) Create(ctx context.Context, c Customer) (Customer, error) {
	ctx, cancel := db.Deadline(ctx, r.timeout)
	defer cancel()

	err := r.pool.QueryRow(ctx, `INSERT INTO customers
(code, name, contact_person, phone, email, address, credit_days, is_active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,true,NOW(),NOW())
RETURNING id, created_at, updated_at`,
		c.Code, c.Name, c.ContactPerson, c.Phone, c.Email, c.Address, c.CreditDays).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Customer{}, shared.Conflictf("customer code %s already exists", c.Code)
		}
		return Customer{}, db.MapError(err, "customer")
	}
	c.IsActive = true
	return c, nil
}

func (r *pgRepository) Update(ctx context.Context, id int64, c Customer) error {
	ctx, cancel := db.Deadline(ctx, r.timeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `UPDATE customers SET
name=$2, contact_person=$3, phone=$4, email=$5, address=$6, credit_days=$7, updated_at=NOW()
WHERE id=$1`, id, c.Name, c.ContactPerson, c.Phone, c.Email, c.Address, c.CreditDays)
	if err != nil {
		return db.MapError(err, "customer")
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundf("customer %d not found", id)
	}
	return nil
}

func (r *pgRepository) SetActive(ctx context.Context, id int64, active bool) error {
	ctx, cancel := db.Deadline(ctx, r.timeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `UPDATE customers SET is_active=$2, updated_at=NOW() WHERE id=$1`, id, active)
	if err != nil {
		return db.MapError(err, "customer")
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundf("customer %d not found", id)
	}
	return nil
}

func (r *pgRepository) OutstandingBillCount(ctx context.Context, id int64) (int, error) {
	ctx, cancel := db.Deadline(ctx, r.timeout)
	defer cancel()

	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM receivable_bills
WHERE customer_id=$1 AND status='active' AND collected_amount < amount`, id).Scan(&count)
	if err != nil {
		return 0, db.MapError(err, "customer bills")
	}
	return count, nil
}
