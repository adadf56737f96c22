package vendors

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/ledgerline/internal/platform/db"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// Repository defines vendor data access.
type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Vendor, int, error)
	Get(ctx context.Context, id int64) (Vendor, error)
	Create(ctx context.Context, v Vendor) (Vendor, error)
	Update(ctx context.Context, id int64, v Vendor) error
	SetActive(ctx context.Context, id int64, active bool) error
	// OutstandingBillCount counts active payable bills of the vendor that are
	// not yet fully settled. Deactivation is refused while it is non-zero.
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

const vendorColumns = `id, code, name, contact_person, phone, email, address,
bank_account_name, bank_account_number, bank_ifsc, credit_days, is_active, created_at, updated_at`

func scanVendor(row pgx.Row) (Vendor, error) {
	var v Vendor
	err := row.Scan(&v.ID, &v.Code, &v.Name, &v.ContactPerson, &v.Phone, &v.Email, &v.Address,
		&v.BankAccountName, &v.BankAccountNumber, &v.BankIFSC, &v.CreditDays, &v.IsActive, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

func (r *pgRepository) List(ctx context.Context, filters ListFilters) ([]Vendor, int, error) {
	ctx, cancel := db.Deadline(ctx, r.timeout)
	defer cancel()

	limit := filters.Limit
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx, `SELECT `+vendorColumns+` FROM vendors
WHERE ($1 = '' OR code ILIKE '%'||$1||'%' OR name ILIKE '%'||$1||'%')
  AND (NOT $2 OR is_active)
ORDER BY code LIMIT $3 OFFSET $4`, filters.Search, filters.ActiveOnly, limit, filters.Offset)
	if err != nil {
		return nil, 0, db.MapError(err, "vendors")
	}
	defer rows.Close()

	var out []Vendor
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM vendors
WHERE ($1 = '' OR code ILIKE '%'||$1||'%' OR name ILIKE '%'||$1||'%')
  AND (NOT $2 OR is_active)`, filters.Search, filters.ActiveOnly).Scan(&total)
	if err != nil {
		return nil, 0, db.MapError(err, "vendors")
	}
	return out, total, nil
}

func (r *pgRepository) Get(ctx context.Context, id int64) (Vendor, error) {
	ctx, cancel := db.Deadline(ctx, r.timeout)
	defer cancel()

	v, err := scanVendor(r.pool.QueryRow(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE id=$1`, id))
	if err != nil {
		return Vendor{}, db.MapError(err, "vendor")
	}
	return v, nil
}

func (r *pgRepository) Create(ctx context.Context, v Vendor) (Vendor, error) {
	ctx, cancel := db.Deadline(ctx, r.timeout)
	defer cancel()

	err := r.pool.QueryRow(ctx, `INSERT INTO vendors
(code, name, contact_person, phone, email, address, bank_account_name, bank_account_number, bank_ifsc, credit_days, is_active, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,true,NOW(),NOW())
RETURNING id, created_at, updated_at`,
		v.Code, v.Name, v.ContactPerson, v.Phone, v.Email, v.Address,
		v.BankAccountName, v.BankAccountNumber, v.BankIFSC, v.CreditDays).
		Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Vendor{}, shared.Conflictf("vendor code %s already exists", v.Code)
		}
		return Vendor{}, db.MapError(err, "vendor")
	}
	v.IsActive = true
	return v, nil
}

func (r *pgRepository) Update(ctx context.Context, id int64, v Vendor) error {
	ctx, cancel := db.Deadline(ctx, r.timeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `UPDATE vendors SET
name=$2, contact_person=$3, phone=$4, email=$5, address=$6,
bank_account_name=$7, bank_account_number=$8, bank_ifsc=$9, credit_days=$10, updated_at=NOW()
WHERE id=$1`, id, v.Name, v.ContactPerson, v.Phone, v.Email, v.Address,
		v.BankAccountName, v.BankAccountNumber, v.BankIFSC, v.CreditDays)
	if err != nil {
		return db.MapError(err, "vendor")
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundf("vendor %d not found", id)
	}
	return nil
}

func (r *pgRepository) SetActive(ctx context.Context, id int64, active bool) error {
	ctx, cancel := db.Deadline(ctx, r.timeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `UPDATE vendors SET is_active=$2, updated_at=NOW() WHERE id=$1`, id, active)
	if err != nil {
		return db.MapError(err, "vendor")
	}
	if tag.RowsAffected() == 0 {
		return shared.NotFoundf("vendor %d not found", id)
	}
	return nil
}

func (r *pgRepository) OutstandingBillCount(ctx context.Context, id int64) (int, error) {
	ctx, cancel := db.Deadline(ctx, r.timeout)
	defer cancel()

	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM payable_bills
WHERE vendor_id=$1 AND status='active' AND paid_amount < amount`, id).Scan(&count)
	if err != nil {
		return 0, db.MapError(err, "vendor bills")
	}
	return count, nil
}
