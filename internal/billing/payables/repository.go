package payables

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ledgerline/ledgerline/internal/billing/lifecycle"
	"github.com/ledgerline/ledgerline/internal/platform/db"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// Repository defines payable bill data access.
type Repository interface {
	Get(ctx context.Context, id int64) (Bill, error)
	List(ctx context.Context, filters ListFilters) ([]Bill, int, error)
	Create(ctx context.Context, bill Bill) (Bill, error)
	// Save writes the mutable fields of bill and bumps the version. The
	// write only succeeds when the stored version still equals
	// expectedVersion; otherwise a conflict error is returned.
	Save(ctx context.Context, bill Bill, expectedVersion int) (Bill, error)
	Cancel(ctx context.Context, id int64, reason string, actorID int64) (Bill, error)
	// VendorState reports whether the vendor exists and is active.
	VendorState(ctx context.Context, vendorID int64) (exists bool, active bool, err error)
}

type pgRepository struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool, timeout time.Duration) Repository {
	return &pgRepository{pool: pool, timeout: timeout}
}

const billColumns = `b.id, b.vendor_id, v.name, b.bill_number, b.invoice_date, b.receiving_date,
b.amount, b.paid_amount, b.credit_days, b.due_date, b.status, b.checked_by, b.remarks,
b.cancel_reason, b.cancelled_by, b.version, b.created_by, b.created_at, b.updated_at`

func scanBill(row pgx.Row) (Bill, error) {
	var b Bill
	err := row.Scan(&b.ID, &b.VendorID, &b.VendorName, &b.BillNumber, &b.InvoiceDate, &b.ReceivingDate,
		&b.Amount, &b.PaidAmount, &b.CreditDays, &b.DueDate, &b.Status, &b.CheckedBy, &b.Remarks,
		&b.CancelReason, &b.CancelledBy, &b.Version, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return Bill{}, err
	}
	b.PaymentStatus = lifecycle.DerivePaymentStatus(b.Amount, b.PaidAmount)
	return b, nil
}

func (r *pgRepository) Get(ctx context.Context, id int64) (Bill, error) {
	ctx, cancel := db.Deadline(ctx, r.timeout)
	defer cancel()

	b, err := scanBill(r.pool.QueryRow(ctx, `SELECT `+billColumns+`
FROM payable_bills b JOIN vendors v ON v.id = b.vendor_id WHERE b.id=$1`, id))
	if err != nil {
		return Bill{}, db.MapError(err, "payable bill")
	}
	return b, nil
}

func (r *pgRepository) List(ctx context.Context, filters ListFilters) ([]Bill, int, error) {
	ctx, cancel := db.Deadline(ctx, r.timeout)
	defer cancel()

	limit := filters.Limit
	if limit <= 0 {
		limit = 20
	}

	const where = `
WHERE ($1 = 0 OR b.vendor_id = $1)
  AND ($2 = '' OR b.bill_number ILIKE '%'||$2||'%' OR v.name ILIKE '%'||$2||'%')
  AND ($3 = ''
       OR ($3 = 'open' AND b.paid_amount = 0)
       OR ($3 = 'partial' AND b.paid_amount > 0 AND b.paid_amount < b.amount)
       OR ($3 = 'paid' AND b.paid_amount >= b.amount))
  AND (NOT $4 OR (b.status = 'active' AND b.paid_amount < b.amount AND b.due_date < CURRENT_DATE))`

	rows, err := r.pool.Query(ctx, `SELECT `+billColumns+`
FROM payable_bills b JOIN vendors v ON v.id = b.vendor_id`+where+`
ORDER BY b.due_date, b.id LIMIT $5 OFFSET $6`,
		filters.VendorID, filters.Search, string(filters.PaymentStatus), filters.OverdueOnly, limit, filters.Offset)
	if err != nil {
		return nil, 0, db.MapError(err, "payable bills")
	}
	defer rows.Close()

	var out []Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	err = r.pool.QueryRow(ctx, `SELECT COUNT(*)
FROM payable_bills b JOIN vendors v ON v.id = b.vendor_id`+where,
		filters.VendorID, filters.Search, string(filters.PaymentStatus), filters.OverdueOnly).Scan(&total)
	if err != nil {
		return nil, 0, db.MapError(err, "payable bills")
	}
	return out, total, nil
}

func (r *pgRepository) Create(ctx context.Context, bill Bill) (Bill, error) {
	ctx, cancel := db.Deadline(ctx, r.timeout)
	defer cancel()

	err := r.pool.QueryRow(ctx, `INSERT INTO payable_bills
(vendor_id, bill_number, invoice_date, receiving_date, amount, paid_amount, credit_days, due_date,
 status, checked_by, remarks, version, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,0,$6,$7,'active',$8,$9,1,$10,NOW(),NOW())
RETURNING id, created_at, updated_at`,
		bill.VendorID, bill.BillNumber, bill.InvoiceDate, bill.ReceivingDate, bill.Amount,
		bill.CreditDays, bill.DueDate, bill.CheckedBy, bill.Remarks, bill.CreatedBy).
		Scan(&bill.ID, &bill.CreatedAt, &bill.UpdatedAt)
	if err != nil {
		return Bill{}, db.MapError(err, "payable bill")
	}
	bill.Status = StatusActive
	bill.Version = 1
	bill.PaymentStatus = lifecycle.PaymentOpen
	return bill, nil
}

func (r *pgRepository) Save(ctx context.Context, bill Bill, expectedVersion int) (Bill, error) {
	ctx, cancel := db.Deadline(ctx, r.timeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `UPDATE payable_bills SET
bill_number=$3, invoice_date=$4, receiving_date=$5, amount=$6, credit_days=$7, due_date=$8,
checked_by=$9, remarks=$10, version=version+1, updated_at=NOW()
WHERE id=$1 AND version=$2`,
		bill.ID, expectedVersion, bill.BillNumber, bill.InvoiceDate, bill.ReceivingDate,
		bill.Amount, bill.CreditDays, bill.DueDate, bill.CheckedBy, bill.Remarks)
	if err != nil {
		return Bill{}, db.MapError(err, "payable bill")
	}
	if tag.RowsAffected() == 0 {
		return Bill{}, shared.Conflictf("payable bill %d was modified concurrently (expected version %d)", bill.ID, expectedVersion)
	}
	return r.Get(ctx, bill.ID)
}

func (r *pgRepository) Cancel(ctx context.Context, id int64, reason string, actorID int64) (Bill, error) {
	ctx, cancel := db.Deadline(ctx, r.timeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `UPDATE payable_bills SET
status='cancelled', cancel_reason=$2, cancelled_by=$3, version=version+1, updated_at=NOW()
WHERE id=$1 AND status='active' AND paid_amount = 0`, id, reason, actorID)
	if err != nil {
		return Bill{}, db.MapError(err, "payable bill")
	}
	if tag.RowsAffected() == 0 {
		return Bill{}, shared.Conflictf("payable bill %d cannot be cancelled", id)
	}
	return r.Get(ctx, id)
}

func (r *pgRepository) VendorState(ctx context.Context, vendorID int64) (bool, bool, error) {
	ctx, cancel := db.Deadline(ctx, r.timeout)
	defer cancel()

	var active bool
	err := r.pool.QueryRow(ctx, `SELECT is_active FROM vendors WHERE id=$1`, vendorID).Scan(&active)
	if err != nil {
		if shared.IsKind(db.MapError(err, "vendor"), shared.KindNotFound) {
			return false, false, nil
		}
		return false, false, db.MapError(err, "vendor")
	}
	return true, active, nil
}
