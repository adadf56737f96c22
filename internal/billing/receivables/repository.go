package receivables

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/billing/lifecycle"
	"github.com/ledgerline/ledgerline/internal/platform/db"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// Repository defines receivable bill data access.
type Repository interface {
	Get(ctx context.Context, id int64) (Bill, error)
	List(ctx context.Context, filters ListFilters) ([]Bill, int, error)
	Create(ctx context.Context, bill Bill) (Bill, error)
	Save(ctx context.Context, bill Bill, expectedVersion int) (Bill, error)
	SetDeliveryStatus(ctx context.Context, id int64, status lifecycle.DeliveryStatus) (Bill, error)
	// AddCollection atomically increments collected_amount, refusing the
	// write when it would exceed the invoice amount or the bill is not
	// active.
	AddCollection(ctx context.Context, id int64, amount decimal.Decimal) (Bill, error)
	Cancel(ctx context.Context, id int64, reason string, actorID int64) (Bill, error)
	CustomerState(ctx context.Context, customerID int64) (exists bool, active bool, err error)
}

type pgRepository struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool, timeout time.Duration) Repository {
	return &pgRepository{pool: pool, timeout: timeout}
}

const billColumns = `b.id, b.customer_id, c.name, b.invoice_number, b.invoice_date, b.dispatch_date,
b.amount, b.collected_amount, b.credit_days, b.due_date, b.status, b.delivery_status,
b.delivery_mode, b.delivery_person, b.courier_name, b.remarks,
b.cancel_reason, b.cancelled_by, b.version, b.created_by, b.created_at, b.updated_at`

func scanBill(row pgx.Row) (Bill, error) {
	var b Bill
	err := row.Scan(&b.ID, &b.CustomerID, &b.CustomerName, &b.InvoiceNumber, &b.InvoiceDate, &b.DispatchDate,
		&b.Amount, &b.CollectedAmount, &b.CreditDays, &b.DueDate, &b.Status, &b.DeliveryStatus,
		&b.DeliveryMode, &b.DeliveryPerson, &b.CourierName, &b.Remarks,
		&b.CancelReason, &b.CancelledBy, &b.Version, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return Bill{}, err
	}
	b.CollectionStatus = lifecycle.DerivePaymentStatus(b.Amount, b.CollectedAmount)
	return b, nil
}

func (r *pgRepository) Get(ctx context.Context, id int64) (Bill, error) {
	ctx, cancel := db.Deadline(ctx, r.timeout)
	defer cancel()

	b, err := scanBill(r.pool.QueryRow(ctx, `SELECT `+billColumns+`
FROM receivable_bills b JOIN customers c ON c.id = b.customer_id WHERE b.id=$1`, id))
	if err != nil {
		return Bill{}, db.MapError(err, "receivable bill")
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
WHERE ($1 = 0 OR b.customer_id = $1)
  AND ($2 = '' OR b.invoice_number ILIKE '%'||$2||'%' OR c.name ILIKE '%'||$2||'%')
  AND ($3 = ''
       OR ($3 = 'open' AND b.collected_amount = 0)
       OR ($3 = 'partial' AND b.collected_amount > 0 AND b.collected_amount < b.amount)
       OR ($3 = 'paid' AND b.collected_amount >= b.amount))
  AND ($4 = '' OR b.delivery_status = $4)
  AND (NOT $5 OR (b.status = 'active' AND b.collected_amount < b.amount AND b.due_date < CURRENT_DATE))`

	rows, err := r.pool.Query(ctx, `SELECT `+billColumns+`
FROM receivable_bills b JOIN customers c ON c.id = b.customer_id`+where+`
ORDER BY b.due_date, b.id LIMIT $6 OFFSET $7`,
		filters.CustomerID, filters.Search, string(filters.CollectionStatus),
		string(filters.DeliveryStatus), filters.OverdueOnly, limit, filters.Offset)
	if err != nil {
		return nil, 0, db.MapError(err, "receivable bills")
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
FROM receivable_bills b JOIN customers c ON c.id = b.customer_id`+where,
		filters.CustomerID, filters.Search, string(filters.CollectionStatus),
		string(filters.DeliveryStatus), filters.OverdueOnly).Scan(&total)
	if err != nil {
		return nil, 0, db.MapError(err, "receivable bills")
	}
	return out, total, nil
}

func (r *pgRepository) Create(ctx context.Context, bill Bill) (Bill, error) {
	ctx, cancel := db.Deadline(ctx, r.timeout)
	defer cancel()

	err := r.pool.QueryRow(ctx, `INSERT INTO receivable_bills
(customer_id, invoice_number, invoice_date, dispatch_date, amount, collected_amount, credit_days,
 due_date, status, delivery_status, delivery_mode, delivery_person, courier_name, remarks,
 version, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,0,$6,$7,'active',$8,$9,$10,$11,$12,1,$13,NOW(),NOW())
RETURNING id, created_at, updated_at`,
		bill.CustomerID, bill.InvoiceNumber, bill.InvoiceDate, bill.DispatchDate, bill.Amount,
		bill.CreditDays, bill.DueDate, bill.DeliveryStatus, bill.DeliveryMode,
		bill.DeliveryPerson, bill.CourierName, bill.Remarks, bill.CreatedBy).
		Scan(&bill.ID, &bill.CreatedAt, &bill.UpdatedAt)
	if err != nil {
		return Bill{}, db.MapError(err, "receivable bill")
	}
	bill.Status = StatusActive
	bill.Version = 1
	bill.CollectionStatus = lifecycle.PaymentOpen
	return bill, nil
}

func (r *pgRepository) Save(ctx context.Context, bill Bill, expectedVersion int) (Bill, error) {
	ctx, cancel := db.Deadline(ctx, r.timeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `UPDATE receivable_bills SET
invoice_number=$3, invoice_date=$4, dispatch_date=$5, amount=$6, credit_days=$7, due_date=$8,
remarks=$9, version=version+1, updated_at=NOW()
WHERE id=$1 AND version=$2`,
		bill.ID, expectedVersion, bill.InvoiceNumber, bill.InvoiceDate, bill.DispatchDate,
		bill.Amount, bill.CreditDays, bill.DueDate, bill.Remarks)
	if err != nil {
		return Bill{}, db.MapError(err, "receivable bill")
	}
	if tag.RowsAffected() == 0 {
		return Bill{}, shared.Conflictf("receivable bill %d was modified concurrently (expected version %d)", bill.ID, expectedVersion)
	}
	return r.Get(ctx, bill.ID)
}

func (r *pgRepository) SetDeliveryStatus(ctx context.Context, id int64, status lifecycle.DeliveryStatus) (Bill, error) {
	ctx, cancel := db.Deadline(ctx, r.timeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `UPDATE receivable_bills SET
delivery_status=$2, version=version+1, updated_at=NOW()
WHERE id=$1 AND status='active'`, id, status)
	if err != nil {
		return Bill{}, db.MapError(err, "receivable bill")
	}
	if tag.RowsAffected() == 0 {
		return Bill{}, shared.Conflictf("receivable bill %d is not active", id)
	}
	return r.Get(ctx, id)
}

func (r *pgRepository) AddCollection(ctx context.Context, id int64, amount decimal.Decimal) (Bill, error) {
	ctx, cancel := db.Deadline(ctx, r.timeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `UPDATE receivable_bills SET
collected_amount = collected_amount + $2, version=version+1, updated_at=NOW()
WHERE id=$1 AND status='active' AND collected_amount + $2 <= amount`, id, amount)
	if err != nil {
		return Bill{}, db.MapError(err, "receivable bill")
	}
	if tag.RowsAffected() == 0 {
		return Bill{}, shared.Conflictf("collection on bill %d exceeds the outstanding amount or the bill is not active", id)
	}
	return r.Get(ctx, id)
}

func (r *pgRepository) Cancel(ctx context.Context, id int64, reason string, actorID int64) (Bill, error) {
	ctx, cancel := db.Deadline(ctx, r.timeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `UPDATE receivable_bills SET
status='cancelled', cancel_reason=$2, cancelled_by=$3, version=version+1, updated_at=NOW()
WHERE id=$1 AND status='active' AND collected_amount = 0`, id, reason, actorID)
	if err != nil {
		return Bill{}, db.MapError(err, "receivable bill")
	}
	if tag.RowsAffected() == 0 {
		return Bill{}, shared.Conflictf("receivable bill %d cannot be cancelled", id)
	}
	return r.Get(ctx, id)
}

func (r *pgRepository) CustomerState(ctx context.Context, customerID int64) (bool, bool, error) {
	ctx, cancel := db.Deadline(ctx, r.timeout)
	defer cancel()

	var active bool
	err := r.pool.QueryRow(ctx, `SELECT is_active FROM customers WHERE id=$1`, customerID).Scan(&active)
	if err != nil {
		if shared.IsKind(db.MapError(err, "customer"), shared.KindNotFound) {
			return false, false, nil
		}
		return false, false, db.MapError(err, "customer")
	}
	return true, active, nil
}
