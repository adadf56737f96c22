package payments

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/platform/db"
	"github.com/ledgerline/ledgerline/internal/proposals"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// ApprovedItem is one owner-approved proposal item ready for payment.
type ApprovedItem struct {
	ItemID      int64
	BillID      int64
	OwnerAmount decimal.Decimal
}

// ProposalSnapshot is what batch generation needs from a locked proposal.
type ProposalSnapshot struct {
	ID            int64
	Status        proposals.Status
	ApprovedItems []ApprovedItem
}

// Repository provides payment persistence. All mutations run under WithTx.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Payment, error)
	List(ctx context.Context, filters ListFilters) ([]Payment, int, error)
	BankExportRows(ctx context.Context, paymentID int64) ([]BankExportRow, error)
}

// TxRepository is the transactional slice of the repository.
type TxRepository interface {
	// ProposalForUpdate locks the proposal row so two concurrent batch
	// generations serialise on the completed check.
	ProposalForUpdate(ctx context.Context, proposalID int64) (ProposalSnapshot, error)
	InsertPayment(ctx context.Context, p Payment) (Payment, error)
	CompleteProposal(ctx context.Context, proposalID int64) error
	DetailForUpdate(ctx context.Context, detailID int64) (Detail, error)
	ConfirmDetail(ctx context.Context, detailID int64, utr string) error
	// AddBillPaid increments the bill's paid amount, refusing a write that
	// would push it past the bill amount.
	AddBillPaid(ctx context.Context, billID int64, amount decimal.Decimal) error
	MarkItemPaid(ctx context.Context, itemID int64) error
	PendingUTRCount(ctx context.Context, paymentID int64) (int, error)
	SetPaymentStatus(ctx context.Context, paymentID int64, status Status) error
}

type pgRepository struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool, timeout time.Duration) Repository {
	return &pgRepository{pool: pool, timeout: timeout}
}

func (r *pgRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	ctx, cancel := db.Deadline(ctx, r.timeout)
	defer cancel()

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTxRepository{tx: tx})
	})
	return db.MapError(err, "payment transaction")
}

const paymentColumns = `p.id, p.number, p.proposal_id, p.payment_date, p.total_amount,
p.bank_account_id, p.status, p.created_by, p.created_at, p.updated_at`

const detailColumns = `d.id, d.payment_id, d.bill_id, b.bill_number, v.name,
d.proposal_item_id, d.amount, d.utr_number, d.status`

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.Number, &p.ProposalID, &p.PaymentDate, &p.TotalAmount,
		&p.BankAccountID, &p.Status, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func scanDetail(row pgx.Row) (Detail, error) {
	var d Detail
	err := row.Scan(&d.ID, &d.PaymentID, &d.BillID, &d.BillNumber, &d.VendorName,
		&d.ProposalItemID, &d.Amount, &d.UTRNumber, &d.Status)
	return d, err
}

func loadDetails(ctx context.Context, q interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}, paymentID int64) ([]Detail, error) {
	rows, err := q.Query(ctx, `SELECT `+detailColumns+`
FROM payment_details d
JOIN payable_bills b ON b.id = d.bill_id
JOIN vendors v ON v.id = b.vendor_id
WHERE d.payment_id = $1
ORDER BY d.id`, paymentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Detail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *pgRepository) Get(ctx context.Context, id int64) (Payment, error) {
	ctx, cancel := db.Deadline(ctx, r.timeout)
	defer cancel()

	p, err := scanPayment(r.pool.QueryRow(ctx, `SELECT `+paymentColumns+`
FROM payments p WHERE p.id=$1`, id))
	if err != nil {
		return Payment{}, db.MapError(err, "payment")
	}
	p.Details, err = loadDetails(ctx, r.pool, id)
	if err != nil {
		return Payment{}, db.MapError(err, "payment details")
	}
	return p, nil
}

func (r *pgRepository) List(ctx context.Context, filters ListFilters) ([]Payment, int, error) {
	ctx, cancel := db.Deadline(ctx, r.timeout)
	defer cancel()

	limit := filters.Limit
	if limit <= 0 {
		limit = 20
	}

	const where = `
WHERE ($1 = '' OR p.status = $1)
  AND ($2 = 0 OR p.proposal_id = $2)`

	rows, err := r.pool.Query(ctx, `SELECT `+paymentColumns+`
FROM payments p`+where+`
ORDER BY p.id DESC LIMIT $3 OFFSET $4`,
		string(filters.Status), filters.ProposalID, limit, filters.Offset)
	if err != nil {
		return nil, 0, db.MapError(err, "payments")
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM payments p`+where,
		string(filters.Status), filters.ProposalID).Scan(&total)
	if err != nil {
		return nil, 0, db.MapError(err, "payments")
	}
	return out, total, nil
}

func (r *pgRepository) BankExportRows(ctx context.Context, paymentID int64) ([]BankExportRow, error) {
	ctx, cancel := db.Deadline(ctx, r.timeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `SELECT
p.number, p.payment_date, d.id, b.bill_number, v.name,
v.bank_account_name, v.bank_account_number, v.bank_ifsc, d.amount
FROM payment_details d
JOIN payments p ON p.id = d.payment_id
JOIN payable_bills b ON b.id = d.bill_id
JOIN vendors v ON v.id = b.vendor_id
WHERE d.payment_id = $1
ORDER BY d.id`, paymentID)
	if err != nil {
		return nil, db.MapError(err, "bank export")
	}
	defer rows.Close()

	var out []BankExportRow
	for rows.Next() {
		var row BankExportRow
		if err := rows.Scan(&row.PaymentNumber, &row.PaymentDate, &row.DetailID,
			&row.BillNumber, &row.VendorName, &row.BankAccountName,
			&row.BankAccountNo, &row.BankIFSC, &row.Amount); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type pgTxRepository struct {
	tx pgx.Tx
}

func (r *pgTxRepository) ProposalForUpdate(ctx context.Context, proposalID int64) (ProposalSnapshot, error) {
	var snap ProposalSnapshot
	err := r.tx.QueryRow(ctx, `SELECT id, status FROM proposals WHERE id=$1 FOR UPDATE`, proposalID).
		Scan(&snap.ID, &snap.Status)
	if err != nil {
		return ProposalSnapshot{}, db.MapError(err, "proposal")
	}

	rows, err := r.tx.Query(ctx, `SELECT id, bill_id, owner_amount
FROM proposal_items
WHERE proposal_id = $1 AND owner_status = 'approved' AND NOT settled
ORDER BY id FOR UPDATE`, proposalID)
	if err != nil {
		return ProposalSnapshot{}, db.MapError(err, "proposal items")
	}
	defer rows.Close()

	for rows.Next() {
		var item ApprovedItem
		if err := rows.Scan(&item.ItemID, &item.BillID, &item.OwnerAmount); err != nil {
			return ProposalSnapshot{}, err
		}
		snap.ApprovedItems = append(snap.ApprovedItems, item)
	}
	return snap, rows.Err()
}

func (r *pgTxRepository) InsertPayment(ctx context.Context, p Payment) (Payment, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO payments
(number, proposal_id, payment_date, total_amount, bank_account_id, status, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,NOW(),NOW())
RETURNING id, created_at, updated_at`,
		p.Number, p.ProposalID, p.PaymentDate, p.TotalAmount, p.BankAccountID, p.Status, p.CreatedBy).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Payment{}, shared.Conflictf("payment number %s already exists", p.Number)
		}
		return Payment{}, db.MapError(err, "payment")
	}
	for idx := range p.Details {
		d := &p.Details[idx]
		d.PaymentID = p.ID
		err := r.tx.QueryRow(ctx, `INSERT INTO payment_details
(payment_id, bill_id, proposal_item_id, amount, status)
VALUES ($1,$2,$3,$4,'pending')
RETURNING id`, p.ID, d.BillID, d.ProposalItemID, d.Amount).Scan(&d.ID)
		if err != nil {
			return Payment{}, db.MapError(err, "payment detail")
		}
		d.Status = DetailPending
	}
	return p, nil
}

func (r *pgTxRepository) CompleteProposal(ctx context.Context, proposalID int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE proposals SET status='completed', updated_at=NOW() WHERE id=$1`, proposalID)
	return db.MapError(err, "proposal")
}

func (r *pgTxRepository) DetailForUpdate(ctx context.Context, detailID int64) (Detail, error) {
	d, err := scanDetail(r.tx.QueryRow(ctx, `SELECT `+detailColumns+`
FROM payment_details d
JOIN payable_bills b ON b.id = d.bill_id
JOIN vendors v ON v.id = b.vendor_id
WHERE d.id=$1 FOR UPDATE OF d`, detailID))
	if err != nil {
		return Detail{}, db.MapError(err, "payment detail")
	}
	return d, nil
}

func (r *pgTxRepository) ConfirmDetail(ctx context.Context, detailID int64, utr string) error {
	tag, err := r.tx.Exec(ctx, `UPDATE payment_details SET
utr_number=$2, status='confirmed' WHERE id=$1 AND status='pending'`, detailID, utr)
	if err != nil {
		return db.MapError(err, "payment detail")
	}
	if tag.RowsAffected() == 0 {
		return shared.Conflictf("payment detail %d is already confirmed", detailID)
	}
	return nil
}

func (r *pgTxRepository) AddBillPaid(ctx context.Context, billID int64, amount decimal.Decimal) error {
	tag, err := r.tx.Exec(ctx, `UPDATE payable_bills SET
paid_amount = paid_amount + $2, version=version+1, updated_at=NOW()
WHERE id=$1 AND paid_amount + $2 <= amount`, billID, amount)
	if err != nil {
		return db.MapError(err, "payable bill")
	}
	if tag.RowsAffected() == 0 {
		return shared.Conflictf("settlement of %s would overpay bill %d", amount.String(), billID)
	}
	return nil
}

func (r *pgTxRepository) MarkItemPaid(ctx context.Context, itemID int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE proposal_items SET settled=TRUE, status='paid' WHERE id=$1`, itemID)
	return db.MapError(err, "proposal item")
}

func (r *pgTxRepository) PendingUTRCount(ctx context.Context, paymentID int64) (int, error) {
	var count int
	err := r.tx.QueryRow(ctx, `SELECT COUNT(*) FROM payment_details
WHERE payment_id=$1 AND utr_number IS NULL`, paymentID).Scan(&count)
	if err != nil {
		return 0, db.MapError(err, "payment details")
	}
	return count, nil
}

func (r *pgTxRepository) SetPaymentStatus(ctx context.Context, paymentID int64, status Status) error {
	_, err := r.tx.Exec(ctx, `UPDATE payments SET status=$2, updated_at=NOW() WHERE id=$1`, paymentID, status)
	return db.MapError(err, "payment")
}
