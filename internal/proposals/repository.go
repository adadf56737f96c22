package proposals

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/platform/db"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// BillSnapshot is what eligibility needs to know about one payable bill.
type BillSnapshot struct {
	BillID      int64
	Active      bool
	Outstanding decimal.Decimal
	// Blocked is true while a live item on a non-terminal proposal still
	// claims the bill.
	Blocked bool
}

// Repository provides proposal persistence. Decision flows run under WithTx
// so the composite status never races between accounts and owner.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Proposal, error)
	List(ctx context.Context, filters ListFilters) ([]Proposal, int, error)
	AvailableBills(ctx context.Context) ([]AvailableBill, error)
}

// TxRepository is the transactional slice of the repository. GetForUpdate
// locks the proposal row and its items for the duration of the transaction.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id int64) (Proposal, error)
	InsertProposal(ctx context.Context, p Proposal) (Proposal, error)
	SetStatus(ctx context.Context, id int64, status Status) error
	UpdateItemAccounts(ctx context.Context, item Item) error
	UpdateItemOwner(ctx context.Context, item Item) error
	DeleteDraft(ctx context.Context, id int64) error
	BillSnapshots(ctx context.Context, billIDs []int64) (map[int64]BillSnapshot, error)
	RecordApproval(ctx context.Context, log shared.ApprovalLog) error
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
	return db.MapError(err, "proposal transaction")
}

const proposalColumns = `p.id, p.number, p.proposal_date, p.payment_date, p.total_amount,
p.status, p.created_by, p.created_at, p.updated_at`

const itemColumns = `i.id, i.proposal_id, i.bill_id, b.bill_number, v.name, i.proposed_amount,
i.accounts_status, i.accounts_amount, i.accounts_reason, i.accounts_by, i.accounts_at,
i.owner_status, i.owner_amount, i.owner_reason, i.owner_by, i.owner_at, i.settled, i.status`

func scanProposal(row pgx.Row) (Proposal, error) {
	var p Proposal
	err := row.Scan(&p.ID, &p.Number, &p.ProposalDate, &p.PaymentDate, &p.TotalAmount,
		&p.Status, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.ProposalID, &it.BillID, &it.BillNumber, &it.VendorName, &it.ProposedAmount,
		&it.AccountsStatus, &it.AccountsAmount, &it.AccountsReason, &it.AccountsBy, &it.AccountsAt,
		&it.OwnerStatus, &it.OwnerAmount, &it.OwnerReason, &it.OwnerBy, &it.OwnerAt, &it.Settled, &it.Status)
	return it, err
}

func loadItems(ctx context.Context, q interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}, proposalID int64, forUpdate bool) ([]Item, error) {
	sql := `SELECT ` + itemColumns + `
FROM proposal_items i
JOIN payable_bills b ON b.id = i.bill_id
JOIN vendors v ON v.id = b.vendor_id
WHERE i.proposal_id = $1
ORDER BY i.id`
	if forUpdate {
		sql += ` FOR UPDATE OF i`
	}
	rows, err := q.Query(ctx, sql, proposalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *pgRepository) Get(ctx context.Context, id int64) (Proposal, error) {
	ctx, cancel := db.Deadline(ctx, r.timeout)
	defer cancel()

	p, err := scanProposal(r.pool.QueryRow(ctx, `SELECT `+proposalColumns+`
FROM proposals p WHERE p.id=$1`, id))
	if err != nil {
		return Proposal{}, db.MapError(err, "proposal")
	}
	p.Items, err = loadItems(ctx, r.pool, id, false)
	if err != nil {
		return Proposal{}, db.MapError(err, "proposal items")
	}
	return p, nil
}

func (r *pgRepository) List(ctx context.Context, filters ListFilters) ([]Proposal, int, error) {
	ctx, cancel := db.Deadline(ctx, r.timeout)
	defer cancel()

	limit := filters.Limit
	if limit <= 0 {
		limit = 20
	}

	const where = `
WHERE ($1 = '' OR p.status = $1)
  AND ($2 = 0 OR p.created_by = $2)`

	rows, err := r.pool.Query(ctx, `SELECT `+proposalColumns+`
FROM proposals p`+where+`
ORDER BY p.id DESC LIMIT $3 OFFSET $4`,
		string(filters.Status), filters.CreatedBy, limit, filters.Offset)
	if err != nil {
		return nil, 0, db.MapError(err, "proposals")
	}
	defer rows.Close()

	var out []Proposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	err = r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM proposals p`+where,
		string(filters.Status), filters.CreatedBy).Scan(&total)
	if err != nil {
		return nil, 0, db.MapError(err, "proposals")
	}
	return out, total, nil
}

// AvailableBills surfaces active unpaid bills not claimed by a live item.
// Bills whose latest item was carried forward come back flagged.
func (r *pgRepository) AvailableBills(ctx context.Context) ([]AvailableBill, error) {
	ctx, cancel := db.Deadline(ctx, r.timeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `SELECT
b.id, b.bill_number, b.vendor_id, v.name, b.due_date, b.amount, b.paid_amount,
EXISTS (
  SELECT 1 FROM proposal_items i
  JOIN proposals p ON p.id = i.proposal_id
  WHERE i.bill_id = b.id AND i.status = 'carry_forward'
    AND p.status NOT IN ('rejected','completed')
) AS carry_forward
FROM payable_bills b
JOIN vendors v ON v.id = b.vendor_id
WHERE b.status = 'active'
  AND b.paid_amount < b.amount
  AND NOT EXISTS (
    SELECT 1 FROM proposal_items i
    JOIN proposals p ON p.id = i.proposal_id
    WHERE i.bill_id = b.id
      AND p.status NOT IN ('rejected','completed')
      AND i.status NOT IN ('owner_rejected','paid','carry_forward')
  )
ORDER BY b.due_date, b.id`)
	if err != nil {
		return nil, db.MapError(err, "available bills")
	}
	defer rows.Close()

	var out []AvailableBill
	for rows.Next() {
		var ab AvailableBill
		if err := rows.Scan(&ab.BillID, &ab.BillNumber, &ab.VendorID, &ab.VendorName,
			&ab.DueDate, &ab.Amount, &ab.PaidAmount, &ab.CarryForward); err != nil {
			return nil, err
		}
		ab.Outstanding = ab.Amount.Sub(ab.PaidAmount)
		out = append(out, ab)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

type pgTxRepository struct {
	tx pgx.Tx
}

func (r *pgTxRepository) GetForUpdate(ctx context.Context, id int64) (Proposal, error) {
	p, err := scanProposal(r.tx.QueryRow(ctx, `SELECT `+proposalColumns+`
FROM proposals p WHERE p.id=$1 FOR UPDATE`, id))
	if err != nil {
		return Proposal{}, db.MapError(err, "proposal")
	}
	p.Items, err = loadItems(ctx, r.tx, id, true)
	if err != nil {
		return Proposal{}, db.MapError(err, "proposal items")
	}
	return p, nil
}

func (r *pgTxRepository) InsertProposal(ctx context.Context, p Proposal) (Proposal, error) {
	err := r.tx.QueryRow(ctx, `INSERT INTO proposals
(number, proposal_date, payment_date, total_amount, status, created_by, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,NOW(),NOW())
RETURNING id, created_at, updated_at`,
		p.Number, p.ProposalDate, p.PaymentDate, p.TotalAmount, p.Status, p.CreatedBy).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return Proposal{}, shared.Conflictf("proposal number %s already exists", p.Number)
		}
		return Proposal{}, db.MapError(err, "proposal")
	}
	for idx := range p.Items {
		it := &p.Items[idx]
		it.ProposalID = p.ID
		err := r.tx.QueryRow(ctx, `INSERT INTO proposal_items
(proposal_id, bill_id, proposed_amount, accounts_status, owner_status, settled, status)
VALUES ($1,$2,$3,'pending','pending',FALSE,'proposed')
RETURNING id`, p.ID, it.BillID, it.ProposedAmount).Scan(&it.ID)
		if err != nil {
			return Proposal{}, db.MapError(err, "proposal item")
		}
		it.AccountsStatus = AccountsPending
		it.OwnerStatus = OwnerPending
		it.Status = ItemProposed
	}
	return p, nil
}

func (r *pgTxRepository) SetStatus(ctx context.Context, id int64, status Status) error {
	_, err := r.tx.Exec(ctx, `UPDATE proposals SET status=$2, updated_at=NOW() WHERE id=$1`, id, status)
	return db.MapError(err, "proposal")
}

func (r *pgTxRepository) UpdateItemAccounts(ctx context.Context, item Item) error {
	_, err := r.tx.Exec(ctx, `UPDATE proposal_items SET
accounts_status=$2, accounts_amount=$3, accounts_reason=$4, accounts_by=$5, accounts_at=$6, status=$7
WHERE id=$1`,
		item.ID, item.AccountsStatus, item.AccountsAmount, item.AccountsReason,
		item.AccountsBy, item.AccountsAt, item.Status)
	return db.MapError(err, "proposal item")
}

func (r *pgTxRepository) UpdateItemOwner(ctx context.Context, item Item) error {
	_, err := r.tx.Exec(ctx, `UPDATE proposal_items SET
owner_status=$2, owner_amount=$3, owner_reason=$4, owner_by=$5, owner_at=$6, status=$7
WHERE id=$1`,
		item.ID, item.OwnerStatus, item.OwnerAmount, item.OwnerReason,
		item.OwnerBy, item.OwnerAt, item.Status)
	return db.MapError(err, "proposal item")
}

func (r *pgTxRepository) DeleteDraft(ctx context.Context, id int64) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM proposal_items WHERE proposal_id=$1`, id); err != nil {
		return db.MapError(err, "proposal items")
	}
	tag, err := r.tx.Exec(ctx, `DELETE FROM proposals WHERE id=$1 AND status='draft'`, id)
	if err != nil {
		return db.MapError(err, "proposal")
	}
	if tag.RowsAffected() == 0 {
		return shared.Conflictf("proposal %d is not a draft", id)
	}
	return nil
}

// RecordApproval writes a decision history row inside the transaction so
// history rolls back with the decisions it describes. Identical rows are
// written at most once.
func (r *pgTxRepository) RecordApproval(ctx context.Context, log shared.ApprovalLog) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO approvals (module, ref_id, actor_id, action, note, at)
SELECT $1, $2, $3, $4, $5, NOW()
WHERE NOT EXISTS (
    SELECT 1 FROM approvals WHERE module=$1 AND ref_id=$2 AND actor_id=$3 AND action=$4 AND note=$5
)`, log.Module, log.RefID, log.ActorID, string(log.Action), log.Note)
	return db.MapError(err, "approval")
}

func (r *pgTxRepository) BillSnapshots(ctx context.Context, billIDs []int64) (map[int64]BillSnapshot, error) {
	rows, err := r.tx.Query(ctx, `SELECT
b.id, b.status = 'active', b.amount - b.paid_amount,
EXISTS (
  SELECT 1 FROM proposal_items i
  JOIN proposals p ON p.id = i.proposal_id
  WHERE i.bill_id = b.id
    AND p.status NOT IN ('rejected','completed')
    AND i.status NOT IN ('owner_rejected','paid','carry_forward')
) AS blocked
FROM payable_bills b WHERE b.id = ANY($1) FOR UPDATE OF b`, billIDs)
	if err != nil {
		return nil, db.MapError(err, "payable bills")
	}
	defer rows.Close()

	out := make(map[int64]BillSnapshot, len(billIDs))
	for rows.Next() {
		var s BillSnapshot
		if err := rows.Scan(&s.BillID, &s.Active, &s.Outstanding, &s.Blocked); err != nil {
			return nil, err
		}
		out[s.BillID] = s
	}
	return out, rows.Err()
}
