package payments

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/authz"
	"github.com/ledgerline/ledgerline/internal/proposals"
	"github.com/ledgerline/ledgerline/internal/shared"
)

type memBill struct {
	amount decimal.Decimal
	paid   decimal.Decimal
}

type memItem struct {
	billID      int64
	ownerStatus proposals.OwnerStatus
	ownerAmount decimal.Decimal
	settled     bool
	status      proposals.ItemStatus
}

type memProposal struct {
	status proposals.Status
	items  []int64
}

type memoryRepo struct {
	bills       map[int64]*memBill
	items       map[int64]*memItem
	proposals   map[int64]*memProposal
	payments    map[int64]*Payment
	nextPayID   int64
	nextDetView int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		bills:     make(map[int64]*memBill),
		items:     make(map[int64]*memItem),
		proposals: make(map[int64]*memProposal),
		payments:  make(map[int64]*Payment),
	}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Payment, error) {
	p, ok := r.payments[id]
	if !ok {
		return Payment{}, shared.NotFoundf("payment %d not found", id)
	}
	out := *p
	out.Details = append([]Detail(nil), p.Details...)
	return out, nil
}

func (r *memoryRepo) List(ctx context.Context, filters ListFilters) ([]Payment, int, error) {
	var out []Payment
	for _, p := range r.payments {
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (r *memoryRepo) BankExportRows(ctx context.Context, paymentID int64) ([]BankExportRow, error) {
	p, ok := r.payments[paymentID]
	if !ok {
		return nil, shared.NotFoundf("payment %d not found", paymentID)
	}
	var out []BankExportRow
	for _, d := range p.Details {
		out = append(out, BankExportRow{
			PaymentNumber: p.Number,
			DetailID:      d.ID,
			Amount:        d.Amount,
		})
	}
	return out, nil
}

type memoryTx struct {
	repo *memoryRepo
}

func (t *memoryTx) ProposalForUpdate(ctx context.Context, proposalID int64) (ProposalSnapshot, error) {
	p, ok := t.repo.proposals[proposalID]
	if !ok {
		return ProposalSnapshot{}, shared.NotFoundf("proposal %d not found", proposalID)
	}
	snap := ProposalSnapshot{ID: proposalID, Status: p.status}
	for _, itemID := range p.items {
		item := t.repo.items[itemID]
		if item.ownerStatus == proposals.OwnerApproved && !item.settled {
			snap.ApprovedItems = append(snap.ApprovedItems, ApprovedItem{
				ItemID:      itemID,
				BillID:      item.billID,
				OwnerAmount: item.ownerAmount,
			})
		}
	}
	return snap, nil
}

func (t *memoryTx) InsertPayment(ctx context.Context, p Payment) (Payment, error) {
	t.repo.nextPayID++
	p.ID = t.repo.nextPayID
	for idx := range p.Details {
		t.repo.nextDetView++
		p.Details[idx].ID = t.repo.nextDetView
		p.Details[idx].PaymentID = p.ID
		p.Details[idx].Status = DetailPending
	}
	stored := p
	stored.Details = append([]Detail(nil), p.Details...)
	t.repo.payments[p.ID] = &stored
	return p, nil
}

func (t *memoryTx) CompleteProposal(ctx context.Context, proposalID int64) error {
	t.repo.proposals[proposalID].status = proposals.StatusCompleted
	return nil
}

func (t *memoryTx) DetailForUpdate(ctx context.Context, detailID int64) (Detail, error) {
	for _, p := range t.repo.payments {
		for _, d := range p.Details {
			if d.ID == detailID {
				return d, nil
			}
		}
	}
	return Detail{}, shared.NotFoundf("payment detail %d not found", detailID)
}

func (t *memoryTx) ConfirmDetail(ctx context.Context, detailID int64, utr string) error {
	for _, p := range t.repo.payments {
		for idx := range p.Details {
			if p.Details[idx].ID == detailID {
				if p.Details[idx].Status != DetailPending {
					return shared.Conflictf("payment detail %d is already confirmed", detailID)
				}
				p.Details[idx].UTRNumber = &utr
				p.Details[idx].Status = DetailConfirmed
				return nil
			}
		}
	}
	return shared.NotFoundf("payment detail %d not found", detailID)
}

func (t *memoryTx) AddBillPaid(ctx context.Context, billID int64, amount decimal.Decimal) error {
	b, ok := t.repo.bills[billID]
	if !ok || b.paid.Add(amount).GreaterThan(b.amount) {
		return shared.Conflictf("settlement of %s would overpay bill %d", amount.String(), billID)
	}
	b.paid = b.paid.Add(amount)
	return nil
}

func (t *memoryTx) MarkItemPaid(ctx context.Context, itemID int64) error {
	item := t.repo.items[itemID]
	item.settled = true
	item.status = proposals.ItemPaid
	return nil
}

func (t *memoryTx) PendingUTRCount(ctx context.Context, paymentID int64) (int, error) {
	count := 0
	for _, d := range t.repo.payments[paymentID].Details {
		if d.UTRNumber == nil {
			count++
		}
	}
	return count, nil
}

func (t *memoryTx) SetPaymentStatus(ctx context.Context, paymentID int64, status Status) error {
	t.repo.payments[paymentID].Status = status
	return nil
}

type stubNumbers struct{ n int64 }

func (s *stubNumbers) PaymentNumber(ctx context.Context) (string, error) {
	s.n++
	return fmt.Sprintf("PAY-202603-%06d", s.n), nil
}

var (
	accounts = authz.Principal{UserID: 20, Role: "accounts"}
	owner    = authz.Principal{UserID: 1, Role: "owner"}
)

func amt(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// seedApprovedProposal wires one bill of 10000 with an owner-approved item
// of 9500 on an approved proposal, mirroring a full review cycle.
func seedApprovedProposal(repo *memoryRepo) {
	repo.bills[1] = &memBill{amount: amt("10000")}
	repo.items[100] = &memItem{
		billID:      1,
		ownerStatus: proposals.OwnerApproved,
		ownerAmount: amt("9500"),
		status:      proposals.ItemOwnerApproved,
	}
	repo.proposals[10] = &memProposal{status: proposals.StatusApproved, items: []int64{100}}
}

func TestGenerateFromProposal(t *testing.T) {
	repo := newMemoryRepo()
	seedApprovedProposal(repo)
	svc := NewService(repo, &stubNumbers{}, nil)

	p, err := svc.GenerateFromProposal(context.Background(), owner, GenerateInput{
		ProposalID:    10,
		PaymentDate:   time.Now(),
		BankAccountID: 7,
	})
	require.NoError(t, err)
	require.Equal(t, StatusPending, p.Status)
	require.True(t, p.TotalAmount.Equal(amt("9500")))
	require.Len(t, p.Details, 1)
	require.Nil(t, p.Details[0].UTRNumber)
	require.Equal(t, proposals.StatusCompleted, repo.proposals[10].status)
}

func TestGenerateTwiceConflicts(t *testing.T) {
	repo := newMemoryRepo()
	seedApprovedProposal(repo)
	svc := NewService(repo, &stubNumbers{}, nil)

	in := GenerateInput{ProposalID: 10, BankAccountID: 7}
	_, err := svc.GenerateFromProposal(context.Background(), owner, in)
	require.NoError(t, err)

	_, err = svc.GenerateFromProposal(context.Background(), owner, in)
	require.True(t, shared.IsKind(err, shared.KindConflict))
	require.Len(t, repo.payments, 1)
}

func TestGenerateRequiresApprovedProposal(t *testing.T) {
	repo := newMemoryRepo()
	seedApprovedProposal(repo)
	repo.proposals[10].status = proposals.StatusUnderReview
	svc := NewService(repo, &stubNumbers{}, nil)

	_, err := svc.GenerateFromProposal(context.Background(), owner, GenerateInput{ProposalID: 10, BankAccountID: 7})
	require.True(t, shared.IsKind(err, shared.KindPrecondition))
}

func TestGenerateRequiresApprovedItems(t *testing.T) {
	repo := newMemoryRepo()
	seedApprovedProposal(repo)
	repo.items[100].ownerStatus = proposals.OwnerDeferred
	repo.proposals[10].status = proposals.StatusPartialApproved
	svc := NewService(repo, &stubNumbers{}, nil)

	_, err := svc.GenerateFromProposal(context.Background(), owner, GenerateInput{ProposalID: 10, BankAccountID: 7})
	require.True(t, shared.IsKind(err, shared.KindPrecondition))
}

func TestGenerateRequiresOwner(t *testing.T) {
	repo := newMemoryRepo()
	seedApprovedProposal(repo)
	svc := NewService(repo, &stubNumbers{}, nil)

	_, err := svc.GenerateFromProposal(context.Background(), accounts, GenerateInput{ProposalID: 10, BankAccountID: 7})
	require.True(t, shared.IsKind(err, shared.KindAuthorization))
}

// The full cycle: a 10000 bill, 9500 owner-approved, batch generated, UTR
// recorded. The bill ends partially paid, the item paid, the payment
// confirmed.
func TestSettlementCycle(t *testing.T) {
	repo := newMemoryRepo()
	seedApprovedProposal(repo)
	svc := NewService(repo, &stubNumbers{}, nil)

	p, err := svc.GenerateFromProposal(context.Background(), owner, GenerateInput{ProposalID: 10, BankAccountID: 7})
	require.NoError(t, err)

	settled, err := svc.RecordSettlement(context.Background(), accounts, SettlementInput{
		DetailID:  p.Details[0].ID,
		UTRNumber: "UTR123456",
	})
	require.NoError(t, err)

	require.Equal(t, StatusConfirmed, settled.Status)
	require.Equal(t, DetailConfirmed, settled.Details[0].Status)
	require.Equal(t, "UTR123456", *settled.Details[0].UTRNumber)
	require.True(t, repo.bills[1].paid.Equal(amt("9500")))
	require.True(t, repo.items[100].settled)
	require.Equal(t, proposals.ItemPaid, repo.items[100].status)
}

func TestSettlementRequiresUTR(t *testing.T) {
	repo := newMemoryRepo()
	seedApprovedProposal(repo)
	svc := NewService(repo, &stubNumbers{}, nil)

	p, err := svc.GenerateFromProposal(context.Background(), owner, GenerateInput{ProposalID: 10, BankAccountID: 7})
	require.NoError(t, err)

	_, err = svc.RecordSettlement(context.Background(), accounts, SettlementInput{
		DetailID:  p.Details[0].ID,
		UTRNumber: "  ",
	})
	require.True(t, shared.IsKind(err, shared.KindValidation))
}

func TestSettlementTwiceConflicts(t *testing.T) {
	repo := newMemoryRepo()
	seedApprovedProposal(repo)
	svc := NewService(repo, &stubNumbers{}, nil)

	p, err := svc.GenerateFromProposal(context.Background(), owner, GenerateInput{ProposalID: 10, BankAccountID: 7})
	require.NoError(t, err)

	in := SettlementInput{DetailID: p.Details[0].ID, UTRNumber: "UTR1"}
	_, err = svc.RecordSettlement(context.Background(), accounts, in)
	require.NoError(t, err)

	_, err = svc.RecordSettlement(context.Background(), accounts, in)
	require.True(t, shared.IsKind(err, shared.KindConflict))
	require.True(t, repo.bills[1].paid.Equal(amt("9500")))
}

func TestPaymentProcessedWhileUTRMissing(t *testing.T) {
	repo := newMemoryRepo()
	repo.bills[1] = &memBill{amount: amt("4000")}
	repo.bills[2] = &memBill{amount: amt("6000")}
	repo.items[100] = &memItem{billID: 1, ownerStatus: proposals.OwnerApproved, ownerAmount: amt("4000")}
	repo.items[101] = &memItem{billID: 2, ownerStatus: proposals.OwnerApproved, ownerAmount: amt("6000")}
	repo.proposals[10] = &memProposal{status: proposals.StatusApproved, items: []int64{100, 101}}
	svc := NewService(repo, &stubNumbers{}, nil)

	p, err := svc.GenerateFromProposal(context.Background(), owner, GenerateInput{ProposalID: 10, BankAccountID: 7})
	require.NoError(t, err)
	require.Len(t, p.Details, 2)
	require.True(t, p.TotalAmount.Equal(amt("10000")))

	settled, err := svc.RecordSettlement(context.Background(), accounts, SettlementInput{
		DetailID:  p.Details[0].ID,
		UTRNumber: "UTR-A",
	})
	require.NoError(t, err)
	// One detail still lacks a UTR, so the payment is processed, not confirmed.
	require.Equal(t, StatusProcessed, settled.Status)

	settled, err = svc.RecordSettlement(context.Background(), accounts, SettlementInput{
		DetailID:  p.Details[1].ID,
		UTRNumber: "UTR-B",
	})
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, settled.Status)
}

func TestSettlementBatchNamesFailingDetail(t *testing.T) {
	repo := newMemoryRepo()
	repo.bills[1] = &memBill{amount: amt("4000")}
	repo.bills[2] = &memBill{amount: amt("6000")}
	repo.items[100] = &memItem{billID: 1, ownerStatus: proposals.OwnerApproved, ownerAmount: amt("4000")}
	repo.items[101] = &memItem{billID: 2, ownerStatus: proposals.OwnerApproved, ownerAmount: amt("6000")}
	repo.proposals[10] = &memProposal{status: proposals.StatusApproved, items: []int64{100, 101}}
	svc := NewService(repo, &stubNumbers{}, nil)

	p, err := svc.GenerateFromProposal(context.Background(), owner, GenerateInput{ProposalID: 10, BankAccountID: 7})
	require.NoError(t, err)

	_, err = svc.RecordSettlementBatch(context.Background(), accounts, []SettlementInput{
		{DetailID: p.Details[0].ID, UTRNumber: "UTR-A"},
		{DetailID: p.Details[1].ID, UTRNumber: ""},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), fmt.Sprintf("detail %d", p.Details[1].ID))
}

// A batch failure keeps the kind of the inner failure: a blank UTR is still
// a validation error, an unknown detail still not found.
func TestSettlementBatchKeepsFailureKind(t *testing.T) {
	repo := newMemoryRepo()
	seedApprovedProposal(repo)
	svc := NewService(repo, &stubNumbers{}, nil)

	p, err := svc.GenerateFromProposal(context.Background(), owner, GenerateInput{ProposalID: 10, BankAccountID: 7})
	require.NoError(t, err)

	_, err = svc.RecordSettlementBatch(context.Background(), accounts, []SettlementInput{
		{DetailID: p.Details[0].ID, UTRNumber: "  "},
	})
	require.True(t, shared.IsKind(err, shared.KindValidation))

	_, err = svc.RecordSettlementBatch(context.Background(), accounts, []SettlementInput{
		{DetailID: 9999, UTRNumber: "UTR-X"},
	})
	require.True(t, shared.IsKind(err, shared.KindNotFound))

	in := []SettlementInput{{DetailID: p.Details[0].ID, UTRNumber: "UTR-A"}}
	_, err = svc.RecordSettlementBatch(context.Background(), accounts, in)
	require.NoError(t, err)
	_, err = svc.RecordSettlementBatch(context.Background(), accounts, in)
	require.True(t, shared.IsKind(err, shared.KindConflict))
}

func TestSettlementBatchConfirmsPayment(t *testing.T) {
	repo := newMemoryRepo()
	repo.bills[1] = &memBill{amount: amt("4000")}
	repo.bills[2] = &memBill{amount: amt("6000")}
	repo.items[100] = &memItem{billID: 1, ownerStatus: proposals.OwnerApproved, ownerAmount: amt("4000")}
	repo.items[101] = &memItem{billID: 2, ownerStatus: proposals.OwnerApproved, ownerAmount: amt("6000")}
	repo.proposals[10] = &memProposal{status: proposals.StatusApproved, items: []int64{100, 101}}
	svc := NewService(repo, &stubNumbers{}, nil)

	p, err := svc.GenerateFromProposal(context.Background(), owner, GenerateInput{ProposalID: 10, BankAccountID: 7})
	require.NoError(t, err)

	settled, err := svc.RecordSettlementBatch(context.Background(), accounts, []SettlementInput{
		{DetailID: p.Details[0].ID, UTRNumber: "UTR-A"},
		{DetailID: p.Details[1].ID, UTRNumber: "UTR-B"},
	})
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, settled.Status)
	require.True(t, repo.bills[1].paid.Equal(amt("4000")))
	require.True(t, repo.bills[2].paid.Equal(amt("6000")))
}
