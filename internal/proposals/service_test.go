package proposals

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/authz"
	"github.com/ledgerline/ledgerline/internal/shared"
)

type memoryRepo struct {
	proposals map[int64]*Proposal
	bills     map[int64]BillSnapshot
	nextPID   int64
	nextIID   int64
	numbers   int64
	history   []shared.ApprovalLog
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		proposals: make(map[int64]*Proposal),
		bills:     make(map[int64]BillSnapshot),
	}
}

func (r *memoryRepo) addBill(id int64, outstanding string) {
	r.bills[id] = BillSnapshot{
		BillID:      id,
		Active:      true,
		Outstanding: decimal.RequireFromString(outstanding),
	}
}

// refreshBlocked recomputes each bill's claim flag the way the store query
// does, from the live proposals.
func (r *memoryRepo) refreshBlocked() {
	for id, snap := range r.bills {
		snap.Blocked = false
		for _, p := range r.proposals {
			if p.Status.Terminal() {
				continue
			}
			for _, it := range p.Items {
				if it.BillID == id && BlocksReproposal(it.Status) {
					snap.Blocked = true
				}
			}
		}
		r.bills[id] = snap
	}
}

// WithTx snapshots the store and restores it when fn fails, mirroring a
// rolled-back transaction.
func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	proposals := make(map[int64]*Proposal, len(r.proposals))
	for id, p := range r.proposals {
		cp := *p
		cp.Items = append([]Item(nil), p.Items...)
		proposals[id] = &cp
	}
	history := append([]shared.ApprovalLog(nil), r.history...)
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.proposals = proposals
		r.history = history
		return err
	}
	return nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Proposal, error) {
	p, ok := r.proposals[id]
	if !ok {
		return Proposal{}, shared.NotFoundf("proposal %d not found", id)
	}
	return *p, nil
}

func (r *memoryRepo) List(ctx context.Context, filters ListFilters) ([]Proposal, int, error) {
	var out []Proposal
	for _, p := range r.proposals {
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (r *memoryRepo) AvailableBills(ctx context.Context) ([]AvailableBill, error) {
	r.refreshBlocked()
	var out []AvailableBill
	for _, snap := range r.bills {
		if !snap.Active || !snap.Outstanding.IsPositive() || snap.Blocked {
			continue
		}
		out = append(out, AvailableBill{BillID: snap.BillID, Outstanding: snap.Outstanding})
	}
	return out, nil
}

type memoryTx struct {
	repo *memoryRepo
}

func (t *memoryTx) GetForUpdate(ctx context.Context, id int64) (Proposal, error) {
	return t.repo.Get(ctx, id)
}

func (t *memoryTx) InsertProposal(ctx context.Context, p Proposal) (Proposal, error) {
	t.repo.nextPID++
	p.ID = t.repo.nextPID
	for idx := range p.Items {
		t.repo.nextIID++
		p.Items[idx].ID = t.repo.nextIID
		p.Items[idx].ProposalID = p.ID
		p.Items[idx].AccountsStatus = AccountsPending
		p.Items[idx].OwnerStatus = OwnerPending
		p.Items[idx].Status = ItemProposed
	}
	stored := p
	t.repo.proposals[p.ID] = &stored
	return p, nil
}

func (t *memoryTx) SetStatus(ctx context.Context, id int64, status Status) error {
	t.repo.proposals[id].Status = status
	return nil
}

func (t *memoryTx) UpdateItemAccounts(ctx context.Context, item Item) error {
	return t.updateItem(item)
}

func (t *memoryTx) UpdateItemOwner(ctx context.Context, item Item) error {
	return t.updateItem(item)
}

func (t *memoryTx) updateItem(item Item) error {
	p := t.repo.proposals[item.ProposalID]
	for idx := range p.Items {
		if p.Items[idx].ID == item.ID {
			p.Items[idx] = item
			return nil
		}
	}
	return shared.NotFoundf("item %d not found", item.ID)
}

func (t *memoryTx) DeleteDraft(ctx context.Context, id int64) error {
	delete(t.repo.proposals, id)
	return nil
}

func (t *memoryTx) RecordApproval(ctx context.Context, log shared.ApprovalLog) error {
	for _, existing := range t.repo.history {
		if existing.Module == log.Module && existing.RefID == log.RefID &&
			existing.ActorID == log.ActorID && existing.Action == log.Action &&
			existing.Note == log.Note {
			return nil
		}
	}
	t.repo.history = append(t.repo.history, log)
	return nil
}

func (t *memoryTx) BillSnapshots(ctx context.Context, billIDs []int64) (map[int64]BillSnapshot, error) {
	t.repo.refreshBlocked()
	out := make(map[int64]BillSnapshot)
	for _, id := range billIDs {
		if snap, ok := t.repo.bills[id]; ok {
			out[id] = snap
		}
	}
	return out, nil
}

type stubNumbers struct{ n int64 }

func (s *stubNumbers) ProposalNumber(ctx context.Context) (string, error) {
	s.n++
	return fmt.Sprintf("PRP-202603-%06d", s.n), nil
}

var (
	purchase = authz.Principal{UserID: 30, Role: "purchase"}
	accounts = authz.Principal{UserID: 20, Role: "accounts"}
	owner    = authz.Principal{UserID: 1, Role: "owner"}
)

func newTestService(repo *memoryRepo) *Service {
	return NewService(repo, &stubNumbers{})
}

func amt(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func createSubmitted(t *testing.T, svc *Service, items ...ItemInput) Proposal {
	t.Helper()
	p, err := svc.Create(context.Background(), purchase, CreateInput{
		PaymentDate: time.Now().AddDate(0, 0, 7),
		Items:       items,
	})
	require.NoError(t, err)
	p, err = svc.Submit(context.Background(), purchase, p.ID)
	require.NoError(t, err)
	return p
}

func TestCreateValidatesEligibility(t *testing.T) {
	repo := newMemoryRepo()
	repo.addBill(1, "10000")
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), purchase, CreateInput{
		PaymentDate: time.Now(),
		Items:       []ItemInput{{BillID: 99, Amount: amt("100")}},
	})
	require.True(t, shared.IsKind(err, shared.KindReference))

	_, err = svc.Create(context.Background(), purchase, CreateInput{
		PaymentDate: time.Now(),
		Items:       []ItemInput{{BillID: 1, Amount: amt("10000.01")}},
	})
	require.True(t, shared.IsKind(err, shared.KindValidation))

	p, err := svc.Create(context.Background(), purchase, CreateInput{
		PaymentDate: time.Now(),
		Items:       []ItemInput{{BillID: 1, Amount: amt("10000")}},
	})
	require.NoError(t, err)
	require.Equal(t, StatusDraft, p.Status)
	require.Equal(t, amt("10000"), p.TotalAmount)
	require.Len(t, p.Items, 1)
	require.Equal(t, ItemProposed, p.Items[0].Status)
}

func TestCreateBlocksDoubleProposing(t *testing.T) {
	repo := newMemoryRepo()
	repo.addBill(1, "5000")
	svc := newTestService(repo)

	createSubmitted(t, svc, ItemInput{BillID: 1, Amount: amt("5000")})

	_, err := svc.Create(context.Background(), purchase, CreateInput{
		PaymentDate: time.Now(),
		Items:       []ItemInput{{BillID: 1, Amount: amt("1000")}},
	})
	require.True(t, shared.IsKind(err, shared.KindConflict))
}

func TestEligibilityAfterOwnerRejection(t *testing.T) {
	repo := newMemoryRepo()
	repo.addBill(1, "5000")
	svc := newTestService(repo)

	p := createSubmitted(t, svc, ItemInput{BillID: 1, Amount: amt("5000")})

	_, err := svc.OwnerAction(context.Background(), owner, p.ID, []OwnerDecision{
		{ItemID: p.Items[0].ID, Action: OwnerActionReject, Reason: "not this cycle"},
	})
	require.NoError(t, err)

	// The rejected item releases its bill for re-proposal.
	bills, err := svc.AvailableBills(context.Background(), purchase)
	require.NoError(t, err)
	require.Len(t, bills, 1)
	require.Equal(t, int64(1), bills[0].BillID)

	_, err = svc.Create(context.Background(), purchase, CreateInput{
		PaymentDate: time.Now(),
		Items:       []ItemInput{{BillID: 1, Amount: amt("5000")}},
	})
	require.NoError(t, err)
}

func TestSubmitOnlyFromDraftByCreator(t *testing.T) {
	repo := newMemoryRepo()
	repo.addBill(1, "5000")
	svc := newTestService(repo)

	p, err := svc.Create(context.Background(), purchase, CreateInput{
		PaymentDate: time.Now(),
		Items:       []ItemInput{{BillID: 1, Amount: amt("5000")}},
	})
	require.NoError(t, err)

	other := authz.Principal{UserID: 31, Role: "purchase"}
	_, err = svc.Submit(context.Background(), other, p.ID)
	require.True(t, shared.IsKind(err, shared.KindAuthorization))

	p, err = svc.Submit(context.Background(), purchase, p.ID)
	require.NoError(t, err)
	require.Equal(t, StatusSubmitted, p.Status)

	_, err = svc.Submit(context.Background(), purchase, p.ID)
	require.True(t, shared.IsKind(err, shared.KindPrecondition))
}

func TestAccountsActionIdempotent(t *testing.T) {
	repo := newMemoryRepo()
	repo.addBill(1, "10000")
	svc := newTestService(repo)

	p := createSubmitted(t, svc, ItemInput{BillID: 1, Amount: amt("10000")})
	itemID := p.Items[0].ID

	decide := func() Proposal {
		amount := amt("9500")
		decided, err := svc.AccountsAction(context.Background(), accounts, p.ID, []AccountsDecision{
			{ItemID: itemID, Action: AccountsActionApprove, Amount: &amount, Reason: "rate diff"},
		})
		require.NoError(t, err)
		return decided
	}

	first := decide()
	require.Equal(t, StatusUnderReview, first.Status)
	require.Equal(t, ItemAccountsApproved, first.Items[0].Status)
	require.True(t, first.Items[0].AccountsAmount.Equal(amt("9500")))
	historyAfterFirst := len(repo.history)

	// Replaying the identical decision is a no-op for the item and history.
	second := decide()
	require.Equal(t, StatusUnderReview, second.Status)
	require.Equal(t, first.Items[0].AccountsAt, second.Items[0].AccountsAt)
	require.Len(t, repo.history, historyAfterFirst)
}

// A decision batch that fails midway rolls back fully: no item updates and
// no decision history from the earlier, valid entries survive.
func TestDecisionFailureWritesNoHistory(t *testing.T) {
	repo := newMemoryRepo()
	repo.addBill(1, "4000")
	svc := newTestService(repo)

	p := createSubmitted(t, svc, ItemInput{BillID: 1, Amount: amt("4000")})
	before := len(repo.history)

	_, err := svc.AccountsAction(context.Background(), accounts, p.ID, []AccountsDecision{
		{ItemID: p.Items[0].ID, Action: AccountsActionApprove},
		{ItemID: 9999, Action: AccountsActionApprove},
	})
	require.True(t, shared.IsKind(err, shared.KindReference))
	require.Len(t, repo.history, before)

	got, err := svc.Get(context.Background(), accounts, p.ID)
	require.NoError(t, err)
	require.Equal(t, AccountsPending, got.Items[0].AccountsStatus)
	require.Equal(t, StatusSubmitted, got.Status)
}

func TestAccountsRejectRevertsToProposed(t *testing.T) {
	repo := newMemoryRepo()
	repo.addBill(1, "10000")
	svc := newTestService(repo)

	p := createSubmitted(t, svc, ItemInput{BillID: 1, Amount: amt("10000")})
	itemID := p.Items[0].ID

	decided, err := svc.AccountsAction(context.Background(), accounts, p.ID, []AccountsDecision{
		{ItemID: itemID, Action: AccountsActionApprove},
	})
	require.NoError(t, err)
	require.Equal(t, ItemAccountsApproved, decided.Items[0].Status)

	decided, err = svc.AccountsAction(context.Background(), accounts, p.ID, []AccountsDecision{
		{ItemID: itemID, Action: AccountsActionReject, Reason: "missing GRN"},
	})
	require.NoError(t, err)
	require.Equal(t, AccountsPending, decided.Items[0].AccountsStatus)
	require.Equal(t, ItemProposed, decided.Items[0].Status)
}

func TestAccountsAmountBounded(t *testing.T) {
	repo := newMemoryRepo()
	repo.addBill(1, "10000")
	svc := newTestService(repo)

	p := createSubmitted(t, svc, ItemInput{BillID: 1, Amount: amt("10000")})

	over := amt("10000.01")
	_, err := svc.AccountsAction(context.Background(), accounts, p.ID, []AccountsDecision{
		{ItemID: p.Items[0].ID, Action: AccountsActionApprove, Amount: &over},
	})
	require.True(t, shared.IsKind(err, shared.KindValidation))
}

func TestOwnerActionDerivesOutcome(t *testing.T) {
	repo := newMemoryRepo()
	repo.addBill(1, "4000")
	repo.addBill(2, "6000")
	svc := newTestService(repo)

	p := createSubmitted(t, svc,
		ItemInput{BillID: 1, Amount: amt("4000")},
		ItemInput{BillID: 2, Amount: amt("6000")})

	decided, err := svc.OwnerAction(context.Background(), owner, p.ID, []OwnerDecision{
		{ItemID: p.Items[0].ID, Action: OwnerActionApprove},
	})
	require.NoError(t, err)
	// One item still pending, so no outcome yet.
	require.Equal(t, StatusSubmitted, decided.Status)

	decided, err = svc.OwnerAction(context.Background(), owner, p.ID, []OwnerDecision{
		{ItemID: p.Items[1].ID, Action: OwnerActionDefer, Reason: "cashflow"},
	})
	require.NoError(t, err)
	require.Equal(t, StatusPartialApproved, decided.Status)
	require.Equal(t, ItemCarryForward, decided.Items[1].Status)

	// The carried-forward bill is proposable again.
	bills, err := svc.AvailableBills(context.Background(), purchase)
	require.NoError(t, err)
	require.Len(t, bills, 1)
	require.Equal(t, int64(2), bills[0].BillID)
}

func TestOwnerAmountDefaultsToAccountsAmount(t *testing.T) {
	repo := newMemoryRepo()
	repo.addBill(1, "10000")
	svc := newTestService(repo)

	p := createSubmitted(t, svc, ItemInput{BillID: 1, Amount: amt("10000")})
	itemID := p.Items[0].ID

	accountsAmount := amt("9500")
	_, err := svc.AccountsAction(context.Background(), accounts, p.ID, []AccountsDecision{
		{ItemID: itemID, Action: AccountsActionApprove, Amount: &accountsAmount},
	})
	require.NoError(t, err)

	decided, err := svc.OwnerAction(context.Background(), owner, p.ID, []OwnerDecision{
		{ItemID: itemID, Action: OwnerActionApprove},
	})
	require.NoError(t, err)
	require.Equal(t, StatusApproved, decided.Status)
	require.True(t, decided.Items[0].OwnerAmount.Equal(amt("9500")))
}

func TestDeleteDraftOnly(t *testing.T) {
	repo := newMemoryRepo()
	repo.addBill(1, "5000")
	svc := newTestService(repo)

	p, err := svc.Create(context.Background(), purchase, CreateInput{
		PaymentDate: time.Now(),
		Items:       []ItemInput{{BillID: 1, Amount: amt("5000")}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteDraft(context.Background(), purchase, p.ID))

	p = createSubmitted(t, svc, ItemInput{BillID: 1, Amount: amt("5000")})
	err = svc.DeleteDraft(context.Background(), purchase, p.ID)
	require.True(t, shared.IsKind(err, shared.KindPrecondition))
}
