package proposals

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/authz"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// NumberGenerator mints proposal numbers.
type NumberGenerator interface {
	ProposalNumber(ctx context.Context) (string, error)
}

// Service drives the proposal workflow. Decision history is written through
// the same transaction as the decisions it describes, so a failed batch
// leaves no stray history rows.
type Service struct {
	repo    Repository
	numbers NumberGenerator
}

// NewService constructs a Service.
func NewService(repo Repository, numbers NumberGenerator) *Service {
	return &Service{repo: repo, numbers: numbers}
}

func (s *Service) Get(ctx context.Context, actor authz.Principal, id int64) (Proposal, error) {
	if err := authz.Require(actor.Role, authz.OpProposalView); err != nil {
		return Proposal{}, err
	}
	if id <= 0 {
		return Proposal{}, shared.Validationf("invalid proposal id")
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, actor authz.Principal, filters ListFilters) ([]Proposal, int, error) {
	if err := authz.Require(actor.Role, authz.OpProposalView); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, filters)
}

// AvailableBills surfaces the bills a purchase user may propose, including
// carried-forward ones.
func (s *Service) AvailableBills(ctx context.Context, actor authz.Principal) ([]AvailableBill, error) {
	if err := authz.Require(actor.Role, authz.OpProposalView); err != nil {
		return nil, err
	}
	return s.repo.AvailableBills(ctx)
}

// Create opens a draft proposal. Every item must reference an eligible bill
// and propose an amount within its outstanding balance. Eligibility is
// checked under row locks so two concurrent proposals cannot claim the same
// bill.
func (s *Service) Create(ctx context.Context, actor authz.Principal, in CreateInput) (Proposal, error) {
	if err := authz.Require(actor.Role, authz.OpProposalCreate); err != nil {
		return Proposal{}, err
	}
	if len(in.Items) == 0 {
		return Proposal{}, shared.Validationf("a proposal needs at least one bill")
	}
	if in.PaymentDate.IsZero() {
		return Proposal{}, shared.Validationf("payment date is required")
	}
	seen := make(map[int64]bool, len(in.Items))
	billIDs := make([]int64, 0, len(in.Items))
	for _, item := range in.Items {
		if item.BillID <= 0 {
			return Proposal{}, shared.Validationf("invalid bill id %d", item.BillID)
		}
		if seen[item.BillID] {
			return Proposal{}, shared.Validationf("bill %d appears twice", item.BillID)
		}
		seen[item.BillID] = true
		billIDs = append(billIDs, item.BillID)
		if !item.Amount.IsPositive() {
			return Proposal{}, shared.Validationf("proposed amount for bill %d must be positive", item.BillID)
		}
	}

	number, err := s.numbers.ProposalNumber(ctx)
	if err != nil {
		return Proposal{}, err
	}

	var created Proposal
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		snapshots, err := tx.BillSnapshots(ctx, billIDs)
		if err != nil {
			return err
		}
		total := decimal.Zero
		items := make([]Item, 0, len(in.Items))
		for _, item := range in.Items {
			snap, ok := snapshots[item.BillID]
			if !ok {
				return shared.Referencef("bill %d does not exist", item.BillID)
			}
			if !snap.Active {
				return shared.Referencef("bill %d is not active", item.BillID)
			}
			if !snap.Outstanding.IsPositive() {
				return shared.Conflictf("bill %d has nothing outstanding", item.BillID)
			}
			if snap.Blocked {
				return shared.Conflictf("bill %d is already on a live proposal", item.BillID)
			}
			if item.Amount.GreaterThan(snap.Outstanding) {
				return shared.Validationf("proposed amount for bill %d exceeds its outstanding %s",
					item.BillID, snap.Outstanding.String())
			}
			total = total.Add(item.Amount)
			items = append(items, Item{BillID: item.BillID, ProposedAmount: item.Amount})
		}

		created, err = tx.InsertProposal(ctx, Proposal{
			Number:       number,
			ProposalDate: time.Now(),
			PaymentDate:  in.PaymentDate,
			TotalAmount:  total,
			Status:       StatusDraft,
			CreatedBy:    actor.UserID,
			Items:        items,
		})
		return err
	})
	if err != nil {
		return Proposal{}, err
	}
	return created, nil
}

// Submit moves a draft into review. Only the creator or the owner may
// submit.
func (s *Service) Submit(ctx context.Context, actor authz.Principal, id int64) (Proposal, error) {
	if err := authz.Require(actor.Role, authz.OpProposalSubmit); err != nil {
		return Proposal{}, err
	}

	var submitted Proposal
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if p.CreatedBy != actor.UserID && actor.Role != authz.RoleOwner {
			return shared.Authorizationf("only the creator or the owner may submit proposal %d", id)
		}
		if p.Status != StatusDraft {
			return shared.Preconditionf("proposal %d is %s, only drafts can be submitted", id, p.Status)
		}
		if err := tx.SetStatus(ctx, id, StatusSubmitted); err != nil {
			return err
		}
		if err := tx.RecordApproval(ctx, approvalEntry(actor, id, shared.ApprovalSubmit, "")); err != nil {
			return err
		}
		p.Status = StatusSubmitted
		submitted = p
		return nil
	})
	if err != nil {
		return Proposal{}, err
	}
	return submitted, nil
}

// DeleteDraft removes a draft proposal and its items.
func (s *Service) DeleteDraft(ctx context.Context, actor authz.Principal, id int64) error {
	if err := authz.Require(actor.Role, authz.OpProposalDelete); err != nil {
		return err
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if p.CreatedBy != actor.UserID && actor.Role != authz.RoleOwner {
			return shared.Authorizationf("only the creator or the owner may delete proposal %d", id)
		}
		if p.Status != StatusDraft {
			return shared.Preconditionf("proposal %d is %s, only drafts can be deleted", id, p.Status)
		}
		return tx.DeleteDraft(ctx, id)
	})
}

// AccountsAction applies accounts-track decisions. The proposal always
// lands in under_review, so re-running a decision set is harmless: an
// identical decision leaves the item untouched and writes no history.
func (s *Service) AccountsAction(ctx context.Context, actor authz.Principal, id int64, decisions []AccountsDecision) (Proposal, error) {
	if err := authz.Require(actor.Role, authz.OpAccountsAction); err != nil {
		return Proposal{}, err
	}
	if len(decisions) == 0 {
		return Proposal{}, shared.Validationf("no decisions supplied")
	}

	var reviewed Proposal
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if p.Status != StatusSubmitted && p.Status != StatusUnderReview {
			return shared.Preconditionf("proposal %d is %s, not open for accounts review", id, p.Status)
		}

		byID := make(map[int64]*Item, len(p.Items))
		for idx := range p.Items {
			byID[p.Items[idx].ID] = &p.Items[idx]
		}

		now := time.Now()
		for _, d := range decisions {
			item, ok := byID[d.ItemID]
			if !ok {
				return shared.Referencef("item %d is not part of proposal %d", d.ItemID, id)
			}
			next, err := accountsTrack(*item, d)
			if err != nil {
				return err
			}
			if identicalAccounts(*item, next) {
				continue
			}
			next.AccountsBy = &actor.UserID
			next.AccountsAt = &now
			next.Status = DeriveItemStatus(next.AccountsStatus, next.OwnerStatus, next.Settled)
			if err := tx.UpdateItemAccounts(ctx, next); err != nil {
				return err
			}
			*item = next
			if err := tx.RecordApproval(ctx, approvalEntry(actor, id, approvalFor(d.Action), d.Reason)); err != nil {
				return err
			}
		}

		if p.Status != StatusUnderReview {
			if err := tx.SetStatus(ctx, id, StatusUnderReview); err != nil {
				return err
			}
			p.Status = StatusUnderReview
		}
		reviewed = p
		return nil
	})
	if err != nil {
		return Proposal{}, err
	}
	return reviewed, nil
}

// OwnerAction applies owner-track decisions. Once every item is decided the
// proposal outcome derives from the decisions.
func (s *Service) OwnerAction(ctx context.Context, actor authz.Principal, id int64, decisions []OwnerDecision) (Proposal, error) {
	if err := authz.Require(actor.Role, authz.OpOwnerAction); err != nil {
		return Proposal{}, err
	}
	if len(decisions) == 0 {
		return Proposal{}, shared.Validationf("no decisions supplied")
	}

	var decided Proposal
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if p.Status != StatusSubmitted && p.Status != StatusUnderReview {
			return shared.Preconditionf("proposal %d is %s, not open for owner decisions", id, p.Status)
		}

		byID := make(map[int64]*Item, len(p.Items))
		for idx := range p.Items {
			byID[p.Items[idx].ID] = &p.Items[idx]
		}

		now := time.Now()
		for _, d := range decisions {
			item, ok := byID[d.ItemID]
			if !ok {
				return shared.Referencef("item %d is not part of proposal %d", d.ItemID, id)
			}
			next, err := ownerTrack(*item, d)
			if err != nil {
				return err
			}
			if identicalOwner(*item, next) {
				continue
			}
			next.OwnerBy = &actor.UserID
			next.OwnerAt = &now
			next.Status = DeriveItemStatus(next.AccountsStatus, next.OwnerStatus, next.Settled)
			if err := tx.UpdateItemOwner(ctx, next); err != nil {
				return err
			}
			*item = next
			if err := tx.RecordApproval(ctx, approvalEntry(actor, id, approvalForOwner(d.Action), d.Reason)); err != nil {
				return err
			}
		}

		outcome, done := DeriveOutcome(p.Items)
		if done {
			if err := tx.SetStatus(ctx, id, outcome); err != nil {
				return err
			}
			p.Status = outcome
		}
		decided = p
		return nil
	})
	if err != nil {
		return Proposal{}, err
	}
	return decided, nil
}

// accountsTrack applies one accounts decision to a copy of the item.
// Reject reverts the track to pending, handing the item back to purchase;
// accounts never terminates an item.
func accountsTrack(item Item, d AccountsDecision) (Item, error) {
	if item.Settled {
		return Item{}, shared.Conflictf("item %d is already settled", item.ID)
	}
	switch d.Action {
	case AccountsActionApprove:
		amount := item.ProposedAmount
		if d.Amount != nil {
			amount = *d.Amount
		}
		if !amount.IsPositive() || amount.GreaterThan(item.ProposedAmount) {
			return Item{}, shared.Validationf("accounts amount for item %d must be within (0, %s]",
				item.ID, item.ProposedAmount.String())
		}
		item.AccountsStatus = AccountsApproved
		item.AccountsAmount = &amount
	case AccountsActionHold:
		item.AccountsStatus = AccountsHeld
		item.AccountsAmount = nil
	case AccountsActionReject:
		item.AccountsStatus = AccountsPending
		item.AccountsAmount = nil
	default:
		return Item{}, shared.Validationf("unknown accounts action %q", d.Action)
	}
	item.AccountsReason = d.Reason
	return item, nil
}

// ownerTrack applies one owner decision to a copy of the item. The owner
// amount defaults to the accounts amount, then the proposed amount.
func ownerTrack(item Item, d OwnerDecision) (Item, error) {
	if item.Settled {
		return Item{}, shared.Conflictf("item %d is already settled", item.ID)
	}
	switch d.Action {
	case OwnerActionApprove:
		amount := item.ProposedAmount
		if item.AccountsAmount != nil {
			amount = *item.AccountsAmount
		}
		if d.Amount != nil {
			amount = *d.Amount
		}
		if !amount.IsPositive() || amount.GreaterThan(item.ProposedAmount) {
			return Item{}, shared.Validationf("owner amount for item %d must be within (0, %s]",
				item.ID, item.ProposedAmount.String())
		}
		item.OwnerStatus = OwnerApproved
		item.OwnerAmount = &amount
	case OwnerActionDefer:
		item.OwnerStatus = OwnerDeferred
		item.OwnerAmount = nil
	case OwnerActionReject:
		item.OwnerStatus = OwnerRejected
		item.OwnerAmount = nil
	default:
		return Item{}, shared.Validationf("unknown owner action %q", d.Action)
	}
	item.OwnerReason = d.Reason
	return item, nil
}

func identicalAccounts(a, b Item) bool {
	if a.AccountsStatus != b.AccountsStatus || a.AccountsReason != b.AccountsReason {
		return false
	}
	return equalAmount(a.AccountsAmount, b.AccountsAmount)
}

func identicalOwner(a, b Item) bool {
	if a.OwnerStatus != b.OwnerStatus || a.OwnerReason != b.OwnerReason {
		return false
	}
	return equalAmount(a.OwnerAmount, b.OwnerAmount)
}

func equalAmount(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func approvalFor(a AccountsAction) shared.ApprovalAction {
	switch a {
	case AccountsActionHold:
		return shared.ApprovalHold
	case AccountsActionReject:
		return shared.ApprovalReject
	default:
		return shared.ApprovalApprove
	}
}

func approvalForOwner(a OwnerAction) shared.ApprovalAction {
	switch a {
	case OwnerActionDefer:
		return shared.ApprovalDefer
	case OwnerActionReject:
		return shared.ApprovalReject
	default:
		return shared.ApprovalApprove
	}
}

func approvalEntry(actor authz.Principal, id int64, action shared.ApprovalAction, note string) shared.ApprovalLog {
	return shared.ApprovalLog{
		Module:  "proposal",
		RefID:   id,
		ActorID: actor.UserID,
		Action:  action,
		Note:    note,
	}
}
