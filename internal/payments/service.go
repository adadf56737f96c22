package payments

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/authz"
	"github.com/ledgerline/ledgerline/internal/proposals"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// ApprovalRecorder writes decision history rows.
type ApprovalRecorder interface {
	Record(ctx context.Context, log shared.ApprovalLog) error
}

// NumberGenerator mints payment numbers.
type NumberGenerator interface {
	PaymentNumber(ctx context.Context) (string, error)
}

// Service drives payment batch generation and settlement.
type Service struct {
	repo      Repository
	numbers   NumberGenerator
	approvals ApprovalRecorder
}

// NewService constructs a Service.
func NewService(repo Repository, numbers NumberGenerator, approvals ApprovalRecorder) *Service {
	return &Service{repo: repo, numbers: numbers, approvals: approvals}
}

func (s *Service) Get(ctx context.Context, actor authz.Principal, id int64) (Payment, error) {
	if err := authz.Require(actor.Role, authz.OpPaymentView); err != nil {
		return Payment{}, err
	}
	if id <= 0 {
		return Payment{}, shared.Validationf("invalid payment id")
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, actor authz.Principal, filters ListFilters) ([]Payment, int, error) {
	if err := authz.Require(actor.Role, authz.OpPaymentView); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, filters)
}

// BankExportRows supplies the bank-file projection for one payment.
func (s *Service) BankExportRows(ctx context.Context, actor authz.Principal, paymentID int64) ([]BankExportRow, error) {
	if err := authz.Require(actor.Role, authz.OpPaymentView); err != nil {
		return nil, err
	}
	if paymentID <= 0 {
		return nil, shared.Validationf("invalid payment id")
	}
	return s.repo.BankExportRows(ctx, paymentID)
}

// GenerateFromProposal turns an owner-approved proposal into a payment
// batch: one detail per approved item, total computed from the owner
// amounts, proposal marked completed, all in one transaction. A completed
// proposal conflicts instead of producing a second batch.
func (s *Service) GenerateFromProposal(ctx context.Context, actor authz.Principal, in GenerateInput) (Payment, error) {
	if err := authz.Require(actor.Role, authz.OpPaymentGenerate); err != nil {
		return Payment{}, err
	}
	if in.ProposalID <= 0 {
		return Payment{}, shared.Validationf("invalid proposal id")
	}
	if in.BankAccountID <= 0 {
		return Payment{}, shared.Validationf("bank account is required")
	}
	paymentDate := in.PaymentDate
	if paymentDate.IsZero() {
		paymentDate = time.Now()
	}

	number, err := s.numbers.PaymentNumber(ctx)
	if err != nil {
		return Payment{}, err
	}

	var created Payment
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		snap, err := tx.ProposalForUpdate(ctx, in.ProposalID)
		if err != nil {
			return err
		}
		if snap.Status == proposals.StatusCompleted {
			return shared.Conflictf("proposal %d already has a payment batch", in.ProposalID)
		}
		if snap.Status != proposals.StatusApproved && snap.Status != proposals.StatusPartialApproved {
			return shared.Preconditionf("proposal %d is %s, not approved for payment", in.ProposalID, snap.Status)
		}
		if len(snap.ApprovedItems) == 0 {
			return shared.Preconditionf("proposal %d has no owner-approved items", in.ProposalID)
		}

		total := decimal.Zero
		details := make([]Detail, 0, len(snap.ApprovedItems))
		for _, item := range snap.ApprovedItems {
			itemID := item.ItemID
			total = total.Add(item.OwnerAmount)
			details = append(details, Detail{
				BillID:         item.BillID,
				ProposalItemID: &itemID,
				Amount:         item.OwnerAmount,
			})
		}

		proposalID := in.ProposalID
		created, err = tx.InsertPayment(ctx, Payment{
			Number:        number,
			ProposalID:    &proposalID,
			PaymentDate:   paymentDate,
			TotalAmount:   total,
			BankAccountID: in.BankAccountID,
			Status:        StatusPending,
			CreatedBy:     actor.UserID,
			Details:       details,
		})
		if err != nil {
			return err
		}
		return tx.CompleteProposal(ctx, in.ProposalID)
	})
	if err != nil {
		return Payment{}, err
	}
	s.recordApproval(ctx, actor, created.ID, shared.ApprovalApprove, "batch generated")
	return created, nil
}

// RecordSettlement books one UTR. The detail confirms, the bill's paid
// amount moves, the originating item becomes paid, and the payment lands on
// confirmed only when no detail under it is still missing a UTR.
func (s *Service) RecordSettlement(ctx context.Context, actor authz.Principal, in SettlementInput) (Payment, error) {
	if err := authz.Require(actor.Role, authz.OpSettlementRecord); err != nil {
		return Payment{}, err
	}
	var paymentID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := s.settleOne(ctx, tx, in)
		paymentID = id
		return err
	})
	if err != nil {
		return Payment{}, err
	}
	s.recordApproval(ctx, actor, paymentID, shared.ApprovalSettle, "")
	return s.repo.Get(ctx, paymentID)
}

// RecordSettlementBatch books several UTRs of one payment in a single
// transaction. The first failure aborts the batch, naming the detail.
func (s *Service) RecordSettlementBatch(ctx context.Context, actor authz.Principal, inputs []SettlementInput) (Payment, error) {
	if err := authz.Require(actor.Role, authz.OpSettlementRecord); err != nil {
		return Payment{}, err
	}
	if len(inputs) == 0 {
		return Payment{}, shared.Validationf("no settlements supplied")
	}

	var paymentID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, in := range inputs {
			id, err := s.settleOne(ctx, tx, in)
			if err != nil {
				return shared.Prefixf(err, "settlement batch aborted at detail %d", in.DetailID)
			}
			if paymentID != 0 && paymentID != id {
				return shared.Validationf("detail %d belongs to a different payment", in.DetailID)
			}
			paymentID = id
		}
		return nil
	})
	if err != nil {
		return Payment{}, err
	}
	s.recordApproval(ctx, actor, paymentID, shared.ApprovalSettle, "batch")
	return s.repo.Get(ctx, paymentID)
}

// settleOne applies a single settlement inside an open transaction and
// returns the payment id the detail belongs to.
func (s *Service) settleOne(ctx context.Context, tx TxRepository, in SettlementInput) (int64, error) {
	if in.DetailID <= 0 {
		return 0, shared.Validationf("invalid detail id")
	}
	utr := strings.TrimSpace(in.UTRNumber)
	if utr == "" {
		return 0, shared.Validationf("utr number is required")
	}

	detail, err := tx.DetailForUpdate(ctx, in.DetailID)
	if err != nil {
		return 0, err
	}
	if detail.Status == DetailConfirmed {
		return 0, shared.Conflictf("payment detail %d is already confirmed", in.DetailID)
	}

	if err := tx.ConfirmDetail(ctx, in.DetailID, utr); err != nil {
		return 0, err
	}
	if err := tx.AddBillPaid(ctx, detail.BillID, detail.Amount); err != nil {
		return 0, err
	}
	if detail.ProposalItemID != nil {
		if err := tx.MarkItemPaid(ctx, *detail.ProposalItemID); err != nil {
			return 0, err
		}
	}

	pending, err := tx.PendingUTRCount(ctx, detail.PaymentID)
	if err != nil {
		return 0, err
	}
	status := StatusProcessed
	if pending == 0 {
		status = StatusConfirmed
	}
	if err := tx.SetPaymentStatus(ctx, detail.PaymentID, status); err != nil {
		return 0, err
	}
	return detail.PaymentID, nil
}

func (s *Service) recordApproval(ctx context.Context, actor authz.Principal, paymentID int64, action shared.ApprovalAction, note string) {
	if s.approvals == nil {
		return
	}
	_ = s.approvals.Record(ctx, shared.ApprovalLog{
		Module:  "payment",
		RefID:   paymentID,
		ActorID: actor.UserID,
		Action:  action,
		Note:    note,
	})
}
