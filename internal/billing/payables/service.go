package payables

import (
	"context"
	"strconv"
	"strings"

	"github.com/ledgerline/ledgerline/internal/authz"
	"github.com/ledgerline/ledgerline/internal/billing/lifecycle"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// Service wraps payable bill business rules.
type Service struct {
	repo  Repository
	audit *shared.AuditLogger
}

// NewService constructs a Service.
func NewService(repo Repository, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, audit: audit}
}

func (s *Service) List(ctx context.Context, actor authz.Principal, filters ListFilters) ([]Bill, int, error) {
	if err := authz.Require(actor.Role, authz.OpBillView); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, actor authz.Principal, id int64) (Bill, error) {
	if err := authz.Require(actor.Role, authz.OpBillView); err != nil {
		return Bill{}, err
	}
	if id <= 0 {
		return Bill{}, shared.Validationf("invalid bill id")
	}
	return s.repo.Get(ctx, id)
}

// Create logs an incoming vendor bill. The due date is computed from the
// invoice date and the credit days, never supplied by the caller.
func (s *Service) Create(ctx context.Context, actor authz.Principal, in CreateBillInput) (Bill, error) {
	if err := authz.Require(actor.Role, authz.OpBillCreate); err != nil {
		return Bill{}, err
	}
	if err := validateCreate(in); err != nil {
		return Bill{}, err
	}
	exists, active, err := s.repo.VendorState(ctx, in.VendorID)
	if err != nil {
		return Bill{}, err
	}
	if !exists {
		return Bill{}, shared.Referencef("vendor %d does not exist", in.VendorID)
	}
	if !active {
		return Bill{}, shared.Referencef("vendor %d is inactive", in.VendorID)
	}

	bill := Bill{
		VendorID:      in.VendorID,
		BillNumber:    strings.TrimSpace(in.BillNumber),
		InvoiceDate:   in.InvoiceDate,
		ReceivingDate: in.ReceivingDate,
		Amount:        in.Amount,
		CreditDays:    in.CreditDays,
		DueDate:       lifecycle.DueDate(in.InvoiceDate, in.CreditDays),
		CheckedBy:     strings.TrimSpace(in.CheckedBy),
		Remarks:       strings.TrimSpace(in.Remarks),
		CreatedBy:     actor.UserID,
	}
	created, err := s.repo.Create(ctx, bill)
	if err != nil {
		return Bill{}, err
	}
	s.recordAudit(ctx, actor, "payable.create", created.ID)
	return created, nil
}

// Update applies an explicit field-by-field command to a bill that is not
// cancelled and not fully paid. Partially settled bills stay editable, but
// the amount may never drop below what is already paid. When the invoice
// date or credit days change the due date is recomputed from the updated
// values.
func (s *Service) Update(ctx context.Context, actor authz.Principal, id int64, cmd UpdateBillCommand) (Bill, error) {
	if err := authz.Require(actor.Role, authz.OpBillEdit); err != nil {
		return Bill{}, err
	}
	if id <= 0 {
		return Bill{}, shared.Validationf("invalid bill id")
	}
	if cmd.Empty() {
		return Bill{}, shared.Validationf("no fields to update")
	}

	bill, err := s.repo.Get(ctx, id)
	if err != nil {
		return Bill{}, err
	}
	if bill.Status == StatusCancelled {
		return Bill{}, shared.Conflictf("bill %d is cancelled", id)
	}
	if bill.PaymentStatus == lifecycle.PaymentPaid {
		return Bill{}, shared.Conflictf("bill %d is fully paid", id)
	}
	expected := bill.Version
	if cmd.ExpectedVersion != nil {
		expected = *cmd.ExpectedVersion
	}

	if cmd.BillNumber != nil {
		bill.BillNumber = strings.TrimSpace(*cmd.BillNumber)
	}
	if cmd.InvoiceDate != nil {
		bill.InvoiceDate = *cmd.InvoiceDate
	}
	if cmd.ReceivingDate != nil {
		bill.ReceivingDate = *cmd.ReceivingDate
	}
	if cmd.Amount != nil {
		bill.Amount = *cmd.Amount
	}
	if cmd.CreditDays != nil {
		bill.CreditDays = *cmd.CreditDays
	}
	if cmd.CheckedBy != nil {
		bill.CheckedBy = strings.TrimSpace(*cmd.CheckedBy)
	}
	if cmd.Remarks != nil {
		bill.Remarks = strings.TrimSpace(*cmd.Remarks)
	}
	if cmd.InvoiceDate != nil || cmd.CreditDays != nil {
		bill.DueDate = lifecycle.DueDate(bill.InvoiceDate, bill.CreditDays)
	}
	if err := validateBill(bill); err != nil {
		return Bill{}, err
	}
	if bill.Amount.LessThan(bill.PaidAmount) {
		return Bill{}, shared.Validationf("amount %s is below the %s already paid on bill %d",
			bill.Amount.String(), bill.PaidAmount.String(), id)
	}

	saved, err := s.repo.Save(ctx, bill, expected)
	if err != nil {
		return Bill{}, err
	}
	s.recordAudit(ctx, actor, "payable.update", id)
	return saved, nil
}

// Cancel retires a bill that has no payments against it. A reason is
// mandatory and is kept on the record.
func (s *Service) Cancel(ctx context.Context, actor authz.Principal, id int64, reason string) (Bill, error) {
	if err := authz.Require(actor.Role, authz.OpBillCancel); err != nil {
		return Bill{}, err
	}
	if id <= 0 {
		return Bill{}, shared.Validationf("invalid bill id")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Bill{}, shared.Validationf("cancellation reason is required")
	}

	bill, err := s.repo.Get(ctx, id)
	if err != nil {
		return Bill{}, err
	}
	if bill.Status == StatusCancelled {
		return Bill{}, shared.Conflictf("bill %d is already cancelled", id)
	}
	if bill.PaidAmount.IsPositive() {
		return Bill{}, shared.Conflictf("bill %d has payments recorded and cannot be cancelled", id)
	}

	cancelled, err := s.repo.Cancel(ctx, id, reason, actor.UserID)
	if err != nil {
		return Bill{}, err
	}
	s.recordAudit(ctx, actor, "payable.cancel", id)
	return cancelled, nil
}

func validateCreate(in CreateBillInput) error {
	fields := map[string]string{}
	if in.VendorID <= 0 {
		fields["vendor_id"] = "required"
	}
	if strings.TrimSpace(in.BillNumber) == "" {
		fields["bill_number"] = "required"
	}
	if in.InvoiceDate.IsZero() {
		fields["invoice_date"] = "required"
	}
	if in.ReceivingDate.IsZero() {
		fields["receiving_date"] = "required"
	}
	if !in.Amount.IsPositive() {
		fields["amount"] = "must be positive"
	}
	if in.CreditDays < 0 || in.CreditDays > 365 {
		fields["credit_days"] = "must be between 0 and 365"
	}
	if len(fields) > 0 {
		return shared.ValidationFields("invalid bill", fields)
	}
	return nil
}

func validateBill(b Bill) error {
	fields := map[string]string{}
	if b.BillNumber == "" {
		fields["bill_number"] = "required"
	}
	if !b.Amount.IsPositive() {
		fields["amount"] = "must be positive"
	}
	if b.CreditDays < 0 || b.CreditDays > 365 {
		fields["credit_days"] = "must be between 0 and 365"
	}
	if len(fields) > 0 {
		return shared.ValidationFields("invalid bill", fields)
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actor authz.Principal, action string, id int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.UserID,
		Action:   action,
		Entity:   "payable_bill",
		EntityID: strconv.FormatInt(id, 10),
	})
}
