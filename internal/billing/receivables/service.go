package receivables

import (
	"context"
	"strconv"
	"strings"

	"github.com/ledgerline/ledgerline/internal/authz"
	"github.com/ledgerline/ledgerline/internal/billing/lifecycle"
	"github.com/ledgerline/ledgerline/internal/shared"
)

// Service wraps receivable bill business rules.
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

// Create logs an outgoing invoice. The delivery status is seeded from the
// dispatch mode; callers never set it directly.
func (s *Service) Create(ctx context.Context, actor authz.Principal, in CreateBillInput) (Bill, error) {
	if err := authz.Require(actor.Role, authz.OpBillCreate); err != nil {
		return Bill{}, err
	}
	if err := validateCreate(in); err != nil {
		return Bill{}, err
	}
	exists, active, err := s.repo.CustomerState(ctx, in.CustomerID)
	if err != nil {
		return Bill{}, err
	}
	if !exists {
		return Bill{}, shared.Referencef("customer %d does not exist", in.CustomerID)
	}
	if !active {
		return Bill{}, shared.Referencef("customer %d is inactive", in.CustomerID)
	}

	bill := Bill{
		CustomerID:     in.CustomerID,
		InvoiceNumber:  strings.TrimSpace(in.InvoiceNumber),
		InvoiceDate:    in.InvoiceDate,
		DispatchDate:   in.DispatchDate,
		Amount:         in.Amount,
		CreditDays:     in.CreditDays,
		DueDate:        lifecycle.DueDate(in.InvoiceDate, in.CreditDays),
		DeliveryStatus: lifecycle.SeedDeliveryStatus(in.DeliveryMode, in.DeliveryPerson, in.CourierName),
		DeliveryMode:   strings.TrimSpace(in.DeliveryMode),
		DeliveryPerson: strings.TrimSpace(in.DeliveryPerson),
		CourierName:    strings.TrimSpace(in.CourierName),
		Remarks:        strings.TrimSpace(in.Remarks),
		CreatedBy:      actor.UserID,
	}
	created, err := s.repo.Create(ctx, bill)
	if err != nil {
		return Bill{}, err
	}
	s.recordAudit(ctx, actor, "receivable.create", created.ID)
	return created, nil
}

// Update applies an explicit field-by-field command to an invoice that is
// not cancelled and not fully collected. Partially collected invoices stay
// editable, but the amount may never drop below what is already collected.
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
	if bill.CollectionStatus == lifecycle.PaymentPaid {
		return Bill{}, shared.Conflictf("bill %d is fully collected", id)
	}
	expected := bill.Version
	if cmd.ExpectedVersion != nil {
		expected = *cmd.ExpectedVersion
	}

	if cmd.InvoiceNumber != nil {
		bill.InvoiceNumber = strings.TrimSpace(*cmd.InvoiceNumber)
	}
	if cmd.InvoiceDate != nil {
		bill.InvoiceDate = *cmd.InvoiceDate
	}
	if cmd.DispatchDate != nil {
		bill.DispatchDate = *cmd.DispatchDate
	}
	if cmd.Amount != nil {
		bill.Amount = *cmd.Amount
	}
	if cmd.CreditDays != nil {
		bill.CreditDays = *cmd.CreditDays
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
	if bill.Amount.LessThan(bill.CollectedAmount) {
		return Bill{}, shared.Validationf("amount %s is below the %s already collected on bill %d",
			bill.Amount.String(), bill.CollectedAmount.String(), id)
	}

	saved, err := s.repo.Save(ctx, bill, expected)
	if err != nil {
		return Bill{}, err
	}
	s.recordAudit(ctx, actor, "receivable.update", id)
	return saved, nil
}

// UpdateDeliveryStatus moves an invoice through the dispatch pipeline.
func (s *Service) UpdateDeliveryStatus(ctx context.Context, actor authz.Principal, id int64, status lifecycle.DeliveryStatus) (Bill, error) {
	if err := authz.Require(actor.Role, authz.OpDeliveryUpdate); err != nil {
		return Bill{}, err
	}
	if id <= 0 {
		return Bill{}, shared.Validationf("invalid bill id")
	}
	if !lifecycle.ValidDeliveryStatus(status) {
		return Bill{}, shared.Validationf("unknown delivery status %q", status)
	}
	updated, err := s.repo.SetDeliveryStatus(ctx, id, status)
	if err != nil {
		return Bill{}, err
	}
	s.recordAudit(ctx, actor, "receivable.delivery."+string(status), id)
	return updated, nil
}

// RecordCollection books money received against an invoice. The collected
// total may never exceed the invoice amount.
func (s *Service) RecordCollection(ctx context.Context, actor authz.Principal, id int64, in CollectionInput) (Bill, error) {
	if err := authz.Require(actor.Role, authz.OpCollectionRecord); err != nil {
		return Bill{}, err
	}
	if id <= 0 {
		return Bill{}, shared.Validationf("invalid bill id")
	}
	if !in.Amount.IsPositive() {
		return Bill{}, shared.Validationf("collection amount must be positive")
	}

	bill, err := s.repo.Get(ctx, id)
	if err != nil {
		return Bill{}, err
	}
	if bill.Status == StatusCancelled {
		return Bill{}, shared.Conflictf("bill %d is cancelled", id)
	}
	if in.Amount.GreaterThan(bill.Outstanding()) {
		return Bill{}, shared.Conflictf("collection of %s exceeds outstanding %s on bill %d",
			in.Amount.String(), bill.Outstanding().String(), id)
	}

	updated, err := s.repo.AddCollection(ctx, id, in.Amount)
	if err != nil {
		return Bill{}, err
	}
	s.recordAudit(ctx, actor, "receivable.collect", id)
	return updated, nil
}

// Cancel retires an invoice with nothing collected against it.
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
	if bill.CollectedAmount.IsPositive() {
		return Bill{}, shared.Conflictf("bill %d has collections recorded and cannot be cancelled", id)
	}

	cancelled, err := s.repo.Cancel(ctx, id, reason, actor.UserID)
	if err != nil {
		return Bill{}, err
	}
	s.recordAudit(ctx, actor, "receivable.cancel", id)
	return cancelled, nil
}

func validateCreate(in CreateBillInput) error {
	fields := map[string]string{}
	if in.CustomerID <= 0 {
		fields["customer_id"] = "required"
	}
	if strings.TrimSpace(in.InvoiceNumber) == "" {
		fields["invoice_number"] = "required"
	}
	if in.InvoiceDate.IsZero() {
		fields["invoice_date"] = "required"
	}
	if in.DispatchDate.IsZero() {
		fields["dispatch_date"] = "required"
	}
	if !in.Amount.IsPositive() {
		fields["amount"] = "must be positive"
	}
	if in.CreditDays < 0 || in.CreditDays > 365 {
		fields["credit_days"] = "must be between 0 and 365"
	}
	if len(fields) > 0 {
		return shared.ValidationFields("invalid invoice", fields)
	}
	return nil
}

func validateBill(b Bill) error {
	fields := map[string]string{}
	if b.InvoiceNumber == "" {
		fields["invoice_number"] = "required"
	}
	if !b.Amount.IsPositive() {
		fields["amount"] = "must be positive"
	}
	if b.CreditDays < 0 || b.CreditDays > 365 {
		fields["credit_days"] = "must be between 0 and 365"
	}
	if len(fields) > 0 {
		return shared.ValidationFields("invalid invoice", fields)
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
		Entity:   "receivable_bill",
		EntityID: strconv.FormatInt(id, 10),
	})
}
