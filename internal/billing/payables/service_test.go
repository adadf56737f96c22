package payables

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ledgerline/ledgerline/internal/authz"
	"github.com/ledgerline/ledgerline/internal/billing/lifecycle"
	"github.com/ledgerline/ledgerline/internal/shared"
)

type memoryRepo struct {
	bills   map[int64]Bill
	vendors map[int64]bool
	nextID  int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{bills: make(map[int64]Bill), vendors: map[int64]bool{1: true}}
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Bill, error) {
	b, ok := r.bills[id]
	if !ok {
		return Bill{}, shared.NotFoundf("payable bill %d not found", id)
	}
	b.PaymentStatus = lifecycle.DerivePaymentStatus(b.Amount, b.PaidAmount)
	return b, nil
}

func (r *memoryRepo) List(ctx context.Context, filters ListFilters) ([]Bill, int, error) {
	var out []Bill
	for _, b := range r.bills {
		if filters.VendorID != 0 && b.VendorID != filters.VendorID {
			continue
		}
		out = append(out, b)
	}
	return out, len(out), nil
}

func (r *memoryRepo) Create(ctx context.Context, bill Bill) (Bill, error) {
	r.nextID++
	bill.ID = r.nextID
	bill.Status = StatusActive
	bill.Version = 1
	bill.PaidAmount = decimal.Zero
	bill.PaymentStatus = lifecycle.PaymentOpen
	r.bills[bill.ID] = bill
	return bill, nil
}

func (r *memoryRepo) Save(ctx context.Context, bill Bill, expectedVersion int) (Bill, error) {
	stored, ok := r.bills[bill.ID]
	if !ok {
		return Bill{}, shared.NotFoundf("payable bill %d not found", bill.ID)
	}
	if stored.Version != expectedVersion {
		return Bill{}, shared.Conflictf("payable bill %d was modified concurrently (expected version %d)", bill.ID, expectedVersion)
	}
	bill.Version = stored.Version + 1
	bill.Status = stored.Status
	bill.PaidAmount = stored.PaidAmount
	r.bills[bill.ID] = bill
	return r.Get(ctx, bill.ID)
}

func (r *memoryRepo) Cancel(ctx context.Context, id int64, reason string, actorID int64) (Bill, error) {
	b, ok := r.bills[id]
	if !ok || b.Status != StatusActive || b.PaidAmount.IsPositive() {
		return Bill{}, shared.Conflictf("payable bill %d cannot be cancelled", id)
	}
	b.Status = StatusCancelled
	b.CancelReason = &reason
	b.CancelledBy = &actorID
	b.Version++
	r.bills[id] = b
	return r.Get(ctx, id)
}

func (r *memoryRepo) VendorState(ctx context.Context, vendorID int64) (bool, bool, error) {
	active, ok := r.vendors[vendorID]
	return ok, active, nil
}

var (
	godown = authz.Principal{UserID: 10, Role: "godown"}
	owner  = authz.Principal{UserID: 1, Role: "owner"}
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func validInput() CreateBillInput {
	return CreateBillInput{
		VendorID:      1,
		BillNumber:    "INV-1042",
		InvoiceDate:   date("2026-03-10"),
		ReceivingDate: date("2026-03-12"),
		Amount:        decimal.RequireFromString("15000.50"),
		CreditDays:    30,
		CheckedBy:     "ramesh",
	}
}

func TestCreateComputesDueDate(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	bill, err := svc.Create(context.Background(), godown, validInput())
	require.NoError(t, err)
	require.Equal(t, date("2026-04-09"), bill.DueDate)
	require.Equal(t, StatusActive, bill.Status)
	require.Equal(t, lifecycle.PaymentOpen, bill.PaymentStatus)
	require.Equal(t, 1, bill.Version)
}

func TestCreateRejectsUnknownOrInactiveVendor(t *testing.T) {
	repo := newMemoryRepo()
	repo.vendors[2] = false
	svc := NewService(repo, nil)

	in := validInput()
	in.VendorID = 99
	_, err := svc.Create(context.Background(), godown, in)
	require.True(t, shared.IsKind(err, shared.KindReference))

	in.VendorID = 2
	_, err = svc.Create(context.Background(), godown, in)
	require.True(t, shared.IsKind(err, shared.KindReference))
}

func TestCreateRequiresGodownOrOwner(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)

	_, err := svc.Create(context.Background(), authz.Principal{UserID: 5, Role: "accounts"}, validInput())
	require.True(t, shared.IsKind(err, shared.KindAuthorization))

	_, err = svc.Create(context.Background(), owner, validInput())
	require.NoError(t, err)
}

func TestUpdateRecomputesDueDateOnCreditDaysChange(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	bill, err := svc.Create(context.Background(), godown, validInput())
	require.NoError(t, err)

	days := 45
	updated, err := svc.Update(context.Background(), owner, bill.ID, UpdateBillCommand{CreditDays: &days})
	require.NoError(t, err)
	require.Equal(t, date("2026-04-24"), updated.DueDate)
	require.Equal(t, 2, updated.Version)
}

func TestUpdateEmptyCommandFails(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	bill, err := svc.Create(context.Background(), godown, validInput())
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), owner, bill.ID, UpdateBillCommand{})
	require.True(t, shared.IsKind(err, shared.KindValidation))
}

func TestUpdateVersionMismatchConflicts(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	bill, err := svc.Create(context.Background(), godown, validInput())
	require.NoError(t, err)

	stale := bill.Version
	days := 15
	_, err = svc.Update(context.Background(), owner, bill.ID, UpdateBillCommand{CreditDays: &days, ExpectedVersion: &stale})
	require.NoError(t, err)

	// Replaying with the original version must fail now that it moved on.
	_, err = svc.Update(context.Background(), owner, bill.ID, UpdateBillCommand{CreditDays: &days, ExpectedVersion: &stale})
	require.True(t, shared.IsKind(err, shared.KindConflict))
}

func TestUpdatePartiallyPaidBillStaysEditable(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	bill, err := svc.Create(context.Background(), godown, validInput())
	require.NoError(t, err)

	paid := repo.bills[bill.ID]
	paid.PaidAmount = decimal.RequireFromString("5000")
	repo.bills[bill.ID] = paid

	days := 60
	updated, err := svc.Update(context.Background(), owner, bill.ID, UpdateBillCommand{CreditDays: &days})
	require.NoError(t, err)
	require.Equal(t, date("2026-05-09"), updated.DueDate)

	// The amount may not drop below what is already paid.
	below := decimal.RequireFromString("4999.99")
	_, err = svc.Update(context.Background(), owner, bill.ID, UpdateBillCommand{Amount: &below})
	require.True(t, shared.IsKind(err, shared.KindValidation))
}

func TestUpdateRefusedOnceFullyPaid(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	bill, err := svc.Create(context.Background(), godown, validInput())
	require.NoError(t, err)

	paid := repo.bills[bill.ID]
	paid.PaidAmount = paid.Amount
	repo.bills[bill.ID] = paid

	days := 60
	_, err = svc.Update(context.Background(), owner, bill.ID, UpdateBillCommand{CreditDays: &days})
	require.True(t, shared.IsKind(err, shared.KindConflict))
}

func TestCancelRequiresReasonAndNoPayments(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	bill, err := svc.Create(context.Background(), godown, validInput())
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), owner, bill.ID, "  ")
	require.True(t, shared.IsKind(err, shared.KindValidation))

	cancelled, err := svc.Cancel(context.Background(), owner, bill.ID, "duplicate entry")
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelReason)
	require.Equal(t, "duplicate entry", *cancelled.CancelReason)

	_, err = svc.Cancel(context.Background(), owner, bill.ID, "again")
	require.True(t, shared.IsKind(err, shared.KindConflict))
}

func TestCancelRefusedWithPayments(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil)
	bill, err := svc.Create(context.Background(), godown, validInput())
	require.NoError(t, err)

	paid := repo.bills[bill.ID]
	paid.PaidAmount = decimal.RequireFromString("100")
	repo.bills[bill.ID] = paid

	_, err = svc.Cancel(context.Background(), owner, bill.ID, "wrong vendor")
	require.True(t, shared.IsKind(err, shared.KindConflict))
	require.Equal(t, StatusActive, repo.bills[bill.ID].Status)
}
