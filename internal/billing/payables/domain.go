package payables

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/billing/lifecycle"
)

// BillStatus enumerates payable bill record states. Payment progress is a
// separate derived field, never stored alongside out of sync.
type BillStatus string

const (
	StatusActive    BillStatus = "active"
	StatusCancelled BillStatus = "cancelled"
)

// Bill is an inward vendor bill.
type Bill struct {
	ID            int64                    `json:"id"`
	VendorID      int64                    `json:"vendor_id"`
	VendorName    string                   `json:"vendor_name,omitempty"`
	BillNumber    string                   `json:"bill_number"`
	InvoiceDate   time.Time                `json:"invoice_date"`
	ReceivingDate time.Time                `json:"receiving_date"`
	Amount        decimal.Decimal          `json:"amount"`
	PaidAmount    decimal.Decimal          `json:"paid_amount"`
	CreditDays    int                      `json:"credit_days"`
	DueDate       time.Time                `json:"due_date"`
	Status        BillStatus               `json:"status"`
	PaymentStatus lifecycle.PaymentStatus  `json:"payment_status"`
	CheckedBy     string                   `json:"checked_by"`
	Remarks       string                   `json:"remarks"`
	CancelReason  *string                  `json:"cancel_reason,omitempty"`
	CancelledBy   *int64                   `json:"cancelled_by,omitempty"`
	Version       int                      `json:"version"`
	CreatedBy     int64                    `json:"created_by"`
	CreatedAt     time.Time                `json:"created_at"`
	UpdatedAt     time.Time                `json:"updated_at"`
}

// Outstanding returns the unpaid remainder.
func (b Bill) Outstanding() decimal.Decimal {
	return lifecycle.Outstanding(b.Amount, b.PaidAmount)
}

// CreateBillInput carries the fields godown staff log for an incoming bill.
type CreateBillInput struct {
	VendorID      int64
	BillNumber    string
	InvoiceDate   time.Time
	ReceivingDate time.Time
	Amount        decimal.Decimal
	CreditDays    int
	CheckedBy     string
	Remarks       string
}

// UpdateBillCommand names every field an owner may change. Only non-nil
// fields are applied; a free-form map is never accepted.
type UpdateBillCommand struct {
	BillNumber      *string
	InvoiceDate     *time.Time
	ReceivingDate   *time.Time
	Amount          *decimal.Decimal
	CreditDays      *int
	CheckedBy       *string
	Remarks         *string
	ExpectedVersion *int
}

// Empty reports whether the command carries no field changes.
func (c UpdateBillCommand) Empty() bool {
	return c.BillNumber == nil && c.InvoiceDate == nil && c.ReceivingDate == nil &&
		c.Amount == nil && c.CreditDays == nil && c.CheckedBy == nil && c.Remarks == nil
}

// ListFilters narrows bill listings.
type ListFilters struct {
	VendorID      int64
	PaymentStatus lifecycle.PaymentStatus
	OverdueOnly   bool
	Search        string
	Limit         int
	Offset        int
}
