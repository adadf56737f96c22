package receivables

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/billing/lifecycle"
)

// BillStatus enumerates receivable bill record states.
type BillStatus string

const (
	StatusActive    BillStatus = "active"
	StatusCancelled BillStatus = "cancelled"
)

// Bill is an outward customer invoice.
type Bill struct {
	ID               int64                    `json:"id"`
	CustomerID       int64                    `json:"customer_id"`
	CustomerName     string                   `json:"customer_name,omitempty"`
	InvoiceNumber    string                   `json:"invoice_number"`
	InvoiceDate      time.Time                `json:"invoice_date"`
	DispatchDate     time.Time                `json:"dispatch_date"`
	Amount           decimal.Decimal          `json:"amount"`
	CollectedAmount  decimal.Decimal          `json:"collected_amount"`
	CreditDays       int                      `json:"credit_days"`
	DueDate          time.Time                `json:"due_date"`
	Status           BillStatus               `json:"status"`
	CollectionStatus lifecycle.PaymentStatus  `json:"collection_status"`
	DeliveryStatus   lifecycle.DeliveryStatus `json:"delivery_status"`
	DeliveryMode     string                   `json:"delivery_mode"`
	DeliveryPerson   string                   `json:"delivery_person,omitempty"`
	CourierName      string                   `json:"courier_name,omitempty"`
	Remarks          string                   `json:"remarks"`
	CancelReason     *string                  `json:"cancel_reason,omitempty"`
	CancelledBy      *int64                   `json:"cancelled_by,omitempty"`
	Version          int                      `json:"version"`
	CreatedBy        int64                    `json:"created_by"`
	CreatedAt        time.Time                `json:"created_at"`
	UpdatedAt        time.Time                `json:"updated_at"`
}

// Outstanding returns the uncollected remainder.
func (b Bill) Outstanding() decimal.Decimal {
	return lifecycle.Outstanding(b.Amount, b.CollectedAmount)
}

// CreateBillInput carries the fields logged for an outgoing invoice. The
// delivery status is never supplied; it is seeded from the dispatch mode.
type CreateBillInput struct {
	CustomerID     int64
	InvoiceNumber  string
	InvoiceDate    time.Time
	DispatchDate   time.Time
	Amount         decimal.Decimal
	CreditDays     int
	DeliveryMode   string
	DeliveryPerson string
	CourierName    string
	Remarks        string
}

// UpdateBillCommand names every field an owner may change on a receivable.
type UpdateBillCommand struct {
	InvoiceNumber   *string
	InvoiceDate     *time.Time
	DispatchDate    *time.Time
	Amount          *decimal.Decimal
	CreditDays      *int
	Remarks         *string
	ExpectedVersion *int
}

// Empty reports whether the command carries no field changes.
func (c UpdateBillCommand) Empty() bool {
	return c.InvoiceNumber == nil && c.InvoiceDate == nil && c.DispatchDate == nil &&
		c.Amount == nil && c.CreditDays == nil && c.Remarks == nil
}

// CollectionInput records money received against an invoice.
type CollectionInput struct {
	Amount         decimal.Decimal
	CollectionDate time.Time
	Mode           string
	Reference      string
}

// ListFilters narrows receivable listings.
type ListFilters struct {
	CustomerID       int64
	CollectionStatus lifecycle.PaymentStatus
	DeliveryStatus   lifecycle.DeliveryStatus
	OverdueOnly      bool
	Search           string
	Limit            int
	Offset           int
}
