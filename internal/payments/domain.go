package payments

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status enumerates payment batch states. A payment is confirmed only when
// every detail under it carries a UTR.
type Status string

const (
	StatusPending   Status = "pending"
	StatusProcessed Status = "processed"
	StatusConfirmed Status = "confirmed"
)

// DetailStatus enumerates settlement states of one payment line.
type DetailStatus string

const (
	DetailPending   DetailStatus = "pending"
	DetailConfirmed DetailStatus = "confirmed"
)

// Payment is a settlement batch generated from an approved proposal.
type Payment struct {
	ID            int64           `json:"id"`
	Number        string          `json:"number"`
	ProposalID    *int64          `json:"proposal_id,omitempty"`
	PaymentDate   time.Time       `json:"payment_date"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	BankAccountID int64           `json:"bank_account_id"`
	Status        Status          `json:"status"`
	CreatedBy     int64           `json:"created_by"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Details       []Detail        `json:"details,omitempty"`
}

// Detail links a payment to one payable bill.
type Detail struct {
	ID             int64           `json:"id"`
	PaymentID      int64           `json:"payment_id"`
	BillID         int64           `json:"bill_id"`
	BillNumber     string          `json:"bill_number,omitempty"`
	VendorName     string          `json:"vendor_name,omitempty"`
	ProposalItemID *int64          `json:"proposal_item_id,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	UTRNumber      *string         `json:"utr_number,omitempty"`
	Status         DetailStatus    `json:"status"`
}

// GenerateInput carries the parameters of a batch generation.
type GenerateInput struct {
	ProposalID    int64
	PaymentDate   time.Time
	BankAccountID int64
}

// SettlementInput records one UTR against a detail.
type SettlementInput struct {
	DetailID  int64
	UTRNumber string
}

// BankExportRow is the read-only projection a bank-file collaborator
// consumes: one transfer per detail with the vendor's bank coordinates.
type BankExportRow struct {
	PaymentNumber   string          `json:"payment_number"`
	PaymentDate     time.Time       `json:"payment_date"`
	DetailID        int64           `json:"detail_id"`
	BillNumber      string          `json:"bill_number"`
	VendorName      string          `json:"vendor_name"`
	BankAccountName string          `json:"bank_account_name"`
	BankAccountNo   string          `json:"bank_account_number"`
	BankIFSC        string          `json:"bank_ifsc"`
	Amount          decimal.Decimal `json:"amount"`
}

// ListFilters narrows payment listings.
type ListFilters struct {
	Status     Status
	ProposalID int64
	Limit      int
	Offset     int
}
