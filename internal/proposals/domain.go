package proposals

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status enumerates proposal lifecycle states.
type Status string

const (
	StatusDraft           Status = "draft"
	StatusSubmitted       Status = "submitted"
	StatusUnderReview     Status = "under_review"
	StatusApproved        Status = "approved"
	StatusPartialApproved Status = "partial_approved"
	StatusRejected        Status = "rejected"
	StatusCompleted       Status = "completed"
)

// Terminal reports whether a proposal can no longer accept items or
// decisions.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusCompleted
}

// AccountsStatus is the accounts review track of an item.
type AccountsStatus string

const (
	AccountsPending  AccountsStatus = "pending"
	AccountsApproved AccountsStatus = "approved"
	AccountsHeld     AccountsStatus = "held"
)

// OwnerStatus is the owner decision track of an item.
type OwnerStatus string

const (
	OwnerPending  OwnerStatus = "pending"
	OwnerApproved OwnerStatus = "approved"
	OwnerDeferred OwnerStatus = "deferred"
	OwnerRejected OwnerStatus = "rejected"
)

// ItemStatus is the composite status derived from the two tracks and the
// settlement flag. It is computed, never written by callers.
type ItemStatus string

const (
	ItemProposed         ItemStatus = "proposed"
	ItemAccountsApproved ItemStatus = "accounts_approved"
	ItemAccountsHeld     ItemStatus = "accounts_held"
	ItemOwnerApproved    ItemStatus = "owner_approved"
	ItemCarryForward     ItemStatus = "carry_forward"
	ItemOwnerRejected    ItemStatus = "owner_rejected"
	ItemPaid             ItemStatus = "paid"
)

// Proposal is a purchase-initiated payment batch.
type Proposal struct {
	ID           int64           `json:"id"`
	Number       string          `json:"number"`
	ProposalDate time.Time       `json:"proposal_date"`
	PaymentDate  time.Time       `json:"payment_date"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	Status       Status          `json:"status"`
	CreatedBy    int64           `json:"created_by"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	Items        []Item          `json:"items,omitempty"`
}

// Item ties a proposal to one payable bill with its approval tracks.
type Item struct {
	ID             int64            `json:"id"`
	ProposalID     int64            `json:"proposal_id"`
	BillID         int64            `json:"bill_id"`
	BillNumber     string           `json:"bill_number,omitempty"`
	VendorName     string           `json:"vendor_name,omitempty"`
	ProposedAmount decimal.Decimal  `json:"proposed_amount"`
	AccountsStatus AccountsStatus   `json:"accounts_status"`
	AccountsAmount *decimal.Decimal `json:"accounts_amount,omitempty"`
	AccountsReason string           `json:"accounts_reason,omitempty"`
	AccountsBy     *int64           `json:"accounts_by,omitempty"`
	AccountsAt     *time.Time       `json:"accounts_at,omitempty"`
	OwnerStatus    OwnerStatus      `json:"owner_status"`
	OwnerAmount    *decimal.Decimal `json:"owner_amount,omitempty"`
	OwnerReason    string           `json:"owner_reason,omitempty"`
	OwnerBy        *int64           `json:"owner_by,omitempty"`
	OwnerAt        *time.Time       `json:"owner_at,omitempty"`
	Settled        bool             `json:"settled"`
	Status         ItemStatus       `json:"status"`
}

// ItemInput is one bill slated for payment in a new proposal.
type ItemInput struct {
	BillID int64
	Amount decimal.Decimal
}

// CreateInput carries a new draft proposal.
type CreateInput struct {
	PaymentDate time.Time
	Items       []ItemInput
}

// AccountsAction enumerates what the accounts role may do to an item.
type AccountsAction string

const (
	AccountsActionApprove AccountsAction = "approve"
	AccountsActionHold    AccountsAction = "hold"
	AccountsActionReject  AccountsAction = "reject"
)

// AccountsDecision is one accounts-track decision on an item.
type AccountsDecision struct {
	ItemID int64
	Action AccountsAction
	Amount *decimal.Decimal
	Reason string
}

// OwnerAction enumerates what the owner may do to an item.
type OwnerAction string

const (
	OwnerActionApprove OwnerAction = "approve"
	OwnerActionDefer   OwnerAction = "defer"
	OwnerActionReject  OwnerAction = "reject"
)

// OwnerDecision is one owner-track decision on an item.
type OwnerDecision struct {
	ItemID int64
	Action OwnerAction
	Amount *decimal.Decimal
	Reason string
}

// AvailableBill is a payable bill eligible for proposing, including bills
// whose previous item was carried forward.
type AvailableBill struct {
	BillID       int64           `json:"bill_id"`
	BillNumber   string          `json:"bill_number"`
	VendorID     int64           `json:"vendor_id"`
	VendorName   string          `json:"vendor_name"`
	DueDate      time.Time       `json:"due_date"`
	Amount       decimal.Decimal `json:"amount"`
	PaidAmount   decimal.Decimal `json:"paid_amount"`
	Outstanding  decimal.Decimal `json:"outstanding"`
	CarryForward bool            `json:"carry_forward"`
}

// ListFilters narrows proposal listings.
type ListFilters struct {
	Status    Status
	CreatedBy int64
	Limit     int
	Offset    int
}
