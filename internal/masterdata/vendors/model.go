package vendors

import (
	"time"
)

// Vendor represents a supplier counterparty. Vendors are never deleted, only
// deactivated.
type Vendor struct {
	ID                int64     `json:"id"`
	Code              string    `json:"code"`
	Name              string    `json:"name"`
	ContactPerson     string    `json:"contact_person"`
	Phone             string    `json:"phone"`
	Email             string    `json:"email"`
	Address           string    `json:"address"`
	BankAccountName   string    `json:"bank_account_name"`
	BankAccountNumber string    `json:"bank_account_number"`
	BankIFSC          string    `json:"bank_ifsc"`
	CreditDays        int       `json:"credit_days"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ListFilters narrows vendor listings.
type ListFilters struct {
	Search     string
	ActiveOnly bool
	Limit      int
	Offset     int
}
