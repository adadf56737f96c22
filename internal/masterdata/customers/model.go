package customers

import (
	"time"
)

// Customer represents a buyer counterparty. Customers are never deleted,
// only deactivated.
type Customer struct {
	ID            int64     `json:"id"`
	Code          string    `json:"code"`
	Name          string    `json:"name"`
	ContactPerson string    `json:"contact_person"`
	Phone         string    `json:"phone"`
	Email         string    `json:"email"`
	Address       string    `json:"address"`
	CreditDays    int       `json:"credit_days"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ListFilters narrows customer listings.
type ListFilters struct {
	Search     string
	ActiveOnly bool
	Limit      int
	Offset     int
}
