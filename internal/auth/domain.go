package auth

import (
	"time"

	"github.com/ledgerline/ledgerline/internal/authz"
)

// User is an operator account. Every user carries exactly one workflow
// role; the owner role implicitly covers all operations.
type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Role         authz.Role `json:"role"`
	PasswordHash string     `json:"-"`
	IsActive     bool       `json:"is_active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
