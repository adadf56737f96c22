// Package authz implements role-gated access control as a single declarative
// permission table keyed by (operation, role), consulted once per operation
// entry point.
package authz

import (
	"github.com/ledgerline/ledgerline/internal/shared"
)

// Role enumerates the fixed set of workflow roles.
type Role string

const (
	RoleGodown   Role = "godown"
	RolePurchase Role = "purchase"
	RoleAccounts Role = "accounts"
	RoleOwner    Role = "owner"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleGodown, RolePurchase, RoleAccounts, RoleOwner:
		return true
	}
	return false
}

// Operation names a core entry point.
type Operation string

const (
	OpMasterView       Operation = "master.view"
	OpMasterEdit       Operation = "master.edit"
	OpBillView         Operation = "bill.view"
	OpBillCreate       Operation = "bill.create"
	OpBillEdit         Operation = "bill.edit"
	OpBillCancel       Operation = "bill.cancel"
	OpDeliveryUpdate   Operation = "delivery.update"
	OpCollectionRecord Operation = "collection.record"
	OpProposalView     Operation = "proposal.view"
	OpProposalCreate   Operation = "proposal.create"
	OpProposalSubmit   Operation = "proposal.submit"
	OpProposalDelete   Operation = "proposal.delete"
	OpAccountsAction   Operation = "proposal.accounts_action"
	OpOwnerAction      Operation = "proposal.owner_action"
	OpPaymentView      Operation = "payment.view"
	OpPaymentGenerate  Operation = "payment.generate"
	OpSettlementRecord Operation = "payment.settle"
	OpAgeingView       Operation = "ageing.view"
)

// permissions is the full access matrix. The owner row is implicit: owner is
// allowed every operation.
var permissions = map[Operation][]Role{
	OpMasterView:       {RoleGodown, RolePurchase, RoleAccounts},
	OpMasterEdit:       {},
	OpBillView:         {RoleGodown, RolePurchase, RoleAccounts},
	OpBillCreate:       {RoleGodown},
	OpBillEdit:         {},
	OpBillCancel:       {},
	OpDeliveryUpdate:   {RoleGodown},
	OpCollectionRecord: {RoleAccounts},
	OpProposalView:     {RolePurchase, RoleAccounts},
	OpProposalCreate:   {RolePurchase},
	OpProposalSubmit:   {RolePurchase},
	OpProposalDelete:   {RolePurchase},
	OpAccountsAction:   {RoleAccounts},
	OpOwnerAction:      {},
	OpPaymentView:      {RolePurchase, RoleAccounts},
	OpPaymentGenerate:  {},
	OpSettlementRecord: {RoleAccounts},
	OpAgeingView:       {RolePurchase, RoleAccounts},
}

// Allowed reports whether role may perform op.
func Allowed(role Role, op Operation) bool {
	if role == RoleOwner {
		return true
	}
	for _, allowed := range permissions[op] {
		if allowed == role {
			return true
		}
	}
	return false
}

// Require returns an authorization error when role may not perform op.
func Require(role Role, op Operation) error {
	if !role.Valid() {
		return shared.Authorizationf("unknown role %q", role)
	}
	if !Allowed(role, op) {
		return shared.Authorizationf("role %s is not permitted to %s", role, op)
	}
	return nil
}
