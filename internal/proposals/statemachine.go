package proposals

// DeriveItemStatus computes the composite item status from the two approval
// tracks and the settlement flag. The owner track outranks the accounts
// track, and settlement outranks everything.
func DeriveItemStatus(accounts AccountsStatus, owner OwnerStatus, settled bool) ItemStatus {
	if settled {
		return ItemPaid
	}
	switch owner {
	case OwnerApproved:
		return ItemOwnerApproved
	case OwnerDeferred:
		return ItemCarryForward
	case OwnerRejected:
		return ItemOwnerRejected
	}
	switch accounts {
	case AccountsApproved:
		return ItemAccountsApproved
	case AccountsHeld:
		return ItemAccountsHeld
	}
	return ItemProposed
}

// BlocksReproposal reports whether an item on a live proposal still claims
// its bill. Rejected and settled items release the bill; a carried-forward
// item does too.
func BlocksReproposal(status ItemStatus) bool {
	switch status {
	case ItemOwnerRejected, ItemPaid, ItemCarryForward:
		return false
	}
	return true
}

// DeriveOutcome computes the proposal status after the owner has decided
// every item. It returns decided=false while any owner track is pending.
// A proposal with no approved item is rejected, even when every item was
// deferred rather than rejected.
func DeriveOutcome(items []Item) (status Status, decided bool) {
	if len(items) == 0 {
		return StatusRejected, true
	}
	var approved, deferred, rejected int
	for _, it := range items {
		switch it.OwnerStatus {
		case OwnerApproved:
			approved++
		case OwnerDeferred:
			deferred++
		case OwnerRejected:
			rejected++
		default:
			return "", false
		}
	}
	switch {
	case approved == 0:
		return StatusRejected, true
	case approved == len(items):
		return StatusApproved, true
	default:
		return StatusPartialApproved, true
	}
}
