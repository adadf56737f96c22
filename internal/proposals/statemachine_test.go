package proposals

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveItemStatus(t *testing.T) {
	cases := []struct {
		name     string
		accounts AccountsStatus
		owner    OwnerStatus
		settled  bool
		want     ItemStatus
	}{
		{"fresh item", AccountsPending, OwnerPending, false, ItemProposed},
		{"accounts approved", AccountsApproved, OwnerPending, false, ItemAccountsApproved},
		{"accounts held", AccountsHeld, OwnerPending, false, ItemAccountsHeld},
		{"owner approved outranks accounts", AccountsApproved, OwnerApproved, false, ItemOwnerApproved},
		{"owner approved without accounts", AccountsPending, OwnerApproved, false, ItemOwnerApproved},
		{"defer carries forward", AccountsApproved, OwnerDeferred, false, ItemCarryForward},
		{"owner rejected", AccountsHeld, OwnerRejected, false, ItemOwnerRejected},
		{"settled outranks everything", AccountsApproved, OwnerApproved, true, ItemPaid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, DeriveItemStatus(tc.accounts, tc.owner, tc.settled))
		})
	}
}

func TestBlocksReproposal(t *testing.T) {
	blocking := []ItemStatus{ItemProposed, ItemAccountsApproved, ItemAccountsHeld, ItemOwnerApproved}
	for _, s := range blocking {
		require.True(t, BlocksReproposal(s), string(s))
	}
	released := []ItemStatus{ItemOwnerRejected, ItemPaid, ItemCarryForward}
	for _, s := range released {
		require.False(t, BlocksReproposal(s), string(s))
	}
}

func TestDeriveOutcome(t *testing.T) {
	item := func(owner OwnerStatus) Item {
		return Item{OwnerStatus: owner}
	}

	cases := []struct {
		name    string
		items   []Item
		want    Status
		decided bool
	}{
		{"undecided while any pending", []Item{item(OwnerApproved), item(OwnerPending)}, "", false},
		{"all approved", []Item{item(OwnerApproved), item(OwnerApproved)}, StatusApproved, true},
		{"approved and deferred", []Item{item(OwnerApproved), item(OwnerDeferred)}, StatusPartialApproved, true},
		{"approved and rejected", []Item{item(OwnerApproved), item(OwnerRejected)}, StatusPartialApproved, true},
		{"all rejected", []Item{item(OwnerRejected), item(OwnerRejected)}, StatusRejected, true},
		{"all deferred counts as rejected", []Item{item(OwnerDeferred), item(OwnerDeferred)}, StatusRejected, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, decided := DeriveOutcome(tc.items)
			require.Equal(t, tc.decided, decided)
			if decided {
				require.Equal(t, tc.want, got)
			}
		})
	}
}
