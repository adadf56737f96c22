package ageing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestBucketIndexReceivableBoundaries(t *testing.T) {
	cases := []struct {
		daysOverdue int
		wantLabel   string
	}{
		{-5, "current"},
		{0, "current"},
		{1, "1-15"},
		{15, "1-15"},
		{16, "16-21"},
		{21, "16-21"},
		{22, "22-30"},
		{30, "22-30"},
		{31, "30+"},
		{120, "30+"},
	}
	labels := Labels(SideReceivable)
	for _, tc := range cases {
		got := labels[BucketIndex(SideReceivable, tc.daysOverdue)]
		require.Equal(t, tc.wantLabel, got, "days overdue %d", tc.daysOverdue)
	}
}

func TestBucketIndexPayableBoundaries(t *testing.T) {
	cases := []struct {
		daysOverdue int
		wantLabel   string
	}{
		{0, "current"},
		{1, "1-30"},
		{30, "1-30"},
		{31, "31-60"},
		{60, "31-60"},
		{61, "61-90"},
		{90, "61-90"},
		{91, "90+"},
	}
	labels := Labels(SidePayable)
	for _, tc := range cases {
		got := labels[BucketIndex(SidePayable, tc.daysOverdue)]
		require.Equal(t, tc.wantLabel, got, "days overdue %d", tc.daysOverdue)
	}
}

// Due-date offsets around every receivable boundary must land in the right
// bucket: today-15 is still 1-15, today-16 opens 16-21, and so on.
func TestReportBucketExactness(t *testing.T) {
	asOf := time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC)
	due := func(daysAgo int) time.Time { return asOf.AddDate(0, 0, -daysAgo) }
	row := func(daysAgo int, amount string) OutstandingRow {
		return OutstandingRow{
			CounterpartyID:   1,
			CounterpartyName: "Sharma Traders",
			DueDate:          due(daysAgo),
			Outstanding:      decimal.RequireFromString(amount),
		}
	}

	report := BuildReport(SideReceivable, []OutstandingRow{
		row(15, "100"), // upper edge of 1-15
		row(16, "200"), // first day of 16-21
		row(21, "300"), // upper edge of 16-21
		row(22, "400"), // first day of 22-30
		row(30, "500"), // upper edge of 22-30
		row(31, "600"), // first day of 30+
	}, asOf)

	require.Equal(t, 0, report.Buckets[0].Count)
	require.Equal(t, 1, report.Buckets[1].Count)
	require.True(t, report.Buckets[1].Amount.Equal(decimal.RequireFromString("100")))
	require.Equal(t, 2, report.Buckets[2].Count)
	require.True(t, report.Buckets[2].Amount.Equal(decimal.RequireFromString("500")))
	require.Equal(t, 2, report.Buckets[3].Count)
	require.True(t, report.Buckets[3].Amount.Equal(decimal.RequireFromString("900")))
	require.Equal(t, 1, report.Buckets[4].Count)
	require.True(t, report.Buckets[4].Amount.Equal(decimal.RequireFromString("600")))
	require.True(t, report.Total.Equal(decimal.RequireFromString("2100")))
}

func TestBuildLedgerGroupsAndOrders(t *testing.T) {
	asOf := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	rows := []OutstandingRow{
		{CounterpartyID: 1, CounterpartyName: "Sharma Traders", DueDate: asOf.AddDate(0, 0, -5), Outstanding: decimal.RequireFromString("1000")},
		{CounterpartyID: 1, CounterpartyName: "Sharma Traders", DueDate: asOf.AddDate(0, 0, -40), Outstanding: decimal.RequireFromString("2000")},
		{CounterpartyID: 2, CounterpartyName: "Mehta & Sons", DueDate: asOf, Outstanding: decimal.RequireFromString("9000")},
	}

	ledger := BuildLedger(SideReceivable, rows, asOf)
	require.Len(t, ledger, 2)
	// Largest total first.
	require.Equal(t, int64(2), ledger[0].CounterpartyID)
	require.True(t, ledger[0].Total.Equal(decimal.RequireFromString("9000")))
	require.Equal(t, int64(1), ledger[1].CounterpartyID)
	require.True(t, ledger[1].Total.Equal(decimal.RequireFromString("3000")))
	require.Equal(t, 1, ledger[1].Buckets[1].Count)
	require.Equal(t, 1, ledger[1].Buckets[4].Count)
}
