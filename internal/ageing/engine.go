package ageing

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/billing/lifecycle"
)

// The bucket boundaries are asymmetric on purpose: receivables are chased
// on a tighter cadence than payables. Each value is the inclusive upper
// bound in days overdue of one bucket after "current".
var (
	receivableBounds = []int{15, 21, 30}
	payableBounds    = []int{30, 60, 90}

	receivableLabels = []string{"current", "1-15", "16-21", "22-30", "30+"}
	payableLabels    = []string{"current", "1-30", "31-60", "61-90", "90+"}
)

// Labels returns the bucket labels of one side, oldest last.
func Labels(side Side) []string {
	if side == SidePayable {
		return append([]string(nil), payableLabels...)
	}
	return append([]string(nil), receivableLabels...)
}

// BucketIndex places a days-overdue value. Zero or negative lands in
// "current"; a value equal to a boundary lands in the bucket the boundary
// closes, so 15 days overdue is still 1-15 on the receivable side.
func BucketIndex(side Side, daysOverdue int) int {
	if daysOverdue <= 0 {
		return 0
	}
	bounds := receivableBounds
	if side == SidePayable {
		bounds = payableBounds
	}
	for i, upper := range bounds {
		if daysOverdue <= upper {
			return i + 1
		}
	}
	return len(bounds) + 1
}

func emptyBuckets(side Side) []BucketTotal {
	labels := Labels(side)
	buckets := make([]BucketTotal, len(labels))
	for i, label := range labels {
		buckets[i] = BucketTotal{Label: label, Amount: decimal.Zero}
	}
	return buckets
}

// BuildReport aggregates open rows into the global summary of one side.
func BuildReport(side Side, rows []OutstandingRow, asOf time.Time) Report {
	report := Report{
		Side:    side,
		AsOf:    asOf,
		Buckets: emptyBuckets(side),
		Total:   decimal.Zero,
	}
	for _, row := range rows {
		idx := BucketIndex(side, lifecycle.DaysOverdue(row.DueDate, asOf))
		report.Buckets[idx].Count++
		report.Buckets[idx].Amount = report.Buckets[idx].Amount.Add(row.Outstanding)
		report.Total = report.Total.Add(row.Outstanding)
	}
	return report
}

// BuildLedger aggregates open rows per counterparty, ordered by total
// outstanding, largest first.
func BuildLedger(side Side, rows []OutstandingRow, asOf time.Time) []CounterpartyAgeing {
	byID := make(map[int64]*CounterpartyAgeing)
	for _, row := range rows {
		entry, ok := byID[row.CounterpartyID]
		if !ok {
			entry = &CounterpartyAgeing{
				CounterpartyID:   row.CounterpartyID,
				CounterpartyName: row.CounterpartyName,
				Buckets:          emptyBuckets(side),
				Total:            decimal.Zero,
			}
			byID[row.CounterpartyID] = entry
		}
		idx := BucketIndex(side, lifecycle.DaysOverdue(row.DueDate, asOf))
		entry.Buckets[idx].Count++
		entry.Buckets[idx].Amount = entry.Buckets[idx].Amount.Add(row.Outstanding)
		entry.Total = entry.Total.Add(row.Outstanding)
	}

	out := make([]CounterpartyAgeing, 0, len(byID))
	for _, entry := range byID {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Total.Equal(out[j].Total) {
			return out[i].Total.GreaterThan(out[j].Total)
		}
		return out[i].CounterpartyID < out[j].CounterpartyID
	})
	return out
}
