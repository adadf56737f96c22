package ageing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side selects which ledger an ageing run covers. The two sides carry
// different bucket boundaries.
type Side string

const (
	SideReceivable Side = "receivable"
	SidePayable    Side = "payable"
)

// Valid reports whether s names a known side.
func (s Side) Valid() bool {
	return s == SideReceivable || s == SidePayable
}

// OutstandingRow is one open bill as the store snapshot sees it.
type OutstandingRow struct {
	CounterpartyID   int64
	CounterpartyName string
	DueDate          time.Time
	Outstanding      decimal.Decimal
}

// BucketTotal carries the count and amount of one age window. The two are
// always computed together from the same rows.
type BucketTotal struct {
	Label  string          `json:"label"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// Report is the global ageing summary of one side.
type Report struct {
	Side    Side            `json:"side"`
	AsOf    time.Time       `json:"as_of"`
	Buckets []BucketTotal   `json:"buckets"`
	Total   decimal.Decimal `json:"total"`
}

// CounterpartyAgeing is one vendor's or customer's ledger row.
type CounterpartyAgeing struct {
	CounterpartyID   int64           `json:"counterparty_id"`
	CounterpartyName string          `json:"counterparty_name"`
	Buckets          []BucketTotal   `json:"buckets"`
	Total            decimal.Decimal `json:"total"`
}
