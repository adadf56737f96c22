// Package lifecycle holds the pure functions governing bill due dates,
// outstanding balances and derived statuses. No state, no side channels.
package lifecycle

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is derived purely from amount and the settled amount.
type PaymentStatus string

const (
	PaymentOpen    PaymentStatus = "open"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// DeliveryStatus enumerates the fixed receivable dispatch states.
type DeliveryStatus string

const (
	DeliveryPending    DeliveryStatus = "pending"
	DeliveryDispatched DeliveryStatus = "dispatched"
	DeliveryInTransit  DeliveryStatus = "in_transit"
	DeliveryDelivered  DeliveryStatus = "delivered"
	DeliveryReturned   DeliveryStatus = "returned"
)

// ValidDeliveryStatus reports set membership; anything outside the set is
// rejected by callers, never coerced.
func ValidDeliveryStatus(s DeliveryStatus) bool {
	switch s {
	case DeliveryPending, DeliveryDispatched, DeliveryInTransit, DeliveryDelivered, DeliveryReturned:
		return true
	}
	return false
}

// DueDate computes baseDate + creditDays calendar days.
func DueDate(baseDate time.Time, creditDays int) time.Time {
	return baseDate.AddDate(0, 0, creditDays)
}

// Outstanding returns amount - settled, never negative.
func Outstanding(amount, settled decimal.Decimal) decimal.Decimal {
	out := amount.Sub(settled)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

// DaysOverdue returns whole days past due, zero when not yet due. The two
// values may carry different locations (stored dates scan as UTC midnights,
// clock readings are local), so each is reduced to its own civil date before
// differencing.
func DaysOverdue(dueDate, today time.Time) int {
	days := int(civilDate(today).Sub(civilDate(dueDate)).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// DerivePaymentStatus applies the canonical formula: paid when nothing is
// outstanding, open when nothing settled, else partial.
func DerivePaymentStatus(amount, settled decimal.Decimal) PaymentStatus {
	if settled.GreaterThanOrEqual(amount) {
		return PaymentPaid
	}
	if settled.IsZero() {
		return PaymentOpen
	}
	return PaymentPartial
}

// SeedDeliveryStatus picks the one-time creation default for a receivable
// bill. It is never re-evaluated after creation.
func SeedDeliveryStatus(deliveryMode, deliveryPerson, courierName string) DeliveryStatus {
	if deliveryMode == "pickup" {
		return DeliveryDelivered
	}
	if deliveryPerson != "" || courierName != "" {
		return DeliveryDispatched
	}
	return DeliveryPending
}

// civilDate anchors t's calendar date at a UTC midnight so dates read in
// different zones difference correctly.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
