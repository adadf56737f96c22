package lifecycle

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDueDate(t *testing.T) {
	require.Equal(t, date(2024, 1, 31), DueDate(date(2024, 1, 1), 30))
	require.Equal(t, date(2024, 1, 1), DueDate(date(2024, 1, 1), 0))
	require.Equal(t, date(2024, 3, 1), DueDate(date(2024, 2, 1), 29))
}

func TestOutstandingNeverNegative(t *testing.T) {
	require.True(t, Outstanding(decimal.NewFromInt(100), decimal.NewFromInt(40)).Equal(decimal.NewFromInt(60)))
	require.True(t, Outstanding(decimal.NewFromInt(100), decimal.NewFromInt(120)).IsZero())
}

func TestDaysOverdue(t *testing.T) {
	today := date(2024, 6, 15)
	require.Equal(t, 0, DaysOverdue(date(2024, 6, 20), today))
	require.Equal(t, 0, DaysOverdue(today, today))
	require.Equal(t, 1, DaysOverdue(date(2024, 6, 14), today))
	require.Equal(t, 15, DaysOverdue(date(2024, 5, 31), today))
}

func TestDaysOverdueMixedZones(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)

	// Due date scanned as a UTC midnight, "today" read off a local clock.
	today := time.Date(2026, 3, 31, 12, 0, 0, 0, ist)
	require.Equal(t, 16, DaysOverdue(date(2026, 3, 15), today))

	// Same civil date in both zones is not overdue.
	require.Equal(t, 0, DaysOverdue(time.Date(2026, 3, 31, 23, 30, 0, 0, ist), date(2026, 3, 31)))
	require.Equal(t, 0, DaysOverdue(date(2026, 3, 31), time.Date(2026, 3, 31, 0, 30, 0, 0, ist)))
}

func TestDerivePaymentStatus(t *testing.T) {
	amount := decimal.NewFromInt(10000)
	cases := []struct {
		name    string
		settled decimal.Decimal
		want    PaymentStatus
	}{
		{"nothing settled", decimal.Zero, PaymentOpen},
		{"partially settled", decimal.NewFromInt(9500), PaymentPartial},
		{"fully settled", amount, PaymentPaid},
		{"over settled", decimal.NewFromInt(10001), PaymentPaid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, DerivePaymentStatus(amount, tc.settled))
		})
	}
}

func TestSeedDeliveryStatus(t *testing.T) {
	require.Equal(t, DeliveryDelivered, SeedDeliveryStatus("pickup", "", ""))
	require.Equal(t, DeliveryDispatched, SeedDeliveryStatus("courier", "", "BlueDart"))
	require.Equal(t, DeliveryDispatched, SeedDeliveryStatus("", "Ramesh", ""))
	require.Equal(t, DeliveryPending, SeedDeliveryStatus("", "", ""))
}

func TestValidDeliveryStatus(t *testing.T) {
	for _, s := range []DeliveryStatus{DeliveryPending, DeliveryDispatched, DeliveryInTransit, DeliveryDelivered, DeliveryReturned} {
		require.True(t, ValidDeliveryStatus(s))
	}
	require.False(t, ValidDeliveryStatus("shipped"))
	require.False(t, ValidDeliveryStatus(""))
}
