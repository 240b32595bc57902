package invoice

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rideledger/core/account"
	"github.com/rideledger/core/id"
	"github.com/rideledger/core/ledgererrors"
	"github.com/rideledger/core/types"
)

func newGenerateTestAccount(t *testing.T) *account.Account {
	t.Helper()
	acctID, err := id.NewAccountID(uuid.New())
	require.NoError(t, err)
	a, err := account.New(acctID, "tenant-1", "Acme Fleet", account.Organization, "USD")
	require.NoError(t, err)
	return a
}

func mustMoney(t *testing.T, amount float64) types.Money {
	t.Helper()
	m, err := types.FromFloat(amount, "USD")
	require.NoError(t, err)
	return m
}

func march(day int) time.Time {
	return time.Date(2026, time.March, day, 12, 0, 0, 0, time.UTC)
}

func TestGenerateMonthlyAggregatesAndAppliesPayment(t *testing.T) {
	a := newGenerateTestAccount(t)
	_, err := a.RecordCharge("R-1", mustMoney(t, 10), march(1), "", "user-1")
	require.NoError(t, err)
	_, err = a.RecordCharge("R-2", mustMoney(t, 15), march(15), "", "user-1")
	require.NoError(t, err)
	_, err = a.RecordPayment("P-1", mustMoney(t, 5), march(20), "", "user-1")
	require.NoError(t, err)

	periodStart := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)

	inv, err := Generate(a, id.NewInvoiceID(), "INV-000001", periodStart, periodEnd, Monthly)
	require.NoError(t, err)

	require.Len(t, inv.LineItems(), 1)
	line := inv.LineItems()[0]
	assert.Equal(t, "2 rides", line.RideID)
	assert.True(t, line.Amount.Equal(mustMoney(t, 25)))

	assert.True(t, inv.Subtotal().Equal(mustMoney(t, 25)))
	assert.True(t, inv.TotalPaymentsApplied().Equal(mustMoney(t, 5)))
	assert.True(t, inv.OutstandingBalance().Equal(mustMoney(t, 20)))
	assert.Equal(t, "INV-000001", inv.InvoiceNumber())
	assert.Equal(t, StatusGenerated, inv.Status())
}

func TestGeneratePerRideProducesOneLinePerRide(t *testing.T) {
	a := newGenerateTestAccount(t)
	_, err := a.RecordCharge("R-1", mustMoney(t, 10), march(1), "", "user-1")
	require.NoError(t, err)
	_, err = a.RecordCharge("R-2", mustMoney(t, 15), march(15), "", "user-1")
	require.NoError(t, err)

	periodStart := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)

	inv, err := Generate(a, id.NewInvoiceID(), "INV-000002", periodStart, periodEnd, PerRide)
	require.NoError(t, err)

	require.Len(t, inv.LineItems(), 2)
	assert.Equal(t, "R-1", inv.LineItems()[0].RideID)
	assert.Equal(t, "R-2", inv.LineItems()[1].RideID)
	assert.True(t, inv.Subtotal().Equal(mustMoney(t, 25)))
}

func TestGenerateEmptyPeriodReturnsNoBillableItems(t *testing.T) {
	a := newGenerateTestAccount(t)
	_, err := a.RecordCharge("R-1", mustMoney(t, 10), time.Date(2026, time.April, 5, 0, 0, 0, 0, time.UTC), "", "user-1")
	require.NoError(t, err)

	periodStart := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)

	_, err = Generate(a, id.NewInvoiceID(), "INV-000003", periodStart, periodEnd, Monthly)
	assert.ErrorIs(t, err, ledgererrors.ErrInvoiceNoBillableItems)
}

func TestGenerateRejectsInvalidDateRange(t *testing.T) {
	a := newGenerateTestAccount(t)
	_, err := Generate(a, id.NewInvoiceID(), "INV-000004", march(10), march(1), Monthly)
	assert.ErrorIs(t, err, ledgererrors.ErrInvoiceInvalidDateRange)
}

func TestGeneratePaymentsCappedAtSubtotal(t *testing.T) {
	a := newGenerateTestAccount(t)
	_, err := a.RecordCharge("R-1", mustMoney(t, 10), march(1), "", "user-1")
	require.NoError(t, err)
	_, err = a.RecordPayment("P-1", mustMoney(t, 50), march(2), "", "user-1")
	require.NoError(t, err)

	periodStart := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)

	inv, err := Generate(a, id.NewInvoiceID(), "INV-000005", periodStart, periodEnd, Monthly)
	require.NoError(t, err)

	assert.True(t, inv.TotalPaymentsApplied().Equal(mustMoney(t, 10)))
	assert.True(t, inv.OutstandingBalance().IsZero())
}

func TestVoidTransitionsStatusAndRejectsSecondVoid(t *testing.T) {
	a := newGenerateTestAccount(t)
	_, err := a.RecordCharge("R-1", mustMoney(t, 10), march(1), "", "user-1")
	require.NoError(t, err)

	periodStart := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC)
	inv, err := Generate(a, id.NewInvoiceID(), "INV-000006", periodStart, periodEnd, Monthly)
	require.NoError(t, err)

	event, err := inv.Void("billing error", "admin-1")
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, StatusVoided, inv.Status())

	_, err = inv.Void("again", "admin-1")
	assert.ErrorIs(t, err, ledgererrors.ErrInvoiceImmutable)
}
