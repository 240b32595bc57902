package account

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rideledger/core/id"
	"github.com/rideledger/core/ledgererrors"
	"github.com/rideledger/core/types"
)

func newTestAccountID(t *testing.T) id.AccountID {
	t.Helper()
	acctID, err := id.NewAccountID(uuid.New())
	require.NoError(t, err)
	return acctID
}

func mustMoney(t *testing.T, amount float64, currency string) types.Money {
	t.Helper()
	m, err := types.FromFloat(amount, currency)
	require.NoError(t, err)
	return m
}

func newTestAccount(t *testing.T) *Account {
	t.Helper()
	a, err := New(newTestAccountID(t), "tenant-1", "Acme Fleet", Organization, "USD")
	require.NoError(t, err)
	return a
}

func TestNewRejectsInvalidName(t *testing.T) {
	_, err := New(newTestAccountID(t), "tenant-1", "   ", Organization, "USD")
	assert.ErrorIs(t, err, ledgererrors.ErrAccountInvalidName)
}

func TestRecordChargePostsBalancedPair(t *testing.T) {
	a := newTestAccount(t)
	amount := mustMoney(t, 25.50, "USD")

	event, err := a.RecordCharge("ride-1", amount, time.Now(), "fleet-1", "user-1")
	require.NoError(t, err)
	require.NotNil(t, event)

	entries := a.Entries()
	require.Len(t, entries, 2)

	debit, credit := entries[0], entries[1]
	assert.True(t, debit.IsDebit())
	assert.Equal(t, AccountsReceivable, debit.LedgerAccount())
	assert.True(t, credit.IsCredit())
	assert.Equal(t, ServiceRevenue, credit.LedgerAccount())

	sum := debit.EffectiveAmount().Add(credit.EffectiveAmount())
	assert.True(t, sum.IsZero(), "debit and credit must offset to zero")

	balance, err := a.GetBalance()
	require.NoError(t, err)
	assert.True(t, balance.Equal(amount))
}

func TestRecordChargeRejectsDuplicateRide(t *testing.T) {
	a := newTestAccount(t)
	amount := mustMoney(t, 10, "USD")

	_, err := a.RecordCharge("ride-1", amount, time.Now(), "fleet-1", "user-1")
	require.NoError(t, err)

	_, err = a.RecordCharge("ride-1", amount, time.Now(), "fleet-1", "user-1")
	require.Error(t, err)
	assert.True(t, ledgererrors.IsDuplicate(err))

	var bizErr *ledgererrors.BusinessError
	require.ErrorAs(t, err, &bizErr)
	assert.NotEmpty(t, bizErr.Metadata["existing_entry_id"])
}

func TestRecordChargeRejectsOnInactiveAccount(t *testing.T) {
	a := newTestAccount(t)
	_, err := a.Deactivate("fraud", "admin-1")
	require.NoError(t, err)

	_, err = a.RecordCharge("ride-1", mustMoney(t, 10, "USD"), time.Now(), "", "user-1")
	assert.ErrorIs(t, err, ledgererrors.ErrAccountInactive)
}

func TestRecordPaymentReducesBalance(t *testing.T) {
	a := newTestAccount(t)
	_, err := a.RecordCharge("ride-1", mustMoney(t, 50, "USD"), time.Now(), "", "user-1")
	require.NoError(t, err)

	_, err = a.RecordPayment("pay-1", mustMoney(t, 20, "USD"), time.Now(), "card", "user-1")
	require.NoError(t, err)

	balance, err := a.GetBalance()
	require.NoError(t, err)
	assert.True(t, balance.Equal(mustMoney(t, 30, "USD")))
}

func TestRecordPaymentRejectsDuplicateReference(t *testing.T) {
	a := newTestAccount(t)
	amount := mustMoney(t, 10, "USD")

	_, err := a.RecordPayment("pay-1", amount, time.Now(), "", "user-1")
	require.NoError(t, err)

	_, err = a.RecordPayment("pay-1", amount, time.Now(), "", "user-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ledgererrors.ErrLedgerDuplicatePayment)
}

func TestGetBalanceClampsOverpaymentToZero(t *testing.T) {
	a := newTestAccount(t)
	_, err := a.RecordCharge("ride-1", mustMoney(t, 20, "USD"), time.Now(), "", "user-1")
	require.NoError(t, err)

	_, err = a.RecordPayment("pay-1", mustMoney(t, 50, "USD"), time.Now(), "", "user-1")
	require.NoError(t, err)

	balance, err := a.GetBalance()
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestGetBalanceAsOfExcludesLaterEntries(t *testing.T) {
	a := newTestAccount(t)
	early := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	_, err := a.RecordCharge("ride-1", mustMoney(t, 20, "USD"), early, "", "user-1")
	require.NoError(t, err)
	_, err = a.RecordCharge("ride-2", mustMoney(t, 30, "USD"), late, "", "user-1")
	require.NoError(t, err)

	balance, err := a.GetBalanceAsOf(early)
	require.NoError(t, err)
	assert.True(t, balance.Equal(mustMoney(t, 20, "USD")))
}

func TestDeactivateIsIdempotent(t *testing.T) {
	a := newTestAccount(t)

	event, err := a.Deactivate("closing", "admin-1")
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, Inactive, a.Status())

	event, err = a.Deactivate("closing again", "admin-1")
	require.NoError(t, err)
	assert.Nil(t, event)
}

func TestPendingEntriesAndMarkPersisted(t *testing.T) {
	a := newTestAccount(t)
	assert.Empty(t, a.PendingEntries())

	_, err := a.RecordCharge("ride-1", mustMoney(t, 10, "USD"), time.Now(), "", "user-1")
	require.NoError(t, err)
	assert.Len(t, a.PendingEntries(), 2)

	a.MarkPersisted()
	assert.Empty(t, a.PendingEntries())

	_, err = a.RecordPayment("pay-1", mustMoney(t, 5, "USD"), time.Now(), "", "user-1")
	require.NoError(t, err)
	assert.Len(t, a.PendingEntries(), 2)
}

func TestRehydrateTreatsAllEntriesAsPersisted(t *testing.T) {
	acctID := newTestAccountID(t)
	now := time.Now().UTC()
	entry, err := NewDebit(acctID, "tenant-1", AccountsReceivable, mustMoney(t, 10, "USD"), SourceRide, "ride-1", now, "user-1", nil)
	require.NoError(t, err)

	a := Rehydrate(acctID, "tenant-1", "Acme", Organization, Active, "USD", now, now, []*LedgerEntry{entry})
	assert.Empty(t, a.PendingEntries())
	assert.Len(t, a.Entries(), 1)
}
