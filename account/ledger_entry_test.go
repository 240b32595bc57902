package account

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rideledger/core/id"
	"github.com/rideledger/core/ledgererrors"
	"github.com/rideledger/core/types"
)

func newEntryAccountID(t *testing.T) id.AccountID {
	t.Helper()
	acctID, err := id.NewAccountID(uuid.New())
	require.NoError(t, err)
	return acctID
}

func TestNewDebitRejectsNonPositiveAmount(t *testing.T) {
	_, err := NewDebit(newEntryAccountID(t), "tenant-1", AccountsReceivable, types.Zero("USD"),
		SourceRide, "ride-1", time.Now(), "user-1", nil)
	assert.ErrorIs(t, err, ledgererrors.ErrLedgerInvalidAmount)
}

func TestNewCreditRejectsEmptySourceReference(t *testing.T) {
	amount, err := types.FromFloat(10, "USD")
	require.NoError(t, err)

	_, err = NewCredit(newEntryAccountID(t), "tenant-1", ServiceRevenue, amount, SourceRide, "  ", time.Now(), "user-1", nil)
	assert.ErrorIs(t, err, ledgererrors.ErrLedgerInvalidSourceReference)
}

func TestNewDebitRejectsOverlongSourceReference(t *testing.T) {
	amount, err := types.FromFloat(10, "USD")
	require.NoError(t, err)

	_, err = NewDebit(newEntryAccountID(t), "tenant-1", AccountsReceivable, amount, SourceRide,
		strings.Repeat("x", 101), time.Now(), "user-1", nil)
	assert.ErrorIs(t, err, ledgererrors.ErrLedgerInvalidSourceReference)
}

func TestEffectiveAmountSign(t *testing.T) {
	amount, err := types.FromFloat(15, "USD")
	require.NoError(t, err)

	debit, err := NewDebit(newEntryAccountID(t), "tenant-1", AccountsReceivable, amount, SourceRide, "ride-1", time.Now(), "user-1", nil)
	require.NoError(t, err)
	assert.True(t, debit.EffectiveAmount().Equal(amount.Decimal()))

	credit, err := NewCredit(newEntryAccountID(t), "tenant-1", ServiceRevenue, amount, SourceRide, "ride-1", time.Now(), "user-1", nil)
	require.NoError(t, err)
	assert.True(t, credit.EffectiveAmount().Equal(amount.Decimal().Neg()))
}

func TestDebitAmountAndCreditAmountAccessors(t *testing.T) {
	amount, err := types.FromFloat(15, "USD")
	require.NoError(t, err)

	debit, err := NewDebit(newEntryAccountID(t), "tenant-1", AccountsReceivable, amount, SourceRide, "ride-1", time.Now(), "user-1", nil)
	require.NoError(t, err)

	got, ok := debit.DebitAmount()
	assert.True(t, ok)
	assert.True(t, got.Equal(amount))

	_, ok = debit.CreditAmount()
	assert.False(t, ok)
}
