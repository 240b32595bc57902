package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rideledger/core/account"
	"github.com/rideledger/core/id"
	"github.com/rideledger/core/ledgererrors"
	"github.com/rideledger/core/outbox"
	"github.com/rideledger/core/store"
	"github.com/rideledger/core/tenantctx"
	"github.com/rideledger/core/types"
)

func newTenantCtx() context.Context {
	return tenantctx.WithContext(context.Background(), tenantctx.NewTestContext("tenant-1", "user-1"))
}

func TestAddAndGetByIDRoundTrip(t *testing.T) {
	s := New()
	ctx := newTenantCtx()

	acctID, err := id.NewAccountID(uuid.New())
	require.NoError(t, err)
	acc, err := account.New(acctID, "tenant-1", "Acme", account.Organization, "USD")
	require.NoError(t, err)

	require.NoError(t, s.Accounts().Add(ctx, acc))

	loaded, err := s.Accounts().GetByID(ctx, acctID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", loaded.Name())
}

func TestGetByIDMissingReturnsNotFound(t *testing.T) {
	s := New()
	ctx := newTenantCtx()
	acctID, err := id.NewAccountID(uuid.New())
	require.NoError(t, err)

	_, err = s.Accounts().GetByID(ctx, acctID)
	assert.ErrorIs(t, err, ledgererrors.ErrAccountNotFound)
}

func TestTenantIsolation(t *testing.T) {
	s := New()
	acctID, err := id.NewAccountID(uuid.New())
	require.NoError(t, err)
	acc, err := account.New(acctID, "tenant-1", "Acme", account.Organization, "USD")
	require.NoError(t, err)

	ctxT1 := newTenantCtx()
	require.NoError(t, s.Accounts().Add(ctxT1, acc))

	ctxT2 := tenantctx.WithContext(context.Background(), tenantctx.NewTestContext("tenant-2", "user-2"))
	_, err = s.Accounts().GetByID(ctxT2, acctID)
	assert.ErrorIs(t, err, ledgererrors.ErrAccountNotFound)
}

func TestWithinTxCommitsChargeAndOutboxTogether(t *testing.T) {
	s := New()
	ctx := newTenantCtx()

	acctID, err := id.NewAccountID(uuid.New())
	require.NoError(t, err)
	acc, err := account.New(acctID, "tenant-1", "Acme", account.Organization, "USD")
	require.NoError(t, err)
	require.NoError(t, s.Accounts().Add(ctx, acc))

	amount, err := types.FromFloat(25, "USD")
	require.NoError(t, err)

	err = s.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		loaded, err := tx.Accounts().GetByIDWithLedgerEntries(ctx, acctID)
		if err != nil {
			return err
		}
		event, err := loaded.RecordCharge("ride-1", amount, time.Now(), "fleet-1", "user-1")
		if err != nil {
			return err
		}
		if err := tx.Accounts().Update(ctx, loaded); err != nil {
			return err
		}
		loaded.MarkPersisted()

		msg, err := outbox.FromChargeRecorded(event)
		if err != nil {
			return err
		}
		return tx.Outbox().Insert(ctx, msg)
	})
	require.NoError(t, err)

	loaded, err := s.Accounts().GetByIDWithLedgerEntries(ctx, acctID)
	require.NoError(t, err)
	balance, err := loaded.GetBalance()
	require.NoError(t, err)
	assert.True(t, balance.Equal(amount))
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	s := New()
	ctx := newTenantCtx()

	acctID, err := id.NewAccountID(uuid.New())
	require.NoError(t, err)
	acc, err := account.New(acctID, "tenant-1", "Acme", account.Organization, "USD")
	require.NoError(t, err)
	require.NoError(t, s.Accounts().Add(ctx, acc))

	amount, err := types.FromFloat(10, "USD")
	require.NoError(t, err)

	err = s.WithinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		loaded, err := tx.Accounts().GetByIDWithLedgerEntries(ctx, acctID)
		require.NoError(t, err)
		_, err = loaded.RecordCharge("ride-1", amount, time.Now(), "", "user-1")
		require.NoError(t, err)
		require.NoError(t, tx.Accounts().Update(ctx, loaded))
		return assert.AnError
	})
	assert.Error(t, err)

	loaded, err := s.Accounts().GetByIDWithLedgerEntries(ctx, acctID)
	require.NoError(t, err)
	assert.Empty(t, loaded.Entries())
}

func TestPaymentReferenceGloballyUnique(t *testing.T) {
	s := New()
	ctx := newTenantCtx()

	acctID1, err := id.NewAccountID(uuid.New())
	require.NoError(t, err)
	acc1, err := account.New(acctID1, "tenant-1", "Acme", account.Organization, "USD")
	require.NoError(t, err)
	require.NoError(t, s.Accounts().Add(ctx, acc1))

	acctID2, err := id.NewAccountID(uuid.New())
	require.NoError(t, err)
	acc2, err := account.New(acctID2, "tenant-1", "Other", account.Organization, "USD")
	require.NoError(t, err)
	require.NoError(t, s.Accounts().Add(ctx, acc2))

	amount, err := types.FromFloat(10, "USD")
	require.NoError(t, err)

	_, err = acc1.RecordPayment("pay-shared", amount, time.Now(), "", "user-1")
	require.NoError(t, err)
	require.NoError(t, s.Accounts().Update(ctx, acc1))

	_, err = acc2.RecordPayment("pay-shared", amount, time.Now(), "", "user-1")
	require.NoError(t, err)
	err = s.Accounts().Update(ctx, acc2)
	assert.ErrorIs(t, err, ledgererrors.ErrLedgerDuplicatePayment)
}
