package rideledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rideledger/core"
	"github.com/rideledger/core/account"
	"github.com/rideledger/core/id"
	"github.com/rideledger/core/invoice"
	"github.com/rideledger/core/ledgererrors"
	"github.com/rideledger/core/store/memory"
	"github.com/rideledger/core/tenantctx"
	"github.com/rideledger/core/types"
)

func newTenantCtx(tenantID string) context.Context {
	return tenantctx.WithContext(context.Background(), tenantctx.NewTestContext(tenantID, "user-1"))
}

func newAccountID(t *testing.T) id.AccountID {
	t.Helper()
	acctID, err := id.NewAccountID(uuid.New())
	require.NoError(t, err)
	return acctID
}

func TestCreateAccountThenRecordChargeUpdatesBalance(t *testing.T) {
	svc := rideledger.New(memory.New())
	ctx := newTenantCtx("tenant-1")
	acctID := newAccountID(t)

	_, err := svc.CreateAccount(ctx, acctID, "Acme Fleet", account.Organization, "USD")
	require.NoError(t, err)

	amount, err := types.FromFloat(25, "USD")
	require.NoError(t, err)

	_, err = svc.RecordCharge(ctx, acctID, "R-1", amount, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), "F1", "user-1")
	require.NoError(t, err)

	balance, err := svc.GetAccountBalance(ctx, acctID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(amount))

	page, err := svc.GetTransactions(ctx, acctID, 0, 10, nil, nil)
	require.NoError(t, err)
	assert.Len(t, page.Entries, 2)
}

func TestCreateAccountTwiceFailsAlreadyExists(t *testing.T) {
	svc := rideledger.New(memory.New())
	ctx := newTenantCtx("tenant-1")
	acctID := newAccountID(t)

	_, err := svc.CreateAccount(ctx, acctID, "Acme", account.Organization, "USD")
	require.NoError(t, err)

	_, err = svc.CreateAccount(ctx, acctID, "Acme", account.Organization, "USD")
	var bizErr *ledgererrors.BusinessError
	require.ErrorAs(t, err, &bizErr)
	assert.Equal(t, ledgererrors.CodeAccountAlreadyExists, bizErr.Code)
	assert.Equal(t, acctID.String(), bizErr.Metadata["existing_id"])
}

func TestRecordChargeTwiceReturnsDuplicateCharge(t *testing.T) {
	svc := rideledger.New(memory.New())
	ctx := newTenantCtx("tenant-1")
	acctID := newAccountID(t)

	_, err := svc.CreateAccount(ctx, acctID, "Acme", account.Organization, "USD")
	require.NoError(t, err)

	amount, err := types.FromFloat(25, "USD")
	require.NoError(t, err)
	serviceDate := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err = svc.RecordCharge(ctx, acctID, "R-1", amount, serviceDate, "F1", "user-1")
	require.NoError(t, err)

	_, err = svc.RecordCharge(ctx, acctID, "R-1", amount, serviceDate, "F1", "user-1")
	assert.ErrorIs(t, err, ledgererrors.ErrLedgerDuplicateCharge)

	balance, err := svc.GetAccountBalance(ctx, acctID)
	require.NoError(t, err)
	assert.True(t, balance.Equal(amount))
}

func TestDeactivateThenRecordChargeFailsInactive(t *testing.T) {
	svc := rideledger.New(memory.New())
	ctx := newTenantCtx("tenant-1")
	acctID := newAccountID(t)

	_, err := svc.CreateAccount(ctx, acctID, "Acme", account.Organization, "USD")
	require.NoError(t, err)

	ev, err := svc.DeactivateAccount(ctx, acctID, "fraud review", "admin")
	require.NoError(t, err)
	require.NotNil(t, ev)

	// Idempotent repeat fires no event and returns no error.
	ev, err = svc.DeactivateAccount(ctx, acctID, "fraud review", "admin")
	require.NoError(t, err)
	assert.Nil(t, ev)

	amount, err := types.FromFloat(10, "USD")
	require.NoError(t, err)
	_, err = svc.RecordCharge(ctx, acctID, "R-1", amount, time.Now(), "F1", "user-1")
	assert.ErrorIs(t, err, ledgererrors.ErrAccountInactive)
}

func TestGenerateInvoiceMonthlyAggregatesChargesNetOfPayments(t *testing.T) {
	svc := rideledger.New(memory.New())
	ctx := newTenantCtx("tenant-1")
	acctID := newAccountID(t)

	_, err := svc.CreateAccount(ctx, acctID, "Acme", account.Organization, "USD")
	require.NoError(t, err)

	ten, err := types.FromFloat(10, "USD")
	require.NoError(t, err)
	fifteen, err := types.FromFloat(15, "USD")
	require.NoError(t, err)
	five, err := types.FromFloat(5, "USD")
	require.NoError(t, err)

	_, err = svc.RecordCharge(ctx, acctID, "R-1", ten, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), "F1", "user-1")
	require.NoError(t, err)
	_, err = svc.RecordCharge(ctx, acctID, "R-2", fifteen, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), "F1", "user-1")
	require.NoError(t, err)
	_, err = svc.RecordPayment(ctx, acctID, "P-1", five, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), "", "user-1")
	require.NoError(t, err)

	periodStart := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	inv, err := svc.GenerateInvoice(ctx, acctID, periodStart, periodEnd, invoice.Monthly)
	require.NoError(t, err)
	assert.Equal(t, "INV-000001", inv.InvoiceNumber())

	twentyFive, err := types.FromFloat(25, "USD")
	require.NoError(t, err)
	assert.True(t, inv.Subtotal().Equal(twentyFive))
	assert.True(t, inv.TotalPaymentsApplied().Equal(five))

	twenty, err := types.FromFloat(20, "USD")
	require.NoError(t, err)
	assert.True(t, inv.OutstandingBalance().Equal(twenty))
	require.Len(t, inv.LineItems(), 1)
	assert.Equal(t, "2 rides", inv.LineItems()[0].Description)
}

func TestGenerateInvoiceEmptyPeriodFailsNoBillableItems(t *testing.T) {
	svc := rideledger.New(memory.New())
	ctx := newTenantCtx("tenant-1")
	acctID := newAccountID(t)

	_, err := svc.CreateAccount(ctx, acctID, "Acme", account.Organization, "USD")
	require.NoError(t, err)

	amount, err := types.FromFloat(10, "USD")
	require.NoError(t, err)
	_, err = svc.RecordCharge(ctx, acctID, "R-1", amount, time.Date(2026, 4, 5, 0, 0, 0, 0, time.UTC), "F1", "user-1")
	require.NoError(t, err)

	_, err = svc.GenerateInvoice(ctx, acctID,
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		invoice.Monthly)
	assert.ErrorIs(t, err, ledgererrors.ErrInvoiceNoBillableItems)
}

func TestVoidInvoiceTransitionsToVoided(t *testing.T) {
	svc := rideledger.New(memory.New())
	ctx := newTenantCtx("tenant-1")
	acctID := newAccountID(t)

	_, err := svc.CreateAccount(ctx, acctID, "Acme", account.Organization, "USD")
	require.NoError(t, err)

	amount, err := types.FromFloat(10, "USD")
	require.NoError(t, err)
	_, err = svc.RecordCharge(ctx, acctID, "R-1", amount, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), "F1", "user-1")
	require.NoError(t, err)

	inv, err := svc.GenerateInvoice(ctx, acctID,
		time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		invoice.PerRide)
	require.NoError(t, err)

	voided, err := svc.VoidInvoice(ctx, inv.ID(), "billing error", "admin")
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusVoided, voided.Status())

	_, err = svc.VoidInvoice(ctx, inv.ID(), "again", "admin")
	assert.ErrorIs(t, err, ledgererrors.ErrInvoiceImmutable)
}

func TestTenantIsolationAcrossService(t *testing.T) {
	svc := rideledger.New(memory.New())
	acctID := newAccountID(t)

	_, err := svc.CreateAccount(newTenantCtx("tenant-1"), acctID, "Acme", account.Organization, "USD")
	require.NoError(t, err)

	_, err = svc.GetAccount(newTenantCtx("tenant-2"), acctID)
	assert.ErrorIs(t, err, ledgererrors.ErrAccountNotFound)
}
