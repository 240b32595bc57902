package outbox

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rideledger/core/account"
	"github.com/rideledger/core/id"
	"github.com/rideledger/core/types"
)

func TestFromChargeRecordedIncludesTenantID(t *testing.T) {
	acctID, err := id.NewAccountID(uuid.New())
	require.NoError(t, err)
	amount, err := types.FromFloat(10, "USD")
	require.NoError(t, err)

	ev := &account.ChargeRecordedEvent{
		AccountID:     acctID,
		TenantID:      "tenant-1",
		RideID:        "ride-1",
		Amount:        amount,
		ServiceDate:   time.Now(),
		DebitEntryID:  id.NewLedgerEntryID(),
		CreditEntryID: id.NewLedgerEntryID(),
		OccurredAt:    time.Now(),
	}

	msg, err := FromChargeRecorded(ev)
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", msg.TenantID)
	assert.Equal(t, string(EventChargeRecorded), msg.EventType)
	assert.False(t, msg.IsProcessed())

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(msg.Payload, &decoded))
	assert.Equal(t, "tenant-1", decoded["tenant_id"])
	assert.Equal(t, "ride-1", decoded["ride_id"])
}

func TestFromAccountCreatedIncludesTenantID(t *testing.T) {
	acctID, err := id.NewAccountID(uuid.New())
	require.NoError(t, err)

	ev := &account.AccountCreatedEvent{
		AccountID:   acctID,
		TenantID:    "tenant-1",
		Name:        "Acme Fleet",
		AccountType: account.Organization,
		Currency:    "USD",
		OccurredAt:  time.Now(),
	}

	msg, err := FromAccountCreated(ev)
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", msg.TenantID)
	assert.Equal(t, string(EventAccountCreated), msg.EventType)

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(msg.Payload, &decoded))
	assert.Equal(t, "Acme Fleet", decoded["name"])
	assert.Equal(t, "USD", decoded["currency"])
}

func TestNewMessageStartsUnprocessed(t *testing.T) {
	msg := NewMessage("tenant-1", "Custom", json.RawMessage(`{}`))
	assert.False(t, msg.IsProcessed())
	assert.Zero(t, msg.RetryCount)
}
