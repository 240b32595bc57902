package account

import (
	"time"

	"github.com/rideledger/core/id"
	"github.com/rideledger/core/types"
)

// AccountCreatedEvent is emitted when New successfully constructs a
// brand new Account and it is persisted by the transactional handler.
type AccountCreatedEvent struct {
	AccountID   id.AccountID
	TenantID    string
	Name        string
	AccountType AccountType
	Currency    string
	OccurredAt  time.Time
}

// ChargeRecordedEvent is emitted when RecordCharge successfully posts a
// new ride charge. It carries both halves of the posting so a listener
// (the outbox, an audit hook) never has to re-derive the credit side.
type ChargeRecordedEvent struct {
	AccountID     id.AccountID
	TenantID      string
	RideID        string
	Amount        types.Money
	ServiceDate   time.Time
	DebitEntryID  id.LedgerEntryID
	CreditEntryID id.LedgerEntryID
	OccurredAt    time.Time
}

// PaymentReceivedEvent is emitted when RecordPayment successfully posts a
// new payment.
type PaymentReceivedEvent struct {
	AccountID          id.AccountID
	TenantID           string
	PaymentReferenceID string
	Amount             types.Money
	PaymentDate        time.Time
	DebitEntryID       id.LedgerEntryID
	CreditEntryID      id.LedgerEntryID
	OccurredAt         time.Time
}

// AccountDeactivatedEvent is emitted the first time an account
// transitions from Active to Inactive. Deactivate is idempotent and
// returns a nil event on a no-op repeat call, so a non-nil event here
// always means a true transition happened.
type AccountDeactivatedEvent struct {
	AccountID  id.AccountID
	TenantID   string
	Reason     string
	By         string
	OccurredAt time.Time
}
