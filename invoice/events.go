package invoice

import (
	"time"

	"github.com/rideledger/core/id"
	"github.com/rideledger/core/types"
)

// InvoiceGeneratedEvent is emitted when Generate successfully builds a
// new invoice, for the transactional handler to append to the outbox in
// the same commit.
type InvoiceGeneratedEvent struct {
	InvoiceID            id.InvoiceID
	TenantID             string
	AccountID            id.AccountID
	InvoiceNumber        string
	Subtotal             types.Money
	TotalPaymentsApplied types.Money
	OutstandingBalance   types.Money
	OccurredAt           time.Time
}

// InvoiceVoidedEvent is emitted by Void.
type InvoiceVoidedEvent struct {
	InvoiceID     id.InvoiceID
	TenantID      string
	InvoiceNumber string
	Reason        string
	By            string
	OccurredAt    time.Time
}
