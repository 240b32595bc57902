package rideledger

import "github.com/rideledger/core/id"

// ID is the primary identifier type for server-generated RideLedger
// entities (ledger entries, invoices, line items, outbox messages).
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix

// AccountID is the client-supplied identifier type for accounts.
type AccountID = id.AccountID
