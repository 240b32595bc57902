// Package store defines RideLedger's repository contracts. Every
// method takes a context.Context that must already carry a
// tenantctx.Context (spec §4.8); implementations extract the tenant id
// from it and apply it as an implicit filter/write predicate rather
// than accepting it as a parameter.
package store

import (
	"context"
	"time"

	"github.com/rideledger/core/account"
	"github.com/rideledger/core/id"
	"github.com/rideledger/core/invoice"
	"github.com/rideledger/core/numbering"
	"github.com/rideledger/core/outbox"
)

// SearchInvoicesOpts filters and paginates invoice.Search (spec §6).
type SearchInvoicesOpts struct {
	AccountID *id.AccountID
	Status    *invoice.Status
	Start     *time.Time
	End       *time.Time
	Page      int
	PageSize  int
}

// AccountRepository is the tenant-scoped persistence contract for the
// Account aggregate.
type AccountRepository interface {
	// GetByID loads an account without its ledger entries.
	GetByID(ctx context.Context, acctID id.AccountID) (*account.Account, error)
	// GetByIDWithLedgerEntries loads an account with its full entry
	// history, as required before any balance read or RecordCharge/
	// RecordPayment/GenerateInvoice call.
	GetByIDWithLedgerEntries(ctx context.Context, acctID id.AccountID) (*account.Account, error)
	// Exists reports whether an account with this id exists for the
	// current tenant, without loading it.
	Exists(ctx context.Context, acctID id.AccountID) (bool, error)
	// Add inserts a brand new account.
	Add(ctx context.Context, acc *account.Account) error
	// Update persists the account's mutable fields (status, updated_at)
	// and inserts exactly the entries returned by acc.PendingEntries(),
	// never rewriting previously persisted entries. Callers must call
	// acc.MarkPersisted() after Update returns successfully.
	Update(ctx context.Context, acc *account.Account) error
}

// InvoiceRepository is the tenant-scoped persistence contract for the
// Invoice aggregate.
type InvoiceRepository interface {
	GetByID(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error)
	GetByIDWithLineItems(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error)
	GetByInvoiceNumber(ctx context.Context, invoiceNumber string) (*invoice.Invoice, error)
	GetByAccountID(ctx context.Context, acctID id.AccountID) ([]*invoice.Invoice, error)
	Search(ctx context.Context, opts SearchInvoicesOpts) ([]*invoice.Invoice, error)
	Add(ctx context.Context, inv *invoice.Invoice) error
	// Update persists status/voided_at/void_reason only — Generate's
	// output fields are immutable once inserted (spec §3).
	Update(ctx context.Context, inv *invoice.Invoice) error
}

// OutboxRepository is the tenant-scoped persistence contract for the
// transactional outbox. Insert is reachable only through the tx-scoped
// handle passed into UnitOfWork.WithinTx, never through Store directly,
// so a message can never be written outside the state-changing
// transaction that produced it (spec §4.6 invariant (a)/(b)).
type OutboxRepository interface {
	Insert(ctx context.Context, msg *outbox.Message) error
	// ListUnprocessed returns unprocessed messages across all tenants,
	// ordered by OccurredAtUTC, for a relay to dispatch. Relay dispatch
	// itself is out of scope (spec §1); this method and the two below
	// exist so a relay can be built against this core unmodified.
	ListUnprocessed(ctx context.Context, limit int) ([]*outbox.Message, error)
	MarkProcessed(ctx context.Context, msgID id.OutboxID, processedAt time.Time) error
	IncrementRetry(ctx context.Context, msgID id.OutboxID) error
}

// NumberingRepository adapts the current transaction to
// numbering.Reader, scoped to the current tenant.
type NumberingRepository interface {
	numbering.Reader
}

// Tx bundles the repositories available inside a single transaction.
// Only Tx exposes OutboxRepository.Insert — see OutboxRepository's doc.
type Tx interface {
	Accounts() AccountRepository
	Invoices() InvoiceRepository
	Outbox() OutboxRepository
	Numbering() NumberingRepository
}

// UnitOfWork runs fn inside a single database transaction, committing on
// a nil return and rolling back otherwise — the atomicity envelope
// spec §4.6's outbox guarantee and §4.4's invoice-generation steps 3-9
// depend on.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Store is the top-level handle a RideLedger service is constructed
// with: read-only repository access for queries, plus the UnitOfWork
// for commands that must be transactional.
type Store interface {
	UnitOfWork

	// Accounts/Invoices provide non-transactional reads for queries
	// that don't mutate state (spec §4.5: "non-tracking reads").
	Accounts() AccountRepository
	Invoices() InvoiceRepository

	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
