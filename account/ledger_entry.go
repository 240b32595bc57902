// Package account implements the Account aggregate root: ledger entry
// validation, balance computation, the idempotency guard on charges and
// payments, and the Active/Inactive status gate (spec §4.3).
package account

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/rideledger/core/id"
	"github.com/rideledger/core/ledgererrors"
	"github.com/rideledger/core/types"
)

// LedgerAccountKind names one of the three ledger-account kinds a
// LedgerEntry can post to (spec glossary).
type LedgerAccountKind string

// The three ledger-account kinds RideLedger's double-entry model uses.
const (
	AccountsReceivable LedgerAccountKind = "AccountsReceivable"
	ServiceRevenue     LedgerAccountKind = "ServiceRevenue"
	Cash               LedgerAccountKind = "Cash"
)

// SourceType names what business event produced a LedgerEntry.
type SourceType string

// The two source types RideLedger's accounting core recognizes.
const (
	SourceRide    SourceType = "Ride"
	SourcePayment SourceType = "Payment"
)

// EntrySide distinguishes the debit and credit halves of a posting.
type EntrySide string

// The two sides of a double-entry posting.
const (
	SideDebit  EntrySide = "debit"
	SideCredit EntrySide = "credit"
)

const maxSourceReferenceIDLen = 100

// LedgerEntry is one immutable half of a double-entry posting. Once
// constructed it is never mutated; an Account only ever appends new
// entries, never edits or removes existing ones.
type LedgerEntry struct {
	id                id.LedgerEntryID
	tenantID          string
	accountID         id.AccountID
	ledgerAccount     LedgerAccountKind
	side              EntrySide
	amount            types.Money
	transactionDate   time.Time
	sourceType        SourceType
	sourceReferenceID string
	metadata          json.RawMessage
	createdAtUTC      time.Time
	createdBy         string
}

// NewDebit constructs a new debit LedgerEntry. Fails with
// ledgererrors.ErrLedgerInvalidAmount if amount is not strictly positive,
// or ledgererrors.ErrLedgerInvalidSourceReference if sourceReferenceID is
// empty or longer than 100 characters after trimming.
func NewDebit(
	accountID id.AccountID,
	tenantID string,
	ledgerAccount LedgerAccountKind,
	amount types.Money,
	sourceType SourceType,
	sourceReferenceID string,
	transactionDate time.Time,
	createdBy string,
	metadata json.RawMessage,
) (*LedgerEntry, error) {
	return newEntry(SideDebit, accountID, tenantID, ledgerAccount, amount, sourceType, sourceReferenceID, transactionDate, createdBy, metadata)
}

// NewCredit constructs a new credit LedgerEntry. Same validation as
// NewDebit.
func NewCredit(
	accountID id.AccountID,
	tenantID string,
	ledgerAccount LedgerAccountKind,
	amount types.Money,
	sourceType SourceType,
	sourceReferenceID string,
	transactionDate time.Time,
	createdBy string,
	metadata json.RawMessage,
) (*LedgerEntry, error) {
	return newEntry(SideCredit, accountID, tenantID, ledgerAccount, amount, sourceType, sourceReferenceID, transactionDate, createdBy, metadata)
}

func newEntry(
	side EntrySide,
	accountID id.AccountID,
	tenantID string,
	ledgerAccount LedgerAccountKind,
	amount types.Money,
	sourceType SourceType,
	sourceReferenceID string,
	transactionDate time.Time,
	createdBy string,
	metadata json.RawMessage,
) (*LedgerEntry, error) {
	if !amount.IsPositive() {
		return nil, ledgererrors.New(ledgererrors.CodeLedgerInvalidAmount,
			"ledger entry amount must be strictly positive")
	}

	ref := strings.TrimSpace(sourceReferenceID)
	if ref == "" || utf8.RuneCountInString(ref) > maxSourceReferenceIDLen {
		return nil, ledgererrors.New(ledgererrors.CodeLedgerInvalidSourceReference,
			"source reference id must be non-empty and at most 100 characters")
	}

	return &LedgerEntry{
		id:                id.NewLedgerEntryID(),
		tenantID:          tenantID,
		accountID:         accountID,
		ledgerAccount:     ledgerAccount,
		side:              side,
		amount:            amount,
		transactionDate:   transactionDate,
		sourceType:        sourceType,
		sourceReferenceID: ref,
		metadata:          metadata,
		createdAtUTC:      time.Now().UTC(),
		createdBy:         createdBy,
	}, nil
}

// RehydrateLedgerEntry reconstructs a LedgerEntry from persisted state,
// bypassing constructor validation. Intended for use by store
// implementations only, when loading rows that were already validated at
// write time.
func RehydrateLedgerEntry(
	entryID id.LedgerEntryID,
	tenantID string,
	accountID id.AccountID,
	ledgerAccount LedgerAccountKind,
	side EntrySide,
	amount types.Money,
	transactionDate time.Time,
	sourceType SourceType,
	sourceReferenceID string,
	metadata json.RawMessage,
	createdAtUTC time.Time,
	createdBy string,
) *LedgerEntry {
	return &LedgerEntry{
		id:                entryID,
		tenantID:          tenantID,
		accountID:         accountID,
		ledgerAccount:     ledgerAccount,
		side:              side,
		amount:            amount,
		transactionDate:   transactionDate,
		sourceType:        sourceType,
		sourceReferenceID: sourceReferenceID,
		metadata:          metadata,
		createdAtUTC:      createdAtUTC,
		createdBy:         createdBy,
	}
}

// ID returns the entry's identifier.
func (e *LedgerEntry) ID() id.LedgerEntryID { return e.id }

// TenantID returns the owning tenant id.
func (e *LedgerEntry) TenantID() string { return e.tenantID }

// AccountID returns the owning account id (Design Note 9: entries hold
// an owner id, never a back-reference to the Account object).
func (e *LedgerEntry) AccountID() id.AccountID { return e.accountID }

// LedgerAccount returns which of the three ledger-account kinds this
// entry posts to.
func (e *LedgerEntry) LedgerAccount() LedgerAccountKind { return e.ledgerAccount }

// Side reports whether this is a debit or a credit entry.
func (e *LedgerEntry) Side() EntrySide { return e.side }

// IsDebit reports whether this entry is a debit.
func (e *LedgerEntry) IsDebit() bool { return e.side == SideDebit }

// IsCredit reports whether this entry is a credit.
func (e *LedgerEntry) IsCredit() bool { return e.side == SideCredit }

// Amount returns the entry's positive amount.
func (e *LedgerEntry) Amount() types.Money { return e.amount }

// DebitAmount returns (amount, true) if this is a debit entry, or
// (zero, false) otherwise — mirrors the persisted shape's "exactly one
// of debit_amount or credit_amount" invariant.
func (e *LedgerEntry) DebitAmount() (types.Money, bool) {
	if e.side == SideDebit {
		return e.amount, true
	}
	return types.Money{}, false
}

// CreditAmount returns (amount, true) if this is a credit entry, or
// (zero, false) otherwise.
func (e *LedgerEntry) CreditAmount() (types.Money, bool) {
	if e.side == SideCredit {
		return e.amount, true
	}
	return types.Money{}, false
}

// TransactionDate returns the date of service or payment this entry
// records.
func (e *LedgerEntry) TransactionDate() time.Time { return e.transactionDate }

// SourceType returns what kind of business event produced this entry.
func (e *LedgerEntry) SourceType() SourceType { return e.sourceType }

// SourceReferenceID returns the idempotency key for this entry's source
// event (a ride id for charges, a payment reference id for payments).
func (e *LedgerEntry) SourceReferenceID() string { return e.sourceReferenceID }

// Metadata returns the entry's opaque JSON metadata, or nil if none.
func (e *LedgerEntry) Metadata() json.RawMessage { return e.metadata }

// CreatedAtUTC returns when this entry was created.
func (e *LedgerEntry) CreatedAtUTC() time.Time { return e.createdAtUTC }

// CreatedBy returns the identity that created this entry.
func (e *LedgerEntry) CreatedBy() string { return e.createdBy }

// EffectiveAmount returns the signed amount used for balance arithmetic:
// +amount for a debit, -amount for a credit. This signed value is never
// persisted (spec §3: "A separate signed effective amount exists only as
// a computation, never as storage"), which is why it returns a plain
// decimal.Decimal rather than types.Money — Money is non-negative by
// construction.
func (e *LedgerEntry) EffectiveAmount() decimal.Decimal {
	if e.side == SideCredit {
		return e.amount.Decimal().Neg()
	}
	return e.amount.Decimal()
}
