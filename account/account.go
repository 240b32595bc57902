package account

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/rideledger/core/id"
	"github.com/rideledger/core/ledgererrors"
	"github.com/rideledger/core/types"
)

// AccountType distinguishes a fleet/organization account from an
// individual driver or rider account.
type AccountType string

// The two account types RideLedger tracks balances for.
const (
	Organization AccountType = "Organization"
	Individual   AccountType = "Individual"
)

// Status is the Active/Inactive lifecycle state of an Account.
type Status string

// The two account lifecycle states.
const (
	Active   Status = "Active"
	Inactive Status = "Inactive"
)

const (
	minNameLen = 1
	maxNameLen = 200
)

// Account is the aggregate root owning a tenant's ledger entries for one
// billable party. All mutation goes through its methods; ledger entries
// are appended, never edited or removed, once posted.
type Account struct {
	id          id.AccountID
	tenantID    string
	name        string
	accountType AccountType
	status      Status
	currency    string
	createdAt   time.Time
	updatedAt   time.Time

	entries []*LedgerEntry

	// persistedCount tracks how many of entries have already been
	// handed to a repository's Update call, so PendingEntries can
	// return only the ones still needing an append-only insert (spec
	// §4.5: "Update ... must upsert newly appended ledger entries
	// without rewriting existing ones").
	persistedCount int
}

// New constructs a brand new Account. Fails with
// ledgererrors.ErrAccountInvalidName if name is empty or longer than 200
// characters after trimming.
func New(acctID id.AccountID, tenantID, name string, accountType AccountType, currency string) (*Account, error) {
	trimmed := strings.TrimSpace(name)
	if n := utf8.RuneCountInString(trimmed); n < minNameLen || n > maxNameLen {
		return nil, ledgererrors.New(ledgererrors.CodeAccountInvalidName,
			"account name must be between 1 and 200 characters")
	}

	now := time.Now().UTC()
	return &Account{
		id:          acctID,
		tenantID:    tenantID,
		name:        trimmed,
		accountType: accountType,
		status:      Active,
		currency:    currency,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// Rehydrate reconstructs an Account from persisted state, bypassing
// constructor validation. Intended for use by store implementations
// only, when loading a row and its entries that were already validated
// at write time. All of entries are treated as already persisted.
func Rehydrate(
	acctID id.AccountID,
	tenantID, name string,
	accountType AccountType,
	status Status,
	currency string,
	createdAt, updatedAt time.Time,
	entries []*LedgerEntry,
) *Account {
	return &Account{
		id:             acctID,
		tenantID:       tenantID,
		name:           name,
		accountType:    accountType,
		status:         status,
		currency:       currency,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
		entries:        entries,
		persistedCount: len(entries),
	}
}

// ID returns the account's identifier.
func (a *Account) ID() id.AccountID { return a.id }

// TenantID returns the owning tenant id.
func (a *Account) TenantID() string { return a.tenantID }

// Name returns the account's display name.
func (a *Account) Name() string { return a.name }

// Type returns whether this is an Organization or Individual account.
func (a *Account) Type() AccountType { return a.accountType }

// Status returns the account's current lifecycle state.
func (a *Account) Status() Status { return a.status }

// Currency returns the single currency this account's entries are
// denominated in (spec Non-goals: one currency per account).
func (a *Account) Currency() string { return a.currency }

// CreatedAt returns when the account was created.
func (a *Account) CreatedAt() time.Time { return a.createdAt }

// UpdatedAt returns when the account was last mutated.
func (a *Account) UpdatedAt() time.Time { return a.updatedAt }

// IsActive reports whether the account can accept new charges or
// payments.
func (a *Account) IsActive() bool { return a.status == Active }

// Entries returns a copy of the account's full ledger entry history, in
// append order.
func (a *Account) Entries() []*LedgerEntry {
	out := make([]*LedgerEntry, len(a.entries))
	copy(out, a.entries)
	return out
}

// PendingEntries returns the entries appended since the account was
// loaded or since MarkPersisted was last called. A repository's Update
// should insert exactly these and then call MarkPersisted.
func (a *Account) PendingEntries() []*LedgerEntry {
	pending := a.entries[a.persistedCount:]
	out := make([]*LedgerEntry, len(pending))
	copy(out, pending)
	return out
}

// MarkPersisted resets the pending-entries watermark to the current
// entry count. Call this after a repository successfully commits the
// entries returned by PendingEntries.
func (a *Account) MarkPersisted() {
	a.persistedCount = len(a.entries)
}

func (a *Account) touch() {
	a.updatedAt = time.Now().UTC()
}

// RecordCharge posts a ride charge: a debit to AccountsReceivable and a
// matching credit to ServiceRevenue, both carrying rideID as their
// source reference. Fails with ledgererrors.ErrAccountInactive if the
// account is not Active, or with ledgererrors.ErrLedgerDuplicateCharge
// (carrying Metadata["existing_entry_id"]) if a charge for this rideID
// was already recorded on this account.
func (a *Account) RecordCharge(
	rideID string,
	amount types.Money,
	serviceDate time.Time,
	fleetID string,
	createdBy string,
) (*ChargeRecordedEvent, error) {
	if !a.IsActive() {
		return nil, ledgererrors.New(ledgererrors.CodeAccountInactive,
			fmt.Sprintf("account %s is inactive", a.id.String()))
	}

	if amount.Currency() != "" && amount.Currency() != a.currency {
		return nil, ledgererrors.New(ledgererrors.CodeLedgerInvalidAmount,
			fmt.Sprintf("charge currency %s does not match account currency %s", amount.Currency(), a.currency))
	}

	if existing := a.findBySource(SourceRide, rideID); existing != nil {
		return nil, ledgererrors.New(ledgererrors.CodeLedgerDuplicateCharge,
			fmt.Sprintf("ride %s already charged on this account", rideID)).
			WithMetadata("existing_entry_id", existing.ID().String())
	}

	var metadata json.RawMessage
	if fleetID != "" {
		metadata, _ = json.Marshal(map[string]string{"fleet_id": fleetID})
	}

	debit, err := NewDebit(a.id, a.tenantID, AccountsReceivable, amount, SourceRide, rideID, serviceDate, createdBy, metadata)
	if err != nil {
		return nil, err
	}
	credit, err := NewCredit(a.id, a.tenantID, ServiceRevenue, amount, SourceRide, rideID, serviceDate, createdBy, metadata)
	if err != nil {
		return nil, err
	}

	a.entries = append(a.entries, debit, credit)
	a.touch()

	return &ChargeRecordedEvent{
		AccountID:     a.id,
		TenantID:      a.tenantID,
		RideID:        rideID,
		Amount:        amount,
		ServiceDate:   serviceDate,
		DebitEntryID:  debit.ID(),
		CreditEntryID: credit.ID(),
		OccurredAt:    a.updatedAt,
	}, nil
}

// RecordPayment posts a payment: a debit to Cash and a matching credit
// to AccountsReceivable, both carrying paymentReferenceID as their
// source reference. Fails with ledgererrors.ErrAccountInactive if the
// account is not Active, or with ledgererrors.ErrLedgerDuplicatePayment
// if a payment with this reference was already recorded on this
// account. Global (cross-account) uniqueness of paymentReferenceID is
// enforced by the repository's unique index, not by this aggregate,
// which only sees its own entries.
func (a *Account) RecordPayment(
	paymentReferenceID string,
	amount types.Money,
	paymentDate time.Time,
	paymentMode string,
	createdBy string,
) (*PaymentReceivedEvent, error) {
	if !a.IsActive() {
		return nil, ledgererrors.New(ledgererrors.CodeAccountInactive,
			fmt.Sprintf("account %s is inactive", a.id.String()))
	}

	if amount.Currency() != "" && amount.Currency() != a.currency {
		return nil, ledgererrors.New(ledgererrors.CodeLedgerInvalidAmount,
			fmt.Sprintf("payment currency %s does not match account currency %s", amount.Currency(), a.currency))
	}

	if existing := a.findBySource(SourcePayment, paymentReferenceID); existing != nil {
		return nil, ledgererrors.New(ledgererrors.CodeLedgerDuplicatePayment,
			fmt.Sprintf("payment %s already recorded on this account", paymentReferenceID)).
			WithMetadata("existing_entry_id", existing.ID().String())
	}

	var metadata json.RawMessage
	if paymentMode != "" {
		metadata, _ = json.Marshal(map[string]string{"mode": paymentMode})
	}

	debit, err := NewDebit(a.id, a.tenantID, Cash, amount, SourcePayment, paymentReferenceID, paymentDate, createdBy, metadata)
	if err != nil {
		return nil, err
	}
	credit, err := NewCredit(a.id, a.tenantID, AccountsReceivable, amount, SourcePayment, paymentReferenceID, paymentDate, createdBy, metadata)
	if err != nil {
		return nil, err
	}

	a.entries = append(a.entries, debit, credit)
	a.touch()

	return &PaymentReceivedEvent{
		AccountID:          a.id,
		TenantID:           a.tenantID,
		PaymentReferenceID: paymentReferenceID,
		Amount:             amount,
		PaymentDate:        paymentDate,
		DebitEntryID:       debit.ID(),
		CreditEntryID:      credit.ID(),
		OccurredAt:         a.updatedAt,
	}, nil
}

// Deactivate transitions the account from Active to Inactive, blocking
// future RecordCharge/RecordPayment calls. Idempotent: calling it again
// on an already-Inactive account is a no-op that returns (nil, nil)
// rather than an error or a second event.
func (a *Account) Deactivate(reason, by string) (*AccountDeactivatedEvent, error) {
	if a.status == Inactive {
		return nil, nil
	}

	a.status = Inactive
	a.touch()

	return &AccountDeactivatedEvent{
		AccountID:  a.id,
		TenantID:   a.tenantID,
		Reason:     reason,
		By:         by,
		OccurredAt: a.updatedAt,
	}, nil
}

// GetBalance returns the account's current outstanding balance: the
// AccountsReceivable debit total minus the AccountsReceivable credit
// total, across the full entry history. Per spec §4.2, a prepayment
// (credits exceeding debits) is reported as zero, never negative.
func (a *Account) GetBalance() (types.Money, error) {
	return a.balanceAsOf(nil)
}

// GetBalanceAsOf returns the account's outstanding balance restricted to
// entries whose TransactionDate is on or before asOf.
func (a *Account) GetBalanceAsOf(asOf time.Time) (types.Money, error) {
	return a.balanceAsOf(&asOf)
}

func (a *Account) balanceAsOf(cutoff *time.Time) (types.Money, error) {
	sum := decimal.Zero
	for _, e := range a.entries {
		if e.LedgerAccount() != AccountsReceivable {
			continue
		}
		if cutoff != nil && e.TransactionDate().After(*cutoff) {
			continue
		}
		sum = sum.Add(e.EffectiveAmount())
	}

	if sum.IsNegative() {
		sum = decimal.Zero
	}

	money, err := types.New(sum, a.currency)
	if err != nil {
		return types.Money{}, &ledgererrors.InfrastructureError{Op: "account.GetBalance", Cause: err}
	}
	return money, nil
}

func (a *Account) findBySource(sourceType SourceType, sourceReferenceID string) *LedgerEntry {
	for _, e := range a.entries {
		if e.SourceType() == sourceType && e.SourceReferenceID() == sourceReferenceID {
			return e
		}
	}
	return nil
}
