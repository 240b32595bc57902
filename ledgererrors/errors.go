// Package ledgererrors defines RideLedger's error taxonomy.
//
// Business errors are values, not exceptions: every expected failure
// mode (account not found, duplicate charge, invalid date range, ...)
// is a *BusinessError carrying a machine-readable ErrorCode and
// structured metadata, returned alongside a nil result. Infrastructure
// failures (connection loss, a serialization conflict surviving all
// retries) are reported as a single *InfrastructureError category,
// kept separate so callers can decide to retry or surface a 5xx without
// inspecting business-error internals.
package ledgererrors

import (
	"errors"
	"fmt"
)

// ErrorCode is a machine-readable RideLedger error code, stable across
// releases so API consumers can switch on it.
type ErrorCode string

// Error code taxonomy, as enumerated in spec §7.
const (
	CodeAccountNotFound       ErrorCode = "ACCOUNT_NOT_FOUND"
	CodeAccountInactive       ErrorCode = "ACCOUNT_INACTIVE"
	CodeAccountAlreadyExists  ErrorCode = "ACCOUNT_ALREADY_EXISTS"
	CodeAccountInvalidName    ErrorCode = "ACCOUNT_INVALID_NAME"
	CodeAccountTenantMismatch ErrorCode = "ACCOUNT_TENANT_MISMATCH"

	CodeLedgerDuplicateCharge          ErrorCode = "LEDGER_DUPLICATE_CHARGE"
	CodeLedgerDuplicatePayment         ErrorCode = "LEDGER_DUPLICATE_PAYMENT"
	CodeLedgerInvalidAmount            ErrorCode = "LEDGER_INVALID_AMOUNT"
	CodeLedgerUnbalancedEntry          ErrorCode = "LEDGER_UNBALANCED_ENTRY"
	CodeLedgerBalanceCalculationFailed ErrorCode = "LEDGER_BALANCE_CALCULATION_FAILED"
	CodeLedgerInvalidSourceReference   ErrorCode = "LEDGER_INVALID_SOURCE_REFERENCE"

	CodeInvoiceNotFound         ErrorCode = "INVOICE_NOT_FOUND"
	CodeInvoiceNoBillableItems  ErrorCode = "INVOICE_NO_BILLABLE_ITEMS"
	CodeInvoiceInvalidDateRange ErrorCode = "INVOICE_INVALID_DATE_RANGE"
	CodeInvoiceAlreadyExists    ErrorCode = "INVOICE_ALREADY_EXISTS"
	CodeInvoiceImmutable        ErrorCode = "INVOICE_IMMUTABLE"

	CodeTenantContextMissing  ErrorCode = "TENANT_CONTEXT_MISSING"
	CodeCanceled              ErrorCode = "CANCELED"
	CodeInfrastructureFailure ErrorCode = "INFRASTRUCTURE_FAILURE"
)

// BusinessError is an expected, handled failure of a domain operation.
// It always carries a stable ErrorCode and may carry metadata useful to
// a presentation layer (e.g. the existing resource id on a duplicate).
type BusinessError struct {
	Code     ErrorCode
	Message  string
	Metadata map[string]any

	// wrapped, if set, lets errors.Is match this BusinessError against
	// one of the package's sentinel values below.
	wrapped error
}

func (e *BusinessError) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap lets errors.Is/errors.As see through to the matching sentinel.
func (e *BusinessError) Unwrap() error { return e.wrapped }

// WithMetadata returns a copy of e with the given key set in Metadata.
func (e *BusinessError) WithMetadata(key string, value any) *BusinessError {
	clone := *e
	clone.Metadata = make(map[string]any, len(e.Metadata)+1)
	for k, v := range e.Metadata {
		clone.Metadata[k] = v
	}
	clone.Metadata[key] = value
	return &clone
}

// New constructs a BusinessError for the given code, wrapping the
// matching sentinel (if one is registered for that code) so
// errors.Is(err, ErrAccountNotFound) keeps working on the returned value.
func New(code ErrorCode, message string) *BusinessError {
	return &BusinessError{Code: code, Message: message, wrapped: sentinelFor(code)}
}

// InfrastructureError reports a failure of the storage/transport layer
// that is not an expected business outcome: a dropped connection, a
// transaction aborted after exhausting its retries, a migration
// failure. Distinct from BusinessError so a presentation layer can map
// it uniformly to a 500 with a correlation id instead of inspecting it.
type InfrastructureError struct {
	Op            string // the operation that failed, e.g. "account.Update"
	CorrelationID string
	Cause         error
}

func (e *InfrastructureError) Error() string {
	if e.CorrelationID != "" {
		return fmt.Sprintf("infrastructure failure during %s (correlation_id=%s): %v", e.Op, e.CorrelationID, e.Cause)
	}
	return fmt.Sprintf("infrastructure failure during %s: %v", e.Op, e.Cause)
}

func (e *InfrastructureError) Unwrap() error { return e.Cause }

// Sentinel errors, one per code, so callers can use errors.Is without
// constructing a BusinessError by hand.
var (
	ErrAccountNotFound       = errors.New("ledgererrors: account not found")
	ErrAccountInactive       = errors.New("ledgererrors: account inactive")
	ErrAccountAlreadyExists  = errors.New("ledgererrors: account already exists")
	ErrAccountInvalidName    = errors.New("ledgererrors: account name invalid")
	ErrAccountTenantMismatch = errors.New("ledgererrors: account belongs to a different tenant")

	ErrLedgerDuplicateCharge          = errors.New("ledgererrors: duplicate charge")
	ErrLedgerDuplicatePayment         = errors.New("ledgererrors: duplicate payment")
	ErrLedgerInvalidAmount            = errors.New("ledgererrors: invalid ledger amount")
	ErrLedgerUnbalancedEntry          = errors.New("ledgererrors: unbalanced ledger entry")
	ErrLedgerBalanceCalculationFailed = errors.New("ledgererrors: balance calculation failed")
	ErrLedgerInvalidSourceReference   = errors.New("ledgererrors: invalid source reference")

	ErrInvoiceNotFound         = errors.New("ledgererrors: invoice not found")
	ErrInvoiceNoBillableItems  = errors.New("ledgererrors: no billable items in period")
	ErrInvoiceInvalidDateRange = errors.New("ledgererrors: invalid invoice date range")
	ErrInvoiceAlreadyExists    = errors.New("ledgererrors: invoice already exists")
	ErrInvoiceImmutable        = errors.New("ledgererrors: invoice is immutable")

	ErrTenantContextMissing = errors.New("ledgererrors: tenant context missing")
	ErrCanceled             = errors.New("ledgererrors: operation canceled")
)

var sentinelByCode = map[ErrorCode]error{
	CodeAccountNotFound:       ErrAccountNotFound,
	CodeAccountInactive:       ErrAccountInactive,
	CodeAccountAlreadyExists:  ErrAccountAlreadyExists,
	CodeAccountInvalidName:    ErrAccountInvalidName,
	CodeAccountTenantMismatch: ErrAccountTenantMismatch,

	CodeLedgerDuplicateCharge:          ErrLedgerDuplicateCharge,
	CodeLedgerDuplicatePayment:         ErrLedgerDuplicatePayment,
	CodeLedgerInvalidAmount:            ErrLedgerInvalidAmount,
	CodeLedgerUnbalancedEntry:          ErrLedgerUnbalancedEntry,
	CodeLedgerBalanceCalculationFailed: ErrLedgerBalanceCalculationFailed,
	CodeLedgerInvalidSourceReference:   ErrLedgerInvalidSourceReference,

	CodeInvoiceNotFound:         ErrInvoiceNotFound,
	CodeInvoiceNoBillableItems:  ErrInvoiceNoBillableItems,
	CodeInvoiceInvalidDateRange: ErrInvoiceInvalidDateRange,
	CodeInvoiceAlreadyExists:    ErrInvoiceAlreadyExists,
	CodeInvoiceImmutable:        ErrInvoiceImmutable,

	CodeTenantContextMissing: ErrTenantContextMissing,
	CodeCanceled:             ErrCanceled,
}

func sentinelFor(code ErrorCode) error { return sentinelByCode[code] }

// IsNotFound reports whether err is one of the *_NOT_FOUND business errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound) || errors.Is(err, ErrInvoiceNotFound)
}

// IsDuplicate reports whether err signals an idempotency replay (a
// duplicate charge or payment). Handlers MAY treat this as a success
// carrying the pre-existing resource rather than an error, per spec §7's
// open choice — RideLedger surfaces both the error code and, via
// Metadata["existing_entry_id"], the id of the entry that already exists, so
// either behavior is expressible by the caller.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrLedgerDuplicateCharge) || errors.Is(err, ErrLedgerDuplicatePayment)
}

// IsRetryable reports whether err is a transient infrastructure failure
// that a caller may retry. Business errors are never retryable.
func IsRetryable(err error) bool {
	var infra *InfrastructureError
	return errors.As(err, &infra)
}
