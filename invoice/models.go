// Package invoice implements the Invoice aggregate: period-scoped
// charge aggregation, payment-application accounting, and the
// Generated/Voided immutability gate (spec §4.4).
package invoice

import (
	"time"

	"github.com/rideledger/core/id"
	"github.com/rideledger/core/types"
)

// BillingFrequency selects how chargeable ledger entries are grouped
// into invoice line items.
type BillingFrequency string

// The four supported grouping modes.
const (
	PerRide BillingFrequency = "PerRide"
	Daily   BillingFrequency = "Daily"
	Weekly  BillingFrequency = "Weekly"
	Monthly BillingFrequency = "Monthly"
)

// Status is the lifecycle state of an Invoice.
type Status string

// The two invoice lifecycle states. Generated is the only state an
// invoice is created in; Voided is terminal and reachable only from
// Generated.
const (
	StatusGenerated Status = "Generated"
	StatusVoided    Status = "Voided"
)

// LineItem is one aggregated group of chargeable ledger entries within
// an invoice's billing period.
type LineItem struct {
	ID             id.LineItemID
	InvoiceID      id.InvoiceID
	RideID         string // the sole ride id for PerRide, else "<N> rides"
	ServiceDate    time.Time
	Amount         types.Money
	Description    string
	LedgerEntryIDs []id.LedgerEntryID
}

// Invoice is the aggregate root produced by Generate. Once constructed
// with StatusGenerated it is immutable except for the single permitted
// Void transition — Generate and Void are the only two ways an Invoice
// is ever built or changed.
type Invoice struct {
	id                   id.InvoiceID
	tenantID             string
	accountID            id.AccountID
	invoiceNumber        string
	billingFrequency     BillingFrequency
	periodStart          time.Time
	periodEnd            time.Time
	generatedAtUTC       time.Time
	status               Status
	subtotal             types.Money
	totalPaymentsApplied types.Money
	outstandingBalance   types.Money
	currency             string
	lineItems            []LineItem
	voidedAt             *time.Time
	voidReason           string
}

// Rehydrate reconstructs an Invoice from persisted state, bypassing
// Generate's aggregation logic. Intended for use by store
// implementations only.
func Rehydrate(
	invoiceID id.InvoiceID,
	tenantID string,
	accountID id.AccountID,
	invoiceNumber string,
	freq BillingFrequency,
	periodStart, periodEnd, generatedAtUTC time.Time,
	status Status,
	subtotal, totalPaymentsApplied, outstandingBalance types.Money,
	currency string,
	lineItems []LineItem,
	voidedAt *time.Time,
	voidReason string,
) *Invoice {
	return &Invoice{
		id:                   invoiceID,
		tenantID:             tenantID,
		accountID:            accountID,
		invoiceNumber:        invoiceNumber,
		billingFrequency:     freq,
		periodStart:          periodStart,
		periodEnd:            periodEnd,
		generatedAtUTC:       generatedAtUTC,
		status:               status,
		subtotal:             subtotal,
		totalPaymentsApplied: totalPaymentsApplied,
		outstandingBalance:   outstandingBalance,
		currency:             currency,
		lineItems:            lineItems,
		voidedAt:             voidedAt,
		voidReason:           voidReason,
	}
}

// ID returns the invoice's identifier.
func (inv *Invoice) ID() id.InvoiceID { return inv.id }

// TenantID returns the owning tenant id.
func (inv *Invoice) TenantID() string { return inv.tenantID }

// AccountID returns the billed account's id.
func (inv *Invoice) AccountID() id.AccountID { return inv.accountID }

// InvoiceNumber returns the per-tenant "INV-NNNNNN" number.
func (inv *Invoice) InvoiceNumber() string { return inv.invoiceNumber }

// BillingFrequency returns the grouping mode used to generate this
// invoice's line items.
func (inv *Invoice) BillingFrequency() BillingFrequency { return inv.billingFrequency }

// PeriodStart returns the inclusive start of the billing period.
func (inv *Invoice) PeriodStart() time.Time { return inv.periodStart }

// PeriodEnd returns the exclusive end of the billing period.
func (inv *Invoice) PeriodEnd() time.Time { return inv.periodEnd }

// GeneratedAtUTC returns when this invoice was generated.
func (inv *Invoice) GeneratedAtUTC() time.Time { return inv.generatedAtUTC }

// Status returns the invoice's current lifecycle state.
func (inv *Invoice) Status() Status { return inv.status }

// Subtotal returns the sum of all line-item amounts.
func (inv *Invoice) Subtotal() types.Money { return inv.subtotal }

// TotalPaymentsApplied returns the portion of payments received in the
// billing period that were applied to this invoice, capped at Subtotal.
func (inv *Invoice) TotalPaymentsApplied() types.Money { return inv.totalPaymentsApplied }

// OutstandingBalance returns max(0, Subtotal - TotalPaymentsApplied).
func (inv *Invoice) OutstandingBalance() types.Money { return inv.outstandingBalance }

// Currency returns the invoice's currency, matching the billed
// account's currency.
func (inv *Invoice) Currency() string { return inv.currency }

// LineItems returns a copy of the invoice's line items, in the
// deterministic order Generate produced them in.
func (inv *Invoice) LineItems() []LineItem {
	out := make([]LineItem, len(inv.lineItems))
	copy(out, inv.lineItems)
	return out
}

// VoidedAt returns the time this invoice was voided, or nil if it has
// not been voided.
func (inv *Invoice) VoidedAt() *time.Time { return inv.voidedAt }

// VoidReason returns the reason given at void time, or "" if this
// invoice has not been voided.
func (inv *Invoice) VoidReason() string { return inv.voidReason }
