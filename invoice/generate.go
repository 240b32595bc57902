package invoice

import (
	"fmt"
	"sort"
	"time"

	"github.com/rideledger/core/account"
	"github.com/rideledger/core/id"
	"github.com/rideledger/core/ledgererrors"
	"github.com/rideledger/core/types"
)

// Generate implements spec §4.4 steps 3–7: selecting chargeable entries,
// grouping them by freq, computing subtotal/payments-applied/outstanding
// balance, and assembling the Invoice aggregate in StatusGenerated. It is
// a pure function over an already-loaded account aggregate; reserving
// invoiceNumber (step 8) and persisting (step 9) are the transactional
// handler's responsibility, which is why both are accepted as inputs
// rather than derived here.
func Generate(
	acc *account.Account,
	invoiceID id.InvoiceID,
	invoiceNumber string,
	periodStart, periodEnd time.Time,
	freq BillingFrequency,
) (*Invoice, error) {
	if !periodStart.Before(periodEnd) {
		return nil, ledgererrors.New(ledgererrors.CodeInvoiceInvalidDateRange,
			"billing period start must be before end")
	}

	chargeable := selectChargeableEntries(acc, periodStart, periodEnd)
	if len(chargeable) == 0 {
		return nil, ledgererrors.New(ledgererrors.CodeInvoiceNoBillableItems,
			fmt.Sprintf("no billable ride charges in [%s, %s)", periodStart, periodEnd))
	}

	lineItems, err := buildLineItems(invoiceID, chargeable, freq)
	if err != nil {
		return nil, err
	}

	currency := acc.Currency()
	amounts := make([]types.Money, len(lineItems))
	for i, li := range lineItems {
		amounts[i] = li.Amount
	}
	subtotal, err := types.Sum(currency, amounts...)
	if err != nil {
		return nil, &ledgererrors.InfrastructureError{Op: "invoice.Generate", Cause: err}
	}

	paymentsInPeriod := selectPaymentCredits(acc, periodStart, periodEnd)
	paymentAmounts := make([]types.Money, len(paymentsInPeriod))
	for i, e := range paymentsInPeriod {
		paymentAmounts[i] = e.Amount()
	}
	paymentsSum, err := types.Sum(currency, paymentAmounts...)
	if err != nil {
		return nil, &ledgererrors.InfrastructureError{Op: "invoice.Generate", Cause: err}
	}

	totalPaymentsApplied, err := types.Min(paymentsSum, subtotal)
	if err != nil {
		return nil, &ledgererrors.InfrastructureError{Op: "invoice.Generate", Cause: err}
	}

	outstanding, err := subtotal.Sub(totalPaymentsApplied)
	if err != nil {
		// Sub only underflows if totalPaymentsApplied > subtotal, which
		// Min above rules out.
		return nil, &ledgererrors.InfrastructureError{Op: "invoice.Generate", Cause: err}
	}

	now := time.Now().UTC()
	return &Invoice{
		id:                   invoiceID,
		tenantID:             acc.TenantID(),
		accountID:            acc.ID(),
		invoiceNumber:        invoiceNumber,
		billingFrequency:     freq,
		periodStart:          periodStart,
		periodEnd:            periodEnd,
		generatedAtUTC:       now,
		status:               StatusGenerated,
		subtotal:             subtotal,
		totalPaymentsApplied: totalPaymentsApplied,
		outstandingBalance:   outstanding,
		currency:             currency,
		lineItems:            lineItems,
	}, nil
}

func selectChargeableEntries(acc *account.Account, periodStart, periodEnd time.Time) []*account.LedgerEntry {
	var out []*account.LedgerEntry
	for _, e := range acc.Entries() {
		if e.SourceType() != account.SourceRide {
			continue
		}
		if e.LedgerAccount() != account.AccountsReceivable {
			continue
		}
		if !e.IsDebit() {
			continue
		}
		if !inHalfOpenRange(e.TransactionDate(), periodStart, periodEnd) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func selectPaymentCredits(acc *account.Account, periodStart, periodEnd time.Time) []*account.LedgerEntry {
	var out []*account.LedgerEntry
	for _, e := range acc.Entries() {
		if e.LedgerAccount() != account.AccountsReceivable {
			continue
		}
		if !e.IsCredit() {
			continue
		}
		if !inHalfOpenRange(e.TransactionDate(), periodStart, periodEnd) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func inHalfOpenRange(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}

// groupAccumulator collects the entries that fall into one line-item
// group while the group key is being decided.
type groupAccumulator struct {
	key     string
	rideIDs map[string]struct{}
	entries []*account.LedgerEntry
}

func buildLineItems(invoiceID id.InvoiceID, entries []*account.LedgerEntry, freq BillingFrequency) ([]LineItem, error) {
	groups := make(map[string]*groupAccumulator)
	var order []string

	for _, e := range entries {
		key := groupKey(e, freq)
		g, ok := groups[key]
		if !ok {
			g = &groupAccumulator{key: key, rideIDs: make(map[string]struct{})}
			groups[key] = g
			order = append(order, key)
		}
		g.entries = append(g.entries, e)
		g.rideIDs[e.SourceReferenceID()] = struct{}{}
	}

	currency := entries[0].Amount().Currency()
	lineItems := make([]LineItem, 0, len(order))
	for _, key := range order {
		g := groups[key]

		sortEntriesByTieBreak(g.entries)

		amounts := make([]types.Money, len(g.entries))
		entryIDs := make([]id.LedgerEntryID, len(g.entries))
		for i, e := range g.entries {
			amounts[i] = e.Amount()
			entryIDs[i] = e.ID()
		}
		amount, err := types.Sum(currency, amounts...)
		if err != nil {
			return nil, &ledgererrors.InfrastructureError{Op: "invoice.buildLineItems", Cause: err}
		}

		serviceDate := g.entries[0].TransactionDate()
		for _, e := range g.entries[1:] {
			if e.TransactionDate().Before(serviceDate) {
				serviceDate = e.TransactionDate()
			}
		}

		rideID, description := lineDescriptor(g, freq)

		lineItems = append(lineItems, LineItem{
			ID:             id.NewLineItemID(),
			InvoiceID:      invoiceID,
			RideID:         rideID,
			ServiceDate:    serviceDate,
			Amount:         amount,
			Description:    description,
			LedgerEntryIDs: entryIDs,
		})
	}

	sort.Slice(lineItems, func(i, j int) bool {
		return lineLess(lineItems[i], lineItems[j])
	})

	return lineItems, nil
}

func groupKey(e *account.LedgerEntry, freq BillingFrequency) string {
	switch freq {
	case PerRide:
		return "ride:" + e.SourceReferenceID()
	case Daily:
		d := e.TransactionDate().UTC()
		return fmt.Sprintf("day:%04d-%02d-%02d", d.Year(), d.Month(), d.Day())
	case Weekly:
		monday := mondayOfWeek(e.TransactionDate())
		return fmt.Sprintf("week:%04d-%02d-%02d", monday.Year(), monday.Month(), monday.Day())
	case Monthly:
		d := e.TransactionDate().UTC()
		return fmt.Sprintf("month:%04d-%02d", d.Year(), d.Month())
	default:
		return "unknown"
	}
}

func mondayOfWeek(t time.Time) time.Time {
	t = t.UTC()
	weekday := int(t.Weekday())
	if weekday == 0 { // time.Sunday == 0; ISO week starts Monday
		weekday = 7
	}
	daysSinceMonday := weekday - 1
	monday := t.AddDate(0, 0, -daysSinceMonday)
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, time.UTC)
}

func lineDescriptor(g *groupAccumulator, freq BillingFrequency) (rideID, description string) {
	if freq == PerRide {
		for ride := range g.rideIDs {
			return ride, fmt.Sprintf("ride %s", ride)
		}
	}
	n := len(g.rideIDs)
	desc := fmt.Sprintf("%d rides", n)
	return desc, desc
}

func sortEntriesByTieBreak(entries []*account.LedgerEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entryLess(entries[i], entries[j])
	})
}

// entryLess implements the spec's tie-break order: transaction_date
// ascending, created_at_utc ascending, ledger_entry_id ascending.
func entryLess(a, b *account.LedgerEntry) bool {
	if !a.TransactionDate().Equal(b.TransactionDate()) {
		return a.TransactionDate().Before(b.TransactionDate())
	}
	if !a.CreatedAtUTC().Equal(b.CreatedAtUTC()) {
		return a.CreatedAtUTC().Before(b.CreatedAtUTC())
	}
	return a.ID().String() < b.ID().String()
}

func lineLess(a, b LineItem) bool {
	if !a.ServiceDate.Equal(b.ServiceDate) {
		return a.ServiceDate.Before(b.ServiceDate)
	}
	if len(a.LedgerEntryIDs) == 0 || len(b.LedgerEntryIDs) == 0 {
		return false
	}
	return a.LedgerEntryIDs[0].String() < b.LedgerEntryIDs[0].String()
}
