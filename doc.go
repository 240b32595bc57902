// Package rideledger provides a double-entry accounting core for
// ride-hailing fleet operators.
//
// RideLedger is designed as a library, not a service. Import it
// directly into your Go application. It provides:
//
//   - Double-entry bookkeeping for per-fleet/per-driver accounts
//   - Idempotent charge and payment recording, keyed by source reference
//   - Period-scoped invoice generation with per-ride or aggregated line items
//   - A transactional outbox so downstream consumers never miss a state change
//   - Pluggable audit trail and metrics via the plugin package
//   - Multi-tenant isolation enforced at every repository boundary
//
// # Quick Start
//
// Create a Service with your preferred store:
//
//	import (
//	    "github.com/rideledger/core"
//	    "github.com/rideledger/core/store/postgres"
//	)
//
//	st, err := postgres.New(databaseURL)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	svc := rideledger.New(st)
//	if err := svc.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer svc.Stop()
//
// # Core Concepts
//
// Accounts hold a tenant's ledger entries for one billable party
// (an organization's fleet, or an individual driver/rider):
//
//	acc, err := svc.CreateAccount(ctx, acctID, "Acme Fleet", account.Organization, "USD")
//
// Charges and payments post matched debit/credit ledger entry pairs:
//
//	ev, err := svc.RecordCharge(ctx, acctID, rideID, amount, serviceDate, fleetID, by)
//	ev, err := svc.RecordPayment(ctx, acctID, paymentRef, amount, paymentDate, mode, by)
//
// Invoices aggregate a billing period's charges, net of payments applied
// in that period:
//
//	inv, err := svc.GenerateInvoice(ctx, acctID, periodStart, periodEnd, invoice.Monthly)
//
// # Monetary representation
//
// All monetary calculations use github.com/shopspring/decimal with four
// fractional digits and half-away-from-zero rounding, to avoid both
// floating-point error and the ambiguity of half-even rounding in
// customer-facing amounts.
//
// # Identifiers
//
// Server-generated entities use TypeID-based identifiers
// (go.jetify.com/typeid/v2), K-sortable and URL-safe in the form
// "prefix_suffix". Accounts use a client-supplied, non-zero GUID
// instead, since the caller names the account it wants created.
package rideledger
