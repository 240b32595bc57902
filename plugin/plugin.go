// Package plugin provides an extensible plugin system for RideLedger.
// Plugins hook into the domain lifecycle events fired after a command's
// transaction commits, so audit trails, metrics, and other downstream
// observers can be added without touching the command handlers
// themselves. Hooks are strictly downstream of the outbox write — they
// observe, they never participate in the atomicity guarantee of
// spec §4.6.
package plugin

import (
	"context"

	"github.com/rideledger/core/account"
	"github.com/rideledger/core/invoice"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called once when the Service starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context) error
}

// OnShutdown is called once when the Service stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Account lifecycle hooks
// ──────────────────────────────────────────────────

// OnAccountCreated is called after CreateAccount commits.
type OnAccountCreated interface {
	Plugin
	OnAccountCreated(ctx context.Context, ev *account.AccountCreatedEvent) error
}

// OnChargeRecorded is called after RecordCharge commits.
type OnChargeRecorded interface {
	Plugin
	OnChargeRecorded(ctx context.Context, ev *account.ChargeRecordedEvent) error
}

// OnPaymentReceived is called after RecordPayment commits.
type OnPaymentReceived interface {
	Plugin
	OnPaymentReceived(ctx context.Context, ev *account.PaymentReceivedEvent) error
}

// OnAccountDeactivated is called after Deactivate commits a true
// Active→Inactive transition (never on the idempotent no-op repeat).
type OnAccountDeactivated interface {
	Plugin
	OnAccountDeactivated(ctx context.Context, ev *account.AccountDeactivatedEvent) error
}

// ──────────────────────────────────────────────────
// Invoice lifecycle hooks
// ──────────────────────────────────────────────────

// OnInvoiceGenerated is called after GenerateInvoice commits.
type OnInvoiceGenerated interface {
	Plugin
	OnInvoiceGenerated(ctx context.Context, ev *invoice.InvoiceGeneratedEvent) error
}

// OnInvoiceVoided is called after VoidInvoice commits.
type OnInvoiceVoided interface {
	Plugin
	OnInvoiceVoided(ctx context.Context, ev *invoice.InvoiceVoidedEvent) error
}
