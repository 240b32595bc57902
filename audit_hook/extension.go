// Package audithook bridges RideLedger's domain lifecycle events to an
// audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// any specific audit sink directly. Callers inject a RecorderFunc
// adapter that bridges to their chosen backend at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rideledger/core/account"
	"github.com/rideledger/core/invoice"
	"github.com/rideledger/core/plugin"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin               = (*Extension)(nil)
	_ plugin.OnAccountCreated     = (*Extension)(nil)
	_ plugin.OnChargeRecorded     = (*Extension)(nil)
	_ plugin.OnPaymentReceived    = (*Extension)(nil)
	_ plugin.OnAccountDeactivated = (*Extension)(nil)
	_ plugin.OnInvoiceGenerated   = (*Extension)(nil)
	_ plugin.OnInvoiceVoided      = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges RideLedger lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// OnAccountCreated implements plugin.OnAccountCreated.
func (e *Extension) OnAccountCreated(ctx context.Context, ev *account.AccountCreatedEvent) error {
	return e.record(ctx, ActionAccountCreated, SeverityInfo, OutcomeSuccess,
		ResourceAccount, ev.AccountID.String(), CategoryAccounting, nil,
		"tenant_id", ev.TenantID,
		"name", ev.Name,
		"account_type", string(ev.AccountType),
		"currency", ev.Currency,
	)
}

// OnChargeRecorded implements plugin.OnChargeRecorded.
func (e *Extension) OnChargeRecorded(ctx context.Context, ev *account.ChargeRecordedEvent) error {
	return e.record(ctx, ActionChargeRecorded, SeverityInfo, OutcomeSuccess,
		ResourceAccount, ev.AccountID.String(), CategoryAccounting, nil,
		"tenant_id", ev.TenantID,
		"ride_id", ev.RideID,
		"amount", ev.Amount.Decimal().String(),
		"debit_entry_id", ev.DebitEntryID.String(),
		"credit_entry_id", ev.CreditEntryID.String(),
	)
}

// OnPaymentReceived implements plugin.OnPaymentReceived.
func (e *Extension) OnPaymentReceived(ctx context.Context, ev *account.PaymentReceivedEvent) error {
	return e.record(ctx, ActionPaymentReceived, SeverityInfo, OutcomeSuccess,
		ResourceAccount, ev.AccountID.String(), CategoryAccounting, nil,
		"tenant_id", ev.TenantID,
		"payment_reference_id", ev.PaymentReferenceID,
		"amount", ev.Amount.Decimal().String(),
	)
}

// OnAccountDeactivated implements plugin.OnAccountDeactivated.
func (e *Extension) OnAccountDeactivated(ctx context.Context, ev *account.AccountDeactivatedEvent) error {
	return e.record(ctx, ActionAccountDeactivated, SeverityWarning, OutcomeSuccess,
		ResourceAccount, ev.AccountID.String(), CategoryAccounting, nil,
		"tenant_id", ev.TenantID,
		"reason", ev.Reason,
		"by", ev.By,
	)
}

// OnInvoiceGenerated implements plugin.OnInvoiceGenerated.
func (e *Extension) OnInvoiceGenerated(ctx context.Context, ev *invoice.InvoiceGeneratedEvent) error {
	return e.record(ctx, ActionInvoiceGenerated, SeverityInfo, OutcomeSuccess,
		ResourceInvoice, ev.InvoiceID.String(), CategoryBilling, nil,
		"tenant_id", ev.TenantID,
		"account_id", ev.AccountID.String(),
		"invoice_number", ev.InvoiceNumber,
		"subtotal", ev.Subtotal.Decimal().String(),
		"outstanding_balance", ev.OutstandingBalance.Decimal().String(),
	)
}

// OnInvoiceVoided implements plugin.OnInvoiceVoided.
func (e *Extension) OnInvoiceVoided(ctx context.Context, ev *invoice.InvoiceVoidedEvent) error {
	return e.record(ctx, ActionInvoiceVoided, SeverityWarning, OutcomeSuccess,
		ResourceInvoice, ev.InvoiceID.String(), CategoryBilling, nil,
		"tenant_id", ev.TenantID,
		"invoice_number", ev.InvoiceNumber,
		"void_reason", ev.Reason,
		"by", ev.By,
	)
}

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audithook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
