// Package observability provides a metrics extension for RideLedger
// that records lifecycle event counts and amounts via
// github.com/prometheus/client_golang.
package observability

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rideledger/core/account"
	"github.com/rideledger/core/invoice"
	"github.com/rideledger/core/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin               = (*MetricsExtension)(nil)
	_ plugin.OnAccountCreated     = (*MetricsExtension)(nil)
	_ plugin.OnChargeRecorded     = (*MetricsExtension)(nil)
	_ plugin.OnPaymentReceived    = (*MetricsExtension)(nil)
	_ plugin.OnAccountDeactivated = (*MetricsExtension)(nil)
	_ plugin.OnInvoiceGenerated   = (*MetricsExtension)(nil)
	_ plugin.OnInvoiceVoided      = (*MetricsExtension)(nil)
)

// MetricsExtension records system-wide lifecycle metrics. Register it
// as a RideLedger plugin to automatically track accounting activity.
type MetricsExtension struct {
	accountsCreated     prometheus.Counter
	chargesRecorded     prometheus.Counter
	chargeAmountTotal   prometheus.Counter
	paymentsReceived    prometheus.Counter
	paymentAmountTotal  prometheus.Counter
	accountsDeactivated prometheus.Counter
	invoicesGenerated   prometheus.Counter
	invoiceOutstanding  prometheus.Histogram
	invoicesVoided      prometheus.Counter
}

// NewMetricsExtension creates a MetricsExtension and registers its
// collectors with reg. Passing prometheus.NewRegistry() (rather than
// the global DefaultRegisterer) keeps metric registration isolated per
// Service instance, matching how the rest of this package's plugins
// avoid global mutable state.
func NewMetricsExtension(reg prometheus.Registerer) *MetricsExtension {
	m := &MetricsExtension{
		accountsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rideledger_accounts_created_total",
			Help: "Total number of accounts created.",
		}),
		chargesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rideledger_charges_recorded_total",
			Help: "Total number of ride charges recorded.",
		}),
		chargeAmountTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rideledger_charge_amount_total",
			Help: "Sum of all ride charge amounts recorded, in the account's currency unit.",
		}),
		paymentsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rideledger_payments_received_total",
			Help: "Total number of payments recorded.",
		}),
		paymentAmountTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rideledger_payment_amount_total",
			Help: "Sum of all payment amounts recorded, in the account's currency unit.",
		}),
		accountsDeactivated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rideledger_accounts_deactivated_total",
			Help: "Total number of accounts transitioned to Inactive.",
		}),
		invoicesGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rideledger_invoices_generated_total",
			Help: "Total number of invoices generated.",
		}),
		invoiceOutstanding: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "rideledger_invoice_outstanding_balance",
			Help:    "Outstanding balance of generated invoices.",
			Buckets: prometheus.ExponentialBuckets(10, 4, 8),
		}),
		invoicesVoided: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rideledger_invoices_voided_total",
			Help: "Total number of invoices voided.",
		}),
	}

	reg.MustRegister(
		m.accountsCreated,
		m.chargesRecorded, m.chargeAmountTotal,
		m.paymentsReceived, m.paymentAmountTotal,
		m.accountsDeactivated,
		m.invoicesGenerated, m.invoiceOutstanding, m.invoicesVoided,
	)

	return m
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnAccountCreated implements plugin.OnAccountCreated.
func (m *MetricsExtension) OnAccountCreated(_ context.Context, _ *account.AccountCreatedEvent) error {
	m.accountsCreated.Inc()
	return nil
}

// OnChargeRecorded implements plugin.OnChargeRecorded.
func (m *MetricsExtension) OnChargeRecorded(_ context.Context, ev *account.ChargeRecordedEvent) error {
	m.chargesRecorded.Inc()
	amt, _ := ev.Amount.Decimal().Float64()
	m.chargeAmountTotal.Add(amt)
	return nil
}

// OnPaymentReceived implements plugin.OnPaymentReceived.
func (m *MetricsExtension) OnPaymentReceived(_ context.Context, ev *account.PaymentReceivedEvent) error {
	m.paymentsReceived.Inc()
	amt, _ := ev.Amount.Decimal().Float64()
	m.paymentAmountTotal.Add(amt)
	return nil
}

// OnAccountDeactivated implements plugin.OnAccountDeactivated.
func (m *MetricsExtension) OnAccountDeactivated(_ context.Context, _ *account.AccountDeactivatedEvent) error {
	m.accountsDeactivated.Inc()
	return nil
}

// OnInvoiceGenerated implements plugin.OnInvoiceGenerated.
func (m *MetricsExtension) OnInvoiceGenerated(_ context.Context, ev *invoice.InvoiceGeneratedEvent) error {
	m.invoicesGenerated.Inc()
	outstanding, _ := ev.OutstandingBalance.Decimal().Float64()
	m.invoiceOutstanding.Observe(outstanding)
	return nil
}

// OnInvoiceVoided implements plugin.OnInvoiceVoided.
func (m *MetricsExtension) OnInvoiceVoided(_ context.Context, _ *invoice.InvoiceVoidedEvent) error {
	m.invoicesVoided.Inc()
	return nil
}
