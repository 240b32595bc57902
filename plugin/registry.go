package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rideledger/core/account"
	"github.com/rideledger/core/invoice"
)

// Registry manages all registered plugins and dispatches RideLedger's
// lifecycle events to the subset of plugins that implement each hook.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	onInit               []OnInit
	onShutdown           []OnShutdown
	onAccountCreated     []OnAccountCreated
	onChargeRecorded     []OnChargeRecorded
	onPaymentReceived    []OnPaymentReceived
	onAccountDeactivated []OnAccountDeactivated
	onInvoiceGenerated   []OnInvoiceGenerated
	onInvoiceVoided      []OnInvoiceVoided
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{logger: slog.Default()}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnAccountCreated); ok {
		r.onAccountCreated = append(r.onAccountCreated, v)
	}
	if v, ok := p.(OnChargeRecorded); ok {
		r.onChargeRecorded = append(r.onChargeRecorded, v)
	}
	if v, ok := p.(OnPaymentReceived); ok {
		r.onPaymentReceived = append(r.onPaymentReceived, v)
	}
	if v, ok := p.(OnAccountDeactivated); ok {
		r.onAccountDeactivated = append(r.onAccountDeactivated, v)
	}
	if v, ok := p.(OnInvoiceGenerated); ok {
		r.onInvoiceGenerated = append(r.onInvoiceGenerated, v)
	}
	if v, ok := p.(OnInvoiceVoided); ok {
		r.onInvoiceVoided = append(r.onInvoiceVoided, v)
	}

	r.logger.Info("plugin registered", "name", p.Name())
	return nil
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitAccountCreated dispatches an AccountCreatedEvent.
func (r *Registry) EmitAccountCreated(ctx context.Context, ev *account.AccountCreatedEvent) {
	r.mu.RLock()
	plugins := r.onAccountCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnAccountCreated(ctx, ev)
		}); err != nil {
			r.logger.Warn("plugin OnAccountCreated failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitChargeRecorded dispatches a ChargeRecordedEvent.
func (r *Registry) EmitChargeRecorded(ctx context.Context, ev *account.ChargeRecordedEvent) {
	r.mu.RLock()
	plugins := r.onChargeRecorded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnChargeRecorded(ctx, ev)
		}); err != nil {
			r.logger.Warn("plugin OnChargeRecorded failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitPaymentReceived dispatches a PaymentReceivedEvent.
func (r *Registry) EmitPaymentReceived(ctx context.Context, ev *account.PaymentReceivedEvent) {
	r.mu.RLock()
	plugins := r.onPaymentReceived
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPaymentReceived(ctx, ev)
		}); err != nil {
			r.logger.Warn("plugin OnPaymentReceived failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitAccountDeactivated dispatches an AccountDeactivatedEvent.
func (r *Registry) EmitAccountDeactivated(ctx context.Context, ev *account.AccountDeactivatedEvent) {
	r.mu.RLock()
	plugins := r.onAccountDeactivated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnAccountDeactivated(ctx, ev)
		}); err != nil {
			r.logger.Warn("plugin OnAccountDeactivated failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitInvoiceGenerated dispatches an InvoiceGeneratedEvent.
func (r *Registry) EmitInvoiceGenerated(ctx context.Context, ev *invoice.InvoiceGeneratedEvent) {
	r.mu.RLock()
	plugins := r.onInvoiceGenerated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInvoiceGenerated(ctx, ev)
		}); err != nil {
			r.logger.Warn("plugin OnInvoiceGenerated failed", "plugin", p.Name(), "error", err)
		}
	}
}

// EmitInvoiceVoided dispatches an InvoiceVoidedEvent.
func (r *Registry) EmitInvoiceVoided(ctx context.Context, ev *invoice.InvoiceVoidedEvent) {
	r.mu.RLock()
	plugins := r.onInvoiceVoided
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInvoiceVoided(ctx, ev)
		}); err != nil {
			r.logger.Warn("plugin OnInvoiceVoided failed", "plugin", p.Name(), "error", err)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout. Plugins
// should never block the accounting pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
