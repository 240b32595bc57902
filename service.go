package rideledger

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rideledger/core/account"
	"github.com/rideledger/core/id"
	"github.com/rideledger/core/invoice"
	"github.com/rideledger/core/ledgererrors"
	"github.com/rideledger/core/numbering"
	"github.com/rideledger/core/outbox"
	"github.com/rideledger/core/plugin"
	"github.com/rideledger/core/store"
	"github.com/rideledger/core/tenantctx"
	"github.com/rideledger/core/types"
)

// Service is the composition root wiring a store.Store and a
// plugin.Registry into the command/query surface of spec §6. It is the
// single entry point a presentation layer imports.
type Service struct {
	store   store.Store
	uow     store.UnitOfWork
	plugins *plugin.Registry
	logger  *slog.Logger
}

// New constructs a Service over st. By default commands run directly
// against st's UnitOfWork, with no retry; use WithRetry to wrap it in a
// store.RetryPolicy.
func New(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:   st,
		uow:     st,
		plugins: plugin.NewRegistry(),
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Option configures a Service instance.
type Option func(*Service)

// WithLogger sets the logger used by the Service and its plugin registry.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
		s.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin (audithook.Extension,
// observability.MetricsExtension, or a caller-supplied one).
func WithPlugin(p plugin.Plugin) Option {
	return func(s *Service) {
		_ = s.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithRetry wraps the Service's UnitOfWork in a store.RetryPolicy tuned
// with maxAttempts and a per-attempt timeout, per spec §5's "up to 3
// attempts, exponential backoff, connection-class errors only."
func WithRetry(maxAttempts uint, timeout time.Duration) Option {
	return func(s *Service) {
		s.uow = store.NewRetryPolicy(s.store).WithMaxAttempts(maxAttempts).WithTimeout(timeout)
	}
}

// Start migrates the store's schema and fires OnInit on every
// registered plugin.
func (s *Service) Start(ctx context.Context) error {
	if err := s.store.Migrate(ctx); err != nil {
		return err
	}

	s.plugins.EmitInit(ctx)

	s.logger.Info("rideledger service started")
	return nil
}

// Stop fires OnShutdown on every registered plugin and closes the store.
func (s *Service) Stop() error {
	ctx := context.Background()
	s.plugins.EmitShutdown(ctx)
	return s.store.Close()
}

func (s *Service) withinTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	return s.uow.WithinTx(ctx, fn)
}

// ──────────────────────────────────────────────────
// Account commands
// ──────────────────────────────────────────────────

// CreateAccount creates a new Account under acctID, the client-supplied
// identifier that makes this call safely retriable. If an account
// already exists under acctID, fails with
// ledgererrors.CodeAccountAlreadyExists carrying
// Metadata["existing_id"], per spec Open Question (a)'s "surfaces both
// truths" policy.
func (s *Service) CreateAccount(
	ctx context.Context,
	acctID id.AccountID,
	name string,
	accountType account.AccountType,
	currency string,
) (*account.Account, error) {
	tc, err := tenantctx.From(ctx)
	if err != nil {
		return nil, err
	}

	var created *account.Account
	var ev *account.AccountCreatedEvent

	err = s.withinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		exists, err := tx.Accounts().Exists(ctx, acctID)
		if err != nil {
			return err
		}
		if exists {
			existing, err := tx.Accounts().GetByID(ctx, acctID)
			if err != nil {
				return err
			}
			return ledgererrors.New(ledgererrors.CodeAccountAlreadyExists,
				"an account already exists under this id").
				WithMetadata("existing_id", existing.ID().String())
		}

		acc, err := account.New(acctID, tc.TenantID, name, accountType, currency)
		if err != nil {
			return err
		}
		if err := tx.Accounts().Add(ctx, acc); err != nil {
			return err
		}

		event := &account.AccountCreatedEvent{
			AccountID:   acc.ID(),
			TenantID:    acc.TenantID(),
			Name:        acc.Name(),
			AccountType: acc.Type(),
			Currency:    acc.Currency(),
			OccurredAt:  acc.CreatedAt(),
		}
		msg, err := outbox.FromAccountCreated(event)
		if err != nil {
			return &ledgererrors.InfrastructureError{Op: "rideledger.CreateAccount", Cause: err}
		}
		if err := tx.Outbox().Insert(ctx, msg); err != nil {
			return err
		}

		created = acc
		ev = event
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.plugins.EmitAccountCreated(ctx, ev)
	return created, nil
}

// RecordCharge posts a ride charge to acctID. See account.RecordCharge
// for the business rules.
func (s *Service) RecordCharge(
	ctx context.Context,
	acctID id.AccountID,
	rideID string,
	amount types.Money,
	serviceDate time.Time,
	fleetID string,
	createdBy string,
) (*account.ChargeRecordedEvent, error) {
	var ev *account.ChargeRecordedEvent

	err := s.withinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		acc, err := tx.Accounts().GetByIDWithLedgerEntries(ctx, acctID)
		if err != nil {
			return err
		}

		event, err := acc.RecordCharge(rideID, amount, serviceDate, fleetID, createdBy)
		if err != nil {
			return err
		}

		if err := tx.Accounts().Update(ctx, acc); err != nil {
			return err
		}
		acc.MarkPersisted()

		msg, err := outbox.FromChargeRecorded(event)
		if err != nil {
			return &ledgererrors.InfrastructureError{Op: "rideledger.RecordCharge", Cause: err}
		}
		if err := tx.Outbox().Insert(ctx, msg); err != nil {
			return err
		}

		ev = event
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.plugins.EmitChargeRecorded(ctx, ev)
	return ev, nil
}

// RecordPayment posts a payment to acctID. See account.RecordPayment for
// the business rules.
func (s *Service) RecordPayment(
	ctx context.Context,
	acctID id.AccountID,
	paymentReferenceID string,
	amount types.Money,
	paymentDate time.Time,
	paymentMode string,
	createdBy string,
) (*account.PaymentReceivedEvent, error) {
	var ev *account.PaymentReceivedEvent

	err := s.withinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		acc, err := tx.Accounts().GetByIDWithLedgerEntries(ctx, acctID)
		if err != nil {
			return err
		}

		event, err := acc.RecordPayment(paymentReferenceID, amount, paymentDate, paymentMode, createdBy)
		if err != nil {
			return err
		}

		if err := tx.Accounts().Update(ctx, acc); err != nil {
			return err
		}
		acc.MarkPersisted()

		msg, err := outbox.FromPaymentReceived(event)
		if err != nil {
			return &ledgererrors.InfrastructureError{Op: "rideledger.RecordPayment", Cause: err}
		}
		if err := tx.Outbox().Insert(ctx, msg); err != nil {
			return err
		}

		ev = event
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.plugins.EmitPaymentReceived(ctx, ev)
	return ev, nil
}

// DeactivateAccount transitions acctID from Active to Inactive.
// Idempotent: if the account is already Inactive, returns (nil, nil)
// and fires no event, matching account.Deactivate's no-op contract.
func (s *Service) DeactivateAccount(ctx context.Context, acctID id.AccountID, reason, by string) (*account.AccountDeactivatedEvent, error) {
	var ev *account.AccountDeactivatedEvent

	err := s.withinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		acc, err := tx.Accounts().GetByID(ctx, acctID)
		if err != nil {
			return err
		}

		event, err := acc.Deactivate(reason, by)
		if err != nil {
			return err
		}
		if event == nil {
			return nil
		}

		if err := tx.Accounts().Update(ctx, acc); err != nil {
			return err
		}
		acc.MarkPersisted()

		msg, err := outbox.FromAccountDeactivated(event)
		if err != nil {
			return &ledgererrors.InfrastructureError{Op: "rideledger.DeactivateAccount", Cause: err}
		}
		if err := tx.Outbox().Insert(ctx, msg); err != nil {
			return err
		}

		ev = event
		return nil
	})
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, nil
	}

	s.plugins.EmitAccountDeactivated(ctx, ev)
	return ev, nil
}

// ──────────────────────────────────────────────────
// Invoice commands
// ──────────────────────────────────────────────────

// GenerateInvoice aggregates acctID's chargeable entries in
// [periodStart, periodEnd) into a new Invoice, per spec §4.4.
func (s *Service) GenerateInvoice(
	ctx context.Context,
	acctID id.AccountID,
	periodStart, periodEnd time.Time,
	freq invoice.BillingFrequency,
) (*invoice.Invoice, error) {
	var inv *invoice.Invoice
	var ev *invoice.InvoiceGeneratedEvent

	err := s.withinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		acc, err := tx.Accounts().GetByIDWithLedgerEntries(ctx, acctID)
		if err != nil {
			return err
		}

		invoiceNumber, err := numbering.GenerateNext(ctx, tx.Numbering())
		if err != nil {
			return err
		}

		generated, err := invoice.Generate(acc, id.NewInvoiceID(), invoiceNumber, periodStart, periodEnd, freq)
		if err != nil {
			return err
		}

		if err := tx.Invoices().Add(ctx, generated); err != nil {
			return err
		}

		event := &invoice.InvoiceGeneratedEvent{
			InvoiceID:            generated.ID(),
			TenantID:             generated.TenantID(),
			AccountID:            generated.AccountID(),
			InvoiceNumber:        generated.InvoiceNumber(),
			Subtotal:             generated.Subtotal(),
			TotalPaymentsApplied: generated.TotalPaymentsApplied(),
			OutstandingBalance:   generated.OutstandingBalance(),
			OccurredAt:           generated.GeneratedAtUTC(),
		}
		msg, err := outbox.FromInvoiceGenerated(event)
		if err != nil {
			return &ledgererrors.InfrastructureError{Op: "rideledger.GenerateInvoice", Cause: err}
		}
		if err := tx.Outbox().Insert(ctx, msg); err != nil {
			return err
		}

		inv = generated
		ev = event
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.plugins.EmitInvoiceGenerated(ctx, ev)
	return inv, nil
}

// VoidInvoice transitions invID to Voided, per spec Open Question (b).
func (s *Service) VoidInvoice(ctx context.Context, invID id.InvoiceID, reason, by string) (*invoice.Invoice, error) {
	var inv *invoice.Invoice
	var ev *invoice.InvoiceVoidedEvent

	err := s.withinTx(ctx, func(ctx context.Context, tx store.Tx) error {
		loaded, err := tx.Invoices().GetByIDWithLineItems(ctx, invID)
		if err != nil {
			return err
		}

		event, err := loaded.Void(reason, by)
		if err != nil {
			return err
		}

		if err := tx.Invoices().Update(ctx, loaded); err != nil {
			return err
		}

		msg, err := outbox.FromInvoiceVoided(event)
		if err != nil {
			return &ledgererrors.InfrastructureError{Op: "rideledger.VoidInvoice", Cause: err}
		}
		if err := tx.Outbox().Insert(ctx, msg); err != nil {
			return err
		}

		inv = loaded
		ev = event
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.plugins.EmitInvoiceVoided(ctx, ev)
	return inv, nil
}

// ──────────────────────────────────────────────────
// Queries
// ──────────────────────────────────────────────────

// GetAccount loads an account without its ledger entries.
func (s *Service) GetAccount(ctx context.Context, acctID id.AccountID) (*account.Account, error) {
	return s.store.Accounts().GetByID(ctx, acctID)
}

// GetAccountBalance returns acctID's current outstanding balance.
func (s *Service) GetAccountBalance(ctx context.Context, acctID id.AccountID) (types.Money, error) {
	acc, err := s.store.Accounts().GetByIDWithLedgerEntries(ctx, acctID)
	if err != nil {
		return types.Money{}, err
	}
	return acc.GetBalance()
}

// TransactionsPage is a paginated slice of an account's ledger entries,
// optionally filtered to a date range.
type TransactionsPage struct {
	Entries  []*account.LedgerEntry
	Page     int
	PageSize int
	Total    int
}

// GetTransactions returns a date-ordered, paginated page of acctID's
// ledger entries, optionally restricted to [start, end].
func (s *Service) GetTransactions(
	ctx context.Context,
	acctID id.AccountID,
	page, pageSize int,
	start, end *time.Time,
) (*TransactionsPage, error) {
	acc, err := s.store.Accounts().GetByIDWithLedgerEntries(ctx, acctID)
	if err != nil {
		return nil, err
	}

	filtered := filterByDateRange(acc.Entries(), start, end)
	pageEntries, total := paginateEntries(filtered, page, pageSize)

	return &TransactionsPage{
		Entries:  pageEntries,
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	}, nil
}

// StatementLine pairs one ledger entry with the account's running
// AccountsReceivable balance immediately after it.
type StatementLine struct {
	Entry          *account.LedgerEntry
	RunningBalance types.Money
}

// AccountStatement is acctID's opening balance (entries dated before
// periodStart), the ledger entries within [periodStart, periodEnd], each
// with a running balance, and the closing balance — spec §6's
// "GetAccountStatement".
type AccountStatement struct {
	AccountID      id.AccountID
	PeriodStart    time.Time
	PeriodEnd      time.Time
	OpeningBalance types.Money
	Lines          []StatementLine
	ClosingBalance types.Money
	Page           int
	PageSize       int
	Total          int
}

// GetAccountStatement builds acctID's statement for [periodStart,
// periodEnd], with entries paginated by page/pageSize.
func (s *Service) GetAccountStatement(
	ctx context.Context,
	acctID id.AccountID,
	periodStart, periodEnd time.Time,
	page, pageSize int,
) (*AccountStatement, error) {
	acc, err := s.store.Accounts().GetByIDWithLedgerEntries(ctx, acctID)
	if err != nil {
		return nil, err
	}

	opening, err := acc.GetBalanceAsOf(periodStart.Add(-time.Nanosecond))
	if err != nil {
		return nil, err
	}

	inPeriod := filterByDateRange(acc.Entries(), &periodStart, &periodEnd)
	runningDec := decimal.Zero
	for _, e := range acc.Entries() {
		if e.LedgerAccount() == account.AccountsReceivable && e.TransactionDate().Before(periodStart) {
			runningDec = runningDec.Add(e.EffectiveAmount())
		}
	}

	lines := make([]StatementLine, 0, len(inPeriod))
	for _, e := range inPeriod {
		if e.LedgerAccount() == account.AccountsReceivable {
			runningDec = runningDec.Add(e.EffectiveAmount())
		}
		shown := runningDec
		if shown.IsNegative() {
			shown = decimal.Zero
		}
		runningBalance, err := types.New(shown, acc.Currency())
		if err != nil {
			return nil, &ledgererrors.InfrastructureError{Op: "rideledger.GetAccountStatement", Cause: err}
		}
		lines = append(lines, StatementLine{Entry: e, RunningBalance: runningBalance})
	}

	closing, err := acc.GetBalanceAsOf(periodEnd)
	if err != nil {
		return nil, err
	}

	pageLines, total := paginateStatementLines(lines, page, pageSize)

	return &AccountStatement{
		AccountID:      acctID,
		PeriodStart:    periodStart,
		PeriodEnd:      periodEnd,
		OpeningBalance: opening,
		Lines:          pageLines,
		ClosingBalance: closing,
		Page:           page,
		PageSize:       pageSize,
		Total:          total,
	}, nil
}

// GetInvoice loads an invoice with its line items.
func (s *Service) GetInvoice(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	return s.store.Invoices().GetByIDWithLineItems(ctx, invID)
}

// SearchInvoices filters and paginates invoices per opts.
func (s *Service) SearchInvoices(ctx context.Context, opts store.SearchInvoicesOpts) ([]*invoice.Invoice, error) {
	return s.store.Invoices().Search(ctx, opts)
}

// ──────────────────────────────────────────────────
// Query helpers
// ──────────────────────────────────────────────────

func filterByDateRange(entries []*account.LedgerEntry, start, end *time.Time) []*account.LedgerEntry {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TransactionDate().Before(entries[j].TransactionDate())
	})

	if start == nil && end == nil {
		return entries
	}

	out := make([]*account.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		if start != nil && e.TransactionDate().Before(*start) {
			continue
		}
		if end != nil && e.TransactionDate().After(*end) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func paginateEntries(entries []*account.LedgerEntry, page, pageSize int) ([]*account.LedgerEntry, int) {
	total := len(entries)
	if pageSize <= 0 {
		return entries, total
	}
	start := page * pageSize
	if start >= total {
		return nil, total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return entries[start:end], total
}

func paginateStatementLines(lines []StatementLine, page, pageSize int) ([]StatementLine, int) {
	total := len(lines)
	if pageSize <= 0 {
		return lines, total
	}
	start := page * pageSize
	if start >= total {
		return nil, total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return lines[start:end], total
}
