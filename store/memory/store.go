// Package memory provides a dependency-free store.Store implementation
// used by the service-level tests and as a minimal reference for the
// repository contract (spec §4.5).
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rideledger/core/account"
	"github.com/rideledger/core/id"
	"github.com/rideledger/core/invoice"
	"github.com/rideledger/core/ledgererrors"
	"github.com/rideledger/core/outbox"
	"github.com/rideledger/core/store"
	"github.com/rideledger/core/tenantctx"
)

type accountSnapshot struct {
	tenantID    string
	id          id.AccountID
	name        string
	accountType account.AccountType
	status      account.Status
	currency    string
	createdAt   time.Time
	updatedAt   time.Time
	entries     []*account.LedgerEntry
}

// Store is an in-memory, mutex-guarded implementation of store.Store.
// WithinTx snapshots affected state before running fn and restores it
// on error, approximating transactional rollback without a real
// database.
type Store struct {
	mu sync.Mutex

	accounts map[string]*accountSnapshot // tenantID + "|" + acctID
	invoices map[string]*invoice.Invoice // tenantID + "|" + invID
	outboxMu sync.Mutex
	outbox   map[string]*outbox.Message // msgID

	// paymentRefs enforces the spec's global (not tenant-scoped)
	// uniqueness of Payment source_reference_id (spec §8: "For every
	// entry with source_type=Payment: source_reference_id is globally
	// unique"), mirroring the partial-unique index on
	// (source_reference_id) filtered to source_type=Payment.
	paymentRefs map[string]struct{}
}

// New constructs an empty Store.
func New() *Store {
	return &Store{
		accounts:    make(map[string]*accountSnapshot),
		invoices:    make(map[string]*invoice.Invoice),
		outbox:      make(map[string]*outbox.Message),
		paymentRefs: make(map[string]struct{}),
	}
}

func (s *Store) Migrate(_ context.Context) error { return nil }
func (s *Store) Ping(_ context.Context) error    { return nil }
func (s *Store) Close() error                    { return nil }

func acctKey(tenantID string, acctID id.AccountID) string { return tenantID + "|" + acctID.String() }
func invKey(tenantID string, invID id.InvoiceID) string   { return tenantID + "|" + invID.String() }

func (s *Store) snapshotFromAccount(acc *account.Account) *accountSnapshot {
	entries := make([]*account.LedgerEntry, len(acc.Entries()))
	copy(entries, acc.Entries())
	return &accountSnapshot{
		tenantID:    acc.TenantID(),
		id:          acc.ID(),
		name:        acc.Name(),
		accountType: acc.Type(),
		status:      acc.Status(),
		currency:    acc.Currency(),
		createdAt:   acc.CreatedAt(),
		updatedAt:   acc.UpdatedAt(),
		entries:     entries,
	}
}

func (snap *accountSnapshot) toAccount() *account.Account {
	entries := make([]*account.LedgerEntry, len(snap.entries))
	copy(entries, snap.entries)
	return account.Rehydrate(snap.id, snap.tenantID, snap.name, snap.accountType, snap.status,
		snap.currency, snap.createdAt, snap.updatedAt, entries)
}

// Accounts returns non-transactional account access for read queries.
func (s *Store) Accounts() store.AccountRepository { return &accountRepo{s: s} }

// Invoices returns non-transactional invoice access for read queries.
func (s *Store) Invoices() store.InvoiceRepository { return &invoiceRepo{s: s} }

// WithinTx snapshots the store's maps, runs fn, and restores the
// pre-call snapshot if fn returns an error.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	s.mu.Lock()
	backupAccounts := cloneAccountMap(s.accounts)
	backupInvoices := cloneInvoiceMap(s.invoices)
	backupPaymentRefs := clonePaymentRefs(s.paymentRefs)
	s.mu.Unlock()
	s.outboxMu.Lock()
	backupOutbox := make(map[string]*outbox.Message, len(s.outbox))
	for k, v := range s.outbox {
		backupOutbox[k] = v
	}
	s.outboxMu.Unlock()

	tx := &memTx{s: s}
	err := fn(ctx, tx)
	if err != nil {
		s.mu.Lock()
		s.accounts = backupAccounts
		s.invoices = backupInvoices
		s.paymentRefs = backupPaymentRefs
		s.mu.Unlock()
		s.outboxMu.Lock()
		s.outbox = backupOutbox
		s.outboxMu.Unlock()
		return err
	}
	return nil
}

func cloneAccountMap(m map[string]*accountSnapshot) map[string]*accountSnapshot {
	out := make(map[string]*accountSnapshot, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneInvoiceMap(m map[string]*invoice.Invoice) map[string]*invoice.Invoice {
	out := make(map[string]*invoice.Invoice, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func clonePaymentRefs(m map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// memTx implements store.Tx against the same Store the transaction was
// opened on; rollback is handled by WithinTx restoring the snapshot.
type memTx struct{ s *Store }

func (t *memTx) Accounts() store.AccountRepository    { return &accountRepo{s: t.s} }
func (t *memTx) Invoices() store.InvoiceRepository    { return &invoiceRepo{s: t.s} }
func (t *memTx) Outbox() store.OutboxRepository       { return &outboxRepo{s: t.s} }
func (t *memTx) Numbering() store.NumberingRepository { return &numberingRepo{s: t.s} }

type accountRepo struct{ s *Store }

func (r *accountRepo) GetByID(ctx context.Context, acctID id.AccountID) (*account.Account, error) {
	acc, err := r.GetByIDWithLedgerEntries(ctx, acctID)
	if err != nil {
		return nil, err
	}
	return account.Rehydrate(acc.ID(), acc.TenantID(), acc.Name(), acc.Type(), acc.Status(),
		acc.Currency(), acc.CreatedAt(), acc.UpdatedAt(), nil), nil
}

func (r *accountRepo) GetByIDWithLedgerEntries(ctx context.Context, acctID id.AccountID) (*account.Account, error) {
	tc, err := tenantctx.From(ctx)
	if err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	snap, ok := r.s.accounts[acctKey(tc.TenantID, acctID)]
	if !ok {
		return nil, ledgererrors.New(ledgererrors.CodeAccountNotFound, "account "+acctID.String()+" not found")
	}
	return snap.toAccount(), nil
}

func (r *accountRepo) Exists(ctx context.Context, acctID id.AccountID) (bool, error) {
	tc, err := tenantctx.From(ctx)
	if err != nil {
		return false, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.accounts[acctKey(tc.TenantID, acctID)]
	return ok, nil
}

func (r *accountRepo) Add(ctx context.Context, acc *account.Account) error {
	tc, err := tenantctx.From(ctx)
	if err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := acctKey(tc.TenantID, acc.ID())
	if _, exists := r.s.accounts[key]; exists {
		return ledgererrors.New(ledgererrors.CodeAccountAlreadyExists, "account "+acc.ID().String()+" already exists")
	}
	if err := r.s.reservePaymentRefsLocked(acc.Entries()); err != nil {
		return err
	}
	r.s.accounts[key] = r.s.snapshotFromAccount(acc)
	return nil
}

func (r *accountRepo) Update(ctx context.Context, acc *account.Account) error {
	tc, err := tenantctx.From(ctx)
	if err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := acctKey(tc.TenantID, acc.ID())
	snap, ok := r.s.accounts[key]
	if !ok {
		return ledgererrors.New(ledgererrors.CodeAccountNotFound, "account "+acc.ID().String()+" not found")
	}

	pending := acc.PendingEntries()
	if err := r.s.reservePaymentRefsLocked(pending); err != nil {
		return err
	}

	merged := append(append([]*account.LedgerEntry{}, snap.entries...), pending...)
	r.s.accounts[key] = &accountSnapshot{
		tenantID:    snap.tenantID,
		id:          snap.id,
		name:        acc.Name(),
		accountType: snap.accountType,
		status:      acc.Status(),
		currency:    snap.currency,
		createdAt:   snap.createdAt,
		updatedAt:   acc.UpdatedAt(),
		entries:     merged,
	}
	return nil
}

// reservePaymentRefsLocked enforces global Payment source_reference_id
// uniqueness. Caller must hold s.mu.
func (s *Store) reservePaymentRefsLocked(entries []*account.LedgerEntry) error {
	for _, e := range entries {
		if e.SourceType() != account.SourcePayment {
			continue
		}
		if _, exists := s.paymentRefs[e.SourceReferenceID()]; exists {
			return ledgererrors.New(ledgererrors.CodeLedgerDuplicatePayment,
				"payment reference "+e.SourceReferenceID()+" already recorded")
		}
	}
	for _, e := range entries {
		if e.SourceType() == account.SourcePayment {
			s.paymentRefs[e.SourceReferenceID()] = struct{}{}
		}
	}
	return nil
}

type invoiceRepo struct{ s *Store }

func (r *invoiceRepo) GetByID(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	return r.GetByIDWithLineItems(ctx, invID)
}

func (r *invoiceRepo) GetByIDWithLineItems(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	tc, err := tenantctx.From(ctx)
	if err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, ok := r.s.invoices[invKey(tc.TenantID, invID)]
	if !ok {
		return nil, ledgererrors.New(ledgererrors.CodeInvoiceNotFound, "invoice "+invID.String()+" not found")
	}
	return inv, nil
}

func (r *invoiceRepo) GetByInvoiceNumber(ctx context.Context, invoiceNumber string) (*invoice.Invoice, error) {
	tc, err := tenantctx.From(ctx)
	if err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, inv := range r.s.invoices {
		if inv.TenantID() == tc.TenantID && inv.InvoiceNumber() == invoiceNumber {
			return inv, nil
		}
	}
	return nil, ledgererrors.New(ledgererrors.CodeInvoiceNotFound, "invoice "+invoiceNumber+" not found")
}

func (r *invoiceRepo) GetByAccountID(ctx context.Context, acctID id.AccountID) ([]*invoice.Invoice, error) {
	tc, err := tenantctx.From(ctx)
	if err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*invoice.Invoice
	for _, inv := range r.s.invoices {
		if inv.TenantID() == tc.TenantID && inv.AccountID() == acctID {
			out = append(out, inv)
		}
	}
	sortInvoices(out)
	return out, nil
}

func (r *invoiceRepo) Search(ctx context.Context, opts store.SearchInvoicesOpts) ([]*invoice.Invoice, error) {
	tc, err := tenantctx.From(ctx)
	if err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var matches []*invoice.Invoice
	for _, inv := range r.s.invoices {
		if inv.TenantID() != tc.TenantID {
			continue
		}
		if opts.AccountID != nil && inv.AccountID() != *opts.AccountID {
			continue
		}
		if opts.Status != nil && inv.Status() != *opts.Status {
			continue
		}
		if opts.Start != nil && inv.PeriodEnd().Before(*opts.Start) {
			continue
		}
		if opts.End != nil && !inv.PeriodStart().Before(*opts.End) {
			continue
		}
		matches = append(matches, inv)
	}
	sortInvoices(matches)

	return paginate(matches, opts.Page, opts.PageSize), nil
}

func sortInvoices(invoices []*invoice.Invoice) {
	sort.Slice(invoices, func(i, j int) bool {
		return invoices[i].InvoiceNumber() < invoices[j].InvoiceNumber()
	})
}

func paginate(invoices []*invoice.Invoice, page, pageSize int) []*invoice.Invoice {
	if pageSize <= 0 {
		return invoices
	}
	start := page * pageSize
	if start >= len(invoices) {
		return nil
	}
	end := start + pageSize
	if end > len(invoices) {
		end = len(invoices)
	}
	return invoices[start:end]
}

func (r *invoiceRepo) Add(ctx context.Context, inv *invoice.Invoice) error {
	tc, err := tenantctx.From(ctx)
	if err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := invKey(tc.TenantID, inv.ID())
	if _, exists := r.s.invoices[key]; exists {
		return ledgererrors.New(ledgererrors.CodeInvoiceAlreadyExists, "invoice "+inv.ID().String()+" already exists")
	}
	for _, existing := range r.s.invoices {
		if existing.TenantID() == tc.TenantID && existing.InvoiceNumber() == inv.InvoiceNumber() {
			return ledgererrors.New(ledgererrors.CodeInvoiceAlreadyExists,
				"invoice number "+inv.InvoiceNumber()+" already used for this tenant")
		}
	}
	r.s.invoices[key] = inv
	return nil
}

func (r *invoiceRepo) Update(ctx context.Context, inv *invoice.Invoice) error {
	tc, err := tenantctx.From(ctx)
	if err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := invKey(tc.TenantID, inv.ID())
	if _, exists := r.s.invoices[key]; !exists {
		return ledgererrors.New(ledgererrors.CodeInvoiceNotFound, "invoice "+inv.ID().String()+" not found")
	}
	r.s.invoices[key] = inv
	return nil
}

type outboxRepo struct{ s *Store }

func (r *outboxRepo) Insert(_ context.Context, msg *outbox.Message) error {
	r.s.outboxMu.Lock()
	defer r.s.outboxMu.Unlock()
	r.s.outbox[msg.ID.String()] = msg
	return nil
}

func (r *outboxRepo) ListUnprocessed(_ context.Context, limit int) ([]*outbox.Message, error) {
	r.s.outboxMu.Lock()
	defer r.s.outboxMu.Unlock()

	var out []*outbox.Message
	for _, m := range r.s.outbox {
		if !m.IsProcessed() {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAtUTC.Before(out[j].OccurredAtUTC) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *outboxRepo) MarkProcessed(_ context.Context, msgID id.OutboxID, processedAt time.Time) error {
	r.s.outboxMu.Lock()
	defer r.s.outboxMu.Unlock()
	m, ok := r.s.outbox[msgID.String()]
	if !ok {
		return ledgererrors.New(ledgererrors.CodeInfrastructureFailure, "outbox message not found")
	}
	at := processedAt
	m.ProcessedAtUTC = &at
	return nil
}

func (r *outboxRepo) IncrementRetry(_ context.Context, msgID id.OutboxID) error {
	r.s.outboxMu.Lock()
	defer r.s.outboxMu.Unlock()
	m, ok := r.s.outbox[msgID.String()]
	if !ok {
		return ledgererrors.New(ledgererrors.CodeInfrastructureFailure, "outbox message not found")
	}
	m.RetryCount++
	return nil
}

type numberingRepo struct{ s *Store }

func (r *numberingRepo) MaxInvoiceNumber(ctx context.Context) (string, error) {
	tc, err := tenantctx.From(ctx)
	if err != nil {
		return "", err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	max := ""
	for _, inv := range r.s.invoices {
		if inv.TenantID() != tc.TenantID {
			continue
		}
		if inv.InvoiceNumber() > max {
			max = inv.InvoiceNumber()
		}
	}
	return max, nil
}
