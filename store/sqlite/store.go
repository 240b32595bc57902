// Package sqlite implements store.Store over SQLite via Grove ORM, for
// single-node deployments and local development (spec §1: Postgres is
// the primary target, SQLite a lighter-weight alternative with the same
// schema shape).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/rideledger/core/account"
	"github.com/rideledger/core/id"
	"github.com/rideledger/core/invoice"
	"github.com/rideledger/core/ledgererrors"
	"github.com/rideledger/core/numbering"
	"github.com/rideledger/core/outbox"
	rlstore "github.com/rideledger/core/store"
	"github.com/rideledger/core/tenantctx"
)

// compile-time interface check
var _ rlstore.Store = (*Store)(nil)

// Store implements rlstore.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove
// orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("rideledger/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("rideledger/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Accounts returns a non-transactional handle for account queries.
func (s *Store) Accounts() rlstore.AccountRepository {
	return &accountRepo{q: s.sdb}
}

// Invoices returns a non-transactional handle for invoice queries.
func (s *Store) Invoices() rlstore.InvoiceRepository {
	return &invoiceRepo{q: s.sdb}
}

// WithinTx runs fn inside a single database transaction, committing on
// a nil return and rolling back on error or panic.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx rlstore.Tx) error) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, gtx *grove.Tx) error {
		tx := &txHandle{q: gtx}
		return fn(ctx, tx)
	})
}

// queryable is the subset of grove's query-builder surface that both
// *sqlitedriver.SqliteDB (non-transactional) and *grove.Tx (in-flight
// transaction) implement identically, mirroring how bun.IDB lets a
// repository accept either a *bun.DB or a *bun.Tx. The teacher's own
// store packages never run more than one statement per call, so they
// never needed this seam — RideLedger's outbox and invoice-generation
// flows do.
type queryable interface {
	NewSelect(model any) grove.SelectQuery
	NewInsert(model any) grove.InsertQuery
	NewUpdate(model any) grove.UpdateQuery
	NewDelete(model any) grove.DeleteQuery
}

// txHandle implements rlstore.Tx over a single in-flight grove.Tx.
type txHandle struct {
	q *grove.Tx
}

func (t *txHandle) Accounts() rlstore.AccountRepository    { return &accountRepo{q: t.q} }
func (t *txHandle) Invoices() rlstore.InvoiceRepository    { return &invoiceRepo{q: t.q} }
func (t *txHandle) Outbox() rlstore.OutboxRepository       { return &outboxRepo{q: t.q} }
func (t *txHandle) Numbering() rlstore.NumberingRepository { return &numberingRepo{q: t.q} }

// ==================== Account repository ====================

type accountRepo struct {
	q queryable
}

func (r *accountRepo) GetByID(ctx context.Context, acctID id.AccountID) (*account.Account, error) {
	return r.load(ctx, acctID, false)
}

func (r *accountRepo) GetByIDWithLedgerEntries(ctx context.Context, acctID id.AccountID) (*account.Account, error) {
	return r.load(ctx, acctID, true)
}

func (r *accountRepo) load(ctx context.Context, acctID id.AccountID, withEntries bool) (*account.Account, error) {
	tc, err := tenantctx.From(ctx)
	if err != nil {
		return nil, err
	}

	m := new(accountModel)
	err = r.q.NewSelect(m).
		Where("id = ?", acctID.String()).
		Where("tenant_id = ?", tc.TenantID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, ledgererrors.New(ledgererrors.CodeAccountNotFound,
				fmt.Sprintf("account %s not found", acctID.String()))
		}
		return nil, &ledgererrors.InfrastructureError{Op: "sqlite.Accounts.GetByID", Cause: err}
	}

	var entries []*account.LedgerEntry
	if withEntries {
		entries, err = r.loadEntries(ctx, acctID, tc.TenantID)
		if err != nil {
			return nil, err
		}
	}
	return fromAccountModel(m, entries)
}

func (r *accountRepo) loadEntries(ctx context.Context, acctID id.AccountID, tenantID string) ([]*account.LedgerEntry, error) {
	var rows []ledgerEntryModel
	err := r.q.NewSelect(&rows).
		Where("account_id = ?", acctID.String()).
		Where("tenant_id = ?", tenantID).
		OrderBy("transaction_date ASC", "created_at_utc ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, &ledgererrors.InfrastructureError{Op: "sqlite.Accounts.loadEntries", Cause: err}
	}
	out := make([]*account.LedgerEntry, len(rows))
	for i := range rows {
		entry, err := fromLedgerEntryModel(&rows[i])
		if err != nil {
			return nil, &ledgererrors.InfrastructureError{Op: "sqlite.Accounts.loadEntries", Cause: err}
		}
		out[i] = entry
	}
	return out, nil
}

func (r *accountRepo) Exists(ctx context.Context, acctID id.AccountID) (bool, error) {
	tc, err := tenantctx.From(ctx)
	if err != nil {
		return false, err
	}
	count, err := r.q.NewSelect(new(accountModel)).
		Where("id = ?", acctID.String()).
		Where("tenant_id = ?", tc.TenantID).
		Count(ctx)
	if err != nil {
		return false, &ledgererrors.InfrastructureError{Op: "sqlite.Accounts.Exists", Cause: err}
	}
	return count > 0, nil
}

func (r *accountRepo) Add(ctx context.Context, acc *account.Account) error {
	m := toAccountModel(acc)
	if _, err := r.q.NewInsert(m).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return ledgererrors.New(ledgererrors.CodeAccountAlreadyExists,
				fmt.Sprintf("account %s already exists", acc.ID().String()))
		}
		return &ledgererrors.InfrastructureError{Op: "sqlite.Accounts.Add", Cause: err}
	}
	return r.insertEntries(ctx, acc.PendingEntries())
}

func (r *accountRepo) Update(ctx context.Context, acc *account.Account) error {
	m := toAccountModel(acc)
	_, err := r.q.NewUpdate(m).
		Set("status = ?", m.Status).
		Set("updated_at = ?", m.UpdatedAt).
		Where("id = ?", m.ID).
		Where("tenant_id = ?", m.TenantID).
		Exec(ctx)
	if err != nil {
		return &ledgererrors.InfrastructureError{Op: "sqlite.Accounts.Update", Cause: err}
	}
	return r.insertEntries(ctx, acc.PendingEntries())
}

func (r *accountRepo) insertEntries(ctx context.Context, entries []*account.LedgerEntry) error {
	for _, e := range entries {
		em, err := toLedgerEntryModel(e)
		if err != nil {
			return &ledgererrors.InfrastructureError{Op: "sqlite.Accounts.insertEntries", Cause: err}
		}
		if _, err := r.q.NewInsert(em).Exec(ctx); err != nil {
			if isUniqueViolation(err) {
				if e.SourceType() == account.SourceRide {
					return ledgererrors.New(ledgererrors.CodeLedgerDuplicateCharge,
						fmt.Sprintf("ride %s already charged on this account", e.SourceReferenceID()))
				}
				return ledgererrors.New(ledgererrors.CodeLedgerDuplicatePayment,
					fmt.Sprintf("payment %s already recorded", e.SourceReferenceID()))
			}
			return &ledgererrors.InfrastructureError{Op: "sqlite.Accounts.insertEntries", Cause: err}
		}
	}
	return nil
}

// ==================== Invoice repository ====================

type invoiceRepo struct {
	q queryable
}

func (r *invoiceRepo) GetByID(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	return r.load(ctx, "id = ?", invID.String(), false)
}

func (r *invoiceRepo) GetByIDWithLineItems(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	return r.load(ctx, "id = ?", invID.String(), true)
}

func (r *invoiceRepo) GetByInvoiceNumber(ctx context.Context, invoiceNumber string) (*invoice.Invoice, error) {
	return r.load(ctx, "invoice_number = ?", invoiceNumber, true)
}

func (r *invoiceRepo) load(ctx context.Context, cond string, arg any, withLineItems bool) (*invoice.Invoice, error) {
	tc, err := tenantctx.From(ctx)
	if err != nil {
		return nil, err
	}

	m := new(invoiceModel)
	err = r.q.NewSelect(m).
		Where(cond, arg).
		Where("tenant_id = ?", tc.TenantID).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, ledgererrors.New(ledgererrors.CodeInvoiceNotFound, "invoice not found")
		}
		return nil, &ledgererrors.InfrastructureError{Op: "sqlite.Invoices.load", Cause: err}
	}

	var lineItems []invoice.LineItem
	if withLineItems {
		lineItems, err = r.loadLineItems(ctx, m.ID)
		if err != nil {
			return nil, err
		}
	}
	return fromInvoiceModel(m, lineItems)
}

func (r *invoiceRepo) loadLineItems(ctx context.Context, invoiceID string) ([]invoice.LineItem, error) {
	var rows []invoiceLineItemModel
	err := r.q.NewSelect(&rows).
		Where("invoice_id = ?", invoiceID).
		OrderBy("service_date ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, &ledgererrors.InfrastructureError{Op: "sqlite.Invoices.loadLineItems", Cause: err}
	}
	out := make([]invoice.LineItem, len(rows))
	for i := range rows {
		li, err := fromInvoiceLineItemModel(&rows[i])
		if err != nil {
			return nil, &ledgererrors.InfrastructureError{Op: "sqlite.Invoices.loadLineItems", Cause: err}
		}
		out[i] = li
	}
	return out, nil
}

func (r *invoiceRepo) GetByAccountID(ctx context.Context, acctID id.AccountID) ([]*invoice.Invoice, error) {
	tc, err := tenantctx.From(ctx)
	if err != nil {
		return nil, err
	}
	var rows []invoiceModel
	err = r.q.NewSelect(&rows).
		Where("account_id = ?", acctID.String()).
		Where("tenant_id = ?", tc.TenantID).
		OrderBy("period_start ASC").
		Scan(ctx)
	if err != nil {
		return nil, &ledgererrors.InfrastructureError{Op: "sqlite.Invoices.GetByAccountID", Cause: err}
	}
	return r.hydrateAll(ctx, rows)
}

func (r *invoiceRepo) Search(ctx context.Context, opts rlstore.SearchInvoicesOpts) ([]*invoice.Invoice, error) {
	tc, err := tenantctx.From(ctx)
	if err != nil {
		return nil, err
	}

	q := r.q.NewSelect(&[]invoiceModel{}).Where("tenant_id = ?", tc.TenantID)
	if opts.AccountID != nil {
		q = q.Where("account_id = ?", opts.AccountID.String())
	}
	if opts.Status != nil {
		q = q.Where("status = ?", string(*opts.Status))
	}
	if opts.Start != nil {
		q = q.Where("period_end > ?", *opts.Start)
	}
	if opts.End != nil {
		q = q.Where("period_start < ?", *opts.End)
	}

	page, pageSize := opts.Page, opts.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}

	var rows []invoiceModel
	err = q.OrderBy("period_start ASC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Scan(ctx, &rows)
	if err != nil {
		return nil, &ledgererrors.InfrastructureError{Op: "sqlite.Invoices.Search", Cause: err}
	}
	return r.hydrateAll(ctx, rows)
}

func (r *invoiceRepo) hydrateAll(ctx context.Context, rows []invoiceModel) ([]*invoice.Invoice, error) {
	out := make([]*invoice.Invoice, len(rows))
	for i := range rows {
		lineItems, err := r.loadLineItems(ctx, rows[i].ID)
		if err != nil {
			return nil, err
		}
		inv, err := fromInvoiceModel(&rows[i], lineItems)
		if err != nil {
			return nil, &ledgererrors.InfrastructureError{Op: "sqlite.Invoices.hydrateAll", Cause: err}
		}
		out[i] = inv
	}
	return out, nil
}

func (r *invoiceRepo) Add(ctx context.Context, inv *invoice.Invoice) error {
	m := toInvoiceModel(inv)
	if _, err := r.q.NewInsert(m).Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return ledgererrors.New(ledgererrors.CodeInvoiceAlreadyExists,
				fmt.Sprintf("invoice number %s already exists for this tenant", inv.InvoiceNumber()))
		}
		return &ledgererrors.InfrastructureError{Op: "sqlite.Invoices.Add", Cause: err}
	}
	for _, li := range inv.LineItems() {
		lim, err := toInvoiceLineItemModel(inv.ID(), inv.Currency(), li)
		if err != nil {
			return &ledgererrors.InfrastructureError{Op: "sqlite.Invoices.Add", Cause: err}
		}
		if _, err := r.q.NewInsert(lim).Exec(ctx); err != nil {
			return &ledgererrors.InfrastructureError{Op: "sqlite.Invoices.Add", Cause: err}
		}
	}
	return nil
}

func (r *invoiceRepo) Update(ctx context.Context, inv *invoice.Invoice) error {
	m := toInvoiceModel(inv)
	_, err := r.q.NewUpdate(m).
		Set("status = ?", m.Status).
		Set("voided_at = ?", m.VoidedAt).
		Set("void_reason = ?", m.VoidReason).
		Where("id = ?", m.ID).
		Where("tenant_id = ?", m.TenantID).
		Exec(ctx)
	if err != nil {
		return &ledgererrors.InfrastructureError{Op: "sqlite.Invoices.Update", Cause: err}
	}
	return nil
}

// ==================== Outbox repository ====================

type outboxRepo struct {
	q queryable
}

func (r *outboxRepo) Insert(ctx context.Context, msg *outbox.Message) error {
	m := toOutboxMessageModel(msg)
	if _, err := r.q.NewInsert(m).Exec(ctx); err != nil {
		return &ledgererrors.InfrastructureError{Op: "sqlite.Outbox.Insert", Cause: err}
	}
	return nil
}

func (r *outboxRepo) ListUnprocessed(ctx context.Context, limit int) ([]*outbox.Message, error) {
	var rows []outboxMessageModel
	err := r.q.NewSelect(&rows).
		Where("processed_at_utc IS NULL").
		OrderBy("occurred_at_utc ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, &ledgererrors.InfrastructureError{Op: "sqlite.Outbox.ListUnprocessed", Cause: err}
	}
	out := make([]*outbox.Message, len(rows))
	for i := range rows {
		msg, err := fromOutboxMessageModel(&rows[i])
		if err != nil {
			return nil, &ledgererrors.InfrastructureError{Op: "sqlite.Outbox.ListUnprocessed", Cause: err}
		}
		out[i] = msg
	}
	return out, nil
}

func (r *outboxRepo) MarkProcessed(ctx context.Context, msgID id.OutboxID, processedAt time.Time) error {
	_, err := r.q.NewUpdate(new(outboxMessageModel)).
		Set("processed_at_utc = ?", processedAt).
		Where("id = ?", msgID.String()).
		Exec(ctx)
	if err != nil {
		return &ledgererrors.InfrastructureError{Op: "sqlite.Outbox.MarkProcessed", Cause: err}
	}
	return nil
}

func (r *outboxRepo) IncrementRetry(ctx context.Context, msgID id.OutboxID) error {
	_, err := r.q.NewUpdate(new(outboxMessageModel)).
		Set("retry_count = retry_count + 1").
		Where("id = ?", msgID.String()).
		Exec(ctx)
	if err != nil {
		return &ledgererrors.InfrastructureError{Op: "sqlite.Outbox.IncrementRetry", Cause: err}
	}
	return nil
}

// ==================== Numbering repository ====================

type numberingRepo struct {
	q queryable
}

var _ numbering.Reader = (*numberingRepo)(nil)

func (r *numberingRepo) MaxInvoiceNumber(ctx context.Context) (string, error) {
	tc, err := tenantctx.From(ctx)
	if err != nil {
		return "", err
	}
	m := new(invoiceModel)
	err = r.q.NewSelect(m).
		Where("tenant_id = ?", tc.TenantID).
		OrderBy("invoice_number DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return "", nil
		}
		return "", &ledgererrors.InfrastructureError{Op: "sqlite.Numbering.MaxInvoiceNumber", Cause: err}
	}
	return m.InvoiceNumber, nil
}

// ==================== Helpers ====================

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	return grove.IsUniqueViolation(err)
}
