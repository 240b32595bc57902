package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the RideLedger store
// (SQLite).
var Migrations = migrate.NewGroup("rideledger")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_rideledger_accounts",
			Version: "20260101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS rideledger_accounts (
    id           TEXT PRIMARY KEY,
    tenant_id    TEXT NOT NULL DEFAULT '',
    name         TEXT NOT NULL DEFAULT '',
    account_type TEXT NOT NULL DEFAULT 'Organization',
    status       TEXT NOT NULL DEFAULT 'Active',
    currency     TEXT NOT NULL DEFAULT '',
    created_at   TEXT NOT NULL DEFAULT (datetime('now')),
    updated_at   TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_rideledger_accounts_id_tenant ON rideledger_accounts (id, tenant_id);
CREATE INDEX IF NOT EXISTS idx_rideledger_accounts_tenant ON rideledger_accounts (tenant_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS rideledger_accounts`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_rideledger_ledger_entries",
			Version: "20260101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS rideledger_ledger_entries (
    id                  TEXT PRIMARY KEY,
    tenant_id           TEXT NOT NULL DEFAULT '',
    account_id          TEXT NOT NULL DEFAULT '',
    ledger_account      TEXT NOT NULL DEFAULT '',
    side                TEXT NOT NULL DEFAULT '',
    amount              TEXT NOT NULL DEFAULT '0',
    currency            TEXT NOT NULL DEFAULT '',
    transaction_date    TEXT NOT NULL DEFAULT (datetime('now')),
    source_type         TEXT NOT NULL DEFAULT '',
    source_reference_id TEXT NOT NULL DEFAULT '',
    metadata            TEXT NOT NULL DEFAULT '{}',
    created_at_utc      TEXT NOT NULL DEFAULT (datetime('now')),
    created_by          TEXT NOT NULL DEFAULT ''
);

-- a ride is charged at most once per account (spec §4.3 idempotency guard)
CREATE UNIQUE INDEX IF NOT EXISTS idx_rideledger_entries_ride_ref
    ON rideledger_ledger_entries (account_id, source_reference_id)
    WHERE source_type = 'Ride';

-- a payment reference id is globally unique, not tenant-scoped (spec §8)
CREATE UNIQUE INDEX IF NOT EXISTS idx_rideledger_entries_payment_ref
    ON rideledger_ledger_entries (source_reference_id)
    WHERE source_type = 'Payment';

CREATE INDEX IF NOT EXISTS idx_rideledger_entries_account_tenant ON rideledger_ledger_entries (account_id, tenant_id);
CREATE INDEX IF NOT EXISTS idx_rideledger_entries_account_txndate ON rideledger_ledger_entries (account_id, transaction_date);
CREATE INDEX IF NOT EXISTS idx_rideledger_entries_tenant ON rideledger_ledger_entries (tenant_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS rideledger_ledger_entries`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_rideledger_invoices",
			Version: "20260101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS rideledger_invoices (
    id                     TEXT PRIMARY KEY,
    tenant_id              TEXT NOT NULL DEFAULT '',
    account_id             TEXT NOT NULL DEFAULT '',
    invoice_number         TEXT NOT NULL DEFAULT '',
    billing_frequency      TEXT NOT NULL DEFAULT '',
    period_start           TEXT NOT NULL DEFAULT (datetime('now')),
    period_end             TEXT NOT NULL DEFAULT (datetime('now')),
    generated_at_utc       TEXT NOT NULL DEFAULT (datetime('now')),
    status                 TEXT NOT NULL DEFAULT 'Generated',
    subtotal               TEXT NOT NULL DEFAULT '0',
    total_payments_applied TEXT NOT NULL DEFAULT '0',
    outstanding_balance    TEXT NOT NULL DEFAULT '0',
    currency               TEXT NOT NULL DEFAULT '',
    voided_at              TEXT,
    void_reason            TEXT NOT NULL DEFAULT ''
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_rideledger_invoices_number_tenant ON rideledger_invoices (tenant_id, invoice_number);
CREATE INDEX IF NOT EXISTS idx_rideledger_invoices_account ON rideledger_invoices (account_id);
CREATE INDEX IF NOT EXISTS idx_rideledger_invoices_tenant ON rideledger_invoices (tenant_id);
CREATE INDEX IF NOT EXISTS idx_rideledger_invoices_period ON rideledger_invoices (account_id, period_start, period_end);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS rideledger_invoices`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_rideledger_invoice_line_items",
			Version: "20260101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS rideledger_invoice_line_items (
    id               TEXT PRIMARY KEY,
    invoice_id       TEXT NOT NULL DEFAULT '',
    ride_id          TEXT NOT NULL DEFAULT '',
    service_date     TEXT NOT NULL DEFAULT (datetime('now')),
    amount           TEXT NOT NULL DEFAULT '0',
    currency         TEXT NOT NULL DEFAULT '',
    description      TEXT NOT NULL DEFAULT '',
    ledger_entry_ids TEXT NOT NULL DEFAULT '[]'
);

CREATE INDEX IF NOT EXISTS idx_rideledger_line_items_invoice ON rideledger_invoice_line_items (invoice_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS rideledger_invoice_line_items`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_rideledger_outbox_messages",
			Version: "20260101000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS rideledger_outbox_messages (
    id               TEXT PRIMARY KEY,
    tenant_id        TEXT NOT NULL DEFAULT '',
    event_type       TEXT NOT NULL DEFAULT '',
    payload          TEXT NOT NULL DEFAULT '{}',
    occurred_at_utc  TEXT NOT NULL DEFAULT (datetime('now')),
    processed_at_utc TEXT,
    retry_count      INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_rideledger_outbox_unprocessed
    ON rideledger_outbox_messages (occurred_at_utc)
    WHERE processed_at_utc IS NULL;
CREATE INDEX IF NOT EXISTS idx_rideledger_outbox_tenant ON rideledger_outbox_messages (tenant_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS rideledger_outbox_messages`)
				return err
			},
		},
	)
}
