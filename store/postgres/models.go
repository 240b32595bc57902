package postgres

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xraph/grove"

	"github.com/rideledger/core/account"
	"github.com/rideledger/core/id"
	"github.com/rideledger/core/invoice"
	"github.com/rideledger/core/ledgererrors"
	"github.com/rideledger/core/outbox"
	"github.com/rideledger/core/types"
)

// ==================== Account models ====================

type accountModel struct {
	grove.BaseModel `grove:"table:rideledger_accounts"`

	ID          string    `grove:"id,pk"`
	TenantID    string    `grove:"tenant_id"`
	Name        string    `grove:"name"`
	AccountType string    `grove:"account_type"`
	Status      string    `grove:"status"`
	Currency    string    `grove:"currency"`
	CreatedAt   time.Time `grove:"created_at"`
	UpdatedAt   time.Time `grove:"updated_at"`
}

func toAccountModel(a *account.Account) *accountModel {
	return &accountModel{
		ID:          a.ID().String(),
		TenantID:    a.TenantID(),
		Name:        a.Name(),
		AccountType: string(a.Type()),
		Status:      string(a.Status()),
		Currency:    a.Currency(),
		CreatedAt:   a.CreatedAt(),
		UpdatedAt:   a.UpdatedAt(),
	}
}

func fromAccountModel(m *accountModel, entries []*account.LedgerEntry) (*account.Account, error) {
	acctID, err := id.ParseAccountID(m.ID)
	if err != nil {
		return nil, err
	}
	return account.Rehydrate(
		acctID,
		m.TenantID,
		m.Name,
		account.AccountType(m.AccountType),
		account.Status(m.Status),
		m.Currency,
		m.CreatedAt,
		m.UpdatedAt,
		entries,
	), nil
}

// ==================== Ledger entry models ====================

type ledgerEntryModel struct {
	grove.BaseModel `grove:"table:rideledger_ledger_entries"`

	ID                string          `grove:"id,pk"`
	TenantID          string          `grove:"tenant_id"`
	AccountID         string          `grove:"account_id"`
	LedgerAccount     string          `grove:"ledger_account"`
	Side              string          `grove:"side"`
	Amount            string          `grove:"amount"`
	Currency          string          `grove:"currency"`
	TransactionDate   time.Time       `grove:"transaction_date"`
	SourceType        string          `grove:"source_type"`
	SourceReferenceID string          `grove:"source_reference_id"`
	Metadata          json.RawMessage `grove:"metadata,type:jsonb"`
	CreatedAtUTC      time.Time       `grove:"created_at_utc"`
	CreatedBy         string          `grove:"created_by"`
}

func toLedgerEntryModel(e *account.LedgerEntry) (*ledgerEntryModel, error) {
	return &ledgerEntryModel{
		ID:                e.ID().String(),
		TenantID:          e.TenantID(),
		AccountID:         e.AccountID().String(),
		LedgerAccount:     string(e.LedgerAccount()),
		Side:              string(e.Side()),
		Amount:            e.Amount().Decimal().String(),
		Currency:          e.Amount().Currency(),
		TransactionDate:   e.TransactionDate(),
		SourceType:        string(e.SourceType()),
		SourceReferenceID: e.SourceReferenceID(),
		Metadata:          e.Metadata(),
		CreatedAtUTC:      e.CreatedAtUTC(),
		CreatedBy:         e.CreatedBy(),
	}, nil
}

func fromLedgerEntryModel(m *ledgerEntryModel) (*account.LedgerEntry, error) {
	acctID, err := id.ParseAccountID(m.AccountID)
	if err != nil {
		return nil, err
	}
	entryID, err := id.ParseLedgerEntryID(m.ID)
	if err != nil {
		return nil, err
	}
	amt, err := types.New(mustDecimal(m.Amount), m.Currency)
	if err != nil {
		return nil, err
	}
	return account.RehydrateLedgerEntry(
		entryID,
		m.TenantID,
		acctID,
		account.LedgerAccountKind(m.LedgerAccount),
		account.EntrySide(m.Side),
		amt,
		m.TransactionDate,
		account.SourceType(m.SourceType),
		m.SourceReferenceID,
		m.Metadata,
		m.CreatedAtUTC,
		m.CreatedBy,
	), nil
}

// ==================== Invoice models ====================

type invoiceModel struct {
	grove.BaseModel `grove:"table:rideledger_invoices"`

	ID                   string     `grove:"id,pk"`
	TenantID             string     `grove:"tenant_id"`
	AccountID            string     `grove:"account_id"`
	InvoiceNumber        string     `grove:"invoice_number"`
	BillingFrequency     string     `grove:"billing_frequency"`
	PeriodStart          time.Time  `grove:"period_start"`
	PeriodEnd            time.Time  `grove:"period_end"`
	GeneratedAtUTC       time.Time  `grove:"generated_at_utc"`
	Status               string     `grove:"status"`
	Subtotal             string     `grove:"subtotal"`
	TotalPaymentsApplied string     `grove:"total_payments_applied"`
	OutstandingBalance   string     `grove:"outstanding_balance"`
	Currency             string     `grove:"currency"`
	VoidedAt             *time.Time `grove:"voided_at"`
	VoidReason           string     `grove:"void_reason"`
}

func toInvoiceModel(inv *invoice.Invoice) *invoiceModel {
	return &invoiceModel{
		ID:                   inv.ID().String(),
		TenantID:             inv.TenantID(),
		AccountID:            inv.AccountID().String(),
		InvoiceNumber:        inv.InvoiceNumber(),
		BillingFrequency:     string(inv.BillingFrequency()),
		PeriodStart:          inv.PeriodStart(),
		PeriodEnd:            inv.PeriodEnd(),
		GeneratedAtUTC:       inv.GeneratedAtUTC(),
		Status:               string(inv.Status()),
		Subtotal:             inv.Subtotal().Decimal().String(),
		TotalPaymentsApplied: inv.TotalPaymentsApplied().Decimal().String(),
		OutstandingBalance:   inv.OutstandingBalance().Decimal().String(),
		Currency:             inv.Currency(),
		VoidedAt:             inv.VoidedAt(),
		VoidReason:           inv.VoidReason(),
	}
}

func fromInvoiceModel(m *invoiceModel, lineItems []invoice.LineItem) (*invoice.Invoice, error) {
	invID, err := id.ParseInvoiceID(m.ID)
	if err != nil {
		return nil, err
	}
	acctID, err := id.ParseAccountID(m.AccountID)
	if err != nil {
		return nil, err
	}
	subtotal, err := types.New(mustDecimal(m.Subtotal), m.Currency)
	if err != nil {
		return nil, err
	}
	paid, err := types.New(mustDecimal(m.TotalPaymentsApplied), m.Currency)
	if err != nil {
		return nil, err
	}
	outstanding, err := types.New(mustDecimal(m.OutstandingBalance), m.Currency)
	if err != nil {
		return nil, err
	}
	return invoice.Rehydrate(
		invID,
		m.TenantID,
		acctID,
		m.InvoiceNumber,
		invoice.BillingFrequency(m.BillingFrequency),
		m.PeriodStart, m.PeriodEnd, m.GeneratedAtUTC,
		invoice.Status(m.Status),
		subtotal, paid, outstanding,
		m.Currency,
		lineItems,
		m.VoidedAt,
		m.VoidReason,
	), nil
}

// ==================== Invoice line item models ====================

type invoiceLineItemModel struct {
	grove.BaseModel `grove:"table:rideledger_invoice_line_items"`

	ID             string          `grove:"id,pk"`
	InvoiceID      string          `grove:"invoice_id"`
	RideID         string          `grove:"ride_id"`
	ServiceDate    time.Time       `grove:"service_date"`
	Amount         string          `grove:"amount"`
	Currency       string          `grove:"currency"`
	Description    string          `grove:"description"`
	LedgerEntryIDs json.RawMessage `grove:"ledger_entry_ids,type:jsonb"`
}

func toInvoiceLineItemModel(invID id.InvoiceID, currency string, li invoice.LineItem) (*invoiceLineItemModel, error) {
	ids := make([]string, len(li.LedgerEntryIDs))
	for i, eid := range li.LedgerEntryIDs {
		ids[i] = eid.String()
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}
	return &invoiceLineItemModel{
		ID:             li.ID.String(),
		InvoiceID:      invID.String(),
		RideID:         li.RideID,
		ServiceDate:    li.ServiceDate,
		Amount:         li.Amount.Decimal().String(),
		Currency:       currency,
		Description:    li.Description,
		LedgerEntryIDs: raw,
	}, nil
}

func fromInvoiceLineItemModel(m *invoiceLineItemModel) (invoice.LineItem, error) {
	liID, err := id.ParseLineItemID(m.ID)
	if err != nil {
		return invoice.LineItem{}, err
	}
	invID, err := id.ParseInvoiceID(m.InvoiceID)
	if err != nil {
		return invoice.LineItem{}, err
	}
	amt, err := types.New(mustDecimal(m.Amount), m.Currency)
	if err != nil {
		return invoice.LineItem{}, err
	}
	var rawIDs []string
	if len(m.LedgerEntryIDs) > 0 {
		if err := json.Unmarshal(m.LedgerEntryIDs, &rawIDs); err != nil {
			return invoice.LineItem{}, err
		}
	}
	entryIDs := make([]id.LedgerEntryID, len(rawIDs))
	for i, s := range rawIDs {
		parsed, err := id.ParseLedgerEntryID(s)
		if err != nil {
			return invoice.LineItem{}, err
		}
		entryIDs[i] = parsed
	}
	return invoice.LineItem{
		ID:             liID,
		InvoiceID:      invID,
		RideID:         m.RideID,
		ServiceDate:    m.ServiceDate,
		Amount:         amt,
		Description:    m.Description,
		LedgerEntryIDs: entryIDs,
	}, nil
}

// ==================== Outbox message models ====================

type outboxMessageModel struct {
	grove.BaseModel `grove:"table:rideledger_outbox_messages"`

	ID             string          `grove:"id,pk"`
	TenantID       string          `grove:"tenant_id"`
	EventType      string          `grove:"event_type"`
	Payload        json.RawMessage `grove:"payload,type:jsonb"`
	OccurredAtUTC  time.Time       `grove:"occurred_at_utc"`
	ProcessedAtUTC *time.Time      `grove:"processed_at_utc"`
	RetryCount     int             `grove:"retry_count"`
}

func toOutboxMessageModel(msg *outbox.Message) *outboxMessageModel {
	return &outboxMessageModel{
		ID:             msg.ID.String(),
		TenantID:       msg.TenantID,
		EventType:      msg.EventType,
		Payload:        msg.Payload,
		OccurredAtUTC:  msg.OccurredAtUTC,
		ProcessedAtUTC: msg.ProcessedAtUTC,
		RetryCount:     msg.RetryCount,
	}
}

func fromOutboxMessageModel(m *outboxMessageModel) (*outbox.Message, error) {
	msgID, err := id.ParseOutboxID(m.ID)
	if err != nil {
		return nil, err
	}
	return &outbox.Message{
		ID:             msgID,
		TenantID:       m.TenantID,
		EventType:      m.EventType,
		Payload:        m.Payload,
		OccurredAtUTC:  m.OccurredAtUTC,
		ProcessedAtUTC: m.ProcessedAtUTC,
		RetryCount:     m.RetryCount,
	}, nil
}

// mustDecimal parses a stored amount string. A stored amount that fails
// to parse indicates corrupted data, not a caller error, so this panics
// rather than threading a parse error through every model converter.
func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(&ledgererrors.InfrastructureError{Op: "postgres.mustDecimal", Cause: err})
	}
	return d
}
