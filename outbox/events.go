package outbox

import (
	"encoding/json"
	"fmt"

	"github.com/rideledger/core/account"
	"github.com/rideledger/core/invoice"
)

// EventType names the six domain events RideLedger's aggregates emit.
// Each has a matching constructor below that serializes it into a
// Message payload.
type EventType string

const (
	EventAccountCreated     EventType = "AccountCreated"
	EventChargeRecorded     EventType = "ChargeRecorded"
	EventPaymentReceived    EventType = "PaymentReceived"
	EventAccountDeactivated EventType = "AccountDeactivated"
	EventInvoiceGenerated   EventType = "InvoiceGenerated"
	EventInvoiceVoided      EventType = "InvoiceVoided"
)

// FromAccountCreated builds the outbox Message for an AccountCreatedEvent.
func FromAccountCreated(ev *account.AccountCreatedEvent) (*Message, error) {
	payload, err := json.Marshal(struct {
		TenantID    string `json:"tenant_id"`
		AccountID   string `json:"account_id"`
		Name        string `json:"name"`
		AccountType string `json:"account_type"`
		Currency    string `json:"currency"`
	}{
		TenantID:    ev.TenantID,
		AccountID:   ev.AccountID.String(),
		Name:        ev.Name,
		AccountType: string(ev.AccountType),
		Currency:    ev.Currency,
	})
	if err != nil {
		return nil, fmt.Errorf("outbox: marshal AccountCreatedEvent: %w", err)
	}
	return NewMessage(ev.TenantID, string(EventAccountCreated), payload), nil
}

// FromChargeRecorded builds the outbox Message for a ChargeRecordedEvent.
func FromChargeRecorded(ev *account.ChargeRecordedEvent) (*Message, error) {
	payload, err := json.Marshal(struct {
		TenantID      string `json:"tenant_id"`
		AccountID     string `json:"account_id"`
		RideID        string `json:"ride_id"`
		Amount        string `json:"amount"`
		Currency      string `json:"currency"`
		ServiceDate   string `json:"service_date"`
		DebitEntryID  string `json:"debit_entry_id"`
		CreditEntryID string `json:"credit_entry_id"`
	}{
		TenantID:      ev.TenantID,
		AccountID:     ev.AccountID.String(),
		RideID:        ev.RideID,
		Amount:        ev.Amount.Decimal().String(),
		Currency:      ev.Amount.Currency(),
		ServiceDate:   ev.ServiceDate.UTC().Format("2006-01-02"),
		DebitEntryID:  ev.DebitEntryID.String(),
		CreditEntryID: ev.CreditEntryID.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("outbox: marshal ChargeRecordedEvent: %w", err)
	}
	return NewMessage(ev.TenantID, string(EventChargeRecorded), payload), nil
}

// FromPaymentReceived builds the outbox Message for a PaymentReceivedEvent.
func FromPaymentReceived(ev *account.PaymentReceivedEvent) (*Message, error) {
	payload, err := json.Marshal(struct {
		TenantID           string `json:"tenant_id"`
		AccountID          string `json:"account_id"`
		PaymentReferenceID string `json:"payment_reference_id"`
		Amount             string `json:"amount"`
		Currency           string `json:"currency"`
		PaymentDate        string `json:"payment_date"`
		DebitEntryID       string `json:"debit_entry_id"`
		CreditEntryID      string `json:"credit_entry_id"`
	}{
		TenantID:           ev.TenantID,
		AccountID:          ev.AccountID.String(),
		PaymentReferenceID: ev.PaymentReferenceID,
		Amount:             ev.Amount.Decimal().String(),
		Currency:           ev.Amount.Currency(),
		PaymentDate:        ev.PaymentDate.UTC().Format("2006-01-02"),
		DebitEntryID:       ev.DebitEntryID.String(),
		CreditEntryID:      ev.CreditEntryID.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("outbox: marshal PaymentReceivedEvent: %w", err)
	}
	return NewMessage(ev.TenantID, string(EventPaymentReceived), payload), nil
}

// FromAccountDeactivated builds the outbox Message for an
// AccountDeactivatedEvent.
func FromAccountDeactivated(ev *account.AccountDeactivatedEvent) (*Message, error) {
	payload, err := json.Marshal(struct {
		TenantID  string `json:"tenant_id"`
		AccountID string `json:"account_id"`
		Reason    string `json:"reason"`
		By        string `json:"by"`
	}{
		TenantID:  ev.TenantID,
		AccountID: ev.AccountID.String(),
		Reason:    ev.Reason,
		By:        ev.By,
	})
	if err != nil {
		return nil, fmt.Errorf("outbox: marshal AccountDeactivatedEvent: %w", err)
	}
	return NewMessage(ev.TenantID, string(EventAccountDeactivated), payload), nil
}

// FromInvoiceGenerated builds the outbox Message for an
// InvoiceGeneratedEvent.
func FromInvoiceGenerated(ev *invoice.InvoiceGeneratedEvent) (*Message, error) {
	payload, err := json.Marshal(struct {
		TenantID             string `json:"tenant_id"`
		InvoiceID            string `json:"invoice_id"`
		AccountID            string `json:"account_id"`
		InvoiceNumber        string `json:"invoice_number"`
		Subtotal             string `json:"subtotal"`
		TotalPaymentsApplied string `json:"total_payments_applied"`
		OutstandingBalance   string `json:"outstanding_balance"`
		Currency             string `json:"currency"`
	}{
		TenantID:             ev.TenantID,
		InvoiceID:            ev.InvoiceID.String(),
		AccountID:            ev.AccountID.String(),
		InvoiceNumber:        ev.InvoiceNumber,
		Subtotal:             ev.Subtotal.Decimal().String(),
		TotalPaymentsApplied: ev.TotalPaymentsApplied.Decimal().String(),
		OutstandingBalance:   ev.OutstandingBalance.Decimal().String(),
		Currency:             ev.Subtotal.Currency(),
	})
	if err != nil {
		return nil, fmt.Errorf("outbox: marshal InvoiceGeneratedEvent: %w", err)
	}
	return NewMessage(ev.TenantID, string(EventInvoiceGenerated), payload), nil
}

// FromInvoiceVoided builds the outbox Message for an InvoiceVoidedEvent.
func FromInvoiceVoided(ev *invoice.InvoiceVoidedEvent) (*Message, error) {
	payload, err := json.Marshal(struct {
		TenantID      string `json:"tenant_id"`
		InvoiceID     string `json:"invoice_id"`
		InvoiceNumber string `json:"invoice_number"`
		Reason        string `json:"reason"`
		By            string `json:"by"`
	}{
		TenantID:      ev.TenantID,
		InvoiceID:     ev.InvoiceID.String(),
		InvoiceNumber: ev.InvoiceNumber,
		Reason:        ev.Reason,
		By:            ev.By,
	})
	if err != nil {
		return nil, fmt.Errorf("outbox: marshal InvoiceVoidedEvent: %w", err)
	}
	return NewMessage(ev.TenantID, string(EventInvoiceVoided), payload), nil
}
