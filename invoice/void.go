package invoice

import (
	"fmt"
	"time"

	"github.com/rideledger/core/ledgererrors"
)

// Void transitions the invoice from Generated to Voided, its only
// permitted post-generation transition (spec §3: "once Generated, only
// a status transition to Voided is permitted — no field edits"). Fails
// with ledgererrors.ErrInvoiceImmutable if the invoice is already
// Voided.
func (inv *Invoice) Void(reason, by string) (*InvoiceVoidedEvent, error) {
	if inv.status == StatusVoided {
		return nil, ledgererrors.New(ledgererrors.CodeInvoiceImmutable,
			fmt.Sprintf("invoice %s is already voided", inv.invoiceNumber))
	}

	now := time.Now().UTC()
	inv.status = StatusVoided
	inv.voidedAt = &now
	inv.voidReason = reason

	return &InvoiceVoidedEvent{
		InvoiceID:     inv.id,
		TenantID:      inv.tenantID,
		InvoiceNumber: inv.invoiceNumber,
		Reason:        reason,
		By:            by,
		OccurredAt:    now,
	}, nil
}
