// Package numbering implements the per-tenant invoice numbering
// sequence: read-max-then-increment, formatted "INV-NNNNNN" (spec §4.7).
package numbering

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rideledger/core/ledgererrors"
)

// Prefix is the fixed textual prefix of every invoice number.
const Prefix = "INV-"

const sequenceWidth = 6

// Reader reads the tenant-scoped high-water mark this sequence
// increments from. A store implementation supplies this by reading the
// most-recently-created invoice for the current tenant (from
// tenantctx) within the same transaction as the invoice insert, so the
// database's partial-unique index on invoice_number is the real
// collision guard — this package only computes the next candidate.
type Reader interface {
	// MaxInvoiceNumber returns the current tenant's highest invoice
	// number, or "" if the tenant has no invoices yet.
	MaxInvoiceNumber(ctx context.Context) (string, error)
}

// GenerateNext returns the next invoice number for the current tenant.
// Callers are expected to retry GenerateNext plus the subsequent insert
// on a unique-index violation; gaps left by aborted transactions are
// accepted, never back-filled (spec §4.7).
func GenerateNext(ctx context.Context, r Reader) (string, error) {
	max, err := r.MaxInvoiceNumber(ctx)
	if err != nil {
		return "", &ledgererrors.InfrastructureError{Op: "numbering.GenerateNext", Cause: err}
	}

	next := 1
	if max != "" {
		seq, err := parseSequence(max)
		if err != nil {
			return "", &ledgererrors.InfrastructureError{Op: "numbering.GenerateNext", Cause: err}
		}
		next = seq + 1
	}

	return format(next), nil
}

func parseSequence(invoiceNumber string) (int, error) {
	if !strings.HasPrefix(invoiceNumber, Prefix) {
		return 0, fmt.Errorf("numbering: invoice number %q missing prefix %q", invoiceNumber, Prefix)
	}
	suffix := strings.TrimPrefix(invoiceNumber, Prefix)
	n, err := strconv.Atoi(suffix)
	if err != nil {
		return 0, fmt.Errorf("numbering: invoice number %q has non-numeric suffix: %w", invoiceNumber, err)
	}
	return n, nil
}

func format(n int) string {
	return fmt.Sprintf("%s%0*d", Prefix, sequenceWidth, n)
}
