package id

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIDs(t *testing.T) {
	tests := []struct {
		name    string
		newFunc func() string
		prefix  string
	}{
		{"LedgerEntryID", func() string { return NewLedgerEntryID().String() }, string(PrefixLedgerEntry)},
		{"InvoiceID", func() string { return NewInvoiceID().String() }, string(PrefixInvoice)},
		{"LineItemID", func() string { return NewLineItemID().String() }, string(PrefixLineItem)},
		{"OutboxID", func() string { return NewOutboxID().String() }, string(PrefixOutbox)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			generated := tt.newFunc()

			assert.True(t, strings.HasPrefix(generated, tt.prefix+"_"))

			parts := strings.Split(generated, "_")
			require.Len(t, parts, 2)
			assert.Len(t, parts[1], 26)
		})
	}
}

func TestParseIDs(t *testing.T) {
	tests := []struct {
		name      string
		parseFunc func(string) (ID, error)
		validID   string
		invalidID string
		wrongID   string
	}{
		{
			"ParseInvoiceID",
			ParseInvoiceID,
			"inv_01h2xcejqtf2nbrexx3vqjhp41",
			"inv_invalid",
			"li_01h2xcejqtf2nbrexx3vqjhp41",
		},
		{
			"ParseLineItemID",
			ParseLineItemID,
			"li_01h2xcejqtf2nbrexx3vqjhp41",
			"li_invalid",
			"inv_01h2xcejqtf2nbrexx3vqjhp41",
		},
		{
			"ParseOutboxID",
			ParseOutboxID,
			"obx_01h2xcejqtf2nbrexx3vqjhp41",
			"obx_invalid",
			"inv_01h2xcejqtf2nbrexx3vqjhp41",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed, err := tt.parseFunc(tt.validID)
			require.NoError(t, err)
			assert.Equal(t, tt.validID, parsed.String())

			_, err = tt.parseFunc(tt.invalidID)
			assert.Error(t, err)

			_, err = tt.parseFunc(tt.wrongID)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "expected prefix")
		})
	}
}

func TestParseAny(t *testing.T) {
	validIDs := []string{
		"inv_01h2xcejqtf2nbrexx3vqjhp41",
		"li_01h2xcejqtf2nbrexx3vqjhp41",
		"entr_01h2xcejqtf2nbrexx3vqjhp41",
		"obx_01h2xcejqtf2nbrexx3vqjhp41",
	}

	for _, raw := range validIDs {
		parsed, err := ParseAny(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, parsed.String())
	}

	_, err := ParseAny("invalid_id")
	assert.Error(t, err)
}

func TestIDUniqueness(t *testing.T) {
	const count = 100
	seen := make(map[string]bool, count)

	for i := 0; i < count; i++ {
		generated := NewInvoiceID().String()
		assert.False(t, seen[generated], "duplicate id generated: %s", generated)
		seen[generated] = true
	}
	assert.Len(t, seen, count)
}

func TestAccountIDRejectsNil(t *testing.T) {
	_, err := NewAccountID(uuid.Nil)
	assert.Error(t, err)

	acc, err := NewAccountID(uuid.New())
	require.NoError(t, err)
	assert.False(t, acc.IsNil())
}

func TestAccountIDRoundTrip(t *testing.T) {
	acc, err := NewAccountID(uuid.New())
	require.NoError(t, err)

	text, err := acc.MarshalText()
	require.NoError(t, err)

	var decoded AccountID
	require.NoError(t, decoded.UnmarshalText(text))
	assert.Equal(t, acc.String(), decoded.String())
}

func BenchmarkNewInvoiceID(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = NewInvoiceID()
	}
}
