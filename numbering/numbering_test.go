package numbering

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	max string
	err error
}

func (f fakeReader) MaxInvoiceNumber(ctx context.Context) (string, error) { return f.max, f.err }

func TestGenerateNextStartsAtOneWhenEmpty(t *testing.T) {
	next, err := GenerateNext(context.Background(), fakeReader{max: ""})
	require.NoError(t, err)
	assert.Equal(t, "INV-000001", next)
}

func TestGenerateNextIncrements(t *testing.T) {
	next, err := GenerateNext(context.Background(), fakeReader{max: "INV-000042"})
	require.NoError(t, err)
	assert.Equal(t, "INV-000043", next)
}

func TestGenerateNextRejectsMalformedNumber(t *testing.T) {
	_, err := GenerateNext(context.Background(), fakeReader{max: "garbage"})
	assert.Error(t, err)
}
