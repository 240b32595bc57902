package ledgererrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWrapsSentinel(t *testing.T) {
	err := New(CodeAccountNotFound, "account acct_1 not found")
	assert.ErrorIs(t, err, ErrAccountNotFound)
	assert.Equal(t, CodeAccountNotFound, err.Code)
}

func TestWithMetadataDoesNotMutateOriginal(t *testing.T) {
	original := New(CodeLedgerDuplicateCharge, "duplicate")
	withMeta := original.WithMetadata("existing_id", "entr_123")

	assert.Nil(t, original.Metadata)
	require.NotNil(t, withMeta.Metadata)
	assert.Equal(t, "entr_123", withMeta.Metadata["existing_id"])
}

func TestIsDuplicate(t *testing.T) {
	assert.True(t, IsDuplicate(New(CodeLedgerDuplicateCharge, "")))
	assert.True(t, IsDuplicate(New(CodeLedgerDuplicatePayment, "")))
	assert.False(t, IsDuplicate(New(CodeAccountNotFound, "")))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(New(CodeAccountNotFound, "")))
	assert.True(t, IsNotFound(New(CodeInvoiceNotFound, "")))
	assert.False(t, IsNotFound(New(CodeAccountInactive, "")))
}

func TestIsRetryableOnlyForInfrastructureErrors(t *testing.T) {
	assert.False(t, IsRetryable(New(CodeAccountNotFound, "")))
	assert.True(t, IsRetryable(&InfrastructureError{Op: "x", Cause: errors.New("boom")}))
}

func TestProblemDetailsMapsBusinessError(t *testing.T) {
	status, problem := ProblemDetails(New(CodeAccountNotFound, "not found"))
	assert.Equal(t, 404, status)
	assert.Equal(t, CodeAccountNotFound, problem.Code)
}

func TestProblemDetailsMapsInfrastructureError(t *testing.T) {
	status, problem := ProblemDetails(&InfrastructureError{Op: "commit", Cause: errors.New("conn reset"), CorrelationID: "corr-1"})
	assert.Equal(t, 500, status)
	assert.Equal(t, CodeInfrastructureFailure, problem.Code)
	assert.Equal(t, "corr-1", problem.Metadata["correlation_id"])
}

func TestProblemDetailsNilIsOK(t *testing.T) {
	status, _ := ProblemDetails(nil)
	assert.Equal(t, 200, status)
}
