package tenantctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rideledger/core/ledgererrors"
)

func TestFromMissingContext(t *testing.T) {
	_, err := From(context.Background())
	assert.ErrorIs(t, err, ledgererrors.ErrTenantContextMissing)
}

func TestFromPresentContext(t *testing.T) {
	ctx := WithContext(context.Background(), Context{TenantID: "t1", UserID: "u1"})

	tc, err := From(ctx)
	require.NoError(t, err)
	assert.Equal(t, "t1", tc.TenantID)
	assert.Equal(t, "u1", tc.UserID)
}

func TestFromRejectsEmptyTenantID(t *testing.T) {
	ctx := WithContext(context.Background(), Context{UserID: "u1"})
	_, err := From(ctx)
	assert.ErrorIs(t, err, ledgererrors.ErrTenantContextMissing)
}

func TestMustFromPanicsWhenMissing(t *testing.T) {
	assert.Panics(t, func() {
		MustFrom(context.Background())
	})
}
