package rideledger

import (
	"github.com/rideledger/core/ledgererrors"
	"github.com/rideledger/core/types"
)

// Re-export common types for convenience so callers don't have to
// import the types/ledgererrors packages directly for everyday use.

// Money is re-exported from the types package.
type Money = types.Money

// Re-export Money constructors.
var (
	Zero     = types.Zero
	Sum      = types.Sum
	MustNew  = types.MustNew
	NewMoney = types.New
)

// ErrorCode and ProblemDetails are re-exported from ledgererrors so a
// presentation layer calling into Service needs only this package.
type ErrorCode = ledgererrors.ErrorCode

var ProblemDetails = ledgererrors.ProblemDetails
