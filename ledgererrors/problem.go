package ledgererrors

import "errors"

// Problem is an RFC 9457 Problem Details payload. RideLedger only
// produces the payload — serializing it over HTTP is the presentation
// layer's job (out of scope per spec §1).
type Problem struct {
	Type     string         `json:"type"`
	Title    string         `json:"title"`
	Status   int            `json:"status"`
	Detail   string         `json:"detail,omitempty"`
	Code     ErrorCode      `json:"code,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ProblemDetails maps an error returned by a RideLedger command or query
// into an HTTP status and an RFC 9457 Problem Details payload.
// Infrastructure failures always map to 500; business errors map to the
// 4xx code matching their ErrorCode; any other error is treated as an
// infrastructure failure (spec §7: "a single InfrastructureFailure
// category" for anything unexpected).
func ProblemDetails(err error) (status int, problem Problem) {
	if err == nil {
		return 200, Problem{}
	}

	var bizErr *BusinessError
	if errors.As(err, &bizErr) {
		status = statusForCode(bizErr.Code)
		return status, Problem{
			Type:     "https://rideledger.dev/errors/" + string(bizErr.Code),
			Title:    string(bizErr.Code),
			Status:   status,
			Detail:   bizErr.Message,
			Code:     bizErr.Code,
			Metadata: bizErr.Metadata,
		}
	}

	var infraErr *InfrastructureError
	if errors.As(err, &infraErr) {
		return 500, Problem{
			Type:   "https://rideledger.dev/errors/" + string(CodeInfrastructureFailure),
			Title:  "Infrastructure Failure",
			Status: 500,
			Detail: infraErr.Error(),
			Code:   CodeInfrastructureFailure,
			Metadata: map[string]any{
				"correlation_id": infraErr.CorrelationID,
			},
		}
	}

	return 500, Problem{
		Type:   "https://rideledger.dev/errors/" + string(CodeInfrastructureFailure),
		Title:  "Infrastructure Failure",
		Status: 500,
		Detail: err.Error(),
		Code:   CodeInfrastructureFailure,
	}
}

func statusForCode(code ErrorCode) int {
	switch code {
	case CodeAccountNotFound, CodeInvoiceNotFound:
		return 404
	case CodeAccountAlreadyExists, CodeInvoiceAlreadyExists,
		CodeLedgerDuplicateCharge, CodeLedgerDuplicatePayment:
		return 409
	case CodeAccountInactive, CodeInvoiceImmutable:
		return 409
	case CodeAccountTenantMismatch:
		return 404 // never reveal cross-tenant existence
	case CodeTenantContextMissing:
		return 401
	case CodeCanceled:
		return 499
	case CodeAccountInvalidName, CodeLedgerInvalidAmount, CodeLedgerUnbalancedEntry,
		CodeLedgerInvalidSourceReference, CodeInvoiceNoBillableItems, CodeInvoiceInvalidDateRange:
		return 400
	default:
		return 400
	}
}
