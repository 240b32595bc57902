package store

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/rideledger/core/ledgererrors"
)

// RetryPolicy wraps a UnitOfWork, retrying WithinTx with exponential
// backoff. Every error other than a business error or a canceled context
// is retried; errors are not classified further, so a connection failure
// and any other infrastructure failure are retried alike. Business errors
// (*ledgererrors.BusinessError) are never retried — a duplicate-charge
// or invalid-date-range failure will not resolve itself on a second
// attempt, so RetryPolicy returns them to the caller on the first try.
type RetryPolicy struct {
	uow         UnitOfWork
	maxAttempts uint
	timeout     time.Duration
}

// NewRetryPolicy wraps uow with the default command timeout (30s) and
// retry budget (3 attempts) named in spec §5.
func NewRetryPolicy(uow UnitOfWork) *RetryPolicy {
	return &RetryPolicy{uow: uow, maxAttempts: 3, timeout: 30 * time.Second}
}

// WithTimeout overrides the per-attempt command timeout.
func (p *RetryPolicy) WithTimeout(d time.Duration) *RetryPolicy {
	p.timeout = d
	return p
}

// WithMaxAttempts overrides the retry budget.
func (p *RetryPolicy) WithMaxAttempts(n uint) *RetryPolicy {
	p.maxAttempts = n
	return p
}

// WithinTx implements UnitOfWork, retrying any failure with exponential
// backoff and bailing out immediately on a *ledgererrors.BusinessError
// or a canceled context.
func (p *RetryPolicy) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()

		txErr := p.uow.WithinTx(attemptCtx, fn)
		if txErr == nil {
			return struct{}{}, nil
		}

		var bizErr *ledgererrors.BusinessError
		if errors.As(txErr, &bizErr) {
			return struct{}{}, backoff.Permanent(txErr)
		}
		if errors.Is(txErr, context.Canceled) || ctx.Err() != nil {
			return struct{}{}, backoff.Permanent(txErr)
		}
		return struct{}{}, txErr
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(p.maxAttempts),
	)
	return err
}
