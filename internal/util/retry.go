package util

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

const (
	defaultBaseDelay = 500 * time.Millisecond
	defaultMaxDelay  = 10 * time.Second
)

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as non-retryable. Retry helpers return it immediately
// instead of burning further attempts on malformed input or auth failures.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// backoffDelay returns the exponential backoff delay for attempt (0-based),
// with full jitter.
func backoffDelay(attempt int) time.Duration {
	d := defaultBaseDelay << uint(attempt)
	if d > defaultMaxDelay {
		d = defaultMaxDelay
	}
	return time.Duration(rand.Int64N(int64(d)) + 1)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RetryWithContext calls fn up to maxTries times until it returns a result and
// nil error, or until ctx is done. Attempts after the first are delayed by
// exponential backoff with jitter. If maxTries <= 0, it defaults to 1.
// Errors marked with Permanent, and context cancellation, end the loop early.
func RetryWithContext[T any](ctx context.Context, maxTries int, fn func(context.Context) (T, error)) (T, error) {
	if maxTries <= 0 {
		maxTries = 1
	}
	var lastErr error
	var zero T
	for i := 0; i < maxTries; i++ {
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if i > 0 {
			if err := sleepCtx(ctx, backoffDelay(i-1)); err != nil {
				return zero, err
			}
		}
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zero, err
		}
		if IsPermanent(err) {
			return zero, err
		}
		lastErr = err
	}
	return zero, lastErr
}

// RetryErrWithContext is RetryWithContext for functions that only return an error.
func RetryErrWithContext(ctx context.Context, maxTries int, fn func(context.Context) error) error {
	_, err := RetryWithContext(ctx, maxTries, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Retry2WithContext calls fn up to maxTries times until it returns two results
// and nil error, or until ctx is done. Same backoff and short-circuit rules as
// RetryWithContext.
func Retry2WithContext[A, B any](ctx context.Context, maxTries int, fn func(context.Context) (A, B, error)) (A, B, error) {
	type pair struct {
		a A
		b B
	}
	p, err := RetryWithContext(ctx, maxTries, func(ctx context.Context) (pair, error) {
		a, b, err := fn(ctx)
		return pair{a: a, b: b}, err
	})
	return p.a, p.b, err
}
