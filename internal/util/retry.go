package util

import (
	"context"
	"errors"
	"time"
)

// permanentError marks an error that Retry must not retry.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so that Retry returns it without further attempts.
// errors.Is and errors.As still see the wrapped error.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Retry calls fn once and then up to maxRetries more times, sleeping a fixed
// delay between attempts. It returns nil on the first success or the last
// error once attempts are exhausted.
//
// Cancellation is never retried: an error matching context.Canceled is
// returned immediately, and an error marked Permanent is unwrapped and
// returned immediately. If ctx is cancelled while
// waiting between attempts, ctx.Err() is returned.
func Retry(ctx context.Context, maxRetries int, delay time.Duration, fn func() error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}

	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		var p *permanentError
		if errors.As(err, &p) {
			return p.err
		}
		if errors.Is(err, context.Canceled) {
			return err
		}

		// Don't sleep after the last failed attempt.
		if attempt < maxRetries {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	return err
}
