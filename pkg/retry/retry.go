// Package retry provides a bounded retry policy with exponential backoff. A
// Policy is a plain value: it holds the attempt budget, the delay function and
// the predicate deciding whether an error is worth another attempt, so it can
// be exercised without any network calls.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	DefaultMultiplier  = 1000 * time.Millisecond
	DefaultMaxDelay    = 1000 * time.Millisecond
	DefaultMaxAttempts = 7
)

// ExhaustedError is returned by Do once every attempt in the budget failed
// with a retryable error. Err is the error from the final attempt.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retry: gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Policy describes how an operation is retried.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// Delay returns the wait before the given retry. attempt is the number
	// of the attempt that just failed, starting at 1.
	Delay func(attempt int) time.Duration

	// Retryable reports whether err warrants another attempt. A nil
	// Retryable retries every error.
	Retryable func(err error) bool

	// Sleep waits for d or until ctx is done. Defaults to a timer based wait.
	Sleep func(ctx context.Context, d time.Duration) error

	// OnRetry, if set, is called before each wait.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Default returns the policy used for uploads: at most seven attempts with a
// one second backoff.
func Default(retryable func(error) bool) Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		Delay:       Exponential(DefaultMultiplier, DefaultMaxDelay),
		Retryable:   retryable,
	}
}

// Exponential returns a delay function yielding multiplier * 2^(attempt-1),
// capped at max.
func Exponential(multiplier, max time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		d := multiplier
		for i := 1; i < attempt; i++ {
			if d >= max || d > max/2 {
				return max
			}
			d *= 2
		}
		if d > max {
			return max
		}
		return d
	}
}

// Do runs fn until it succeeds, returns a non-retryable error, the attempt
// budget is spent or ctx is done. It returns the number of attempts made.
// Non-retryable errors are returned unchanged; exhausting the budget yields
// an *ExhaustedError.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) (int, error) {
	max := p.MaxAttempts
	if max < 1 {
		max = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var err error
	for attempt := 1; attempt <= max; attempt++ {
		if cerr := ctx.Err(); cerr != nil {
			return attempt - 1, cerr
		}

		err = fn(ctx, attempt)
		if err == nil {
			return attempt, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return attempt, err
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return attempt, err
		}
		if attempt == max {
			break
		}

		var delay time.Duration
		if p.Delay != nil {
			delay = p.Delay(attempt)
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, delay)
		}
		if serr := sleep(ctx, delay); serr != nil {
			return attempt, serr
		}
	}

	return max, &ExhaustedError{Attempts: max, Err: err}
}

// Sleep waits for d, returning early with ctx.Err() if ctx is done first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
