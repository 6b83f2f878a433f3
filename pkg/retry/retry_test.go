package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errTransient = errors.New("transient")
	errFatal     = errors.New("fatal")
)

func noSleep(context.Context, time.Duration) error { return nil }

func testPolicy() Policy {
	p := Default(func(err error) bool { return errors.Is(err, errTransient) })
	p.Sleep = noSleep
	return p
}

func TestExponential(t *testing.T) {
	t.Run("default tuning never exceeds one second", func(t *testing.T) {
		delay := Exponential(DefaultMultiplier, DefaultMaxDelay)
		for attempt := 1; attempt <= 10; attempt++ {
			assert.Equal(t, time.Second, delay(attempt), "attempt %d", attempt)
		}
	})

	t.Run("grows until capped", func(t *testing.T) {
		delay := Exponential(100*time.Millisecond, time.Second)
		assert.Equal(t, 100*time.Millisecond, delay(1))
		assert.Equal(t, 200*time.Millisecond, delay(2))
		assert.Equal(t, 400*time.Millisecond, delay(3))
		assert.Equal(t, 800*time.Millisecond, delay(4))
		assert.Equal(t, time.Second, delay(5))
		assert.Equal(t, time.Second, delay(60))
	})
}

func TestDoSucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	attempts, err := testPolicy().Do(context.Background(), func(_ context.Context, attempt int) error {
		calls++
		assert.Equal(t, calls, attempt)
		if calls <= 3 {
			return errTransient
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 4, attempts)
	assert.Equal(t, 4, calls)
}

func TestDoExhaustsBudget(t *testing.T) {
	calls := 0
	var delays []time.Duration
	p := testPolicy()
	p.OnRetry = func(_ int, _ error, d time.Duration) { delays = append(delays, d) }

	attempts, err := p.Do(context.Background(), func(context.Context, int) error {
		calls++
		return errTransient
	})

	require.Error(t, err)
	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, DefaultMaxAttempts, exhausted.Attempts)
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, DefaultMaxAttempts, attempts)
	assert.Equal(t, DefaultMaxAttempts, calls)
	assert.Len(t, delays, DefaultMaxAttempts-1)
}

func TestDoFatalErrorIsNotRetried(t *testing.T) {
	calls := 0
	attempts, err := testPolicy().Do(context.Background(), func(context.Context, int) error {
		calls++
		return errFatal
	})

	assert.Same(t, errFatal, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}

func TestDoNilPredicateRetriesEverything(t *testing.T) {
	p := Policy{MaxAttempts: 3, Sleep: noSleep}
	calls := 0
	_, err := p.Do(context.Background(), func(context.Context, int) error {
		calls++
		return errFatal
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsWhenCancelledBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := testPolicy()
	p.Sleep = Sleep
	p.Delay = func(int) time.Duration { return time.Hour }

	calls := 0
	done := make(chan struct{})
	var attempts int
	var err error
	go func() {
		defer close(done)
		attempts, err = p.Do(ctx, func(context.Context, int) error {
			calls++
			return errTransient
		})
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Do did not return after cancellation")
	}

	assert.ErrorIs(t, err, context.Canceled)
	assert.LessOrEqual(t, calls, 1)
	assert.Equal(t, calls, attempts)
}

func TestSleep(t *testing.T) {
	require.NoError(t, Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}
