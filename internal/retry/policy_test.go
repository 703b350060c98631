package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTransient = errors.New("transient")

func testPolicy(waits *[]time.Duration) Policy {
	return Policy{
		MaxAttempts:  10,
		InitialDelay: 50 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2,
		Retryable:    func(err error) bool { return errors.Is(err, errTransient) },
		Sleep: func(_ context.Context, d time.Duration) error {
			*waits = append(*waits, d)
			return nil
		},
	}
}

func TestDelayGrowsAndCaps(t *testing.T) {
	p := Policy{InitialDelay: 50 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2}

	assert.Equal(t, 50*time.Millisecond, p.Delay(1))
	assert.Equal(t, 100*time.Millisecond, p.Delay(2))
	assert.Equal(t, 800*time.Millisecond, p.Delay(5))
	assert.Equal(t, time.Second, p.Delay(6))
	assert.Equal(t, time.Second, p.Delay(500))
}

func TestDoSucceedsAfterRetries(t *testing.T) {
	var waits []time.Duration
	calls := 0

	attempts, err := Do(context.Background(), testPolicy(&waits), func() error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{50 * time.Millisecond, 100 * time.Millisecond}, waits)
}

func TestDoStopsAtMaxAttempts(t *testing.T) {
	var waits []time.Duration
	calls := 0

	attempts, err := Do(context.Background(), testPolicy(&waits), func() error {
		calls++
		return errTransient
	})

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 10, attempts)
	assert.Equal(t, 10, calls)
	assert.Len(t, waits, 9)
	assert.Equal(t, time.Second, waits[8])
}

func TestDoDoesNotRetryOtherErrors(t *testing.T) {
	var waits []time.Duration
	fatal := errors.New("connection reset")
	calls := 0

	attempts, err := Do(context.Background(), testPolicy(&waits), func() error {
		calls++
		return fatal
	})

	assert.Same(t, fatal, err)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
	assert.Empty(t, waits)
}

func TestDoHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := Policy{
		MaxAttempts:  3,
		InitialDelay: time.Hour,
		Retryable:    func(error) bool { return true },
	}
	attempts, err := Do(ctx, p, func() error { return errTransient })

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestDoReportsRetries(t *testing.T) {
	var waits []time.Duration
	p := testPolicy(&waits)
	var seen []int
	p.OnRetry = func(attempt int, _ time.Duration, _ error) { seen = append(seen, attempt) }

	calls := 0
	_, err := Do(context.Background(), p, func() error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, seen)
}
