package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(attempts int) BackoffConfig {
	return BackoffConfig{
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  attempts,
		Jitter:       false,
	}
}

func TestBackoff_SucceedsFirstAttempt(t *testing.T) {
	b := NewBackoff(fastConfig(3))

	calls := 0
	err := b.Retry(context.Background(), func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestBackoff_RetriesUntilSuccess(t *testing.T) {
	b := NewBackoff(fastConfig(5))

	calls := 0
	err := b.Retry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestBackoff_ExhaustsAttempts(t *testing.T) {
	b := NewBackoff(fastConfig(3))

	failure := errors.New("persistent")
	calls := 0
	err := b.Retry(context.Background(), func() error {
		calls++
		return failure
	})

	assert.ErrorIs(t, err, failure)
	assert.Equal(t, 3, calls)
}

func TestBackoff_ContextCancellation(t *testing.T) {
	b := NewBackoff(BackoffConfig{
		InitialDelay: time.Hour,
		MaxDelay:     time.Hour,
		Multiplier:   2.0,
		MaxAttempts:  5,
		Jitter:       false,
	})

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- b.Retry(ctx, func() error {
			calls++
			return errors.New("transient")
		})
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	case <-time.After(2 * time.Second):
		t.Fatal("retry did not observe context cancellation")
	}
}

func TestBackoff_DelayGrowthAndCap(t *testing.T) {
	b := NewBackoff(BackoffConfig{
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     40 * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  10,
		Jitter:       false,
	})

	assert.Equal(t, 10*time.Millisecond, b.delay(1))
	assert.Equal(t, 20*time.Millisecond, b.delay(2))
	assert.Equal(t, 40*time.Millisecond, b.delay(3))
	assert.Equal(t, 40*time.Millisecond, b.delay(6), "capped at MaxDelay")
}

func TestBackoff_JitterStaysWithinBounds(t *testing.T) {
	b := NewBackoff(BackoffConfig{
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		MaxAttempts:  3,
		Jitter:       true,
	})

	for i := 0; i < 100; i++ {
		d := b.delay(1)
		assert.GreaterOrEqual(t, d, 75*time.Millisecond)
		assert.Less(t, d, 125*time.Millisecond)
	}
}
