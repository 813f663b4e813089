package backoff

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testPolicy() Policy {
	return Policy{Initial: 2 * time.Second, Max: 8 * time.Second, Factor: 2}
}

func TestDelayGrowsExponentiallyAndCaps(t *testing.T) {
	p := testPolicy()

	require.Equal(t, 2*time.Second, p.delay(1, 0))
	require.Equal(t, 4*time.Second, p.delay(2, 0))
	require.Equal(t, 8*time.Second, p.delay(3, 0))
	require.Equal(t, 8*time.Second, p.delay(4, 0), "delay must cap at Max")
}

func TestDelayJitterAddsFractionOfBase(t *testing.T) {
	p := Policy{Initial: time.Second, Max: time.Minute, Factor: 2, Jitter: 0.5}

	require.Equal(t, time.Second, p.delay(1, 0))
	require.Equal(t, 1500*time.Millisecond, p.delay(1, 1))
}

func TestDelayClampsAttemptBelowOne(t *testing.T) {
	p := testPolicy()
	require.Equal(t, p.delay(1, 0), p.delay(0, 0))
}

func TestSleepHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := testPolicy().Sleep(ctx, 1)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRetryReturnsFirstSuccess(t *testing.T) {
	calls := 0
	v, err := Retry(context.Background(), Policy{}, 3, nil, func(attempt int) (string, error) {
		calls++
		if attempt < 2 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	require.Equal(t, "ok", v)
	require.Equal(t, 2, calls)
}

func TestRetryStopsOnNonRetryableError(t *testing.T) {
	permanent := errors.New("bad request")
	calls := 0
	_, err := Retry(context.Background(), Policy{}, 3, func(err error) bool { return !errors.Is(err, permanent) }, func(int) (int, error) {
		calls++
		return 0, permanent
	})

	require.ErrorIs(t, err, permanent)
	require.Equal(t, 1, calls)
}

func TestRetryExhaustsAttemptsAndReturnsLastError(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), Policy{}, 3, nil, func(attempt int) (int, error) {
		calls++
		return 0, errors.New("still failing")
	})

	require.EqualError(t, err, "still failing")
	require.Equal(t, 3, calls)
}

func TestRetryStopsWhenContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, err := Retry(ctx, Policy{}, 3, nil, func(int) (int, error) {
		calls++
		return 0, errors.New("never reached")
	})

	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, calls)
}
