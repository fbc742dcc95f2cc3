package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRetrySpecBackoffScaling(t *testing.T) {
	t.Parallel()

	spec := RetrySpec{MaxRetries: 3, InitialBackoff: 500 * time.Millisecond, Scaling: 2.0}
	require.Equal(t, 500*time.Millisecond, spec.Backoff(0))
	require.Equal(t, time.Second, spec.Backoff(1))
	require.Equal(t, 2*time.Second, spec.Backoff(2))

	discovery := DiscoveryRetry()
	require.Equal(t, time.Second, discovery.Backoff(0))
	require.Equal(t, 1500*time.Millisecond, discovery.Backoff(1))
}

func TestRetrySpecDoRetriesUntilSuccess(t *testing.T) {
	t.Parallel()

	spec := RetrySpec{MaxRetries: 3, InitialBackoff: time.Millisecond, Scaling: 1.0}
	attempts := 0
	err := spec.Do(context.Background(), func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestRetrySpecDoExhaustsRetries(t *testing.T) {
	t.Parallel()

	spec := RetrySpec{MaxRetries: 2, InitialBackoff: time.Millisecond, Scaling: 1.0}
	wantErr := errors.New("permanent")
	attempts := 0
	err := spec.Do(context.Background(), func(context.Context) error {
		attempts++
		return wantErr
	})
	require.ErrorIs(t, err, wantErr)
	require.Equal(t, 3, attempts)
}

func TestRetrySpecDoStopsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	spec := RetrySpec{MaxRetries: 5, InitialBackoff: time.Hour, Scaling: 1.0}
	errCh := make(chan error, 1)
	go func() {
		errCh <- spec.Do(ctx, func(context.Context) error {
			return errors.New("always")
		})
	}()
	cancel()
	select {
	case err := <-errCh:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Do did not return after cancellation")
	}
}
