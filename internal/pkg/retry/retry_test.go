package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var errBucketBusy = errors.New("bucket busy")

// failing returns an operation that fails n times with err before succeeding.
func failing(n int, err error) (Operation, *int) {
	calls := 0
	return func(context.Context) error {
		calls++
		if calls <= n {
			return err
		}
		return nil
	}, &calls
}

func quick(opts ...Option) []Option {
	return append([]Option{WithInitialDelay(time.Millisecond), WithMaxDelay(5 * time.Millisecond)}, opts...)
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	op, calls := failing(2, errBucketBusy)

	before := testutil.ToFloat64(retryAttempts.WithLabelValues("put_report", "success"))
	err := New("put_report", zap.New(core), quick()...).Do(context.Background(), op)

	require.NoError(t, err)
	assert.Equal(t, 3, *calls)
	assert.Equal(t, 2, logs.FilterMessage("retry attempt failed").Len())
	assert.Equal(t, before+1, testutil.ToFloat64(retryAttempts.WithLabelValues("put_report", "success")))
}

func TestDo_GivesUpAfterMaxAttempts(t *testing.T) {
	op, calls := failing(10, errBucketBusy)

	err := New("put_report", nil, quick(WithMaxAttempts(4))...).Do(context.Background(), op)

	var rerr *RetryError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, 4, rerr.Attempt)
	assert.ErrorIs(t, err, errBucketBusy)
	assert.Equal(t, 4, *calls)
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	permanent := errors.New("access denied")
	op, calls := failing(10, permanent)

	r := New("put_report", nil, quick(WithRetryableErrors([]error{errBucketBusy}))...)
	err := r.Do(context.Background(), op)

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, *calls)
}

func TestDo_RetryIfTakesPrecedence(t *testing.T) {
	op, calls := failing(10, errBucketBusy)

	r := New("put_report", nil, quick(
		WithRetryableErrors([]error{errBucketBusy}),
		WithRetryIf(func(error) bool { return false }),
	)...)
	require.Error(t, r.Do(context.Background(), op))
	assert.Equal(t, 1, *calls)
}

func TestDo_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	op := func(context.Context) error {
		calls++
		cancel()
		return errBucketBusy
	}

	err := New("put_report", nil, WithInitialDelay(time.Hour)).Do(ctx, op)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDo_InvalidConfig(t *testing.T) {
	op, calls := failing(0, nil)
	err := New("put_report", nil, WithMaxAttempts(0)).Do(context.Background(), op)

	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Zero(t, *calls)
}

func TestCalculateDelay(t *testing.T) {
	r := New("put_report", nil,
		WithInitialDelay(100*time.Millisecond),
		WithBackoffFactor(3),
		WithMaxDelay(time.Second),
	)

	assert.Equal(t, 100*time.Millisecond, r.calculateDelay(1))
	assert.Equal(t, 300*time.Millisecond, r.calculateDelay(2))
	assert.Equal(t, 900*time.Millisecond, r.calculateDelay(3))
	assert.Equal(t, time.Second, r.calculateDelay(4), "capped at MaxDelay")
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil, nil))
	assert.True(t, IsRetryable(errBucketBusy, nil), "empty list retries everything")
	assert.True(t, IsRetryable(fmt.Errorf("put: %w", errBucketBusy), []error{errBucketBusy}))
	assert.False(t, IsRetryable(errors.New("other"), []error{errBucketBusy}))
}

func TestErrorClassification(t *testing.T) {
	reset := fmt.Errorf("write: %w", syscall.ECONNRESET)
	assert.True(t, IsConnectionError(reset))
	assert.True(t, IsTransientError(reset))

	opErr := &net.OpError{Op: "dial", Err: errors.New("no route")}
	assert.True(t, IsConnectionError(opErr))

	assert.True(t, IsTimeout(os.ErrDeadlineExceeded))
	assert.True(t, IsTimeout(syscall.ETIMEDOUT))
	assert.False(t, IsTimeout(errBucketBusy))

	assert.False(t, IsTransientError(nil))
	assert.False(t, IsTransientError(errBucketBusy))

	assert.Equal(t, "connection", classifyError(context.Background(), reset))
	assert.Equal(t, "timeout", classifyError(context.Background(), os.ErrDeadlineExceeded))
	assert.Equal(t, "unknown", classifyError(context.Background(), errBucketBusy))
}
