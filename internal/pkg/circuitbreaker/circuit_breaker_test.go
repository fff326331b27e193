package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errEngine = errors.New("engine unavailable")

func ok(context.Context) error   { return nil }
func fail(context.Context) error { return errEngine }

func newTestBreaker(reset time.Duration) *CircuitBreaker {
	return NewCircuitBreaker(Config{
		Name:             "test",
		FailureThreshold: 3,
		ResetTimeout:     reset,
		HalfOpenMaxCalls: 2,
		SuccessThreshold: 2,
	})
}

func TestCircuitBreaker_StateClosed(t *testing.T) {
	cb := newTestBreaker(time.Second)
	assert.Equal(t, StateClosed, cb.State())

	for i := 0; i < 5; i++ {
		assert.NoError(t, cb.Execute(context.Background(), ok))
	}
	assert.Equal(t, StateClosed, cb.State())
	assert.True(t, cb.IsHealthy())
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := newTestBreaker(time.Second)

	for i := 0; i < 2; i++ {
		_ = cb.Execute(context.Background(), fail)
	}
	assert.NoError(t, cb.Execute(context.Background(), ok))
	for i := 0; i < 2; i++ {
		_ = cb.Execute(context.Background(), fail)
	}
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_StateOpen(t *testing.T) {
	cb := newTestBreaker(time.Second)

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(context.Background(), fail), errEngine)
	}
	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.IsHealthy())

	called := false
	err := cb.Execute(context.Background(), func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_StateHalfOpen(t *testing.T) {
	cb := newTestBreaker(50 * time.Millisecond)
	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), fail)
	}
	time.Sleep(80 * time.Millisecond)

	assert.NoError(t, cb.Execute(context.Background(), ok))
	assert.Equal(t, StateHalfOpen, cb.State())

	assert.NoError(t, cb.Execute(context.Background(), ok))
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := newTestBreaker(50 * time.Millisecond)
	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), fail)
	}
	time.Sleep(80 * time.Millisecond)

	assert.ErrorIs(t, cb.Execute(context.Background(), fail), errEngine)
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_IgnoresCallerCancellation(t *testing.T) {
	cb := newTestBreaker(time.Second)
	cancelled := func(context.Context) error { return fmt.Errorf("render: %w", context.Canceled) }

	for i := 0; i < 5; i++ {
		assert.ErrorIs(t, cb.Execute(context.Background(), cancelled), context.Canceled)
	}
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_CustomFailurePredicate(t *testing.T) {
	errBadInput := errors.New("bad input")
	cb := NewCircuitBreaker(Config{
		Name:             "test",
		FailureThreshold: 1,
		ResetTimeout:     time.Second,
		IsFailure: func(err error) bool {
			return !errors.Is(err, errBadInput)
		},
	})

	_ = cb.Execute(context.Background(), func(context.Context) error { return errBadInput })
	assert.Equal(t, StateClosed, cb.State())

	_ = cb.Execute(context.Background(), fail)
	assert.Equal(t, StateOpen, cb.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "Closed", StateClosed.String())
	assert.Equal(t, "Open", StateOpen.String())
	assert.Equal(t, "HalfOpen", StateHalfOpen.String())
	assert.Equal(t, "Unknown", State(7).String())
}
