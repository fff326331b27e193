package retry

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Operation is one attempt of a retried call.
type Operation func(ctx context.Context) error

// Retrier runs an operation with exponential backoff.
type Retrier struct {
	config    *Config
	logger    *zap.Logger
	operation string
}

// New creates a Retrier; operation names it in logs and metrics.
func New(operation string, logger *zap.Logger, opts ...Option) *Retrier {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Retrier{
		config:    config,
		logger:    logger,
		operation: operation,
	}
}

// Do calls op until it succeeds, returns a non-retryable error, the attempts
// run out or ctx is done. Failures are returned as *RetryError.
func (r *Retrier) Do(ctx context.Context, op Operation) error {
	if r.config.MaxAttempts <= 0 {
		return ErrInvalidConfig
	}

	start := time.Now()
	status := "failed"
	defer func() {
		retryDuration.WithLabelValues(r.operation, status).Observe(time.Since(start).Seconds())
	}()

	var lastErr error
	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			status = "success"
			retryAttempts.WithLabelValues(r.operation, "success").Inc()
			return nil
		}

		lastErr = err
		retryAttempts.WithLabelValues(r.operation, "failed").Inc()
		retryErrors.WithLabelValues(r.operation, classifyError(ctx, err)).Inc()
		r.logger.Warn("retry attempt failed",
			zap.String("operation", r.operation),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		if ctx.Err() != nil {
			status = "cancelled"
			return ctx.Err()
		}
		if !r.retryable(err) {
			status = "non_retryable"
			return &RetryError{Attempt: attempt, OriginalError: err}
		}
		if attempt == r.config.MaxAttempts {
			break
		}

		timer := time.NewTimer(r.calculateDelay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			status = "cancelled"
			return ctx.Err()
		case <-timer.C:
		}
	}

	return &RetryError{Attempt: r.config.MaxAttempts, OriginalError: lastErr}
}

func (r *Retrier) retryable(err error) bool {
	if r.config.RetryIf != nil {
		return r.config.RetryIf(err)
	}
	return IsRetryable(err, r.config.RetryableErrors)
}

func (r *Retrier) calculateDelay(attempt int) time.Duration {
	delay := float64(r.config.InitialDelay)
	for i := 1; i < attempt; i++ {
		delay *= r.config.BackoffFactor
	}
	if delay > float64(r.config.MaxDelay) {
		delay = float64(r.config.MaxDelay)
	}
	return time.Duration(delay)
}

func classifyError(ctx context.Context, err error) string {
	switch {
	case ctx.Err() != nil:
		return "context_cancelled"
	case IsTimeout(err):
		return "timeout"
	case IsConnectionError(err):
		return "connection"
	default:
		return "unknown"
	}
}
