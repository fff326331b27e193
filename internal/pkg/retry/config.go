package retry

import "time"

// Config controls a Retrier.
type Config struct {
	MaxAttempts   int // including the first call
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64

	// RetryableErrors limits retries to errors matching one of these with
	// errors.Is. Empty means every error is retryable unless RetryIf says otherwise.
	RetryableErrors []error
	// RetryIf, when set, takes precedence over RetryableErrors.
	RetryIf func(error) bool
}

// DefaultConfig returns three attempts with exponential backoff from 100ms.
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		BackoffFactor: 2.0,
	}
}

// Option configures a Retrier.
type Option func(*Config)

func WithMaxAttempts(attempts int) Option {
	return func(c *Config) {
		c.MaxAttempts = attempts
	}
}

func WithInitialDelay(delay time.Duration) Option {
	return func(c *Config) {
		c.InitialDelay = delay
	}
}

func WithMaxDelay(delay time.Duration) Option {
	return func(c *Config) {
		c.MaxDelay = delay
	}
}

func WithBackoffFactor(factor float64) Option {
	return func(c *Config) {
		c.BackoffFactor = factor
	}
}

func WithRetryableErrors(errs []error) Option {
	return func(c *Config) {
		c.RetryableErrors = errs
	}
}

// WithRetryIf sets a predicate deciding which errors are worth another attempt.
func WithRetryIf(fn func(error) bool) Option {
	return func(c *Config) {
		c.RetryIf = fn
	}
}
