package retry

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned by Do for a non-positive MaxAttempts.
var ErrInvalidConfig = errors.New("invalid retry configuration")

// RetryError wraps the error of the last attempt.
type RetryError struct {
	Attempt       int
	OriginalError error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("retry attempt %d failed: %v", e.Attempt, e.OriginalError)
}

func (e *RetryError) Unwrap() error {
	return e.OriginalError
}

// IsRetryable reports whether err matches one of retryableErrors. An empty
// list treats every non-nil error as retryable.
func IsRetryable(err error, retryableErrors []error) bool {
	if err == nil {
		return false
	}
	if len(retryableErrors) == 0 {
		return true
	}
	for _, retryableErr := range retryableErrors {
		if errors.Is(err, retryableErr) {
			return true
		}
	}
	return false
}
