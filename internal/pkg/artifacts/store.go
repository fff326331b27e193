// Package artifacts keeps produced documents in a directory or a GCS bucket.
// Writes are conditional: an existing object is never overwritten.
package artifacts

import (
	"context"
	"errors"
	"path"
	"strings"

	"report-service-go/internal/pkg/metrics"
	"report-service-go/internal/pkg/retry"

	"go.uber.org/zap"
)

// ErrInvalidKey rejects keys that are empty, absolute or escape the store root.
var ErrInvalidKey = errors.New("invalid artifact key")

// Store writes documents under slash-separated keys.
type Store interface {
	Name() string
	Put(ctx context.Context, key string, data []byte) error
}

// Retrying retries transient write failures of a Store.
type Retrying struct {
	store   Store
	retrier *retry.Retrier
}

// WithRetry wraps store. Invalid keys and other permanent errors are not retried.
func WithRetry(store Store, logger *zap.Logger, opts ...retry.Option) *Retrying {
	opts = append([]retry.Option{retry.WithRetryIf(isRetryable)}, opts...)
	return &Retrying{
		store:   store,
		retrier: retry.New("artifact_put_"+store.Name(), logger, opts...),
	}
}

func (r *Retrying) Name() string { return r.store.Name() }

// Put writes data and counts the outcome.
func (r *Retrying) Put(ctx context.Context, key string, data []byte) error {
	err := r.retrier.Do(ctx, func(ctx context.Context) error {
		return r.store.Put(ctx, key, data)
	})
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.ArtifactWritesTotal.WithLabelValues(r.store.Name(), status).Inc()
	return err
}

func isRetryable(err error) bool {
	if errors.Is(err, ErrInvalidKey) || errors.Is(err, context.Canceled) {
		return false
	}
	if retry.IsTransientError(err) {
		return true
	}
	return isRetryableGCS(err)
}

// cleanKey validates key and returns its clean form.
func cleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	clean := path.Clean(key)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", ErrInvalidKey
	}
	return clean, nil
}
