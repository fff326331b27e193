package pdf

import (
	"errors"
	"fmt"
	"time"

	"report-service-go/internal/domain/document"
)

// Backend names the renderer that produced a buffer.
type Backend string

const (
	BackendPrimary  Backend = "primary"
	BackendFallback Backend = "fallback"
	backendNone     Backend = "none"
)

// ErrPrimaryDisabled is the primary failure recorded when no primary
// renderer is configured.
var ErrPrimaryDisabled = errors.New("primary renderer disabled")

// Result is a produced document.
type Result struct {
	PDF          []byte
	Backend      Backend
	Pages        int
	GenerationID string
	Duration     time.Duration
	// PrimaryErr is why the primary renderer was skipped or failed. It is nil
	// when Backend is BackendPrimary.
	PrimaryErr error
}

// FellBack reports whether the fallback renderer produced the document.
func (r *Result) FellBack() bool {
	return r.Backend == BackendFallback
}

// GenerationError means both renderers failed. Neither cause is dropped.
type GenerationError struct {
	Primary  error
	Fallback error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("document generation failed: primary: %v; fallback: %v", e.Primary, e.Fallback)
}

// Unwrap exposes both causes to errors.Is and errors.As.
func (e *GenerationError) Unwrap() []error {
	return []error{e.Primary, e.Fallback}
}

// Request is one document of a batch.
type Request struct {
	Config  document.Config  `json:"config"`
	Content document.Content `json:"content"`
}

// BatchResult is the outcome of one batch item. Exactly one of Result and Err is set.
type BatchResult struct {
	Result *Result
	Err    error
}
