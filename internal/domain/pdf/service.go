package pdf

import (
	"context"

	"report-service-go/internal/domain/document"
)

// Service generates documents. Handlers and adapters depend on it rather than
// on the concrete Generator.
type Service interface {
	Generate(ctx context.Context, cfg document.Config, content document.Content) (*Result, error)
	GenerateBatch(ctx context.Context, reqs []Request, limit int) []BatchResult
}

// Renderer turns a document into PDF bytes using one backend.
type Renderer interface {
	Backend() Backend
	Render(ctx context.Context, cfg document.Config, content document.Content) ([]byte, error)
}
