package pdf

import (
	"context"

	"report-service-go/internal/domain/document"
	"report-service-go/internal/pkg/drawing"
	"report-service-go/internal/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
)

// FallbackRenderer draws the document in process. It needs no external
// resources and does not block on I/O except for asset loading.
type FallbackRenderer struct {
	drawing *drawing.Renderer
}

// NewFallbackRenderer wraps a configured drawing renderer.
func NewFallbackRenderer(d *drawing.Renderer) *FallbackRenderer {
	return &FallbackRenderer{drawing: d}
}

func (r *FallbackRenderer) Backend() Backend { return BackendFallback }

// Render draws the document. ctx is checked only before drawing starts.
func (r *FallbackRenderer) Render(ctx context.Context, cfg document.Config, content document.Content) ([]byte, error) {
	ctx, span := tracing.StartSpan(ctx, "FallbackRenderer.Render")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out, layout, err := r.drawing.RenderLayout(cfg, content)
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, err
	}
	tracing.AddAttributes(ctx,
		attribute.Int("drawing.pages", layout.Pages),
		attribute.Bool("drawing.logo_fallback", layout.LogoFallback),
	)
	return out, nil
}
