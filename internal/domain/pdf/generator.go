package pdf

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"report-service-go/internal/domain/document"
	"report-service-go/internal/pkg/circuitbreaker"
	"report-service-go/internal/pkg/enginepool"
	"report-service-go/internal/pkg/gotenberg"
	"report-service-go/internal/pkg/metrics"
	"report-service-go/internal/pkg/pdfcheck"
	"report-service-go/internal/pkg/statistics"
	"report-service-go/internal/pkg/tracing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Recorder receives one record per finished generation.
type Recorder interface {
	RecordGeneration(ctx context.Context, g statistics.Generation)
}

// ArtifactStore keeps produced documents.
type ArtifactStore interface {
	Put(ctx context.Context, key string, data []byte) error
}

// Generator tries the primary renderer and falls back to the fallback
// renderer when the primary fails. It holds no per-call state and is safe for
// concurrent use.
type Generator struct {
	primary   Renderer
	fallback  Renderer
	verify    bool
	logger    *zap.Logger
	recorders []Recorder
	store     ArtifactStore
}

// Option configures a Generator.
type Option func(*Generator)

// WithVerification toggles inspecting every buffer before it is returned.
// A primary buffer that fails inspection counts as a primary failure.
func WithVerification(on bool) Option {
	return func(g *Generator) { g.verify = on }
}

func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// WithRecorder adds a statistics recorder.
func WithRecorder(r Recorder) Option {
	return func(g *Generator) { g.recorders = append(g.recorders, r) }
}

// WithArtifactStore stores every produced document under
// <reportNumber>/<generationID>.pdf. Store failures are logged only.
func WithArtifactStore(s ArtifactStore) Option {
	return func(g *Generator) { g.store = s }
}

// NewGenerator creates a Generator. primary may be nil, in which case every
// document is drawn by the fallback.
func NewGenerator(primary, fallback Renderer, opts ...Option) *Generator {
	g := &Generator{
		primary:  primary,
		fallback: fallback,
		verify:   true,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type generationIDKey struct{}

// GenerationID returns the id of the generation running in ctx, or "".
func GenerationID(ctx context.Context) string {
	id, _ := ctx.Value(generationIDKey{}).(string)
	return id
}

// Generate produces the document. Malformed content fails at once with
// document.ErrMalformedContent. When both renderers fail the error is a
// *GenerationError carrying both causes.
func (g *Generator) Generate(ctx context.Context, cfg document.Config, content document.Content) (*Result, error) {
	id := uuid.NewString()
	ctx = context.WithValue(ctx, generationIDKey{}, id)

	ctx, span := tracing.StartSpan(ctx, "Generator.Generate")
	defer span.End()
	tracing.AddAttributes(ctx,
		attribute.String("generation.id", id),
		attribute.String("report.number", cfg.ReportNumber),
		attribute.String("report.type", cfg.Type),
	)

	log := g.logger.With(
		zap.String("generation_id", id),
		zap.String("report_number", cfg.ReportNumber),
	)
	start := time.Now()

	if err := document.Validate(content); err != nil {
		metrics.GenerationTotal.WithLabelValues(string(backendNone), "invalid").Inc()
		log.Warn("rejected malformed document", zap.Error(err))
		tracing.RecordError(ctx, err)
		return nil, err
	}

	res := &Result{GenerationID: id}

	primaryErr := ErrPrimaryDisabled
	if g.primary != nil {
		out, pages, err := g.attempt(ctx, g.primary, cfg, content)
		if err == nil {
			res.PDF, res.Pages, res.Backend = out, pages, BackendPrimary
			return g.finish(ctx, log, cfg, res, start), nil
		}
		primaryErr = err
	}

	reason := fallbackReason(primaryErr)
	metrics.FallbackTotal.WithLabelValues(reason).Inc()
	tracing.AddEvent(ctx, "fallback", attribute.String("reason", reason))
	log.Warn("primary renderer failed, using fallback renderer",
		zap.String("reason", reason),
		zap.Error(primaryErr),
	)
	res.PrimaryErr = primaryErr

	if err := ctx.Err(); err != nil {
		return nil, g.fail(ctx, log, cfg, res, start, &GenerationError{Primary: primaryErr, Fallback: err})
	}

	out, pages, err := g.attempt(ctx, g.fallback, cfg, content)
	if err != nil {
		return nil, g.fail(ctx, log, cfg, res, start, &GenerationError{Primary: primaryErr, Fallback: err})
	}
	res.PDF, res.Pages, res.Backend = out, pages, BackendFallback
	return g.finish(ctx, log, cfg, res, start), nil
}

// attempt renders with one backend and inspects the output.
func (g *Generator) attempt(ctx context.Context, r Renderer, cfg document.Config, content document.Content) ([]byte, int, error) {
	start := time.Now()
	out, err := r.Render(ctx, cfg, content)
	metrics.GenerationDuration.WithLabelValues(string(r.Backend())).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, 0, err
	}
	if len(out) == 0 {
		return nil, 0, fmt.Errorf("%s renderer returned an empty document", r.Backend())
	}
	if !g.verify {
		return out, 0, nil
	}

	info, err := pdfcheck.Verify(out)
	if err != nil {
		return nil, 0, fmt.Errorf("%s renderer output rejected: %w", r.Backend(), err)
	}
	return out, info.Pages, nil
}

func (g *Generator) finish(ctx context.Context, log *zap.Logger, cfg document.Config, res *Result, start time.Time) *Result {
	res.Duration = time.Since(start)

	metrics.GenerationTotal.WithLabelValues(string(res.Backend), "success").Inc()
	metrics.FileSizeBytes.WithLabelValues(string(res.Backend)).Observe(float64(len(res.PDF)))
	tracing.AddAttributes(ctx,
		attribute.String("generation.backend", string(res.Backend)),
		attribute.Int("generation.pages", res.Pages),
	)
	log.Info("document generated",
		zap.String("backend", string(res.Backend)),
		zap.Int("pages", res.Pages),
		zap.Int("size_bytes", len(res.PDF)),
		zap.Float64("duration_seconds", res.Duration.Seconds()),
	)

	if g.store != nil {
		key := ArtifactKey(cfg, res.GenerationID)
		if err := g.store.Put(ctx, key, res.PDF); err != nil {
			log.Error("failed to store document", zap.String("key", key), zap.Error(err))
		}
	}

	g.record(ctx, cfg, res, nil)
	return res
}

func (g *Generator) fail(ctx context.Context, log *zap.Logger, cfg document.Config, res *Result, start time.Time, err *GenerationError) error {
	res.Duration = time.Since(start)
	res.Backend = backendNone

	metrics.GenerationTotal.WithLabelValues(string(backendNone), "error").Inc()
	tracing.RecordError(ctx, err)
	log.Error("document generation failed",
		zap.NamedError("primary_error", err.Primary),
		zap.NamedError("fallback_error", err.Fallback),
		zap.Float64("duration_seconds", res.Duration.Seconds()),
	)

	g.record(ctx, cfg, res, err)
	return err
}

func (g *Generator) record(ctx context.Context, cfg document.Config, res *Result, err error) {
	if len(g.recorders) == 0 {
		return
	}
	rec := statistics.Generation{
		ID:           res.GenerationID,
		ReportNumber: cfg.ReportNumber,
		DocumentType: cfg.Type,
		Backend:      string(res.Backend),
		Success:      err == nil,
		FellBack:     res.PrimaryErr != nil,
		Duration:     res.Duration,
		SizeBytes:    len(res.PDF),
		Pages:        res.Pages,
		Timestamp:    time.Now(),
	}
	if res.PrimaryErr != nil {
		rec.PrimaryError = res.PrimaryErr.Error()
	}
	if err != nil {
		rec.Error = err.Error()
	}
	for _, r := range g.recorders {
		r.RecordGeneration(ctx, rec)
	}
}

// ArtifactKey is the storage key of a produced document.
func ArtifactKey(cfg document.Config, generationID string) string {
	folder := cfg.ReportNumber
	if folder == "" {
		folder = "unnumbered"
	}
	return path.Join(folder, generationID+".pdf")
}

// fallbackReason classifies a primary failure for metrics.
func fallbackReason(err error) string {
	var statusErr *gotenberg.StatusError
	switch {
	case errors.Is(err, ErrPrimaryDisabled):
		return "disabled"
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, enginepool.ErrPoolExhausted), errors.Is(err, enginepool.ErrPoolClosed):
		return "pool"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, gotenberg.ErrEngineUnavailable):
		return "unavailable"
	case errors.As(err, &statusErr):
		return "engine_status"
	case errors.Is(err, pdfcheck.ErrNotPDF), errors.Is(err, pdfcheck.ErrNoPages), errors.Is(err, pdfcheck.ErrPageSize):
		return "invalid_output"
	default:
		return "other"
	}
}
