package pdf

import (
	"context"
	"fmt"
	"time"

	"report-service-go/internal/domain/document"
	"report-service-go/internal/pkg/assets"
	"report-service-go/internal/pkg/gotenberg"
	"report-service-go/internal/pkg/markup"
	"report-service-go/internal/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	logoAsset = "logo.png"
	qrAsset   = "qr.png"
	qrPixels  = 160
)

// Engine runs a conversion inside a started engine session and releases the
// session on every exit path. *enginepool.Pool implements it.
type Engine interface {
	Do(ctx context.Context, fn func(ctx context.Context, conv gotenberg.Converter) error) error
}

// PrimaryRenderer prints the HTML markup of a document through the
// headless rendering engine.
type PrimaryRenderer struct {
	engine   Engine
	assets   *assets.Loader
	branding document.Branding
	timeout  time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// PrimaryOption configures a PrimaryRenderer.
type PrimaryOption func(*PrimaryRenderer)

// WithPrimaryAssets sets the logo and QR loader. Without it the markup shows
// the text mark and no QR code.
func WithPrimaryAssets(l *assets.Loader) PrimaryOption {
	return func(r *PrimaryRenderer) { r.assets = l }
}

func WithPrimaryBranding(b document.Branding) PrimaryOption {
	return func(r *PrimaryRenderer) { r.branding = b }
}

// WithRenderTimeout bounds loading and printing one document.
func WithRenderTimeout(d time.Duration) PrimaryOption {
	return func(r *PrimaryRenderer) { r.timeout = d }
}

func WithPrimaryClock(now func() time.Time) PrimaryOption {
	return func(r *PrimaryRenderer) { r.now = now }
}

func WithPrimaryLogger(l *zap.Logger) PrimaryOption {
	return func(r *PrimaryRenderer) { r.logger = l }
}

// NewPrimaryRenderer creates the engine-backed renderer.
func NewPrimaryRenderer(engine Engine, opts ...PrimaryOption) *PrimaryRenderer {
	r := &PrimaryRenderer{
		engine:  engine,
		timeout: 30 * time.Second,
		now:     time.Now,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *PrimaryRenderer) Backend() Backend { return BackendPrimary }

// Render builds the markup and prints it. Any failure, including a timeout,
// is returned once; nothing is retried here.
func (r *PrimaryRenderer) Render(ctx context.Context, cfg document.Config, content document.Content) ([]byte, error) {
	ctx, span := tracing.StartSpan(ctx, "PrimaryRenderer.Render")
	defer span.End()

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	company, logoPath := r.branding.Lookup(cfg.Company)
	opts := markup.Options{CompanyName: company, GeneratedAt: r.now()}
	files := map[string][]byte{}

	if logo, ok := r.loadLogo(ctx, logoPath); ok {
		files[logoAsset] = logo.PNG
		opts.LogoSrc = logoAsset
	}
	reportNumber := content.Footer.ReportNumber
	if reportNumber == "" {
		reportNumber = cfg.ReportNumber
	}
	if qr, ok := r.loadQR(ctx, reportNumber); ok {
		files[qrAsset] = qr.PNG
		opts.QRSrc = qrAsset
	}

	html, err := markup.Build(cfg, content, opts)
	if err != nil {
		return nil, err
	}
	footer, err := markup.BuildPageFooter(cfg.WithDefaults())
	if err != nil {
		return nil, err
	}

	req := gotenberg.HTMLRequest{
		HTML:    html,
		Footer:  footer,
		Assets:  files,
		Page:    gotenberg.A4,
		TraceID: GenerationID(ctx),
	}
	tracing.AddAttributes(ctx,
		attribute.Int("markup.bytes", len(html)),
		attribute.Int("markup.assets", len(files)),
	)

	var out []byte
	err = r.engine.Do(ctx, func(ctx context.Context, conv gotenberg.Converter) error {
		var err error
		out, err = conv.ConvertHTML(ctx, req)
		return err
	})
	if err != nil {
		tracing.RecordError(ctx, err)
		return nil, fmt.Errorf("rendering engine: %w", err)
	}
	return out, nil
}

func (r *PrimaryRenderer) loadLogo(ctx context.Context, path string) (assets.Image, bool) {
	if r.assets == nil {
		return assets.Image{}, false
	}
	img, err := r.assets.Logo(ctx, path)
	if err != nil {
		r.logger.Warn("logo unavailable, using text mark",
			zap.String("path", path),
			zap.Error(err),
		)
		return assets.Image{}, false
	}
	return img, true
}

func (r *PrimaryRenderer) loadQR(ctx context.Context, text string) (assets.Image, bool) {
	if r.assets == nil || text == "" {
		return assets.Image{}, false
	}
	img, err := r.assets.QRCode(ctx, text, qrPixels)
	if err != nil {
		r.logger.Warn("qr code unavailable", zap.Error(err))
		return assets.Image{}, false
	}
	return img, true
}
