// Package app assembles the document generator and its supporting
// infrastructure from configuration. Both the API server and the render CLI
// start from it.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"report-service-go/internal/domain/document"
	"report-service-go/internal/domain/pdf"
	"report-service-go/internal/pkg/artifacts"
	"report-service-go/internal/pkg/assets"
	"report-service-go/internal/pkg/circuitbreaker"
	"report-service-go/internal/pkg/config"
	"report-service-go/internal/pkg/drawing"
	"report-service-go/internal/pkg/enginepool"
	"report-service-go/internal/pkg/gotenberg"
	"report-service-go/internal/pkg/statistics"

	"go.uber.org/zap"
)

// AssetTTL is how long prepared logos and QR marks stay cached.
const AssetTTL = 30 * time.Minute

// App is a wired generator with the handles the API exposes.
type App struct {
	Generator *pdf.Generator
	Stats     *statistics.Statistics

	// Pool and Breaker are nil when the primary renderer is disabled.
	Pool    *enginepool.Pool
	Breaker *circuitbreaker.CircuitBreaker
	// Log is nil without a configured database.
	Log *statistics.PostgresDB

	closers []func() error
}

// Options tweak the assembly for callers other than the API server.
type Options struct {
	// FallbackOnly skips the rendering engine.
	FallbackOnly bool
	// NoArtifacts disables the artifact sink even if configured.
	NoArtifacts bool
	// NoGenerationLog disables the database log even if configured.
	NoGenerationLog bool
}

// New builds the generator described by cfg.
func New(ctx context.Context, cfg config.Config, log *zap.Logger, opts Options) (*App, error) {
	a := &App{Stats: statistics.New()}

	brandingFile, err := config.LoadBranding(cfg.BrandingFile)
	if err != nil {
		return nil, err
	}
	branding := document.Branding{
		Names:       document.Directory(brandingFile.Names()),
		Logos:       brandingFile.Logos(),
		DefaultLogo: cfg.LogoPath,
	}

	loader := assets.NewLoader(AssetTTL)
	a.closers = append(a.closers, func() error { loader.Close(); return nil })

	fallback := pdf.NewFallbackRenderer(drawing.New(
		drawing.WithAssets(loader),
		drawing.WithBranding(branding),
		drawing.WithCompression(cfg.Compress),
		drawing.WithLogger(log.Named("drawing")),
	))

	var primary pdf.Renderer
	if cfg.Engine.Enabled && !opts.FallbackOnly {
		primary = a.primaryRenderer(cfg, log, loader, branding)
	} else {
		log.Info("Primary renderer disabled, documents are drawn by the fallback renderer")
	}

	recorders := statistics.Multi{a.Stats}
	if cfg.Postgres.Enabled() && !opts.NoGenerationLog {
		p := cfg.Postgres
		db, err := statistics.NewPostgresDB(ctx, statistics.ConnString(p.Host, p.Port, p.DB, p.User, p.Password), log.Named("generation_log"))
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("failed to open generation log: %w", err)
		}
		a.Log = db
		a.closers = append(a.closers, db.Close)
		recorders = append(recorders, db)
	}

	genOpts := []pdf.Option{
		pdf.WithLogger(log.Named("generator")),
		pdf.WithVerification(cfg.VerifyOutput),
		pdf.WithRecorder(recorders),
	}
	if !opts.NoArtifacts {
		store, err := a.artifactStore(ctx, cfg, log)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		if store != nil {
			genOpts = append(genOpts, pdf.WithArtifactStore(store))
		}
	}

	a.Generator = pdf.NewGenerator(primary, fallback, genOpts...)
	return a, nil
}

func (a *App) primaryRenderer(cfg config.Config, log *zap.Logger, loader *assets.Loader, branding document.Branding) pdf.Renderer {
	a.Breaker = circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{
		Name:             "gotenberg",
		FailureThreshold: cfg.Breaker.FailureThreshold,
		ResetTimeout:     cfg.Breaker.ResetTimeout,
		HalfOpenMaxCalls: cfg.Breaker.HalfOpenMaxCalls,
		SuccessThreshold: cfg.Breaker.SuccessThreshold,
		PodName:          cfg.Breaker.PodName,
		Namespace:        cfg.Breaker.Namespace,
		Logger:           log.Named("circuit_breaker"),
	})

	a.Pool = enginepool.NewPool(enginepool.Config{
		MaxSessions:    cfg.Engine.MaxSessions,
		AcquireTimeout: cfg.Engine.AcquireTimeout,
		MaxIdle:        cfg.Engine.SessionMaxIdle,
	}, log.Named("engine_pool"), func(ctx context.Context) (gotenberg.Converter, error) {
		return gotenberg.NewClientWithCircuitBreaker(gotenberg.NewClient(cfg.Engine.URL, cfg.Engine.Timeout), a.Breaker), nil
	})
	a.closers = append(a.closers, a.Pool.Close)

	log.Info("Primary renderer enabled",
		zap.String("engine_url", cfg.Engine.URL),
		zap.Int("max_sessions", cfg.Engine.MaxSessions),
	)
	return pdf.NewPrimaryRenderer(a.Pool,
		pdf.WithPrimaryAssets(loader),
		pdf.WithPrimaryBranding(branding),
		pdf.WithRenderTimeout(cfg.Engine.Timeout),
		pdf.WithPrimaryLogger(log.Named("primary")),
	)
}

// artifactStore returns nil when no sink is configured. A bucket wins over a directory.
func (a *App) artifactStore(ctx context.Context, cfg config.Config, log *zap.Logger) (pdf.ArtifactStore, error) {
	var store artifacts.Store
	switch {
	case cfg.ArtifactsBucket != "":
		gcs, err := artifacts.NewGCSStore(ctx, cfg.ArtifactsBucket, "reports/")
		if err != nil {
			return nil, fmt.Errorf("failed to open artifact bucket: %w", err)
		}
		a.closers = append(a.closers, gcs.Close)
		store = gcs
	case cfg.ArtifactsDir != "":
		fs, err := artifacts.NewFileStore(cfg.ArtifactsDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open artifact directory: %w", err)
		}
		store = fs
	default:
		return nil, nil
	}
	log.Info("Artifact sink enabled", zap.String("store", store.Name()))
	return artifacts.WithRetry(store, log.Named("artifacts")), nil
}

// Close releases everything New opened, in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
