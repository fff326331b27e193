package main

import (
	"context"
	"time"

	"report-service-go/internal/api"
	"report-service-go/internal/api/handlers"
	"report-service-go/internal/app"
	"report-service-go/internal/pkg/config"
	"report-service-go/internal/pkg/logger"
	"report-service-go/internal/pkg/tracing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	if err := logger.Init(cfg.LogLevel, cfg.LogEncoding); err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer logger.Sync()
	gin.SetMode(gin.ReleaseMode)

	shutdownTracer, err := tracing.InitTracer(tracing.Config{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: cfg.Tracing.ServiceVersion,
		Environment:    cfg.Tracing.Environment,
		CollectorURL:   cfg.Tracing.CollectorURL,
		SamplingRate:   cfg.Tracing.SamplingRate,
	})
	if err != nil {
		logger.Fatal("Failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(ctx); err != nil {
			logger.Error("Failed to shutdown tracer", zap.Error(err))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	service, err := app.New(ctx, cfg, logger.Log, app.Options{})
	cancel()
	if err != nil {
		logger.Fatal("Failed to assemble report service", zap.Error(err))
	}
	defer func() {
		if err := service.Close(); err != nil {
			logger.Error("Failed to release resources", zap.Error(err))
		}
	}()

	deps := api.Deps{
		Service:    service.Generator,
		Stats:      service.Stats,
		BatchLimit: cfg.BatchLimit,
	}
	if service.Pool != nil {
		deps.Engine = handlers.Engine{Pool: service.Pool, Breaker: service.Breaker}
	}
	if service.Log != nil {
		deps.Log = service.Log
	}

	server := api.NewServer(api.NewHandlers(deps), api.Options{
		RequestTimeout: cfg.RequestTimeout,
		Tracker:        service.Stats,
		Logger:         logger.Log.Named("http"),
	})
	server.SetupRoutes()

	if err := server.Start(cfg.HTTPAddr); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
	}
}
