package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"report-service-go/internal/api/middleware"
	"report-service-go/internal/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Options configures the HTTP server.
type Options struct {
	RequestTimeout time.Duration
	Tracker        middleware.RequestTracker
	Logger         *zap.Logger
}

type Server struct {
	Router   *gin.Engine
	Handlers *Handlers
	server   *http.Server
	opts     Options
	log      *zap.Logger
}

func NewServer(handlers *Handlers, opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	router := gin.New()
	router.MaxMultipartMemory = 8 << 20 // 8 MiB

	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(opts.Logger))
	router.Use(tracing.GinTracingMiddleware())
	router.Use(middleware.PrometheusMiddleware())
	if opts.Tracker != nil {
		router.Use(middleware.StatisticsMiddleware(opts.Tracker, "/api/v1/"))
	}

	// One deadline covers the primary attempt and the fallback.
	router.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), opts.RequestTimeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	return &Server{
		Router:   router,
		Handlers: handlers,
		opts:     opts,
		log:      opts.Logger,
	}
}

func (s *Server) SetupRoutes() {
	s.Router.GET("/health", s.Handlers.Statistics.Health)
	s.Router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.Router.Group("/api/v1")
	{
		v1.POST("/documents", s.Handlers.Documents.Generate)
		v1.POST("/documents/batch", s.Handlers.Documents.GenerateBatch)
		v1.POST("/reports/lab-inspection", s.Handlers.Reports.LabInspection)
		v1.POST("/reports/compliance-audit", s.Handlers.Reports.ComplianceAudit)
		v1.GET("/statistics", s.Handlers.Statistics.GetStatistics)
	}
}

// Start serves until SIGINT/SIGTERM or a listener error, then shuts down.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:           addr,
		Handler:        s.Router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   s.opts.RequestTimeout + 10*time.Second,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	errChan := make(chan error, 1)
	go func() {
		s.log.Info("Starting server", zap.String("address", addr))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errChan:
		return err
	case sig := <-quit:
		s.log.Info("Received signal", zap.String("signal", sig.String()))
		return s.Stop()
	}
}

// Stop drains in-flight requests for up to 30 seconds.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s.log.Info("Shutting down server")
	if err := s.server.Shutdown(ctx); err != nil {
		s.log.Error("Server forced to shutdown", zap.Error(err))
		return err
	}
	return nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}
