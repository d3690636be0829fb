package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"sdfrontend/internal/config"
	"sdfrontend/internal/core"
	"sdfrontend/internal/discovery"
	"sdfrontend/internal/generate"
	"sdfrontend/internal/metrics"
	"sdfrontend/internal/upstream"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server application server
type Server struct {
	port    string
	ginMode string

	upstream  *upstream.Client
	discovery *discovery.Service
	adapter   *generate.Adapter
	router    *gin.Engine
	page      *template.Template

	metricsService *metrics.MetricsService
	collector      *metrics.Collector

	config config.ServerConfig
	logger core.Logger
	zapLog *zap.Logger

	rateLimiter *rateLimiter

	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc
	closeOnce      sync.Once
	closeErr       error
}

// NewServer creates a new server instance
func NewServer(cfg config.ServerConfig) (*Server, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required in ServerConfig")
	}
	if cfg.Storage == nil {
		return nil, fmt.Errorf("storage is required in ServerConfig")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}

	page, err := parsePage()
	if err != nil {
		return nil, fmt.Errorf("failed to parse page template: %w", err)
	}

	zapLog := zap.NewNop()
	if zp, ok := cfg.Logger.(interface{ Zap() *zap.Logger }); ok {
		zapLog = zp.Zap()
	}

	collector := metrics.NewCollector(core.MetricsNamespace, zapLog)

	metricsService := metrics.NewMetricsService(metrics.MetricsConfig{
		SaveInterval: core.MinSaveInterval,
		HistorySize:  core.HistoryBufferSize,
		Storage:      cfg.Storage,
		Logger:       cfg.Logger,
	})
	if err := metricsService.LoadStats(); err != nil {
		cfg.Logger.Warn("Failed to load historical stats: %v", err)
	}

	client := upstream.NewClient(upstream.ClientConfig{
		BaseURL:  cfg.UpstreamURL,
		Settings: cfg.HTTPClientSettings,
		Metrics:  collector,
		Logger:   cfg.Logger,
	})
	discoveryService := discovery.NewService(client)

	adapter := generate.NewAdapter(generate.AdapterConfig{
		Upstream:     client,
		Capabilities: discoveryService,
		Metrics:      collector,
		Stats:        metricsService,
		Logger:       cfg.Logger,
	})

	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())

	server := &Server{
		port:           cfg.Port,
		ginMode:        cfg.GinMode,
		upstream:       client,
		discovery:      discoveryService,
		adapter:        adapter,
		page:           page,
		metricsService: metricsService,
		collector:      collector,
		config:         cfg,
		logger:         cfg.Logger,
		zapLog:         zapLog,
		rateLimiter:    newRateLimiter(cfg.RateLimit),
		shutdownCtx:    shutdownCtx,
		shutdownCancel: shutdownCancel,
	}

	server.setupRoutes()

	cfg.Logger.Info("Server initialized, generation API at %s", cfg.UpstreamURL)
	return server, nil
}

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run runs the server until a shutdown signal arrives or Close is called
func (s *Server) Run() error {
	s.setupGracefulShutdown()

	srv := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.router,
		ReadHeaderTimeout: core.ServerReadHeaderTimeout,
		ReadTimeout:       core.ServerReadTimeout,
		WriteTimeout:      core.ServerWriteTimeout, // generation can take minutes
	}

	go func() {
		<-s.shutdownCtx.Done()
		ctx, cancel := context.WithTimeout(context.Background(), core.ServerShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Error("Server shutdown error: %v", err)
		}
	}()

	s.logger.Info("Server starting on port %s, open http://127.0.0.1:%s in your browser", s.port, s.port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func (s *Server) setupGracefulShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-quit:
			s.logger.Info("Shutdown signal received, shutting down gracefully...")
			s.shutdownCancel()
		case <-s.shutdownCtx.Done():
		}
		signal.Stop(quit)
	}()
}

// Close stops the server and flushes usage stats. Later calls return the first result.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		if s.shutdownCancel != nil {
			s.shutdownCancel()
		}

		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}

		if s.metricsService != nil {
			if err := s.metricsService.Close(); err != nil {
				s.closeErr = errors.Join(s.closeErr, fmt.Errorf("close metrics service: %w", err))
			}
		}
	})
	return s.closeErr
}
