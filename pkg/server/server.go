package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"mercator-hq/tabula/pkg/config"
	"mercator-hq/tabula/pkg/server/api"
	"mercator-hq/tabula/pkg/server/middleware"
	"mercator-hq/tabula/pkg/telemetry/health"
	"mercator-hq/tabula/pkg/telemetry/metrics"
	"mercator-hq/tabula/pkg/telemetry/tracing"
)

// Option configures a Server.
type Option func(*Server)

// WithHealth mounts the liveness, readiness and version endpoints.
func WithHealth(checker *health.Checker, cfg *config.HealthConfig) Option {
	return func(s *Server) {
		s.checker = checker
		s.healthConfig = cfg
	}
}

// WithMetrics mounts the Prometheus endpoint at path.
func WithMetrics(c *metrics.Collector, path string) Option {
	return func(s *Server) {
		s.metrics = c
		s.metricsPath = path
	}
}

// WithVersion sets the build information served at /version.
func WithVersion(info health.VersionInfo) Option {
	return func(s *Server) { s.version = &info }
}

// Server is the HTTP server of `tabula serve`.
type Server struct {
	config       *config.ServerConfig
	api          *api.Handler
	checker      *health.Checker
	healthConfig *config.HealthConfig
	metrics      *metrics.Collector
	metricsPath  string
	version      *health.VersionInfo

	httpServer   *http.Server
	listener     net.Listener
	shutdownChan chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
	logger       *slog.Logger
}

// New creates a server.
func New(cfg *config.ServerConfig, handler *api.Handler, opts ...Option) *Server {
	s := &Server{
		config:       cfg,
		api:          handler,
		shutdownChan: make(chan struct{}),
		logger:       slog.Default().With("component", "server"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start binds the listen address and serves until ctx is cancelled or
// Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	ln, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.setupRoutes(),
		ReadTimeout:       s.config.ReadTimeout,
		ReadHeaderTimeout: s.config.ReadTimeout,
		WriteTimeout:      s.config.WriteTimeout,
	}
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting job API server", "address", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		return err
	case <-s.shutdownChan:
		return nil
	}
}

// Shutdown gracefully stops the server. It is safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		defer close(s.shutdownChan)

		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		timeout := s.config.ShutdownTimeout
		if timeout <= 0 {
			timeout = config.DefaultShutdownTimeout
		}
		s.logger.Info("initiating graceful shutdown", "timeout", timeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("error during server shutdown", "error", err)
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("job API server stopped")
	})

	return shutdownErr
}

// setupRoutes configures HTTP routes and middleware chain.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()
	s.api.Register(mux)

	var quiet []string
	if s.metrics != nil && s.metricsPath != "" {
		mux.Handle("GET "+s.metricsPath, s.metrics.Handler())
		quiet = append(quiet, s.metricsPath)
	}
	if s.checker != nil {
		liveness, readiness := "/health", "/ready"
		if s.healthConfig != nil {
			if s.healthConfig.LivenessPath != "" {
				liveness = s.healthConfig.LivenessPath
			}
			if s.healthConfig.ReadinessPath != "" {
				readiness = s.healthConfig.ReadinessPath
			}
		}
		mux.Handle(liveness, s.checker.LivenessHandler())
		mux.Handle(readiness, s.checker.ReadinessHandler())
		quiet = append(quiet, liveness, readiness)
	}
	if s.version != nil {
		mux.Handle("/version", health.VersionHandler(*s.version))
	}

	var handler http.Handler = mux
	handler = tracing.HTTPMiddleware(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Logging(quiet...)(handler)

	// Recovery middleware (outermost)
	handler = middleware.Recovery(handler)

	return handler
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Addr returns the bound listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Handler returns the configured HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}
