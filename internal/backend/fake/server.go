package fake

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/slok/zimg/internal/log"
)

const (
	defaultListenAddr      = "localhost:15000"
	defaultShutdownTimeout = 5 * time.Second
	defaultMetricsPath     = "/metrics"
)

// ServerConfig is the configuration of the fake backend HTTP server.
type ServerConfig struct {
	ListenAddr string
	Backend    *Backend
	// MetricsHandler is optional, when set it's served on MetricsPath.
	MetricsHandler  http.Handler
	MetricsPath     string
	ShutdownTimeout time.Duration
	Logger          log.Logger
}

func (c *ServerConfig) defaults() error {
	if c.ListenAddr == "" {
		c.ListenAddr = defaultListenAddr
	}
	if c.Backend == nil {
		return fmt.Errorf("backend is required")
	}
	if c.MetricsPath == "" {
		c.MetricsPath = defaultMetricsPath
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "fake.Server"})
	return nil
}

// Server serves the fake backend over HTTP.
type Server struct {
	server          *http.Server
	shutdownTimeout time.Duration
	logger          log.Logger
}

// NewServer returns a new fake backend server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var handler http.Handler = cfg.Backend
	if cfg.MetricsHandler != nil {
		mux := http.NewServeMux()
		mux.Handle(cfg.MetricsPath, cfg.MetricsHandler)
		mux.Handle("/", cfg.Backend)
		handler = mux
		cfg.Logger.Infof("Serving metrics on %s", cfg.MetricsPath)
	}

	return &Server{
		server: &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		shutdownTimeout: cfg.ShutdownTimeout,
		logger:          cfg.Logger,
	}, nil
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("could not listen on %s: %w", s.server.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on the listener until ctx is cancelled, then it shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("Fake image service listening on %s", ln.Addr())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		s.logger.Infof("Shutting down fake image service")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil
	}
}
