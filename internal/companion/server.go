package companion

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-deck/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-deck/internal/journal"
	"github.com/nerrad567/gray-logic-deck/internal/metrics"
)

// Server timeouts.
const (
	readTimeout             = 10 * time.Second
	writeTimeout            = 30 * time.Second
	idleTimeout             = 60 * time.Second
	gracefulShutdownTimeout = 5 * time.Second
)

// Logger defines the logging interface used by the server.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// HealthChecker is implemented by the infrastructure clients.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies of the companion server.
type Deps struct {
	Config  config.CompanionConfig
	Logger  Logger
	Metrics *metrics.Metrics
	// Journal enables the /api/presses routes when set.
	Journal journal.Repository
	// Checks are reported by /health under their map key.
	Checks  map[string]HealthChecker
	Version string
}

// Server is the companion HTTP server.
type Server struct {
	cfg     config.CompanionConfig
	baseDir string
	logger  Logger
	metrics *metrics.Metrics
	journal journal.Repository
	checks  map[string]HealthChecker
	version string

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// New creates a companion server. It is not listening until Start.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If the base directory cannot be resolved
func New(deps Deps) (*Server, error) {
	baseDir := deps.Config.BaseDir
	if baseDir == "" {
		baseDir = "."
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("resolving companion base dir: %w", err)
	}

	logger := deps.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	return &Server{
		cfg:     deps.Config,
		baseDir: abs,
		logger:  logger,
		metrics: deps.Metrics,
		journal: deps.Journal,
		checks:  deps.Checks,
		version: deps.Version,
	}, nil
}

// Start binds the listener and serves in the background.
//
// Parameters:
//   - ctx: Base context of every request
//
// Returns:
//   - error: If the address cannot be bound
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return fmt.Errorf("companion server already started")
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("binding companion server on %s: %w", addr, err)
	}

	s.listener = ln
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	srv := s.server
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("companion server error", "error", err)
		}
	}()

	s.logger.Info("companion server listening", "address", ln.Addr().String(), "base_dir", s.baseDir)
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts the server down.
//
// It waits up to 5 seconds for in-flight requests to complete.
func (s *Server) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("companion server shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down companion server: %w", err)
	}
	return nil
}
