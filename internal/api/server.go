package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/envcloud/envcloud-core/internal/auth"
	"github.com/envcloud/envcloud-core/internal/device"
	"github.com/envcloud/envcloud-core/internal/hub"
	"github.com/envcloud/envcloud-core/internal/infrastructure/config"
	"github.com/envcloud/envcloud-core/internal/infrastructure/logging"
	"github.com/envcloud/envcloud-core/internal/ingest"
	"github.com/envcloud/envcloud-core/internal/location"
	"github.com/envcloud/envcloud-core/internal/registration"
	"github.com/envcloud/envcloud-core/internal/telemetry"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight
// requests to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// exportLimit caps the number of rows a CSV export returns.
const exportLimit = 1000

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Logger   *logging.Logger

	Users        auth.UserRepository
	Locations    location.Repository
	Devices      device.Repository
	Store        telemetry.Store
	Registration *registration.Service
	Ingest       *ingest.Service
	Tracker      *telemetry.Tracker
	Aggregator   *telemetry.Aggregator
	Hub          *hub.Hub

	Version string
}

// Server is the HTTP API server for Environmental Cloud Core.
//
// It manages the HTTP listener, routes, middleware and the WebSocket
// side of the live hub. The server is created with New() and started
// with Start().
type Server struct {
	cfg    config.APIConfig
	wsCfg  config.WebSocketConfig
	secCfg config.SecurityConfig
	logger *logging.Logger

	users        auth.UserRepository
	locations    location.Repository
	devices      device.Repository
	store        telemetry.Store
	registration *registration.Service
	ingest       *ingest.Service
	tracker      *telemetry.Tracker
	aggregator   *telemetry.Aggregator
	hub          *hub.Hub

	version string
	server  *http.Server
	cancel  context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Store == nil {
		return nil, fmt.Errorf("measurement store is required")
	}
	if deps.Registration == nil || deps.Ingest == nil {
		return nil, fmt.Errorf("registration and ingest services are required")
	}
	if deps.Hub == nil {
		return nil, fmt.Errorf("hub is required")
	}

	return &Server{
		cfg:          deps.Config,
		wsCfg:        deps.WS,
		secCfg:       deps.Security,
		logger:       deps.Logger,
		users:        deps.Users,
		locations:    deps.Locations,
		devices:      deps.Devices,
		store:        deps.Store,
		registration: deps.Registration,
		ingest:       deps.Ingest,
		tracker:      deps.Tracker,
		aggregator:   deps.Aggregator,
		hub:          deps.Hub,
		version:      deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It builds the router and launches the listener in a background
// goroutine. The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	_, s.cancel = context.WithCancel(ctx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to gracefulShutdownTimeout for in-flight requests to
// complete, then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
