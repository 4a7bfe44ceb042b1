package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/sparques/rftrx/internal/bridge"
	"github.com/sparques/rftrx/internal/config"
	"github.com/sparques/rftrx/internal/history"
	"github.com/sparques/rftrx/internal/logging"
)

const (
	gracefulShutdownTimeout = 10 * time.Second

	readTimeout  = 10 * time.Second
	writeTimeout = 30 * time.Second
	idleTimeout  = 60 * time.Second
)

// Bridge is the part of *bridge.Bridge the API drives.
type Bridge interface {
	Devices() []bridge.DeviceInfo
	Send(ctx context.Context, name string, code uint64) error
}

// HistoryReader is the read side of *history.Store.
type HistoryReader interface {
	List(ctx context.Context, f history.Filter) ([]history.Event, error)
	Get(ctx context.Context, id string) (history.Event, error)
}

// Deps holds the dependencies of a Server. History and Hub are optional.
type Deps struct {
	Config  config.APIConfig
	Logger  *logging.Logger
	Bridge  Bridge
	History HistoryReader
	Hub     *Hub
	Version string
}

// Server is the HTTP API server.
type Server struct {
	cfg     config.APIConfig
	logger  *logging.Logger
	bridge  Bridge
	history HistoryReader
	hub     *Hub
	version string

	server *http.Server
	addr   net.Addr
	cancel context.CancelFunc
}

// New checks deps and returns a stopped Server. Without a Hub one is
// created; pass the same Hub to the bridge as its Broadcaster.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Bridge == nil {
		return nil, fmt.Errorf("bridge is required")
	}
	hub := deps.Hub
	if hub == nil {
		hub = NewHub(deps.Logger)
	}
	return &Server{
		cfg:     deps.Config,
		logger:  deps.Logger,
		bridge:  deps.Bridge,
		history: deps.History,
		hub:     hub,
		version: deps.Version,
	}, nil
}

// Hub returns the websocket hub events are broadcast on.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.buildRouter() }

// Start binds the listener and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	go s.hub.Run(srvCtx)

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.cancel()
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	s.addr = ln.Addr()

	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	go func() {
		s.logger.Info("API server listening", "address", s.addr.String())
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()
	return nil
}

// Addr is the bound address, valid after Start.
func (s *Server) Addr() net.Addr { return s.addr }

// Close waits up to ten seconds for in-flight requests, then drops them.
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

// HealthCheck reports whether the server has been started.
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
