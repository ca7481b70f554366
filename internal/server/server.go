package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/muurk/netdisco/internal/discoverable"
	"github.com/muurk/netdisco/internal/discovery"
	"github.com/muurk/netdisco/internal/logging"
)

const (
	// DefaultRescanInterval is used when Config.RescanInterval is zero
	DefaultRescanInterval = 30 * time.Second

	// shutdownTimeout bounds how long in-flight requests get on shutdown
	shutdownTimeout = 10 * time.Second
)

// Discoverer is the part of *discovery.NetworkDiscovery the server uses
type Discoverer interface {
	ScanContext(ctx context.Context) error
	Stop() error
	State() discovery.State
	Types() []string
	Discover() ([]string, error)
	Info(name string) ([]discoverable.Info, error)
	Entries(name string) ([]discoverable.Entry, error)
	RawEntries() discovery.RawDump
}

// Config holds the server configuration
type Config struct {
	Host           string
	Port           int
	RescanInterval time.Duration
}

// Addr returns the listen address
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, fmt.Sprint(c.Port))
}

// Server exposes a Discoverer over HTTP and pushes a snapshot to
// WebSocket clients after every rescan.
type Server struct {
	config Config
	disco  Discoverer
	logger *zap.Logger
	hub    *hub

	// rescan asks the scan loop for an immediate scan
	rescan chan struct{}
}

// New creates a new Server instance
func New(config Config, disco Discoverer, logger *zap.Logger) *Server {
	if config.RescanInterval <= 0 {
		config.RescanInterval = DefaultRescanInterval
	}
	logger = logging.OrNop(logger)
	return &Server{
		config: config,
		disco:  disco,
		logger: logger,
		hub:    newHub(logger.Named("ws")),
		rescan: make(chan struct{}, 1),
	}
}

// Run serves until ctx is cancelled. Discovery is stopped on every
// return path.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		_ = s.disco.Stop()
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr(), err)
	}
	return s.Serve(ctx, listener)
}

// Serve is Run on an existing listener
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	defer func() {
		if err := s.disco.Stop(); err != nil {
			s.logger.Warn("Failed to stop discovery", zap.Error(err))
		}
	}()

	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("Server listening for connections", zap.String("addr", listener.Addr().String()))
		if err := httpServer.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.scanLoop(ctx)
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		s.hub.closeAll()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("Shutdown timeout, forcing close", zap.Error(err))
			return httpServer.Close()
		}
		return nil
	})

	return g.Wait()
}

// scanLoop scans immediately, then on every tick or rescan request
func (s *Server) scanLoop(ctx context.Context) {
	ticker := time.NewTicker(s.config.RescanInterval)
	defer ticker.Stop()

	for {
		s.scanOnce(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-s.rescan:
		}
	}
}

// scanOnce runs one scan and pushes a snapshot. A retryable failure keeps
// the earlier results, so clients still get a snapshot; any other failure
// leaves nothing new to report.
func (s *Server) scanOnce(ctx context.Context) {
	if err := s.disco.ScanContext(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		if !discovery.IsRetryable(err) {
			s.logger.Error("Rescan failed, waiting for the next interval",
				zap.Error(err),
				zap.String("hint", discovery.GetTroubleshootingHint(err)),
			)
			return
		}
		s.logger.Warn("Rescan failed", zap.Error(err))
	}
	s.hub.broadcast(s.Snapshot())
}

// RequestRescan schedules a scan without waiting for it. Requests made
// while one is already pending are coalesced.
func (s *Server) RequestRescan() {
	select {
	case s.rescan <- struct{}{}:
	default:
	}
}

// Snapshot is the discovery state pushed to WebSocket clients
type Snapshot struct {
	Time       time.Time                      `json:"time"`
	State      string                         `json:"state"`
	Discovered []string                       `json:"discovered"`
	Info       map[string][]discoverable.Info `json:"info"`
}

// Snapshot captures the current discovery results
func (s *Server) Snapshot() Snapshot {
	snap := Snapshot{
		Time:       time.Now().UTC(),
		State:      s.disco.State().String(),
		Discovered: []string{},
		Info:       map[string][]discoverable.Info{},
	}

	found, err := s.disco.Discover()
	if err != nil {
		return snap
	}
	snap.Discovered = found
	for _, name := range found {
		info, err := s.disco.Info(name)
		if err != nil {
			continue
		}
		snap.Info[name] = info
	}
	return snap
}
