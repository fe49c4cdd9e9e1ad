// Package server wires the tracker runtime and HTTP lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/louisbranch/orion/internal/platform/httpx"
	"github.com/louisbranch/orion/internal/platform/timeouts"
	trackerapi "github.com/louisbranch/orion/internal/services/tracker/api/http/tracker"
	"github.com/louisbranch/orion/internal/services/tracker/credential"
	trackersqlite "github.com/louisbranch/orion/internal/services/tracker/storage/sqlite"
	"github.com/louisbranch/orion/internal/services/tracker/token"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Config holds the runtime settings for a tracker server.
type Config struct {
	HTTPAddr   string
	DBPath     string
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
}

// Server hosts the tracker HTTP API and storage lifecycle.
type Server struct {
	listener   net.Listener
	httpServer *http.Server
	store      *trackersqlite.Store
}

// New creates a configured tracker server listening on cfg.HTTPAddr.
func New(cfg Config) (*Server, error) {
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, errors.New("jwt secret is required")
	}
	dbPath := strings.TrimSpace(cfg.DBPath)
	if dbPath == "" {
		dbPath = filepath.Join("data", "orion.db")
	}

	hasher, err := credential.NewHasher(cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	tokens, err := token.NewService(token.Config{Secret: []byte(cfg.JWTSecret), TTL: cfg.TokenTTL})
	if err != nil {
		return nil, err
	}

	store, err := openTrackerStore(dbPath)
	if err != nil {
		return nil, err
	}
	apiService, err := trackerapi.NewService(store, hasher, tokens)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("new tracker service: %w", err)
	}

	listener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("listen on %s: %w", cfg.HTTPAddr, err)
	}

	return &Server{
		listener: listener,
		httpServer: &http.Server{
			Handler:           Handler(apiService),
			ReadHeaderTimeout: timeouts.ReadHeader,
			ReadTimeout:       timeouts.Read,
			WriteTimeout:      timeouts.Write,
			IdleTimeout:       timeouts.Idle,
		},
		store: store,
	}, nil
}

// Handler wraps the tracker routes with tracing, request ids, access logs
// and panic recovery.
func Handler(apiService *trackerapi.Service) http.Handler {
	routes := httpx.Chain(apiService.Routes(),
		httpx.RequestID(),
		httpx.AccessLog(),
		httpx.RecoverPanic(),
	)
	return otelhttp.NewHandler(routes, "tracker.http")
}

// Addr returns the listener address for the server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves a tracker server until context cancellation.
func Run(ctx context.Context, cfg Config) error {
	server, err := New(cfg)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve handles HTTP requests until context cancellation, then drains
// in-flight requests before closing the store.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	log.Printf("tracker server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown HTTP: %w", err)
		}
		err := <-serveErr
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve HTTP: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve HTTP: %w", err)
	}
}

// Close releases tracker server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close tracker store: %v", err)
		}
		s.store = nil
	}
}

func openTrackerStore(path string) (*trackersqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := trackersqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open tracker sqlite store: %w", err)
	}
	return store, nil
}
