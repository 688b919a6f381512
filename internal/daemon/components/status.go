package components

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/harunnryd/cortex/internal/concurrency"
	"github.com/harunnryd/cortex/internal/config"
	"github.com/harunnryd/cortex/internal/console"
	"github.com/harunnryd/cortex/internal/daemon"
	"github.com/harunnryd/cortex/internal/governance"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// StatusSource is the console surface the status endpoint reports.
type StatusSource interface {
	Status() console.Status
	Readiness() governance.ReadinessSnapshot
	RetryAll(ctx context.Context) error
}

// HealthReporter is satisfied by *daemon.Daemon.
type HealthReporter interface {
	Health() daemon.HealthStatus
	ComponentHealth() map[string]*daemon.ComponentHealth
}

// StatusServerComponent serves the console state on a local address.
type StatusServerComponent struct {
	source      StatusSource
	health      HealthReporter
	cfg         config.StatusConfig
	mode        string
	server      *http.Server
	listener    net.Listener
	shutdownTTL time.Duration
	initialized bool
	started     bool
	mu          sync.RWMutex
}

func NewStatusServerComponent(source StatusSource, health HealthReporter, cfg config.StatusConfig, governanceMode string) *StatusServerComponent {
	return &StatusServerComponent{
		source: source,
		health: health,
		cfg:    cfg,
		mode:   governanceMode,
	}
}

func (s *StatusServerComponent) Name() string {
	return "StatusServer"
}

func (s *StatusServerComponent) Dependencies() []string {
	return []string{"Stream", "Polling"}
}

func (s *StatusServerComponent) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	shutdownTimeout, err := config.DurationOrDefault(s.cfg.ShutdownTimeout, config.DefaultStatusShutdownTimeout)
	if err != nil {
		return fmt.Errorf("parse status shutdown timeout: %w", err)
	}
	s.shutdownTTL = shutdownTimeout
	s.server = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.initialized = true
	slog.Info("StatusServer initialized", "component", s.Name(), "addr", s.cfg.Addr)
	return nil
}

// Handler builds the router. It is exported for tests.
func (s *StatusServerComponent) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)
	r.Get("/readiness", s.handleReadiness)
	r.Post("/retry", s.handleRetry)
	return r
}

func (s *StatusServerComponent) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return fmt.Errorf("StatusServer not initialized")
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.server.Addr, err)
	}
	s.listener = ln

	server := s.server
	concurrency.SafeGo("status-server", func() {
		slog.Info("Status server listening", "component", s.Name(), "addr", ln.Addr().String())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Status server failed", "component", s.Name(), "error", err)
		}
	}, nil)

	s.started = true
	return nil
}

// Addr is the bound address once started.
func (s *StatusServerComponent) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return s.cfg.Addr
	}
	return s.listener.Addr().String()
}

func (s *StatusServerComponent) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		slog.Info("StatusServer not started, skipping stop", "component", s.Name())
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, s.shutdownTTL)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		slog.Error("StatusServer shutdown error", "component", s.Name(), "error", err)
		return err
	}

	s.started = false
	slog.Info("StatusServer stopped", "component", s.Name())
	return nil
}

func (s *StatusServerComponent) Health(ctx context.Context) (*daemon.ComponentHealth, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return &daemon.ComponentHealth{Name: s.Name(), Error: fmt.Errorf("not initialized")}, nil
	}
	if !s.started {
		return &daemon.ComponentHealth{Name: s.Name(), Error: fmt.Errorf("not started")}, nil
	}
	return &daemon.ComponentHealth{Name: s.Name(), Healthy: true}, nil
}

func (s *StatusServerComponent) handleHealth(w http.ResponseWriter, r *http.Request) {
	components := make(map[string]interface{})
	if s.health != nil {
		for name, ch := range s.health.ComponentHealth() {
			entry := map[string]interface{}{"healthy": ch.Healthy}
			if ch.Error != nil {
				entry["error"] = ch.Error.Error()
			}
			components[name] = entry
		}
	}

	status := "ok"
	if s.health != nil {
		status = string(s.health.Health())
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     status,
		"components": components,
	})
}

func (s *StatusServerComponent) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.source.Status())
}

// handleReadiness answers 503 while any blocker is present.
func (s *StatusServerComponent) handleReadiness(w http.ResponseWriter, r *http.Request) {
	snap := s.source.Readiness()
	code := http.StatusOK
	if !snap.Ready() {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"snapshot": snap,
		"checks":   snap.Checks(s.mode),
	})
}

func (s *StatusServerComponent) handleRetry(w http.ResponseWriter, r *http.Request) {
	if err := s.source.RetryAll(r.Context()); err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
