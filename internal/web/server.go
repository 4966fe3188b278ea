// Package web exposes the import service over HTTP.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/JonMunkholm/khosimport/internal/config"
	"github.com/JonMunkholm/khosimport/internal/importer"
	"github.com/JonMunkholm/khosimport/internal/logging"
	"github.com/JonMunkholm/khosimport/internal/web/middleware"
)

// ImportService is the part of importer.Service the handlers use.
type ImportService interface {
	Import(ctx context.Context, t importer.ImportType, fileName string, data []byte) (importer.BatchResult, error)
	Preview(ctx context.Context, t importer.ImportType, fileName string, data []byte) (importer.PreviewResult, error)
	ListMappings(ctx context.Context, t importer.ImportType) ([]importer.MappingView, error)
	SaveMappings(ctx context.Context, t importer.ImportType, in []importer.MappingInput) error
	EffectiveMappings(ctx context.Context, t importer.ImportType) ([]importer.FieldMapping, error)
	ListBatches(ctx context.Context, t importer.ImportType, limit int) ([]importer.Batch, error)
	GetBatch(ctx context.Context, id uuid.UUID) (importer.Batch, error)
	RevertBatch(ctx context.Context, id uuid.UUID) (importer.RevertResult, error)
	LimiterStatus() importer.LimiterStatus
}

// Pinger reports database health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Metrics is the metrics registry the server exposes and feeds.
type Metrics interface {
	middleware.RequestObserver
	Handler() http.Handler
}

// Option customises a Server.
type Option func(*Server)

// WithMetrics records request metrics and serves them on cfg.Metrics.Path.
func WithMetrics(m Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithHealthCheck makes /healthz ping the database.
func WithHealthCheck(p Pinger) Option {
	return func(s *Server) { s.db = p }
}

// Server is the HTTP server for the import service.
type Server struct {
	service ImportService
	cfg     *config.Config
	metrics Metrics
	db      Pinger
	router  *chi.Mux
	server  *http.Server
	stop    context.CancelFunc
}

// NewServer builds the router. Call Shutdown to stop background work even
// if Start was never called.
func NewServer(service ImportService, cfg *config.Config, opts ...Option) *Server {
	ctx, stop := context.WithCancel(context.Background())
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
		stop:    stop,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupMiddleware(ctx)
	s.setupRoutes(ctx)
	return s
}

func (s *Server) setupMiddleware(ctx context.Context) {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	if s.metrics != nil {
		s.router.Use(middleware.Instrument(s.metrics))
	}
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(middleware.SecurityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		rl := middleware.NewRateLimiter(ctx, s.cfg.Rate.RequestsPerMinute, time.Minute)
		s.router.Use(rl.Handler(s.rateLimited))
	}
}

func (s *Server) setupRoutes(ctx context.Context) {
	s.router.Get("/healthz", s.handleHealth)
	if s.metrics != nil && s.cfg.Metrics.Enabled {
		s.router.Method(http.MethodGet, s.cfg.Metrics.Path, s.metrics.Handler())
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if s.cfg.Rate.Enabled {
				rl := middleware.NewRateLimiter(ctx, s.cfg.Rate.ImportLimit, time.Minute)
				r.Use(rl.Handler(s.rateLimited))
			}
			r.Post("/{importType}/import", s.handleImport)
			r.Post("/{importType}/import/preview", s.handlePreview)
		})

		r.Get("/import-columns", s.handleListMappings)
		r.Post("/import-columns", s.handleSaveMappings)
		r.Get("/import-columns/effective", s.handleEffectiveMappings)

		r.Get("/imports", s.handleListBatches)
		r.Get("/imports/{id}", s.handleGetBatch)
		r.Delete("/imports/{id}", s.handleRevertBatch)
	})
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stop()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{"status": "ok", "imports": s.service.LimiterStatus()}
	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.Ping(ctx); err != nil {
			logging.FromContext(r.Context()).Warn("health check failed", "error", err)
			status["status"] = "unavailable"
			writeJSONStatus(w, http.StatusServiceUnavailable, status)
			return
		}
	}
	writeJSON(w, status)
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	s.respondError(w, r, errRateLimited, http.StatusTooManyRequests)
}

// writeJSON encodes v with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(context.Background()).Error("json encode failed", "error", err)
	}
}
