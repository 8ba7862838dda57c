package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tournevent/machool/internal/graphql"
	"github.com/tournevent/machool/internal/mcptools"
	"github.com/tournevent/machool/internal/service"
	"github.com/tournevent/machool/internal/settings"
	"github.com/tournevent/machool/pkg/shipper"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Server is the HTTP server for the shipping-rate service.
type Server struct {
	port     int
	svc      *service.Service
	logger   *otelzap.Logger
	gatherer prometheus.Gatherer
	executor *graphql.Executor
	tools    *mcptools.Tools
	settings *settings.Store
	onSave   func(context.Context, settings.Settings)
}

// Config holds server configuration.
type Config struct {
	Port    int
	Version string

	// Gatherer backs /metrics. The default registry when nil.
	Gatherer prometheus.Gatherer

	// Settings enables the admin settings endpoints when set.
	Settings *settings.Store
	// OnSettingsSaved runs after the admin saves settings.
	OnSettingsSaved func(context.Context, settings.Settings)
}

// New creates a new server instance.
func New(cfg Config, svc *service.Service, logger *otelzap.Logger) (*Server, error) {
	if logger == nil {
		logger = otelzap.New(zap.NewNop())
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}

	executor, err := graphql.NewExecutor(graphql.NewResolver(svc, logger))
	if err != nil {
		return nil, err
	}

	return &Server{
		port:     cfg.Port,
		svc:      svc,
		logger:   logger,
		gatherer: cfg.Gatherer,
		executor: executor,
		tools:    mcptools.New(svc, logger, cfg.Version),
		settings: cfg.Settings,
		onSave:   cfg.OnSettingsSaved,
	}, nil
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("POST /v1/rates", s.handleRates)
	mux.HandleFunc("GET /v1/providers", s.handleProviders)
	mux.HandleFunc("GET /v1/notices", s.handleNotices)
	mux.HandleFunc("POST /v1/credentials/validate", s.handleValidate)
	mux.HandleFunc("GET /v1/settings/fields", s.handleSettingsFields)
	if s.settings != nil {
		mux.HandleFunc("GET /v1/settings", s.handleGetSettings)
		mux.HandleFunc("PUT /v1/settings", s.handlePutSettings)
	}

	mux.Handle("/graphql", s.executor.Handler())
	mux.Handle("GET /playground", graphql.PlaygroundHandler("/graphql"))
	mux.Handle("/mcp", s.tools.Handler())

	return Chain(Recovery(s.logger), Logging(s.logger))(mux)
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Health())
}

// ratesRequest is the body of POST /v1/rates.
type ratesRequest struct {
	Package   shipper.Package `json:"package"`
	Providers []string        `json:"providers,omitempty"`
}

func (s *Server) handleRates(w http.ResponseWriter, r *http.Request) {
	var req ratesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	for i := range req.Package.Contents {
		if req.Package.Contents[i].Quantity <= 0 {
			req.Package.Contents[i].Quantity = 1
		}
	}

	result := s.svc.Quote(r.Context(), &req.Package, req.Providers)
	if result.Rates == nil {
		result.Rates = []shipper.QuotedRate{}
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"providers": s.svc.Providers()})
}

func (s *Server) handleNotices(w http.ResponseWriter, r *http.Request) {
	board := s.svc.Notices()
	if r.URL.Query().Get("format") == "html" || strings.Contains(r.Header.Get("Accept"), "text/html") {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(board.HTML()))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notices": board.List()})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	checks := s.svc.Validate(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"checks":  checks,
		"notices": s.svc.Notices().List(),
	})
}

func (s *Server) handleSettingsFields(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"fields": settings.FormFields()})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.settings.Current())
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	next := s.settings.Current()
	if err := json.NewDecoder(r.Body).Decode(&next); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if err := next.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := s.settings.Save(next); err != nil {
		s.logger.Ctx(r.Context()).Error("Failed to save settings", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to save settings")
		return
	}
	saved := s.settings.Current()
	if s.onSave != nil {
		s.onSave(r.Context(), saved)
	}
	writeJSON(w, http.StatusOK, saved)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
