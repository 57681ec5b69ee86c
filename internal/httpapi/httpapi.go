// Package httpapi exposes the readiness checks over HTTP. It serves the
// same operations as the MCP tools, as JSON bodies instead of text
// content lists, and is only started when serve runs with --http.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/runready/runready/internal/config"
	"github.com/runready/runready/internal/heavy"
	"github.com/runready/runready/internal/history"
	"github.com/runready/runready/internal/manifest"
	"github.com/runready/runready/internal/readiness"
	"github.com/runready/runready/pkg/version"
)

const shutdownTimeout = 5 * time.Second

// Server is the HTTP transport for the readiness checks.
type Server struct {
	prober   readiness.Prober
	detector *heavy.Detector
	composer *readiness.Composer
	logger   *slog.Logger

	// Run history (optional, set via SetHistory)
	history *history.Store
}

// NewServer creates the HTTP server from the same collaborators as the
// MCP server.
func NewServer(prober readiness.Prober, detector *heavy.Detector, cfg *config.Config) (*Server, error) {
	if prober == nil {
		return nil, errors.New("host prober is required")
	}
	if detector == nil {
		return nil, errors.New("heavy detector is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}

	return &Server{
		prober:   prober,
		detector: detector,
		composer: readiness.NewComposer(prober, detector, cfg),
		logger:   slog.Default(),
	}, nil
}

// SetHistory attaches a run history store. Reports served over HTTP are
// recorded the same way MCP reports are.
func (s *Server) SetHistory(store *history.Store) {
	s.history = store
}

// Router builds the HTTP routing table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/resources", s.handleResources)
		r.Get("/dependencies", s.handleDependencies)
		r.Get("/heavy", s.handleHeavy)
		r.Get("/report", s.handleReport)
		r.Get("/project", s.handleProject)
	})

	return r
}

// Serve listens on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	s.logger.Info("http api listening", slog.String("addr", addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Handlers

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

func (s *Server) handleResources(w http.ResponseWriter, r *http.Request) {
	snap, err := s.prober.Snapshot(r.Context())
	if err != nil {
		s.logger.Warn("resources probe failed", slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, readiness.ResourceErrorText(err))
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDependencies(w http.ResponseWriter, r *http.Request) {
	path, ok := pathParam(w, r)
	if !ok {
		return
	}

	deps, err := manifest.Read(path)
	if err != nil {
		respondError(w, http.StatusBadRequest, readiness.DependencyErrorText(err))
		return
	}
	respondJSON(w, http.StatusOK, deps)
}

func (s *Server) handleHeavy(w http.ResponseWriter, r *http.Request) {
	path, ok := pathParam(w, r)
	if !ok {
		return
	}

	result, err := s.detector.Detect(r.Context(), path)
	if err != nil {
		s.logger.Error("heavy detection failed", slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "Heavy requirements detection failed")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	path, ok := pathParam(w, r)
	if !ok {
		return
	}

	start := time.Now()
	report, err := s.composer.Compose(r.Context(), path)
	if err != nil {
		s.logger.Error("readiness report failed", slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "Readiness report failed")
		return
	}

	s.recordRun(r.Context(), path, report, time.Since(start))
	respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleProject(w http.ResponseWriter, r *http.Request) {
	path, ok := pathParam(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, manifest.DetectProject(path))
}

// recordRun writes one history row for a served report. Failures are
// logged and swallowed; the response is already decided.
func (s *Server) recordRun(ctx context.Context, projectPath string, report *readiness.Report, duration time.Duration) {
	if s.history == nil {
		return
	}

	run := &history.Run{
		ProjectPath:  projectPath,
		Ready:        report.Verdict.Ready,
		Issues:       report.Verdict.Issues,
		FindingCount: len(report.Heavy.Findings),
		DurationMS:   duration.Milliseconds(),
	}
	if report.Dependencies != nil {
		run.DependencyCount = len(report.Dependencies.PythonPackages) + len(report.Dependencies.NodePackages)
	}

	if err := s.history.Record(ctx, run); err != nil {
		s.logger.Warn("history record failed", slog.String("error", err.Error()))
	}
}

// pathParam extracts the required path query parameter.
func pathParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	path := strings.TrimSpace(r.URL.Query().Get("path"))
	if path == "" {
		respondError(w, http.StatusBadRequest, "path query parameter is required")
		return "", false
	}
	return path, true
}

// requestLogger logs one line per request through the structured logger.
// chi's stock logger writes to stdout, which the stdio transport owns.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Info("http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
