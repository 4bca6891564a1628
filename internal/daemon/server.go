// Package daemon serves the engine's latest results, display models, stored
// history and Prometheus metrics over a local HTTP API.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/janekbaraniewski/quotabar/internal/core"
	"github.com/janekbaraniewski/quotabar/internal/display"
	"github.com/janekbaraniewski/quotabar/internal/store"
	"github.com/janekbaraniewski/quotabar/internal/version"
)

const defaultHistoryLimit = 50

// History is the part of the store the server reads.
type History interface {
	Recent(ctx context.Context, providerID string, limit int) ([]store.Record, error)
}

type Options struct {
	Engine   *core.Engine
	History  History
	Gatherer prometheus.Gatherer
	Logger   zerolog.Logger
}

type Server struct {
	engine   *core.Engine
	history  History
	gatherer prometheus.Gatherer
	log      zerolog.Logger
}

func NewServer(opts Options) *Server {
	return &Server{
		engine:   opts.Engine,
		history:  opts.History,
		gatherer: opts.Gatherer,
		log:      opts.Logger,
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/snapshots", s.handleSnapshots)
		r.Get("/snapshots/{provider}", s.handleSnapshot)
		r.Post("/snapshots/{provider}/refresh", s.handleRefresh)
		r.Get("/display", s.handleDisplay)
		r.Get("/history/{provider}", s.handleHistory)
	})
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// ListenAndServe blocks until ctx is done or the listener fails.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, listener)
}

func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      core.DefaultFetchTimeout + 10*time.Second,
		IdleTimeout:       30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("daemon shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.log.Info().Str("addr", listener.Addr().String()).Msg("daemon listening")
	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(started)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		DaemonVersion: strings.TrimSpace(version.Version),
		APIVersion:    APIVersion,
		Providers:     s.engine.ProviderIDs(),
	})
}

func (s *Server) statuses() []ProviderStatus {
	ids := s.engine.ProviderIDs()
	out := make([]ProviderStatus, 0, len(ids))
	for _, id := range ids {
		if r, ok := s.engine.Result(id); ok {
			out = append(out, StatusFromResult(r))
			continue
		}
		out = append(out, PendingStatus(id))
	}
	return out
}

func (s *Server) knownProvider(id string) bool {
	for _, known := range s.engine.ProviderIDs() {
		if known == id {
			return true
		}
	}
	return false
}

func (s *Server) handleSnapshots(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, SnapshotsResponse{Providers: s.statuses()})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "provider"))
	if !s.knownProvider(id) {
		writeJSONError(w, http.StatusNotFound, "unknown provider "+id)
		return
	}
	if res, ok := s.engine.Result(id); ok {
		writeJSON(w, http.StatusOK, StatusFromResult(res))
		return
	}
	writeJSON(w, http.StatusOK, PendingStatus(id))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "provider"))
	res, ok := s.engine.Refresh(r.Context(), id)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "unknown provider "+id)
		return
	}
	writeJSON(w, http.StatusOK, StatusFromResult(res))
}

func (s *Server) handleDisplay(w http.ResponseWriter, _ *http.Request) {
	statuses := s.statuses()
	models := make([]display.Model, 0, len(statuses))
	for _, st := range statuses {
		models = append(models, st.Display)
	}
	writeJSON(w, http.StatusOK, models)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "history store disabled")
		return
	}
	id := strings.TrimSpace(chi.URLParam(r, "provider"))
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSONError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	records, err := s.history.Recent(r.Context(), id, limit)
	if err != nil {
		s.log.Warn().Err(err).Str("provider", id).Msg("history query failed")
		writeJSONError(w, http.StatusInternalServerError, "history query failed")
		return
	}
	if records == nil {
		records = []store.Record{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{ProviderID: id, Records: records})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
