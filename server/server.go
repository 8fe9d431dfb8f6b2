// Package server exposes the query engine over HTTP, preserving the
// consulta wire contract: a JSON body with code/message/datetime/
// results/telemetria and the HTTP status derived from the result code.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/jusbot/tjpr-consulta/query"
)

// Runner is the engine capability the HTTP layer needs.
type Runner interface {
	Run(ctx context.Context, numero string) *query.Result
	RunBatch(ctx context.Context, numeros []string, limit int) []query.BatchEntry
}

// Server routes consulta requests to a query engine.
type Server struct {
	engine  Runner
	logger  zerolog.Logger
	metrics *Metrics
	router  chi.Router
}

// New assembles the HTTP surface around engine.
func New(engine Runner, logger zerolog.Logger) *Server {
	s := &Server{
		engine:  engine,
		logger:  logger,
		metrics: NewMetrics(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.cors)
	r.Use(s.requestLogger)

	r.Route("/api/monitoramento-processual-tjpr", func(r chi.Router) {
		r.Get("/consulta", s.handleConsulta)
		r.Post("/consulta/lote", s.handleConsultaLote)
	})
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	s.router = r
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleConsulta(w http.ResponseWriter, r *http.Request) {
	processo := r.URL.Query().Get("processo")
	if processo == "" {
		s.writeJSON(w, query.HTTPStatus(query.CodeCannotProcess), map[string]any{
			"code":    query.CodeCannotProcess,
			"message": "ERRO_ENTIDADE_NAO_PROCESSAVEL",
		})
		return
	}

	result := s.engine.Run(r.Context(), processo)
	s.metrics.Observe(result.Code, result.Telemetry.TempoTotal, result.Telemetry.CaptchasResolvidos)
	s.writeJSON(w, result.HTTPStatus(), result)
}

type loteRequest struct {
	Processos    []string `json:"processos"`
	Concorrencia int      `json:"concorrencia,omitempty"`
}

func (s *Server) handleConsultaLote(w http.ResponseWriter, r *http.Request) {
	var req loteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Processos) == 0 {
		s.writeJSON(w, query.HTTPStatus(query.CodeCannotProcess), map[string]any{
			"code":    query.CodeCannotProcess,
			"message": "ERRO_ENTIDADE_NAO_PROCESSAVEL",
		})
		return
	}

	entries := s.engine.RunBatch(r.Context(), req.Processos, req.Concorrencia)
	for _, entry := range entries {
		s.metrics.Observe(entry.Result.Code, entry.Result.Telemetry.TempoTotal, entry.Result.Telemetry.CaptchasResolvidos)
	}

	// A batch always answers 200; each entry carries its own code.
	s.writeJSON(w, http.StatusOK, map[string]any{
		"datetime":   time.Now().Format(time.RFC3339),
		"resultados": entries,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

// cors mirrors the permissive policy of the original deployment; the
// endpoint serves public data.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request handled")
	})
}
