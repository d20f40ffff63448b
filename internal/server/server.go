// Package server exposes the workflow API over HTTP. Submissions return
// immediately with the workflow id; progress is polled on the status
// endpoint.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/Dimple-Kanwar/SafeStake.AI/internal/coordinator"
	clierr "github.com/Dimple-Kanwar/SafeStake.AI/internal/errors"
	"github.com/Dimple-Kanwar/SafeStake.AI/internal/model"
)

type Config struct {
	Port int
	Log  zerolog.Logger
}

type Server struct {
	router *chi.Mux
	server *http.Server
	coord  *coordinator.Coordinator
	log    zerolog.Logger
	now    func() time.Time
}

func New(cfg Config, coord *coordinator.Coordinator) *Server {
	s := &Server{
		router: chi.NewRouter(),
		coord:  coord,
		log:    cfg.Log.With().Str("component", "server").Logger(),
		now:    time.Now,
	}

	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Get("/healthz", s.handleHealth)
	s.router.Route("/v1/workflows", func(r chi.Router) {
		r.Post("/", s.handleSubmit)
		r.Get("/{workflowID}", s.handleGet)
	})

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("starting HTTP server")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

type submitRequest struct {
	UserID          string  `json:"user_id"`
	TargetAmount    float64 `json:"target_amount"`
	TargetChain     string  `json:"target_chain"`
	TargetToken     string  `json:"target_token"`
	RiskTolerance   string  `json:"risk_tolerance"`
	TimeHorizonDays int     `json:"time_horizon_days"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, clierr.Wrap(clierr.CodeUsage, "decode request body", err))
		return
	}

	workflowID, err := s.coord.Submit(model.OptimizationRequest{
		UserID:          req.UserID,
		TargetAmount:    req.TargetAmount,
		TargetChain:     req.TargetChain,
		TargetToken:     req.TargetToken,
		RiskTolerance:   model.RiskTolerance(req.RiskTolerance),
		TimeHorizonDays: req.TimeHorizonDays,
	})
	if err != nil {
		status := http.StatusBadRequest
		if clierr.CodeOf(err) == clierr.CodeInternal {
			status = http.StatusInternalServerError
		}
		s.writeError(w, r, status, err)
		return
	}
	s.writeData(w, r, http.StatusAccepted, map[string]string{"workflow_id": workflowID})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	workflowID := chi.URLParam(r, "workflowID")
	wf, ok := s.coord.Get(workflowID)
	if !ok {
		s.writeError(w, r, http.StatusNotFound,
			clierr.Newf(clierr.CodeUnknownWorkflow, "workflow not found: %s", workflowID))
		return
	}
	s.writeData(w, r, http.StatusOK, wf)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeData(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeData(w http.ResponseWriter, r *http.Request, status int, data any) {
	s.writeEnvelope(w, r, status, model.Envelope{
		Version: model.EnvelopeVersion,
		Success: true,
		Data:    data,
	})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	code := clierr.CodeOf(err)
	s.writeEnvelope(w, r, status, model.Envelope{
		Version: model.EnvelopeVersion,
		Success: false,
		Error: &model.ErrorBody{
			Code:    int(code),
			Type:    code.String(),
			Message: err.Error(),
		},
	})
}

func (s *Server) writeEnvelope(w http.ResponseWriter, r *http.Request, status int, env model.Envelope) {
	env.Meta = model.EnvelopeMeta{
		RequestID: middleware.GetReqID(r.Context()),
		Timestamp: s.now().UTC(),
		Command:   r.Method + " " + r.URL.Path,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		s.log.Error().Err(err).Msg("encode response failed")
	}
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}
