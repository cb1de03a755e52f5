package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/claw-router/claw-router/internal/health"
	"github.com/claw-router/claw-router/internal/state"
)

// Server holds the admin/observability surface's dependencies.
type Server struct {
	Store  *state.Store
	Logger *zap.Logger

	// Health is optional; when set, /api/stats gains a provider_health
	// section sourced from the passive prober's last snapshot.
	Health *health.Prober
}

// New builds a Server wired to store and logger. Health may be set on
// the returned value before Routes is called.
func New(store *state.Store, logger *zap.Logger) *Server {
	return &Server{Store: store, Logger: logger}
}

// Routes registers every admin/observability endpoint on mux,
// grounded on the teacher's cmd/agentflow/server.go mux.HandleFunc
// composition. The orchestrator's own /v1/chat/completions route is
// registered by the caller (cmd/claw-router), not here.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/models", s.HandleListModels)
	mux.HandleFunc("GET /api/config", s.HandleGetConfig)
	mux.HandleFunc("POST /api/config", s.HandlePostConfig)
	mux.HandleFunc("GET /api/stats", s.HandleStats)
	mux.HandleFunc("GET /api/logs", s.HandleListLogs)
	mux.HandleFunc("GET /api/logs/stream", s.HandleLogsStream)
	mux.HandleFunc("GET /healthz", s.HandleHealthz)
	mux.Handle("GET /metrics", promhttp.Handler())
}
