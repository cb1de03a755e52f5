package api

import (
	"net/http"

	"github.com/claw-router/claw-router/internal/config"
	"github.com/claw-router/claw-router/internal/gwerr"
)

// HandleGetConfig serves GET /api/config: the full live Config.
func (s *Server) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Store.GetConfig())
}

// HandlePostConfig serves POST /api/config: replaces the live Config
// and persists it to disk. A decode or save failure surfaces as 400 or
// 500 respectively (spec.md §7).
func (s *Server) HandlePostConfig(w http.ResponseWriter, r *http.Request) {
	var cfg config.Config
	if err := decodeJSONBody(w, r, &cfg); err != nil {
		writeGatewayError(w, s.Logger, gwerr.New(gwerr.CodeConfigInvalid, "invalid config JSON").WithCause(err).WithHTTPStatus(http.StatusBadRequest))
		return
	}

	if err := s.Store.UpdateConfig(cfg); err != nil {
		writeGatewayError(w, s.Logger, gwerr.New(gwerr.CodeConfigSaveFailed, "failed to persist config").WithCause(err).WithHTTPStatus(http.StatusInternalServerError))
		return
	}

	writeJSON(w, http.StatusOK, cfg)
}
