package api

import "net/http"

// HandleHealthz serves GET /healthz: a bare liveness probe, grounded on
// the teacher's api/handlers/health.go HandleHealthz — ambient
// operational surface, not part of the routing/scoring contract.
func (s *Server) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
