// Package api implements the gateway's admin/observability surface
// (C8, spec.md §4.8): GET /v1/models, GET/POST /api/config, GET
// /api/stats, GET /api/logs, plus the supplemented GET /healthz,
// GET /metrics, and GET /api/logs/stream. Response-writing helpers are
// adapted from the teacher's api/handlers/common.go (WriteJSON,
// MaxBytesReader body limiting), but
// this package writes spec-exact envelopes rather than the teacher's
// generic {success, data, error} wrapper, since spec.md §4.8 and the
// surviving original_source tests pin each endpoint's wire shape.
package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/claw-router/claw-router/internal/gwerr"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeGatewayError writes e.Message verbatim as a text/plain body,
// matching spec.md §4.8's "errors are text/plain with the status code"
// and the original_source handlers' bare (StatusCode, &str) responses.
func writeGatewayError(w http.ResponseWriter, logger *zap.Logger, e *gwerr.Error) {
	status := e.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	if logger != nil {
		logger.Error("api error", zap.String("code", string(e.Code)), zap.String("message", e.Message), zap.Int("status", status))
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(e.Message))
}

// decodeJSONBody reads r.Body into dst, capping it at 1MB as the
// teacher's DecodeJSONBody does.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	return json.NewDecoder(r.Body).Decode(dst)
}
