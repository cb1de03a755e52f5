package api

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/claw-router/claw-router/internal/state"
)

const (
	defaultLogsLimit = 50
	maxLogsLimit     = 200
)

type logsResponse struct {
	Total int                 `json:"total"`
	Logs  []state.RequestLog  `json:"logs"`
}

// HandleListLogs serves GET /api/logs?limit=&offset=&status=&model=&provider=
// (spec.md §4.8): substring match on model/provider, exact match on
// status, newest-first, limit capped at 200 (default 50), offset
// default 0, with the filtered total count.
func (s *Server) HandleListLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := defaultLogsLimit
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxLogsLimit {
		limit = maxLogsLimit
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	statusFilter := q.Get("status")
	modelFilter := strings.ToLower(q.Get("model"))
	providerFilter := strings.ToLower(q.Get("provider"))

	logs := s.Store.GetLogs()
	sort.Slice(logs, func(i, j int) bool { return logs[i].Timestamp.After(logs[j].Timestamp) })

	filtered := make([]state.RequestLog, 0, len(logs))
	for _, log := range logs {
		if statusFilter != "" && string(log.Status) != statusFilter {
			continue
		}
		if modelFilter != "" && !strings.Contains(strings.ToLower(log.RequestedModel), modelFilter) {
			continue
		}
		if providerFilter != "" && !strings.Contains(strings.ToLower(log.Provider), providerFilter) {
			continue
		}
		filtered = append(filtered, log)
	}

	total := len(filtered)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	writeJSON(w, http.StatusOK, logsResponse{Total: total, Logs: filtered[offset:end]})
}
