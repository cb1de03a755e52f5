package api

import (
	"math"
	"net/http"
	"sort"

	"github.com/claw-router/claw-router/internal/health"
	"github.com/claw-router/claw-router/internal/state"
)

type providerBreakdown struct {
	Requests      int     `json:"requests"`
	Successful    int     `json:"successful"`
	Failed        int     `json:"failed"`
	TotalCost     float64 `json:"total_cost"`
	AvgDurationMS float64 `json:"avg_duration_ms"`
}

type modelBreakdown struct {
	Requests  int     `json:"requests"`
	TotalCost float64 `json:"total_cost"`
}

type statsResponse struct {
	Requests             int                          `json:"requests"`
	Successful           int                          `json:"successful"`
	Failed               int                           `json:"failed"`
	TotalCost            float64                      `json:"total_cost"`
	AvgDurationMS        float64                      `json:"avg_duration_ms"`
	ActiveProfile        string                       `json:"active_profile"`
	ProviderBreakdown    map[string]*providerBreakdown `json:"provider_breakdown"`
	ModelBreakdown       map[string]*modelBreakdown    `json:"model_breakdown"`
	ComplexityTierCounts map[string]int                `json:"complexity_tier_counts"`
	RecentLogs           []state.RequestLog            `json:"recent_logs"`
	AgenticRequests      int                           `json:"agentic_requests"`
	SessionPinnedCount   int                            `json:"session_pinned_requests"`
	LiveSessions         int                            `json:"live_sessions"`
	ProviderHealth       map[string]health.Status       `json:"provider_health,omitempty"`
}

func round(v float64, places float64) float64 {
	mult := math.Pow(10, places)
	return math.Round(v*mult) / mult
}

// HandleStats serves GET /api/stats: aggregate counts and breakdowns
// over the full log ring (spec.md §4.8).
func (s *Server) HandleStats(w http.ResponseWriter, r *http.Request) {
	logs := s.Store.GetLogs()
	cfg := s.Store.GetConfig()

	resp := statsResponse{
		ProviderBreakdown:    make(map[string]*providerBreakdown),
		ModelBreakdown:       make(map[string]*modelBreakdown),
		ComplexityTierCounts: make(map[string]int),
		ActiveProfile:        cfg.ActiveProfile,
	}

	var totalDuration int64
	for _, log := range logs {
		resp.Requests++
		totalDuration += log.DurationMS

		if log.Status == state.LogSuccess {
			resp.Successful++
		} else {
			resp.Failed++
		}
		if log.EstimatedCost != nil {
			resp.TotalCost += *log.EstimatedCost
		}
		if log.AgenticMode {
			resp.AgenticRequests++
		}
		if log.SessionPinned {
			resp.SessionPinnedCount++
		}
		if log.ComplexityTier != "" {
			resp.ComplexityTierCounts[log.ComplexityTier]++
		}

		if log.Provider != "" {
			pb, ok := resp.ProviderBreakdown[log.Provider]
			if !ok {
				pb = &providerBreakdown{}
				resp.ProviderBreakdown[log.Provider] = pb
			}
			pb.Requests++
			if log.Status == state.LogSuccess {
				pb.Successful++
			} else {
				pb.Failed++
			}
			if log.EstimatedCost != nil {
				pb.TotalCost += *log.EstimatedCost
			}
			pb.AvgDurationMS += float64(log.DurationMS)
		}

		if log.EffectiveModel != "" {
			mb, ok := resp.ModelBreakdown[log.EffectiveModel]
			if !ok {
				mb = &modelBreakdown{}
				resp.ModelBreakdown[log.EffectiveModel] = mb
			}
			mb.Requests++
			if log.EstimatedCost != nil {
				mb.TotalCost += *log.EstimatedCost
			}
		}
	}

	for _, pb := range resp.ProviderBreakdown {
		if pb.Requests > 0 {
			pb.AvgDurationMS = round(pb.AvgDurationMS/float64(pb.Requests), 2)
		}
		pb.TotalCost = round(pb.TotalCost, 4)
	}
	for _, mb := range resp.ModelBreakdown {
		mb.TotalCost = round(mb.TotalCost, 4)
	}

	if resp.Requests > 0 {
		resp.AvgDurationMS = round(float64(totalDuration)/float64(resp.Requests), 2)
	}
	resp.TotalCost = round(resp.TotalCost, 4)
	resp.LiveSessions = s.Store.SessionCount()

	sort.Slice(logs, func(i, j int) bool { return logs[i].Timestamp.After(logs[j].Timestamp) })
	if len(logs) > 10 {
		logs = logs[:10]
	}
	resp.RecentLogs = logs

	if s.Health != nil {
		resp.ProviderHealth = s.Health.Snapshot()
	}

	writeJSON(w, http.StatusOK, resp)
}
