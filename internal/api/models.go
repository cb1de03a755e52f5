package api

import "net/http"

// modelCreatedAt matches the original_source's hardcoded model-list
// timestamp literal (handlers.rs's ModelEntry), carried through rather
// than reinvented so clients diffing /v1/models against the original
// gateway see identical "created" values.
const modelCreatedAt = 1677610602

type modelEntry struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

type modelListResponse struct {
	Object string       `json:"object"`
	Data   []modelEntry `json:"data"`
}

// HandleListModels serves GET /v1/models: one virtual entry per
// configured profile (id "router/<profile>", owned_by "claw-router"),
// followed by one entry per (provider, model) pair (spec.md §4.8).
func (s *Server) HandleListModels(w http.ResponseWriter, r *http.Request) {
	cfg := s.Store.GetConfig()

	entries := make([]modelEntry, 0, len(cfg.Profiles)+8)
	for _, p := range cfg.Profiles {
		entries = append(entries, modelEntry{
			ID:      "router/" + p.Name,
			Object:  "model",
			Created: modelCreatedAt,
			OwnedBy: "claw-router",
		})
	}
	for _, prov := range cfg.Providers {
		for _, m := range prov.Models {
			entries = append(entries, modelEntry{
				ID:      m.ID,
				Object:  "model",
				Created: modelCreatedAt,
				OwnedBy: prov.Name,
			})
		}
	}

	writeJSON(w, http.StatusOK, modelListResponse{Object: "list", Data: entries})
}
