package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/claw-router/claw-router/internal/config"
	"github.com/claw-router/claw-router/internal/state"
)

func newTestServer(t *testing.T, cfg config.Config) (*Server, *state.Store) {
	t.Helper()
	path := t.TempDir() + "/config.json"
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	store := state.New(path, zap.NewNop())
	return New(store, zap.NewNop()), store
}

func TestListModelsIncludesVirtualRouterEntries(t *testing.T) {
	s, _ := newTestServer(t, config.DefaultConfig())

	req := httptest.NewRequest(http.MethodGet, "/v1/models", nil)
	w := httptest.NewRecorder()
	s.HandleListModels(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp modelListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "list", resp.Object)

	var ids []string
	for _, m := range resp.Data {
		ids = append(ids, m.ID)
	}
	assert.Contains(t, ids, "router/auto")
}

func TestGetConfigRoundTrips(t *testing.T) {
	cfg := config.DefaultConfig()
	s, _ := newTestServer(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
	w := httptest.NewRecorder()
	s.HandleGetConfig(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got config.Config
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, cfg.ActiveProfile, got.ActiveProfile)
}

func TestPostConfigPersists(t *testing.T) {
	s, store := newTestServer(t, config.DefaultConfig())

	cfg := config.DefaultConfig()
	cfg.ActiveProfile = "eco"
	body, _ := json.Marshal(cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/config", bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.HandlePostConfig(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "eco", store.GetConfig().ActiveProfile)
}

func TestStatsReflectsLogs(t *testing.T) {
	s, store := newTestServer(t, config.DefaultConfig())

	log := state.NewRequestLog("test-model")
	log.Status = state.LogSuccess
	log.Provider = "openai"
	log.EffectiveModel = "test-model"
	cost := 0.5
	log.EstimatedCost = &cost
	store.AddLog(*log)

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	w := httptest.NewRecorder()
	s.HandleStats(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp statsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Requests)
	assert.Equal(t, 1, resp.Successful)
	assert.Equal(t, 0, resp.Failed)
}

func TestListLogsFiltersAndPaginates(t *testing.T) {
	s, store := newTestServer(t, config.DefaultConfig())

	for i := 0; i < 3; i++ {
		log := state.NewRequestLog("model-a")
		log.Status = state.LogSuccess
		log.Provider = "openai"
		store.AddLog(*log)
	}
	failing := state.NewRequestLog("model-b")
	failing.Status = state.LogError
	store.AddLog(*failing)

	req := httptest.NewRequest(http.MethodGet, "/api/logs?status=success&limit=2", nil)
	w := httptest.NewRecorder()
	s.HandleListLogs(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp logsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Total)
	assert.Len(t, resp.Logs, 2)
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t, config.DefaultConfig())
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	s.HandleHealthz(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
