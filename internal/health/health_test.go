package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/claw-router/claw-router/internal/config"
	"github.com/claw-router/claw-router/internal/state"
)

func newStore(t *testing.T, cfg config.Config) *state.Store {
	t.Helper()
	path := t.TempDir() + "/config.json"
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return state.New(path, zap.NewNop())
}

func TestDisabledByDefaultNeverProbes(t *testing.T) {
	called := false
	mock := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer mock.Close()

	cfg := config.DefaultConfig()
	cfg.Providers = []config.Provider{{ID: "p1", Enabled: true, Endpoint: mock.URL}}
	store := newStore(t, cfg)

	p := New(store, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	time.Sleep(50 * time.Millisecond)

	assert.False(t, called)
	assert.Empty(t, p.Snapshot())
}

func TestProbeMarksReachableProviderHealthy(t *testing.T) {
	mock := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer mock.Close()

	cfg := config.DefaultConfig()
	cfg.HealthCheck = config.HealthCheckConfig{Enabled: true, IntervalSeconds: 3600}
	cfg.Providers = []config.Provider{{ID: "p1", Enabled: true, Endpoint: mock.URL}}
	store := newStore(t, cfg)

	p := New(store, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()
	time.Sleep(50 * time.Millisecond)

	snap := p.Snapshot()
	require.Contains(t, snap, "p1")
	assert.True(t, snap["p1"].Healthy)
}
