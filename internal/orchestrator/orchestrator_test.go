package orchestrator

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

	"github.com/claw-router/claw-router/internal/cache"
	"github.com/claw-router/claw-router/internal/config"
	"github.com/claw-router/claw-router/internal/state"
)

func newTestHandler(t *testing.T, cfg config.Config) (*Handler, *state.Store) {
	t.Helper()
	path := t.TempDir() + "/config.json"
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	store := state.New(path, zap.NewNop())
	return &Handler{
		Store:  store,
		Cache:  cache.New(store.GetConfig().Cache),
		Logger: zap.NewNop(),
		Client: http.DefaultClient,
	}, store
}

func chatBody(model string, userText string) []byte {
	payload := map[string]interface{}{
		"model": model,
		"messages": []map[string]string{
			{"role": "user", "content": userText},
		},
	}
	data, _ := json.Marshal(payload)
	return data
}

func mockOpenAIServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"chatcmpl-1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"hi"},"finish_reason":"stop"}],"usage":{"prompt_tokens":5,"completion_tokens":3}}`))
	}))
}

// TestSuccessfulRoute mirrors spec.md S1: a simple request is routed to
// the sole matching enabled provider and returns 200.
func TestSuccessfulRoute(t *testing.T) {
	mock := mockOpenAIServer(t)
	defer mock.Close()

	cfg := config.DefaultConfig()
	cfg.Providers = []config.Provider{{
		ID: "p1", Name: "P1", Kind: config.KindOpenAI, Endpoint: mock.URL,
		Tier: config.TierCheap, Enabled: true, Priority: 1,
		Models: []config.Model{{ID: "test-model", InputCostPer1M: 1, OutputCostPer1M: 2}},
	}}
	cfg.Profiles = []config.RoutingProfile{{Name: "auto", AllowedTiers: []config.Tier{config.TierCheap}}}
	cfg.ActiveProfile = "auto"
	cfg.Scorer.Enabled = false

	h, store := newTestHandler(t, cfg)

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewReader(chatBody("test-model", "hello")))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	logs := store.GetLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, state.LogSuccess, logs[0].Status)
	assert.Equal(t, "p1", logs[0].Provider)
}

// TestFallbackOnProviderFailure mirrors spec.md S3: the first candidate
// fails and the second succeeds; both appear in providers_tried.
func TestFallbackOnProviderFailure(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()
	good := mockOpenAIServer(t)
	defer good.Close()

	cfg := config.DefaultConfig()
	cfg.Providers = []config.Provider{
		{ID: "failing", Kind: config.KindOpenAI, Endpoint: failing.URL, Tier: config.TierCheap,
			Enabled: true, Priority: 2, Models: []config.Model{{ID: "test-model"}}},
		{ID: "good", Kind: config.KindOpenAI, Endpoint: good.URL, Tier: config.TierCheap,
			Enabled: true, Priority: 1, Models: []config.Model{{ID: "test-model"}}},
	}
	cfg.Profiles = []config.RoutingProfile{{Name: "auto", AllowedTiers: []config.Tier{config.TierCheap}}}
	cfg.ActiveProfile = "auto"
	cfg.Scorer.Enabled = false

	h, store := newTestHandler(t, cfg)

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewReader(chatBody("test-model", "hello")))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	logs := store.GetLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, []string{"failing", "good"}, logs[0].ProvidersTried)
	assert.Equal(t, "good", logs[0].Provider)
}

// TestAllProvidersFailed mirrors spec.md S4: every candidate errors, so
// the gateway returns 503 with the literal "All providers failed".
func TestAllProvidersFailed(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer failing.Close()

	cfg := config.DefaultConfig()
	cfg.Providers = []config.Provider{
		{ID: "only", Kind: config.KindOpenAI, Endpoint: failing.URL, Tier: config.TierCheap,
			Enabled: true, Priority: 1, Models: []config.Model{{ID: "test-model"}}},
	}
	cfg.Profiles = []config.RoutingProfile{{Name: "auto", AllowedTiers: []config.Tier{config.TierCheap}}}
	cfg.ActiveProfile = "auto"
	cfg.Scorer.Enabled = false

	h, store := newTestHandler(t, cfg)
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewReader(chatBody("test-model", "hello")))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "All providers failed", rec.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))

	logs := store.GetLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, state.LogError, logs[0].Status)
}

// TestNoProviderForModel mirrors spec.md S2: no provider serves the
// requested model, so the gateway returns 400 with the literal
// "No provider found for model" and never attempts an upstream call.
func TestNoProviderForModel(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Providers = nil
	cfg.Profiles = []config.RoutingProfile{{Name: "auto", AllowedTiers: []config.Tier{config.TierCheap}}}
	cfg.ActiveProfile = "auto"
	cfg.Scorer.Enabled = false

	h, store := newTestHandler(t, cfg)
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewReader(chatBody("nonexistent-model", "hello")))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No provider found for model", rec.Body.String())
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))

	logs := store.GetLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, state.LogNoProvider, logs[0].Status)
}

// TestTierFilteringExcludesDisallowedProvider mirrors spec.md S6: a
// provider outside the active profile's allowed tiers receives zero
// calls and the request fails as no-provider.
func TestTierFilteringExcludesDisallowedProvider(t *testing.T) {
	called := false
	sub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	defer sub.Close()

	cfg := config.DefaultConfig()
	cfg.Providers = []config.Provider{
		{ID: "sub-only", Kind: config.KindOpenAI, Endpoint: sub.URL, Tier: config.TierSubscription,
			Enabled: true, Priority: 1, Models: []config.Model{{ID: "test-model"}}},
	}
	cfg.Profiles = []config.RoutingProfile{{Name: "free-only", AllowedTiers: []config.Tier{config.TierFree}}}
	cfg.ActiveProfile = "free-only"
	cfg.Scorer.Enabled = false

	h, _ := newTestHandler(t, cfg)
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewReader(chatBody("test-model", "hello")))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, called)
}

// TestCacheHitSkipsUpstream ensures a second identical request is
// served from the cache without another upstream call.
func TestCacheHitSkipsUpstream(t *testing.T) {
	calls := 0
	mock := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"chatcmpl-1","choices":[{"index":0,"message":{"role":"assistant","content":"hi"},"finish_reason":"stop"}],"usage":{"prompt_tokens":1,"completion_tokens":1}}`))
	}))
	defer mock.Close()

	cfg := config.DefaultConfig()
	cfg.Cache = config.CacheConfig{Enabled: true, TTLSeconds: 3600, CacheDir: t.TempDir()}
	cfg.Providers = []config.Provider{{
		ID: "p1", Kind: config.KindOpenAI, Endpoint: mock.URL, Tier: config.TierCheap,
		Enabled: true, Priority: 1, Models: []config.Model{{ID: "test-model"}},
	}}
	cfg.Profiles = []config.RoutingProfile{{Name: "auto", AllowedTiers: []config.Tier{config.TierCheap}}}
	cfg.ActiveProfile = "auto"
	cfg.Scorer.Enabled = false

	h, store := newTestHandler(t, cfg)

	body := chatBody("test-model", "hello cache")
	req1 := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewReader(body))
	rec1 := httptest.NewRecorder()
	h.ServeHTTP(rec1, req1)
	assert.Equal(t, http.StatusOK, rec1.Code)

	req2 := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewReader(body))
	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, req2)
	assert.Equal(t, http.StatusOK, rec2.Code)
	assert.Equal(t, rec1.Body.Bytes(), rec2.Body.Bytes())

	assert.Equal(t, 1, calls)
	logs := store.GetLogs()
	require.Len(t, logs, 2)
	assert.Equal(t, state.CacheMiss, logs[0].CacheStatus)
	assert.Equal(t, state.CacheHit, logs[1].CacheStatus)
}

func TestMalformedBodyReturns422(t *testing.T) {
	cfg := config.DefaultConfig()
	h, _ := newTestHandler(t, cfg)

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewReader([]byte(`not json`)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestMissingModelFieldReturns422(t *testing.T) {
	cfg := config.DefaultConfig()
	h, _ := newTestHandler(t, cfg)

	payload := map[string]interface{}{"messages": []map[string]string{{"role": "user", "content": "hi"}}}
	data, _ := json.Marshal(payload)
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewReader(data))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

// TestSessionPinningBypassesScoring mirrors spec.md's session-pinning
// behavior (§4.7): once a session is pinned, its second request goes
// straight to the pinned provider/model without running the scorer.
func TestSessionPinningBypassesScoring(t *testing.T) {
	mock := mockOpenAIServer(t)
	defer mock.Close()

	cfg := config.DefaultConfig()
	cfg.Session = config.SessionConfig{Enabled: true, TTLSeconds: 3600}
	cfg.Providers = []config.Provider{{
		ID: "p1", Kind: config.KindOpenAI, Endpoint: mock.URL, Tier: config.TierCheap,
		Enabled: true, Priority: 1, Models: []config.Model{{ID: "test-model"}},
	}}
	cfg.Profiles = []config.RoutingProfile{{Name: "auto", AllowedTiers: []config.Tier{config.TierCheap}}}
	cfg.ActiveProfile = "auto"

	h, store := newTestHandler(t, cfg)

	mkReq := func() *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewReader(chatBody("test-model", "hello")))
		r.Header.Set("X-Session-Id", "sess-1")
		return r
	}

	rec1 := httptest.NewRecorder()
	h.ServeHTTP(rec1, mkReq())
	assert.Equal(t, http.StatusOK, rec1.Code)
	assert.Equal(t, 1, store.SessionCount())

	rec2 := httptest.NewRecorder()
	h.ServeHTTP(rec2, mkReq())
	assert.Equal(t, http.StatusOK, rec2.Code)

	logs := store.GetLogs()
	require.Len(t, logs, 2)
	assert.False(t, logs[0].SessionPinned)
	assert.True(t, logs[1].SessionPinned)
	assert.Empty(t, logs[1].ComplexityTier)
}

// TestPinnedForwardFailureFallsThroughToNormalPipeline mirrors spec.md
// §4.7 step 3: when the pinned provider fails, the request must not
// fail outright but fall through to the normal scorer+router pipeline
// and succeed against another enabled candidate.
func TestPinnedForwardFailureFallsThroughToNormalPipeline(t *testing.T) {
	failingPinned := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failingPinned.Close()
	fallback := mockOpenAIServer(t)
	defer fallback.Close()

	cfg := config.DefaultConfig()
	cfg.Session = config.SessionConfig{Enabled: true, TTLSeconds: 3600}
	cfg.Providers = []config.Provider{
		{ID: "pinned", Kind: config.KindOpenAI, Endpoint: failingPinned.URL, Tier: config.TierCheap,
			Enabled: true, Priority: 1, Models: []config.Model{{ID: "test-model"}}},
		{ID: "fallback", Kind: config.KindOpenAI, Endpoint: fallback.URL, Tier: config.TierCheap,
			Enabled: true, Priority: 2, Models: []config.Model{{ID: "test-model"}}},
	}
	cfg.Profiles = []config.RoutingProfile{{Name: "auto", AllowedTiers: []config.Tier{config.TierCheap}}}
	cfg.ActiveProfile = "auto"
	cfg.Scorer.Enabled = false

	h, store := newTestHandler(t, cfg)
	store.SetSession("sess-1", "pinned", "test-model")

	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", bytes.NewReader(chatBody("test-model", "hello")))
	req.Header.Set("X-Session-Id", "sess-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	logs := store.GetLogs()
	require.Len(t, logs, 1)
	assert.True(t, logs[0].SessionPinned)
	assert.Equal(t, state.LogSuccess, logs[0].Status)
	assert.Equal(t, "fallback", logs[0].Provider)
	assert.Equal(t, []string{"pinned", "fallback"}, logs[0].ProvidersTried)
}
