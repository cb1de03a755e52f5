// Package orchestrator implements the gateway's request pipeline (C7,
// spec.md §4.7): the POST /v1/chat/completions handler that ties
// together session pinning, the response cache, the complexity scorer,
// the router, and the provider adapters into one request lifecycle.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/claw-router/claw-router/internal/cache"
	"github.com/claw-router/claw-router/internal/config"
	"github.com/claw-router/claw-router/internal/gwerr"
	"github.com/claw-router/claw-router/internal/health"
	"github.com/claw-router/claw-router/internal/metrics"
	"github.com/claw-router/claw-router/internal/router"
	"github.com/claw-router/claw-router/internal/scorer"
	"github.com/claw-router/claw-router/internal/state"
)

var tracer = otel.Tracer("claw-router/orchestrator")

// Handler serves POST /v1/chat/completions.
type Handler struct {
	Store  *state.Store
	Cache  *cache.Cache
	Logger *zap.Logger
	Client *http.Client

	// Health is optional; when set, fan-out adds a "healthy" hint field
	// to each failed candidate's log line, sourced from the passive
	// prober's last snapshot. It
	// never influences candidate order or selection.
	Health *health.Prober

	// Metrics is optional; when set, every terminal request and cache
	// lookup is recorded for /metrics.
	Metrics *metrics.Collector
}

// New builds a Handler wired to the shared Store; it constructs its own
// Cache from the Store's current config so callers don't have to.
func New(store *state.Store, logger *zap.Logger) *Handler {
	return &Handler{
		Store:  store,
		Cache:  cache.New(store.GetConfig().Cache),
		Logger: logger,
		Client: defaultHTTPClient,
	}
}

// chatRequest is the subset of the OpenAI-compatible request body this
// gateway inspects directly; everything else passes through as extras.
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       json.RawMessage `json:"messages"`
	ConversationID string          `json:"conversation_id,omitempty"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	start := time.Now()
	extras, req, err := decodeRequest(r)
	if err != nil {
		writeError(w, gwerr.New(gwerr.CodeInvalidRequest, err.Error()).WithHTTPStatus(http.StatusUnprocessableEntity))
		return
	}

	log := state.NewRequestLog(req.Model)
	defer func() {
		elapsed := time.Since(start)
		log.DurationMS = elapsed.Milliseconds()
		h.Store.AddLog(*log)
		if h.Metrics != nil {
			h.Metrics.ObserveRequest(string(log.Status), log.Provider, elapsed.Seconds())
			if log.EstimatedCost != nil {
				h.Metrics.ObserveCost(log.Provider, *log.EstimatedCost)
			}
		}
	}()

	var messages []scorer.Message
	if jsonErr := json.Unmarshal(req.Messages, &messages); jsonErr != nil {
		writeError(w, gwerr.New(gwerr.CodeInvalidRequest, "messages must be an array").WithHTTPStatus(http.StatusUnprocessableEntity))
		log.Status = state.LogError
		log.ErrorMessage = "messages must be an array"
		return
	}

	cfg := h.Store.GetConfig()

	profileOverride, _ := router.ParseProfileOverride(req.Model)
	requestedModel := req.Model

	sid := SessionID(r, req.ConversationID, messages)
	log.SessionID = sid

	var pinnedProvider *config.Provider
	var pinnedModel string
	bypassScoring := false
	if cfg.Session.Enabled && sid != "" {
		ttl := time.Duration(cfg.Session.TTLSeconds) * time.Second
		if entry, ok := h.Store.GetSession(sid, ttl); ok {
			for i := range cfg.Providers {
				if cfg.Providers[i].ID == entry.ProviderID {
					pinnedProvider = &cfg.Providers[i]
					break
				}
			}
			if pinnedProvider != nil {
				pinnedModel = entry.ModelID
				bypassScoring = true
				log.SessionPinned = true
			}
		}
	}

	_, toolsPresent := extras["tools"]

	var complexityTier *scorer.Tier
	var agentic bool
	// runScoring is deferred into a closure so the pinned-forward-failure
	// path (spec.md §4.7 step 3: "On pinned-forward failure, fall through
	// to the normal pipeline") can invoke it lazily, since a pinned
	// request normally never scores at all.
	runScoring := func() {
		scoreCfg := cfg.Scorer
		var result scorer.Result
		if scoreCfg.Enabled {
			result = scorer.Score(messages, scoreCfg)
			t := result.Tier
			complexityTier = &t
			log.ComplexityTier = string(result.Tier)
			score := result.RawScore
			log.ComplexityScore = &score
		}
		agentic = toolsPresent || cfg.AgenticMode || result.AgenticKeywordCount >= 2
		log.AgenticMode = agentic
	}
	if !bypassScoring {
		runScoring()
	} else {
		log.AgenticMode = agentic
	}

	cacheKey := cache.Key(requestedModel, req.Messages, extras)
	cacheable := cfg.Cache.Enabled && !bypassScoring
	if cacheable {
		log.CacheStatus = state.CacheMiss
	} else {
		log.CacheStatus = state.CacheSkip
	}

	clientAuth := r.Header.Get("Authorization")
	var meta fetchMeta

	var promptText string
	for _, m := range messages {
		promptText += textOf(m.Content)
	}
	promptTokens, tokensKnown := router.EstimateTokens(promptText)

	fetch := func() ([]byte, error) {
		fanCtx, span := tracer.Start(r.Context(), "orchestrator.fanout")
		defer span.End()

		var healthSnapshot map[string]health.Status
		if h.Health != nil {
			healthSnapshot = h.Health.Snapshot()
		}

		// attempt fans out across one ordered candidate list, returning
		// the first success; it records accounting into meta as it goes
		// so both the pinned attempt and its normal-pipeline fallback
		// share the same bookkeeping and logging.
		attempt := func(effectiveModel string, candidates []config.Provider) ([]byte, error, bool) {
			meta.effectiveModel = effectiveModel
			var lastErr error
			for _, p := range candidates {
				meta.providersTried = append(meta.providersTried, p.ID)

				ctx, cancel := context.WithTimeout(fanCtx, 55*time.Second)
				result, err := forwardToProvider(ctx, h.Client, p, effectiveModel, req.Messages, extras, clientAuth)
				cancel()
				if err != nil {
					lastErr = err
					fields := []zap.Field{
						zap.String("provider", p.ID), zap.String("model", effectiveModel), zap.Error(err),
					}
					if st, ok := healthSnapshot[p.ID]; ok {
						fields = append(fields, zap.Bool("healthy", st.Healthy))
					}
					h.Logger.Warn("provider attempt failed", fields...)
					continue
				}

				meta.provider = p.ID
				meta.inputTokens = result.InputTokens
				meta.outputTokens = result.OutputTokens
				meta.cost = EstimateCost(p, effectiveModel, result.InputTokens, result.OutputTokens)
				return result.Body, nil, true
			}
			return nil, lastErr, false
		}

		normalCandidates := func() (string, []config.Provider) {
			decision := router.Route(router.Request{
				Cfg:             cfg,
				RequestedModel:  requestedModel,
				Complexity:      complexityTier,
				ProfileOverride: profileOverride,
				UseAgentic:      agentic,
			})
			effectiveModel := decision.EffectiveModel
			candidates := decision.Candidates
			if tokensKnown {
				// Context-fit pre-check (SPEC_FULL.md DOMAIN STACK): purely
				// narrows candidates that can't fit the prompt, never
				// changes scoring/routing order or fails the request.
				candidates = router.FilterByContextWindow(candidates, effectiveModel, promptTokens)
			}
			return effectiveModel, candidates
		}

		allFailed := func(lastErr error) error {
			gerr := gwerr.New(gwerr.CodeAllProvidersFailed, "All providers failed").WithHTTPStatus(http.StatusServiceUnavailable).WithRetryable(true)
			if lastErr != nil {
				gerr = gerr.WithCause(lastErr)
			}
			return gerr
		}

		if pinnedProvider != nil {
			body, lastErr, ok := attempt(pinnedModel, []config.Provider{*pinnedProvider})
			if ok {
				return body, nil
			}

			// spec.md §4.7 step 3: on pinned-forward failure, fall
			// through to the normal pipeline rather than failing the
			// request outright.
			runScoring()
			effectiveModel, candidates := normalCandidates()
			filtered := make([]config.Provider, 0, len(candidates))
			for _, p := range candidates {
				if p.ID == pinnedProvider.ID {
					continue
				}
				filtered = append(filtered, p)
			}
			if len(filtered) == 0 {
				meta.effectiveModel = effectiveModel
				return nil, allFailed(lastErr)
			}

			body, lastErr2, ok := attempt(effectiveModel, filtered)
			if ok {
				return body, nil
			}
			if lastErr2 != nil {
				lastErr = lastErr2
			}
			return nil, allFailed(lastErr)
		}

		effectiveModel, candidates := normalCandidates()
		if len(candidates) == 0 {
			meta.effectiveModel = effectiveModel
			return nil, gwerr.New(gwerr.CodeNoProvider, "No provider found for model").WithHTTPStatus(http.StatusBadRequest)
		}

		body, lastErr, ok := attempt(effectiveModel, candidates)
		if ok {
			return body, nil
		}
		return nil, allFailed(lastErr)
	}

	var body []byte
	var hit bool
	var err2 error
	if cacheable {
		body, hit, err2 = h.Cache.GetOrFetch(cacheKey, requestedModel, fetch)
		if h.Metrics != nil {
			h.Metrics.ObserveCache(hit)
		}
	} else {
		body, err2 = fetch()
	}

	log.EffectiveModel = meta.effectiveModel
	log.ProvidersTried = append(log.ProvidersTried, meta.providersTried...)

	if hit {
		log.CacheStatus = state.CacheHit
		log.Status = state.LogSuccess
		log.StatusCode = http.StatusOK
		writeRaw(w, body)
		return
	}

	if err2 != nil {
		var gerr *gwerr.Error
		if ge, ok := err2.(*gwerr.Error); ok {
			gerr = ge
		} else {
			gerr = gwerr.New(gwerr.CodeUpstream, err2.Error()).WithHTTPStatus(http.StatusServiceUnavailable)
		}
		if gerr.Code == gwerr.CodeNoProvider {
			log.Status = state.LogNoProvider
		} else {
			log.Status = state.LogError
		}
		log.StatusCode = gerr.HTTPStatus
		log.ErrorMessage = gerr.Message
		writeError(w, gerr)
		return
	}

	log.Provider = meta.provider
	log.Status = state.LogSuccess
	log.StatusCode = http.StatusOK
	log.InputTokens = &meta.inputTokens
	log.OutputTokens = &meta.outputTokens
	log.EstimatedCost = &meta.cost

	if cfg.Session.Enabled && sid != "" {
		if pinnedProvider != nil {
			h.Store.TouchSession(sid)
		} else {
			h.Store.SetSession(sid, meta.provider, meta.effectiveModel)
		}
	}

	writeRaw(w, body)
}

// fetchMeta carries accounting data out of the fetch closure passed to
// cache.GetOrFetch, since GetOrFetch itself only returns the response
// body (singleflight fans the same bytes out to every waiter).
type fetchMeta struct {
	effectiveModel string
	provider       string
	providersTried []string
	inputTokens    int64
	outputTokens   int64
	cost           float64
}

// decodeRequest reads the body once, extracting the recognized fields
// into chatRequest while preserving every other top-level key as an
// "extra" for forwarding, cache-key computation, and Anthropic
// translation.
func decodeRequest(r *http.Request) (extras map[string]json.RawMessage, req chatRequest, err error) {
	var raw map[string]json.RawMessage
	if jsonErr := json.NewDecoder(r.Body).Decode(&raw); jsonErr != nil {
		return nil, chatRequest{}, fmt.Errorf("invalid JSON body: %w", jsonErr)
	}

	modelRaw, ok := raw["model"]
	if !ok {
		return nil, chatRequest{}, fmt.Errorf("missing required field: model")
	}
	if jsonErr := json.Unmarshal(modelRaw, &req.Model); jsonErr != nil {
		return nil, chatRequest{}, fmt.Errorf("model must be a string")
	}

	messagesRaw, ok := raw["messages"]
	if !ok {
		return nil, chatRequest{}, fmt.Errorf("missing required field: messages")
	}
	req.Messages = messagesRaw

	if cidRaw, ok := raw["conversation_id"]; ok {
		_ = json.Unmarshal(cidRaw, &req.ConversationID)
	}

	extras = make(map[string]json.RawMessage, len(raw))
	for k, v := range raw {
		if k == "model" || k == "messages" || k == "conversation_id" {
			continue
		}
		extras[k] = v
	}

	return extras, req, nil
}

func writeRaw(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// writeError writes e.Message verbatim as a text/plain body, matching
// the original_source handlers' `(StatusCode, &str).into_response()`
// shape (spec.md §4.8's HTTP endpoints section: "errors are text/plain
// with the status code"). Literal error strings such as "No provider
// found for model" and "All providers failed" must reach the wire
// byte-for-byte, so no JSON envelope wraps them.
func writeError(w http.ResponseWriter, e *gwerr.Error) {
	status := e.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(e.Message))
}
