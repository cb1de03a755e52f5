// Package health implements a passive provider health prober, a
// feature this gateway's distilled specification omits but a complete
// implementation of the system benefits from (SPEC_FULL.md DOMAIN
// STACK). It is disabled by default and never influences
// internal/router's candidate selection — it only feeds /api/stats and
// the orchestrator's per-candidate failure log line. Adapted from the teacher's llm/router.go
// startProviderHealthChecks/probeProviders ticker-loop shape, simplified
// to a liveness probe (HTTP reachability) rather than a full
// HealthCheck(ctx) provider method, and paced with golang.org/x/time/rate
// instead of a bare ticker so a large provider list cannot burst the
// upstream with simultaneous probes.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/claw-router/claw-router/internal/config"
	"github.com/claw-router/claw-router/internal/state"
)

// Status is one provider's most recently observed liveness.
type Status struct {
	Healthy   bool      `json:"healthy"`
	LatencyMS int64     `json:"latency_ms"`
	CheckedAt time.Time `json:"checked_at"`
	Error     string    `json:"error,omitempty"`
}

// Prober periodically probes every enabled provider's endpoint and
// keeps the most recent Status per provider id.
type Prober struct {
	store  *state.Store
	client *http.Client
	logger *zap.Logger

	mu     sync.RWMutex
	status map[string]Status

	cancel context.CancelFunc
}

func New(store *state.Store, logger *zap.Logger) *Prober {
	return &Prober{
		store:  store,
		client: &http.Client{Timeout: 5 * time.Second},
		logger: logger,
		status: make(map[string]Status),
	}
}

// Start launches the probe loop in the background if the live config
// has health checking enabled; it is a no-op otherwise. Call Stop to
// halt it.
func (p *Prober) Start(ctx context.Context) {
	cfg := p.store.GetConfig()
	if !cfg.HealthCheck.Enabled {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	interval := time.Duration(cfg.HealthCheck.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}

	go func() {
		p.probeAll(ctx)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.probeAll(ctx)
			}
		}
	}()
}

// Stop halts the probe loop started by Start.
func (p *Prober) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
}

// probeAll launches one probe per enabled provider concurrently via
// errgroup, each gated by a shared limiter so a large provider list
// never bursts the network simultaneously; a single slow or erroring
// provider never blocks the others' probes.
func (p *Prober) probeAll(ctx context.Context) {
	cfg := p.store.GetConfig()
	limiter := rate.NewLimiter(rate.Every(200*time.Millisecond), 1)

	g, gctx := errgroup.WithContext(ctx)
	for _, prov := range cfg.Providers {
		if !prov.Enabled {
			continue
		}
		prov := prov
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return nil
			}
			p.probeOne(gctx, prov)
			return nil
		})
	}
	_ = g.Wait()
}

func (p *Prober) probeOne(ctx context.Context, prov config.Provider) {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, prov.Endpoint, nil)
	var healthy bool
	var errMsg string
	if err == nil {
		resp, doErr := p.client.Do(req)
		if doErr != nil {
			errMsg = doErr.Error()
		} else {
			resp.Body.Close()
			// Any response at all (even 401/404) means the endpoint is
			// reachable; only transport-level failures count as unhealthy.
			healthy = true
		}
	} else {
		errMsg = err.Error()
	}
	latency := time.Since(start)

	st := Status{Healthy: healthy, LatencyMS: latency.Milliseconds(), CheckedAt: time.Now(), Error: errMsg}
	p.mu.Lock()
	p.status[prov.ID] = st
	p.mu.Unlock()

	if !healthy {
		p.logger.Warn("provider health probe failed", zap.String("provider", prov.ID), zap.String("error", errMsg))
	}
}

// Snapshot returns a copy of every provider's most recent Status.
func (p *Prober) Snapshot() map[string]Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]Status, len(p.status))
	for k, v := range p.status {
		out[k] = v
	}
	return out
}
