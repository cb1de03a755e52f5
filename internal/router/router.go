// Package router implements the gateway's routing decision (C5):
// given a Config, a requested model id, an optional complexity tier,
// and an agentic flag, it resolves the effective model id and an
// ordered list of candidate providers, following spec.md §4.5. The
// profile-resolution and tie-break sort are grounded on the original
// claw-router's router.rs; the complexity-aware model-mapping layer
// has no surviving original_source version and is built fresh from
// the spec text.
package router

import (
	"sort"
	"strings"

	"github.com/claw-router/claw-router/internal/config"
	"github.com/claw-router/claw-router/internal/scorer"
)

// defaultEligibleTiers is the complexity->eligible-tiers map from
// spec.md §4.5. Free is deliberately absent for Complex/Reasoning;
// spec.md §9 flags this as possibly surprising but does not direct a
// change, so it is implemented as specified.
var defaultEligibleTiers = map[scorer.Tier][]config.Tier{
	scorer.TierSimple:    {config.TierFree, config.TierCheap},
	scorer.TierMedium:    {config.TierCheap, config.TierFree, config.TierPayPerRequest},
	scorer.TierComplex:   {config.TierSubscription, config.TierCheap, config.TierPayPerRequest},
	scorer.TierReasoning: {config.TierSubscription, config.TierPayPerRequest},
}

// Request is the router's input.
type Request struct {
	Cfg             config.Config
	RequestedModel  string
	Complexity      *scorer.Tier
	ProfileOverride string
	UseAgentic      bool
}

// Decision is the router's output: the model id actually sent
// upstream, and candidates in the order they should be tried.
type Decision struct {
	EffectiveModel string
	Candidates     []config.Provider
	Profile        config.RoutingProfile
}

// Route resolves req against req.Cfg following spec.md §4.5 steps 1-8.
func Route(req Request) Decision {
	profile, _ := req.Cfg.ResolveActiveProfile(req.ProfileOverride)

	mapping := profile.ModelMapping
	if req.UseAgentic && len(profile.AgenticModelMapping) > 0 {
		mapping = profile.AgenticModelMapping
	}

	effectiveModel := req.RequestedModel
	var mappedProviderID string
	modelRemapped := false
	if req.Complexity != nil {
		if m, ok := mapping[string(*req.Complexity)]; ok && m.ModelID != "" {
			effectiveModel = m.ModelID
			mappedProviderID = m.ProviderID
			modelRemapped = true
		}
	}

	effectiveTiers := profile.AllowedTiers
	if req.Complexity != nil {
		if elig, ok := defaultEligibleTiers[*req.Complexity]; ok {
			intersected := intersectPreserveOrder(profile.AllowedTiers, elig)
			if len(intersected) > 0 {
				effectiveTiers = intersected
			}
		}
	}

	candidates := filterCandidates(req.Cfg.Providers, effectiveModel, mappedProviderID, effectiveTiers)

	// Fallback: if the mapping changed the model id and nothing matched,
	// retry against the original requested model with the unaugmented
	// tier filter (spec.md §4.5 step 7; the original model id is used
	// on fallback, not the mapped one — spec.md §9 open question).
	if len(candidates) == 0 && modelRemapped {
		effectiveModel = req.RequestedModel
		candidates = filterCandidates(req.Cfg.Providers, effectiveModel, "", profile.AllowedTiers)
	}

	sortCandidates(candidates, effectiveTiers, effectiveModel)

	return Decision{EffectiveModel: effectiveModel, Candidates: candidates, Profile: profile}
}

func intersectPreserveOrder(allowed []config.Tier, eligible []config.Tier) []config.Tier {
	eligSet := make(map[config.Tier]bool, len(eligible))
	for _, t := range eligible {
		eligSet[t] = true
	}
	var out []config.Tier
	for _, t := range allowed {
		if eligSet[t] {
			out = append(out, t)
		}
	}
	return out
}

func filterCandidates(providers []config.Provider, modelID, mappedProviderID string, tiers []config.Tier) []config.Provider {
	tierSet := make(map[config.Tier]bool, len(tiers))
	for _, t := range tiers {
		tierSet[t] = true
	}
	var out []config.Provider
	for _, p := range providers {
		if !p.Enabled {
			continue
		}
		if _, ok := p.ModelForID(modelID); !ok {
			continue
		}
		if mappedProviderID != "" {
			if p.ID != mappedProviderID {
				continue
			}
		} else if !tierSet[p.Tier] {
			continue
		}
		out = append(out, p)
	}
	return out
}

// sortCandidates orders providers by (tier position in effectiveTiers
// ascending, matching-model input cost ascending, priority descending),
// matching router.rs's test_routing_logic exactly. modelID is the
// effective model every candidate was filtered on, so each candidate's
// cost is looked up against that specific model.
func sortCandidates(providers []config.Provider, effectiveTiers []config.Tier, modelID string) {
	pos := make(map[config.Tier]int, len(effectiveTiers))
	for i, t := range effectiveTiers {
		pos[t] = i
	}
	tierPos := func(t config.Tier) int {
		if i, ok := pos[t]; ok {
			return i
		}
		return len(effectiveTiers)
	}
	cost := func(p config.Provider) float64 {
		if m, ok := p.ModelForID(modelID); ok {
			return m.InputCostPer1M
		}
		return 1e18
	}
	sort.SliceStable(providers, func(i, j int) bool {
		pi, pj := providers[i], providers[j]
		ti, tj := tierPos(pi.Tier), tierPos(pj.Tier)
		if ti != tj {
			return ti < tj
		}
		ci, cj := cost(pi), cost(pj)
		if ci != cj {
			return ci < cj
		}
		return pi.Priority > pj.Priority
	})
}

// ParseProfileOverride detects the "router/<profile>" virtual model-id
// form (spec.md §4.5 "Special model-id forms"). It returns the
// profile name and true if requestedModel has that prefix.
func ParseProfileOverride(requestedModel string) (string, bool) {
	const prefix = "router/"
	if strings.HasPrefix(requestedModel, prefix) {
		return strings.TrimPrefix(requestedModel, prefix), true
	}
	return "", false
}
