// Package config defines the gateway's typed configuration model:
// providers, models, routing profiles, and the scorer/cache/session
// knobs that tune the rest of the pipeline.
package config

// ProviderKind identifies the wire shape an upstream provider speaks.
type ProviderKind string

const (
	KindOpenAI       ProviderKind = "openai"
	KindAnthropic    ProviderKind = "anthropic"
	KindGoogle       ProviderKind = "google"
	KindDeepSeek     ProviderKind = "deepseek"
	KindXAI          ProviderKind = "xai"
	KindCustomOpenAI ProviderKind = "custom_openai"
)

// Tier is a provider pricing/availability tier. Its declared order
// (Subscription < Cheap < Free < PayPerRequest) is the default total
// order, but a RoutingProfile's AllowedTiers list supplies the
// effective tie-break order used by the router (see internal/router).
type Tier string

const (
	TierSubscription  Tier = "subscription"
	TierCheap         Tier = "cheap"
	TierFree          Tier = "free"
	TierPayPerRequest Tier = "pay_per_request"
)

// Model describes one model served by a Provider.
type Model struct {
	ID                      string  `json:"id"`
	Name                    string  `json:"name"`
	InputCostPer1M          float64 `json:"input_cost_per_1m"`
	OutputCostPer1M         float64 `json:"output_cost_per_1m"`
	ContextWindow           uint32  `json:"context_window"`
	SupportsVision          bool    `json:"supports_vision"`
	SupportsFunctionCalling bool    `json:"supports_function_calling"`
}

// Provider is an upstream LLM endpoint. A Provider is a routing
// candidate for a model M only if Enabled and one of Models has
// ID == M.
type Provider struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Kind     ProviderKind `json:"provider_type"`
	APIKey   string       `json:"api_key,omitempty"`
	Endpoint string       `json:"endpoint,omitempty"`
	Tier     Tier         `json:"tier"`
	Enabled  bool         `json:"enabled"`
	Priority uint8        `json:"priority"`
	Models   []Model      `json:"models"`
}

// ModelForID returns the Model served by p with the given id, if any.
func (p Provider) ModelForID(id string) (Model, bool) {
	for _, m := range p.Models {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}

// ModelMapping names the (model, provider) a complexity tier resolves
// to within a RoutingProfile. An empty ProviderID means "any provider
// that serves this model".
type ModelMapping struct {
	ModelID    string `json:"model_id"`
	ProviderID string `json:"provider_id,omitempty"`
}

// RoutingProfile is a named routing policy: which provider tiers are
// allowed, and how each complexity tier maps to a concrete model.
type RoutingProfile struct {
	Name                string                  `json:"name"`
	Description         string                  `json:"description"`
	AllowedTiers        []Tier                  `json:"allowed_tiers"`
	ModelMapping        map[string]ModelMapping `json:"model_mapping,omitempty"`
	AgenticModelMapping map[string]ModelMapping `json:"agentic_model_mapping,omitempty"`
}

// SessionConfig tunes session pinning (§4.7 session lookup).
type SessionConfig struct {
	Enabled    bool `json:"enabled"`
	TTLSeconds int64 `json:"ttl_seconds"`
}

// CacheConfig tunes the on-disk response cache (C3).
type CacheConfig struct {
	Enabled    bool   `json:"enabled"`
	TTLSeconds int64  `json:"ttl_seconds"`
	CacheDir   string `json:"cache_dir"`
}

// ScorerWeights are the per-dimension weights of the complexity
// scorer's weighted sum (§4.4).
type ScorerWeights struct {
	TokenCount          float64 `json:"token_count"`
	CodePresence        float64 `json:"code_presence"`
	ReasoningMarkers    float64 `json:"reasoning_markers"`
	TechnicalTerms      float64 `json:"technical_terms"`
	CreativeMarkers     float64 `json:"creative_markers"`
	SimpleIndicators    float64 `json:"simple_indicators"`
	MultiStepPatterns   float64 `json:"multi_step_patterns"`
	QuestionComplexity  float64 `json:"question_complexity"`
	ImperativeVerbs     float64 `json:"imperative_verbs"`
	ConstraintCount     float64 `json:"constraint_count"`
	OutputFormat        float64 `json:"output_format"`
	ReferenceComplexity float64 `json:"reference_complexity"`
	NegationComplexity  float64 `json:"negation_complexity"`
	DomainSpecificity   float64 `json:"domain_specificity"`
	AgenticTask         float64 `json:"agentic_task"`
}

// TierBoundaries are the weighted-score cutoffs classifying a request
// into a ComplexityTier.
type TierBoundaries struct {
	SimpleUpper  float64 `json:"simple_upper"`
	MediumUpper  float64 `json:"medium_upper"`
	ComplexUpper float64 `json:"complex_upper"`
}

// TokenThresholds bound the token_count dimension's raw contribution.
type TokenThresholds struct {
	ShortUpper int `json:"short_upper"`
	LongLower  int `json:"long_lower"`
}

// ScorerConfig tunes the complexity scorer (C4).
type ScorerConfig struct {
	Enabled               bool            `json:"enabled"`
	Weights               ScorerWeights   `json:"weights"`
	TierBoundaries        TierBoundaries  `json:"tier_boundaries"`
	TokenThresholds       TokenThresholds `json:"token_thresholds"`
	ConfidenceSteepness   float64         `json:"confidence_steepness"`
	ConfidenceThreshold   float64         `json:"confidence_threshold"`
	MaxTokensForceComplex int             `json:"max_tokens_force_complex"`
}

// HealthCheckConfig tunes the supplemented passive provider health
// prober (internal/health). Disabled by default so it never perturbs
// the router's candidate selection or the scenarios in spec.md §8.
type HealthCheckConfig struct {
	Enabled         bool  `json:"enabled"`
	IntervalSeconds int64 `json:"interval_seconds"`
}

// Config is the full gateway configuration, persisted as pretty-printed
// JSON at a fixed path (see internal/state).
type Config struct {
	Providers     []Provider        `json:"providers"`
	Profiles      []RoutingProfile  `json:"profiles"`
	ActiveProfile string            `json:"active_profile"`
	Scorer        ScorerConfig      `json:"scorer"`
	Cache         CacheConfig       `json:"cache"`
	AgenticMode   bool              `json:"agentic_mode"`
	Session       SessionConfig     `json:"session"`
	HealthCheck   HealthCheckConfig `json:"health_check"`
}

// ResolveActiveProfile returns the profile named by override, or by
// ActiveProfile when override is empty, or the first profile in the
// list if no name matches (spec.md §4.5 step 1).
func (c Config) ResolveActiveProfile(override string) (RoutingProfile, bool) {
	name := c.ActiveProfile
	if override != "" {
		name = override
	}
	for _, p := range c.Profiles {
		if p.Name == name {
			return p, true
		}
	}
	if len(c.Profiles) > 0 {
		return c.Profiles[0], true
	}
	return RoutingProfile{}, false
}
