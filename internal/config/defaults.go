package config

// DefaultConfig returns the gateway's built-in configuration: three
// providers (OpenAI, Anthropic, DeepSeek) and three profiles (auto,
// eco, premium), reproduced from the original claw-router's
// Default impl so that a fresh boot without config.json behaves
// identically to the reference implementation.
func DefaultConfig() Config {
	return Config{
		Providers:     defaultProviders(),
		Profiles:      defaultProfiles(),
		ActiveProfile: "auto",
		Scorer:        DefaultScorerConfig(),
		Cache:         DefaultCacheConfig(),
		AgenticMode:   false,
		Session:       DefaultSessionConfig(),
		HealthCheck:   DefaultHealthCheckConfig(),
	}
}

func defaultProviders() []Provider {
	return []Provider{
		{
			ID:       "openai",
			Name:     "OpenAI",
			Kind:     KindOpenAI,
			Endpoint: "https://api.openai.com/v1/chat/completions",
			Tier:     TierSubscription,
			Enabled:  true,
			Priority: 1,
			Models: []Model{{
				ID:                      "gpt-4-turbo",
				Name:                    "GPT-4 Turbo",
				InputCostPer1M:          10.0,
				OutputCostPer1M:         30.0,
				ContextWindow:           128000,
				SupportsVision:          true,
				SupportsFunctionCalling: true,
			}},
		},
		{
			ID:       "anthropic",
			Name:     "Anthropic",
			Kind:     KindAnthropic,
			Endpoint: "https://api.anthropic.com/v1/messages",
			Tier:     TierSubscription,
			Enabled:  true,
			Priority: 1,
			Models: []Model{{
				ID:                      "claude-3-opus",
				Name:                    "Claude 3 Opus",
				InputCostPer1M:          15.0,
				OutputCostPer1M:         75.0,
				ContextWindow:           200000,
				SupportsVision:          true,
				SupportsFunctionCalling: true,
			}},
		},
		{
			ID:       "deepseek",
			Name:     "DeepSeek",
			Kind:     KindDeepSeek,
			Endpoint: "https://api.deepseek.com/chat/completions",
			Tier:     TierCheap,
			Enabled:  true,
			Priority: 1,
			Models: []Model{{
				ID:                      "deepseek-chat",
				Name:                    "DeepSeek Chat",
				InputCostPer1M:          0.14,
				OutputCostPer1M:         0.28,
				ContextWindow:           128000,
				SupportsVision:          false,
				SupportsFunctionCalling: true,
			}},
		},
	}
}

// agenticMapping is identical across all three default profiles in the
// original claw-router.
func agenticMapping() map[string]ModelMapping {
	return map[string]ModelMapping{
		"simple":    {ModelID: "claude-haiku-4.5"},
		"medium":    {ModelID: "moonshot/kimi-k2.5"},
		"complex":   {ModelID: "claude-sonnet-4.6"},
		"reasoning": {ModelID: "moonshot/kimi-k2.5"},
	}
}

func defaultProfiles() []RoutingProfile {
	return []RoutingProfile{
		{
			Name:          "auto",
			Description:   "Balanced cost and quality",
			AllowedTiers:  []Tier{TierSubscription, TierCheap, TierFree, TierPayPerRequest},
			ModelMapping: map[string]ModelMapping{
				"simple":    {ModelID: "moonshot/kimi-k2.5"},
				"medium":    {ModelID: "xai/grok-code-fast-1"},
				"complex":   {ModelID: "google/gemini-3-pro-preview"},
				"reasoning": {ModelID: "xai/grok-4-1-fast-reasoning"},
			},
			AgenticModelMapping: agenticMapping(),
		},
		{
			Name:         "eco",
			Description:  "Focus on low cost",
			AllowedTiers: []Tier{TierFree, TierCheap},
			ModelMapping: map[string]ModelMapping{
				"simple":    {ModelID: "nvidia/gpt-oss-120b"},
				"medium":    {ModelID: "google/gemini-2.5-flash"},
				"complex":   {ModelID: "google/gemini-2.5-flash"},
				"reasoning": {ModelID: "xai/grok-4-1-fast-reasoning"},
			},
			AgenticModelMapping: agenticMapping(),
		},
		{
			Name:         "premium",
			Description:  "Focus on best quality",
			AllowedTiers: []Tier{TierSubscription, TierPayPerRequest},
			ModelMapping: map[string]ModelMapping{
				"simple":    {ModelID: "moonshot/kimi-k2.5"},
				"medium":    {ModelID: "openai/gpt-5.2-codex"},
				"complex":   {ModelID: "claude-opus-4"},
				"reasoning": {ModelID: "claude-sonnet-4"},
			},
			AgenticModelMapping: agenticMapping(),
		},
	}
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{Enabled: false, TTLSeconds: 3600}
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{Enabled: false, TTLSeconds: 3600, CacheDir: "cache"}
}

func DefaultHealthCheckConfig() HealthCheckConfig {
	return HealthCheckConfig{Enabled: false, IntervalSeconds: 30}
}

func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		Enabled: true,
		Weights: ScorerWeights{
			TokenCount:          0.08,
			CodePresence:        0.15,
			ReasoningMarkers:    0.18,
			TechnicalTerms:      0.10,
			CreativeMarkers:     0.05,
			SimpleIndicators:    0.02,
			MultiStepPatterns:   0.12,
			QuestionComplexity:  0.05,
			ImperativeVerbs:     0.03,
			ConstraintCount:     0.04,
			OutputFormat:        0.03,
			ReferenceComplexity: 0.02,
			NegationComplexity:  0.01,
			DomainSpecificity:   0.02,
			AgenticTask:         0.04,
		},
		TierBoundaries: TierBoundaries{
			SimpleUpper:  0.0,
			MediumUpper:  0.3,
			ComplexUpper: 0.5,
		},
		TokenThresholds: TokenThresholds{
			ShortUpper: 500,
			LongLower:  3000,
		},
		ConfidenceSteepness:   12.0,
		ConfidenceThreshold:   0.7,
		MaxTokensForceComplex: 100000,
	}
}
