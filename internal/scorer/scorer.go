// Package scorer implements the gateway's 15-dimension weighted
// complexity scorer (C4): it classifies a chat request's messages into
// {Simple, Medium, Complex, Reasoning} with a calibrated confidence,
// following spec.md §4.4 and the original claw-router's scorer.rs.
package scorer

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/claw-router/claw-router/internal/config"
)

// Tier is the scorer's output classification, distinct from
// config.Tier (the provider pricing tier).
type Tier string

const (
	TierSimple    Tier = "simple"
	TierMedium    Tier = "medium"
	TierComplex   Tier = "complex"
	TierReasoning Tier = "reasoning"
)

// multiStepRe is compiled once at package init, matching spec.md §9's
// "lazy singleton" note resolved the idiomatic Go way: a package-level
// var initialized before main runs, no sync.Once needed.
var multiStepRe = regexp.MustCompile(`(?i)(first\b.*\bthen\b|step\s+\d|1\.\s.*2\.\s)`)

// DimensionScores holds the raw per-dimension contribution before
// weighting.
type DimensionScores struct {
	TokenCount          float64
	CodePresence        float64
	ReasoningMarkers     float64
	TechnicalTerms       float64
	CreativeMarkers      float64
	SimpleIndicators     float64
	MultiStepPatterns    float64
	QuestionComplexity   float64
	ImperativeVerbs      float64
	ConstraintCount      float64
	OutputFormat         float64
	ReferenceComplexity  float64
	NegationComplexity   float64
	DomainSpecificity    float64
	AgenticTask          float64
}

// Result is the scorer's full output for one request.
type Result struct {
	Tier               Tier
	RawScore           float64
	Confidence         float64
	Signals            []string
	OverrideApplied    string
	AgenticKeywordCount int
	Dimensions         DimensionScores
}

// Message is the minimal shape the scorer needs from a chat message.
// Content may be a plain string or an array of {type, text} parts;
// it carries either representation as already-decoded Go values
// (string, or []interface{} of map[string]interface{}).
type Message struct {
	Role    string
	Content interface{}
}

// Score classifies messages under cfg, following spec.md §4.4 exactly:
// text extraction, 15 weighted dimensions, boundary classification,
// sigmoid confidence, then the three ordered overrides.
func Score(messages []Message, cfg config.ScorerConfig) Result {
	text := extractText(messages)
	tokens := len(text) / 4

	var d DimensionScores
	var signals []string

	d.TokenCount = scoreTokenCount(tokens, cfg.TokenThresholds)

	var count int
	d.CodePresence, count = scoreKeywordMatch(text, codeKeywords)
	appendSignal(&signals, "code_presence", count)

	d.ReasoningMarkers, count = scoreKeywordMatch(text, reasoningKeywords)
	appendSignal(&signals, "reasoning_markers", count)

	d.TechnicalTerms, count = scoreKeywordMatch(text, technicalKeywords)
	appendSignal(&signals, "technical_terms", count)

	d.CreativeMarkers, count = scoreKeywordMatch(text, creativeKeywords)
	appendSignal(&signals, "creative_markers", count)

	d.SimpleIndicators, count = scoreKeywordMatch(text, simpleKeywords)
	appendSignal(&signals, "simple_indicators", count)

	d.MultiStepPatterns, _ = scoreMultiStep(text)
	if d.MultiStepPatterns > 0 {
		signals = append(signals, "multi_step")
	}

	var qCount int
	d.QuestionComplexity, qCount = scoreQuestionComplexity(text)
	if qCount > 3 {
		signals = append(signals, fmt.Sprintf("questions:%d", qCount))
	}

	d.ImperativeVerbs, count = scoreKeywordMatch(text, imperativeKeywords)
	appendSignal(&signals, "imperative_verbs", count)

	d.ConstraintCount, count = scoreKeywordMatch(text, constraintKeywords)
	appendSignal(&signals, "constraint_count", count)

	d.OutputFormat, count = scoreKeywordMatch(text, outputFormatKeywords)
	appendSignal(&signals, "output_format", count)

	d.ReferenceComplexity, count = scoreKeywordMatch(text, referenceKeywords)
	appendSignal(&signals, "reference_complexity", count)

	d.NegationComplexity, count = scoreKeywordMatch(text, negationKeywords)
	appendSignal(&signals, "negation_complexity", count)

	d.DomainSpecificity, count = scoreKeywordMatch(text, domainKeywords)
	if count > 0 {
		signals = append(signals, fmt.Sprintf("domain:%d", count))
	}

	var agenticCount int
	d.AgenticTask, agenticCount = scoreAgenticTask(text)
	if agenticCount > 0 {
		signals = append(signals, fmt.Sprintf("agentic:%d", agenticCount))
	}

	raw := weightedScore(d, cfg.Weights)
	tier := classifyTier(raw, cfg.TierBoundaries)
	confidence := calibrateConfidence(raw, cfg.TierBoundaries, cfg.ConfidenceSteepness)

	override := ""
	if tokens > cfg.MaxTokensForceComplex && tierIndex(tier) < tierIndex(TierComplex) {
		tier = TierComplex
		override = "token_count_force_complex"
	}
	if d.OutputFormat > 0 && tier == TierSimple {
		tier = TierMedium
		override = "structured_output_min_medium"
	}
	if d.ReasoningMarkers >= 0.6 {
		tier = TierReasoning
		override = "reasoning_markers_force"
	}

	return Result{
		Tier:                tier,
		RawScore:            raw,
		Confidence:          confidence,
		Signals:             signals,
		OverrideApplied:     override,
		AgenticKeywordCount: agenticCount,
		Dimensions:          d,
	}
}

func appendSignal(signals *[]string, name string, count int) {
	if count > 0 {
		*signals = append(*signals, fmt.Sprintf("%s:%d", name, count))
	}
}

// extractText flattens the text content of user-role messages only
// into a single "\n"-joined, lowercased string. String content always
// contributes a part, even an empty one; array content contributes one
// part per "text"-typed item, including empty text strings. A message
// with no content, non-text content, or an array with no text items
// contributes nothing at all. This mirrors the original_source
// extract_text's `parts.push(...)` placement exactly, rather than
// skipping blank parts, so newline placement matches byte-for-byte on
// edge-case inputs.
func extractText(messages []Message) string {
	var parts []string
	for _, m := range messages {
		if m.Role != "user" {
			continue
		}
		switch c := m.Content.(type) {
		case string:
			parts = append(parts, c)
		case []interface{}:
			for _, part := range c {
				pm, ok := part.(map[string]interface{})
				if !ok {
					continue
				}
				if t, _ := pm["type"].(string); t == "text" {
					if txt, ok := pm["text"].(string); ok {
						parts = append(parts, txt)
					}
				}
			}
		}
	}
	return strings.ToLower(strings.Join(parts, "\n"))
}

func scoreTokenCount(tokens int, th config.TokenThresholds) float64 {
	if tokens < th.ShortUpper {
		return -1.0
	}
	if tokens > th.LongLower {
		return 1.0
	}
	return 0.0
}

// scoreKeywordMatch counts substring matches of keywords in text and
// maps the count to a raw dimension score: 0->0.0, 1->0.3, 2->0.6, 3+->1.0.
func scoreKeywordMatch(text string, keywords []string) (float64, int) {
	count := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			count++
		}
	}
	switch {
	case count == 0:
		return 0.0, count
	case count == 1:
		return 0.3, count
	case count == 2:
		return 0.6, count
	default:
		return 1.0, count
	}
}

func scoreMultiStep(text string) (float64, bool) {
	if multiStepRe.MatchString(text) {
		return 0.5, true
	}
	return 0.0, false
}

func scoreQuestionComplexity(text string) (float64, int) {
	count := strings.Count(text, "?")
	if count > 3 {
		return 0.5, count
	}
	return 0.0, count
}

// scoreAgenticTask is tiered rather than the generic keyword-match
// mapping: 0->0.0, 1-2->0.2, 3->0.6, 4+->1.0.
func scoreAgenticTask(text string) (float64, int) {
	count := 0
	for _, kw := range agenticKeywords {
		if strings.Contains(text, kw) {
			count++
		}
	}
	switch {
	case count == 0:
		return 0.0, count
	case count <= 2:
		return 0.2, count
	case count == 3:
		return 0.6, count
	default:
		return 1.0, count
	}
}

func weightedScore(d DimensionScores, w config.ScorerWeights) float64 {
	return d.TokenCount*w.TokenCount +
		d.CodePresence*w.CodePresence +
		d.ReasoningMarkers*w.ReasoningMarkers +
		d.TechnicalTerms*w.TechnicalTerms +
		d.CreativeMarkers*w.CreativeMarkers -
		d.SimpleIndicators*w.SimpleIndicators +
		d.MultiStepPatterns*w.MultiStepPatterns +
		d.QuestionComplexity*w.QuestionComplexity +
		d.ImperativeVerbs*w.ImperativeVerbs +
		d.ConstraintCount*w.ConstraintCount +
		d.OutputFormat*w.OutputFormat +
		d.ReferenceComplexity*w.ReferenceComplexity +
		d.NegationComplexity*w.NegationComplexity +
		d.DomainSpecificity*w.DomainSpecificity +
		d.AgenticTask*w.AgenticTask
}

func classifyTier(score float64, b config.TierBoundaries) Tier {
	switch {
	case score < b.SimpleUpper:
		return TierSimple
	case score < b.MediumUpper:
		return TierMedium
	case score < b.ComplexUpper:
		return TierComplex
	default:
		return TierReasoning
	}
}

func tierIndex(t Tier) int {
	switch t {
	case TierSimple:
		return 0
	case TierMedium:
		return 1
	case TierComplex:
		return 2
	default:
		return 3
	}
}

// calibrateConfidence returns sigmoid(steepness * d) where d is the
// minimum absolute distance from score to any of the three boundaries.
func calibrateConfidence(score float64, b config.TierBoundaries, steepness float64) float64 {
	d := math.Abs(score - b.SimpleUpper)
	if v := math.Abs(score - b.MediumUpper); v < d {
		d = v
	}
	if v := math.Abs(score - b.ComplexUpper); v < d {
		d = v
	}
	return 1.0 / (1.0 + math.Exp(-steepness*d))
}
