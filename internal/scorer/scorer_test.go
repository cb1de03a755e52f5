package scorer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/claw-router/claw-router/internal/config"
)

func userMsg(text string) Message {
	return Message{Role: "user", Content: text}
}

func TestSimpleQuery(t *testing.T) {
	cfg := config.DefaultScorerConfig()
	r := Score([]Message{userMsg("What is Rust?")}, cfg)
	assert.Equal(t, TierSimple, r.Tier)
	assert.Less(t, r.RawScore, 0.0)
}

func TestCodeQuery(t *testing.T) {
	cfg := config.DefaultScorerConfig()
	r := Score([]Message{userMsg("Write a function that implements a struct, a class, and async await handling")}, cfg)
	assert.Greater(t, r.RawScore, 0.0)
	assert.Contains(t, []Tier{TierMedium, TierComplex, TierReasoning}, r.Tier)
}

func TestReasoningOverride(t *testing.T) {
	cfg := config.DefaultScorerConfig()
	r := Score([]Message{userMsg(
		"Prove the theorem using mathematical induction. Derive the proof step by step using formal logic.",
	)}, cfg)
	assert.Equal(t, TierReasoning, r.Tier)
	assert.Equal(t, "reasoning_markers_force", r.OverrideApplied)
}

func TestStructuredOutputOverride(t *testing.T) {
	cfg := config.DefaultScorerConfig()
	r := Score([]Message{userMsg("What is json?")}, cfg)
	assert.Equal(t, TierMedium, r.Tier)
	assert.Equal(t, "structured_output_min_medium", r.OverrideApplied)
}

func TestMultiStepDetection(t *testing.T) {
	cfg := config.DefaultScorerConfig()
	r := Score([]Message{userMsg("First build the server, then deploy it.")}, cfg)
	assert.Contains(t, r.Signals, "multi_step")
}

func TestQuestionComplexity(t *testing.T) {
	cfg := config.DefaultScorerConfig()
	r := Score([]Message{userMsg("What? Why? How? When? Where?")}, cfg)
	found := false
	for _, s := range r.Signals {
		if strings.HasPrefix(s, "questions:") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestAgenticTaskSignal(t *testing.T) {
	cfg := config.DefaultScorerConfig()
	r := Score([]Message{userMsg("Read the file, edit it, and execute npm install, then verify it works.")}, cfg)
	found := false
	for _, s := range r.Signals {
		if strings.HasPrefix(s, "agentic:") {
			found = true
		}
	}
	assert.True(t, found)
	assert.Greater(t, r.AgenticKeywordCount, 0)
}

func TestDomainSpecificSignal(t *testing.T) {
	cfg := config.DefaultScorerConfig()
	r := Score([]Message{userMsg("Explain quantum error correction on an FPGA using VLSI design.")}, cfg)
	found := false
	for _, s := range r.Signals {
		if strings.HasPrefix(s, "domain:") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestExtractTextArrayContent(t *testing.T) {
	msgs := []Message{{
		Role: "user",
		Content: []interface{}{
			map[string]interface{}{"type": "text", "text": "Hello there"},
			map[string]interface{}{"type": "image", "url": "http://example.com/x.png"},
		},
	}}
	text := extractText(msgs)
	assert.Equal(t, "hello there", text)
}

func TestExtractTextSkipsNonUser(t *testing.T) {
	msgs := []Message{
		{Role: "system", Content: "be nice"},
		{Role: "assistant", Content: "ok"},
		{Role: "user", Content: "hello"},
	}
	assert.Equal(t, "hello", extractText(msgs))
}

// TestExtractTextKeepsBlankStringContent mirrors original_source's
// extract_text, which pushes every string-content message into parts
// (even an empty string) before joining with "\n" — so a blank user
// message still produces a separating newline rather than being
// dropped.
func TestExtractTextKeepsBlankStringContent(t *testing.T) {
	msgs := []Message{
		{Role: "user", Content: ""},
		{Role: "user", Content: "hello"},
	}
	assert.Equal(t, "\nhello", extractText(msgs))
}

func TestConfidenceLowAtBoundary(t *testing.T) {
	cfg := config.DefaultScorerConfig()
	conf := calibrateConfidence(0.3, cfg.TierBoundaries, cfg.ConfidenceSteepness)
	assert.InDelta(t, 0.5, conf, 0.01)
}

func TestConfidenceHighAwayFromBoundary(t *testing.T) {
	cfg := config.DefaultScorerConfig()
	conf := calibrateConfidence(0.15, cfg.TierBoundaries, cfg.ConfidenceSteepness)
	assert.Greater(t, conf, 0.5)
	assert.Less(t, conf, 1.0)
}

func TestEmptyMessages(t *testing.T) {
	cfg := config.DefaultScorerConfig()
	r := Score(nil, cfg)
	assert.Equal(t, TierSimple, r.Tier)
}

func TestKeywordMatchTiers(t *testing.T) {
	score0, c0 := scoreKeywordMatch("nothing interesting here", codeKeywords)
	require.Equal(t, 0, c0)
	assert.Equal(t, 0.0, score0)

	score1, c1 := scoreKeywordMatch("a function definition", codeKeywords)
	require.Equal(t, 1, c1)
	assert.Equal(t, 0.3, score1)

	score3, c3 := scoreKeywordMatch("function class import return", codeKeywords)
	require.GreaterOrEqual(t, c3, 3)
	assert.Equal(t, 1.0, score3)
}
