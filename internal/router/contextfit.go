package router

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/claw-router/claw-router/internal/config"
)

// encodingCache memoizes tiktoken encodings by name; GetEncoding does
// its own internal caching too, but this avoids repeated map lookups
// and lets EstimateTokens stay allocation-light on the hot path.
var (
	encodingCacheMu sync.Mutex
	encodingCache   = map[string]*tiktoken.Tiktoken{}
)

func encodingFor(name string) (*tiktoken.Tiktoken, error) {
	encodingCacheMu.Lock()
	defer encodingCacheMu.Unlock()
	if enc, ok := encodingCache[name]; ok {
		return enc, nil
	}
	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, err
	}
	encodingCache[name] = enc
	return enc, nil
}

// FilterByContextWindow narrows candidates to those whose advertised
// ContextWindow can plausibly fit promptTokens, a cheap pre-check
// grounded on tiktoken-based estimation (SPEC_FULL.md DOMAIN STACK).
// It is additive: a candidate is only ever dropped, never added, and
// any candidate whose model doesn't carry a positive ContextWindow is
// kept rather than excluded on an unknown. If no candidate fits, the
// unfiltered list is returned unchanged.
func FilterByContextWindow(candidates []config.Provider, modelID string, promptTokens int) []config.Provider {
	if promptTokens <= 0 {
		return candidates
	}
	out := make([]config.Provider, 0, len(candidates))
	for _, p := range candidates {
		m, ok := p.ModelForID(modelID)
		if !ok || m.ContextWindow == 0 {
			out = append(out, p)
			continue
		}
		if int(m.ContextWindow) >= promptTokens {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return candidates
	}
	return out
}

// EstimateTokens estimates the cl100k_base token count of text. It
// returns 0, false if the encoding can't be loaded, in which case
// callers should skip the context-fit narrowing rather than fail the
// request over a missing tokenizer.
func EstimateTokens(text string) (int, bool) {
	enc, err := encodingFor("cl100k_base")
	if err != nil {
		return 0, false
	}
	return len(enc.Encode(text, nil, nil)), true
}
