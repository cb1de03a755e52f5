package orchestrator

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"github.com/claw-router/claw-router/internal/scorer"
)

// SessionID resolves the session id for a request following spec.md
// §4.7's priority chain: X-Session-Id header, then conversation_id in
// the extras, then a fingerprint over system+first-user text.
func SessionID(r *http.Request, conversationID string, messages []scorer.Message) string {
	if h := r.Header.Get("X-Session-Id"); h != "" {
		return h
	}
	if conversationID != "" {
		return conversationID
	}
	return fingerprint(messages)
}

// fingerprint hashes the concatenation of all system-message text and
// the first user-message text, prefixed "fp:". Returns "" if neither
// exists.
func fingerprint(messages []scorer.Message) string {
	var system, firstUser string
	haveUser := false
	for _, m := range messages {
		text := textOf(m.Content)
		switch m.Role {
		case "system":
			system += text
		case "user":
			if !haveUser {
				firstUser = text
				haveUser = true
			}
		}
	}
	if system == "" && firstUser == "" {
		return ""
	}
	h := sha256.Sum256([]byte(system + firstUser))
	return "fp:" + hex.EncodeToString(h[:])
}

func textOf(content interface{}) string {
	switch c := content.(type) {
	case string:
		return c
	case []interface{}:
		var out string
		for _, part := range c {
			pm, ok := part.(map[string]interface{})
			if !ok {
				continue
			}
			if t, _ := pm["type"].(string); t == "text" {
				if txt, ok := pm["text"].(string); ok {
					out += txt
				}
			}
		}
		return out
	default:
		return ""
	}
}
