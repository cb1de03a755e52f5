// Package adapter translates between the OpenAI-compatible wire shape
// this gateway speaks and the Anthropic messages shape, on both the
// egress (request) and ingress (response) legs (C6, spec.md §4.6).
// Adapted from the teacher's providers/anthropic/provider.go, which
// implemented the same translation inside a full Provider; here it is
// a pure function pair the orchestrator calls around its own upstream
// HTTP fan-out.
package adapter

import (
	"encoding/json"
)

const anthropicVersion = "2023-06-01"

// OpenAIMessage is the minimal OpenAI-shaped chat message this
// gateway forwards and receives.
type OpenAIMessage struct {
	Role       string          `json:"role"`
	Content    json.RawMessage `json:"content,omitempty"`
	ToolCalls  []OpenAIToolCall `json:"tool_calls,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
}

type OpenAIToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
}

type anthropicTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
}

// AnthropicRequest is the wire shape POSTed to /v1/messages.
type AnthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
	TopP        *float64           `json:"top_p,omitempty"`
	StopSeq     []string           `json:"stop_sequences,omitempty"`
	Tools       []anthropicTool    `json:"tools,omitempty"`
}

type anthropicUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// AnthropicResponse is the wire shape returned from /v1/messages.
type AnthropicResponse struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	Role       string             `json:"role"`
	Content    []anthropicContent `json:"content"`
	Model      string             `json:"model"`
	StopReason string             `json:"stop_reason"`
	Usage      anthropicUsage     `json:"usage"`
}

// ToolSchema mirrors an OpenAI-style tool definition's function field.
type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// BuildAnthropicRequest translates an OpenAI-shaped request (model,
// messages, extras) into the Anthropic shape, extracting any system
// message into the top-level "system" field. maxTokens defaults to
// 4096 when the caller doesn't supply one — Anthropic requires it.
func BuildAnthropicRequest(model string, messages []OpenAIMessage, tools []ToolSchema, maxTokens int, temperature, topP *float64, stop []string) AnthropicRequest {
	system, converted := convertToAnthropicMessages(messages)
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return AnthropicRequest{
		Model:       model,
		Messages:    converted,
		System:      system,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		TopP:        topP,
		StopSeq:     stop,
		Tools:       convertToAnthropicTools(tools),
	}
}

func convertToAnthropicMessages(messages []OpenAIMessage) (string, []anthropicMessage) {
	var system string
	var out []anthropicMessage

	for _, m := range messages {
		if m.Role == "system" {
			if system != "" {
				system += "\n"
			}
			system += rawTextContent(m.Content)
			continue
		}
		if m.Role == "tool" {
			out = append(out, anthropicMessage{
				Role: "user",
				Content: []anthropicContent{{
					Type:      "tool_result",
					ToolUseID: m.ToolCallID,
					Content:   rawTextContent(m.Content),
				}},
			})
			continue
		}

		var content []anthropicContent
		if text := rawTextContent(m.Content); text != "" {
			content = append(content, anthropicContent{Type: "text", Text: text})
		}
		for _, tc := range m.ToolCalls {
			content = append(content, anthropicContent{
				Type:  "tool_use",
				ID:    tc.ID,
				Name:  tc.Function.Name,
				Input: json.RawMessage(tc.Function.Arguments),
			})
		}
		out = append(out, anthropicMessage{Role: m.Role, Content: content})
	}
	return system, out
}

func rawTextContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	// Array-of-parts content: concatenate text parts.
	var parts []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parts); err == nil {
		var out string
		for _, p := range parts {
			if p.Type == "text" {
				out += p.Text
			}
		}
		return out
	}
	return ""
}

func convertToAnthropicTools(tools []ToolSchema) []anthropicTool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]anthropicTool, 0, len(tools))
	for _, t := range tools {
		out = append(out, anthropicTool{Name: t.Name, Description: t.Description, InputSchema: t.Parameters})
	}
	return out
}

// ToOpenAIResponse translates an AnthropicResponse back into the
// OpenAI chat-completion response shape, returning the raw JSON bytes
// ready to write to the client, plus extracted usage for accounting.
// If the Anthropic body fails to parse, the raw bytes are returned
// unmodified with usage unset (spec.md §7 "Adapter-translation-failure").
func ToOpenAIResponse(anthropicBody []byte, requestedModel string) (body []byte, inputTokens, outputTokens int64, ok bool) {
	var resp AnthropicResponse
	if err := json.Unmarshal(anthropicBody, &resp); err != nil {
		return anthropicBody, 0, 0, false
	}

	var text string
	var toolCalls []OpenAIToolCall
	for _, c := range resp.Content {
		switch c.Type {
		case "text":
			text += c.Text
		case "tool_use":
			tc := OpenAIToolCall{ID: c.ID, Type: "function"}
			tc.Function.Name = c.Name
			tc.Function.Arguments = string(c.Input)
			toolCalls = append(toolCalls, tc)
		}
	}

	finishReason := "stop"
	if resp.StopReason == "tool_use" {
		finishReason = "tool_calls"
	} else if resp.StopReason == "max_tokens" {
		finishReason = "length"
	}

	contentJSON, _ := json.Marshal(text)
	message := map[string]interface{}{
		"role":    "assistant",
		"content": json.RawMessage(contentJSON),
	}
	if len(toolCalls) > 0 {
		message["tool_calls"] = toolCalls
	}

	out := map[string]interface{}{
		"id":      resp.ID,
		"object":  "chat.completion",
		"model":   requestedModel,
		"choices": []map[string]interface{}{{"index": 0, "message": message, "finish_reason": finishReason}},
		"usage": map[string]interface{}{
			"prompt_tokens":     resp.Usage.InputTokens,
			"completion_tokens": resp.Usage.OutputTokens,
			"total_tokens":      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}
	data, err := json.Marshal(out)
	if err != nil {
		return anthropicBody, 0, 0, false
	}
	return data, resp.Usage.InputTokens, resp.Usage.OutputTokens, true
}

// AnthropicHeaders returns the headers required for an Anthropic
// request: x-api-key (not Authorization: Bearer), anthropic-version,
// and content-type (spec.md §4.6).
func AnthropicHeaders(apiKey string) map[string]string {
	return map[string]string{
		"x-api-key":         apiKey,
		"anthropic-version": anthropicVersion,
		"content-type":      "application/json",
	}
}
