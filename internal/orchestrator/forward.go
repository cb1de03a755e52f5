package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/claw-router/claw-router/internal/adapter"
	"github.com/claw-router/claw-router/internal/config"
)

// upstreamResult is what one candidate attempt produced on success.
type upstreamResult struct {
	StatusCode   int
	Body         []byte
	InputTokens  int64
	OutputTokens int64
}

// forwardToProvider sends the request to one candidate provider,
// translating to/from the Anthropic shape when needed (spec.md §4.6).
// The upstream request is built fresh, so the client's host and
// content-length headers never reach the provider; the client's
// Authorization header is forwarded only to OpenAI-compatible
// providers with no api_key, and never to Anthropic. It returns an error for
// any non-2xx or transport failure; the caller tries the next
// candidate (spec.md §4.7 step 9).
func forwardToProvider(ctx context.Context, client *http.Client, p config.Provider, effectiveModel string, rawMessages json.RawMessage, extras map[string]json.RawMessage, clientAuth string) (upstreamResult, error) {
	if p.Kind == config.KindAnthropic {
		return forwardAnthropic(ctx, client, p, effectiveModel, rawMessages, extras)
	}
	return forwardOpenAICompatible(ctx, client, p, effectiveModel, rawMessages, extras, clientAuth)
}

func forwardOpenAICompatible(ctx context.Context, client *http.Client, p config.Provider, effectiveModel string, rawMessages json.RawMessage, extras map[string]json.RawMessage, clientAuth string) (upstreamResult, error) {
	payload := map[string]json.RawMessage{}
	for k, v := range extras {
		payload[k] = v
	}
	modelJSON, _ := json.Marshal(effectiveModel)
	payload["model"] = modelJSON
	payload["messages"] = rawMessages

	body, err := json.Marshal(payload)
	if err != nil {
		return upstreamResult{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(body))
	if err != nil {
		return upstreamResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	auth := clientAuth
	if p.APIKey != "" {
		auth = "Bearer " + p.APIKey
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := client.Do(req)
	if err != nil {
		return upstreamResult{}, err
	}
	defer resp.Body.Close()

	respBody, err := readAll(resp)
	if err != nil {
		return upstreamResult{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return upstreamResult{}, fmt.Errorf("upstream status %d", resp.StatusCode)
	}

	inTok, outTok := extractOpenAIUsage(respBody)
	return upstreamResult{StatusCode: resp.StatusCode, Body: respBody, InputTokens: inTok, OutputTokens: outTok}, nil
}

func forwardAnthropic(ctx context.Context, client *http.Client, p config.Provider, effectiveModel string, rawMessages json.RawMessage, extras map[string]json.RawMessage) (upstreamResult, error) {
	var messages []adapter.OpenAIMessage
	if err := json.Unmarshal(rawMessages, &messages); err != nil {
		return upstreamResult{}, fmt.Errorf("decode messages: %w", err)
	}

	maxTokens := 0
	if v, ok := extras["max_tokens"]; ok {
		_ = json.Unmarshal(v, &maxTokens)
	}
	var temperature, topP *float64
	if v, ok := extras["temperature"]; ok {
		var f float64
		if json.Unmarshal(v, &f) == nil {
			temperature = &f
		}
	}
	if v, ok := extras["top_p"]; ok {
		var f float64
		if json.Unmarshal(v, &f) == nil {
			topP = &f
		}
	}
	var stop []string
	if v, ok := extras["stop"]; ok {
		_ = json.Unmarshal(v, &stop)
	}
	var tools []adapter.ToolSchema
	if v, ok := extras["tools"]; ok {
		var rawTools []struct {
			Function adapter.ToolSchema `json:"function"`
		}
		if json.Unmarshal(v, &rawTools) == nil {
			for _, t := range rawTools {
				tools = append(tools, t.Function)
			}
		}
	}

	areq := adapter.BuildAnthropicRequest(effectiveModel, messages, tools, maxTokens, temperature, topP, stop)
	body, err := json.Marshal(areq)
	if err != nil {
		return upstreamResult{}, fmt.Errorf("encode anthropic request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(body))
	if err != nil {
		return upstreamResult{}, err
	}
	for k, v := range adapter.AnthropicHeaders(p.APIKey) {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return upstreamResult{}, err
	}
	defer resp.Body.Close()

	respBody, err := readAll(resp)
	if err != nil {
		return upstreamResult{}, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return upstreamResult{}, fmt.Errorf("upstream status %d", resp.StatusCode)
	}

	openaiBody, inTok, outTok, _ := adapter.ToOpenAIResponse(respBody, effectiveModel)
	return upstreamResult{StatusCode: resp.StatusCode, Body: openaiBody, InputTokens: inTok, OutputTokens: outTok}, nil
}

func extractOpenAIUsage(body []byte) (int64, int64) {
	var parsed struct {
		Usage struct {
			PromptTokens     int64 `json:"prompt_tokens"`
			CompletionTokens int64 `json:"completion_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return 0, 0
	}
	return parsed.Usage.PromptTokens, parsed.Usage.CompletionTokens
}

func readAll(resp *http.Response) ([]byte, error) {
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EstimateCost computes input_tokens*input_cost/1e6 + output_tokens*output_cost/1e6
// for the matching model on a provider (spec.md §4.7 step 9).
func EstimateCost(p config.Provider, modelID string, inputTokens, outputTokens int64) float64 {
	m, ok := p.ModelForID(modelID)
	if !ok {
		return 0
	}
	return float64(inputTokens)*m.InputCostPer1M/1e6 + float64(outputTokens)*m.OutputCostPer1M/1e6
}

var defaultHTTPClient = &http.Client{Timeout: 60 * time.Second}
