// Package ai - anthropic.go
// Anthropic messages API adapter.
package ai

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// DefaultAnthropicURL is used when no base URL is configured.
const DefaultAnthropicURL = "https://api.anthropic.com/v1/messages"

// AnthropicProvider implements LLMProvider for the Anthropic API.
type AnthropicProvider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	usage      usageTracker
	budgetGate *BudgetGate
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// NewAnthropicProvider creates a new Anthropic adapter.
func NewAnthropicProvider(cfg ProviderConfig, budgetGate *BudgetGate) *AnthropicProvider {
	p := &AnthropicProvider{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		budgetGate: budgetGate,
	}
	if p.baseURL == "" {
		p.baseURL = DefaultAnthropicURL
	}
	if p.model == "" {
		p.model = "claude-3-5-haiku-latest"
	}
	return p
}

// Name returns the provider name.
func (p *AnthropicProvider) Name() string {
	return "Anthropic (" + p.model + ")"
}

// IsAvailable checks if the API key is configured.
func (p *AnthropicProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// Complete sends a completion request. System messages move to the
// top-level system field.
func (p *AnthropicProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if !p.IsAvailable() {
		return nil, ErrNotConfigured
	}

	estimatedCost := float64(2000+req.MaxTokens) * 0.000004
	if !p.budgetGate.CanSpend(estimatedCost) {
		return nil, fmt.Errorf("%w: %s", ErrBudgetExceeded, p.budgetGate.GetStatus())
	}

	var systemMsg string
	var messages []anthropicMessage
	for _, m := range req.Messages {
		if m.Role == "system" {
			systemMsg = m.Content
			continue
		}
		messages = append(messages, anthropicMessage{Role: m.Role, Content: m.Content})
	}

	model := p.model
	if req.Model != "" {
		model = req.Model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	start := time.Now()
	var anthResp anthropicResponse
	err := postJSON(ctx, p.httpClient, p.baseURL,
		map[string]string{"x-api-key": p.apiKey, "anthropic-version": "2023-06-01"},
		anthropicRequest{Model: model, MaxTokens: maxTokens, System: systemMsg, Messages: messages},
		&anthResp)
	if err == nil && (len(anthResp.Content) == 0 || anthResp.Content[0].Text == "") {
		err = ErrEmptyResponse
	}
	if err != nil {
		recordCall(0, 0, start, err)
		return nil, fmt.Errorf("anthropic: %w", err)
	}

	totalTokens := anthResp.Usage.InputTokens + anthResp.Usage.OutputTokens
	actualCost := float64(totalTokens) * 0.000004
	p.budgetGate.RecordSpend(actualCost)
	p.usage.record(totalTokens, actualCost)
	recordCall(totalTokens, actualCost, start, nil)

	return &CompletionResponse{
		Content:      anthResp.Content[0].Text,
		Model:        anthResp.Model,
		PromptTokens: anthResp.Usage.InputTokens,
		OutputTokens: anthResp.Usage.OutputTokens,
		TotalTokens:  totalTokens,
		Latency:      time.Since(start),
		FinishReason: anthResp.StopReason,
	}, nil
}

// GetUsageStats returns current usage statistics.
func (p *AnthropicProvider) GetUsageStats() UsageStats {
	return p.usage.snapshot(p.budgetGate)
}

// ResetUsage resets all usage counters.
func (p *AnthropicProvider) ResetUsage() {
	p.usage.reset()
}

var _ LLMProvider = (*AnthropicProvider)(nil)
