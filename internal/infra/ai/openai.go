// Package ai - openai.go
// OpenAI-compatible chat completions adapter. Groq serves the same API.
package ai

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// DefaultOpenAIURL is used when no base URL is configured.
const DefaultOpenAIURL = "https://api.openai.com/v1/chat/completions"

// OpenAIProvider implements LLMProvider for OpenAI-compatible APIs.
type OpenAIProvider struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	usage      usageTracker
	budgetGate *BudgetGate
}

// OpenAI API request/response structures
type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Model string `json:"model"`
}

// NewOpenAIProvider creates a new OpenAI-compatible adapter.
func NewOpenAIProvider(cfg ProviderConfig, budgetGate *BudgetGate) *OpenAIProvider {
	p := &OpenAIProvider{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		budgetGate: budgetGate,
	}
	if p.baseURL == "" {
		p.baseURL = DefaultOpenAIURL
	}
	if p.model == "" {
		p.model = "gpt-4o-mini"
	}
	return p
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return "OpenAI-compatible (" + p.model + ")"
}

// IsAvailable checks if the API key is configured.
func (p *OpenAIProvider) IsAvailable() bool {
	return p.apiKey != ""
}

// Complete sends a completion request.
func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if !p.IsAvailable() {
		return nil, ErrNotConfigured
	}

	estimatedCost := p.estimateCost(req)
	if !p.budgetGate.CanSpend(estimatedCost) {
		return nil, fmt.Errorf("%w: %s", ErrBudgetExceeded, p.budgetGate.GetStatus())
	}

	model := p.model
	if req.Model != "" {
		model = req.Model
	}

	messages := make([]openAIMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openAIMessage{Role: m.Role, Content: m.Content}
	}

	start := time.Now()
	var oaiResp openAIResponse
	err := postJSON(ctx, p.httpClient, p.baseURL,
		map[string]string{"Authorization": "Bearer " + p.apiKey},
		openAIRequest{Model: model, Messages: messages, MaxTokens: req.MaxTokens, Temperature: req.Temperature},
		&oaiResp)
	if err == nil && (len(oaiResp.Choices) == 0 || oaiResp.Choices[0].Message.Content == "") {
		err = ErrEmptyResponse
	}
	if err != nil {
		recordCall(0, 0, start, err)
		return nil, fmt.Errorf("openai: %w", err)
	}

	actualCost := calculateOpenAICost(oaiResp.Usage.TotalTokens, model)
	p.budgetGate.RecordSpend(actualCost)
	p.usage.record(oaiResp.Usage.TotalTokens, actualCost)
	recordCall(oaiResp.Usage.TotalTokens, actualCost, start, nil)

	return &CompletionResponse{
		Content:      oaiResp.Choices[0].Message.Content,
		Model:        oaiResp.Model,
		PromptTokens: oaiResp.Usage.PromptTokens,
		OutputTokens: oaiResp.Usage.CompletionTokens,
		TotalTokens:  oaiResp.Usage.TotalTokens,
		Latency:      time.Since(start),
		FinishReason: oaiResp.Choices[0].FinishReason,
	}, nil
}

// estimateCost estimates the cost before making a request.
func (p *OpenAIProvider) estimateCost(req CompletionRequest) float64 {
	estimatedTokens := 1000 + req.MaxTokens
	return calculateOpenAICost(estimatedTokens, p.model)
}

// calculateOpenAICost computes the cost from tokens and model.
func calculateOpenAICost(tokens int, model string) float64 {
	switch model {
	case "gpt-4o":
		return float64(tokens) * 0.00001
	case "gpt-4o-mini":
		return float64(tokens) * 0.0000005
	case "openai/gpt-oss-20b":
		return float64(tokens) * 0.0000003
	default:
		return float64(tokens) * 0.00001 // Conservative estimate
	}
}

// GetUsageStats returns current usage statistics.
func (p *OpenAIProvider) GetUsageStats() UsageStats {
	return p.usage.snapshot(p.budgetGate)
}

// ResetUsage resets all usage counters.
func (p *OpenAIProvider) ResetUsage() {
	p.usage.reset()
}

var _ LLMProvider = (*OpenAIProvider)(nil)
