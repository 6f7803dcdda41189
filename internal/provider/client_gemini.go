package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clauseguard/internal/config"
	"clauseguard/internal/logging"
)

// GeminiClient talks to the Gemini generateContent API over raw HTTP. It
// performs no retries; rate limits surface as *RateLimitError so the Invoker
// owns backoff policy.
type GeminiClient struct {
	apiKey          string
	baseURL         string
	model           string
	maxOutputTokens int
	httpClient      *http.Client
}

// NewGeminiClient creates a client from LLM config.
func NewGeminiClient(cfg config.LLMConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key not configured (set CLAUSEGUARD_API_KEY or GEMINI_API_KEY)")
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultLLMConfig().Model
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultLLMConfig().BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &GeminiClient{
		apiKey:          cfg.APIKey,
		baseURL:         baseURL,
		model:           model,
		maxOutputTokens: cfg.MaxOutputTokens,
		httpClient:      &http.Client{Timeout: timeout},
	}, nil
}

// DefaultLLMConfig re-exports the config default for callers that construct
// clients directly.
func DefaultLLMConfig() config.LLMConfig {
	return config.DefaultLLMConfig()
}

// Model returns the model identifier used for calls.
func (c *GeminiClient) Model() string {
	return c.model
}

// Generate sends a single prompt and returns the raw response.
func (c *GeminiClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (*RawResponse, error) {
	// Auto-apply timeout if context has no deadline (centralized timeout handling)
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	startTime := time.Now()
	logging.APIDebug("[Gemini] Generate: model=%s prompt_len=%d json=%t", c.model, len(prompt), opts.JSONOutput)

	maxOutputTokens := c.maxOutputTokens
	if opts.MaxOutputTokens > 0 {
		maxOutputTokens = opts.MaxOutputTokens
	}

	reqBody := GeminiRequest{
		Contents: []GeminiContent{
			{
				Role:  "user",
				Parts: []GeminiPart{{Text: prompt}},
			},
		},
		GenerationConfig: GeminiGenerationConfig{
			Temperature:     0.2,
			MaxOutputTokens: maxOutputTokens,
		},
	}
	if opts.SystemPrompt != "" {
		reqBody.SystemInstruction = &GeminiContent{
			Parts: []GeminiPart{{Text: opts.SystemPrompt}},
		}
	}
	if opts.JSONOutput {
		reqBody.GenerationConfig.ResponseMimeType = "application/json"
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logging.Get(logging.CategoryAPI).Error("[Gemini] Generate: request failed after %v: %v", time.Since(startTime), err)
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		msg := string(body)
		delay, ok := ParseRetryDelay(msg)
		logging.API("[Gemini] Generate: rate limited (429), suggested_delay=%v has_suggestion=%t", delay, ok)
		return nil, &RateLimitError{
			StatusCode:     resp.StatusCode,
			Message:        msg,
			SuggestedDelay: delay,
			HasSuggestion:  ok,
		}
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr GeminiResponse
		status, message := "", string(body)
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != nil {
			status = apiErr.Error.Status
			message = apiErr.Error.Message
		}
		logging.Get(logging.CategoryAPI).Error("[Gemini] Generate: API returned status %d: %s", resp.StatusCode, message)
		return nil, &ProviderError{StatusCode: resp.StatusCode, Status: status, Message: message}
	}

	var geminiResp GeminiResponse
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if geminiResp.Error != nil {
		return nil, &ProviderError{
			StatusCode: geminiResp.Error.Code,
			Status:     geminiResp.Error.Status,
			Message:    geminiResp.Error.Message,
		}
	}

	raw := &RawResponse{
		Usage: Usage{
			InputTokens:  geminiResp.UsageMetadata.PromptTokenCount,
			OutputTokens: geminiResp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:  geminiResp.UsageMetadata.TotalTokenCount,
		},
	}
	if geminiResp.PromptFeedback != nil {
		raw.BlockReason = geminiResp.PromptFeedback.BlockReason
		raw.SafetyRatings = geminiResp.PromptFeedback.SafetyRatings
	}
	if len(geminiResp.Candidates) > 0 {
		cand := geminiResp.Candidates[0]
		raw.FinishReason = cand.FinishReason
		if len(cand.SafetyRatings) > 0 {
			raw.SafetyRatings = append(raw.SafetyRatings, cand.SafetyRatings...)
		}
		var result strings.Builder
		for _, part := range cand.Content.Parts {
			result.WriteString(part.Text)
		}
		raw.Text = strings.TrimSpace(result.String())
	}

	logging.API("[Gemini] Generate: completed in %v response_len=%d finish_reason=%s tokens=%d/%d",
		time.Since(startTime), len(raw.Text), raw.FinishReason, raw.Usage.InputTokens, raw.Usage.OutputTokens)
	return raw, nil
}
