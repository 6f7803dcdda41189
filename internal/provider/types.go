// Package provider implements the Gemini analysis client, rate-limit aware
// invocation, and client-side quota tracking.
package provider

import "context"

// GeminiContent represents conversation content.
type GeminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []GeminiPart `json:"parts"`
}

// GeminiPart represents a part of the content.
type GeminiPart struct {
	Text string `json:"text,omitempty"`
}

// GeminiGenerationConfig represents generation parameters.
type GeminiGenerationConfig struct {
	Temperature      float64 `json:"temperature,omitempty"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string  `json:"response_mime_type,omitempty"`
}

// GeminiRequest represents the Gemini generateContent request body.
type GeminiRequest struct {
	Contents          []GeminiContent        `json:"contents"`
	SystemInstruction *GeminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  GeminiGenerationConfig `json:"generationConfig,omitempty"`
}

// GeminiSafetyRating reports a safety category assessment on a candidate or
// prompt.
type GeminiSafetyRating struct {
	Category    string `json:"category"`
	Probability string `json:"probability"`
	Blocked     bool   `json:"blocked,omitempty"`
}

// GeminiResponse represents the Gemini generateContent response body.
type GeminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []GeminiPart `json:"parts"`
			Role  string       `json:"role"`
		} `json:"content"`
		FinishReason  string               `json:"finishReason"`
		SafetyRatings []GeminiSafetyRating `json:"safetyRatings,omitempty"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason   string               `json:"blockReason,omitempty"`
		SafetyRatings []GeminiSafetyRating `json:"safetyRatings,omitempty"`
	} `json:"promptFeedback,omitempty"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// Usage reports token counts for a single provider call.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// RawResponse is the provider-agnostic result of a generation call, before
// validation. Text is the concatenated candidate text; FinishReason and
// SafetyRatings are preserved so the validator can classify the response.
type RawResponse struct {
	Text          string
	FinishReason  string
	BlockReason   string
	SafetyRatings []GeminiSafetyRating
	Usage         Usage
}

// GenerateOptions tunes a single generation call.
type GenerateOptions struct {
	// SystemPrompt is sent as the system instruction when non-empty.
	SystemPrompt string

	// MaxOutputTokens overrides the client default when positive.
	MaxOutputTokens int

	// JSONOutput requests application/json response formatting.
	JSONOutput bool
}

// Client is the minimal generation interface the invoker drives. The real
// implementation is GeminiClient; tests substitute mocks.
type Client interface {
	// Generate sends a prompt and returns the raw model response. It does
	// not retry; rate-limit errors surface as *RateLimitError for the
	// invoker to handle.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (*RawResponse, error)

	// Model returns the model identifier used for calls.
	Model() string
}
