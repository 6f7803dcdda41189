package batch

import (
	"encoding/json"
	"fmt"
	"strings"

	"clauseguard/internal/config"
	"clauseguard/internal/logging"
	"clauseguard/internal/provider"
	"clauseguard/internal/types"
)

// FailureKind classifies why a provider response was unusable.
type FailureKind string

const (
	KindTruncated     FailureKind = "truncated"
	KindSafetyBlocked FailureKind = "safety_blocked"
	KindEmpty         FailureKind = "empty"
	KindMalformedJSON FailureKind = "malformed_json"
)

// ValidationError reports an unusable provider response with enough
// diagnostics to adjust configuration without re-running.
type ValidationError struct {
	Kind FailureKind
	Msg  string

	// RecommendedTokens suggests a max-output-token setting that should
	// fit the expected clause count (Truncated only).
	RecommendedTokens int

	// SafetyCategories lists the triggered filter categories
	// (SafetyBlocked only).
	SafetyCategories []string

	// Offset is the byte position of the parse failure; Head and Tail
	// preview the payload around it (MalformedJSON only).
	Offset int64
	Head   string
	Tail   string
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case KindTruncated:
		return fmt.Sprintf("response truncated by token limit: %s (recommended max_output_tokens >= %d)", e.Msg, e.RecommendedTokens)
	case KindSafetyBlocked:
		return fmt.Sprintf("response blocked by safety filter: %s (categories: %s)", e.Msg, strings.Join(e.SafetyCategories, ", "))
	case KindEmpty:
		return "provider returned an empty response"
	case KindMalformedJSON:
		return fmt.Sprintf("malformed JSON at byte %d: %s", e.Offset, e.Msg)
	default:
		return e.Msg
	}
}

// analysisEnvelope accepts the object form some models wrap the array in.
type analysisEnvelope struct {
	Analyses []types.ClauseAnalysis `json:"analyses"`
	Results  []types.ClauseAnalysis `json:"results"`
}

const previewLen = 200

// Validate classifies a raw provider response and parses its clause
// analyses. Checks run in a fixed order: truncation, safety block, empty
// payload, then structured parse. A truncated response is reported as
// Truncated even when its JSON is also malformed.
func Validate(raw *provider.RawResponse, expectedClauses int, cfg config.BatchConfig) ([]types.ClauseAnalysis, error) {
	if isTruncatedFinish(raw.FinishReason) {
		return nil, &ValidationError{
			Kind:              KindTruncated,
			Msg:               fmt.Sprintf("finish_reason=%s", raw.FinishReason),
			RecommendedTokens: expectedClauses * cfg.TruncationTokensPerClause,
		}
	}

	if isSafetyFinish(raw.FinishReason) || raw.BlockReason != "" {
		var categories []string
		for _, r := range raw.SafetyRatings {
			if r.Blocked || strings.EqualFold(r.Probability, "HIGH") {
				categories = append(categories, r.Category)
			}
		}
		msg := raw.FinishReason
		if raw.BlockReason != "" {
			msg = "block_reason=" + raw.BlockReason
		}
		return nil, &ValidationError{
			Kind:             KindSafetyBlocked,
			Msg:              msg,
			SafetyCategories: categories,
		}
	}

	if strings.TrimSpace(raw.Text) == "" {
		return nil, &ValidationError{Kind: KindEmpty}
	}

	cleaned := cleanJSONContent(raw.Text)
	analyses, err := parseAnalyses(cleaned)
	if err != nil {
		ve := &ValidationError{
			Kind: KindMalformedJSON,
			Msg:  err.Error(),
			Head: headPreview(cleaned),
			Tail: tailPreview(cleaned),
		}
		if syntaxErr, ok := err.(*json.SyntaxError); ok {
			ve.Offset = syntaxErr.Offset
		}
		logging.Get(logging.CategoryBatch).Error("Malformed response: %v (payload_len=%d)", err, len(cleaned))
		return nil, ve
	}

	logging.BatchDebug("Validated response: %d analyses for %d expected clauses", len(analyses), expectedClauses)
	return analyses, nil
}

func isTruncatedFinish(reason string) bool {
	switch strings.ToUpper(reason) {
	case "MAX_TOKENS", "LENGTH":
		return true
	}
	return false
}

func isSafetyFinish(reason string) bool {
	switch strings.ToUpper(reason) {
	case "SAFETY", "PROHIBITED_CONTENT", "BLOCKLIST":
		return true
	}
	return false
}

// parseAnalyses accepts either a bare JSON array or an envelope object with
// an "analyses" (or "results") array.
func parseAnalyses(payload string) ([]types.ClauseAnalysis, error) {
	trimmed := strings.TrimSpace(payload)

	if strings.HasPrefix(trimmed, "[") {
		var analyses []types.ClauseAnalysis
		if err := json.Unmarshal([]byte(trimmed), &analyses); err != nil {
			return nil, err
		}
		return analyses, nil
	}

	var env analysisEnvelope
	if err := json.Unmarshal([]byte(trimmed), &env); err != nil {
		return nil, err
	}
	if env.Analyses != nil {
		return env.Analyses, nil
	}
	if env.Results != nil {
		return env.Results, nil
	}
	return nil, fmt.Errorf("JSON object carries no analyses array")
}

// cleanJSONContent strips markdown code fences and surrounding chatter,
// leaving the outermost JSON value. Models wrap JSON in ```json fences or
// prefix it with prose often enough that this is worth doing before parse.
func cleanJSONContent(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```") {
		if idx := strings.Index(content, "\n"); idx >= 0 {
			content = content[idx+1:]
		}
		if idx := strings.LastIndex(content, "```"); idx >= 0 {
			content = content[:idx]
		}
		return strings.TrimSpace(content)
	}

	// Prose-wrapped JSON: cut to the outermost bracket pair.
	start := strings.IndexAny(content, "[{")
	if start < 0 {
		return content
	}
	var end int
	if content[start] == '[' {
		end = strings.LastIndex(content, "]")
	} else {
		end = strings.LastIndex(content, "}")
	}
	if end > start {
		return content[start : end+1]
	}
	return content
}

func headPreview(s string) string {
	if len(s) <= previewLen {
		return s
	}
	return s[:previewLen]
}

func tailPreview(s string) string {
	if len(s) <= previewLen {
		return s
	}
	return s[len(s)-previewLen:]
}
