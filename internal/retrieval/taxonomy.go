package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"clauseguard/internal/logging"
	"clauseguard/internal/provider"
	"clauseguard/internal/types"
)

const classifySystemPrompt = `You are a legal contract classifier. Given a contract excerpt, identify which policy areas the contract touches. Respond with ONLY a JSON array of policy type names drawn from this list:
["liability", "intellectual_property", "payment_terms", "termination", "confidentiality", "warranty", "dispute_resolution", "delivery", "data_protection", "compliance"]
Include every type that is plausibly relevant. Respond with the JSON array and nothing else.`

// Classifier identifies which policy types a contract touches, so retrieval
// only queries relevant collections.
type Classifier struct {
	invoker  *provider.Invoker
	failOpen bool
}

// NewClassifier creates a classifier. With failOpen true, classification
// failures fall back to every policy type instead of failing the batch.
func NewClassifier(invoker *provider.Invoker, failOpen bool) *Classifier {
	return &Classifier{invoker: invoker, failOpen: failOpen}
}

// Classify returns the policy types relevant to the contract preview. The
// preview should be the contract's opening text, not the full document.
func (c *Classifier) Classify(ctx context.Context, contractPreview string) ([]types.PolicyType, error) {
	resp, err := c.invoker.Invoke(ctx, contractPreview, provider.GenerateOptions{
		SystemPrompt: classifySystemPrompt,
		JSONOutput:   true,
	})
	if err != nil {
		if c.failOpen {
			logging.Retrieval("Classification failed, falling back to all policy types: %v", err)
			return types.AllPolicyTypes, nil
		}
		return nil, fmt.Errorf("contract classification failed: %w", err)
	}

	parsed := parsePolicyTypeList(resp.Text)
	if len(parsed) == 0 {
		if c.failOpen {
			logging.Retrieval("Classification returned no usable types, falling back to all")
			return types.AllPolicyTypes, nil
		}
		return nil, fmt.Errorf("contract classification returned no policy types: %q", resp.Text)
	}

	logging.Retrieval("Contract classified into %d policy types", len(parsed))
	return parsed, nil
}

// parsePolicyTypeList leniently extracts policy types from model output.
// Accepts a bare JSON array, an array wrapped in prose or code fences, or a
// comma-separated list.
func parsePolicyTypeList(text string) []types.PolicyType {
	text = strings.TrimSpace(text)

	var names []string
	if start := strings.Index(text, "["); start >= 0 {
		if end := strings.LastIndex(text, "]"); end > start {
			if err := json.Unmarshal([]byte(text[start:end+1]), &names); err != nil {
				names = nil
			}
		}
	}
	if names == nil {
		names = strings.Split(text, ",")
	}

	seen := make(map[types.PolicyType]bool)
	var result []types.PolicyType
	for _, name := range names {
		pt, ok := types.ParsePolicyType(strings.Trim(strings.TrimSpace(name), `"'`))
		if !ok || seen[pt] {
			continue
		}
		seen[pt] = true
		result = append(result, pt)
	}
	return result
}
