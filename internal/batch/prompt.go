package batch

import (
	"fmt"
	"sort"
	"strings"

	"clauseguard/internal/config"
	"clauseguard/internal/logging"
	"clauseguard/internal/types"
)

const analysisSystemPrompt = `You are a legal contract compliance analyst. For each numbered clause, judge compliance against the provided policy context. Respond with ONLY a JSON array, one object per clause, in clause order, each with exactly these keys:
"clause_id", "clause_type", "compliant" (true/false), "risk_level" ("low"/"medium"/"high"/"critical"), "issues" (array of strings), "recommendations" (array of strings), "policy_references" (array of strings), "suggested_alternative" (string), "requires_human_review" (true/false).
Echo each clause_id exactly as given. Do not add commentary outside the JSON array.`

// FormatClauses renders clauses as a numbered list with stable ids the model
// is instructed to echo back.
func FormatClauses(clauses []types.Clause) string {
	var b strings.Builder
	for i, c := range clauses {
		fmt.Fprintf(&b, "### Clause %d (clause_id: %s)\n%s\n\n", i+1, c.ID, c.Text)
	}
	return b.String()
}

// FormatPolicies renders retrieved policy documents grouped by policy type,
// highest-scored first within each group. Types are emitted in sorted order
// so the prompt is deterministic.
func FormatPolicies(policies map[types.PolicyType][]types.PolicyDocument) string {
	typeNames := make([]string, 0, len(policies))
	for pt := range policies {
		typeNames = append(typeNames, string(pt))
	}
	sort.Strings(typeNames)

	var b strings.Builder
	for _, name := range typeNames {
		docs := policies[types.PolicyType(name)]
		if len(docs) == 0 {
			continue
		}
		fmt.Fprintf(&b, "## Policy area: %s\n\n", name)
		for _, doc := range docs {
			fmt.Fprintf(&b, "[%s] %s\n\n", doc.SourceType, doc.Content)
		}
	}
	return b.String()
}

// TruncatePolicies enforces the policy-token reservation. When the formatted
// policy text would exceed the reservation, each policy type is cut to its
// top maxDocsPerType documents by score. Returns the (possibly reduced) map.
func TruncatePolicies(policies map[types.PolicyType][]types.PolicyDocument, cfg config.BatchConfig, maxDocsPerType int) map[types.PolicyType][]types.PolicyDocument {
	formatted := FormatPolicies(policies)
	if len(formatted)/cfg.CharsPerToken <= cfg.PolicyTokenReservation {
		return policies
	}

	logging.Batch("Policy context exceeds %d-token reservation, truncating to top %d docs per type",
		cfg.PolicyTokenReservation, maxDocsPerType)

	truncated := make(map[types.PolicyType][]types.PolicyDocument, len(policies))
	for pt, docs := range policies {
		sorted := make([]types.PolicyDocument, len(docs))
		copy(sorted, docs)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Score > sorted[j].Score
		})
		if len(sorted) > maxDocsPerType {
			sorted = sorted[:maxDocsPerType]
		}
		truncated[pt] = sorted
	}
	return truncated
}

// BuildPrompt assembles the analysis prompt for one chunk of clauses.
func BuildPrompt(clauses []types.Clause, policyText string) string {
	var b strings.Builder
	b.WriteString("# Policy and regulatory context\n\n")
	if policyText == "" {
		b.WriteString("(no policy documents retrieved)\n\n")
	} else {
		b.WriteString(policyText)
	}
	fmt.Fprintf(&b, "# Contract clauses to analyze (%d)\n\n", len(clauses))
	b.WriteString(FormatClauses(clauses))
	return b.String()
}
