// Package types defines the core data structures shared across clauseguard:
// clauses, ranked policy documents, per-clause analyses, and batch outcomes.
package types

import (
	"encoding/json"
	"strings"
)

// Clause is one contiguous unit of contract text submitted for independent
// compliance judgment. Clauses are produced by the external extractor and are
// read-only inside the analysis core. Position is the canonical ordering and
// is preserved end-to-end.
type Clause struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Position  int    `json:"position"`
	StyleHint string `json:"style_hint,omitempty"`
}

// SourceType classifies where a policy document came from.
type SourceType string

const (
	SourcePolicy   SourceType = "policy"
	SourceLaw      SourceType = "law"
	SourceRegional SourceType = "regional"
	SourceGeneral  SourceType = "general"
)

// PolicyDocument is a ranked snippet of policy or regulatory text returned by
// the retrieval layer. Score is the ranking score after any regional
// weighting has been applied; documents are transient and never persisted by
// the analysis core.
type PolicyDocument struct {
	Content    string            `json:"content"`
	SourceType SourceType        `json:"source_type"`
	Score      float64           `json:"score"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// PolicyType is one entry of the fixed policy-type taxonomy used to scope
// retrieval for a contract.
type PolicyType string

const (
	PolicyLiability         PolicyType = "liability"
	PolicyIP                PolicyType = "intellectual_property"
	PolicyPaymentTerms      PolicyType = "payment_terms"
	PolicyTermination       PolicyType = "termination"
	PolicyConfidentiality   PolicyType = "confidentiality"
	PolicyWarranty          PolicyType = "warranty"
	PolicyDisputeResolution PolicyType = "dispute_resolution"
	PolicyDelivery          PolicyType = "delivery"
	PolicyDataProtection    PolicyType = "data_protection"
	PolicyCompliance        PolicyType = "compliance"
	// PolicyGeneral is the unfiltered catch-all query issued alongside the
	// classified types.
	PolicyGeneral PolicyType = "general"
)

// AllPolicyTypes lists the classifiable taxonomy (excludes the general
// catch-all, which is always queried).
var AllPolicyTypes = []PolicyType{
	PolicyLiability,
	PolicyIP,
	PolicyPaymentTerms,
	PolicyTermination,
	PolicyConfidentiality,
	PolicyWarranty,
	PolicyDisputeResolution,
	PolicyDelivery,
	PolicyDataProtection,
	PolicyCompliance,
}

// ParsePolicyType maps a free-form label to a taxonomy entry. Returns false
// for anything outside the taxonomy.
func ParsePolicyType(s string) (PolicyType, bool) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	normalized = strings.ReplaceAll(normalized, "-", "_")
	switch normalized {
	case "ip", "intellectual_property":
		return PolicyIP, true
	case "payment", "payment_terms":
		return PolicyPaymentTerms, true
	case "dispute", "dispute_resolution":
		return PolicyDisputeResolution, true
	case "data_protection", "privacy":
		return PolicyDataProtection, true
	}
	for _, pt := range AllPolicyTypes {
		if normalized == string(pt) {
			return pt, true
		}
	}
	return "", false
}

// RiskLevel grades the severity of a clause finding.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
	RiskUnknown  RiskLevel = "unknown"
)

// ParseRiskLevel normalizes a provider-reported risk label. Anything outside
// the known set maps to RiskUnknown rather than failing the merge.
func ParseRiskLevel(s string) RiskLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return RiskLow
	case "medium", "moderate":
		return RiskMedium
	case "high":
		return RiskHigh
	case "critical", "severe":
		return RiskCritical
	default:
		return RiskUnknown
	}
}

// ClauseAnalysis is the per-clause verdict produced by the merge step. The
// JSON field names are stable: report generation and chat-context formatting
// consume these exact keys.
//
// Compliant is a tri-state: nil means the analysis could not be obtained and
// RequiresHumanReview is set.
type ClauseAnalysis struct {
	ClauseID             string    `json:"clause_id"`
	ClauseType           string    `json:"clause_type,omitempty"`
	Compliant            *bool     `json:"compliant"`
	RiskLevel            RiskLevel `json:"risk_level"`
	Issues               []string  `json:"issues"`
	Recommendations      []string  `json:"recommendations"`
	PolicyReferences     []string  `json:"policy_references"`
	SuggestedAlternative string    `json:"suggested_alternative,omitempty"`
	RequiresHumanReview  bool      `json:"requires_human_review"`
	Error                string    `json:"error,omitempty"`
}

// BatchOutcome is the unit returned to the contract analyzer. Results are
// ordered by input position and always have one entry per input clause.
type BatchOutcome struct {
	Results           []ClauseAnalysis `json:"results"`
	ProviderCallsUsed int              `json:"provider_calls_used"`
	ChunksProcessed   int              `json:"chunks_processed"`
	PoliciesRetrieved int              `json:"policies_retrieved"`
	InputTokens       int              `json:"input_tokens,omitempty"`
	OutputTokens      int              `json:"output_tokens,omitempty"`
}

// MarshalIndent renders the outcome as the stable JSON consumed downstream.
func (o *BatchOutcome) MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(o, "", "  ")
}
