package types

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseRiskLevel(t *testing.T) {
	cases := map[string]RiskLevel{
		"low":      RiskLow,
		"LOW":      RiskLow,
		" Medium ": RiskMedium,
		"moderate": RiskMedium,
		"high":     RiskHigh,
		"critical": RiskCritical,
		"severe":   RiskCritical,
		"":         RiskUnknown,
		"banana":   RiskUnknown,
	}
	for input, want := range cases {
		if got := ParseRiskLevel(input); got != want {
			t.Errorf("ParseRiskLevel(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestParsePolicyType(t *testing.T) {
	cases := []struct {
		input string
		want  PolicyType
		ok    bool
	}{
		{"liability", PolicyLiability, true},
		{"IP", PolicyIP, true},
		{"intellectual property", PolicyIP, true},
		{"payment terms", PolicyPaymentTerms, true},
		{"dispute-resolution", PolicyDisputeResolution, true},
		{"privacy", PolicyDataProtection, true},
		{"Termination", PolicyTermination, true},
		{"plumbing", "", false},
	}
	for _, tc := range cases {
		got, ok := ParsePolicyType(tc.input)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ParsePolicyType(%q) = (%q, %v), want (%q, %v)", tc.input, got, ok, tc.want, tc.ok)
		}
	}
}

func TestAllPolicyTypesExcludesGeneral(t *testing.T) {
	for _, pt := range AllPolicyTypes {
		if pt == PolicyGeneral {
			t.Fatal("AllPolicyTypes must not contain the general catch-all")
		}
	}
	if len(AllPolicyTypes) != 10 {
		t.Errorf("Expected 10 taxonomy entries, got %d", len(AllPolicyTypes))
	}
}

// The JSON keys of ClauseAnalysis are consumed verbatim by report generation
// and the chat-context endpoint. Renaming a field is a breaking change.
func TestClauseAnalysisStableJSONKeys(t *testing.T) {
	compliant := false
	a := ClauseAnalysis{
		ClauseID:             "c-1",
		ClauseType:           "liability",
		Compliant:            &compliant,
		RiskLevel:            RiskHigh,
		Issues:               []string{"uncapped liability"},
		Recommendations:      []string{"add a cap"},
		PolicyReferences:     []string{"policy-7"},
		SuggestedAlternative: "Liability is capped at fees paid.",
		RequiresHumanReview:  false,
	}
	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{
		`"clause_id"`, `"compliant"`, `"risk_level"`, `"issues"`,
		`"recommendations"`, `"policy_references"`, `"suggested_alternative"`,
		`"requires_human_review"`,
	} {
		if !strings.Contains(string(data), key) {
			t.Errorf("serialized analysis missing key %s: %s", key, data)
		}
	}
}

func TestClauseAnalysisNullCompliant(t *testing.T) {
	a := ClauseAnalysis{ClauseID: "c-2", RiskLevel: RiskUnknown, RequiresHumanReview: true}
	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"compliant":null`) {
		t.Errorf("nil Compliant must serialize as null, got %s", data)
	}
}
