package batch

import (
	"strings"

	"clauseguard/internal/logging"
	"clauseguard/internal/types"
)

// fallbackError marks an analysis the provider never returned.
const fallbackError = "analysis not returned for this clause"

// Merge aligns parsed analyses back onto the original ordered clause list.
// The output always has exactly one entry per input clause, in input order,
// with clause id and type taken from the original clause rather than the
// provider echo.
//
// Analyses whose echoed clause_id names an input clause are matched by id;
// the rest, including analyses echoing ids the input never contained, are
// consumed positionally. Any clause left unmatched gets a fallback record
// with compliant=null and requires_human_review=true.
func Merge(clauses []types.Clause, analyses []types.ClauseAnalysis) []types.ClauseAnalysis {
	clauseIDs := make(map[string]bool, len(clauses))
	for _, c := range clauses {
		clauseIDs[c.ID] = true
	}

	byID := make(map[string]*types.ClauseAnalysis, len(analyses))
	var unmatched []*types.ClauseAnalysis
	for i := range analyses {
		a := &analyses[i]
		if a.ClauseID != "" && clauseIDs[a.ClauseID] {
			if _, dup := byID[a.ClauseID]; !dup {
				byID[a.ClauseID] = a
				continue
			}
		}
		unmatched = append(unmatched, a)
	}

	results := make([]types.ClauseAnalysis, len(clauses))
	fallbacks := 0
	for i, clause := range clauses {
		var a *types.ClauseAnalysis
		if m, ok := byID[clause.ID]; ok {
			a = m
		} else if len(unmatched) > 0 {
			a = unmatched[0]
			unmatched = unmatched[1:]
		}

		if a == nil {
			results[i] = fallbackAnalysis(clause)
			fallbacks++
			continue
		}

		merged := *a
		merged.ClauseID = clause.ID
		if merged.ClauseType == "" {
			merged.ClauseType = clause.StyleHint
		}
		merged.RiskLevel = types.ParseRiskLevel(string(merged.RiskLevel))
		results[i] = merged
	}

	if fallbacks > 0 {
		logging.Batch("Merge synthesized %d fallback records for %d clauses", fallbacks, len(clauses))
	}
	if len(unmatched) > 0 {
		ids := make([]string, 0, len(unmatched))
		for _, a := range unmatched {
			ids = append(ids, a.ClauseID)
		}
		logging.Batch("Merge discarded %d surplus analyses (ids: %s)", len(unmatched), strings.Join(ids, ", "))
	}
	return results
}

func fallbackAnalysis(clause types.Clause) types.ClauseAnalysis {
	return types.ClauseAnalysis{
		ClauseID:            clause.ID,
		ClauseType:          clause.StyleHint,
		Compliant:           nil,
		RiskLevel:           types.RiskUnknown,
		RequiresHumanReview: true,
		Error:               fallbackError,
	}
}
