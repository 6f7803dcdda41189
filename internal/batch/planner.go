// Package batch implements the contract analysis pipeline: token budget
// planning, prompt assembly, response validation, result merging, and the
// orchestrating state machine.
package batch

import (
	"clauseguard/internal/config"
	"clauseguard/internal/types"
)

// PromptBudget is the planner's verdict on how a clause set fits the model's
// context window.
type PromptBudget struct {
	ClauseCount      int
	EstimatedTokens  int
	MaxSafeTokens    int
	ChunkSize        int
	ChunkCount       int
	RequiresChunking bool
}

// Plan estimates the prompt cost of analyzing clauses and decides between a
// single call and chunked calls. Token estimation applies a chars-per-token
// heuristic to the clause text plus policyChars (the formatted policy
// context), and adds a flat per-clause cost for instructions and response
// room; the budget is the context window scaled by the safety fraction.
// Plan is a pure function.
func Plan(clauses []types.Clause, policyChars, contextWindow int, cfg config.BatchConfig) PromptBudget {
	maxSafe := int(float64(contextWindow) * cfg.SafetyFraction)

	totalChars := policyChars
	for _, c := range clauses {
		totalChars += len(c.Text)
	}
	estimated := (totalChars+cfg.CharsPerToken-1)/cfg.CharsPerToken + len(clauses)*cfg.PerClauseTokenCost

	chunkSize := maxSafe / cfg.PerClauseTokenCost
	if chunkSize < cfg.MinChunkSize {
		chunkSize = cfg.MinChunkSize
	}

	budget := PromptBudget{
		ClauseCount:     len(clauses),
		EstimatedTokens: estimated,
		MaxSafeTokens:   maxSafe,
		ChunkSize:       chunkSize,
	}

	if len(clauses) == 0 {
		return budget
	}

	budget.RequiresChunking = estimated > maxSafe
	if budget.RequiresChunking {
		budget.ChunkCount = (len(clauses) + chunkSize - 1) / chunkSize
	} else {
		budget.ChunkCount = 1
	}
	return budget
}

// Chunks splits clauses into consecutive groups of at most ChunkSize,
// preserving input order.
func (b PromptBudget) Chunks(clauses []types.Clause) [][]types.Clause {
	if len(clauses) == 0 {
		return nil
	}
	if !b.RequiresChunking {
		return [][]types.Clause{clauses}
	}

	var chunks [][]types.Clause
	for start := 0; start < len(clauses); start += b.ChunkSize {
		end := start + b.ChunkSize
		if end > len(clauses) {
			end = len(clauses)
		}
		chunks = append(chunks, clauses[start:end])
	}
	return chunks
}
