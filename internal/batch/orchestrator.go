package batch

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"clauseguard/internal/config"
	"clauseguard/internal/logging"
	"clauseguard/internal/provider"
	"clauseguard/internal/types"
)

// State names a phase of the batch analysis pipeline.
type State string

const (
	StatePlanning   State = "planning"
	StateRetrieving State = "retrieving"
	StateAnalyzing  State = "analyzing"
	StateMerging    State = "merging"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// BatchError surfaces an unrecovered pipeline failure with enough context to
// diagnose without re-running: which state failed, which chunk, and the
// token estimates in play.
type BatchError struct {
	State           State
	ChunkIndex      int
	ChunkCount      int
	ClauseCount     int
	EstimatedTokens int
	MaxSafeTokens   int
	Err             error
}

func (e *BatchError) Error() string {
	if e.ChunkCount > 1 {
		return fmt.Sprintf("batch analysis failed in %s (chunk %d/%d, %d clauses, est %d/%d tokens): %v",
			e.State, e.ChunkIndex+1, e.ChunkCount, e.ClauseCount, e.EstimatedTokens, e.MaxSafeTokens, e.Err)
	}
	return fmt.Sprintf("batch analysis failed in %s (%d clauses, est %d/%d tokens): %v",
		e.State, e.ClauseCount, e.EstimatedTokens, e.MaxSafeTokens, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// PolicyRetriever is the slice of the retrieval layer the orchestrator
// needs.
type PolicyRetriever interface {
	RankForContract(ctx context.Context, contractPreview string) (map[types.PolicyType][]types.PolicyDocument, error)
}

// UsageRecorder receives token counts from completed provider calls.
type UsageRecorder interface {
	Track(ctx context.Context, model, providerName string, inputTokens, outputTokens int, operation string)
}

// Orchestrator drives a clause batch through planning, retrieval, analysis,
// and merging. A batch either fully succeeds with one result per clause or
// fails outright; partial progress is never returned.
type Orchestrator struct {
	invoker       *provider.Invoker
	retriever     PolicyRetriever
	usage         UsageRecorder
	contextWindow int
	batchCfg      config.BatchConfig
	retrievalCfg  config.RetrievalConfig
}

// NewOrchestrator wires the pipeline. retriever may be nil (analysis runs
// without policy context); usage may be nil.
func NewOrchestrator(invoker *provider.Invoker, retriever PolicyRetriever, usage UsageRecorder, cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		invoker:       invoker,
		retriever:     retriever,
		usage:         usage,
		contextWindow: cfg.LLM.ContextWindow,
		batchCfg:      cfg.Batch,
		retrievalCfg:  cfg.Retrieval,
	}
}

// contractPreview builds the classification/retrieval preview from the
// leading clauses.
func contractPreview(clauses []types.Clause) string {
	const maxPreview = 4000
	var b strings.Builder
	for _, c := range clauses {
		if b.Len() >= maxPreview {
			break
		}
		b.WriteString(c.Text)
		b.WriteString("\n")
	}
	preview := b.String()
	if len(preview) > maxPreview {
		// Back up to a rune boundary so the cut never splits a
		// multi-byte character.
		cut := maxPreview
		for cut > 0 && !utf8.RuneStart(preview[cut]) {
			cut--
		}
		preview = preview[:cut]
	}
	return preview
}

// AnalyzeBatch analyzes all clauses and returns one ClauseAnalysis per
// clause, in input order. An empty clause list succeeds immediately with an
// empty result set.
func (o *Orchestrator) AnalyzeBatch(ctx context.Context, clauses []types.Clause) (*types.BatchOutcome, error) {
	timer := logging.StartTimer(logging.CategoryBatch, "AnalyzeBatch")
	defer timer.Stop()

	if len(clauses) == 0 {
		logging.Batch("Empty clause list, nothing to analyze")
		return &types.BatchOutcome{Results: []types.ClauseAnalysis{}}, nil
	}

	// Planning: first-pass budget over the clause text alone.
	budget := Plan(clauses, 0, o.contextWindow, o.batchCfg)
	logging.Batch("Planned batch: %d clauses, est %d tokens, budget %d, chunking=%t",
		budget.ClauseCount, budget.EstimatedTokens, budget.MaxSafeTokens, budget.RequiresChunking)

	// Retrieving: rank policy context and fit it under the reservation.
	var policyText string
	policiesRetrieved := 0
	if o.retriever != nil {
		policies, err := o.retriever.RankForContract(ctx, contractPreview(clauses))
		if err != nil {
			return nil, o.fail(StateRetrieving, budget, -1, err)
		}
		policies = TruncatePolicies(policies, o.batchCfg, o.retrievalCfg.MaxDocsPerType)
		for _, docs := range policies {
			policiesRetrieved += len(docs)
		}
		policyText = FormatPolicies(policies)
	}

	// Re-plan with the formatted policy context included in the estimate.
	budget = Plan(clauses, len(policyText), o.contextWindow, o.batchCfg)

	// Analyzing: sequential chunk calls, fail-fast. A systemic failure
	// (quota, safety) will recur, so remaining chunks are not attempted
	// and completed chunks are discarded.
	chunks := budget.Chunks(clauses)
	outcome := &types.BatchOutcome{PoliciesRetrieved: policiesRetrieved}

	var analyses []types.ClauseAnalysis
	for i, chunk := range chunks {
		logging.Batch("Analyzing chunk %d/%d (%d clauses)", i+1, len(chunks), len(chunk))

		prompt := BuildPrompt(chunk, policyText)
		resp, err := o.invoker.Invoke(ctx, prompt, provider.GenerateOptions{
			SystemPrompt: analysisSystemPrompt,
			JSONOutput:   true,
		})
		if err != nil {
			return nil, o.fail(StateAnalyzing, budget, i, err)
		}
		outcome.ProviderCallsUsed++
		inTokens, outTokens := resp.Usage.InputTokens, resp.Usage.OutputTokens
		if inTokens == 0 && outTokens == 0 {
			// Provider omitted usage metadata; fall back to the
			// planner's chars-per-token estimate.
			inTokens = len(prompt) / o.batchCfg.CharsPerToken
			outTokens = len(resp.Text) / o.batchCfg.CharsPerToken
		}
		outcome.InputTokens += inTokens
		outcome.OutputTokens += outTokens
		if o.usage != nil {
			o.usage.Track(ctx, o.invoker.Model(), "gemini", inTokens, outTokens, "batch_analysis")
		}

		chunkAnalyses, err := Validate(resp, len(chunk), o.batchCfg)
		if err != nil {
			return nil, o.fail(StateAnalyzing, budget, i, err)
		}
		analyses = append(analyses, chunkAnalyses...)
		outcome.ChunksProcessed++
	}

	// Merging: align analyses back onto the ordered clause list.
	outcome.Results = Merge(clauses, analyses)

	logging.Batch("Batch done: %d results, %d calls, %d chunks", len(outcome.Results), outcome.ProviderCallsUsed, outcome.ChunksProcessed)
	return outcome, nil
}

func (o *Orchestrator) fail(state State, budget PromptBudget, chunkIndex int, err error) *BatchError {
	be := &BatchError{
		State:           state,
		ChunkIndex:      chunkIndex,
		ChunkCount:      budget.ChunkCount,
		ClauseCount:     budget.ClauseCount,
		EstimatedTokens: budget.EstimatedTokens,
		MaxSafeTokens:   budget.MaxSafeTokens,
		Err:             err,
	}
	logging.Get(logging.CategoryBatch).Error("%v", be)
	return be
}
