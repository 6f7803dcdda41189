package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"clauseguard/internal/batch"
	"clauseguard/internal/config"
	"clauseguard/internal/embedding"
	"clauseguard/internal/provider"
	"clauseguard/internal/retrieval"
	"clauseguard/internal/store"
	"clauseguard/internal/types"
	"clauseguard/internal/usage"
)

var (
	analyzeInput  string
	analyzeOutput string
	analyzeDB     string
	noRetrieval   bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a batch of contract clauses against the policy corpus",
	Long: `Reads extracted clauses from a YAML or JSON file, retrieves relevant
policy context from the vector store, and analyzes every clause with the
configured provider. The batch result is written as JSON.

Input file format:

  region: eu
  clauses:
    - id: c1
      text: "The supplier's liability shall be unlimited."
      style_hint: liability

Clauses without an id are assigned one.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeInput, "input", "i", "", "Clause file (YAML or JSON, required)")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "Output file (default: stdout)")
	analyzeCmd.Flags().StringVar(&analyzeDB, "db", "", "Policy store path (default: <workspace>/.clauseguard/policies.db)")
	analyzeCmd.Flags().BoolVar(&noRetrieval, "no-retrieval", false, "Analyze without policy context")
	analyzeCmd.MarkFlagRequired("input")
}

// inputClause carries both tag sets so YAML and JSON inputs parse the same
// field names.
type inputClause struct {
	ID        string `json:"id" yaml:"id"`
	Text      string `json:"text" yaml:"text"`
	StyleHint string `json:"style_hint" yaml:"style_hint"`
}

type batchInput struct {
	Region  string        `json:"region" yaml:"region"`
	Clauses []inputClause `json:"clauses" yaml:"clauses"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	ws := resolveWorkspace()
	cfg, err := config.Load(ws)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if apiKey != "" {
		cfg.LLM.APIKey = apiKey
	}
	if region != "" {
		cfg.Retrieval.Region = region
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	input, err := loadBatchInput(analyzeInput)
	if err != nil {
		return err
	}
	if input.Region != "" && cfg.Retrieval.Region == "" {
		cfg.Retrieval.Region = input.Region
	}

	clauses := make([]types.Clause, len(input.Clauses))
	for i, c := range input.Clauses {
		id := c.ID
		if id == "" {
			id = uuid.NewString()
		}
		clauses[i] = types.Clause{
			ID:        id,
			Text:      c.Text,
			Position:  i,
			StyleHint: c.StyleHint,
		}
	}

	client, err := provider.NewGeminiClient(cfg.LLM)
	if err != nil {
		return err
	}
	quota := provider.NewQuotaTracker(cfg.Quota)
	invoker := provider.NewInvoker(client, quota, cfg.Quota)

	var retriever batch.PolicyRetriever
	if !noRetrieval {
		ranker, cleanup, err := openRanker(ws, cfg, invoker)
		if err != nil {
			return err
		}
		if cleanup != nil {
			defer cleanup()
		}
		if ranker != nil {
			retriever = ranker
		}
	}

	tracker, err := usage.NewTracker(ws)
	if err != nil {
		return fmt.Errorf("usage tracker: %w", err)
	}
	defer tracker.Save()

	ctx = usage.WithBatchContext(ctx, cfg.Retrieval.Region, uuid.NewString())

	orch := batch.NewOrchestrator(invoker, retriever, tracker, cfg)
	outcome, err := orch.AnalyzeBatch(ctx, clauses)
	if err != nil {
		return err
	}

	logger.Info("batch complete",
		zap.Int("clauses", len(outcome.Results)),
		zap.Int("provider_calls", outcome.ProviderCallsUsed),
		zap.Int("chunks", outcome.ChunksProcessed),
		zap.Int("policies", outcome.PoliciesRetrieved))

	data, err := outcome.MarshalIndent()
	if err != nil {
		return err
	}
	if analyzeOutput == "" {
		fmt.Println(string(data))
		return nil
	}
	return os.WriteFile(analyzeOutput, append(data, '\n'), 0644)
}

// openRanker wires the embedding engine, policy store, and classifier into
// a ranker. A missing store file is not an error; analysis just runs
// without policy context.
func openRanker(ws string, cfg *config.Config, invoker *provider.Invoker) (*retrieval.Ranker, func(), error) {
	dbPath := analyzeDB
	if dbPath == "" {
		dbPath = filepath.Join(ws, ".clauseguard", "policies.db")
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		logger.Warn("policy store not found, analyzing without policy context", zap.String("path", dbPath))
		return nil, nil, nil
	}

	engine, err := embedding.NewEngine(cfg.Embedding, cfg.LLM.APIKey)
	if err != nil {
		return nil, nil, fmt.Errorf("embedding engine: %w", err)
	}
	ps, err := store.Open(dbPath, engine)
	if err != nil {
		return nil, nil, fmt.Errorf("open policy store: %w", err)
	}

	classifier := retrieval.NewClassifier(invoker, cfg.Retrieval.FailOpenClassification)
	ranker := retrieval.NewRanker(ps, classifier, cfg.Retrieval)
	return ranker, func() { _ = ps.Close() }, nil
}

func loadBatchInput(path string) (*batchInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}

	var input batchInput
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &input)
	default:
		err = json.Unmarshal(data, &input)
	}
	if err != nil {
		return nil, fmt.Errorf("parse input %s: %w", path, err)
	}

	for i, c := range input.Clauses {
		if strings.TrimSpace(c.Text) == "" {
			return nil, fmt.Errorf("clause %d has no text", i+1)
		}
	}
	return &input, nil
}
