package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"clauseguard/internal/config"
	"clauseguard/internal/embedding"
	"clauseguard/internal/retrieval"
	"clauseguard/internal/store"
	"clauseguard/internal/types"
)

var (
	seedInput string
	seedDB    string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load policy documents into the vector store",
	Long: `Embeds and inserts policy documents into the policy store. Documents
with a region go into that region's collection; the rest go into the
global collection.

Input file format:

  policies:
    - content: "Liability must be capped at the total contract value."
      source_type: policy
      policy_type: liability
    - content: "GDPR Art. 28 processor obligations ..."
      source_type: law
      region: eu`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVarP(&seedInput, "input", "i", "", "Policy corpus file (YAML or JSON, required)")
	seedCmd.Flags().StringVar(&seedDB, "db", "", "Policy store path (default: <workspace>/.clauseguard/policies.db)")
	seedCmd.MarkFlagRequired("input")
}

type seedPolicy struct {
	Content    string            `json:"content" yaml:"content"`
	SourceType string            `json:"source_type" yaml:"source_type"`
	PolicyType string            `json:"policy_type" yaml:"policy_type"`
	Region     string            `json:"region" yaml:"region"`
	Metadata   map[string]string `json:"metadata" yaml:"metadata"`
}

type seedCorpus struct {
	Policies []seedPolicy `json:"policies" yaml:"policies"`
}

func runSeed(cmd *cobra.Command, args []string) error {
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

	corpus, err := loadSeedCorpus(seedInput)
	if err != nil {
		return err
	}

	dbPath := seedDB
	if dbPath == "" {
		guardDir := filepath.Join(ws, ".clauseguard")
		if err := os.MkdirAll(guardDir, 0755); err != nil {
			return fmt.Errorf("create .clauseguard dir: %w", err)
		}
		dbPath = filepath.Join(guardDir, "policies.db")
	}

	engine, err := embedding.NewEngine(cfg.Embedding, cfg.LLM.APIKey)
	if err != nil {
		return fmt.Errorf("embedding engine: %w", err)
	}
	ps, err := store.Open(dbPath, engine)
	if err != nil {
		return fmt.Errorf("open policy store: %w", err)
	}
	defer ps.Close()

	inserted := 0
	for i, p := range corpus.Policies {
		collection := retrieval.GlobalCollection
		if p.Region != "" {
			collection = retrieval.RegionalCollection(p.Region)
		}

		sourceType := p.SourceType
		if sourceType == "" {
			sourceType = string(types.SourcePolicy)
		}

		metadata := p.Metadata
		if p.PolicyType != "" {
			if pt, ok := types.ParsePolicyType(p.PolicyType); ok {
				if metadata == nil {
					metadata = make(map[string]string)
				}
				metadata["policy_type"] = string(pt)
			} else {
				logger.Warn("unknown policy type, storing without it",
					zap.Int("entry", i+1), zap.String("policy_type", p.PolicyType))
			}
		}

		if err := ps.Insert(ctx, collection, p.Content, sourceType, metadata); err != nil {
			return fmt.Errorf("insert policy %d: %w", i+1, err)
		}
		inserted++
	}

	logger.Info("seeded policy store",
		zap.String("path", dbPath),
		zap.Int("documents", inserted))
	fmt.Printf("Inserted %d policy documents into %s\n", inserted, dbPath)
	return nil
}

func loadSeedCorpus(path string) (*seedCorpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}

	var corpus seedCorpus
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &corpus)
	default:
		err = json.Unmarshal(data, &corpus)
	}
	if err != nil {
		return nil, fmt.Errorf("parse corpus %s: %w", path, err)
	}

	if len(corpus.Policies) == 0 {
		return nil, fmt.Errorf("corpus %s contains no policies", path)
	}
	for i, p := range corpus.Policies {
		if strings.TrimSpace(p.Content) == "" {
			return nil, fmt.Errorf("policy %d has no content", i+1)
		}
	}
	return &corpus, nil
}
