package retrieval

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"clauseguard/internal/config"
	"clauseguard/internal/provider"
	"clauseguard/internal/store"
	"clauseguard/internal/types"
)

// fakeSearcher serves canned results per collection.
type fakeSearcher struct {
	results map[string][]store.SearchResult
	err     error
	calls   []string
}

func (f *fakeSearcher) Search(_ context.Context, collection, query string, topK int) ([]store.SearchResult, error) {
	f.calls = append(f.calls, collection)
	if f.err != nil {
		return nil, f.err
	}
	hits := f.results[collection]
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func retrievalConfig(region string) config.RetrievalConfig {
	cfg := config.DefaultRetrievalConfig()
	cfg.Region = region
	return cfg
}

func TestRankRegionalBoostChangesOrder(t *testing.T) {
	// A regional law at raw similarity 0.80 must outrank a global policy
	// at 0.85: 0.80 * 1.1 = 0.88.
	searcher := &fakeSearcher{results: map[string][]store.SearchResult{
		GlobalCollection: {
			{Content: "global liability policy", SourceType: "policy", Similarity: 0.85},
		},
		RegionalCollection("eu"): {
			{Content: "EU liability directive", SourceType: "regional", Similarity: 0.80},
		},
	}}
	ranker := NewRanker(searcher, nil, retrievalConfig("eu"))

	docs, err := ranker.Rank(context.Background(), "liability", 5)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("Expected 2 documents, got %d", len(docs))
	}
	if docs[0].Content != "EU liability directive" {
		t.Errorf("Expected regional document first, got %q", docs[0].Content)
	}
	if math.Abs(docs[0].Score-0.88) > 1e-9 {
		t.Errorf("Expected adjusted score 0.88, got %g", docs[0].Score)
	}
	if docs[0].SourceType != types.SourceRegional {
		t.Errorf("Expected regional source type, got %s", docs[0].SourceType)
	}
	if docs[1].Score != 0.85 {
		t.Errorf("Expected global score unchanged at 0.85, got %g", docs[1].Score)
	}
}

func TestRankNoRegionSkipsRegionalCollection(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]store.SearchResult{
		GlobalCollection: {
			{Content: "policy a", SourceType: "policy", Similarity: 0.9},
		},
	}}
	ranker := NewRanker(searcher, nil, retrievalConfig(""))

	docs, err := ranker.Rank(context.Background(), "liability", 5)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("Expected 1 document, got %d", len(docs))
	}
	for _, c := range searcher.calls {
		if c != GlobalCollection {
			t.Errorf("Unexpected collection queried: %s", c)
		}
	}
}

func TestRankDedupKeepsHigherScore(t *testing.T) {
	// Same document present in both collections: keep the boosted copy.
	searcher := &fakeSearcher{results: map[string][]store.SearchResult{
		GlobalCollection: {
			{Content: "shared data protection rule", SourceType: "policy", Similarity: 0.82},
		},
		RegionalCollection("eu"): {
			{Content: "shared data protection rule", SourceType: "regional", Similarity: 0.82},
		},
	}}
	ranker := NewRanker(searcher, nil, retrievalConfig("eu"))

	docs, err := ranker.Rank(context.Background(), "data protection", 5)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("Expected dedup to 1 document, got %d", len(docs))
	}
	if math.Abs(docs[0].Score-0.82*1.1) > 1e-9 {
		t.Errorf("Expected boosted copy kept, got score %g", docs[0].Score)
	}
}

func TestRankTruncatesToTopK(t *testing.T) {
	var hits []store.SearchResult
	for i := 0; i < 10; i++ {
		hits = append(hits, store.SearchResult{
			Content:    fmt.Sprintf("doc %d", i),
			SourceType: "policy",
			Similarity: 1.0 - float64(i)*0.05,
		})
	}
	searcher := &fakeSearcher{results: map[string][]store.SearchResult{GlobalCollection: hits}}
	ranker := NewRanker(searcher, nil, retrievalConfig(""))

	docs, err := ranker.Rank(context.Background(), "query", 3)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if len(docs) != 3 {
		t.Errorf("Expected 3 documents, got %d", len(docs))
	}
	if docs[0].Content != "doc 0" {
		t.Errorf("Expected highest scored first, got %q", docs[0].Content)
	}
}

func TestRankForContractQueriesGeneralCatchAll(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]store.SearchResult{
		GlobalCollection: {
			{Content: "some policy", SourceType: "policy", Similarity: 0.7},
		},
	}}
	ranker := NewRanker(searcher, nil, retrievalConfig(""))

	result, err := ranker.RankForContract(context.Background(), "This agreement covers services")
	if err != nil {
		t.Fatalf("RankForContract failed: %v", err)
	}
	// Without a classifier: all taxonomy types plus the general catch-all
	if len(result) != len(types.AllPolicyTypes)+1 {
		t.Errorf("Expected %d type entries, got %d", len(types.AllPolicyTypes)+1, len(result))
	}
	if _, ok := result[types.PolicyGeneral]; !ok {
		t.Error("Expected general catch-all entry")
	}
}

func TestRankForContractPerTypeFailureDegrades(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("store offline")}
	ranker := NewRanker(searcher, nil, retrievalConfig(""))

	result, err := ranker.RankForContract(context.Background(), "preview")
	if err != nil {
		t.Fatalf("Per-type failures must not fail the call: %v", err)
	}
	for pt, docs := range result {
		if len(docs) != 0 {
			t.Errorf("Expected empty set for %s, got %d docs", pt, len(docs))
		}
	}
}

// classifierClient scripts classification responses.
type classifierClient struct {
	text string
	err  error
}

func (c *classifierClient) Generate(_ context.Context, _ string, _ provider.GenerateOptions) (*provider.RawResponse, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &provider.RawResponse{Text: c.text, FinishReason: "STOP"}, nil
}

func (c *classifierClient) Model() string { return "mock" }

func testInvoker(client provider.Client) *provider.Invoker {
	return provider.NewInvoker(client, nil, config.QuotaConfig{
		MaxRetries:  1,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  time.Millisecond,
	})
}

func TestClassifyParsesJSONArray(t *testing.T) {
	inv := testInvoker(&classifierClient{text: `["liability", "payment_terms", "liability"]`})
	c := NewClassifier(inv, false)

	got, err := c.Classify(context.Background(), "contract text")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if len(got) != 2 || got[0] != types.PolicyLiability || got[1] != types.PolicyPaymentTerms {
		t.Errorf("Unexpected types: %v", got)
	}
}

func TestClassifyStripsFencesAndChatter(t *testing.T) {
	inv := testInvoker(&classifierClient{text: "Sure, here are the types:\n```json\n[\"confidentiality\", \"ip\"]\n```"})
	c := NewClassifier(inv, false)

	got, err := c.Classify(context.Background(), "contract text")
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if len(got) != 2 || got[0] != types.PolicyConfidentiality || got[1] != types.PolicyIP {
		t.Errorf("Unexpected types: %v", got)
	}
}

func TestClassifyFailOpen(t *testing.T) {
	inv := testInvoker(&classifierClient{err: &provider.ProviderError{StatusCode: 500, Message: "internal"}})
	c := NewClassifier(inv, true)

	got, err := c.Classify(context.Background(), "contract text")
	if err != nil {
		t.Fatalf("Fail-open classify must not error: %v", err)
	}
	if len(got) != len(types.AllPolicyTypes) {
		t.Errorf("Expected all %d types, got %d", len(types.AllPolicyTypes), len(got))
	}
}

func TestClassifyFailClosed(t *testing.T) {
	inv := testInvoker(&classifierClient{err: &provider.ProviderError{StatusCode: 500, Message: "internal"}})
	c := NewClassifier(inv, false)

	if _, err := c.Classify(context.Background(), "contract text"); err == nil {
		t.Error("Expected error with fail-open disabled")
	}
}
