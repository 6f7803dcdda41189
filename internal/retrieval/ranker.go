// Package retrieval ranks policy documents for contract analysis. It merges
// results from the global and regional policy collections, boosting regional
// documents so local regulation outranks near-tied global policy.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"clauseguard/internal/config"
	"clauseguard/internal/logging"
	"clauseguard/internal/store"
	"clauseguard/internal/types"
)

// GlobalCollection holds company-wide policies and general legal standards.
const GlobalCollection = "global"

// RegionalCollection names the per-region collection.
func RegionalCollection(region string) string {
	return "regional_" + region
}

// Searcher is the slice of the policy store the ranker needs.
type Searcher interface {
	Search(ctx context.Context, collection, query string, topK int) ([]store.SearchResult, error)
}

// Ranker retrieves and ranks policy documents.
type Ranker struct {
	store      Searcher
	classifier *Classifier
	cfg        config.RetrievalConfig
}

// NewRanker creates a ranker. classifier may be nil, in which case
// RankForContract queries every policy type.
func NewRanker(s Searcher, classifier *Classifier, cfg config.RetrievalConfig) *Ranker {
	return &Ranker{store: s, classifier: classifier, cfg: cfg}
}

// Rank retrieves the topK policy documents most relevant to query. It
// queries the global collection and, when a region is configured, the
// regional collection; regional scores are multiplied by the configured
// weight before the merged sort, so regional documents may carry adjusted
// scores above 1.0.
func (r *Ranker) Rank(ctx context.Context, query string, topK int) ([]types.PolicyDocument, error) {
	timer := logging.StartTimer(logging.CategoryRetrieval, "Rank")
	defer timer.Stop()

	if topK <= 0 {
		topK = r.cfg.TopK
	}

	globalHits, err := r.store.Search(ctx, GlobalCollection, query, topK)
	if err != nil {
		return nil, fmt.Errorf("global policy search failed: %w", err)
	}

	docs := make([]types.PolicyDocument, 0, topK*2)
	for _, hit := range globalHits {
		docs = append(docs, toDocument(hit, hit.Similarity))
	}

	if r.cfg.Region != "" {
		regionalHits, err := r.store.Search(ctx, RegionalCollection(r.cfg.Region), query, topK)
		if err != nil {
			return nil, fmt.Errorf("regional policy search failed: %w", err)
		}
		for _, hit := range regionalHits {
			doc := toDocument(hit, hit.Similarity*r.cfg.RegionalWeightMultiplier)
			doc.SourceType = types.SourceRegional
			docs = append(docs, doc)
		}
	}

	docs = dedupeByContent(docs)
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].Score > docs[j].Score
	})
	if len(docs) > topK {
		docs = docs[:topK]
	}

	logging.RetrievalDebug("Rank: query_len=%d region=%q returned %d documents", len(query), r.cfg.Region, len(docs))
	return docs, nil
}

// RankForContract classifies the contract, then retrieves ranked documents
// for each relevant policy type plus the general catch-all. Per-type
// retrieval failures degrade to an empty slice for that type rather than
// failing the whole map.
func (r *Ranker) RankForContract(ctx context.Context, contractPreview string) (map[types.PolicyType][]types.PolicyDocument, error) {
	timer := logging.StartTimer(logging.CategoryRetrieval, "RankForContract")
	defer timer.Stop()

	policyTypes := types.AllPolicyTypes
	if r.classifier != nil {
		classified, err := r.classifier.Classify(ctx, contractPreview)
		if err != nil {
			return nil, err
		}
		policyTypes = classified
	}

	queries := make(map[types.PolicyType]string, len(policyTypes)+1)
	for _, pt := range policyTypes {
		queries[pt] = typeQuery(pt)
	}
	queries[types.PolicyGeneral] = contractPreview

	var mu sync.Mutex
	results := make(map[types.PolicyType][]types.PolicyDocument, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for pt, query := range queries {
		g.Go(func() error {
			docs, err := r.Rank(gctx, query, r.cfg.TopK)
			if err != nil {
				logging.Retrieval("Retrieval for policy type %s failed, continuing with empty set: %v", pt, err)
				docs = nil
			}
			mu.Lock()
			results[pt] = docs
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logging.Retrieval("Retrieved policies for %d types", len(results))
	return results, nil
}

// typeQuery is the retrieval query for a policy type.
func typeQuery(pt types.PolicyType) string {
	return "contract clauses regarding " + string(pt)
}

func toDocument(hit store.SearchResult, score float64) types.PolicyDocument {
	st := types.SourceType(hit.SourceType)
	switch st {
	case types.SourcePolicy, types.SourceLaw, types.SourceRegional, types.SourceGeneral:
	default:
		st = types.SourceGeneral
	}
	return types.PolicyDocument{
		Content:    hit.Content,
		SourceType: st,
		Score:      score,
		Metadata:   hit.Metadata,
	}
}

// dedupeByContent drops duplicate documents, keeping the higher-scored copy.
// The same document can appear in both the global and regional collections.
func dedupeByContent(docs []types.PolicyDocument) []types.PolicyDocument {
	best := make(map[string]int, len(docs))
	out := docs[:0]
	for _, doc := range docs {
		if i, ok := best[doc.Content]; ok {
			if doc.Score > out[i].Score {
				out[i] = doc
			}
			continue
		}
		best[doc.Content] = len(out)
		out = append(out, doc)
	}
	return out
}
