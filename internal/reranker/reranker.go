// Package reranker re-orders retrieval candidates with a cross-encoder relevance model.
//
// Vector search compares independently computed embeddings; the cross-encoder
// scores each (query, document) pair jointly, which is slower but much more
// precise. The two-stage design retrieves a broad candidate set cheaply and
// spends the expensive model only on that set.
//
// Scorer failures propagate to the caller: reranking is a required step, and
// the retrieval orchestrator owns the degrade-to-empty fallback.
package reranker

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/impacttracker/esgrag/internal/vectorstore"
)

// Scorer is the cross-encoder inference collaborator. Predict scores each
// (query, document) pair and returns one unbounded real-valued logit per
// pair, in input order. It is stateless and safe for concurrent use.
type Scorer interface {
	Predict(ctx context.Context, pairs []Pair) ([]float64, error)
}

// Pair is a single (query, document) input to the cross-encoder.
type Pair struct {
	Query    string `json:"query"`
	Document string `json:"document"`
}

// RankedResult is a retrieval candidate with its normalized relevance score.
type RankedResult struct {
	vectorstore.SearchResult

	// Relevance is the sigmoid-normalized cross-encoder score in [0,1].
	// This is the canonical relevance value used for sorting, thresholding
	// and display everywhere downstream.
	Relevance float64
}

// Reranker scores candidates against a query and returns them in relevance order.
type Reranker struct {
	scorer Scorer
}

// New creates a Reranker backed by the given cross-encoder scorer.
func New(scorer Scorer) *Reranker {
	return &Reranker{scorer: scorer}
}

// Rerank pairs the query with every candidate, scores the pairs, normalizes
// the logits through a sigmoid, and returns the candidates sorted by
// descending relevance, truncated to topK. The sort is stable: candidates
// with identical scores keep their original retrieval order.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []vectorstore.SearchResult, topK int) ([]RankedResult, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	pairs := make([]Pair, len(candidates))
	for i, c := range candidates {
		pairs[i] = Pair{Query: query, Document: c.Content}
	}

	logits, err := r.scorer.Predict(ctx, pairs)
	if err != nil {
		return nil, fmt.Errorf("cross-encoder predict: %w", err)
	}
	if len(logits) != len(candidates) {
		return nil, fmt.Errorf("cross-encoder returned %d scores for %d pairs", len(logits), len(candidates))
	}

	ranked := make([]RankedResult, len(candidates))
	for i, c := range candidates {
		ranked[i] = RankedResult{
			SearchResult: c,
			Relevance:    Sigmoid(logits[i]),
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Relevance > ranked[j].Relevance
	})

	if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	return ranked, nil
}

// Sigmoid maps an unbounded logit onto (0,1). Monotonic: a higher logit
// never produces a lower score.
func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}
