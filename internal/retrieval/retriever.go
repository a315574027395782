// Package retrieval runs the two-stage search: a broad vector similarity
// query followed by cross-encoder reranking of the candidate set.
//
// The orchestrator is the single point of resilience for the required steps.
// A filtered query that fails or matches nothing is retried without the
// filter, so an overly specific filter (a wrong company name, say) never
// starves the pipeline of context. When even the retry yields nothing, or
// when reranking fails, the result is an empty context, which downstream
// treats as "no evidence available" rather than an error.
package retrieval

import (
	"context"
	"log/slog"

	"github.com/impacttracker/esgrag/internal/embedder"
	"github.com/impacttracker/esgrag/internal/reranker"
	"github.com/impacttracker/esgrag/internal/vectorstore"
)

const (
	// DefaultInitialK is the breadth of the first-stage vector search.
	DefaultInitialK = 20

	// DefaultFinalK is how many results survive reranking.
	DefaultFinalK = 5
)

// Result is the outcome of a retrieval run. An empty Context with an empty
// Summary is a valid terminal outcome, not an error.
type Result struct {
	// Context is the formatted context text for the LLM prompt.
	Context string

	// Summary aggregates metadata over the retained result set.
	Summary MetadataSummary

	// Sources holds one citation line per retained result, in rank order.
	Sources []string
}

// Retriever orchestrates embed → vector search (with fallback) → rerank → format.
// A single retrieval runs synchronously end-to-end; concurrent retrievals
// share only the read-only index and the stateless reranker.
type Retriever struct {
	store      vectorstore.VectorStore
	embedder   embedder.Embedder
	reranker   *reranker.Reranker
	logger     *slog.Logger
	collection string
	schema     Schema
	initialK   int
	finalK     int
}

// Option is a functional option for configuring Retriever.
type Option func(*Retriever)

// WithSchema selects the chunk schema of the collection.
func WithSchema(schema Schema) Option {
	return func(r *Retriever) {
		r.schema = schema
	}
}

// WithInitialK sets the first-stage candidate count.
func WithInitialK(k int) Option {
	return func(r *Retriever) {
		r.initialK = k
	}
}

// WithFinalK sets the post-rerank result count.
func WithFinalK(k int) Option {
	return func(r *Retriever) {
		r.finalK = k
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Retriever) {
		r.logger = logger
	}
}

// New creates a Retriever over the given collection.
func New(store vectorstore.VectorStore, embed embedder.Embedder, rerank *reranker.Reranker, collection string, opts ...Option) *Retriever {
	r := &Retriever{
		store:      store,
		embedder:   embed,
		reranker:   rerank,
		logger:     slog.Default(),
		collection: collection,
		schema:     SchemaReport,
		initialK:   DefaultInitialK,
		finalK:     DefaultFinalK,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// GetRelevantContext runs the two-stage search for the query under the given
// metadata filter. Every internal failure degrades to the empty result; the
// caller always gets a usable (possibly empty) Result back.
func (r *Retriever) GetRelevantContext(ctx context.Context, query string, filter vectorstore.Filter) Result {
	empty := Result{Summary: NewMetadataSummary()}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.logger.Error("query embedding failed", "error", err)
		return empty
	}

	candidates := r.searchWithFallback(ctx, vector, filter)
	if len(candidates) == 0 {
		return empty
	}

	ranked, err := r.reranker.Rerank(ctx, query, candidates, r.finalK)
	if err != nil {
		// Reranking is required: its failure means no usable results,
		// the same terminal state as an empty search.
		r.logger.Error("reranking failed", "error", err)
		return empty
	}

	contextText, summary := formatContext(ranked, r.schema)

	sources := make([]string, len(ranked))
	for i, res := range ranked {
		sources[i] = citation(res, r.schema)
	}

	return Result{
		Context: contextText,
		Summary: summary,
		Sources: sources,
	}
}

// searchWithFallback queries the index under the filter and retries without
// it when the filtered query fails or matches nothing. Returns nil when even
// the unfiltered search yields no candidates.
func (r *Retriever) searchWithFallback(ctx context.Context, vector []float32, filter vectorstore.Filter) []vectorstore.SearchResult {
	if !filter.IsEmpty() {
		results, err := r.store.Search(ctx, r.collection, vector, r.initialK, filter)
		if err == nil && len(results) > 0 {
			return results
		}
		if err != nil {
			r.logger.Warn("filtered search failed, retrying unfiltered", "error", err)
		} else {
			r.logger.Info("filtered search matched nothing, retrying unfiltered",
				"section", filter.Section, "source", filter.Source)
		}
	}

	results, err := r.store.Search(ctx, r.collection, vector, r.initialK, vectorstore.Filter{})
	if err != nil {
		r.logger.Error("unfiltered search failed", "error", err)
		return nil
	}

	return results
}
