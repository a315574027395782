package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/impacttracker/esgrag/internal/reranker"
	"github.com/impacttracker/esgrag/internal/vectorstore"
)

type searchCall struct {
	filter vectorstore.Filter
	topK   int
}

// fakeStore returns canned results keyed by whether the search is filtered.
type fakeStore struct {
	vectorstore.VectorStore

	calls            []searchCall
	filteredResults  []vectorstore.SearchResult
	filteredErr      error
	unfilteredResult []vectorstore.SearchResult
	unfilteredErr    error
}

func (f *fakeStore) Search(_ context.Context, _ string, _ []float32, topK int, filter vectorstore.Filter) ([]vectorstore.SearchResult, error) {
	f.calls = append(f.calls, searchCall{filter: filter, topK: topK})
	if filter.IsEmpty() {
		return f.unfilteredResult, f.unfilteredErr
	}
	return f.filteredResults, f.filteredErr
}

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2, 0.3}
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int { return 3 }

func (f *fakeEmbedder) ModelName() string { return "fake" }

type fixedScorer struct {
	logit float64
	err   error
}

func (f *fixedScorer) Predict(_ context.Context, pairs []reranker.Pair) ([]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	logits := make([]float64, len(pairs))
	for i := range logits {
		logits[i] = f.logit
	}
	return logits, nil
}

func reportChunks(n int) []vectorstore.SearchResult {
	results := make([]vectorstore.SearchResult, n)
	for i := range results {
		results[i] = vectorstore.SearchResult{
			ID:      string(rune('a' + i)),
			Content: "carbon reduction targets for the year",
			Metadata: vectorstore.Metadata{
				Source:     "SAMSUNG",
				Section:    "Environment",
				SubSection: "Climate",
				PageRange:  "10-15",
			},
		}
	}
	return results
}

func newTestRetriever(store *fakeStore, scorer reranker.Scorer, opts ...Option) *Retriever {
	return New(store, &fakeEmbedder{}, reranker.New(scorer), "esg_documents", opts...)
}

func TestGetRelevantContext_FallbackOnEmptyFilteredResult(t *testing.T) {
	store := &fakeStore{
		filteredResults:  nil, // filter matches nothing
		unfilteredResult: reportChunks(3),
	}
	r := newTestRetriever(store, &fixedScorer{logit: 2.0})

	result := r.GetRelevantContext(context.Background(), "query", vectorstore.Filter{Source: "NOSUCHCO"})

	if len(store.calls) != 2 {
		t.Fatalf("expected filtered + unfiltered search, got %d calls", len(store.calls))
	}
	if store.calls[0].filter.IsEmpty() {
		t.Error("first search should carry the filter")
	}
	if !store.calls[1].filter.IsEmpty() {
		t.Error("fallback search should be unfiltered")
	}
	if store.calls[1].topK != DefaultInitialK {
		t.Errorf("fallback searched with k=%d, want %d", store.calls[1].topK, DefaultInitialK)
	}
	if result.Context == "" {
		t.Error("fallback should produce context from unfiltered results")
	}
}

func TestGetRelevantContext_FallbackOnFilteredError(t *testing.T) {
	store := &fakeStore{
		filteredErr:      errors.New("index unavailable"),
		unfilteredResult: reportChunks(2),
	}
	r := newTestRetriever(store, &fixedScorer{logit: 1.0})

	result := r.GetRelevantContext(context.Background(), "query", vectorstore.Filter{Section: "Environment"})

	if len(store.calls) != 2 {
		t.Fatalf("expected fallback search after error, got %d calls", len(store.calls))
	}
	if result.Context == "" {
		t.Error("expected context from fallback results")
	}
}

func TestGetRelevantContext_EmptyTerminalState(t *testing.T) {
	store := &fakeStore{} // both searches return nothing
	r := newTestRetriever(store, &fixedScorer{logit: 1.0})

	result := r.GetRelevantContext(context.Background(), "query", vectorstore.Filter{Source: "SAMSUNG"})

	if result.Context != "" {
		t.Errorf("expected empty context, got %q", result.Context)
	}
	if !result.Summary.IsEmpty() {
		t.Error("expected all-empty metadata summary")
	}
	if len(result.Sources) != 0 {
		t.Errorf("expected no sources, got %v", result.Sources)
	}
}

func TestGetRelevantContext_RerankFailureDegradesToEmpty(t *testing.T) {
	store := &fakeStore{unfilteredResult: reportChunks(3)}
	r := newTestRetriever(store, &fixedScorer{err: errors.New("scorer down")})

	result := r.GetRelevantContext(context.Background(), "query", vectorstore.Filter{})

	if result.Context != "" || !result.Summary.IsEmpty() {
		t.Error("rerank failure must degrade to the empty terminal state")
	}
}

func TestGetRelevantContext_EmbeddingFailureDegradesToEmpty(t *testing.T) {
	store := &fakeStore{unfilteredResult: reportChunks(1)}
	r := New(store, &fakeEmbedder{err: errors.New("embedder down")}, reranker.New(&fixedScorer{logit: 1}), "esg_documents")

	result := r.GetRelevantContext(context.Background(), "query", vectorstore.Filter{})

	if result.Context != "" || len(store.calls) != 0 {
		t.Error("embedding failure must return empty result without searching")
	}
}

func TestGetRelevantContext_NoFallbackWhenFilteredSucceeds(t *testing.T) {
	store := &fakeStore{filteredResults: reportChunks(4)}
	r := newTestRetriever(store, &fixedScorer{logit: 1.0})

	r.GetRelevantContext(context.Background(), "query", vectorstore.Filter{Source: "SAMSUNG"})

	if len(store.calls) != 1 {
		t.Errorf("expected a single filtered search, got %d calls", len(store.calls))
	}
}

func TestGetRelevantContext_TruncatesToFinalK(t *testing.T) {
	store := &fakeStore{unfilteredResult: reportChunks(12)}
	r := newTestRetriever(store, &fixedScorer{logit: 1.0})

	result := r.GetRelevantContext(context.Background(), "query", vectorstore.Filter{})

	blocks := strings.Count(result.Context, "\n---")
	if blocks != DefaultFinalK {
		t.Errorf("got %d context blocks, want %d", blocks, DefaultFinalK)
	}
	if len(result.Sources) != DefaultFinalK {
		t.Errorf("got %d sources, want %d", len(result.Sources), DefaultFinalK)
	}
}

func TestGetRelevantContext_ReportBlockFormat(t *testing.T) {
	store := &fakeStore{unfilteredResult: reportChunks(1)}
	r := newTestRetriever(store, &fixedScorer{logit: 0.0}) // sigmoid(0) = 0.5

	result := r.GetRelevantContext(context.Background(), "query", vectorstore.Filter{})

	for _, want := range []string{
		"source: SAMSUNG",
		"section: Environment",
		"sub-section: Climate",
		"pages: 10-15",
		"relevance: 0.5000 (low)",
		"content: carbon reduction targets",
	} {
		if !strings.Contains(result.Context, want) {
			t.Errorf("context missing %q:\n%s", want, result.Context)
		}
	}

	if result.Sources[0] != "SAMSUNG ESG report, p.10-15" {
		t.Errorf("unexpected citation: %q", result.Sources[0])
	}
}

func TestGetRelevantContext_SummaryOverRetainedSetOnly(t *testing.T) {
	// 8 candidates but only finalK survive; the summary must reflect the
	// retained set, which here is homogeneous.
	store := &fakeStore{unfilteredResult: reportChunks(8)}
	r := newTestRetriever(store, &fixedScorer{logit: 1.0}, WithFinalK(3))

	result := r.GetRelevantContext(context.Background(), "query", vectorstore.Filter{})

	if got := result.Summary.Sources.Sorted(); len(got) != 1 || got[0] != "SAMSUNG" {
		t.Errorf("unexpected sources: %v", got)
	}
	if got := result.Summary.Sections.Sorted(); len(got) != 1 || got[0] != "Environment" {
		t.Errorf("unexpected sections: %v", got)
	}
	if got := result.Summary.PageRanges.Sorted(); len(got) != 1 || got[0] != "10-15" {
		t.Errorf("unexpected page ranges: %v", got)
	}
}

func TestGetRelevantContext_VisionSchema(t *testing.T) {
	store := &fakeStore{unfilteredResult: []vectorstore.SearchResult{{
		ID:      "v1",
		Content: strings.Repeat("가", 2500),
		Metadata: vectorstore.Metadata{
			Company: "POSCO",
			Year:    "2023",
			Page:    "31",
			Version: "final",
		},
	}}}
	r := newTestRetriever(store, &fixedScorer{logit: 1.0}, WithSchema(SchemaVision))

	result := r.GetRelevantContext(context.Background(), "query", vectorstore.Filter{})

	if !strings.Contains(result.Context, "[source: POSCO 2023 ESG report (final), p.31]") {
		t.Errorf("vision source line missing:\n%s", result.Context)
	}
	// sigmoid(1.0) ≈ 0.731 → "high" under the lenient preset
	if !strings.Contains(result.Context, "(high)") {
		t.Errorf("expected lenient label high:\n%s", result.Context)
	}
	if !strings.Contains(result.Context, "...") {
		t.Error("vision content should be truncated with ellipsis")
	}
	if result.Sources[0] != "POSCO 2023 ESG report (final), p.31" {
		t.Errorf("unexpected vision citation: %q", result.Sources[0])
	}
}
