package ingestion

import (
	"context"
	"testing"

	"github.com/impacttracker/esgrag/internal/repository"
	"github.com/impacttracker/esgrag/internal/vectorstore"
)

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{0.1}, nil
}

func (fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range vectors {
		vectors[i] = []float32{0.1}
	}
	return vectors, nil
}

func (fakeEmbedder) Dimension() int { return 1 }

func (fakeEmbedder) ModelName() string { return "fake" }

// fakeStore keeps chunks in memory keyed by ID
type fakeStore struct {
	vectorstore.VectorStore
	chunks map[string]vectorstore.Chunk
}

func newFakeStore() *fakeStore {
	return &fakeStore{chunks: make(map[string]vectorstore.Chunk)}
}

func (s *fakeStore) Upsert(_ context.Context, _ string, chunks []vectorstore.Chunk) error {
	for _, chunk := range chunks {
		s.chunks[chunk.ID] = chunk
	}
	return nil
}

func (s *fakeStore) DeleteByReport(_ context.Context, _ string, source, year string) error {
	for id, chunk := range s.chunks {
		if chunk.Metadata.Source == source && chunk.Metadata.Year == year {
			delete(s.chunks, id)
		}
	}
	return nil
}

func (s *fakeStore) countReport(source, year string) int {
	n := 0
	for _, chunk := range s.chunks {
		if chunk.Metadata.Source == source && chunk.Metadata.Year == year {
			n++
		}
	}
	return n
}

// fakeReportRepo is an in-memory registry keyed by company+year
type fakeReportRepo struct {
	repository.ReportRepository
	records map[string]*repository.Report
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{records: make(map[string]*repository.Report)}
}

func (r *fakeReportRepo) Create(_ context.Context, report *repository.Report) error {
	stored := *report
	r.records[report.Company+"/"+report.Year] = &stored
	return nil
}

func (r *fakeReportRepo) GetByCompanyYear(_ context.Context, company, year string) (*repository.Report, error) {
	record, ok := r.records[company+"/"+year]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *record
	return &copied, nil
}

func (r *fakeReportRepo) Update(_ context.Context, report *repository.Report) error {
	stored := *report
	r.records[report.Company+"/"+report.Year] = &stored
	return nil
}

func testDocument(company, year string, sections ...Section) *Document {
	return &Document{
		Company:  company,
		Year:     year,
		Sections: sections,
	}
}

func TestIngest_StoresChunksAndMarksReady(t *testing.T) {
	store := newFakeStore()
	repo := newFakeReportRepo()
	pipeline := NewPipeline(fakeEmbedder{}, store, repo, "esg_documents")

	doc := testDocument("POSCO", "2023",
		Section{Name: "Environment", PageRange: "10-20", Text: "탄소 배출량을 10% 감축했다."})

	result, err := pipeline.Ingest(context.Background(), doc)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if result.Skipped {
		t.Error("first ingestion should not be skipped")
	}
	if result.ChunkCount != store.countReport("POSCO", "2023") {
		t.Errorf("result reports %d chunks, store has %d",
			result.ChunkCount, store.countReport("POSCO", "2023"))
	}

	record, err := repo.GetByCompanyYear(context.Background(), "POSCO", "2023")
	if err != nil {
		t.Fatalf("registry record missing: %v", err)
	}
	if record.Status != repository.StatusReady {
		t.Errorf("got status %q", record.Status)
	}
	if record.ChunkCount != result.ChunkCount {
		t.Errorf("record chunk count %d, result %d", record.ChunkCount, result.ChunkCount)
	}
}

func TestIngest_UnchangedReportSkipped(t *testing.T) {
	store := newFakeStore()
	repo := newFakeReportRepo()
	pipeline := NewPipeline(fakeEmbedder{}, store, repo, "esg_documents")

	doc := testDocument("POSCO", "2023",
		Section{Name: "Environment", Text: "탄소 배출량을 10% 감축했다."})

	first, err := pipeline.Ingest(context.Background(), doc)
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	second, err := pipeline.Ingest(context.Background(), doc)
	if err != nil {
		t.Fatalf("second ingest: %v", err)
	}
	if !second.Skipped {
		t.Error("unchanged report should be skipped")
	}
	if second.ContentHash != first.ContentHash {
		t.Errorf("hash changed for identical content: %q vs %q",
			first.ContentHash, second.ContentHash)
	}
	if got := store.countReport("POSCO", "2023"); got != first.ChunkCount {
		t.Errorf("store chunk count changed on skip: %d", got)
	}
}

func TestIngest_LeavesOtherYearsIndexed(t *testing.T) {
	store := newFakeStore()
	repo := newFakeReportRepo()
	pipeline := NewPipeline(fakeEmbedder{}, store, repo, "esg_documents")

	older := testDocument("POSCO", "2023",
		Section{Name: "Environment", Text: "2023년 배출량은 100톤이다."})
	newer := testDocument("POSCO", "2024",
		Section{Name: "Environment", Text: "2024년 배출량은 90톤이다."})

	olderResult, err := pipeline.Ingest(context.Background(), older)
	if err != nil {
		t.Fatalf("ingesting 2023: %v", err)
	}
	if _, err := pipeline.Ingest(context.Background(), newer); err != nil {
		t.Fatalf("ingesting 2024: %v", err)
	}

	// The 2023 registry record still claims its chunks; they must be there.
	record, err := repo.GetByCompanyYear(context.Background(), "POSCO", "2023")
	if err != nil {
		t.Fatalf("2023 record missing: %v", err)
	}
	if record.Status != repository.StatusReady {
		t.Fatalf("2023 record status %q", record.Status)
	}
	if got := store.countReport("POSCO", "2023"); got != record.ChunkCount {
		t.Errorf("2023 has %d chunks in the store, record says %d", got, record.ChunkCount)
	}
	if got := store.countReport("POSCO", "2023"); got != olderResult.ChunkCount {
		t.Errorf("ingesting 2024 disturbed 2023 chunks: %d of %d left",
			got, olderResult.ChunkCount)
	}
}

func TestIngest_ReingestReplacesStaleChunks(t *testing.T) {
	store := newFakeStore()
	repo := newFakeReportRepo()
	pipeline := NewPipeline(fakeEmbedder{}, store, repo, "esg_documents")

	// Two sections first, then a revision with one: without the delete the
	// dropped section's chunks would linger.
	before := testDocument("POSCO", "2023",
		Section{Name: "Environment", Text: "탄소 배출량을 10% 감축했다."},
		Section{Name: "Social", Text: "직원 안전 교육을 확대했다."})
	after := testDocument("POSCO", "2023",
		Section{Name: "Environment", Text: "탄소 배출량을 12% 감축했다."})

	if _, err := pipeline.Ingest(context.Background(), before); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	result, err := pipeline.Ingest(context.Background(), after)
	if err != nil {
		t.Fatalf("re-ingest: %v", err)
	}
	if result.Skipped {
		t.Fatal("changed report should not be skipped")
	}
	if got := store.countReport("POSCO", "2023"); got != result.ChunkCount {
		t.Errorf("stale chunks left behind: store has %d, expected %d", got, result.ChunkCount)
	}
}

func TestIngest_RejectsIncompleteDocuments(t *testing.T) {
	pipeline := NewPipeline(fakeEmbedder{}, newFakeStore(), newFakeReportRepo(), "esg_documents")

	cases := []struct {
		name string
		doc  *Document
	}{
		{"missing company", testDocument("", "2023", Section{Name: "Environment", Text: "x."})},
		{"missing year", testDocument("POSCO", "", Section{Name: "Environment", Text: "x."})},
		{"no sections", testDocument("POSCO", "2023")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := pipeline.Ingest(context.Background(), tc.doc); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
