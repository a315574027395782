package ingestion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/impacttracker/esgrag/internal/embedder"
	"github.com/impacttracker/esgrag/internal/repository"
	"github.com/impacttracker/esgrag/internal/vectorstore"
)

// embedBatchSize caps texts per embedding request; the inference server
// rejects oversized batches.
const embedBatchSize = 32

// Result holds the outcome of ingesting one report
type Result struct {
	ReportID    uuid.UUID
	ContentHash string
	ChunkCount  int
	Skipped     bool
	Duration    time.Duration
}

// Pipeline ingests ESG reports: chunk, embed, upsert, and record in the
// registry. Re-ingesting an unchanged report (same content hash) is a no-op.
type Pipeline struct {
	chunker    *Chunker
	embedder   embedder.Embedder
	store      vectorstore.VectorStore
	reports    repository.ReportRepository
	logger     *slog.Logger
	collection string
}

// PipelineOption is a functional option for configuring Pipeline.
type PipelineOption func(*Pipeline)

// WithChunkerConfig overrides the default chunking configuration.
func WithChunkerConfig(config ChunkerConfig) PipelineOption {
	return func(p *Pipeline) {
		p.chunker = NewChunker(config)
	}
}

// WithPipelineLogger sets the logger.
func WithPipelineLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// NewPipeline creates an ingestion pipeline over the given collection.
func NewPipeline(embed embedder.Embedder, store vectorstore.VectorStore, reports repository.ReportRepository, collection string, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		chunker:    NewChunker(DefaultChunkerConfig()),
		embedder:   embed,
		store:      store,
		reports:    reports,
		logger:     slog.Default(),
		collection: collection,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Ingest processes one report end to end. Chunks of a previous version of
// the same report are replaced, not appended to.
func (p *Pipeline) Ingest(ctx context.Context, doc *Document) (*Result, error) {
	start := time.Now()

	if doc.Company == "" || doc.Year == "" {
		return nil, fmt.Errorf("report needs company and year")
	}
	if len(doc.Sections) == 0 {
		return nil, fmt.Errorf("report has no sections")
	}

	contentHash := hashDocument(doc)

	record, err := p.reports.GetByCompanyYear(ctx, doc.Company, doc.Year)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("registry lookup: %w", err)
	}

	if record != nil && record.ContentHash == contentHash && record.Status == repository.StatusReady {
		p.logger.Info("report unchanged, skipping",
			"company", doc.Company, "year", doc.Year)
		return &Result{
			ReportID:    record.ID,
			ContentHash: contentHash,
			ChunkCount:  record.ChunkCount,
			Skipped:     true,
			Duration:    time.Since(start),
		}, nil
	}

	record, err = p.upsertRecord(ctx, record, doc, contentHash)
	if err != nil {
		return nil, err
	}

	chunks := doc.ToChunks(p.chunker)
	if len(chunks) == 0 {
		p.fail(ctx, record, "report sections produced no chunks")
		return nil, fmt.Errorf("report sections produced no chunks")
	}

	if err := p.embedChunks(ctx, chunks); err != nil {
		p.fail(ctx, record, err.Error())
		return nil, fmt.Errorf("embedding: %w", err)
	}

	// Replace any chunks from a previous version of this company+year before
	// upserting. The company's other years stay indexed.
	if err := p.store.DeleteByReport(ctx, p.collection, doc.Company, doc.Year); err != nil {
		p.fail(ctx, record, err.Error())
		return nil, fmt.Errorf("deleting stale chunks: %w", err)
	}
	if err := p.store.Upsert(ctx, p.collection, chunks); err != nil {
		p.fail(ctx, record, err.Error())
		return nil, fmt.Errorf("upserting chunks: %w", err)
	}

	record.Status = repository.StatusReady
	record.ChunkCount = len(chunks)
	record.ErrorMessage = ""
	if err := p.reports.Update(ctx, record); err != nil {
		return nil, fmt.Errorf("finalizing registry record: %w", err)
	}

	p.logger.Info("report ingested",
		"company", doc.Company,
		"year", doc.Year,
		"chunks", len(chunks),
		"duration", time.Since(start))

	return &Result{
		ReportID:    record.ID,
		ContentHash: contentHash,
		ChunkCount:  len(chunks),
		Duration:    time.Since(start),
	}, nil
}

// upsertRecord creates or resets the registry record for this ingestion run
func (p *Pipeline) upsertRecord(ctx context.Context, record *repository.Report, doc *Document, contentHash string) (*repository.Report, error) {
	now := time.Now()

	create := record == nil
	if create {
		record = &repository.Report{
			ID:        uuid.New(),
			Company:   doc.Company,
			Year:      doc.Year,
			CreatedAt: now,
		}
	}

	record.Version = doc.Version
	record.Title = doc.Title
	record.SourceURL = doc.SourceURL
	record.ContentHash = contentHash
	record.Status = repository.StatusIndexing
	record.ErrorMessage = ""
	record.UpdatedAt = now

	if create {
		if err := p.reports.Create(ctx, record); err != nil {
			return nil, fmt.Errorf("creating registry record: %w", err)
		}
	} else if err := p.reports.Update(ctx, record); err != nil {
		return nil, fmt.Errorf("resetting registry record: %w", err)
	}
	return record, nil
}

// embedChunks fills in the vectors for all chunks in batches
func (p *Pipeline) embedChunks(ctx context.Context, chunks []vectorstore.Chunk) error {
	for i := 0; i < len(chunks); i += embedBatchSize {
		end := i + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		texts := make([]string, end-i)
		for j := i; j < end; j++ {
			texts[j-i] = chunks[j].Content
		}

		vectors, err := p.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return err
		}
		if len(vectors) != len(texts) {
			return fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
		}

		for j := i; j < end; j++ {
			chunks[j].Vector = vectors[j-i]
		}
	}

	return nil
}

// fail marks the registry record failed; the marking itself is best effort
func (p *Pipeline) fail(ctx context.Context, record *repository.Report, message string) {
	record.Status = repository.StatusFailed
	record.ErrorMessage = message
	if err := p.reports.Update(ctx, record); err != nil {
		p.logger.Error("failed to mark report as failed",
			"company", record.Company, "error", err)
	}
}

// hashDocument hashes the report's text content for change detection
func hashDocument(doc *Document) string {
	h := sha256.New()
	h.Write([]byte(doc.Company))
	h.Write([]byte(doc.Year))
	h.Write([]byte(doc.Version))
	for _, section := range doc.Sections {
		h.Write([]byte(section.Name))
		h.Write([]byte(section.SubSection))
		h.Write([]byte(section.PageRange))
		h.Write([]byte(strings.TrimSpace(section.Text)))
	}
	return hex.EncodeToString(h.Sum(nil))
}
