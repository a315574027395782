// Package vectorstore provides interfaces and implementations for vector similarity search
// over ESG report chunks.
package vectorstore

import (
	"context"
)

// Chunk represents a document chunk with its embedding. Chunks are created at
// ingestion time and never mutated afterwards; queries are read-only.
type Chunk struct {
	ID       string
	Content  string
	Vector   []float32
	Metadata Metadata
}

// Metadata is the typed payload stored alongside each chunk. The two chunk
// schemas in use populate different subsets of these fields:
//
//   - report schema: Source, Year, Section, SubSection, PageRange
//   - vision schema: Company, Year, Page, Version
//
// All fields are optional; formatters must tolerate empty values.
type Metadata struct {
	Source     string
	Section    string
	SubSection string
	PageRange  string
	Company    string
	Year       string
	Page       string
	Version    string
}

// SearchResult is a retrieval candidate: a chunk plus its similarity score.
// The slice order returned by Search is the vector-similarity rank and is
// significant downstream (reranking breaks score ties by it).
type SearchResult struct {
	ID       string
	Content  string
	Score    float32
	Metadata Metadata
}

// Filter restricts a search to chunks whose payload fields equal the given
// values. Empty fields are unrestricted; both set means logical AND.
type Filter struct {
	Section string
	Source  string
}

// IsEmpty reports whether the filter places no restriction on the search.
func (f Filter) IsEmpty() bool {
	return f.Section == "" && f.Source == ""
}

// VectorStore defines the interface for vector storage operations.
type VectorStore interface {
	// CreateCollection creates a named collection with the given vector dimension.
	CreateCollection(ctx context.Context, collection string, dimension int) error

	// CollectionExists checks if a collection exists.
	CollectionExists(ctx context.Context, collection string) (bool, error)

	// Upsert inserts or updates chunks in the collection.
	Upsert(ctx context.Context, collection string, chunks []Chunk) error

	// Search performs similarity search, optionally restricted by a metadata
	// filter. Results are ordered by descending similarity.
	Search(ctx context.Context, collection string, vector []float32, topK int, filter Filter) ([]SearchResult, error)

	// Count returns the number of chunks stored in the collection.
	Count(ctx context.Context, collection string) (uint64, error)

	// DeleteByReport removes all chunks belonging to one report, identified
	// by source company and report year. A company's other years are untouched.
	DeleteByReport(ctx context.Context, collection string, source, year string) error
}
