// Package repository defines domain models and data access interfaces for
// the ESG report registry.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// Report ingestion statuses.
const (
	StatusPending  = "pending"
	StatusIndexing = "indexing"
	StatusReady    = "ready"
	StatusFailed   = "failed"
)

// Report represents an ESG report tracked by the registry. The registry is
// the source of truth for what has been ingested; the vector index only
// holds the chunks.
type Report struct {
	ID           uuid.UUID
	Company      string
	Year         string
	Version      string
	Title        string
	SourceURL    string
	ContentHash  string
	ChunkCount   int
	Status       string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ReportRepository defines operations for report registry persistence
type ReportRepository interface {
	Create(ctx context.Context, report *Report) error
	GetByID(ctx context.Context, id uuid.UUID) (*Report, error)

	// GetByCompanyYear returns the report for a company and year, used to
	// detect re-ingestion of an unchanged document via the content hash.
	GetByCompanyYear(ctx context.Context, company, year string) (*Report, error)

	List(ctx context.Context, status string, limit, offset int) ([]*Report, int, error)
	Update(ctx context.Context, report *Report) error
	Delete(ctx context.Context, id uuid.UUID) error
}
