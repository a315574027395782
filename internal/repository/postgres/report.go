package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/impacttracker/esgrag/internal/repository"
)

const reportColumns = `id, company, year, version, title, source_url, content_hash, chunk_count, status, error_message, created_at, updated_at`

// ReportRepo implements repository.ReportRepository
type ReportRepo struct {
	db *DB
}

// NewReportRepo creates a new report repository
func NewReportRepo(db *DB) *ReportRepo {
	return &ReportRepo{db: db}
}

// Create creates a new report record
func (r *ReportRepo) Create(ctx context.Context, report *repository.Report) error {
	query := `
		INSERT INTO reports (` + reportColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.Pool.Exec(ctx, query,
		report.ID, report.Company, report.Year, report.Version, report.Title,
		report.SourceURL, report.ContentHash, report.ChunkCount, report.Status,
		report.ErrorMessage, report.CreatedAt, report.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

// GetByID retrieves a report by ID
func (r *ReportRepo) GetByID(ctx context.Context, id uuid.UUID) (*repository.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1`
	return r.scanReport(ctx, query, id)
}

// GetByCompanyYear retrieves the report for a company and year
func (r *ReportRepo) GetByCompanyYear(ctx context.Context, company, year string) (*repository.Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE company = $1 AND year = $2`
	return r.scanReport(ctx, query, company, year)
}

func (r *ReportRepo) scanReport(ctx context.Context, query string, args ...any) (*repository.Report, error) {
	var report repository.Report

	err := r.db.Pool.QueryRow(ctx, query, args...).Scan(
		&report.ID, &report.Company, &report.Year, &report.Version, &report.Title,
		&report.SourceURL, &report.ContentHash, &report.ChunkCount, &report.Status,
		&report.ErrorMessage, &report.CreatedAt, &report.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	return &report, nil
}

// List retrieves reports with pagination and an optional status filter
func (r *ReportRepo) List(ctx context.Context, status string, limit, offset int) ([]*repository.Report, int, error) {
	countQuery := `SELECT COUNT(*) FROM reports`
	listQuery := `SELECT ` + reportColumns + ` FROM reports`
	var args []any

	if status != "" {
		countQuery += ` WHERE status = $1`
		listQuery += ` WHERE status = $1`
		args = append(args, status)
	}

	listQuery += fmt.Sprintf(` ORDER BY company, year DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)

	var total int
	if err := r.db.Pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count reports: %w", err)
	}

	args = append(args, limit, offset)
	rows, err := r.db.Pool.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var reports []*repository.Report
	for rows.Next() {
		var report repository.Report
		if err := rows.Scan(&report.ID, &report.Company, &report.Year, &report.Version,
			&report.Title, &report.SourceURL, &report.ContentHash, &report.ChunkCount,
			&report.Status, &report.ErrorMessage, &report.CreatedAt, &report.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, &report)
	}

	return reports, total, nil
}

// Update updates a report record
func (r *ReportRepo) Update(ctx context.Context, report *repository.Report) error {
	query := `
		UPDATE reports
		SET company = $2, year = $3, version = $4, title = $5, source_url = $6,
		    content_hash = $7, chunk_count = $8, status = $9, error_message = $10,
		    updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.Pool.Exec(ctx, query,
		report.ID, report.Company, report.Year, report.Version, report.Title,
		report.SourceURL, report.ContentHash, report.ChunkCount, report.Status,
		report.ErrorMessage)
	if err != nil {
		return fmt.Errorf("failed to update report: %w", err)
	}
	if result.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete deletes a report record
func (r *ReportRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM reports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	if result.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Ensure ReportRepo implements the interface
var _ repository.ReportRepository = (*ReportRepo)(nil)
