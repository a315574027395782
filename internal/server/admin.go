package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/impacttracker/esgrag/internal/downloader"
	"github.com/impacttracker/esgrag/internal/ingestion"
	"github.com/impacttracker/esgrag/internal/repository"
)

// Ingester is the part of the ingestion pipeline the handler needs
type Ingester interface {
	Ingest(ctx context.Context, doc *ingestion.Document) (*ingestion.Result, error)
}

// DisclosureClient finds filings on DART and downloads their attachments
type DisclosureClient interface {
	Search(ctx context.Context, company string) ([]downloader.Disclosure, error)
	Download(ctx context.Context, disclosure downloader.Disclosure) (string, error)
}

// AdminHandler serves the report management endpoints
type AdminHandler struct {
	ingester   Ingester
	reports    repository.ReportRepository
	disclosure DisclosureClient
	logger     *slog.Logger
}

// NewAdminHandler creates an AdminHandler. The disclosure client may be
// nil when the downloader is not configured.
func NewAdminHandler(ingester Ingester, reports repository.ReportRepository, disclosure DisclosureClient, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminHandler{
		ingester:   ingester,
		reports:    reports,
		disclosure: disclosure,
		logger:     logger,
	}
}

// reportView is the JSON shape of a registry record
type reportView struct {
	ID         string `json:"id"`
	Company    string `json:"company"`
	Year       string `json:"year"`
	Version    string `json:"version,omitempty"`
	Title      string `json:"title,omitempty"`
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count"`
	Error      string `json:"error,omitempty"`
}

// ListReports handles GET /api/admin/reports
func (h *AdminHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	reports, total, err := h.reports.List(r.Context(), status, limit, offset)
	if err != nil {
		h.logger.Error("listing reports failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	views := make([]reportView, len(reports))
	for i, report := range reports {
		views[i] = reportView{
			ID:         report.ID.String(),
			Company:    report.Company,
			Year:       report.Year,
			Version:    report.Version,
			Title:      report.Title,
			Status:     report.Status,
			ChunkCount: report.ChunkCount,
			Error:      report.ErrorMessage,
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"reports": views,
		"total":   total,
	})
}

// IngestReport handles POST /api/admin/reports: ingests a prepared report
// document synchronously.
func (h *AdminHandler) IngestReport(w http.ResponseWriter, r *http.Request) {
	var doc ingestion.Document
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.ingester.Ingest(r.Context(), &doc)
	if err != nil {
		h.logger.Error("ingestion failed",
			"company", doc.Company, "year", doc.Year, "error", err)
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"report_id":    result.ReportID.String(),
		"content_hash": result.ContentHash,
		"chunk_count":  result.ChunkCount,
		"skipped":      result.Skipped,
	})
}

// DeleteReport handles DELETE /api/admin/reports/{id}
func (h *AdminHandler) DeleteReport(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid report id")
		return
	}

	if err := h.reports.Delete(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "report not found")
			return
		}
		h.logger.Error("deleting report failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SearchDisclosures handles POST /api/admin/disclosures/search
func (h *AdminHandler) SearchDisclosures(w http.ResponseWriter, r *http.Request) {
	if h.disclosure == nil {
		writeError(w, http.StatusNotImplemented, "downloader not configured")
		return
	}

	var req struct {
		Company string `json:"company"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Company == "" {
		writeError(w, http.StatusBadRequest, "company is required")
		return
	}

	disclosures, err := h.disclosure.Search(r.Context(), req.Company)
	if err != nil {
		h.logger.Error("disclosure search failed", "company", req.Company, "error", err)
		writeError(w, http.StatusBadGateway, "disclosure search failed")
		return
	}

	type view struct {
		ReceiptNo string `json:"receipt_no"`
		Company   string `json:"company"`
		Title     string `json:"title"`
		FiledAt   string `json:"filed_at,omitempty"`
		ViewerURL string `json:"viewer_url"`
	}
	views := make([]view, len(disclosures))
	for i, d := range disclosures {
		views[i] = view{
			ReceiptNo: d.ReceiptNo,
			Company:   d.Company,
			Title:     d.Title,
			FiledAt:   d.FiledAt,
			ViewerURL: d.ViewerURL(),
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"disclosures": views})
}

// DownloadDisclosure handles POST /api/admin/disclosures/download: fetches a
// filing's PDF attachment into the configured download directory.
func (h *AdminHandler) DownloadDisclosure(w http.ResponseWriter, r *http.Request) {
	if h.disclosure == nil {
		writeError(w, http.StatusNotImplemented, "downloader not configured")
		return
	}

	var req struct {
		ReceiptNo string `json:"receipt_no"`
		Company   string `json:"company"`
		Title     string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ReceiptNo == "" {
		writeError(w, http.StatusBadRequest, "receipt_no is required")
		return
	}

	path, err := h.disclosure.Download(r.Context(), downloader.Disclosure{
		ReceiptNo: req.ReceiptNo,
		Company:   req.Company,
		Title:     req.Title,
	})
	if err != nil {
		h.logger.Error("disclosure download failed",
			"receipt_no", req.ReceiptNo, "error", err)
		writeError(w, http.StatusBadGateway, "disclosure download failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"path": path})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
