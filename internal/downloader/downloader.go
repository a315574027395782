// Package downloader fetches ESG report PDFs from the DART corporate
// disclosure system. The search listing is plain server-rendered HTML, but
// the document viewer builds its attachment list with JavaScript, so the
// viewer step runs in a headless browser.
package downloader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	dartBaseURL   = "https://dart.fss.or.kr"
	searchPath    = "/dsab007/detailSearch.ax"
	defaultUA     = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
	searchTimeout = 30 * time.Second
)

// Disclosure is one filing from the DART search listing
type Disclosure struct {
	ReceiptNo string
	Company   string
	Title     string
	FiledAt   string
}

// ViewerURL returns the document viewer page for this filing
func (d Disclosure) ViewerURL() string {
	return dartBaseURL + "/dsaf001/main.do?rcpNo=" + url.QueryEscape(d.ReceiptNo)
}

// Downloader searches DART and downloads report attachments into a directory
type Downloader struct {
	httpClient  *http.Client
	logger      *slog.Logger
	downloadDir string
	userAgent   string
}

// Option is a functional option for configuring Downloader.
type Option func(*Downloader)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Downloader) {
		d.httpClient = client
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Downloader) {
		d.logger = logger
	}
}

// New creates a Downloader that saves files under downloadDir.
func New(downloadDir string, opts ...Option) *Downloader {
	d := &Downloader{
		httpClient:  &http.Client{Timeout: searchTimeout},
		logger:      slog.Default(),
		downloadDir: downloadDir,
		userAgent:   defaultUA,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Search queries the disclosure listing for sustainability reports filed by
// the given company. DART tags them under the "sustainability management
// report" filing type.
func (d *Downloader) Search(ctx context.Context, company string) ([]Disclosure, error) {
	form := url.Values{
		"textCrpNm":   {company},
		"reportName":  {"지속가능경영보고서"},
		"maxResults":  {"50"},
		"currentPage": {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		dartBaseURL+searchPath, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("searching disclosures: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	disclosures, err := parseSearchResults(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing search results: %w", err)
	}

	d.logger.Info("disclosure search finished",
		"company", company, "results", len(disclosures))

	return disclosures, nil
}

// DownloadFile streams a direct attachment URL to disk and returns the path
func (d *Downloader) DownloadFile(ctx context.Context, fileURL, filename string) (string, error) {
	if err := os.MkdirAll(d.downloadDir, 0o755); err != nil {
		return "", fmt.Errorf("creating download dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return "", fmt.Errorf("building download request: %w", err)
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Referer", dartBaseURL)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading attachment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	target := filepath.Join(d.downloadDir, sanitizeFilename(filename))
	out, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer out.Close()

	written, err := io.Copy(out, resp.Body)
	if err != nil {
		os.Remove(target)
		return "", fmt.Errorf("writing file: %w", err)
	}

	d.logger.Info("attachment downloaded",
		"path", target, "bytes", written)

	return target, nil
}

// attachmentFilename derives a file name from the filing title, falling back
// to the receipt number.
func attachmentFilename(disclosure Disclosure) string {
	name := strings.TrimSpace(disclosure.Title)
	if name == "" {
		name = disclosure.ReceiptNo
	}
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name += ".pdf"
	}
	return name
}

// sanitizeFilename strips path separators and control characters so a
// filing title can be used as a file name.
func sanitizeFilename(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == ':':
			return '_'
		case r < 0x20:
			return -1
		}
		return r
	}, name)

	name = strings.TrimSpace(name)
	if name == "" {
		return "report.pdf"
	}
	return name
}
