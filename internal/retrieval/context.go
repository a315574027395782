package retrieval

import (
	"fmt"
	"strings"

	"github.com/impacttracker/esgrag/internal/reranker"
)

// Schema selects how chunk metadata is interpreted and formatted. Two chunk
// schemas coexist in the corpus and neither is authoritative, so both are
// supported explicitly.
type Schema string

const (
	// SchemaReport is the text-extraction schema: source, section,
	// sub_section, page_range. Formatted with the strict label preset.
	SchemaReport Schema = "report"

	// SchemaVision is the page-image extraction schema: company, year,
	// page, version. Formatted with the lenient label preset, content
	// truncated for display.
	SchemaVision Schema = "vision"
)

// visionContentLimit bounds how much chunk text the vision formatter emits.
// Vision chunks are whole report pages and would otherwise dominate the prompt.
const visionContentLimit = 2000

// unknownPageRange is displayed when a report chunk carries no page metadata.
const unknownPageRange = "unknown"

// formatContext renders the retained results into the context text handed to
// the LLM, and accumulates the metadata summary over that retained set.
func formatContext(results []reranker.RankedResult, schema Schema) (string, MetadataSummary) {
	summary := NewMetadataSummary()
	blocks := make([]string, 0, len(results))

	for _, res := range results {
		switch schema {
		case SchemaVision:
			summary.Sources.Add(visionSource(res))
			if res.Metadata.Page != "" {
				summary.PageRanges.Add(res.Metadata.Page)
			}
			blocks = append(blocks, formatVisionBlock(res))
		default:
			pageRange := res.Metadata.PageRange
			if pageRange == "" {
				pageRange = unknownPageRange
			}
			summary.Sections.Add(res.Metadata.Section)
			summary.SubSections.Add(res.Metadata.SubSection)
			summary.Sources.Add(res.Metadata.Source)
			summary.PageRanges.Add(pageRange)
			blocks = append(blocks, formatReportBlock(res))
		}
	}

	return strings.Join(blocks, "\n"), summary
}

// formatReportBlock renders one report-schema result as a context block.
func formatReportBlock(res reranker.RankedResult) string {
	pageRange := res.Metadata.PageRange
	if pageRange == "" {
		pageRange = unknownPageRange
	}
	label := reranker.PresetStrict.Label(res.Relevance)

	return fmt.Sprintf(`source: %s
section: %s
sub-section: %s
pages: %s
relevance: %.4f (%s)
content: %s
---`,
		res.Metadata.Source,
		res.Metadata.Section,
		res.Metadata.SubSection,
		pageRange,
		res.Relevance,
		label,
		res.Content,
	)
}

// formatVisionBlock renders one vision-schema result as a context block.
func formatVisionBlock(res reranker.RankedResult) string {
	label := reranker.PresetLenient.Label(res.Relevance)

	content := res.Content
	if runes := []rune(content); len(runes) > visionContentLimit {
		content = string(runes[:visionContentLimit]) + "..."
	}

	return fmt.Sprintf("[source: %s] [relevance: %.4f (%s)]\n%s\n---",
		visionSource(res), res.Relevance, label, content)
}

// visionSource builds the citation string for a vision-schema chunk:
// "SAMSUNG 2023 ESG report (draft), p.31".
func visionSource(res reranker.RankedResult) string {
	var sb strings.Builder
	sb.WriteString(res.Metadata.Company)
	if res.Metadata.Year != "" {
		sb.WriteString(" " + res.Metadata.Year)
	}
	sb.WriteString(" ESG report")
	if res.Metadata.Version != "" {
		sb.WriteString(" (" + res.Metadata.Version + ")")
	}
	if res.Metadata.Page != "" {
		sb.WriteString(", p." + res.Metadata.Page)
	}
	return sb.String()
}

// citation builds the per-result source line returned to API clients.
func citation(res reranker.RankedResult, schema Schema) string {
	if schema == SchemaVision {
		return visionSource(res)
	}

	pageRange := res.Metadata.PageRange
	if pageRange == "" {
		pageRange = unknownPageRange
	}
	return fmt.Sprintf("%s ESG report, p.%s", res.Metadata.Source, pageRange)
}
