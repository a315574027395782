package ingestion

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/impacttracker/esgrag/internal/vectorstore"
)

// Document is an ESG report prepared for ingestion. Sections follow the
// report's own table of contents; the section names double as the metadata
// the retrieval filters match against, so they must use the canonical values
// (Environment, Social, Governance) rather than the report's headings.
type Document struct {
	Company   string    `json:"company"`
	Year      string    `json:"year"`
	Version   string    `json:"version,omitempty"`
	Title     string    `json:"title,omitempty"`
	SourceURL string    `json:"source_url,omitempty"`
	Sections  []Section `json:"sections"`
}

// Section is one table-of-contents entry of a report
type Section struct {
	Name       string `json:"name"`
	SubSection string `json:"sub_section,omitempty"`
	PageRange  string `json:"page_range,omitempty"`
	Text       string `json:"text"`
}

// ToChunks chunks every section and attaches the report metadata each chunk
// carries into the index.
func (d *Document) ToChunks(chunker *Chunker) []vectorstore.Chunk {
	var chunks []vectorstore.Chunk

	for _, section := range d.Sections {
		for i, content := range chunker.Chunk(section.Text) {
			chunks = append(chunks, vectorstore.Chunk{
				ID:      uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s/%s/%s/%s/%d", d.Company, d.Year, section.Name, section.SubSection, i))).String(),
				Content: content,
				Metadata: vectorstore.Metadata{
					Source:     d.Company,
					Year:       d.Year,
					Section:    section.Name,
					SubSection: section.SubSection,
					PageRange:  section.PageRange,
				},
			})
		}
	}

	return chunks
}
