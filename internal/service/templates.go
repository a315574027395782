package service

import (
	"fmt"
	"strings"

	"github.com/impacttracker/esgrag/internal/query"
	"github.com/impacttracker/esgrag/internal/retrieval"
)

// typeTemplates holds per-question-type answer-structure instructions.
// data_inquiry (and anything unrecognized) uses the base prompt alone.
var typeTemplates = map[query.QuestionType]string{
	query.TypeDefinition: `This question asks for a definition or explanation of an ESG concept.

Structure the answer as:
1. Definition and core components.
2. Background and why it matters, including related global standards (GRI, SASB, TCFD).
3. How companies apply and measure it.

Quote concrete passages from the provided documents for every explanation.`,

	query.TypeHowTo: `This question asks how to execute or plan an ESG initiative.

Structure the answer as:
1. What the initiative aims to achieve.
2. Key KPIs with target figures from the documents.
3. A staged execution roadmap (preparation, initial rollout, scale-up) with concrete actions per stage.
4. Reference cases mentioned in the documents, with outcome data.`,

	query.TypeCaseStudy: `This question asks about a specific company's ESG activities.

Structure the answer as:
1. The company's ESG strategy direction.
2. Key activities and outcomes, as a table: area | activity | result | source.
3. Distinctive points other companies could learn from.
4. Concrete figures, including year-over-year change where available.

Write strictly from the documents.`,

	query.TypeComparison: `This question asks for a comparative analysis.

Structure the answer as:
1. What is being compared.
2. A comparison table: item | A | B | difference.
3. A synthesis: main differences, strengths and weaknesses, when to prefer which.`,

	query.TypeTrend: `This question asks about ESG trends or change over time.

Structure the answer as:
1. Current state, with data.
2. How it has changed and the main turning points.
3. Expected direction and what to prepare for.
4. Recommended actions in priority order.

Ground the current state in the documents; derive the outlook logically from them.`,
}

// basePrompt carries the fixed instructions included in every generation call.
const basePrompt = `You are an expert AI assistant for corporate ESG (Environmental, Social, Governance) management.

Core principles:
1. Document-grounded answers: use only the provided documents. Never invent facts that the documents do not support.
2. Cite sources for every key claim, in the form (source: [company] ESG report, p.[pages]).
3. Quote figures, dates, and proper names exactly as the documents state them.
4. Write structured Markdown; prefer tables or lists for comparative or tabular content.
5. When the documents lack the information, say so explicitly instead of guessing.
6. End with a one-sentence summary of the key point.`

// buildSystemPrompt assembles the full system prompt: fixed instructions,
// the question-type template, the metadata summary, and the retrieved context.
func buildSystemPrompt(questionType query.QuestionType, contextText string, summary retrieval.MetadataSummary, language string) string {
	var sb strings.Builder

	sb.WriteString(basePrompt)
	sb.WriteString(fmt.Sprintf("\n\nRespond in %s.\n", language))

	if tmpl, ok := typeTemplates[questionType]; ok {
		sb.WriteString("\n---\n\n")
		sb.WriteString(tmpl)
		sb.WriteString("\n")
	}

	sb.WriteString("\n---\n\n")
	sb.WriteString("## Referenced document metadata\n")
	sb.WriteString(formatSummary(summary))

	sb.WriteString("\n## Retrieved documents\n")
	if contextText == "" {
		sb.WriteString("(no documents were retrieved for this question)\n")
	} else {
		sb.WriteString(contextText)
		sb.WriteString("\n")
	}

	sb.WriteString("\nAnswer the question based on the documents above.")

	return sb.String()
}

// formatSummary renders the metadata summary for the prompt and for the
// citation summary returned to the caller.
func formatSummary(summary retrieval.MetadataSummary) string {
	if summary.IsEmpty() {
		return "- (none)\n"
	}

	var sb strings.Builder
	sb.WriteString("- sections: " + strings.Join(summary.Sections.Sorted(), ", ") + "\n")
	sb.WriteString("- sub-sections: " + strings.Join(summary.SubSections.Sorted(), ", ") + "\n")
	sb.WriteString("- sources: " + strings.Join(summary.Sources.Sorted(), ", ") + "\n")
	sb.WriteString("- pages: " + strings.Join(summary.PageRanges.Sorted(), ", ") + "\n")
	return sb.String()
}
