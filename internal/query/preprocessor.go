// Package query prepares raw user questions for retrieval: question-type
// classification, short-query expansion, and metadata-filter extraction.
//
// Classification and expansion call the LLM and are fail-open: any failure
// degrades to a safe default so retrieval is never blocked. Filter extraction
// is deterministic and local.
package query

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/impacttracker/esgrag/internal/llm"
)

// QuestionType is a best-effort hint used only for prompt-template selection.
// It never affects retrieval.
type QuestionType string

// The closed set of question types.
const (
	TypeDefinition  QuestionType = "definition"
	TypeHowTo       QuestionType = "how_to"
	TypeCaseStudy   QuestionType = "case_study"
	TypeComparison  QuestionType = "comparison"
	TypeTrend       QuestionType = "trend"
	TypeDataInquiry QuestionType = "data_inquiry"
)

var validTypes = map[QuestionType]bool{
	TypeDefinition:  true,
	TypeHowTo:       true,
	TypeCaseStudy:   true,
	TypeComparison:  true,
	TypeTrend:       true,
	TypeDataInquiry: true,
}

// DefaultMinExpandLength is the query length (in runes) at or below which the
// query is considered under-specified and sent through expansion.
const DefaultMinExpandLength = 10

// Preprocessor classifies, expands, and extracts filters from user queries.
type Preprocessor struct {
	llmClient       llm.Client
	logger          *slog.Logger
	classifierModel string
	expanderModel   string
	minExpandLength int
}

// Option is a functional option for configuring Preprocessor.
type Option func(*Preprocessor)

// WithClassifierModel sets the model used for question-type classification.
func WithClassifierModel(model string) Option {
	return func(p *Preprocessor) {
		p.classifierModel = model
	}
}

// WithExpanderModel sets the model used for query expansion.
func WithExpanderModel(model string) Option {
	return func(p *Preprocessor) {
		p.expanderModel = model
	}
}

// WithMinExpandLength sets the rune-length threshold below which queries are expanded.
func WithMinExpandLength(n int) Option {
	return func(p *Preprocessor) {
		p.minExpandLength = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Preprocessor) {
		p.logger = logger
	}
}

// New creates a Preprocessor backed by the given LLM client.
func New(llmClient llm.Client, opts ...Option) *Preprocessor {
	p := &Preprocessor{
		llmClient:       llmClient,
		logger:          slog.Default(),
		minExpandLength: DefaultMinExpandLength,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

const classifyPrompt = `Classify the type of the following ESG question.

Possible types:
- "definition": concept or term explanation (e.g. "What is Scope 3?", "Explain RE100")
- "how_to": execution method or strategy (e.g. "How do we cut carbon emissions?")
- "case_study": a specific company's activities (e.g. "What does CJ do?", "SHINHAN's ESG work")
- "comparison": comparative analysis (e.g. "Compare A and B", "Which is better?")
- "trend": trends and change over time (e.g. "Recent ESG trends", "What comes next?")
- "data_inquiry": data lookup (e.g. "Carbon emissions?", "What are the targets?")

Question: `

// Classify asks the LLM for the question type. The answer is constrained to
// the closed set; a failed call or an out-of-set answer falls back to
// data_inquiry. The caller must reject empty queries before calling.
func (p *Preprocessor) Classify(ctx context.Context, query string) QuestionType {
	resp, err := p.llmClient.Chat(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: classifyPrompt + query + "\n\nReturn only the type, e.g. definition"},
	}, llm.ChatOptions{
		Model:       p.classifierModel,
		Temperature: 0.1,
		MaxTokens:   20,
	})
	if err != nil {
		p.logger.Warn("question classification failed", "error", err)
		return TypeDataInquiry
	}

	qt := QuestionType(strings.ToLower(strings.TrimSpace(resp)))
	if !validTypes[qt] {
		p.logger.Debug("classifier returned out-of-set type", "type", string(qt))
		return TypeDataInquiry
	}

	p.logger.Debug("classified question", "type", string(qt))
	return qt
}

const expandSystemPrompt = `You rewrite short user questions about corporate ESG reports into
more specific, retrieval-friendly questions. Rules:
1. Preserve the intent of the original question.
2. Add concrete ESG terms and concepts.
3. Add related keywords that help document search.
4. Answer in the same language as the input.
5. The expanded question must be 1-2 sentences.

Example:
input: "탄소배출량?"
output: "기업의 탄소배출량 관리와 감축 목표는 어떻게 설정되어 있으며, 어떤 감축 전략을 사용하고 있나요?"`

// Expand rewrites an under-specified query into a fuller one. Queries longer
// than the threshold (length as a proxy for specificity) are returned
// unchanged, byte-for-byte. Expansion failure is fail-open: the original
// query comes back, so the result is always non-empty.
func (p *Preprocessor) Expand(ctx context.Context, query string) string {
	if utf8.RuneCountInString(query) > p.minExpandLength {
		return query
	}

	resp, err := p.llmClient.Chat(ctx, []llm.Message{
		{Role: llm.RoleSystem, Content: expandSystemPrompt},
		{Role: llm.RoleUser, Content: "Expand this question: " + query},
	}, llm.ChatOptions{
		Model:       p.expanderModel,
		Temperature: 0.3,
		MaxTokens:   200,
	})
	if err != nil {
		p.logger.Warn("query expansion failed", "error", err)
		return query
	}

	expanded := strings.TrimSpace(resp)
	if expanded == "" {
		return query
	}

	p.logger.Debug("expanded query", "original", query, "expanded", expanded)
	return expanded
}
