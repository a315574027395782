package service

import (
	"context"
	"log/slog"

	"github.com/impacttracker/esgrag/internal/llm"
	"github.com/impacttracker/esgrag/internal/query"
	"github.com/impacttracker/esgrag/internal/retrieval"
)

const (
	// DefaultHistoryWindow is how many recent conversation turns are kept
	// when building a prompt. Older turns are truncated from the prompt,
	// never deleted from the caller's history.
	DefaultHistoryWindow = 10

	// DefaultAnswerLanguage is the language answers are written in.
	DefaultAnswerLanguage = "Korean"

	// apologyMessage is the fixed user-visible reply when generation fails.
	apologyMessage = "Sorry, an error occurred while generating the response. Please try again."
)

// Assembler builds the final LLM prompt from retrieved context, question
// type, few-shot exemplars and conversation history, and invokes generation.
//
// Generation failure never surfaces as an error: the caller gets a fixed
// apology string, so the end user always receives some textual answer.
type Assembler struct {
	llmClient     llm.Client
	logger        *slog.Logger
	fewShot       []llm.Message
	model         string
	language      string
	historyWindow int
	temperature   float32
	maxTokens     int
}

// AssemblerOption is a functional option for configuring Assembler.
type AssemblerOption func(*Assembler)

// WithFewShot sets the few-shot exemplar turns prepended to every call.
func WithFewShot(examples []llm.Message) AssemblerOption {
	return func(a *Assembler) {
		a.fewShot = examples
	}
}

// WithGeneratorModel sets the model used for answer generation.
func WithGeneratorModel(model string) AssemblerOption {
	return func(a *Assembler) {
		a.model = model
	}
}

// WithLanguage sets the answer language.
func WithLanguage(language string) AssemblerOption {
	return func(a *Assembler) {
		a.language = language
	}
}

// WithHistoryWindow sets how many recent turns are included in the prompt.
func WithHistoryWindow(n int) AssemblerOption {
	return func(a *Assembler) {
		a.historyWindow = n
	}
}

// WithAssemblerLogger sets the logger.
func WithAssemblerLogger(logger *slog.Logger) AssemblerOption {
	return func(a *Assembler) {
		a.logger = logger
	}
}

// NewAssembler creates an Assembler backed by the given LLM client.
func NewAssembler(llmClient llm.Client, opts ...AssemblerOption) *Assembler {
	a := &Assembler{
		llmClient:     llmClient,
		logger:        slog.Default(),
		language:      DefaultAnswerLanguage,
		historyWindow: DefaultHistoryWindow,
		temperature:   0.7,
		maxTokens:     1500,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Generate builds the prompt and produces the answer plus the citation
// summary text describing which documents informed it.
func (a *Assembler) Generate(
	ctx context.Context,
	userQuery string,
	contextText string,
	summary retrieval.MetadataSummary,
	questionType query.QuestionType,
	history []llm.Message,
) (answer string, citationSummary string) {
	citationSummary = formatSummary(summary)

	systemPrompt := buildSystemPrompt(questionType, contextText, summary, a.language)

	// Message order: system, few-shot exemplars, recent history, question.
	messages := make([]llm.Message, 0, 2+len(a.fewShot)+len(history))
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	messages = append(messages, a.fewShot...)

	if len(history) > a.historyWindow {
		history = history[len(history)-a.historyWindow:]
	}
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: userQuery})

	answer, err := a.llmClient.Chat(ctx, messages, llm.ChatOptions{
		Model:       a.model,
		Temperature: a.temperature,
		MaxTokens:   a.maxTokens,
	})
	if err != nil {
		a.logger.Error("answer generation failed", "error", err)
		return apologyMessage, citationSummary
	}

	return answer, citationSummary
}
