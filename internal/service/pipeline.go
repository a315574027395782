// Package service composes the RAG pipeline: query preprocessing, two-stage
// retrieval, prompt assembly with generation, and advisory answer verification.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/impacttracker/esgrag/internal/llm"
	"github.com/impacttracker/esgrag/internal/query"
	"github.com/impacttracker/esgrag/internal/retrieval"
	"github.com/impacttracker/esgrag/internal/vectorstore"
)

// ErrEmptyQuery is returned when the incoming question is blank after trimming.
var ErrEmptyQuery = errors.New("query is empty")

// ChatResult is the outcome of one pipeline run. The answer is always
// non-empty: internal failures of optional steps degrade to defaults, and
// generation failure yields a fixed apology.
type ChatResult struct {
	Answer          string
	Sources         []string
	QuestionType    query.QuestionType
	CitationSummary string
	Verification    *Verification
}

// ChatService runs a complete question-answering pipeline over one
// retrieval collection. A single run is synchronous and sequential;
// concurrent runs share only the read-only index and the stateless models.
type ChatService struct {
	preprocessor *query.Preprocessor
	retriever    *retrieval.Retriever
	assembler    *Assembler
	verifier     *Verifier
	logger       *slog.Logger
	verify       bool
}

// ChatServiceOption is a functional option for configuring ChatService.
type ChatServiceOption func(*ChatService)

// WithVerifier enables advisory answer verification.
func WithVerifier(v *Verifier) ChatServiceOption {
	return func(s *ChatService) {
		s.verifier = v
		s.verify = true
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ChatServiceOption {
	return func(s *ChatService) {
		s.logger = logger
	}
}

// NewChatService wires the pipeline stages together.
func NewChatService(
	preprocessor *query.Preprocessor,
	retriever *retrieval.Retriever,
	assembler *Assembler,
	opts ...ChatServiceOption,
) *ChatService {
	s := &ChatService{
		preprocessor: preprocessor,
		retriever:    retriever,
		assembler:    assembler,
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Ask answers a user question using the retrieval pipeline and the given
// conversation history. The history is read-only to the pipeline; the caller
// owns and mutates it between invocations.
func (s *ChatService) Ask(ctx context.Context, userQuery string, history []llm.Message) (*ChatResult, error) {
	userQuery = strings.TrimSpace(userQuery)
	if userQuery == "" {
		return nil, ErrEmptyQuery
	}

	// Classification is a display hint only; it never affects retrieval.
	questionType := s.preprocessor.Classify(ctx, userQuery)

	// Retrieval uses the expanded query, but filters come from the user's
	// own words: expansion may inject company or section terms that the
	// user never asked about.
	expanded := s.preprocessor.Expand(ctx, userQuery)
	filter := query.ExtractFilters(userQuery)

	result := s.retriever.GetRelevantContext(ctx, expanded, filter)

	answer, citationSummary := s.assembler.Generate(
		ctx, userQuery, result.Context, result.Summary, questionType, history)

	chatResult := &ChatResult{
		Answer:          answer,
		Sources:         result.Sources,
		QuestionType:    questionType,
		CitationSummary: citationSummary,
	}

	if s.verify && result.Context != "" {
		verification := s.verifier.Verify(ctx, userQuery, answer, result.Context)
		chatResult.Verification = &verification
	}

	return chatResult, nil
}

// Filter exposes metadata-filter extraction for callers that want to
// preview which filters a query would produce.
func (s *ChatService) Filter(userQuery string) vectorstore.Filter {
	return query.ExtractFilters(userQuery)
}
