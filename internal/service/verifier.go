package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/impacttracker/esgrag/internal/llm"
)

// Verification is the advisory quality assessment of a generated answer.
// It never blocks the pipeline: any verifier failure yields neutral defaults.
type Verification struct {
	Relevance    float64  `json:"relevance"`
	Accuracy     float64  `json:"accuracy"`
	Completeness float64  `json:"completeness"`
	Citation     float64  `json:"citation"`
	Overall      float64  `json:"overall"`
	Issues       []string `json:"issues"`
	Confidence   string   `json:"confidence"`
}

// neutralVerification is returned whenever the verifier cannot produce a
// usable assessment.
func neutralVerification() Verification {
	return Verification{
		Overall:    7.0,
		Confidence: "medium",
		Issues:     []string{},
	}
}

// Verifier scores a generated answer against its source context with an LLM.
type Verifier struct {
	llmClient llm.Client
	logger    *slog.Logger
	model     string
}

// VerifierOption is a functional option for configuring Verifier.
type VerifierOption func(*Verifier)

// WithVerifierModel sets the model used for verification.
func WithVerifierModel(model string) VerifierOption {
	return func(v *Verifier) {
		v.model = model
	}
}

// WithVerifierLogger sets the logger.
func WithVerifierLogger(logger *slog.Logger) VerifierOption {
	return func(v *Verifier) {
		v.logger = logger
	}
}

// NewVerifier creates a Verifier backed by the given LLM client.
func NewVerifier(llmClient llm.Client, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		llmClient: llmClient,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(v)
	}

	return v
}

const verifyPromptFormat = `Evaluate the following ESG question and answer.

Question: %s

Answer: %s

Source documents: %s

Score each criterion from 0 to 10:
1. relevance: does the answer address the question?
2. accuracy: does the answer match the source documents (figures and dates included)?
3. completeness: is the question fully answered?
4. citation: are sources clearly cited?

Return JSON only, in exactly this shape:
{"relevance": n, "accuracy": n, "completeness": n, "citation": n, "overall": average, "issues": ["..."], "confidence": "high/medium/low"}`

// Verify asks the LLM to rate the answer. Parse failures and call failures
// both return the neutral default; verification is advisory, never blocking.
func (v *Verifier) Verify(ctx context.Context, userQuery, answer, contextText string) Verification {
	prompt := fmt.Sprintf(verifyPromptFormat, userQuery, answer, contextText)

	resp, err := v.llmClient.Chat(ctx, []llm.Message{
		{Role: llm.RoleUser, Content: prompt},
	}, llm.ChatOptions{
		Model:       v.model,
		Temperature: 0.1,
		MaxTokens:   300,
	})
	if err != nil {
		v.logger.Warn("answer verification failed", "error", err)
		return neutralVerification()
	}

	verification, err := parseVerification(resp)
	if err != nil {
		v.logger.Warn("could not parse verification output", "error", err)
		return neutralVerification()
	}

	return verification
}

// parseVerification extracts the JSON assessment from the model output,
// stripping markdown code fences when present.
func parseVerification(resp string) (Verification, error) {
	text := strings.TrimSpace(resp)

	if idx := strings.Index(text, "```json"); idx != -1 {
		start := idx + len("```json")
		if end := strings.Index(text[start:], "```"); end != -1 {
			text = text[start : start+end]
		}
	} else if idx := strings.Index(text, "```"); idx != -1 {
		start := idx + len("```")
		if end := strings.Index(text[start:], "```"); end != -1 {
			text = text[start : start+end]
		}
	}
	text = strings.TrimSpace(text)

	var verification Verification
	if err := json.Unmarshal([]byte(text), &verification); err != nil {
		return Verification{}, fmt.Errorf("parsing verification JSON: %w", err)
	}

	if verification.Issues == nil {
		verification.Issues = []string{}
	}

	return verification, nil
}
