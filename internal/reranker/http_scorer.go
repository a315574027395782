package reranker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultScorerBaseURL is the default cross-encoder inference endpoint.
	DefaultScorerBaseURL = "http://localhost:8501"

	// DefaultScorerModel is the default cross-encoder model.
	DefaultScorerModel = "cross-encoder/ms-marco-MiniLM-L-6-v2"
)

// HTTPScorer calls a cross-encoder inference service over HTTP. The service
// wraps a sentence-transformers CrossEncoder model and returns one raw logit
// per (query, document) pair.
type HTTPScorer struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// HTTPScorerOption is a functional option for configuring HTTPScorer.
type HTTPScorerOption func(*HTTPScorer)

// WithScorerBaseURL sets a custom base URL for the inference service.
func WithScorerBaseURL(url string) HTTPScorerOption {
	return func(s *HTTPScorer) {
		s.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithScorerModel sets the cross-encoder model name.
func WithScorerModel(model string) HTTPScorerOption {
	return func(s *HTTPScorer) {
		s.model = model
	}
}

// WithScorerHTTPClient sets a custom HTTP client.
func WithScorerHTTPClient(client *http.Client) HTTPScorerOption {
	return func(s *HTTPScorer) {
		s.httpClient = client
	}
}

// NewHTTPScorer creates a cross-encoder scorer client with the given options.
func NewHTTPScorer(opts ...HTTPScorerOption) *HTTPScorer {
	s := &HTTPScorer{
		baseURL: DefaultScorerBaseURL,
		model:   DefaultScorerModel,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

type predictRequest struct {
	Model string `json:"model"`
	Pairs []Pair `json:"pairs"`
}

type predictResponse struct {
	Logits []float64 `json:"logits"`
}

// Predict scores each pair with the remote cross-encoder and returns the raw logits.
func (s *HTTPScorer) Predict(ctx context.Context, pairs []Pair) ([]float64, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(predictRequest{Model: s.model, Pairs: pairs})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("scorer API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if len(result.Logits) != len(pairs) {
		return nil, fmt.Errorf("scorer returned %d logits for %d pairs", len(result.Logits), len(pairs))
	}

	return result.Logits, nil
}

// Ensure HTTPScorer implements Scorer.
var _ Scorer = (*HTTPScorer)(nil)
