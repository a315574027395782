package embedder

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
	// DefaultEmbedderBaseURL is the default embedding inference endpoint.
	// The same model server hosts the sentence-transformers embedding model
	// and the cross-encoder used for reranking.
	DefaultEmbedderBaseURL = "http://localhost:8501"

	// DefaultEmbedderModel is the default embedding model.
	DefaultEmbedderModel = "jhgan/ko-sroberta-multitask"
)

// HTTPEmbedder implements Embedder against a sentence-transformers inference
// service with a JSON embed endpoint.
type HTTPEmbedder struct {
	baseURL    string
	model      string
	dimension  int
	httpClient *http.Client
}

// HTTPEmbedderConfig holds configuration for the HTTP embedder.
type HTTPEmbedderConfig struct {
	// BaseURL is the inference service base URL.
	BaseURL string

	// Model is the embedding model to use.
	Model string

	// Dimension overrides the embedding dimension; 0 means look it up from
	// the known-model table.
	Dimension int

	// HTTPClient is an optional custom HTTP client.
	HTTPClient *http.Client
}

// NewHTTPEmbedder creates a new embedder client with the given configuration.
func NewHTTPEmbedder(cfg HTTPEmbedderConfig) *HTTPEmbedder {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultEmbedderBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultEmbedderModel
	}

	dimension := cfg.Dimension
	if dimension <= 0 {
		dimension = GetModelConfig(model).Dimension
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	return &HTTPEmbedder{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		model:      model,
		dimension:  dimension,
		httpClient: client,
	}
}

type embedRequest struct {
	Model string   `json:"model"`
	Texts []string `json:"texts"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed generates an embedding vector for a single text input.
func (e *HTTPEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// EmbedBatch generates embedding vectors for multiple texts in one request.
func (e *HTTPEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := json.Marshal(embedRequest{Model: e.model, Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedder API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(result.Embeddings), len(texts))
	}

	return result.Embeddings, nil
}

// Dimension returns the embedding dimensionality.
func (e *HTTPEmbedder) Dimension() int {
	return e.dimension
}

// ModelName returns the embedding model name.
func (e *HTTPEmbedder) ModelName() string {
	return e.model
}

// Ensure HTTPEmbedder implements Embedder.
var _ Embedder = (*HTTPEmbedder)(nil)
