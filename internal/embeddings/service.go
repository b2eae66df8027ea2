package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var (
	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("embedding generation failed")
)

// DefaultMaxBatchSize is the number of texts sent per TEI request.
const DefaultMaxBatchSize = 32

// Config holds configuration for the embedding service.
type Config struct {
	// BaseURL is the base URL for the embedding API.
	BaseURL string

	// Model is the embedding model to use.
	Model string

	// APIKey is the API key (optional for TEI).
	APIKey string

	// MaxBatchSize caps the number of texts per request.
	// Default: DefaultMaxBatchSize.
	MaxBatchSize int

	// Timeout bounds each HTTP call. Default: 30s.
	Timeout time.Duration
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL required", ErrInvalidConfig)
	}
	if c.MaxBatchSize < 0 {
		return fmt.Errorf("%w: max batch size cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// Service generates embeddings over HTTP.
type Service struct {
	config Config
	client *http.Client
}

// NewService creates a new embedding service with the given configuration.
func NewService(config Config) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if config.MaxBatchSize == 0 {
		config.MaxBatchSize = DefaultMaxBatchSize
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &Service{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
	}, nil
}

// teiRequest is the request body for the TEI embed endpoint.
type teiRequest struct {
	Inputs   interface{} `json:"inputs"`
	Truncate bool        `json:"truncate"`
}

// EmbedQuery generates an embedding for a single query.
//
// Fails with ErrEmbeddingFailed if the provider call fails or returns no
// vector for a non-empty input.
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("%w: text cannot be empty", ErrEmptyInput)
	}

	vectors, err := s.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("%w: provider returned no vector", ErrEmbeddingFailed)
	}
	return vectors[0], nil
}

// EmbedDocuments generates embeddings for multiple texts.
//
// Inputs are chunked to MaxBatchSize per request; the returned slice holds
// one vector per input text, in input order.
func (s *Service) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.config.MaxBatchSize {
		end := start + s.config.MaxBatchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := s.embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("%w: expected %d vectors, got %d", ErrEmbeddingFailed, end-start, len(batch))
		}
		vectors = append(vectors, batch...)
	}

	return vectors, nil
}

// embed performs one HTTP call against the TEI embed endpoint.
func (s *Service) embed(ctx context.Context, inputs []string) ([][]float32, error) {
	req := teiRequest{
		Inputs:   inputs,
		Truncate: true,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if s.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", ErrEmbeddingFailed, resp.StatusCode, string(respBody))
	}

	var vectors [][]float32
	if err := json.NewDecoder(resp.Body).Decode(&vectors); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return vectors, nil
}
