// Package embed provides text embedding for the semantic memory store.
package embed

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/rs/zerolog"
)

// Common errors
var (
	ErrEmptyText        = errors.New("cannot embed empty text")
	ErrDimensionChanged = errors.New("embedding dimension does not match configuration")
)

// Embedder maps text to a fixed-length vector.
type Embedder interface {
	// Embed returns the embedding vector for text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimension returns the vector length every Embed call produces.
	Dimension() int
}

// Config holds embedding service configuration
type Config struct {
	BaseURL   string        `json:"base_url"`
	APIKey    string        `json:"api_key"`
	Model     string        `json:"model"`
	Dimension int           `json:"dimension"`
	Timeout   time.Duration `json:"timeout"`
}

// DefaultConfig returns sensible defaults for a local OpenAI-compatible server
func DefaultConfig() *Config {
	return &Config{
		BaseURL:   "http://127.0.0.1:8080/v1",
		Model:     "all-minilm",
		Dimension: 384,
		Timeout:   15 * time.Second,
	}
}

// Client is an Embedder backed by an OpenAI-compatible embeddings endpoint
// (llama.cpp server, Ollama, or the hosted API).
type Client struct {
	api    openai.Client
	config *Config
	logger zerolog.Logger
}

// NewClient creates a new embedding client
func NewClient(logger zerolog.Logger, cfg *Config) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	opts := []option.RequestOption{
		option.WithBaseURL(cfg.BaseURL),
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}

	return &Client{
		api:    openai.NewClient(opts...),
		config: cfg,
		logger: logger.With().Str("provider", "embeddings").Logger(),
	}
}

// Dimension returns the configured vector length.
func (c *Client) Dimension() int {
	return c.config.Dimension
}

// Embed requests an embedding for text. Vectors whose length disagrees
// with the configured dimension are rejected so the memory index never
// mixes models.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	start := time.Now()

	resp, err := c.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: []string{text},
		},
		Model: openai.EmbeddingModel(c.config.Model),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("embedding response contained no vectors")
	}

	raw := resp.Data[0].Embedding
	if len(raw) != c.config.Dimension {
		return nil, fmt.Errorf("%w: got %d, want %d",
			ErrDimensionChanged, len(raw), c.config.Dimension)
	}

	vec := make([]float32, len(raw))
	for i, v := range raw {
		vec[i] = float32(v)
	}

	c.logger.Debug().
		Int("dimension", len(vec)).
		Dur("elapsed", time.Since(start)).
		Msg("Embedded text")

	return vec, nil
}
