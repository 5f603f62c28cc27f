// Package openai adapts the OpenAI API to the query embedder and answer
// generator used by the RAG pipeline.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloo-solutions/vdoc/internal/domain"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for query embeddings
	DefaultEmbeddingModel = openai.SmallEmbedding3
	// DefaultEmbeddingDimensions matches the dimension of the pre-built corpus index
	DefaultEmbeddingDimensions = 384
)

var (
	// ErrNoAPIKey is returned when OpenAI API key is not set
	ErrNoAPIKey = domain.NewDomainError(domain.ErrCodeConfiguration, "OPENAI_API_KEY environment variable not set")
)

// EmbeddingAPI defines the interface for embedding generation
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, text string) ([]float32, error)
}

// Client wraps the OpenAI embeddings API
type Client struct {
	api        EmbeddingAPI
	model      string
	dimensions int
}

type OpenAIAdapter struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
}

func NewOpenAIAdapter(client *openai.Client, model openai.EmbeddingModel, dimensions int) *OpenAIAdapter {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &OpenAIAdapter{
		client:     client,
		model:      model,
		dimensions: dimensions,
	}
}

// CreateEmbeddings calls the OpenAI API to create embeddings
func (a *OpenAIAdapter) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	resp, err := a.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      a.model,
		Dimensions: a.dimensions,
	})
	if err != nil {
		return nil, err
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned")
	}

	return resp.Data[0].Embedding, nil
}

type Config struct {
	APIKey              string
	BaseURL             string
	EmbeddingModel      string
	EmbeddingDimensions int
	ChatModel           string
}

func (cfg Config) newSDKClient() *openai.Client {
	c := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		c.BaseURL = cfg.BaseURL
	}
	return openai.NewClientWithConfig(c)
}

// NewClient creates a new OpenAI embedder using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI embedder with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	model := openai.EmbeddingModel(cfg.EmbeddingModel)
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &Client{
		api:        NewOpenAIAdapter(cfg.newSDKClient(), model, dimensions),
		model:      string(model),
		dimensions: dimensions,
	}
}

// Embed generates an embedding for the given text
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if c == nil || c.api == nil {
		return nil, domain.ErrModelNotLoaded
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyText
	}

	embedding, err := c.api.CreateEmbeddings(ctx, text)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, domain.Wrap(domain.ErrCanceled, err)
		}
		return nil, domain.Wrap(domain.ErrEmbeddingFailure, err)
	}

	if len(embedding) != c.dimensions {
		return nil, domain.Wrap(domain.ErrWrongDimensions, fmt.Errorf("got %d, expected %d", len(embedding), c.dimensions))
	}

	return embedding, nil
}

// Dimension returns the embedding dimension
func (c *Client) Dimension() int {
	return c.dimensions
}

// ModelInfo returns model information
func (c *Client) ModelInfo() string {
	return fmt.Sprintf("openai-%s-%d", c.model, c.dimensions)
}

// statusCode extracts the HTTP status from go-openai errors, or 0.
func statusCode(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}
