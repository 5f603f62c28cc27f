// Package gemini generates answers with the Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cloo-solutions/vdoc/internal/domain"
	"google.golang.org/genai"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

// ErrNoAPIKey is returned when the Gemini API key is not set.
var ErrNoAPIKey = domain.NewDomainError(domain.ErrCodeConfiguration, "GEMINI_API_KEY environment variable not set")

// ContentAPI is the subset of genai.Models used for generation.
type ContentAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Config holds Gemini generator configuration.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Generator implements a single-shot prompt to text call. It never retries.
type Generator struct {
	api   ContentAPI
	model string
}

// New creates a Gemini generator. Returns an error if the API key is missing.
func New(ctx context.Context, cfg Config) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	httpOpts := genai.HTTPOptions{BaseURL: cfg.BaseURL}
	if cfg.Timeout > 0 {
		timeout := cfg.Timeout
		httpOpts.Timeout = &timeout
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: httpOpts,
	})
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeConfiguration, "failed to create gemini client", err)
	}

	return NewWithAPI(client.Models, cfg.Model), nil
}

// NewWithAPI creates a generator over an existing content API.
func NewWithAPI(api ContentAPI, model string) *Generator {
	if model == "" {
		model = DefaultModel
	}
	return &Generator{api: api, model: model}
}

// Generate sends prompt as one user turn and returns the response text as
// read through GenerateContentResponse.Text.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.api.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", domain.ClassifyGeneratorError(statusCode(err), err)
	}
	if resp == nil {
		return "", domain.Wrap(domain.ErrGeneratorMalformed, errors.New("nil response"))
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", domain.Wrap(domain.ErrGeneratorMalformed, fmt.Errorf("prompt blocked: %s", resp.PromptFeedback.BlockReason))
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		reason := "no candidates"
		if len(resp.Candidates) > 0 {
			reason = fmt.Sprintf("finish reason %q", resp.Candidates[0].FinishReason)
		}
		return "", domain.Wrap(domain.ErrGeneratorMalformed, fmt.Errorf("empty response text: %s", reason))
	}
	return text, nil
}

// Model returns the configured model name.
func (g *Generator) Model() string {
	return g.model
}

func statusCode(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Code == 0 && apiErr.Status == "RESOURCE_EXHAUSTED" {
			return http.StatusTooManyRequests
		}
		return apiErr.Code
	}
	return 0
}
