package openai

import (
	"context"
	"errors"
	"strings"

	"github.com/cloo-solutions/vdoc/internal/domain"
	openai "github.com/sashabaranov/go-openai"
)

// DefaultChatModel is used when no chat model is configured
const DefaultChatModel = openai.GPT4oMini

// ChatAPI is the subset of the go-openai client used for generation
type ChatAPI interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// ChatGenerator produces answers with the OpenAI chat completions API. Each
// Generate call issues exactly one request.
type ChatGenerator struct {
	api   ChatAPI
	model string
}

// NewChatGenerator creates a generator from configuration.
func NewChatGenerator(cfg Config) (*ChatGenerator, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewChatGeneratorWithAPI(cfg.newSDKClient(), cfg.ChatModel), nil
}

// NewChatGeneratorWithAPI creates a generator over an existing API client.
func NewChatGeneratorWithAPI(api ChatAPI, model string) *ChatGenerator {
	if model == "" {
		model = DefaultChatModel
	}
	return &ChatGenerator{api: api, model: model}
}

// Generate sends prompt as a single user message and returns the reply text.
func (g *ChatGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", domain.ClassifyGeneratorError(statusCode(err), err)
	}

	if len(resp.Choices) == 0 {
		return "", domain.Wrap(domain.ErrGeneratorMalformed, errors.New("no choices in response"))
	}
	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return "", domain.Wrap(domain.ErrGeneratorMalformed, errors.New("response blocked by content filter"))
	}
	if strings.TrimSpace(choice.Message.Content) == "" {
		return "", domain.Wrap(domain.ErrGeneratorMalformed, errors.New("empty response text"))
	}

	return choice.Message.Content, nil
}

// Model returns the configured chat model.
func (g *ChatGenerator) Model() string {
	return g.model
}
