// Package openai implements pkg/generation's Generator for OpenAI compatible
// chat completion APIs, such as OpenRouter, using the openai-go SDK.
package openai

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/papercomputeco/pagerag/pkg/generation"
)

const (
	// DefaultBaseURL is OpenRouter's OpenAI compatible endpoint.
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	// DefaultModel is a free instruction tuned model on OpenRouter.
	DefaultModel = "google/gemma-2-9b-it:free"
)

// Config holds configuration for the chat completion generator.
type Config struct {
	// APIKey is the bearer credential.
	APIKey string

	// BaseURL is the API root, including the version segment.
	// Defaults to DefaultBaseURL if empty.
	BaseURL string

	// Model defaults to DefaultModel if empty.
	Model string

	// Temperature, when non nil, is sent with the request.
	Temperature *float64

	// HTTPClient overrides the SDK's default client.
	HTTPClient *http.Client
}

// Generator wraps the chat completions endpoint.
type Generator struct {
	client      openai.Client
	model       string
	temperature *float64
	logger      *slog.Logger
}

// NewGenerator creates a new chat completion generator.
func NewGenerator(c Config, logger *slog.Logger) (*Generator, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	baseURL := c.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := c.Model
	if model == "" {
		model = DefaultModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(c.APIKey),
		option.WithBaseURL(baseURL),
		option.WithMaxRetries(0),
	}
	if c.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(c.HTTPClient))
	}

	return &Generator{
		client:      openai.NewClient(opts...),
		model:       model,
		temperature: c.Temperature,
		logger:      logger,
	}, nil
}

// Generate sends prompt as a single user message.
func (g *Generator) Generate(ctx context.Context, prompt string) (*generation.Answer, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	}
	if g.temperature != nil {
		params.Temperature = openai.Float(*g.temperature)
	}

	resp, err := g.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", generation.ErrGeneration, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", generation.ErrGeneration)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return nil, fmt.Errorf("%w: empty completion (finish reason %q)",
			generation.ErrGeneration, resp.Choices[0].FinishReason)
	}

	g.logger.Debug("generated answer",
		"model", resp.Model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)

	return &generation.Answer{
		Text:             text,
		Model:            resp.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}, nil
}

// Close releases resources held by the generator.
func (g *Generator) Close() error {
	return nil
}

// Ensure Generator implements generation.Generator
var _ generation.Generator = (*Generator)(nil)
