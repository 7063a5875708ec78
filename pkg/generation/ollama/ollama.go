// Package ollama implements pkg/generation's Generator using Ollama's chat API
// for fully local runs.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/pagerag/pkg/generation"
)

const (
	// DefaultBaseURL is the default Ollama API URL.
	DefaultBaseURL = "http://localhost:11434"

	// DefaultModel is the default local chat model.
	DefaultModel = "gemma2:9b"
)

// Config holds configuration for the Ollama generator.
type Config struct {
	// BaseURL defaults to DefaultBaseURL if empty.
	BaseURL string

	// Model defaults to DefaultModel if empty.
	Model string

	// Temperature, when non nil, is sent as a model option.
	Temperature *float64
}

// Generator wraps Ollama's chat API.
type Generator struct {
	baseURL     string
	model       string
	temperature *float64
	httpClient  *http.Client
	logger      *slog.Logger
}

// NewGenerator creates a new Ollama generator.
func NewGenerator(c Config, logger *slog.Logger) (*Generator, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	baseURL := strings.TrimRight(c.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := c.Model
	if model == "" {
		model = DefaultModel
	}

	return &Generator{
		baseURL:     baseURL,
		model:       model,
		temperature: c.Temperature,
		httpClient: &http.Client{
			// Local models can take a while to load on first use.
			Timeout: 5 * time.Minute,
		},
		logger: logger,
	}, nil
}

// Generate sends prompt as a single user message.
func (g *Generator) Generate(ctx context.Context, prompt string) (*generation.Answer, error) {
	reqBody := chatRequest{
		Model:    g.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
		Stream:   false,
	}
	if g.temperature != nil {
		reqBody.Options = &chatOptions{Temperature: g.temperature}
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %v", generation.ErrGeneration, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/chat", bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", generation.ErrGeneration, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: sending request: %v", generation.ErrGeneration, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: ollama returned status %d: %s", generation.ErrGeneration, resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", generation.ErrGeneration, err)
	}

	text := strings.TrimSpace(chatResp.Message.Content)
	if text == "" {
		return nil, fmt.Errorf("%w: empty completion (done reason %q)", generation.ErrGeneration, chatResp.DoneReason)
	}

	g.logger.Debug("generated answer",
		"model", chatResp.Model,
		"prompt_tokens", chatResp.PromptEvalCount,
		"completion_tokens", chatResp.EvalCount,
	)

	return &generation.Answer{
		Text:             text,
		Model:            chatResp.Model,
		PromptTokens:     chatResp.PromptEvalCount,
		CompletionTokens: chatResp.EvalCount,
	}, nil
}

// Close releases resources held by the generator.
func (g *Generator) Close() error {
	return nil
}

// Ensure Generator implements generation.Generator
var _ generation.Generator = (*Generator)(nil)
