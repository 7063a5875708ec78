// Package huggingface implements pkg/embeddings' Embedder client for the
// Hugging Face Inference API feature-extraction pipeline.
package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/pagerag/pkg/embeddings"
)

const (
	// DefaultEmbeddingModel produces 384 dimension sentence embeddings.
	DefaultEmbeddingModel = "sentence-transformers/all-MiniLM-L6-v2"

	// DefaultBaseURL is the Hugging Face inference router for hosted models.
	DefaultBaseURL = "https://router.huggingface.co/hf-inference/models"

	// EnvAPIKey is the environment variable the key is conventionally read from.
	EnvAPIKey = "HUGGINGFACE_API_KEY"
)

// EmbedderConfig holds configuration for the Hugging Face embedder.
type EmbedderConfig struct {
	// APIKey is sent as a bearer token. When empty the request is sent
	// unauthenticated and the service rejects it.
	APIKey string

	// BaseURL overrides DefaultBaseURL, e.g. for a dedicated inference endpoint.
	BaseURL string

	// Model is the model repository id. Defaults to DefaultEmbeddingModel.
	Model string

	// HTTPClient overrides the default client (120s timeout).
	HTTPClient *http.Client
}

// Embedder calls the feature-extraction pipeline of a hosted model.
type Embedder struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

type featureRequest struct {
	Inputs  string         `json:"inputs"`
	Options featureOptions `json:"options"`
}

type featureOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewEmbedder creates a new Hugging Face embedder.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}

	return &Embedder{
		apiKey:     cfg.APIKey,
		endpoint:   baseURL + "/" + model + "/pipeline/feature-extraction",
		httpClient: httpClient,
	}, nil
}

// Embed converts text into a vector embedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	jsonBody, err := json.Marshal(featureRequest{
		Inputs:  text,
		Options: featureOptions{WaitForModel: true},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: marshaling request: %v", embeddings.ErrEmbedding, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", embeddings.ErrEmbedding, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: sending request: %v", embeddings.ErrEmbedding, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", embeddings.ErrEmbedding, err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := string(body)
		var er errorResponse
		if json.Unmarshal(body, &er) == nil && er.Error != "" {
			msg = er.Error
		}
		return nil, fmt.Errorf("%w: huggingface returned status %d: %s", embeddings.ErrEmbedding, resp.StatusCode, msg)
	}

	vec, err := decodeFeatures(body)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", embeddings.ErrEmbedding, err)
	}

	return vec, nil
}

// decodeFeatures accepts either a pooled sentence vector or per-token vectors.
// Token vectors are mean pooled.
func decodeFeatures(body []byte) ([]float32, error) {
	var flat []float32
	if err := json.Unmarshal(body, &flat); err == nil {
		if len(flat) == 0 {
			return nil, fmt.Errorf("empty embedding")
		}
		return flat, nil
	}

	var tokens [][]float32
	if err := json.Unmarshal(body, &tokens); err != nil {
		var batched [][][]float32
		if err := json.Unmarshal(body, &batched); err != nil || len(batched) == 0 {
			return nil, fmt.Errorf("unexpected feature-extraction payload")
		}
		tokens = batched[0]
	}

	if len(tokens) == 0 || len(tokens[0]) == 0 {
		return nil, fmt.Errorf("empty embedding")
	}
	if len(tokens) == 1 {
		return tokens[0], nil
	}

	dims := len(tokens[0])
	pooled := make([]float32, dims)
	for _, t := range tokens {
		if len(t) != dims {
			return nil, fmt.Errorf("ragged token embeddings: %d != %d", len(t), dims)
		}
		for i, v := range t {
			pooled[i] += v
		}
	}
	for i := range pooled {
		pooled[i] /= float32(len(tokens))
	}

	return pooled, nil
}

// Close releases resources held by the embedder.
func (e *Embedder) Close() error {
	return nil
}

// Ensure Embedder implements embeddings.Embedder
var _ embeddings.Embedder = (*Embedder)(nil)
