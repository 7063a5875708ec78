// Package embeddingutils is the embeddings utility package
package embeddingutils

import (
	"fmt"

	"github.com/papercomputeco/pagerag/pkg/embeddings"
	"github.com/papercomputeco/pagerag/pkg/embeddings/huggingface"
	"github.com/papercomputeco/pagerag/pkg/embeddings/ollama"
	"github.com/papercomputeco/pagerag/pkg/embeddings/openai"
)

const (
	ProviderHuggingFace = "huggingface"
	ProviderOpenAI      = "openai"
	ProviderOllama      = "ollama"
)

// NewEmbedderOpts carries the credential, service endpoint and model name for
// whichever provider is selected. Empty fields fall back to provider defaults.
type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	APIKey       string
	Dimensions   uint
}

func NewEmbedder(o *NewEmbedderOpts) (embeddings.Embedder, error) {
	switch o.ProviderType {
	case ProviderHuggingFace:
		return huggingface.NewEmbedder(huggingface.EmbedderConfig{
			APIKey:  o.APIKey,
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
	case ProviderOpenAI:
		return openai.NewEmbedder(openai.EmbedderConfig{
			APIKey:     o.APIKey,
			BaseURL:    o.TargetURL,
			Model:      o.Model,
			Dimensions: o.Dimensions,
		})
	case ProviderOllama:
		return ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL: o.TargetURL,
			Model:   o.Model,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}
}

// SupportedProviders lists the provider names NewEmbedder accepts.
func SupportedProviders() []string {
	return []string{ProviderHuggingFace, ProviderOpenAI, ProviderOllama}
}
