package config

import (
	"log/slog"

	embeddingutils "github.com/papercomputeco/pagerag/pkg/embeddings/utils"
	generationutils "github.com/papercomputeco/pagerag/pkg/generation/utils"
	"github.com/papercomputeco/pagerag/pkg/generation/openai"
	vectorutils "github.com/papercomputeco/pagerag/pkg/vector/utils"
)

// EmbedderOpts projects the embedding section into the embedder factory's
// options. apiKey is the resolved credential and wins over Embedding.APIKey.
func (c *Config) EmbedderOpts(apiKey string) *embeddingutils.NewEmbedderOpts {
	if apiKey == "" {
		apiKey = c.Embedding.APIKey
	}
	return &embeddingutils.NewEmbedderOpts{
		ProviderType: c.Embedding.Provider,
		TargetURL:    c.Embedding.Target,
		Model:        c.Embedding.Model,
		APIKey:       apiKey,
		Dimensions:   c.Embedding.Dimensions,
	}
}

// GeneratorOpts projects the generation section into the generator factory's
// options. apiKey is the resolved credential and wins over Generation.APIKey.
func (c *Config) GeneratorOpts(apiKey string, logger *slog.Logger) *generationutils.NewGeneratorOpts {
	if apiKey == "" {
		apiKey = c.Generation.APIKey
	}
	return &generationutils.NewGeneratorOpts{
		ProviderType: c.Generation.Provider,
		BaseURL:      c.Generation.BaseURL,
		Model:        c.Generation.Model,
		APIKey:       apiKey,
		Temperature:  c.Generation.Temperature,
		Logger:       logger,
	}
}

// VectorDriverOpts projects the vector store section into the driver factory's
// options. The store's dimensionality follows the embedding section.
func (c *Config) VectorDriverOpts(logger *slog.Logger) *vectorutils.NewVectorDriverOpts {
	return &vectorutils.NewVectorDriverOpts{
		ProviderType: c.VectorStore.Provider,
		TargetURL:    c.VectorStore.Target,
		Dimensions:   c.Embedding.Dimensions,
		Logger:       logger,
	}
}

// EmbeddingCredentialProvider names the credentials.toml provider holding the
// embedding key, or "" when the provider needs none.
func (c *Config) EmbeddingCredentialProvider() string {
	switch c.Embedding.Provider {
	case embeddingutils.ProviderHuggingFace:
		return "huggingface"
	case embeddingutils.ProviderOpenAI:
		return "openai"
	default:
		return ""
	}
}

// GenerationBaseURL returns the effective chat completions endpoint.
func (c *Config) GenerationBaseURL() string {
	if c.Generation.BaseURL == "" && c.Generation.Provider == generationutils.ProviderOpenAI {
		return openai.DefaultBaseURL
	}
	return c.Generation.BaseURL
}
