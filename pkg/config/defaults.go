package config

import (
	embeddingutils "github.com/papercomputeco/pagerag/pkg/embeddings/utils"
	"github.com/papercomputeco/pagerag/pkg/embeddings/huggingface"
	generationutils "github.com/papercomputeco/pagerag/pkg/generation/utils"
	"github.com/papercomputeco/pagerag/pkg/generation/openai"
	"github.com/papercomputeco/pagerag/pkg/index"
	"github.com/papercomputeco/pagerag/pkg/loader/web"
	"github.com/papercomputeco/pagerag/pkg/prompt"
	"github.com/papercomputeco/pagerag/pkg/splitter"
	vectorutils "github.com/papercomputeco/pagerag/pkg/vector/utils"
)

const (
	defaultURL      = "https://ai.nikunja.online/about"
	defaultQuestion = "What is the page about? Who is it?"

	defaultEmbeddingDimensions = 384
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Loader: LoaderConfig{
			URL:       defaultURL,
			Selector:  web.DefaultSelector,
			UserAgent: web.DefaultUserAgent,
			MaxBytes:  web.DefaultMaxBytes,
		},
		Splitter: SplitterConfig{
			ChunkSize:    splitter.DefaultChunkSize,
			ChunkOverlap: splitter.DefaultChunkOverlap,
		},
		Embedding: EmbeddingConfig{
			Provider:   embeddingutils.ProviderHuggingFace,
			Model:      huggingface.DefaultEmbeddingModel,
			Dimensions: defaultEmbeddingDimensions,
		},
		VectorStore: VectorStoreConfig{
			Provider: vectorutils.ProviderMemory,
		},
		Retriever: RetrieverConfig{
			TopK: index.DefaultTopK,
		},
		Generation: GenerationConfig{
			Provider: generationutils.ProviderOpenAI,
			BaseURL:  openai.DefaultBaseURL,
			Model:    openai.DefaultModel,
		},
		Prompt: PromptConfig{
			Template: prompt.DefaultTemplate,
			Question: defaultQuestion,
		},
	}
}
