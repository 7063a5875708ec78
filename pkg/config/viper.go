package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/pagerag/pkg/dotdir"
)

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "PAGERAG"

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the PAGERAG_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (PAGERAG_LOADER_URL, PAGERAG_RETRIEVER_TOP_K, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Loader
	v.SetDefault("loader.url", d.Loader.URL)
	v.SetDefault("loader.selector", d.Loader.Selector)
	v.SetDefault("loader.user_agent", d.Loader.UserAgent)
	v.SetDefault("loader.max_bytes", d.Loader.MaxBytes)

	// Splitter
	v.SetDefault("splitter.chunk_size", d.Splitter.ChunkSize)
	v.SetDefault("splitter.chunk_overlap", d.Splitter.ChunkOverlap)
	v.SetDefault("splitter.word_boundary", d.Splitter.WordBoundary)

	// Embedding
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	// Models and endpoints stay empty so each provider applies its own
	// default when only the provider is overridden.
	v.SetDefault("embedding.model", "")
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("embedding.api_key", d.Embedding.APIKey)

	// Vector store
	v.SetDefault("vector_store.provider", d.VectorStore.Provider)
	v.SetDefault("vector_store.target", d.VectorStore.Target)

	// Retriever
	v.SetDefault("retriever.top_k", d.Retriever.TopK)

	// Generation
	v.SetDefault("generation.provider", d.Generation.Provider)
	v.SetDefault("generation.base_url", "")
	v.SetDefault("generation.model", "")
	v.SetDefault("generation.api_key", d.Generation.APIKey)
	// generation.temperature has no default so IsSet tells an explicit 0
	// from the provider's own default.

	// Prompt
	v.SetDefault("prompt.template", d.Prompt.Template)
	v.SetDefault("prompt.question", d.Prompt.Question)
}

// FromViper materializes the resolved configuration.
func FromViper(v *viper.Viper) *Config {
	cfg := &Config{
		Version: v.GetInt("version"),
		Loader: LoaderConfig{
			URL:       v.GetString("loader.url"),
			Selector:  v.GetString("loader.selector"),
			UserAgent: v.GetString("loader.user_agent"),
			MaxBytes:  v.GetInt64("loader.max_bytes"),
		},
		Splitter: SplitterConfig{
			ChunkSize:    v.GetInt("splitter.chunk_size"),
			ChunkOverlap: v.GetInt("splitter.chunk_overlap"),
			WordBoundary: v.GetBool("splitter.word_boundary"),
		},
		Embedding: EmbeddingConfig{
			Provider:   v.GetString("embedding.provider"),
			Target:     v.GetString("embedding.target"),
			Model:      v.GetString("embedding.model"),
			Dimensions: v.GetUint("embedding.dimensions"),
			APIKey:     v.GetString("embedding.api_key"),
		},
		VectorStore: VectorStoreConfig{
			Provider: v.GetString("vector_store.provider"),
			Target:   v.GetString("vector_store.target"),
		},
		Retriever: RetrieverConfig{
			TopK: v.GetInt("retriever.top_k"),
		},
		Generation: GenerationConfig{
			Provider: v.GetString("generation.provider"),
			BaseURL:  v.GetString("generation.base_url"),
			Model:    v.GetString("generation.model"),
			APIKey:   v.GetString("generation.api_key"),
		},
		Prompt: PromptConfig{
			Template: v.GetString("prompt.template"),
			Question: v.GetString("prompt.question"),
		},
	}

	if v.IsSet("generation.temperature") {
		t := v.GetFloat64("generation.temperature")
		cfg.Generation.Temperature = &t
	}

	return cfg
}
