package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent pagerag configuration stored as
// config.toml in the .pagerag/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Loader      LoaderConfig      `toml:"loader"`
	Splitter    SplitterConfig    `toml:"splitter"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	VectorStore VectorStoreConfig `toml:"vector_store"`
	Retriever   RetrieverConfig   `toml:"retriever"`
	Generation  GenerationConfig  `toml:"generation"`
	Prompt      PromptConfig      `toml:"prompt"`
}

// LoaderConfig holds settings for fetching the page.
type LoaderConfig struct {
	URL       string `toml:"url,omitempty"`
	Selector  string `toml:"selector,omitempty"`
	UserAgent string `toml:"user_agent,omitempty"`
	MaxBytes  int64  `toml:"max_bytes,omitempty"`
}

// SplitterConfig holds chunking settings. Sizes are in runes.
type SplitterConfig struct {
	ChunkSize    int  `toml:"chunk_size,omitempty"`
	ChunkOverlap int  `toml:"chunk_overlap,omitempty"`
	WordBoundary bool `toml:"word_boundary,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `toml:"provider,omitempty"`
	Target     string `toml:"target,omitempty"`
	Model      string `toml:"model,omitempty"`
	Dimensions uint   `toml:"dimensions,omitempty"`
	APIKey     string `toml:"api_key,omitempty"`
}

// VectorStoreConfig holds vector store settings.
type VectorStoreConfig struct {
	Provider string `toml:"provider,omitempty"`
	Target   string `toml:"target,omitempty"`
}

// RetrieverConfig holds retrieval settings.
type RetrieverConfig struct {
	TopK int `toml:"top_k,omitempty"`
}

// GenerationConfig holds chat model settings.
type GenerationConfig struct {
	Provider string `toml:"provider,omitempty"`
	BaseURL  string `toml:"base_url,omitempty"`
	Model    string `toml:"model,omitempty"`
	APIKey   string `toml:"api_key,omitempty"`

	// Temperature is sent to the chat model only when set.
	Temperature *float64 `toml:"temperature,omitempty"`
}

// PromptConfig holds the template and the question asked on a run.
type PromptConfig struct {
	Template string `toml:"template,omitempty"`
	Question string `toml:"question,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func intKey(name string, field func(c *Config) *int) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.Itoa(*field(c))
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			if n < 0 {
				return fmt.Errorf("invalid value for %s: must not be negative", name)
			}
			*field(c) = n
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"loader.url":        stringKey(func(c *Config) *string { return &c.Loader.URL }),
	"loader.selector":   stringKey(func(c *Config) *string { return &c.Loader.Selector }),
	"loader.user_agent": stringKey(func(c *Config) *string { return &c.Loader.UserAgent }),
	"loader.max_bytes": {
		get: func(c *Config) string {
			if c.Loader.MaxBytes == 0 {
				return ""
			}
			return strconv.FormatInt(c.Loader.MaxBytes, 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for loader.max_bytes: %w", err)
			}
			c.Loader.MaxBytes = n
			return nil
		},
	},
	"splitter.chunk_size":    intKey("splitter.chunk_size", func(c *Config) *int { return &c.Splitter.ChunkSize }),
	"splitter.chunk_overlap": intKey("splitter.chunk_overlap", func(c *Config) *int { return &c.Splitter.ChunkOverlap }),
	"splitter.word_boundary": {
		get: func(c *Config) string { return strconv.FormatBool(c.Splitter.WordBoundary) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for splitter.word_boundary: %w", err)
			}
			c.Splitter.WordBoundary = b
			return nil
		},
	},
	"embedding.provider": stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":   stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":    stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.dimensions": {
		get: func(c *Config) string {
			if c.Embedding.Dimensions == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Embedding.Dimensions), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for embedding.dimensions: %w", err)
			}
			c.Embedding.Dimensions = uint(n)
			return nil
		},
	},
	"embedding.api_key":     stringKey(func(c *Config) *string { return &c.Embedding.APIKey }),
	"vector_store.provider": stringKey(func(c *Config) *string { return &c.VectorStore.Provider }),
	"vector_store.target":   stringKey(func(c *Config) *string { return &c.VectorStore.Target }),
	"retriever.top_k":       intKey("retriever.top_k", func(c *Config) *int { return &c.Retriever.TopK }),
	"generation.provider":   stringKey(func(c *Config) *string { return &c.Generation.Provider }),
	"generation.base_url":   stringKey(func(c *Config) *string { return &c.Generation.BaseURL }),
	"generation.model":      stringKey(func(c *Config) *string { return &c.Generation.Model }),
	"generation.api_key":    stringKey(func(c *Config) *string { return &c.Generation.APIKey }),
	"generation.temperature": {
		get: func(c *Config) string {
			if c.Generation.Temperature == nil {
				return ""
			}
			return strconv.FormatFloat(*c.Generation.Temperature, 'g', -1, 64)
		},
		set: func(c *Config, v string) error {
			if v == "" {
				c.Generation.Temperature = nil
				return nil
			}
			t, err := parseTemperature(v)
			if err != nil {
				return err
			}
			c.Generation.Temperature = &t
			return nil
		},
	},
	"prompt.template": stringKey(func(c *Config) *string { return &c.Prompt.Template }),
	"prompt.question": stringKey(func(c *Config) *string { return &c.Prompt.Question }),
}

// parseTemperature accepts the 0 to 2 range chat APIs allow.
func parseTemperature(v string) (float64, error) {
	t, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value for generation.temperature: %w", err)
	}
	if t < 0 || t > 2 {
		return 0, fmt.Errorf("invalid value for generation.temperature: %g is outside 0..2", t)
	}
	return t, nil
}

// Validate checks settings that cannot be checked when they are read.
func (c *Config) Validate() error {
	if t := c.Generation.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("invalid value for generation.temperature: %g is outside 0..2", *t)
	}
	return nil
}

// secretKeys are masked by Configer.GetConfigValue callers that print values.
var secretKeys = map[string]bool{
	"embedding.api_key":  true,
	"generation.api_key": true,
}

// IsSecretKey reports whether key holds a credential.
func IsSecretKey(key string) bool {
	return secretKeys[key]
}
