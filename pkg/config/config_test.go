package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/pagerag/pkg/config"
)

var _ = Describe("Configer config", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "config-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	writeConfig := func(data string) {
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(data), 0o600)).To(Succeed())
	}

	Describe("LoadConfig", func() {
		It("returns default config when no config file exists", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).To(Equal(config.NewDefaultConfig()))
		})

		It("loads a valid config file", func() {
			writeConfig(`version = 0

[loader]
url = "https://example.com/about"

[retriever]
top_k = 3

[embedding]
dimensions = 768
`)

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Loader.URL).To(Equal("https://example.com/about"))
			Expect(cfg.Retriever.TopK).To(Equal(3))
			Expect(cfg.Embedding.Dimensions).To(Equal(uint(768)))
		})

		It("fills unset fields from defaults", func() {
			writeConfig(`[loader]
url = "https://example.com"
`)

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())

			defaults := config.NewDefaultConfig()
			Expect(cfg.Splitter).To(Equal(defaults.Splitter))
			Expect(cfg.Embedding).To(Equal(defaults.Embedding))
			Expect(cfg.Generation).To(Equal(defaults.Generation))
			Expect(cfg.Prompt).To(Equal(defaults.Prompt))
		})

		It("keeps an explicit zero overlap when the chunk size is set", func() {
			writeConfig(`[splitter]
chunk_size = 100
chunk_overlap = 0
`)

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Splitter.ChunkSize).To(Equal(100))
			Expect(cfg.Splitter.ChunkOverlap).To(Equal(0))
		})

		It("does not apply the default model to another embedding provider", func() {
			writeConfig(`[embedding]
provider = "ollama"
`)

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Embedding.Provider).To(Equal("ollama"))
			Expect(cfg.Embedding.Model).To(BeEmpty())
		})

		It("returns error for malformed TOML", func() {
			writeConfig("not valid [[[")

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			cfg, err := c.LoadConfig()
			Expect(err).To(HaveOccurred())
			Expect(cfg).To(BeNil())
		})

		It("returns error for an unsupported version", func() {
			writeConfig("version = 7\n")

			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = c.LoadConfig()
			Expect(err).To(MatchError(ContainSubstring("unsupported config version 7")))
		})
	})

	Describe("SaveConfig", func() {
		It("persists config to disk with restricted permissions", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.SaveConfig(config.NewDefaultConfig())).To(Succeed())

			info, err := os.Stat(filepath.Join(tmpDir, "config.toml"))
			Expect(err).NotTo(HaveOccurred())
			Expect(info.Mode().Perm()).To(Equal(os.FileMode(0o600)))
		})

		It("returns error for nil config", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			Expect(c.SaveConfig(nil)).NotTo(Succeed())
		})
	})

	Describe("SetConfigValue and GetConfigValue", func() {
		var c *config.Configer

		BeforeEach(func() {
			var err error
			c, err = config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())
		})

		It("round-trips string keys", func() {
			Expect(c.SetConfigValue("loader.url", "https://example.com/team")).To(Succeed())

			val, err := c.GetConfigValue("loader.url")
			Expect(err).NotTo(HaveOccurred())
			Expect(val).To(Equal("https://example.com/team"))
		})

		It("round-trips integer keys", func() {
			Expect(c.SetConfigValue("retriever.top_k", "8")).To(Succeed())

			val, err := c.GetConfigValue("retriever.top_k")
			Expect(err).NotTo(HaveOccurred())
			Expect(val).To(Equal("8"))
		})

		It("round-trips boolean keys", func() {
			Expect(c.SetConfigValue("splitter.word_boundary", "true")).To(Succeed())

			val, err := c.GetConfigValue("splitter.word_boundary")
			Expect(err).NotTo(HaveOccurred())
			Expect(val).To(Equal("true"))
		})

		It("preserves other values on set", func() {
			Expect(c.SetConfigValue("loader.url", "https://example.com")).To(Succeed())
			Expect(c.SetConfigValue("retriever.top_k", "2")).To(Succeed())

			val, err := c.GetConfigValue("loader.url")
			Expect(err).NotTo(HaveOccurred())
			Expect(val).To(Equal("https://example.com"))
		})

		It("rejects non-numeric values for integer keys", func() {
			Expect(c.SetConfigValue("splitter.chunk_size", "big")).To(MatchError(ContainSubstring("splitter.chunk_size")))
		})

		It("rejects negative values for integer keys", func() {
			Expect(c.SetConfigValue("retriever.top_k", "-1")).To(MatchError(ContainSubstring("must not be negative")))
		})

		It("round-trips and clears the temperature", func() {
			Expect(c.SetConfigValue("generation.temperature", "0.2")).To(Succeed())

			val, err := c.GetConfigValue("generation.temperature")
			Expect(err).NotTo(HaveOccurred())
			Expect(val).To(Equal("0.2"))

			Expect(c.SetConfigValue("generation.temperature", "")).To(Succeed())
			val, err = c.GetConfigValue("generation.temperature")
			Expect(err).NotTo(HaveOccurred())
			Expect(val).To(BeEmpty())
		})

		It("rejects a temperature outside 0..2", func() {
			Expect(c.SetConfigValue("generation.temperature", "2.5")).To(MatchError(ContainSubstring("outside 0..2")))
			Expect(c.SetConfigValue("generation.temperature", "warm")).To(MatchError(ContainSubstring("generation.temperature")))
		})

		It("rejects non-numeric dimensions", func() {
			Expect(c.SetConfigValue("embedding.dimensions", "abc")).NotTo(Succeed())
		})

		It("rejects unknown keys", func() {
			Expect(c.SetConfigValue("proxy.listen", ":8080")).To(MatchError(ContainSubstring("unknown config key")))

			_, err := c.GetConfigValue("proxy.listen")
			Expect(err).To(MatchError(ContainSubstring("unknown config key")))
		})
	})

	Describe("round-trip", func() {
		It("saves and loads a full config", func() {
			c, err := config.NewConfiger(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			original, err := config.PresetConfig("ollama")
			Expect(err).NotTo(HaveOccurred())
			original.Retriever.TopK = 2
			original.Splitter.WordBoundary = true

			Expect(c.SaveConfig(original)).To(Succeed())

			loaded, err := c.LoadConfig()
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(original))
		})
	})
})

var _ = Describe("ValidConfigKeys", func() {
	It("lists every key in section order", func() {
		keys := config.ValidConfigKeys()
		Expect(keys).To(HaveLen(22))
		Expect(keys[0]).To(Equal("loader.url"))
		Expect(keys[len(keys)-1]).To(Equal("prompt.question"))
		Expect(keys).To(ContainElements("retriever.top_k", "generation.model", "vector_store.provider"))
	})

	It("agrees with IsValidConfigKey", func() {
		for _, k := range config.ValidConfigKeys() {
			Expect(config.IsValidConfigKey(k)).To(BeTrue(), k)
		}
		Expect(config.IsValidConfigKey("nope")).To(BeFalse())
	})
})

var _ = Describe("IsSecretKey", func() {
	It("flags api keys only", func() {
		Expect(config.IsSecretKey("embedding.api_key")).To(BeTrue())
		Expect(config.IsSecretKey("generation.api_key")).To(BeTrue())
		Expect(config.IsSecretKey("generation.model")).To(BeFalse())
	})
})

var _ = Describe("PresetConfig", func() {
	It("returns the defaults for openrouter", func() {
		cfg, err := config.PresetConfig("openrouter")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg).To(Equal(config.NewDefaultConfig()))
	})

	It("configures openai for both embedding and generation", func() {
		cfg, err := config.PresetConfig("OpenAI")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Embedding.Provider).To(Equal("openai"))
		Expect(cfg.Embedding.Dimensions).To(Equal(uint(1536)))
		Expect(cfg.Generation.BaseURL).To(Equal("https://api.openai.com/v1"))
	})

	It("configures local ollama", func() {
		cfg, err := config.PresetConfig("ollama")
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Embedding.Provider).To(Equal("ollama"))
		Expect(cfg.Generation.Provider).To(Equal("ollama"))
		Expect(cfg.Generation.Model).To(Equal("gemma2:9b"))
	})

	It("rejects unknown presets", func() {
		cfg, err := config.PresetConfig("anthropic")
		Expect(err).To(MatchError(ContainSubstring("unknown preset")))
		Expect(cfg).To(BeNil())
	})

	It("lists preset names", func() {
		Expect(config.ValidPresetNames()).To(ConsistOf("openrouter", "openai", "ollama"))
	})
})

var _ = Describe("NewDefaultConfig", func() {
	It("describes the stock page and question", func() {
		cfg := config.NewDefaultConfig()
		Expect(cfg.Loader.URL).To(Equal("https://ai.nikunja.online/about"))
		Expect(cfg.Prompt.Question).To(Equal("What is the page about? Who is it?"))
		Expect(cfg.Splitter.ChunkSize).To(Equal(200))
		Expect(cfg.Splitter.ChunkOverlap).To(Equal(50))
		Expect(cfg.Retriever.TopK).To(Equal(5))
		Expect(cfg.VectorStore.Provider).To(Equal("memory"))
		Expect(cfg.Prompt.Template).To(ContainSubstring("{context}"))
		Expect(cfg.Prompt.Template).To(ContainSubstring("{input}"))
	})
})

var _ = Describe("InitViper", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "viper-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("returns viper with defaults when no config file exists", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		defaults := config.NewDefaultConfig()
		Expect(v.GetString("loader.url")).To(Equal(defaults.Loader.URL))
		Expect(v.GetInt("splitter.chunk_size")).To(Equal(defaults.Splitter.ChunkSize))
		Expect(v.GetInt("retriever.top_k")).To(Equal(defaults.Retriever.TopK))
		Expect(v.GetString("embedding.provider")).To(Equal(defaults.Embedding.Provider))
		Expect(v.GetString("embedding.model")).To(BeEmpty())
	})

	It("reads config file values over defaults", func() {
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(`[retriever]
top_k = 2
`), 0o600)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		Expect(v.GetInt("retriever.top_k")).To(Equal(2))
		Expect(v.GetString("loader.url")).To(Equal(config.NewDefaultConfig().Loader.URL))
	})

	It("env vars take precedence over config file values", func() {
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(`[loader]
url = "https://file.example.com"
`), 0o600)).To(Succeed())
		GinkgoT().Setenv("PAGERAG_LOADER_URL", "https://env.example.com")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		Expect(v.GetString("loader.url")).To(Equal("https://env.example.com"))
	})

	It("materializes a Config with FromViper", func() {
		GinkgoT().Setenv("PAGERAG_RETRIEVER_TOP_K", "9")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cfg := config.FromViper(v)
		Expect(cfg.Retriever.TopK).To(Equal(9))
		Expect(cfg.Splitter.ChunkOverlap).To(Equal(50))
		Expect(cfg.Embedding.Dimensions).To(Equal(uint(384)))
		Expect(cfg.Prompt.Question).To(Equal("What is the page about? Who is it?"))
		Expect(cfg.Generation.Temperature).To(BeNil())
	})

	It("keeps an explicit zero temperature", func() {
		GinkgoT().Setenv("PAGERAG_GENERATION_TEMPERATURE", "0")

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cfg := config.FromViper(v)
		Expect(cfg.Generation.Temperature).NotTo(BeNil())
		Expect(*cfg.Generation.Temperature).To(BeZero())
		Expect(cfg.GeneratorOpts("", nil).Temperature).To(Equal(cfg.Generation.Temperature))
	})
})

var _ = Describe("flag registry", func() {
	var tmpDir string

	fs := config.FlagSet{
		config.FlagURL:          {Name: "url", Shorthand: "u", ViperKey: "loader.url", Description: "Page to load"},
		config.FlagTopK:         {Name: "top", Shorthand: "k", ViperKey: "retriever.top_k", Description: "Chunks to retrieve"},
		config.FlagWordBoundary: {Name: "word-boundary", ViperKey: "splitter.word_boundary", Description: "Snap chunks to words"},
		config.FlagEmbeddingDims: {Name: "embedding-dimensions", ViperKey: "embedding.dimensions", Description: "Embedding dimensionality"},
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "bindflag-test-*")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	It("binds cobra flags to viper keys", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		var url string
		var top int
		config.AddStringFlag(cmd, fs, config.FlagURL, &url)
		config.AddIntFlag(cmd, fs, config.FlagTopK, &top)

		Expect(cmd.Flags().Set("url", "https://flag.example.com")).To(Succeed())
		Expect(cmd.Flags().Set("top", "3")).To(Succeed())

		config.BindRegisteredFlags(v, cmd, fs, []string{config.FlagURL, config.FlagTopK})

		Expect(v.GetString("loader.url")).To(Equal("https://flag.example.com"))
		Expect(v.GetInt("retriever.top_k")).To(Equal(3))
	})

	It("falls through to config when flag not set", func() {
		Expect(os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(`[retriever]
top_k = 4
`), 0o600)).To(Succeed())

		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		var top int
		config.AddIntFlag(cmd, fs, config.FlagTopK, &top)

		config.BindRegisteredFlags(v, cmd, fs, []string{config.FlagTopK})

		Expect(v.GetInt("retriever.top_k")).To(Equal(4))
	})

	It("skips bindings for nonexistent registry keys", func() {
		v, err := config.InitViper(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		cmd := &cobra.Command{Use: "test"}
		config.BindRegisteredFlags(v, cmd, fs, []string{"nonexistent", config.FlagURL})

		Expect(v.GetString("loader.url")).To(Equal(config.NewDefaultConfig().Loader.URL))
	})

	It("pulls name, shorthand, default and description from the FlagSet", func() {
		cmd := &cobra.Command{Use: "test"}
		var url string
		var top int
		var words bool
		var dims uint
		config.AddStringFlag(cmd, fs, config.FlagURL, &url)
		config.AddIntFlag(cmd, fs, config.FlagTopK, &top)
		config.AddBoolFlag(cmd, fs, config.FlagWordBoundary, &words)
		config.AddUintFlag(cmd, fs, config.FlagEmbeddingDims, &dims)

		f := cmd.Flags().Lookup("url")
		Expect(f).NotTo(BeNil())
		Expect(f.Shorthand).To(Equal("u"))
		Expect(f.Usage).To(Equal("Page to load"))
		Expect(f.DefValue).To(Equal(config.NewDefaultConfig().Loader.URL))

		Expect(cmd.Flags().Lookup("top").DefValue).To(Equal("5"))
		Expect(cmd.Flags().Lookup("word-boundary").DefValue).To(Equal("false"))
		Expect(cmd.Flags().Lookup("embedding-dimensions").DefValue).To(Equal("384"))
	})

	It("ignores unregistered keys", func() {
		cmd := &cobra.Command{Use: "test"}
		var s string
		config.AddStringFlag(cmd, fs, "missing", &s)
		Expect(cmd.Flags().HasFlags()).To(BeFalse())
	})
})

var _ = Describe("option projection", func() {
	It("prefers the resolved key over the configured one", func() {
		cfg := config.NewDefaultConfig()
		cfg.Embedding.APIKey = "hf-config"

		Expect(cfg.EmbedderOpts("hf-resolved").APIKey).To(Equal("hf-resolved"))
		Expect(cfg.EmbedderOpts("").APIKey).To(Equal("hf-config"))
	})

	It("projects the embedding section", func() {
		cfg := config.NewDefaultConfig()
		opts := cfg.EmbedderOpts("")
		Expect(opts.ProviderType).To(Equal("huggingface"))
		Expect(opts.Model).To(Equal(cfg.Embedding.Model))
		Expect(opts.Dimensions).To(Equal(uint(384)))
	})

	It("projects the generation section", func() {
		cfg := config.NewDefaultConfig()
		opts := cfg.GeneratorOpts("sk-or", nil)
		Expect(opts.ProviderType).To(Equal("openai"))
		Expect(opts.BaseURL).To(Equal("https://openrouter.ai/api/v1"))
		Expect(opts.Model).To(Equal("google/gemma-2-9b-it:free"))
		Expect(opts.APIKey).To(Equal("sk-or"))
	})

	It("sizes the vector store from the embedding dimensions", func() {
		cfg := config.NewDefaultConfig()
		cfg.Embedding.Dimensions = 768
		cfg.VectorStore.Provider = "sqlite"

		opts := cfg.VectorDriverOpts(nil)
		Expect(opts.ProviderType).To(Equal("sqlite"))
		Expect(opts.Dimensions).To(Equal(uint(768)))
	})

	It("names the credential provider for each embedder", func() {
		cfg := config.NewDefaultConfig()
		Expect(cfg.EmbeddingCredentialProvider()).To(Equal("huggingface"))

		cfg.Embedding.Provider = "openai"
		Expect(cfg.EmbeddingCredentialProvider()).To(Equal("openai"))

		cfg.Embedding.Provider = "ollama"
		Expect(cfg.EmbeddingCredentialProvider()).To(BeEmpty())
	})

	It("validates the temperature range", func() {
		cfg := config.NewDefaultConfig()
		Expect(cfg.Validate()).To(Succeed())

		hot := 3.0
		cfg.Generation.Temperature = &hot
		Expect(cfg.Validate()).To(MatchError(ContainSubstring("outside 0..2")))
	})

	It("falls back to the default chat endpoint", func() {
		cfg := config.NewDefaultConfig()
		cfg.Generation.BaseURL = ""
		Expect(cfg.GenerationBaseURL()).To(Equal("https://openrouter.ai/api/v1"))

		cfg.Generation.Provider = "ollama"
		Expect(cfg.GenerationBaseURL()).To(BeEmpty())
	})
})
