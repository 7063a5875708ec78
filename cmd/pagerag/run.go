package pageragcmder

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/pagerag/pkg/cliui"
	"github.com/papercomputeco/pagerag/pkg/config"
	"github.com/papercomputeco/pagerag/pkg/credentials"
	embeddingutils "github.com/papercomputeco/pagerag/pkg/embeddings/utils"
	generationutils "github.com/papercomputeco/pagerag/pkg/generation/utils"
	"github.com/papercomputeco/pagerag/pkg/loader/web"
	"github.com/papercomputeco/pagerag/pkg/logger"
	"github.com/papercomputeco/pagerag/pkg/pipeline"
	"github.com/papercomputeco/pagerag/pkg/prompt"
	"github.com/papercomputeco/pagerag/pkg/splitter"
	"github.com/papercomputeco/pagerag/pkg/utils"
	vectorutils "github.com/papercomputeco/pagerag/pkg/vector/utils"
)

// ragFlags are the root command's pipeline flags. Each maps to a config key,
// so a flag only overrides the config when it is set.
var ragFlags = config.FlagSet{
	config.FlagURL:             {Name: "url", Shorthand: "u", ViperKey: "loader.url", Description: "Web page to answer questions about"},
	config.FlagSelector:        {Name: "selector", ViperKey: "loader.selector", Description: "CSS selector of the element whose text is loaded"},
	config.FlagQuestion:        {Name: "question", Shorthand: "q", ViperKey: "prompt.question", Description: "Question to ask about the page"},
	config.FlagTopK:            {Name: "top", Shorthand: "k", ViperKey: "retriever.top_k", Description: "Number of chunks to retrieve"},
	config.FlagChunkSize:       {Name: "chunk-size", ViperKey: "splitter.chunk_size", Description: "Chunk size in characters"},
	config.FlagChunkOverlap:    {Name: "chunk-overlap", ViperKey: "splitter.chunk_overlap", Description: "Characters shared by consecutive chunks"},
	config.FlagWordBoundary:    {Name: "word-boundary", ViperKey: "splitter.word_boundary", Description: "Avoid ending chunks mid-word"},
	config.FlagEmbeddingProv:   {Name: "embedding-provider", ViperKey: "embedding.provider", Description: "Embedding provider (" + strings.Join(embeddingutils.SupportedProviders(), ", ") + ")"},
	config.FlagEmbeddingTgt:    {Name: "embedding-target", ViperKey: "embedding.target", Description: "Embedding service URL (provider default if empty)"},
	config.FlagEmbeddingModel:  {Name: "embedding-model", ViperKey: "embedding.model", Description: "Embedding model (provider default if empty)"},
	config.FlagEmbeddingDims:   {Name: "embedding-dimensions", ViperKey: "embedding.dimensions", Description: "Embedding dimensionality"},
	config.FlagVectorStoreProv: {Name: "vector-store-provider", ViperKey: "vector_store.provider", Description: "Vector store (" + strings.Join(vectorutils.SupportedProviders(), ", ") + ")"},
	config.FlagVectorStoreTgt:  {Name: "vector-store-target", ViperKey: "vector_store.target", Description: "Chroma URL or SQLite path (pagerag tables in the file are recreated on each run)"},
	config.FlagGenerationProv:  {Name: "generation-provider", ViperKey: "generation.provider", Description: "Generation provider (" + strings.Join(generationutils.SupportedProviders(), ", ") + ")"},
	config.FlagGenerationURL:   {Name: "generation-base-url", ViperKey: "generation.base_url", Description: "OpenAI compatible base URL (provider default if empty)"},
	config.FlagGenerationModel: {Name: "generation-model", ViperKey: "generation.model", Description: "Chat model (provider default if empty)"},
	config.FlagTemperature:     {Name: "temperature", ViperKey: "generation.temperature", Description: "Sampling temperature, 0 to 2 (model default if unset)"},
	config.FlagPromptTemplate:  {Name: "template", ViperKey: "prompt.template", Description: "Prompt template with {context} and {input} placeholders"},
}

type ragCommander struct {
	flags struct {
		url, selector, question, template   string
		embeddingProvider, embeddingTarget  string
		embeddingModel                      string
		vectorStoreProvider, vectorStoreTgt string
		generationProvider, generationURL   string
		generationModel                     string
		topK, chunkSize, chunkOverlap       int
		embeddingDims                       uint
		temperature                         float64
		wordBoundary                        bool
	}

	sources bool
	quiet   bool
}

func (c *ragCommander) addFlags(cmd *cobra.Command) {
	f := &c.flags
	config.AddStringFlag(cmd, ragFlags, config.FlagURL, &f.url)
	config.AddStringFlag(cmd, ragFlags, config.FlagSelector, &f.selector)
	config.AddStringFlag(cmd, ragFlags, config.FlagQuestion, &f.question)
	config.AddIntFlag(cmd, ragFlags, config.FlagTopK, &f.topK)
	config.AddIntFlag(cmd, ragFlags, config.FlagChunkSize, &f.chunkSize)
	config.AddIntFlag(cmd, ragFlags, config.FlagChunkOverlap, &f.chunkOverlap)
	config.AddBoolFlag(cmd, ragFlags, config.FlagWordBoundary, &f.wordBoundary)
	config.AddStringFlag(cmd, ragFlags, config.FlagEmbeddingProv, &f.embeddingProvider)
	config.AddStringFlag(cmd, ragFlags, config.FlagEmbeddingTgt, &f.embeddingTarget)
	config.AddStringFlag(cmd, ragFlags, config.FlagEmbeddingModel, &f.embeddingModel)
	config.AddUintFlag(cmd, ragFlags, config.FlagEmbeddingDims, &f.embeddingDims)
	config.AddStringFlag(cmd, ragFlags, config.FlagVectorStoreProv, &f.vectorStoreProvider)
	config.AddStringFlag(cmd, ragFlags, config.FlagVectorStoreTgt, &f.vectorStoreTgt)
	config.AddStringFlag(cmd, ragFlags, config.FlagGenerationProv, &f.generationProvider)
	config.AddStringFlag(cmd, ragFlags, config.FlagGenerationURL, &f.generationURL)
	config.AddStringFlag(cmd, ragFlags, config.FlagGenerationModel, &f.generationModel)
	config.AddFloat64Flag(cmd, ragFlags, config.FlagTemperature, &f.temperature)
	config.AddStringFlag(cmd, ragFlags, config.FlagPromptTemplate, &f.template)

	cmd.Flags().BoolVar(&c.sources, "sources", false, "Print the retrieved chunks after the answer")
	cmd.Flags().BoolVar(&c.quiet, "quiet", false, "Print only the answer, without progress or formatting")
}

// resolveConfig layers flags over env over config.toml over defaults.
func resolveConfig(cmd *cobra.Command, configDir string) (*config.Config, error) {
	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(ragFlags))
	for k := range ragFlags {
		keys = append(keys, k)
	}
	config.BindRegisteredFlags(v, cmd, ragFlags, keys)

	return config.FromViper(v), nil
}

func (c *ragCommander) run(cmd *cobra.Command) error {
	configDir, _ := cmd.Flags().GetString("config-dir")
	debug, _ := cmd.Flags().GetBool("debug")
	logFile, _ := cmd.Flags().GetString("log-file")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	cfg, err := resolveConfig(cmd, configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, closeLog, err := newLogger(cmd.ErrOrStderr(), debug, logFile)
	if err != nil {
		return err
	}
	defer closeLog()

	creds, err := credentials.NewManager(configDir)
	if err != nil {
		return fmt.Errorf("loading credentials: %w", err)
	}

	return c.answer(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, creds, log)
}

// answer builds every component from cfg, runs the pipeline and prints the result.
func (c *ragCommander) answer(
	ctx context.Context,
	stdout, stderr io.Writer,
	cfg *config.Config,
	creds *credentials.Manager,
	log *slog.Logger,
) error {
	ldr, err := web.NewLoader(web.Config{
		URL:       cfg.Loader.URL,
		Selector:  cfg.Loader.Selector,
		UserAgent: cfg.Loader.UserAgent,
		MaxBytes:  cfg.Loader.MaxBytes,
	}, log)
	if err != nil {
		return err
	}

	split, err := splitter.New(splitter.Config{
		ChunkSize:    cfg.Splitter.ChunkSize,
		ChunkOverlap: cfg.Splitter.ChunkOverlap,
		WordBoundary: cfg.Splitter.WordBoundary,
	})
	if err != nil {
		return err
	}

	tmpl, err := prompt.Parse(cfg.Prompt.Template)
	if err != nil {
		return err
	}

	embedKey := ""
	if p := cfg.EmbeddingCredentialProvider(); p != "" {
		if embedKey, err = creds.Resolve(p, cfg.Embedding.APIKey); err != nil {
			return fmt.Errorf("resolving embedding credentials: %w", err)
		}
	}

	embedder, err := embeddingutils.NewEmbedder(cfg.EmbedderOpts(embedKey))
	if err != nil {
		return err
	}
	defer embedder.Close()

	genKey := ""
	if cfg.Generation.Provider == generationutils.ProviderOpenAI {
		p := credentials.ProviderForBaseURL(cfg.GenerationBaseURL())
		if genKey, err = creds.Resolve(p, cfg.Generation.APIKey); err != nil {
			return fmt.Errorf("resolving generation credentials: %w", err)
		}
	}

	generator, err := generationutils.NewGenerator(cfg.GeneratorOpts(genKey, log))
	if err != nil {
		return err
	}
	defer generator.Close()

	driver, err := vectorutils.NewVectorDriver(cfg.VectorDriverOpts(log))
	if err != nil {
		return err
	}

	p, err := pipeline.New(pipeline.Config{
		Loader:       ldr,
		Splitter:     split,
		Embedder:     embedder,
		VectorDriver: driver,
		Generator:    generator,
		Template:     tmpl,
		TopK:         cfg.Retriever.TopK,
		Stepper:      c.stepper(stderr),
		Logger:       log,
	})
	if err != nil {
		_ = driver.Close()
		return err
	}

	log.Debug("running pipeline",
		"url", cfg.Loader.URL,
		"question", cfg.Prompt.Question,
		"embedding_provider", cfg.Embedding.Provider,
		"vector_store", cfg.VectorStore.Provider,
		"generation_provider", cfg.Generation.Provider,
	)

	res, err := p.Run(ctx, cfg.Prompt.Question)
	if err != nil {
		return err
	}

	return c.printResult(stdout, res)
}

// stepper draws a spinner per stage on a terminal and one line per stage
// otherwise. Quiet runs draw nothing.
func (c *ragCommander) stepper(w io.Writer) pipeline.Stepper {
	if c.quiet {
		return nil
	}

	step := cliui.Plain
	if cliui.IsTerminal(w) {
		step = cliui.Step
	}

	return func(state pipeline.State, fn func() error) error {
		return step(w, stageLabel(state), fn)
	}
}

func stageLabel(s pipeline.State) string {
	switch s {
	case pipeline.StateLoad:
		return "Loading page"
	case pipeline.StateSplit:
		return "Splitting text"
	case pipeline.StateEmbedAndIndex:
		return "Embedding chunks"
	case pipeline.StateRetrieve:
		return "Retrieving context"
	case pipeline.StateGenerate:
		return "Generating answer"
	default:
		return s.String()
	}
}

func (c *ragCommander) printResult(w io.Writer, res *pipeline.Result) error {
	answer := res.Answer
	if !c.quiet && cliui.IsTerminal(w) {
		if rendered, err := cliui.RenderMarkdown(answer); err == nil {
			answer = rendered
		}
	}

	if c.quiet {
		fmt.Fprintln(w, answer)
	} else {
		fmt.Fprintf(w, "\n%s\n", strings.TrimRight(answer, "\n"))
	}

	if !c.sources {
		return nil
	}

	// lipgloss.Fprintf drops the styling when w is not a terminal.
	lipgloss.Fprintf(w, "\n  %s\n\n", cliui.HeaderStyle.Render("Sources"))
	for i, s := range res.Sources {
		lipgloss.Fprintf(w, "  %s %s %s\n",
			cliui.NameStyle.Render(fmt.Sprintf("#%d", i+1)),
			cliui.DimStyle.Render(fmt.Sprintf("score %.3f, chunk %d, offset %d", s.Score, s.Chunk.Index, s.Chunk.Offset)),
			cliui.ValueStyle.Render(utils.Truncate(utils.OneLine(s.Chunk.Text), 100)),
		)
	}
	fmt.Fprintln(w)

	return nil
}

// newLogger logs pretty to stderr and, with a log file, also as JSON to it.
func newLogger(stderr io.Writer, debug bool, logFile string) (*slog.Logger, func(), error) {
	console := logger.New(
		logger.WithDebug(debug),
		logger.WithFormat(logger.FormatPretty),
		logger.WithWriter(stderr),
	)

	if logFile == "" {
		return console, func() {}, nil
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	file := logger.New(
		logger.WithDebug(true),
		logger.WithFormat(logger.FormatJSON),
		logger.WithWriter(f),
	)

	return logger.Multi(console, file), func() { _ = f.Close() }, nil
}
