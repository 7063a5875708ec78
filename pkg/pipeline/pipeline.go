// Package pipeline runs one retrieval augmented generation pass: load the
// page, split it, embed and index the chunks, retrieve the closest chunks to
// the question and ask the model to answer from them.
//
// Stages run strictly in sequence. The first failing stage moves the pipeline
// to StateFailed and no later stage runs.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/papercomputeco/pagerag/pkg/document"
	"github.com/papercomputeco/pagerag/pkg/embeddings"
	"github.com/papercomputeco/pagerag/pkg/generation"
	"github.com/papercomputeco/pagerag/pkg/index"
	"github.com/papercomputeco/pagerag/pkg/loader"
	"github.com/papercomputeco/pagerag/pkg/logger"
	"github.com/papercomputeco/pagerag/pkg/prompt"
	"github.com/papercomputeco/pagerag/pkg/splitter"
	"github.com/papercomputeco/pagerag/pkg/vector"
)

// State is a pipeline stage, or one of the two terminal states.
type State int

const (
	StateLoad State = iota
	StateSplit
	StateEmbedAndIndex
	StateRetrieve
	StateGenerate
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoad:
		return "load"
	case StateSplit:
		return "split"
	case StateEmbedAndIndex:
		return "embed_and_index"
	case StateRetrieve:
		return "retrieve"
	case StateGenerate:
		return "generate"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Stepper wraps the execution of a single stage, e.g. to draw a spinner.
// It must call fn exactly once and return its error.
type Stepper func(state State, fn func() error) error

// Config wires the pipeline's collaborators.
type Config struct {
	Loader       loader.Loader
	Splitter     *splitter.Splitter
	Embedder     embeddings.Embedder
	VectorDriver vector.Driver
	Generator    generation.Generator

	// Template defaults to prompt.Default().
	Template *prompt.Template

	// TopK defaults to index.DefaultTopK.
	TopK int

	// Stepper is optional.
	Stepper Stepper

	Logger *slog.Logger
}

// Result is the outcome of a successful run.
type Result struct {
	// Answer is the generated answer text.
	Answer string

	// Model is the model that produced Answer.
	Model string

	// Sources are the retrieved chunks, closest first.
	Sources []vector.QueryResult

	// Documents and Chunks count what was loaded and indexed.
	Documents int
	Chunks    int
}

// Pipeline is single use: Run may be called once.
type Pipeline struct {
	loader    loader.Loader
	splitter  *splitter.Splitter
	embedder  embeddings.Embedder
	driver    vector.Driver
	generator generation.Generator
	template  *prompt.Template
	topK      int
	stepper   Stepper
	logger    *slog.Logger

	state State
}

// New validates c and returns a pipeline in StateLoad.
func New(c Config) (*Pipeline, error) {
	switch {
	case c.Loader == nil:
		return nil, errors.New("pipeline loader is required")
	case c.Splitter == nil:
		return nil, errors.New("pipeline splitter is required")
	case c.Embedder == nil:
		return nil, errors.New("pipeline embedder is required")
	case c.VectorDriver == nil:
		return nil, errors.New("pipeline vector driver is required")
	case c.Generator == nil:
		return nil, errors.New("pipeline generator is required")
	case c.TopK < 0:
		return nil, fmt.Errorf("%w: got %d", vector.ErrInvalidTopK, c.TopK)
	}

	p := &Pipeline{
		loader:    c.Loader,
		splitter:  c.Splitter,
		embedder:  c.Embedder,
		driver:    c.VectorDriver,
		generator: c.Generator,
		template:  c.Template,
		topK:      c.TopK,
		stepper:   c.Stepper,
		logger:    c.Logger,
		state:     StateLoad,
	}

	if p.template == nil {
		p.template = prompt.Default()
	}
	if p.topK == 0 {
		p.topK = index.DefaultTopK
	}
	if p.logger == nil {
		p.logger = logger.Nop()
	}
	if p.stepper == nil {
		p.stepper = func(_ State, fn func() error) error { return fn() }
	}

	return p, nil
}

// State returns the stage the pipeline is in, or the terminal state it ended in.
func (p *Pipeline) State() State {
	return p.state
}

// Run executes every stage for question. The vector driver is closed before
// Run returns.
func (p *Pipeline) Run(ctx context.Context, question string) (*Result, error) {
	if p.state != StateLoad {
		return nil, fmt.Errorf("pipeline already ran (state %s)", p.state)
	}
	defer func() {
		if err := p.driver.Close(); err != nil {
			p.logger.Warn("closing vector store", "error", err)
		}
	}()

	var (
		docs   []document.Document
		chunks []document.Chunk
		idx    *index.Index
		hits   []vector.QueryResult
		answer *generation.Answer
	)

	err := p.step(StateLoad, func() error {
		var err error
		docs, err = p.loader.Load(ctx)
		if err != nil {
			return ensureWrapped(err, loader.ErrFetch)
		}

		p.logger.Debug("loaded documents", "count", len(docs))
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = p.step(StateSplit, func() error {
		var err error
		chunks, err = p.splitter.SplitDocuments(docs)
		if err != nil {
			if errors.Is(err, splitter.ErrNoContent) {
				p.logger.Error("no meaningful content extracted from the webpage",
					"documents", len(docs),
				)
			}
			return err
		}

		p.logger.Debug("split documents",
			"documents", len(docs),
			"chunks", len(chunks),
			"chunk_size", p.splitter.ChunkSize(),
			"chunk_overlap", p.splitter.ChunkOverlap(),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = p.step(StateEmbedAndIndex, func() error {
		var err error
		idx, err = index.Build(ctx, chunks, p.embedder, p.driver, p.logger)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = p.step(StateRetrieve, func() error {
		var err error
		hits, err = idx.Search(ctx, question, p.topK)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = p.step(StateGenerate, func() error {
		contexts := make([]string, len(hits))
		for i, h := range hits {
			contexts[i] = h.Chunk.Text
		}

		var err error
		answer, err = p.generator.Generate(ctx, p.template.Compose(contexts, question))
		if err != nil {
			return ensureWrapped(err, generation.ErrGeneration)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	p.state = StateDone

	return &Result{
		Answer:    answer.Text,
		Model:     answer.Model,
		Sources:   hits,
		Documents: len(docs),
		Chunks:    len(chunks),
	}, nil
}

// step runs one stage and moves to the next state, or to StateFailed.
func (p *Pipeline) step(state State, fn func() error) error {
	p.state = state
	log := logger.ForStage(p.logger, state.String())
	log.Debug("stage started")
	start := time.Now()

	if err := p.stepper(state, fn); err != nil {
		p.state = StateFailed
		log.Debug("stage failed", "error", err, "elapsed", time.Since(start))
		return fmt.Errorf("%s: %w", state, err)
	}

	log.Debug("stage finished", "elapsed", time.Since(start))
	return nil
}

func ensureWrapped(err, sentinel error) error {
	if errors.Is(err, sentinel) {
		return err
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}
