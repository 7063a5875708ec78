package pipeline_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/pagerag/pkg/embeddings"
	"github.com/papercomputeco/pagerag/pkg/generation"
	"github.com/papercomputeco/pagerag/pkg/loader"
	"github.com/papercomputeco/pagerag/pkg/logger"
	"github.com/papercomputeco/pagerag/pkg/pipeline"
	"github.com/papercomputeco/pagerag/pkg/prompt"
	"github.com/papercomputeco/pagerag/pkg/splitter"
	testutils "github.com/papercomputeco/pagerag/pkg/utils/test"
	"github.com/papercomputeco/pagerag/pkg/vector"
	"github.com/papercomputeco/pagerag/pkg/vector/inmemory"
)

const page = "Cats purr when content. Dogs bark at strangers. Fish swim in schools."

// trackingDriver records Close on top of the in-memory driver.
type trackingDriver struct {
	*inmemory.Driver
	closed bool
}

func (t *trackingDriver) Close() error {
	t.closed = true
	return t.Driver.Close()
}

var _ = Describe("Pipeline", func() {
	var (
		ctx       context.Context
		load      *testutils.MockLoader
		split     *splitter.Splitter
		embedder  *testutils.MockEmbedder
		driver    *trackingDriver
		generator *testutils.MockGenerator
		steps     []pipeline.State
		cfg       pipeline.Config
	)

	BeforeEach(func() {
		ctx = context.Background()
		load = testutils.NewMockLoader(page)

		var err error
		split, err = splitter.New(splitter.Config{ChunkSize: 24, ChunkOverlap: 0})
		Expect(err).NotTo(HaveOccurred())

		embedder = testutils.NewMockEmbedder()
		embedder.Default = []float32{0, 0, 1}
		driver = &trackingDriver{Driver: inmemory.NewDriver(inmemory.Config{}, nil)}
		generator = testutils.NewMockGenerator("They purr.")
		steps = nil

		cfg = pipeline.Config{
			Loader:       load,
			Splitter:     split,
			Embedder:     embedder,
			VectorDriver: driver,
			Generator:    generator,
			TopK:         1,
			Logger:       logger.Nop(),
			Stepper: func(s pipeline.State, fn func() error) error {
				steps = append(steps, s)
				return fn()
			},
		}
	})

	newPipeline := func() *pipeline.Pipeline {
		p, err := pipeline.New(cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.State()).To(Equal(pipeline.StateLoad))
		return p
	}

	Describe("New", func() {
		DescribeTable("requires every collaborator",
			func(mutate func(*pipeline.Config), msg string) {
				mutate(&cfg)
				_, err := pipeline.New(cfg)
				Expect(err).To(MatchError(ContainSubstring(msg)))
			},
			Entry("loader", func(c *pipeline.Config) { c.Loader = nil }, "loader is required"),
			Entry("splitter", func(c *pipeline.Config) { c.Splitter = nil }, "splitter is required"),
			Entry("embedder", func(c *pipeline.Config) { c.Embedder = nil }, "embedder is required"),
			Entry("vector driver", func(c *pipeline.Config) { c.VectorDriver = nil }, "vector driver is required"),
			Entry("generator", func(c *pipeline.Config) { c.Generator = nil }, "generator is required"),
		)

		It("rejects a negative top k", func() {
			cfg.TopK = -1
			_, err := pipeline.New(cfg)
			Expect(err).To(MatchError(vector.ErrInvalidTopK))
		})

		It("fills in defaults", func() {
			cfg.TopK = 0
			cfg.Template = nil
			cfg.Stepper = nil
			cfg.Logger = nil
			p := newPipeline()

			_, err := p.Run(ctx, "what do cats do?")
			Expect(err).NotTo(HaveOccurred())
			Expect(generator.Prompts[0]).To(HavePrefix("Answer the user's question from the following context:\n"))
		})
	})

	Describe("Run", func() {
		It("answers from the closest chunk", func() {
			embedder.Embeddings["Cats purr when content. "] = []float32{1, 0, 0}
			embedder.Embeddings["what do cats do?"] = []float32{1, 0.1, 0}

			res, err := newPipeline().Run(ctx, "what do cats do?")
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Answer).To(Equal("They purr."))
			Expect(res.Model).To(Equal("mock-model"))
			Expect(res.Documents).To(Equal(1))
			Expect(res.Chunks).To(Equal(3))
			Expect(res.Sources).To(HaveLen(1))
			Expect(res.Sources[0].Chunk.Text).To(Equal("Cats purr when content. "))

			Expect(generator.Prompts).To(HaveLen(1))
			Expect(generator.Prompts[0]).To(ContainSubstring("Cats purr when content."))
			Expect(generator.Prompts[0]).NotTo(ContainSubstring("Dogs bark"))
			Expect(generator.Prompts[0]).To(HaveSuffix("Question: what do cats do?"))
		})

		It("visits every stage in order", func() {
			p := newPipeline()
			_, err := p.Run(ctx, "q")
			Expect(err).NotTo(HaveOccurred())
			Expect(steps).To(Equal([]pipeline.State{
				pipeline.StateLoad,
				pipeline.StateSplit,
				pipeline.StateEmbedAndIndex,
				pipeline.StateRetrieve,
				pipeline.StateGenerate,
			}))
			Expect(p.State()).To(Equal(pipeline.StateDone))
		})

		It("embeds chunks before the question", func() {
			_, err := newPipeline().Run(ctx, "the question")
			Expect(err).NotTo(HaveOccurred())
			calls := embedder.Calls()
			Expect(calls).To(HaveLen(4))
			Expect(calls[3]).To(Equal("the question"))
		})

		It("composes with a custom template", func() {
			cfg.Template = prompt.Must("CTX<{context}> Q<{input}>")
			cfg.TopK = 2
			_, err := newPipeline().Run(ctx, "q")
			Expect(err).NotTo(HaveOccurred())
			Expect(generator.Prompts[0]).To(MatchRegexp(`^CTX<.+\n\n.+> Q<q>$`))
		})

		It("closes the vector driver", func() {
			_, err := newPipeline().Run(ctx, "q")
			Expect(err).NotTo(HaveOccurred())
			Expect(driver.closed).To(BeTrue())
		})

		It("runs only once", func() {
			p := newPipeline()
			_, err := p.Run(ctx, "q")
			Expect(err).NotTo(HaveOccurred())
			_, err = p.Run(ctx, "q")
			Expect(err).To(MatchError(ContainSubstring("already ran")))
		})
	})

	Describe("logging", func() {
		var buf *bytes.Buffer

		BeforeEach(func() {
			buf = &bytes.Buffer{}
			cfg.Logger = logger.New(
				logger.WithWriter(buf),
				logger.WithFormat(logger.FormatJSON),
				logger.WithDebug(true),
			)
		})

		records := func() []map[string]any {
			var out []map[string]any
			for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
				var rec map[string]any
				Expect(json.Unmarshal([]byte(line), &rec)).To(Succeed())
				out = append(out, rec)
			}
			return out
		}

		It("tags stage records with the stage name", func() {
			_, err := newPipeline().Run(ctx, "q")
			Expect(err).NotTo(HaveOccurred())

			var finished []any
			for _, rec := range records() {
				if rec["msg"] == "stage finished" {
					finished = append(finished, rec[logger.StageKey])
				}
			}
			Expect(finished).To(Equal([]any{"load", "split", "embed_and_index", "retrieve", "generate"}))
		})

		It("tags index records with the run ID", func() {
			_, err := newPipeline().Run(ctx, "q")
			Expect(err).NotTo(HaveOccurred())

			var built map[string]any
			for _, rec := range records() {
				if rec["msg"] == "built vector index" {
					built = rec
				}
			}
			Expect(built).NotTo(BeNil())
			Expect(built[logger.RunKey]).NotTo(BeEmpty())
			Expect(built["entries"]).To(BeNumerically("==", 3))
		})

		It("logs the failing stage", func() {
			load.Err = loader.ErrFetch
			_, err := newPipeline().Run(ctx, "q")
			Expect(err).To(HaveOccurred())

			last := records()[len(records())-1]
			Expect(last["msg"]).To(Equal("stage failed"))
			Expect(last[logger.StageKey]).To(Equal("load"))
		})
	})

	Describe("failures", func() {
		It("stops after a failed load", func() {
			load.Err = errors.New("connection refused")
			p := newPipeline()

			_, err := p.Run(ctx, "q")
			Expect(err).To(MatchError(loader.ErrFetch))
			Expect(err.Error()).To(HavePrefix("load: "))
			Expect(p.State()).To(Equal(pipeline.StateFailed))
			Expect(steps).To(Equal([]pipeline.State{pipeline.StateLoad}))
			Expect(embedder.Calls()).To(BeEmpty())
			Expect(generator.Prompts).To(BeEmpty())
			Expect(driver.closed).To(BeTrue())
		})

		It("reports a blank page without calling any service", func() {
			load = testutils.NewMockLoader("   \n\t  ")
			cfg.Loader = load
			p := newPipeline()

			_, err := p.Run(ctx, "q")
			Expect(err).To(MatchError(splitter.ErrNoContent))
			Expect(p.State()).To(Equal(pipeline.StateFailed))
			Expect(steps).To(Equal([]pipeline.State{pipeline.StateLoad, pipeline.StateSplit}))
			Expect(embedder.Calls()).To(BeEmpty())
			Expect(generator.Prompts).To(BeEmpty())
		})

		It("reports a page with no documents as no content", func() {
			load = testutils.NewMockLoader()
			cfg.Loader = load
			_, err := newPipeline().Run(ctx, "q")
			Expect(err).To(MatchError(splitter.ErrNoContent))
		})

		It("stops after a failed embedding", func() {
			embedder.FailOn = "Dogs bark at strangers. "
			p := newPipeline()

			_, err := p.Run(ctx, "q")
			Expect(err).To(MatchError(embeddings.ErrEmbedding))
			Expect(err.Error()).To(HavePrefix("embed_and_index: "))
			Expect(p.State()).To(Equal(pipeline.StateFailed))
			Expect(driver.Size()).To(Equal(0))
			Expect(generator.Prompts).To(BeEmpty())
		})

		It("stops after a failed question embedding", func() {
			embedder.FailOn = "q"
			_, err := newPipeline().Run(ctx, "q")
			Expect(err).To(MatchError(embeddings.ErrEmbedding))
			Expect(err.Error()).To(HavePrefix("retrieve: "))
			Expect(generator.Prompts).To(BeEmpty())
		})

		It("wraps generation failures", func() {
			generator.Err = errors.New("401 unauthorized")
			p := newPipeline()

			_, err := p.Run(ctx, "q")
			Expect(err).To(MatchError(generation.ErrGeneration))
			Expect(err.Error()).To(HavePrefix("generate: "))
			Expect(strings.Count(err.Error(), generation.ErrGeneration.Error())).To(Equal(1))
			Expect(p.State()).To(Equal(pipeline.StateFailed))
		})

		It("returns the stepper's error", func() {
			cfg.Stepper = func(s pipeline.State, fn func() error) error {
				if err := fn(); err != nil {
					return err
				}
				if s == pipeline.StateSplit {
					return context.Canceled
				}
				return nil
			}
			p := newPipeline()
			_, err := p.Run(ctx, "q")
			Expect(err).To(MatchError(context.Canceled))
			Expect(embedder.Calls()).To(BeEmpty())
		})
	})
})

var _ = Describe("State", func() {
	DescribeTable("String",
		func(s pipeline.State, name string) {
			Expect(s.String()).To(Equal(name))
		},
		Entry(nil, pipeline.StateLoad, "load"),
		Entry(nil, pipeline.StateSplit, "split"),
		Entry(nil, pipeline.StateEmbedAndIndex, "embed_and_index"),
		Entry(nil, pipeline.StateRetrieve, "retrieve"),
		Entry(nil, pipeline.StateGenerate, "generate"),
		Entry(nil, pipeline.StateDone, "done"),
		Entry(nil, pipeline.StateFailed, "failed"),
		Entry(nil, pipeline.State(42), "state(42)"),
	)
})
