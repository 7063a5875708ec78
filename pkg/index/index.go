// Package index builds the retrieval index for one run: every chunk is
// embedded, in order, and stored in a vector.Driver which then answers
// nearest neighbour queries.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/papercomputeco/pagerag/pkg/document"
	"github.com/papercomputeco/pagerag/pkg/embeddings"
	"github.com/papercomputeco/pagerag/pkg/logger"
	"github.com/papercomputeco/pagerag/pkg/splitter"
	"github.com/papercomputeco/pagerag/pkg/vector"
)

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 5

// Index is a built, read-only set of embedded chunks.
type Index struct {
	runID    string
	embedder embeddings.Embedder
	driver   vector.Driver
	logger   *slog.Logger
}

// Build embeds chunks one at a time, in order, and adds all of them to driver
// in a single call once every embedding has succeeded. If any embedding fails
// the driver is left untouched and the error wraps embeddings.ErrEmbedding.
func Build(
	ctx context.Context,
	chunks []document.Chunk,
	embedder embeddings.Embedder,
	driver vector.Driver,
	log *slog.Logger,
) (*Index, error) {
	if log == nil {
		log = logger.Nop()
	}

	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: nothing to index", splitter.ErrNoContent)
	}

	runID := uuid.NewString()
	log = logger.ForRun(log, runID)
	docs := make([]vector.Document, 0, len(chunks))

	for i, chunk := range chunks {
		emb, err := embedder.Embed(ctx, chunk.Text)
		if err != nil {
			return nil, wrapEmbedding(fmt.Errorf("chunk %d of %d: %w", i+1, len(chunks), err))
		}

		docs = append(docs, vector.Document{
			ID:        runID + "-" + strconv.Itoa(i),
			Chunk:     chunk,
			Embedding: emb,
		})
	}

	if err := driver.Add(ctx, docs); err != nil {
		return nil, fmt.Errorf("storing embeddings: %w", err)
	}

	log.Debug("built vector index",
		"entries", len(docs),
		"dimensions", len(docs[0].Embedding),
	)

	return &Index{
		runID:    runID,
		embedder: embedder,
		driver:   driver,
		logger:   log,
	}, nil
}

// Retrieve returns the k entries closest to queryEmbedding, closest first,
// with ties in insertion order. k larger than the index returns everything.
func (x *Index) Retrieve(ctx context.Context, queryEmbedding []float32, k int) ([]vector.QueryResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", vector.ErrInvalidTopK, k)
	}

	k = min(k, x.driver.Size())
	if k == 0 {
		return []vector.QueryResult{}, nil
	}

	results, err := x.driver.Query(ctx, queryEmbedding, k)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}

	x.logger.Debug("retrieved chunks",
		"k", k,
		"results", len(results),
	)

	return results, nil
}

// Search embeds question and retrieves the k closest entries.
func (x *Index) Search(ctx context.Context, question string, k int) ([]vector.QueryResult, error) {
	emb, err := x.embedder.Embed(ctx, question)
	if err != nil {
		return nil, wrapEmbedding(fmt.Errorf("question: %w", err))
	}
	return x.Retrieve(ctx, emb, k)
}

// Size returns the number of entries in the index.
func (x *Index) Size() int {
	return x.driver.Size()
}

// RunID identifies the build; every entry ID is prefixed with it.
func (x *Index) RunID() string {
	return x.runID
}

// wrapEmbedding makes sure err matches embeddings.ErrEmbedding, whatever the
// embedder implementation returned.
func wrapEmbedding(err error) error {
	if errors.Is(err, embeddings.ErrEmbedding) {
		return err
	}
	return fmt.Errorf("%w: %w", embeddings.ErrEmbedding, err)
}
