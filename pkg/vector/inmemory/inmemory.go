// Package inmemory provides a slice backed vector.Driver that ranks entries by
// exhaustive cosine distance.
package inmemory

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/papercomputeco/pagerag/pkg/vector"
)

// Driver implements vector.Driver in process memory.
type Driver struct {
	mu         sync.RWMutex
	docs       []vector.Document
	dimensions int
	logger     *slog.Logger
}

// Config holds configuration for the in-memory driver.
type Config struct {
	// Dimensions, when non zero, fixes the embedding size up front. Otherwise
	// the first added embedding decides it.
	Dimensions uint
}

// NewDriver creates an empty in-memory driver.
func NewDriver(c Config, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Driver{
		dimensions: int(c.Dimensions),
		logger:     logger,
	}
}

// Add appends docs in order. Nothing is stored if any embedding has the wrong
// dimensionality or an ID is already present.
func (d *Driver) Add(_ context.Context, docs []vector.Document) error {
	if len(docs) == 0 {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	dims := d.dimensions
	if dims == 0 {
		dims = len(docs[0].Embedding)
	}

	seen := make(map[string]struct{}, len(d.docs)+len(docs))
	for _, doc := range d.docs {
		seen[doc.ID] = struct{}{}
	}

	for _, doc := range docs {
		if len(doc.Embedding) == 0 || len(doc.Embedding) != dims {
			return fmt.Errorf("%w: document %s has %d dimensions, index has %d",
				vector.ErrDimensionMismatch, doc.ID, len(doc.Embedding), dims)
		}
		if _, dup := seen[doc.ID]; dup {
			return fmt.Errorf("document %s already exists", doc.ID)
		}
		seen[doc.ID] = struct{}{}
	}

	for _, doc := range docs {
		doc.Embedding = slices.Clone(doc.Embedding)
		d.docs = append(d.docs, doc)
	}
	d.dimensions = dims

	d.logger.Debug("added documents to memory store",
		"count", len(docs),
		"size", len(d.docs),
	)

	return nil
}

// Query ranks every stored document against embedding.
func (d *Driver) Query(_ context.Context, embedding []float32, topK int) ([]vector.QueryResult, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("%w: got %d", vector.ErrInvalidTopK, topK)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if len(d.docs) == 0 {
		return []vector.QueryResult{}, nil
	}
	if len(embedding) != d.dimensions {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			vector.ErrDimensionMismatch, len(embedding), d.dimensions)
	}

	ranked := make([]vector.RankedResult, len(d.docs))
	for i, doc := range d.docs {
		dist := vector.CosineDistance(embedding, doc.Embedding)
		doc.Embedding = slices.Clone(doc.Embedding)
		ranked[i] = vector.RankedResult{
			QueryResult: vector.QueryResult{
				Document: doc,
				Distance: dist,
				Score:    1 - dist,
			},
			Position: i,
		}
	}

	results := vector.SortResults(ranked, topK)

	d.logger.Debug("queried memory store",
		"top_k", topK,
		"results", len(results),
	)

	return results, nil
}

// Size returns the number of stored documents.
func (d *Driver) Size() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.docs)
}

// Close drops all stored documents.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.docs = nil
	return nil
}

// Ensure Driver implements vector.Driver
var _ vector.Driver = (*Driver)(nil)
