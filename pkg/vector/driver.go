// Package vector provides the storage side of the retrieval index: a Driver
// interface and the distance used to rank entries.
package vector

import (
	"context"

	"github.com/papercomputeco/pagerag/pkg/document"
)

// Document is an index entry: a chunk and its embedding.
type Document struct {
	// ID is unique within one index.
	ID string

	// Chunk is the text the embedding was computed from.
	Chunk document.Chunk

	// Embedding is the vector representation of Chunk.Text.
	Embedding []float32
}

// QueryResult is a ranked index entry.
type QueryResult struct {
	Document

	// Distance is the cosine distance (1 - cosine similarity) to the query.
	// Lower is closer.
	Distance float32

	// Score is 1 - Distance, so higher is more similar.
	Score float32
}

// Driver handles storage and retrieval of vector embeddings.
//
// Query results are ordered by non-decreasing Distance. Entries at equal
// distance keep the order in which they were added. topK larger than the
// number of stored entries returns all of them.
type Driver interface {
	// Add stores documents with their embeddings, in order.
	Add(ctx context.Context, docs []Document) error

	// Query finds the topK closest documents to the given embedding.
	Query(ctx context.Context, embedding []float32, topK int) ([]QueryResult, error)

	// Size returns the number of stored documents.
	Size() int

	// Close releases any resources held by the driver.
	Close() error
}
