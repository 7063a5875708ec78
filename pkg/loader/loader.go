// Package loader defines how documents enter the pipeline.
package loader

import (
	"context"
	"errors"

	"github.com/papercomputeco/pagerag/pkg/document"
)

// ErrFetch is returned when documents could not be retrieved.
var ErrFetch = errors.New("fetching documents failed")

// Loader fetches raw text documents from some source.
type Loader interface {
	// Load returns the documents in source order.
	Load(ctx context.Context) ([]document.Document, error)
}
