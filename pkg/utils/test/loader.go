package testutils

import (
	"context"

	"github.com/papercomputeco/pagerag/pkg/document"
)

// MockLoader returns fixed documents, or Err.
type MockLoader struct {
	Docs []document.Document
	Err  error

	Calls int
}

// NewMockLoader returns a loader yielding one document per text.
func NewMockLoader(texts ...string) *MockLoader {
	docs := make([]document.Document, len(texts))
	for i, t := range texts {
		docs[i] = document.Document{Text: t, Source: "https://example.com/page"}
	}
	return &MockLoader{Docs: docs}
}

func (m *MockLoader) Load(_ context.Context) ([]document.Document, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Docs, nil
}
