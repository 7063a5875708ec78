package testutils

import (
	"context"

	"github.com/papercomputeco/pagerag/pkg/vector"
)

// MockVectorDriver records what it is given and returns canned results.
type MockVectorDriver struct {
	Documents []vector.Document
	Results   []vector.QueryResult

	// AddErr and CloseErr are returned from Add and Close when set.
	AddErr   error
	CloseErr error

	Queries int
	Closed  bool
}

func NewMockVectorDriver() *MockVectorDriver {
	return &MockVectorDriver{}
}

func (m *MockVectorDriver) Add(_ context.Context, docs []vector.Document) error {
	if m.AddErr != nil {
		return m.AddErr
	}
	m.Documents = append(m.Documents, docs...)
	return nil
}

func (m *MockVectorDriver) Query(_ context.Context, _ []float32, topK int) ([]vector.QueryResult, error) {
	m.Queries++
	if topK <= 0 {
		return nil, vector.ErrInvalidTopK
	}
	if len(m.Results) < topK {
		return m.Results, nil
	}
	return m.Results[:topK], nil
}

func (m *MockVectorDriver) Size() int {
	return len(m.Documents)
}

func (m *MockVectorDriver) Close() error {
	m.Closed = true
	return m.CloseErr
}
