package testutils

import (
	"context"

	"github.com/papercomputeco/pagerag/pkg/generation"
)

// MockGenerator records prompts and returns a fixed answer, or Err.
type MockGenerator struct {
	Answer string
	Model  string
	Err    error

	Prompts []string
	Closed  bool
}

func NewMockGenerator(answer string) *MockGenerator {
	return &MockGenerator{Answer: answer, Model: "mock-model"}
}

func (m *MockGenerator) Generate(_ context.Context, prompt string) (*generation.Answer, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return nil, m.Err
	}
	return &generation.Answer{Text: m.Answer, Model: m.Model}, nil
}

func (m *MockGenerator) Close() error {
	m.Closed = true
	return nil
}
