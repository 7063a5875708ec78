// Package generation defines the capability that turns a composed prompt into
// a natural language answer.
package generation

import (
	"context"
	"errors"
)

// ErrGeneration is returned when the generation service fails.
var ErrGeneration = errors.New("generation failed")

// Answer is the model's reply to a prompt.
type Answer struct {
	// Text is the generated answer.
	Text string

	// Model is the model that produced the answer, as reported by the service.
	Model string

	// PromptTokens and CompletionTokens are zero when the service does not
	// report usage.
	PromptTokens     int64
	CompletionTokens int64
}

// Generator produces an answer from a single user prompt.
type Generator interface {
	// Generate sends prompt as one user message and returns the reply.
	Generate(ctx context.Context, prompt string) (*Answer, error)

	// Close releases any resources held by the generator.
	Close() error
}
