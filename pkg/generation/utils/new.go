// Package generationutils is the generation utility package
package generationutils

import (
	"fmt"
	"log/slog"

	"github.com/papercomputeco/pagerag/pkg/generation"
	"github.com/papercomputeco/pagerag/pkg/generation/ollama"
	"github.com/papercomputeco/pagerag/pkg/generation/openai"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// NewGeneratorOpts carries the credential, service endpoint and model name for
// whichever provider is selected. Empty fields fall back to provider defaults.
type NewGeneratorOpts struct {
	ProviderType string
	BaseURL      string
	Model        string
	APIKey       string
	Temperature  *float64
	Logger       *slog.Logger
}

func NewGenerator(o *NewGeneratorOpts) (generation.Generator, error) {
	switch o.ProviderType {
	case ProviderOpenAI:
		return openai.NewGenerator(openai.Config{
			APIKey:      o.APIKey,
			BaseURL:     o.BaseURL,
			Model:       o.Model,
			Temperature: o.Temperature,
		}, o.Logger)
	case ProviderOllama:
		return ollama.NewGenerator(ollama.Config{
			BaseURL:     o.BaseURL,
			Model:       o.Model,
			Temperature: o.Temperature,
		}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported generation provider: %s", o.ProviderType)
	}
}

// SupportedProviders lists the provider names NewGenerator accepts.
func SupportedProviders() []string {
	return []string{ProviderOpenAI, ProviderOllama}
}
