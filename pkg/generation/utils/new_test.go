package generationutils_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/pagerag/pkg/generation/ollama"
	"github.com/papercomputeco/pagerag/pkg/generation/openai"
	generationutils "github.com/papercomputeco/pagerag/pkg/generation/utils"
)

var _ = Describe("NewGenerator", func() {
	It("builds an OpenAI compatible generator", func() {
		g, err := generationutils.NewGenerator(&generationutils.NewGeneratorOpts{
			ProviderType: generationutils.ProviderOpenAI,
			APIKey:       "key",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(g).To(BeAssignableToTypeOf(&openai.Generator{}))
	})

	It("builds an Ollama generator", func() {
		g, err := generationutils.NewGenerator(&generationutils.NewGeneratorOpts{
			ProviderType: generationutils.ProviderOllama,
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(g).To(BeAssignableToTypeOf(&ollama.Generator{}))
	})

	It("rejects unknown providers", func() {
		_, err := generationutils.NewGenerator(&generationutils.NewGeneratorOpts{ProviderType: "anthropic"})
		Expect(err).To(MatchError("unsupported generation provider: anthropic"))
	})

	It("lists supported providers", func() {
		Expect(generationutils.SupportedProviders()).To(ConsistOf("openai", "ollama"))
	})
})
