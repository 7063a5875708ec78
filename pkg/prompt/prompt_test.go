package prompt_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/pagerag/pkg/prompt"
)

var _ = Describe("Template", func() {
	Describe("Parse", func() {
		It("accepts a template with both placeholders", func() {
			t, err := prompt.Parse("Q: {input}\nC: {context}")
			Expect(err).NotTo(HaveOccurred())
			Expect(t.String()).To(Equal("Q: {input}\nC: {context}"))
		})

		It("names a missing placeholder", func() {
			_, err := prompt.Parse("Context: {context}")
			Expect(err).To(MatchError(prompt.ErrMissingPlaceholder))
			Expect(err.Error()).To(ContainSubstring("{input}"))
		})

		It("names both placeholders when neither is present", func() {
			_, err := prompt.Parse("just answer")
			Expect(err).To(MatchError(ContainSubstring("{context}, {input}")))
		})

		It("panics from Must on an invalid template", func() {
			Expect(func() { prompt.Must("{input}") }).To(Panic())
		})
	})

	Describe("Compose", func() {
		It("fills the default template", func() {
			out := prompt.Default().Compose([]string{"A", "B"}, "why?")
			Expect(out).To(Equal("Answer the user's question from the following context:\nA\n\nB\nQuestion: why?"))
		})

		It("keeps the order of the contexts", func() {
			t := prompt.Must("{context}|{input}")
			Expect(t.Compose([]string{"3", "1", "2"}, "q")).To(Equal("3\n\n1\n\n2|q"))
		})

		It("substitutes an empty context block", func() {
			t := prompt.Must("[{context}] {input}")
			Expect(t.Compose(nil, "q")).To(Equal("[] q"))
		})

		It("replaces every occurrence", func() {
			t := prompt.Must("{input} / {context} / {input}")
			Expect(t.Compose([]string{"c"}, "q")).To(Equal("q / c / q"))
		})

		It("does not expand placeholders inside substituted values", func() {
			t := prompt.Must("{context} :: {input}")
			out := t.Compose([]string{"page says {input}"}, "asked about {context}")
			Expect(out).To(Equal("page says {input} :: asked about {context}"))
		})
	})
})
