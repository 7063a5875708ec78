// Package prompt merges retrieved context and a question into the single
// message sent to the generation model.
package prompt

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// ContextPlaceholder is replaced with the joined chunk texts.
	ContextPlaceholder = "{context}"

	// InputPlaceholder is replaced with the user's question.
	InputPlaceholder = "{input}"

	// DefaultTemplate instructs the model to answer from the retrieved context.
	DefaultTemplate = `Answer the user's question from the following context:
{context}
Question: {input}`

	// Separator goes between consecutive chunk texts in the context block.
	Separator = "\n\n"
)

// ErrMissingPlaceholder is returned when a template lacks {context} or {input}.
var ErrMissingPlaceholder = errors.New("prompt template is missing a placeholder")

// Template is a validated prompt template.
type Template struct {
	raw string
}

// Parse validates that tmpl contains both placeholders.
func Parse(tmpl string) (*Template, error) {
	var missing []string
	for _, p := range []string{ContextPlaceholder, InputPlaceholder} {
		if !strings.Contains(tmpl, p) {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingPlaceholder, strings.Join(missing, ", "))
	}

	return &Template{raw: tmpl}, nil
}

// Must is like Parse but panics on error. For templates fixed at compile time.
func Must(tmpl string) *Template {
	t, err := Parse(tmpl)
	if err != nil {
		panic(err)
	}
	return t
}

// Default returns the parsed DefaultTemplate.
func Default() *Template {
	return Must(DefaultTemplate)
}

// Compose joins contexts in the given order and substitutes both
// placeholders. Placeholders that appear inside the substituted values are
// left alone.
func (t *Template) Compose(contexts []string, question string) string {
	r := strings.NewReplacer(
		ContextPlaceholder, strings.Join(contexts, Separator),
		InputPlaceholder, question,
	)
	return r.Replace(t.raw)
}

// String returns the raw template.
func (t *Template) String() string {
	return t.raw
}
