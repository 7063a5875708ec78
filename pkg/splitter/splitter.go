// Package splitter cuts document text into fixed size, overlapping windows
// suitable for embedding.
//
// Windows are measured in runes, not bytes. Two consecutive windows of the same
// document always share exactly ChunkOverlap runes: the last ChunkOverlap runes
// of one window are the first ChunkOverlap runes of the next. Dropping that
// shared prefix from every window but the first and concatenating the rest
// yields the original text.
package splitter

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/papercomputeco/pagerag/pkg/document"
)

const (
	// DefaultChunkSize is the maximum window length in runes.
	DefaultChunkSize = 200

	// DefaultChunkOverlap is the number of runes shared by neighbouring windows.
	DefaultChunkOverlap = 50
)

// Config holds the splitter settings.
type Config struct {
	// ChunkSize is the maximum number of runes in a window. Must be positive.
	ChunkSize int

	// ChunkOverlap is the number of runes shared by consecutive windows.
	// Must satisfy 0 <= ChunkOverlap < ChunkSize.
	ChunkOverlap int

	// WordBoundary moves a window end back to just after the last whitespace
	// rune, when one exists past the overlap region, so words are not cut in
	// half. Overlap stays exact either way.
	WordBoundary bool
}

// Window is a single span of text, in rune offsets [Start, End).
type Window struct {
	Start int
	End   int
	Text  string
}

// Splitter splits text into overlapping windows.
type Splitter struct {
	size         int
	overlap      int
	wordBoundary bool
}

// New validates c and returns a Splitter.
func New(c Config) (*Splitter, error) {
	if c.ChunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidConfig, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return nil, fmt.Errorf("%w: chunk overlap must be in [0, %d), got %d", ErrInvalidConfig, c.ChunkSize, c.ChunkOverlap)
	}

	return &Splitter{
		size:         c.ChunkSize,
		overlap:      c.ChunkOverlap,
		wordBoundary: c.WordBoundary,
	}, nil
}

// Split returns the ordered windows covering text. Empty text yields no windows.
func (s *Splitter) Split(text string) []Window {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	var windows []Window
	start := 0
	for {
		end := min(start+s.size, n)
		if end < n && s.wordBoundary {
			end = s.snap(runes, start, end)
		}

		windows = append(windows, Window{
			Start: start,
			End:   end,
			Text:  string(runes[start:end]),
		})

		if end == n {
			return windows
		}

		// end > start+overlap always holds here, so start strictly advances.
		start = end - s.overlap
	}
}

// snap looks for the last whitespace rune in (start+overlap, end] and returns
// the offset just past it. The hard cut is kept when there is none.
func (s *Splitter) snap(runes []rune, start, end int) int {
	for i := end; i > start+s.overlap; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return end
}

// SplitDocuments splits every document and keeps the non blank windows as
// chunks, in document order. ErrNoContent is returned when docs is empty or
// when nothing but whitespace was loaded.
func (s *Splitter) SplitDocuments(docs []document.Document) ([]document.Chunk, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no documents were loaded", ErrNoContent)
	}

	var chunks []document.Chunk
	for docIdx, doc := range docs {
		idx := 0
		for _, w := range s.Split(doc.Text) {
			if strings.TrimSpace(w.Text) == "" {
				continue
			}

			chunks = append(chunks, document.Chunk{
				Text:     w.Text,
				Source:   doc.Source,
				DocIndex: docIdx,
				Index:    idx,
				Offset:   w.Start,
			})
			idx++
		}
	}

	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: every chunk was empty after trimming", ErrNoContent)
	}

	return chunks, nil
}

// ChunkSize returns the configured maximum window length.
func (s *Splitter) ChunkSize() int {
	return s.size
}

// ChunkOverlap returns the configured overlap length.
func (s *Splitter) ChunkOverlap() int {
	return s.overlap
}
