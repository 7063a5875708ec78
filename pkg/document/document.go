// Package document holds the text types that flow between the loader,
// the splitter and the vector index.
package document

// Document is a unit of loaded text along with where it came from.
// Documents are never mutated after a loader returns them.
type Document struct {
	// Text is the raw extracted text content.
	Text string

	// Source identifies the origin of the document (e.g. the page URL).
	Source string

	// Metadata carries loader specific attributes such as "title".
	Metadata map[string]string
}

// Chunk is a bounded window of a Document's text.
type Chunk struct {
	// Text is the window content. It is stored untrimmed so that overlap
	// with the neighbouring chunk is exact, but it is never blank.
	Text string

	// Source is copied from the originating Document.
	Source string

	// DocIndex is the position of the originating Document in the loaded set.
	DocIndex int

	// Index is the ordinal of this chunk within its Document.
	Index int

	// Offset is the rune offset of the chunk start within the Document text.
	Offset int
}
