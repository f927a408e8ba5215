package policy

import "strings"

// minChunkChars filters out fragments too short to carry a criteria statement.
const minChunkChars = 50

// Span is a bounded slice of a document's text with its rune offsets.
type Span struct {
	Start int
	End   int
	Text  string
}

// Chunker splits policy text into overlapping spans. The overlap keeps
// criteria statements from being cut across chunk boundaries.
type Chunker struct {
	Size    int
	Overlap int
}

func NewChunker(size, overlap int) Chunker {
	if size <= 0 {
		size = 400
	}
	if overlap < 0 || overlap >= size {
		overlap = 50
	}
	return Chunker{Size: size, Overlap: overlap}
}

func (c Chunker) Split(text string) []Span {
	runes := []rune(text)
	step := c.Size - c.Overlap

	var spans []Span
	for i := 0; i < len(runes); i += step {
		end := i + c.Size
		if end > len(runes) {
			end = len(runes)
		}
		chunk := string(runes[i:end])
		if len(strings.TrimSpace(chunk)) > minChunkChars {
			spans = append(spans, Span{Start: i, End: end, Text: chunk})
		}
		if end == len(runes) {
			break
		}
	}
	return spans
}
