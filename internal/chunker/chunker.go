// Package chunker divides extracted document text into overlapping windows
// for embedding and search.
//
// Long documents rarely embed well as a single vector, so the chunker slides
// a fixed-size window over the text with an overlap between consecutive
// windows. Window boundaries snap back to whitespace where possible to avoid
// cutting words in half.
//
// # Basic Usage
//
//	c := chunker.New(1200, 200)
//	chunks := c.Split(docID, text)
package chunker

import (
	"strings"
	"unicode"

	"github.com/localseek/localseek/pkg/types"
)

const (
	// DefaultChunkSize is the target window size in runes.
	DefaultChunkSize = 1200

	// DefaultOverlap is the overlap between consecutive windows in runes.
	DefaultOverlap = 200

	// boundaryScan is how far a window end may retreat to find whitespace.
	boundaryScan = 120
)

// Chunker splits text into overlapping rune windows.
type Chunker struct {
	chunkSize int
	overlap   int
}

// New creates a Chunker. Non-positive or inconsistent arguments fall back to
// the defaults.
func New(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = DefaultOverlap
		if overlap >= chunkSize {
			overlap = chunkSize / 4
		}
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}
}

// Split divides text into chunks owned by docID. A document shorter than one
// window yields exactly one chunk. Empty or whitespace-only text yields none.
func (c *Chunker) Split(docID, text string) []types.Chunk {
	runes := []rune(text)
	if len(strings.TrimSpace(text)) == 0 {
		return nil
	}

	step := c.chunkSize - c.overlap
	chunks := make([]types.Chunk, 0, (len(runes)/step)+1)
	seq := 0

	for start := 0; start < len(runes); start += step {
		end := start + c.chunkSize
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = snapToWhitespace(runes, start, end)
		}

		content := strings.TrimSpace(string(runes[start:end]))
		if content != "" {
			chunks = append(chunks, types.Chunk{
				DocumentID: docID,
				Seq:        seq,
				Offset:     start,
				Content:    content,
			})
			seq++
		}

		if end == len(runes) {
			break
		}
	}

	return chunks
}

// snapToWhitespace retreats end to the nearest preceding whitespace rune so a
// window does not split a word. It never retreats past the window start or
// more than boundaryScan runes.
func snapToWhitespace(runes []rune, start, end int) int {
	limit := end - boundaryScan
	if limit < start+1 {
		limit = start + 1
	}
	for i := end; i > limit; i-- {
		if unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	return end
}
