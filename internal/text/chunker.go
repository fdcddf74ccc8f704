package text

import (
	"errors"
	"fmt"
)

// ErrInvalidChunking is returned when the window configuration could never
// terminate or would produce empty windows.
var ErrInvalidChunking = errors.New("invalid chunking configuration")

// Chunk is one window of a larger text. CharStart is the byte offset of the
// window within the original content; Index is its position in the sequence.
type Chunk struct {
	Index     int
	CharStart int
	Text      string
}

// Chunker splits text into overlapping fixed-size windows. Window i spans
// [i*(size-overlap), i*(size-overlap)+size); the last window may be shorter.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker validates the window configuration up front. An overlap equal to
// or larger than the size would make the window stride non-positive and the
// split would never terminate, so it is rejected here instead of clamped.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size %d must be positive", ErrInvalidChunking, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap %d must be in [0, %d)", ErrInvalidChunking, overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

func (c *Chunker) Size() int    { return c.size }
func (c *Chunker) Overlap() int { return c.overlap }

// Split produces the ordered chunk sequence for content. Empty content yields
// no chunks. The windows cover the whole content: each chunk starts exactly
// size-overlap bytes after the previous one.
func (c *Chunker) Split(content string) []Chunk {
	if content == "" {
		return nil
	}

	stride := c.size - c.overlap
	var chunks []Chunk
	for start, i := 0, 0; start < len(content); start, i = start+stride, i+1 {
		end := start + c.size
		if end > len(content) {
			end = len(content)
		}
		chunks = append(chunks, Chunk{
			Index:     i,
			CharStart: start,
			Text:      content[start:end],
		})
	}
	return chunks
}
