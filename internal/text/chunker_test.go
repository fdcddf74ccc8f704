package text

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChunker_RejectsBadConfig(t *testing.T) {
	cases := []struct {
		name    string
		size    int
		overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -1, 0},
		{"overlap equals size", 4, 4},
		{"overlap exceeds size", 4, 5},
		{"negative overlap", 4, -1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewChunker(tc.size, tc.overlap)
			assert.ErrorIs(t, err, ErrInvalidChunking)
		})
	}
}

func TestSplit_ExactBoundaries(t *testing.T) {
	c, err := NewChunker(4, 1)
	require.NoError(t, err)

	chunks := c.Split("abcdefghij")
	require.Len(t, chunks, 4)

	assert.Equal(t, Chunk{Index: 0, CharStart: 0, Text: "abcd"}, chunks[0])
	assert.Equal(t, Chunk{Index: 1, CharStart: 3, Text: "defg"}, chunks[1])
	assert.Equal(t, Chunk{Index: 2, CharStart: 6, Text: "ghij"}, chunks[2])
	assert.Equal(t, Chunk{Index: 3, CharStart: 9, Text: "j"}, chunks[3])
}

func TestSplit_EmptyContent(t *testing.T) {
	c, err := NewChunker(1000, 100)
	require.NoError(t, err)
	assert.Empty(t, c.Split(""))
}

func TestSplit_ShortContentSingleChunk(t *testing.T) {
	c, err := NewChunker(1000, 100)
	require.NoError(t, err)

	chunks := c.Split("short note")
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].CharStart)
	assert.Equal(t, "short note", chunks[0].Text)
}

func TestSplit_FullCoverage(t *testing.T) {
	c, err := NewChunker(100, 20)
	require.NoError(t, err)

	content := strings.Repeat("x", 1234)
	chunks := c.Split(content)

	// Every byte of content is covered by at least one window, stride is
	// constant, and indexes are dense.
	covered := 0
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
		assert.Equal(t, i*(100-20), ch.CharStart)
		if ch.CharStart+len(ch.Text) > covered {
			covered = ch.CharStart + len(ch.Text)
		}
	}
	assert.Equal(t, len(content), covered)

	// Reassembling by stripping each chunk's overlap prefix gives the input back.
	var b strings.Builder
	for i, ch := range chunks {
		if i == 0 {
			b.WriteString(ch.Text)
			continue
		}
		prev := chunks[i-1]
		overlapLen := prev.CharStart + len(prev.Text) - ch.CharStart
		if overlapLen > len(ch.Text) {
			overlapLen = len(ch.Text)
		}
		b.WriteString(ch.Text[overlapLen:])
	}
	assert.Equal(t, content, b.String())
}
