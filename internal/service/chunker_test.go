package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkText_Empty(t *testing.T) {
	assert.Empty(t, ChunkText("", 100))
	assert.Empty(t, ChunkText("   \n\t  ", 100))
}

func TestChunkText_SingleShortSentence(t *testing.T) {
	chunks := ChunkText("Hello there.", 100)
	require.Len(t, chunks, 1)
	assert.Equal(t, "Hello there.", chunks[0])
}

func TestChunkText_GreedyAccumulation(t *testing.T) {
	// Two short sentences fit one chunk, the third forces a flush.
	chunks := ChunkText("One. Two. A much longer third sentence here.", 12)

	require.Len(t, chunks, 2)
	assert.Equal(t, "One. Two.", chunks[0])
	assert.Equal(t, "A much longer third sentence here.", chunks[1])
}

func TestChunkText_SpecScenario(t *testing.T) {
	chunks := ChunkText("Sentence one. Sentence two. Sentence three.", 15)

	require.Len(t, chunks, 3)
	assert.Equal(t, "Sentence one.", chunks[0])
	assert.Equal(t, "Sentence two.", chunks[1])
	assert.Equal(t, "Sentence three.", chunks[2])
}

func TestChunkText_Deterministic(t *testing.T) {
	text := "Alpha beta gamma. Delta epsilon! Zeta eta theta? Iota kappa."
	first := ChunkText(text, 25)
	second := ChunkText(text, 25)
	assert.Equal(t, first, second)
}

func TestChunkText_SizeBound(t *testing.T) {
	text := strings.Repeat("Short sentence here. ", 40)
	chunks := ChunkText(text, 100)

	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), 100)
	}
}

func TestChunkText_OversizedSentenceEmittedWhole(t *testing.T) {
	long := strings.Repeat("word ", 50) + "end."
	chunks := ChunkText("Tiny. "+long+" Tail.", 30)

	require.Len(t, chunks, 3)
	assert.Equal(t, "Tiny.", chunks[0])
	assert.Greater(t, len(chunks[1]), 30)
	assert.Contains(t, chunks[1], "end.")
	assert.Equal(t, "Tail.", chunks[2])
}

func TestChunkText_NoEmptyChunks(t *testing.T) {
	chunks := ChunkText("... !!! ??? Actual content here.", 20)
	for _, c := range chunks {
		assert.NotEmpty(t, strings.TrimSpace(c))
	}
}

func TestChunkText_NoTerminalPunctuation(t *testing.T) {
	chunks := ChunkText("a trailing fragment without punctuation", 100)
	require.Len(t, chunks, 1)
	assert.Equal(t, "a trailing fragment without punctuation", chunks[0])
}

func TestChunkText_MultibyteRunes(t *testing.T) {
	text := strings.Repeat("héllö wörld. ", 10)
	chunks := ChunkText(text, 40)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), 40)
	}
}
