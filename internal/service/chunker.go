package service

import "strings"

// DefaultMaxChunkChars bounds chunk length for embedding.
const DefaultMaxChunkChars = 1000

// ChunkText splits text into sentence-respecting chunks of at most maxChars
// runes. Sentences are never split: a single sentence longer than maxChars is
// emitted as its own oversized chunk rather than truncated. The function is
// pure and deterministic; ingestion relies on that for idempotent
// reprocessing.
func ChunkText(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChunkChars
	}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	chunks := make([]string, 0, 4)
	var buf strings.Builder
	bufRunes := 0

	flush := func() {
		if bufRunes > 0 {
			chunks = append(chunks, buf.String())
			buf.Reset()
			bufRunes = 0
		}
	}

	for _, sentence := range sentences {
		sentenceRunes := len([]rune(sentence))

		if bufRunes > 0 && bufRunes+1+sentenceRunes > maxChars {
			flush()
		}

		if bufRunes > 0 {
			buf.WriteByte(' ')
			bufRunes++
		}
		buf.WriteString(sentence)
		bufRunes += sentenceRunes
	}
	flush()

	return chunks
}

// splitSentences splits on sentence-terminal punctuation, keeping the
// terminator attached and dropping whitespace-only pieces.
func splitSentences(text string) []string {
	var sentences []string
	var b strings.Builder

	appendCurrent := func() {
		if s := strings.TrimSpace(b.String()); s != "" {
			sentences = append(sentences, s)
		}
		b.Reset()
	}

	for _, r := range text {
		b.WriteRune(r)
		switch r {
		case '.', '!', '?':
			appendCurrent()
		}
	}
	appendCurrent()

	return sentences
}
