// Package ingestion turns ESG report documents into indexed chunks: section
// chunking, embedding, and registry bookkeeping.
package ingestion

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ChunkerConfig holds chunking configuration. Sizes are in runes, not bytes:
// report text is largely Korean and byte budgets would cut chunks to a third
// of the intended length.
type ChunkerConfig struct {
	TargetRunes  int
	MaxRunes     int
	OverlapRunes int
}

// DefaultChunkerConfig returns the default chunker configuration
func DefaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{
		TargetRunes:  900,
		MaxRunes:     1200,
		OverlapRunes: 100,
	}
}

// Chunker splits section text into sentence-aligned chunks
type Chunker struct {
	config ChunkerConfig
}

// NewChunker creates a new Chunker with the given configuration
func NewChunker(config ChunkerConfig) *Chunker {
	if config.TargetRunes <= 0 {
		config.TargetRunes = 900
	}
	if config.MaxRunes <= 0 {
		config.MaxRunes = 1200
	}
	if config.OverlapRunes < 0 {
		config.OverlapRunes = 0
	}
	return &Chunker{config: config}
}

// Chunk splits content into chunks, grouping sentences until the target size
// is reached. Sentences longer than the max size are split at rune boundaries.
func (c *Chunker) Chunk(content string) []string {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	sentences := splitSentences(content)

	var chunks []string
	var current []string
	currentRunes := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(current, " "))
		current, currentRunes = c.overlapTail(current)
	}

	for _, sentence := range sentences {
		runes := utf8.RuneCountInString(sentence)

		if runes > c.config.MaxRunes {
			flush()
			current = nil
			currentRunes = 0
			chunks = append(chunks, splitByRunes(sentence, c.config.TargetRunes, c.config.OverlapRunes)...)
			continue
		}

		if currentRunes+runes > c.config.TargetRunes && currentRunes > 0 {
			flush()
		}

		current = append(current, sentence)
		currentRunes += runes
	}

	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}

	return chunks
}

// overlapTail returns the trailing sentences to carry into the next chunk
func (c *Chunker) overlapTail(sentences []string) ([]string, int) {
	if c.config.OverlapRunes <= 0 {
		return nil, 0
	}

	var tail []string
	runes := 0
	for i := len(sentences) - 1; i >= 0 && runes < c.config.OverlapRunes; i-- {
		tail = append([]string{sentences[i]}, tail...)
		runes += utf8.RuneCountInString(sentences[i])
	}

	return tail, runes
}

// splitByRunes splits text into windows of at most target runes with overlap
func splitByRunes(text string, target, overlap int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := target - overlap
	if step <= 0 {
		step = target
	}

	var parts []string
	for i := 0; i < len(runes); i += step {
		end := i + target
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, strings.TrimSpace(string(runes[i:end])))
		if end >= len(runes) {
			break
		}
	}

	return parts
}

// splitSentences splits text into sentences on terminal punctuation followed
// by whitespace. Handles both Korean and Western punctuation; newlines also
// terminate a sentence since report extraction emits one line per layout row.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if r == '\n' {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
			continue
		}

		current.WriteRune(r)

		if isTerminal(r) && (i+1 >= len(runes) || unicode.IsSpace(runes[i+1])) {
			if s := strings.TrimSpace(current.String()); s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}

	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}

func isTerminal(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}
