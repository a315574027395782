package ingestion

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestNewChunker_Defaults(t *testing.T) {
	chunker := NewChunker(ChunkerConfig{})

	// Should apply defaults
	if chunker.config.TargetRunes != 900 {
		t.Errorf("expected default TargetRunes 900, got %d", chunker.config.TargetRunes)
	}
	if chunker.config.MaxRunes != 1200 {
		t.Errorf("expected default MaxRunes 1200, got %d", chunker.config.MaxRunes)
	}
}

func TestChunker_EmptyContent(t *testing.T) {
	chunker := NewChunker(DefaultChunkerConfig())

	if chunks := chunker.Chunk(""); chunks != nil {
		t.Errorf("expected nil for empty content, got %v", chunks)
	}
	if chunks := chunker.Chunk("   \n "); chunks != nil {
		t.Errorf("expected nil for whitespace content, got %v", chunks)
	}
}

func TestChunker_GroupsSentencesToTarget(t *testing.T) {
	chunker := NewChunker(ChunkerConfig{
		TargetRunes:  60,
		MaxRunes:     120,
		OverlapRunes: 0,
	})

	content := strings.Repeat("One short sentence here. ", 10)

	chunks := chunker.Chunk(content)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i, chunk := range chunks {
		if utf8.RuneCountInString(chunk) > 120 {
			t.Errorf("chunk %d exceeds max runes: %d", i, utf8.RuneCountInString(chunk))
		}
		if chunk == "" {
			t.Errorf("chunk %d is empty", i)
		}
	}
}

func TestChunker_KoreanSentences(t *testing.T) {
	chunker := NewChunker(ChunkerConfig{
		TargetRunes: 30,
		MaxRunes:    60,
	})

	content := "탄소 배출량을 감축했습니다. 재생에너지 전환율이 상승했습니다. 협력사 안전 교육을 확대했습니다."

	chunks := chunker.Chunk(content)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks for %d runes, got %d",
			utf8.RuneCountInString(content), len(chunks))
	}

	// Sentences must not be cut mid-way when they fit the max budget.
	for i, chunk := range chunks {
		if !strings.HasSuffix(chunk, ".") {
			t.Errorf("chunk %d not sentence-aligned: %q", i, chunk)
		}
	}
}

func TestChunker_LongSentenceSplitByRunes(t *testing.T) {
	chunker := NewChunker(ChunkerConfig{
		TargetRunes:  20,
		MaxRunes:     30,
		OverlapRunes: 5,
	})

	// One unbroken 100-rune sentence
	content := strings.Repeat("가", 100)

	chunks := chunker.Chunk(content)
	if len(chunks) < 4 {
		t.Fatalf("expected long sentence to split into windows, got %d chunks", len(chunks))
	}
	for i, chunk := range chunks {
		if utf8.RuneCountInString(chunk) > 20 {
			t.Errorf("window %d exceeds target runes: %d", i, utf8.RuneCountInString(chunk))
		}
	}
}

func TestChunker_OverlapCarriesTrailingSentence(t *testing.T) {
	chunker := NewChunker(ChunkerConfig{
		TargetRunes:  50,
		MaxRunes:     100,
		OverlapRunes: 20,
	})

	content := "First sentence alpha beta gamma. Second sentence delta epsilon zeta. Third sentence eta theta iota."

	chunks := chunker.Chunk(content)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	// The last sentence of a chunk reappears at the head of the next one.
	for i := 1; i < len(chunks); i++ {
		prevSentences := splitSentences(chunks[i-1])
		last := prevSentences[len(prevSentences)-1]
		if !strings.HasPrefix(chunks[i], last) {
			t.Errorf("chunk %d does not start with previous tail %q: %q", i, last, chunks[i])
		}
	}
}

func TestSplitSentences_NewlinesTerminate(t *testing.T) {
	sentences := splitSentences("첫 번째 행\n두 번째 행\nthird line.")
	if len(sentences) != 3 {
		t.Fatalf("expected 3 sentences, got %d: %v", len(sentences), sentences)
	}
	if sentences[0] != "첫 번째 행" {
		t.Errorf("got %q", sentences[0])
	}
}

func TestSplitSentences_KoreanPunctuation(t *testing.T) {
	sentences := splitSentences("감축 목표는 무엇인가？ 달성률은 80%입니다。")
	if len(sentences) != 2 {
		t.Fatalf("expected 2 sentences, got %d: %v", len(sentences), sentences)
	}
}
