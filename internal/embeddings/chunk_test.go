package embeddings

import (
	"strings"
	"testing"
)

func TestChunkTextShortInputIsSingleChunk(t *testing.T) {
	chunks := ChunkText("hello world", 100, 10)
	if len(chunks) != 1 || chunks[0] != "hello world" {
		t.Errorf("chunks = %v, want single unmodified chunk", chunks)
	}
}

func TestChunkTextEmptyInput(t *testing.T) {
	if chunks := ChunkText("   ", 100, 10); chunks != nil {
		t.Errorf("chunks = %v, want nil", chunks)
	}
}

func TestChunkTextRespectsMaxChars(t *testing.T) {
	text := strings.Repeat("alpha bravo charlie delta ", 50)

	chunks := ChunkText(text, 80, 20)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i, chunk := range chunks {
		if len(chunk) > 80 {
			t.Errorf("chunk %d length %d exceeds max 80", i, len(chunk))
		}
		if strings.HasPrefix(chunk, " ") || strings.HasSuffix(chunk, " ") {
			t.Errorf("chunk %d has leading or trailing space: %q", i, chunk)
		}
	}
}

func TestChunkTextOverlap(t *testing.T) {
	text := strings.Repeat("alpha bravo charlie delta ", 50)

	chunks := ChunkText(text, 80, 20)
	for i := 1; i < len(chunks); i++ {
		firstWord := strings.Fields(chunks[i])[0]
		if !strings.Contains(chunks[i-1], firstWord) {
			t.Errorf("chunk %d does not start with text from chunk %d", i, i-1)
		}
	}
}

func TestChunkTextNeverSplitsWords(t *testing.T) {
	text := strings.Repeat("abcdefghij ", 30)

	for _, chunk := range ChunkText(text, 35, 12) {
		for _, word := range strings.Fields(chunk) {
			if word != "abcdefghij" {
				t.Fatalf("word was split: %q in chunk %q", word, chunk)
			}
		}
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("a", 400), 100},
	}

	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%d chars) = %d, want %d", len(tt.text), got, tt.want)
		}
	}
}
