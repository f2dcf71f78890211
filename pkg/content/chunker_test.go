package content

import (
	"strings"
	"testing"

	"github.com/dtnitsch/surfcore/models"
)

func TestBuildChunks_TypesAndPositions(t *testing.T) {
	segments := []segment{
		{tag: "h1", text: "Overview"},
		{tag: "p", text: "First paragraph."},
		{tag: "ul", text: "one two three"},
		{tag: "table", text: "a b c"},
		{tag: "blockquote", text: "A quoted line."},
		{tag: "pre", text: "x := 1"},
	}

	chunks := buildChunks(segments, 2000, 0, nil)
	want := []models.ChunkType{
		models.ChunkHeading,
		models.ChunkParagraph,
		models.ChunkList,
		models.ChunkTable,
		models.ChunkQuote,
		models.ChunkCode,
	}

	if len(chunks) != len(want) {
		t.Fatalf("chunk count = %d, want %d", len(chunks), len(want))
	}
	for i, c := range chunks {
		if c.Type != want[i] {
			t.Errorf("chunk %d type = %q, want %q", i, c.Type, want[i])
		}
		if c.Position != i {
			t.Errorf("chunk %d position = %d, want %d", i, c.Position, i)
		}
		if c.BoundaryConfidence < 0.5 || c.BoundaryConfidence > 1.0 {
			t.Errorf("chunk %d confidence = %v, want within [0.5, 1.0]", i, c.BoundaryConfidence)
		}
	}
}

func TestBuildChunks_HeadingOutranksParagraph(t *testing.T) {
	chunks := buildChunks([]segment{
		{tag: "h2", text: "Heading"},
		{tag: "p", text: "Plain paragraph without terminal punctuation"},
	}, 2000, 0, nil)

	if len(chunks) != 2 {
		t.Fatalf("chunk count = %d, want 2", len(chunks))
	}
	if chunks[0].BoundaryConfidence <= chunks[1].BoundaryConfidence {
		t.Errorf("heading confidence %v not above bare paragraph %v",
			chunks[0].BoundaryConfidence, chunks[1].BoundaryConfidence)
	}
}

func TestBuildChunks_OversizeSplitsAtSentences(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString("This sentence pads the paragraph out to force a split.")
	}
	long := b.String()

	chunks := buildChunks([]segment{{tag: "p", text: long}}, 500, 0, nil)

	if len(chunks) < 2 {
		t.Fatalf("oversize paragraph produced %d chunk(s), want a split", len(chunks))
	}
	for i, c := range chunks {
		if len(c.Text) > 500 {
			t.Errorf("chunk %d length = %d, want <= 500", i, len(c.Text))
		}
		if c.Type != models.ChunkParagraph {
			t.Errorf("chunk %d type = %q, want %q", i, c.Type, models.ChunkParagraph)
		}
		if c.Position != i {
			t.Errorf("chunk %d position = %d, want %d", i, c.Position, i)
		}
		if !strings.HasSuffix(c.Text, ".") {
			t.Errorf("chunk %d does not end at a sentence boundary: %q", i, c.Text[len(c.Text)-20:])
		}
	}

	// Completeness: the parts reassemble the original text.
	var joined []string
	for _, c := range chunks {
		joined = append(joined, c.Text)
	}
	if got := strings.Join(joined, " "); got != long {
		t.Errorf("split parts do not reassemble the source (got %d chars, want %d)", len(got), len(long))
	}
}

func TestBuildChunks_MinConfidenceFilters(t *testing.T) {
	segments := []segment{
		{tag: "h1", text: "Heading"},
		{tag: "p", text: "no terminal punctuation here"},
	}

	// Bare paragraphs sit at 0.7, headings at 0.9.
	chunks := buildChunks(segments, 2000, 0.8, nil)
	if len(chunks) != 1 {
		t.Fatalf("chunk count = %d, want 1 after confidence filter", len(chunks))
	}
	if chunks[0].Type != models.ChunkHeading {
		t.Errorf("surviving chunk = %q, want heading", chunks[0].Type)
	}
}

func TestSplitBySentence_HardCutsGiantSentence(t *testing.T) {
	giant := strings.Repeat("abcdefghij", 30) // one 300-char "sentence", no terminators
	parts := splitBySentence(giant, 100)

	if len(parts) != 3 {
		t.Fatalf("part count = %d, want 3", len(parts))
	}
	for i, p := range parts {
		if len(p) > 100 {
			t.Errorf("part %d length = %d, want <= 100", i, len(p))
		}
	}
	if strings.Join(parts, "") != giant {
		t.Error("hard-cut parts do not reassemble the source")
	}
}

func TestSummarizeChunks(t *testing.T) {
	tests := []struct {
		name   string
		chunks []models.Chunk
		want   string
	}{
		{
			name:   "empty",
			chunks: nil,
			want:   "0 chunks",
		},
		{
			name:   "single",
			chunks: []models.Chunk{{Type: models.ChunkParagraph}},
			want:   "1 chunk: 1 paragraph",
		},
		{
			name: "mixed",
			chunks: []models.Chunk{
				{Type: models.ChunkHeading},
				{Type: models.ChunkParagraph},
				{Type: models.ChunkParagraph},
				{Type: models.ChunkCode},
			},
			want: "4 chunks: 2 paragraphs, 1 heading, 1 code block",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := summarizeChunks(tt.chunks); got != tt.want {
				t.Errorf("summarizeChunks() = %q, want %q", got, tt.want)
			}
		})
	}
}
