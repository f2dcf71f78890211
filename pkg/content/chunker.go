package content

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dtnitsch/surfcore/models"
)

// Boundary confidence starts at the base and grows with how unambiguous
// the block's markup is. Sentence-split parts of an oversized block lose a
// step because their boundaries are guessed, not observed.
const (
	baseConfidence    = 0.5
	splitPenalty      = 0.1
	minSplitConfident = 0.4
)

var typeConfidenceBonus = map[models.ChunkType]float64{
	models.ChunkHeading:   0.4,
	models.ChunkCode:      0.4,
	models.ChunkTable:     0.4,
	models.ChunkQuote:     0.3,
	models.ChunkList:      0.3,
	models.ChunkParagraph: 0.2,
}

// buildChunks turns segments into chunks in source order. Oversized
// segments split at sentence boundaries into sibling chunks of the same
// type. Positions are assigned before filtering, so they stay strictly
// increasing even when a filter opens gaps.
func buildChunks(segments []segment, maxChars int, minConfidence float64, allowed []models.ChunkType) []models.Chunk {
	if maxChars <= 0 {
		maxChars = 2000
	}

	var chunks []models.Chunk
	position := 0
	add := func(chunkType models.ChunkType, text string, confidence float64) {
		chunks = append(chunks, models.Chunk{
			Type:               chunkType,
			Text:               text,
			Position:           position,
			BoundaryConfidence: confidence,
			WordCount:          WordCount(text),
		})
		position++
	}

	for _, seg := range segments {
		chunkType, ok := chunkTypeForTag[seg.tag]
		if !ok {
			chunkType = models.ChunkParagraph
		}

		confidence := baseConfidence + typeConfidenceBonus[chunkType]
		if chunkType == models.ChunkParagraph && endsSentence(seg.text) {
			confidence += 0.1
		}
		if confidence > 1.0 {
			confidence = 1.0
		}

		if len(seg.text) <= maxChars {
			add(chunkType, seg.text, confidence)
			continue
		}

		partConfidence := confidence - splitPenalty
		if partConfidence < minSplitConfident {
			partConfidence = minSplitConfident
		}
		for _, part := range splitBySentence(seg.text, maxChars) {
			add(chunkType, part, partConfidence)
		}
	}

	return filterChunks(chunks, minConfidence, allowed)
}

func filterChunks(chunks []models.Chunk, minConfidence float64, allowed []models.ChunkType) []models.Chunk {
	if minConfidence <= 0 && len(allowed) == 0 {
		return chunks
	}

	allowedSet := make(map[models.ChunkType]struct{}, len(allowed))
	for _, t := range allowed {
		allowedSet[t] = struct{}{}
	}

	out := chunks[:0]
	for _, c := range chunks {
		if c.BoundaryConfidence < minConfidence {
			continue
		}
		if len(allowedSet) > 0 {
			if _, ok := allowedSet[c.Type]; !ok {
				continue
			}
		}
		out = append(out, c)
	}
	return out
}

var sentenceEnd = regexp.MustCompile(`([.!?])\s+`)

// splitBySentence packs sentences greedily into parts of at most maxChars.
// Segment text never contains newlines, so one can mark boundaries. A
// single sentence longer than maxChars is cut hard at the limit.
func splitBySentence(text string, maxChars int) []string {
	marked := sentenceEnd.ReplaceAllString(text, "$1\n")

	var sentences []string
	for _, s := range strings.Split(marked, "\n") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if len(s) > maxChars {
			sentences = append(sentences, hardCut(s, maxChars)...)
			continue
		}
		sentences = append(sentences, s)
	}

	var parts []string
	var current strings.Builder
	for _, s := range sentences {
		if current.Len() > 0 && current.Len()+1+len(s) > maxChars {
			parts = append(parts, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(s)
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

// hardCut slices text at rune boundaries into pieces of at most maxChars
// bytes.
func hardCut(text string, maxChars int) []string {
	var parts []string
	runes := []rune(text)
	var current strings.Builder
	for _, r := range runes {
		if current.Len()+len(string(r)) > maxChars && current.Len() > 0 {
			parts = append(parts, current.String())
			current.Reset()
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		parts = append(parts, current.String())
	}
	return parts
}

func endsSentence(text string) bool {
	return strings.HasSuffix(text, ".") || strings.HasSuffix(text, "!") || strings.HasSuffix(text, "?")
}

// chunkTypeOrder fixes the listing order in summaries.
var chunkTypeOrder = []models.ChunkType{
	models.ChunkParagraph,
	models.ChunkHeading,
	models.ChunkList,
	models.ChunkTable,
	models.ChunkQuote,
	models.ChunkCode,
}

var chunkTypeNames = map[models.ChunkType][2]string{
	models.ChunkParagraph: {"paragraph", "paragraphs"},
	models.ChunkHeading:   {"heading", "headings"},
	models.ChunkList:      {"list", "lists"},
	models.ChunkTable:     {"table", "tables"},
	models.ChunkQuote:     {"quote", "quotes"},
	models.ChunkCode:      {"code block", "code blocks"},
}

// summarizeChunks renders the one-line digest, e.g.
// "3 chunks: 2 paragraphs, 1 heading".
func summarizeChunks(chunks []models.Chunk) string {
	if len(chunks) == 0 {
		return "0 chunks"
	}

	counts := make(map[models.ChunkType]int)
	for _, c := range chunks {
		counts[c.Type]++
	}

	var parts []string
	for _, t := range chunkTypeOrder {
		n := counts[t]
		if n == 0 {
			continue
		}
		name := chunkTypeNames[t][1]
		if n == 1 {
			name = chunkTypeNames[t][0]
		}
		parts = append(parts, fmt.Sprintf("%d %s", n, name))
	}

	noun := "chunks"
	if len(chunks) == 1 {
		noun = "chunk"
	}
	return fmt.Sprintf("%d %s: %s", len(chunks), noun, strings.Join(parts, ", "))
}
