package content

import (
	"bufio"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dtnitsch/surfcore/models"
)

// noiseSelector matches the structural boilerplate stripped before the
// visible-text strategy reads a page.
const noiseSelector = "script, style, noscript, nav, header, footer, aside, form, iframe"

// blockSelector lists the content-bearing tags a page is segmented along.
const blockSelector = "h1, h2, h3, h4, h5, h6, p, ul, ol, table, pre, blockquote"

// segment is one content-bearing block in source order. The chunker turns
// segments into chunks; joining segment texts yields the strategy's text,
// so chunk concatenation reproduces it by construction.
type segment struct {
	tag  string
	text string
}

var chunkTypeForTag = map[string]models.ChunkType{
	"h1": models.ChunkHeading, "h2": models.ChunkHeading, "h3": models.ChunkHeading,
	"h4": models.ChunkHeading, "h5": models.ChunkHeading, "h6": models.ChunkHeading,
	"p":          models.ChunkParagraph,
	"ul":         models.ChunkList,
	"ol":         models.ChunkList,
	"table":      models.ChunkTable,
	"pre":        models.ChunkCode,
	"blockquote": models.ChunkQuote,
}

// stripNoise removes boilerplate elements in place.
func stripNoise(doc *goquery.Document) {
	doc.Find(noiseSelector).Remove()
}

// segmentize walks the content-bearing blocks of a selection in source
// order. Blocks nested inside an already captured block are skipped so no
// text lands in two segments.
func segmentize(sel *goquery.Selection) []segment {
	var segments []segment
	sel.Find(blockSelector).Each(func(i int, s *goquery.Selection) {
		if s.ParentsFiltered(blockSelector).Length() > 0 {
			return
		}
		text := normalizeText(s.Text())
		if text == "" {
			return
		}
		segments = append(segments, segment{tag: goquery.NodeName(s), text: text})
	})
	return segments
}

// joinSegments renders segments to the text the pipeline scores and ships.
func joinSegments(segments []segment) string {
	var b strings.Builder
	for i, seg := range segments {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(seg.text)
	}
	return b.String()
}

var (
	dotRun        = regexp.MustCompile(`\.{3,}`)
	spacedStopper = regexp.MustCompile(`\s+([.!?])`)
)

// normalizeText cleans up a string by trimming space, removing excess
// newlines, collapsing dot runs to a plain ellipsis, and closing up
// whitespace left hanging before sentence stops.
func normalizeText(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	scanner := bufio.NewScanner(strings.NewReader(input))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(strings.Join(strings.Fields(line), " "))
	}
	text := dotRun.ReplaceAllString(b.String(), "...")
	return spacedStopper.ReplaceAllString(text, "$1")
}

// foldWhitespace reduces text to single-spaced form, the shape used for
// fingerprints and round-trip comparisons.
func foldWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
