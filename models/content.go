package models

import (
	"fmt"
	"strings"
)

// ContentCategory classifies a page into a closed set of site kinds.
// Classification never invents values outside this set; unclear pages
// resolve to CategoryGeneral.
type ContentCategory string

const (
	CategoryNews      ContentCategory = "news"
	CategoryForum     ContentCategory = "forum"
	CategoryEcommerce ContentCategory = "ecommerce"
	CategoryFinancial ContentCategory = "financial"
	CategoryBlog      ContentCategory = "blog"
	CategoryGeneral   ContentCategory = "general"
)

// Categories lists every valid category, CategoryGeneral last.
func Categories() []ContentCategory {
	return []ContentCategory{
		CategoryNews,
		CategoryForum,
		CategoryEcommerce,
		CategoryFinancial,
		CategoryBlog,
		CategoryGeneral,
	}
}

// ValidCategory reports whether c names a known category.
func ValidCategory(c ContentCategory) bool {
	switch c {
	case CategoryNews, CategoryForum, CategoryEcommerce, CategoryFinancial, CategoryBlog, CategoryGeneral:
		return true
	}
	return false
}

// ChunkType names the semantic shape of a chunk.
type ChunkType string

const (
	ChunkParagraph ChunkType = "paragraph"
	ChunkHeading   ChunkType = "heading"
	ChunkList      ChunkType = "list"
	ChunkTable     ChunkType = "table"
	ChunkQuote     ChunkType = "quote"
	ChunkCode      ChunkType = "code"
)

// Chunk is one semantically coherent span of extracted text. Positions are
// strictly increasing in source order and no text belongs to two chunks.
type Chunk struct {
	Type               ChunkType `json:"type" yaml:"type"`
	Text               string    `json:"text" yaml:"text"`
	Position           int       `json:"position" yaml:"position"`
	BoundaryConfidence float64   `json:"boundary_confidence" yaml:"boundary_confidence"`
	WordCount          int       `json:"word_count" yaml:"word_count"`
}

// ExtractionStrategy names which fallback level produced the text.
type ExtractionStrategy string

const (
	StrategyVisibleText ExtractionStrategy = "visible_text" // selector / rendered text
	StrategyFullText    ExtractionStrategy = "full_text"    // readability article
	StrategyRawMarkup   ExtractionStrategy = "raw_markup"   // stripped raw HTML
	StrategyNone        ExtractionStrategy = "none"         // nothing met the threshold
)

// ExtractionRequest carries per-call extraction options. Zero values fall
// back to the configured defaults.
type ExtractionRequest struct {
	URL              string          `json:"url"`
	CategoryHint     ContentCategory `json:"category_hint,omitempty"` // skip classification when set
	Selector         string          `json:"selector,omitempty"`      // CSS selector for the visible-text strategy
	MinContentLength int             `json:"min_content_length,omitempty"`
	MinWordCount     int             `json:"min_word_count,omitempty"`

	// Feature toggles, applied on top of the configured defaults.
	SkipDedup    bool `json:"skip_dedup,omitempty"`
	SkipChunking bool `json:"skip_chunking,omitempty"`

	// DedupScope keys the fingerprint cache; callers pass the session id
	// so duplicates are tracked per session. Empty shares one scope.
	DedupScope string `json:"dedup_scope,omitempty"`

	// Chunk filtering.
	ChunkMinConfidence float64     `json:"chunk_min_confidence,omitempty"`
	ChunkTypes         []ChunkType `json:"chunk_types,omitempty"` // empty = all types
}

// Link is one hyperlink found in the page markup.
type Link struct {
	URL  string `json:"url" yaml:"url"`
	Text string `json:"text,omitempty" yaml:"text,omitempty"`
}

// Image is one image reference found in the page markup.
type Image struct {
	URL string `json:"url" yaml:"url"`
	Alt string `json:"alt,omitempty" yaml:"alt,omitempty"`
}

// Table is one table lifted from the page markup.
type Table struct {
	Headers []string   `json:"headers,omitempty" yaml:"headers,omitempty"`
	Rows    [][]string `json:"rows" yaml:"rows"`
}

// KeywordCount is one stopword-filtered word and its frequency.
type KeywordCount struct {
	Word  string `json:"word" yaml:"word"`
	Count int    `json:"count" yaml:"count"`
}

// ExtractionResult is the full outcome of one extract call.
type ExtractionResult struct {
	URL      string `json:"url" yaml:"url"`
	Title    string `json:"title,omitempty" yaml:"title,omitempty"`
	Byline   string `json:"byline,omitempty" yaml:"byline,omitempty"`
	Excerpt  string `json:"excerpt,omitempty" yaml:"excerpt,omitempty"`
	SiteName string `json:"site_name,omitempty" yaml:"site_name,omitempty"`

	Text         string             `json:"text" yaml:"text"`
	StrategyUsed ExtractionStrategy `json:"strategy_used" yaml:"strategy_used"`

	Category           ContentCategory `json:"category" yaml:"category"`
	CategoryConfidence float64         `json:"category_confidence" yaml:"category_confidence"`

	Quality              float64 `json:"quality" yaml:"quality"` // 0..1
	WordCount            int     `json:"word_count" yaml:"word_count"`
	UniqueWords          int     `json:"unique_words" yaml:"unique_words"`
	HasMeaningfulContent bool    `json:"has_meaningful_content" yaml:"has_meaningful_content"`
	IsDuplicate          bool    `json:"is_duplicate" yaml:"is_duplicate"`
	CaptchaSuspected     bool    `json:"captcha_suspected" yaml:"captcha_suspected"`

	Language           string  `json:"language,omitempty" yaml:"language,omitempty"` // ISO-639-1
	LanguageConfidence float64 `json:"language_confidence,omitempty" yaml:"language_confidence,omitempty"`

	TopKeywords []KeywordCount `json:"top_keywords,omitempty" yaml:"top_keywords,omitempty"`

	Chunks       []Chunk `json:"chunks,omitempty" yaml:"chunks,omitempty"`
	ChunkSummary string  `json:"chunk_summary,omitempty" yaml:"chunk_summary,omitempty"`

	Links  []Link  `json:"links,omitempty" yaml:"links,omitempty"`
	Images []Image `json:"images,omitempty" yaml:"images,omitempty"`
	Tables []Table `json:"tables,omitempty" yaml:"tables,omitempty"`

	ExtractedIn Duration `json:"extracted_in" yaml:"extracted_in"`
}

// ChunkText concatenates chunk texts in position order, which reproduces the
// cleaned source text modulo whitespace.
func (r *ExtractionResult) ChunkText() string {
	var sb strings.Builder
	for i, c := range r.Chunks {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(c.Text)
	}
	return sb.String()
}

// Summary renders a one-line digest for logs and CLI tables.
func (r *ExtractionResult) Summary() string {
	return fmt.Sprintf("%s [%s] quality=%.2f words=%d chunks=%d",
		r.StrategyUsed, r.Category, r.Quality, r.WordCount, len(r.Chunks))
}
