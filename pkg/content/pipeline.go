package content

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/dtnitsch/surfcore/models"
)

// DOMSource supplies page markup. Browser handles satisfy it; tests pass
// a canned page.
type DOMSource interface {
	ExtractDOM(ctx context.Context, selector string) (string, error)
}

// Pipeline runs extraction: strategy fallback, cleaning, scoring,
// classification, dedup, chunking and structured views. Safe for
// concurrent use; the fingerprint caches are the only shared state.
type Pipeline struct {
	cfg models.ContentConfig

	mu     sync.Mutex
	caches map[string]*dedupCache
}

func NewPipeline(cfg models.ContentConfig) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		caches: make(map[string]*dedupCache),
	}
}

// candidate is one strategy's yield.
type candidate struct {
	strategy models.ExtractionStrategy
	text     string
	segments []segment
}

// Extract pulls the page from src and runs the full pipeline. Strategies
// are tried in fixed order and the first whose cleaned text meets the
// length floor wins; when none does, the longest yield is still processed
// with hasMeaningfulContent=false. Only an unreadable page is an error.
func (p *Pipeline) Extract(ctx context.Context, src DOMSource, req models.ExtractionRequest) (*models.ExtractionResult, error) {
	start := time.Now()

	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	minLen := req.MinContentLength
	if minLen <= 0 {
		minLen = p.cfg.MinContentLength
	}
	minWords := req.MinWordCount
	if minWords <= 0 {
		minWords = p.cfg.MinWordCount
	}

	raw, err := src.ExtractDOM(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to read page markup: %w", err)
	}

	rawDoc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page markup: %w", err)
	}

	var base *url.URL
	if req.URL != "" {
		base, _ = url.Parse(req.URL) // validated above
	}

	result := &models.ExtractionResult{
		URL:          req.URL,
		Title:        normalizeText(rawDoc.Find("title").First().Text()),
		StrategyUsed: models.StrategyNone,
		Category:     models.CategoryGeneral,
	}

	chosen := p.runStrategies(ctx, src, raw, base, req.Selector, minLen, result)
	result.Text = chosen.text
	result.StrategyUsed = chosen.strategy

	result.WordCount = WordCount(chosen.text)
	result.UniqueWords = UniqueWordCount(chosen.text)
	result.Quality = qualityScore(chosen.text, result.WordCount, result.UniqueWords)
	result.HasMeaningfulContent = len(chosen.text) >= minLen && result.WordCount >= minWords
	result.CaptchaSuspected = SuspectCaptcha(chosen.text, len(raw))

	if req.CategoryHint != "" {
		result.Category = req.CategoryHint
		result.CategoryConfidence = 1.0
	} else {
		result.Category, result.CategoryConfidence = Classify(chosen.text, req.URL)
	}

	result.Language, result.LanguageConfidence = DetectLanguage(chosen.text)
	result.TopKeywords = TopKeywords(chosen.text, 10)

	if p.cfg.Dedup.Enabled && !req.SkipDedup && chosen.text != "" {
		result.IsDuplicate = p.cacheFor(req.DedupScope).Seen(chosen.text)
	}

	if p.cfg.Chunking.Enabled && !req.SkipChunking && chosen.text != "" {
		minConfidence := req.ChunkMinConfidence
		if minConfidence <= 0 {
			minConfidence = p.cfg.Chunking.MinConfidence
		}
		result.Chunks = buildChunks(chosen.segments, p.cfg.Chunking.MaxChunkChars, minConfidence, req.ChunkTypes)
		result.ChunkSummary = summarizeChunks(result.Chunks)
	}

	result.Links = extractLinks(rawDoc, base)
	result.Images = extractImages(rawDoc, base)
	result.Tables = extractTables(rawDoc)

	result.ExtractedIn = models.Duration(time.Since(start))
	return result, nil
}

// runStrategies tries visible text, then readability full text, then raw
// markup. A strategy that errors is skipped; its failure is recovered by
// the next rung, not surfaced. The first yield meeting the length floor
// wins; when none does, the first non-empty yield is kept, since lower
// rungs trade precision for bulk and must not win on bulk alone.
func (p *Pipeline) runStrategies(ctx context.Context, src DOMSource, raw string, base *url.URL, selector string, minLen int, result *models.ExtractionResult) candidate {
	best := candidate{strategy: models.StrategyNone}

	consider := func(c candidate) bool {
		if best.text == "" && c.text != "" {
			best = c
		}
		return len(c.text) >= minLen
	}

	if c, err := visibleTextCandidate(ctx, src, raw, selector); err == nil {
		if consider(c) {
			return c
		}
	}

	if c, err := fullTextCandidate(raw, base, result); err == nil {
		if consider(c) {
			return c
		}
	}

	if c, err := rawMarkupCandidate(raw); err == nil {
		if consider(c) {
			return c
		}
	}

	return best
}

// visibleTextCandidate reads the rendered text with boilerplate stripped,
// scoped to the selector when one is given.
func visibleTextCandidate(ctx context.Context, src DOMSource, raw, selector string) (candidate, error) {
	markup := raw
	if selector != "" {
		scoped, err := src.ExtractDOM(ctx, selector)
		if err != nil {
			return candidate{}, err
		}
		markup = scoped
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return candidate{}, err
	}
	stripNoise(doc)

	segments := segmentize(doc.Selection)
	if len(segments) == 0 {
		if text := normalizeText(doc.Text()); text != "" {
			segments = []segment{{tag: "p", text: text}}
		}
	}

	return candidate{
		strategy: models.StrategyVisibleText,
		text:     joinSegments(segments),
		segments: segments,
	}, nil
}

// fullTextCandidate runs readability article extraction and, when it
// yields anything, fills the article metadata fields on the result.
func fullTextCandidate(raw string, base *url.URL, result *models.ExtractionResult) (candidate, error) {
	if base == nil {
		base = &url.URL{}
	}

	parser := readability.NewParser()
	article, err := parser.Parse(strings.NewReader(raw), base)
	if err != nil {
		return candidate{}, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return candidate{}, err
	}

	segments := segmentize(doc.Selection)
	if len(segments) == 0 {
		if text := normalizeText(doc.Text()); text != "" {
			segments = []segment{{tag: "p", text: text}}
		}
	}
	if len(segments) == 0 {
		return candidate{}, errors.New("readability produced no content")
	}

	if title := normalizeText(article.Title); title != "" {
		result.Title = title
	}
	result.Byline = normalizeText(article.Byline)
	result.Excerpt = normalizeText(article.Excerpt)
	result.SiteName = normalizeText(article.SiteName)

	return candidate{
		strategy: models.StrategyFullText,
		text:     joinSegments(segments),
		segments: segments,
	}, nil
}

// rawMarkupCandidate is the last rung: everything the page says, scripts
// and styles removed, one flat span.
func rawMarkupCandidate(raw string) (candidate, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return candidate{}, err
	}
	doc.Find("script, style, noscript").Remove()

	text := normalizeText(doc.Text())
	if text == "" {
		return candidate{strategy: models.StrategyRawMarkup}, nil
	}
	return candidate{
		strategy: models.StrategyRawMarkup,
		text:     text,
		segments: []segment{{tag: "p", text: text}},
	}, nil
}

// cacheFor returns the fingerprint cache for a scope, creating it on
// first use. The service passes session ids so duplicate tracking is per
// session.
func (p *Pipeline) cacheFor(scope string) *dedupCache {
	p.mu.Lock()
	defer p.mu.Unlock()
	cache, ok := p.caches[scope]
	if !ok {
		cache = newDedupCache(p.cfg.Dedup.Window.Std(), p.cfg.Dedup.MaxEntries)
		p.caches[scope] = cache
	}
	return cache
}

// DropScope releases a scope's fingerprint cache. Called when the owning
// session is released.
func (p *Pipeline) DropScope(scope string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.caches, scope)
}

func validateRequest(req *models.ExtractionRequest) error {
	fail := func(err error) error {
		return models.NewError(models.ErrValidation, "content.extract", err)
	}

	if req.URL != "" {
		u, err := url.Parse(req.URL)
		if err != nil {
			return fail(fmt.Errorf("invalid url %q: %w", req.URL, err))
		}
		if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" {
			return fail(fmt.Errorf("unsupported url scheme %q", u.Scheme))
		}
	}
	if req.CategoryHint != "" && !models.ValidCategory(req.CategoryHint) {
		return fail(fmt.Errorf("unknown category hint %q", req.CategoryHint))
	}
	if req.MinContentLength < 0 {
		return fail(fmt.Errorf("min content length must not be negative, got %d", req.MinContentLength))
	}
	if req.MinWordCount < 0 {
		return fail(fmt.Errorf("min word count must not be negative, got %d", req.MinWordCount))
	}
	if req.ChunkMinConfidence < 0 || req.ChunkMinConfidence > 1 {
		return fail(fmt.Errorf("chunk min confidence must be in [0, 1], got %v", req.ChunkMinConfidence))
	}
	for _, t := range req.ChunkTypes {
		switch t {
		case models.ChunkParagraph, models.ChunkHeading, models.ChunkList, models.ChunkTable, models.ChunkQuote, models.ChunkCode:
		default:
			return fail(fmt.Errorf("unknown chunk type %q", t))
		}
	}
	return nil
}
