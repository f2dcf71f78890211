package content

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dtnitsch/surfcore/models"
)

// extractLinks lifts hyperlinks from the page markup, resolved against
// the page URL. Fragment-only, javascript: and mailto: targets are noise,
// not navigation, and are skipped.
func extractLinks(doc *goquery.Document, base *url.URL) []models.Link {
	var links []models.Link
	seen := make(map[string]struct{})

	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
			return
		}

		resolved := resolveURL(base, href)
		if resolved == "" {
			return
		}
		if _, dup := seen[resolved]; dup {
			return
		}
		seen[resolved] = struct{}{}

		links = append(links, models.Link{
			URL:  resolved,
			Text: normalizeText(s.Text()),
		})
	})

	return links
}

// extractImages lifts image references, resolved against the page URL.
func extractImages(doc *goquery.Document, base *url.URL) []models.Image {
	var images []models.Image
	seen := make(map[string]struct{})

	doc.Find("img[src]").Each(func(i int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		src = strings.TrimSpace(src)
		if src == "" || strings.HasPrefix(src, "data:") {
			return
		}

		resolved := resolveURL(base, src)
		if resolved == "" {
			return
		}
		if _, dup := seen[resolved]; dup {
			return
		}
		seen[resolved] = struct{}{}

		alt, _ := s.Attr("alt")
		images = append(images, models.Image{
			URL: resolved,
			Alt: strings.TrimSpace(alt),
		})
	})

	return images
}

// extractTables lifts every table with content: explicit thead headers
// when present, otherwise the first row serves as the header.
func extractTables(doc *goquery.Document) []models.Table {
	var tables []models.Table

	doc.Find("table").Each(func(i int, s *goquery.Selection) {
		if table := extractTable(s); table != nil {
			tables = append(tables, *table)
		}
	})

	return tables
}

func extractTable(s *goquery.Selection) *models.Table {
	var headers []string
	var rows [][]string

	// Try explicit headers
	s.Find("thead tr th").Each(func(i int, th *goquery.Selection) {
		headers = append(headers, normalizeText(th.Text()))
	})

	// Fallback: first row serves as header and is excluded from the body
	firstRow := s.Find("tr").First()
	headerFromFirstRow := false
	if len(headers) == 0 {
		firstRow.Find("th,td").Each(func(i int, cell *goquery.Selection) {
			headers = append(headers, normalizeText(cell.Text()))
		})
		headerFromFirstRow = len(headers) > 0
	}

	s.Find("tr").Each(func(i int, tr *goquery.Selection) {
		if headerFromFirstRow && len(tr.Nodes) > 0 && len(firstRow.Nodes) > 0 && tr.Nodes[0] == firstRow.Nodes[0] {
			return
		}
		var row []string
		tr.Find("td").Each(func(j int, td *goquery.Selection) {
			row = append(row, normalizeText(td.Text()))
		})
		if len(row) > 0 {
			rows = append(rows, row)
		}
	})

	if len(headers) == 0 && len(rows) == 0 {
		return nil
	}

	return &models.Table{
		Headers: headers,
		Rows:    rows,
	}
}

func resolveURL(base *url.URL, ref string) string {
	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	if base != nil {
		parsed = base.ResolveReference(parsed)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	return parsed.String()
}
