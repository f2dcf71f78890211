package content

import (
	"net/url"
	"sort"
	"strings"

	"github.com/dtnitsch/surfcore/models"
)

// categoryMarkers holds the phrases that vote for each category when they
// appear in page text. Presence counts once per marker; frequency does not
// pile on.
var categoryMarkers = map[models.ContentCategory][]string{
	models.CategoryNews: {
		"breaking news", "journalist", "reporter", "newsroom", "editor",
		"press release", "correspondent", "headline", "published",
	},
	models.CategoryForum: {
		"reply", "thread", "upvote", "downvote", "posted by", "moderator",
		"member since", "forum", "join the discussion",
	},
	models.CategoryEcommerce: {
		"add to cart", "checkout", "free shipping", "in stock", "buy now",
		"product description", "customer reviews", "sku", "price",
	},
	models.CategoryFinancial: {
		"stock", "shares", "market cap", "earnings", "dividend", "nasdaq",
		"portfolio", "ticker", "investor", "quarterly results",
	},
	models.CategoryBlog: {
		"posted on", "read more", "subscribe", "older posts", "newer posts",
		"tagged", "leave a comment", "about the author",
	},
}

// urlMarkers are URL substrings that vote for a category. URL signals
// weigh double: a /shop/ path says more than the word "price" in prose.
var urlMarkers = map[models.ContentCategory][]string{
	models.CategoryNews:      {"news", "/article"},
	models.CategoryForum:     {"forum", "community", "/thread"},
	models.CategoryEcommerce: {"shop", "store", "/product", "/cart"},
	models.CategoryFinancial: {"finance", "invest", "market", "trading"},
	models.CategoryBlog:      {"blog", "/post"},
}

// Classify scores page text plus its URL against each category's markers.
// No signal and exact ties both resolve to general with low confidence, so
// the category set stays closed and deterministic.
func Classify(text, rawURL string) (models.ContentCategory, float64) {
	lower := strings.ToLower(text)

	var locator string
	if u, err := url.Parse(rawURL); err == nil {
		locator = strings.ToLower(u.Host + u.Path)
	}

	scores := make(map[models.ContentCategory]int)
	for category, markers := range categoryMarkers {
		for _, marker := range markers {
			if strings.Contains(lower, marker) {
				scores[category]++
			}
		}
	}
	for category, markers := range urlMarkers {
		for _, marker := range markers {
			if strings.Contains(locator, marker) {
				scores[category] += 2
			}
		}
	}

	total := 0
	for _, s := range scores {
		total += s
	}
	if total == 0 {
		return models.CategoryGeneral, 0.1
	}

	// Stable iteration so equal scores always tie the same way.
	categories := make([]models.ContentCategory, 0, len(scores))
	for c := range scores {
		categories = append(categories, c)
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i] < categories[j] })

	best := categories[0]
	for _, c := range categories[1:] {
		if scores[c] > scores[best] {
			best = c
		}
	}

	tied := 0
	for _, s := range scores {
		if s == scores[best] {
			tied++
		}
	}
	if tied > 1 {
		return models.CategoryGeneral, 0.2
	}

	confidence := float64(scores[best]) / float64(total)
	if confidence > 0.95 {
		confidence = 0.95
	}
	return best, confidence
}
