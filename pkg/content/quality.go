package content

import "strings"

// qualityScore rates extracted text in [0, 1] from four additive signals:
// raw length, word count, vocabulary breadth, and sentence structure.
func qualityScore(text string, wordCount, uniqueWords int) float64 {
	score := 0.0

	switch chars := len(text); {
	case chars > 500:
		score += 0.3
	case chars > 100:
		score += 0.1
	}

	switch {
	case wordCount > 50:
		score += 0.2
	case wordCount > 10:
		score += 0.1
	}

	switch {
	case uniqueWords > 20:
		score += 0.2
	case uniqueWords > 5:
		score += 0.1
	}

	if hasSentenceStructure(text) {
		score += 0.3
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// hasSentenceStructure reports whether the text reads like prose rather
// than a tag soup of labels: at least two sentence terminators.
func hasSentenceStructure(text string) bool {
	terminators := strings.Count(text, ".") + strings.Count(text, "!") + strings.Count(text, "?")
	return terminators >= 2
}
