package content

import "strings"

// captchaMarkers are phrase fragments that show up on challenge pages.
// Matching is substring over lowercased text, same as category markers.
var captchaMarkers = []string{
	"captcha",
	"recaptcha",
	"hcaptcha",
	"verify you are human",
	"verifying you are human",
	"are you a robot",
	"i'm not a robot",
	"prove you are not a robot",
	"unusual traffic",
	"access denied",
	"checking your browser",
	"security check",
	"cloudflare",
}

// SuspectCaptcha reports whether extracted text looks like a bot
// challenge rather than page content: either a known challenge phrase, or
// a large page that rendered to almost no text.
func SuspectCaptcha(text string, rawLen int) bool {
	lower := strings.ToLower(text)
	for _, marker := range captchaMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return rawLen >= 5000 && len(strings.TrimSpace(text)) < 500
}
