package content

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
)

// languageConfidenceFloor is the minimum detector confidence before a
// language is reported at all; below it the result stays empty.
const languageConfidenceFloor = 0.5

// detectorLanguages is the candidate set. A narrow set keeps the detector
// cheap to build and more decisive than the full catalogue.
var detectorLanguages = []lingua.Language{
	lingua.English,
	lingua.Spanish,
	lingua.French,
	lingua.German,
	lingua.Portuguese,
	lingua.Italian,
	lingua.Dutch,
	lingua.Russian,
	lingua.Japanese,
	lingua.Chinese,
	lingua.Korean,
	lingua.Arabic,
}

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

// languageDetector builds the shared detector on first use. Model data
// loads lazily per language, so construction stays fast.
func languageDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(detectorLanguages...).
			Build()
	})
	return detector
}

// DetectLanguage returns the ISO 639-1 code and confidence for the text's
// language, or an empty code when the text is too short or the detector
// is not confident enough to say.
func DetectLanguage(text string) (string, float64) {
	if WordCount(text) < 3 {
		return "", 0
	}

	values := languageDetector().ComputeLanguageConfidenceValues(text)
	if len(values) == 0 {
		return "", 0
	}

	top := values[0]
	if top.Value() < languageConfidenceFloor {
		return "", 0
	}
	code := strings.ToLower(top.Language().IsoCode639_1().String())
	return code, top.Value()
}
