// Package language tags reviews with the language their body is written in.
package language

import (
	"strings"

	"github.com/pemistahl/lingua-go"

	"github.com/dtnitsch/review-scraper/models"
)

// Languages the detector chooses between. Both sites serve mostly
// Western European reviews; a short list keeps model loading fast.
var Languages = []lingua.Language{
	lingua.English,
	lingua.German,
	lingua.French,
	lingua.Spanish,
	lingua.Portuguese,
	lingua.Italian,
	lingua.Dutch,
}

// minTextLength is the shortest text worth classifying.
const minTextLength = 12

type Detector struct {
	detector lingua.LanguageDetector
}

// NewDetector builds a detector over Languages.
func NewDetector() *Detector {
	d := lingua.NewLanguageDetectorBuilder().
		FromLanguages(Languages...).
		WithMinimumRelativeDistance(0.1).
		Build()
	return &Detector{detector: d}
}

// Detect returns the lowercase ISO 639-1 code for text, or "" when the text
// is too short or ambiguous.
func (d *Detector) Detect(text string) string {
	text = strings.TrimSpace(text)
	if len(text) < minTextLength {
		return ""
	}
	lang, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return ""
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}

// Tag sets Language on each review from its title and body. The slice is
// modified in place and returned.
func (d *Detector) Tag(reviews []models.Review) []models.Review {
	for i := range reviews {
		text := strings.TrimSpace(reviews[i].Title + ". " + reviews[i].Body())
		reviews[i].Language = d.Detect(text)
	}
	return reviews
}
