// Package analytics summarizes what a set of reviews talks about.
package analytics

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/samber/lo"

	"github.com/dtnitsch/review-scraper/models"
)

// stopwords are dropped before counting. Besides common English filler the
// list holds words every software review uses.
var stopwords = lo.SliceToMap([]string{
	"a", "about", "after", "all", "also", "am", "an", "and", "any", "are", "as", "at",
	"be", "been", "but", "by", "can", "could", "did", "do", "does", "for", "from",
	"had", "has", "have", "he", "her", "his", "how", "i", "if", "in", "into", "is",
	"it", "its", "just", "me", "more", "most", "my", "no", "not", "of", "on", "one",
	"only", "or", "our", "out", "so", "some", "than", "that", "the", "their", "them",
	"then", "there", "these", "they", "this", "to", "too", "up", "us", "very", "was",
	"we", "were", "what", "when", "which", "while", "who", "will", "with", "would",
	"you", "your",
	"app", "product", "software", "tool", "use", "used", "using", "review",
}, func(w string) (string, struct{}) { return w, struct{}{} })

// IsStopword checks if a word is ignored by WordFrequency.
func IsStopword(word string) bool {
	_, ok := stopwords[strings.ToLower(word)]
	return ok
}

// WordFrequency counts lowercase words of two or more letters, ignoring
// stopwords and punctuation.
func WordFrequency(text string) map[string]int {
	frequencies := make(map[string]int)
	for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	}) {
		word = strings.Trim(word, "-")
		if len([]rune(word)) < 2 || IsStopword(word) {
			continue
		}
		frequencies[word]++
	}
	return frequencies
}

// Keyword is a word and how many reviews' text it appeared in, summed.
type Keyword struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

func (k Keyword) String() string {
	return fmt.Sprintf("%s:%d", k.Word, k.Count)
}

// TopKeywords maps each review to word counts over its title and body,
// reduces them into one total, and returns the n most frequent words.
// Ties break alphabetically.
func TopKeywords(reviews []models.Review, n int) []Keyword {
	perReview := lo.Map(reviews, func(r models.Review, _ int) map[string]int {
		return WordFrequency(r.Title + " " + r.Body())
	})
	totals := lo.Reduce(perReview, func(acc map[string]int, counts map[string]int, _ int) map[string]int {
		for w, c := range counts {
			acc[w] += c
		}
		return acc
	}, map[string]int{})

	keywords := lo.MapToSlice(totals, func(w string, c int) Keyword {
		return Keyword{Word: w, Count: c}
	})
	slices.SortFunc(keywords, func(a, b Keyword) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Word, b.Word)
	})

	if n >= 0 && len(keywords) > n {
		keywords = keywords[:n]
	}
	return keywords
}
