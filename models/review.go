// Package models defines the records produced by the scrapers.
package models

// Review is a single customer review as written to the output file.
//
// G2 cards carry their body in Description, Capterra cards in Review.
// Rating is nil when the card has no rating element.
type Review struct {
	Date        string  `json:"date" yaml:"date"`
	Title       string  `json:"title" yaml:"title"`
	Review      string  `json:"review,omitempty" yaml:"review,omitempty"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
	Rating      *string `json:"rating" yaml:"rating"`
	Reviewer    string  `json:"reviewer" yaml:"reviewer"`
	Source      string  `json:"source" yaml:"source"`
	Language    string  `json:"language,omitempty" yaml:"language,omitempty"`
}

// Body returns whichever body field the source populated.
func (r Review) Body() string {
	if r.Description != "" {
		return r.Description
	}
	return r.Review
}

// StringPtr is a helper for building optional ratings.
func StringPtr(s string) *string {
	return &s
}
