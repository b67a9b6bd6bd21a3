// Package dates parses review dates and filters reviews by an inclusive range.
package dates

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/samber/lo"

	"github.com/dtnitsch/review-scraper/models"
)

// ISOLayout matches the millisecond UTC form used in output files.
const ISOLayout = "2006-01-02T15:04:05.000Z"

// G2Layout is the display format of G2 review dates ("January 2, 2006").
const G2Layout = "January 2, 2006"

var ErrEmptyDate = errors.New("empty date")

// ParseDate parses ISO dates, RFC 3339 timestamps and the common human
// formats review sites display. Values without a zone are read as UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrEmptyDate
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t.UTC(), nil
}

// ParseG2Date parses the fixed G2 display layout.
func ParseG2Date(raw string) (time.Time, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "Reviewed on "))
	if raw == "" {
		return time.Time{}, ErrEmptyDate
	}
	t, err := time.ParseInLocation(G2Layout, raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse G2 date %q: %w", raw, err)
	}
	return t, nil
}

// FormatISO renders t the way output files store dates.
func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// Range is an inclusive [Start, End] interval.
type Range struct {
	Start time.Time
	End   time.Time
}

// NewRange parses both bounds.
func NewRange(start, end string) (Range, error) {
	s, err := ParseDate(start)
	if err != nil {
		return Range{}, fmt.Errorf("invalid start: %w", err)
	}
	e, err := ParseDate(end)
	if err != nil {
		return Range{}, fmt.Errorf("invalid end: %w", err)
	}
	return Range{Start: s, End: e}, nil
}

// Contains reports whether Start <= t <= End.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Before reports whether t predates the range.
func (r Range) Before(t time.Time) bool {
	return t.Before(r.Start)
}

// Inverted is true when End precedes Start; such a range matches nothing.
func (r Range) Inverted() bool {
	return r.End.Before(r.Start)
}

// IsWithinDateRange reports whether date lies in [start, end]. Any value
// that fails to parse yields false.
func IsWithinDateRange(date, start, end string) bool {
	r, err := NewRange(start, end)
	if err != nil {
		return false
	}
	t, err := ParseDate(date)
	if err != nil {
		return false
	}
	return r.Contains(t)
}

// FilterByDate returns the reviews dated within [start, end], in their
// original order. Unparseable bounds return an empty slice.
func FilterByDate(reviews []models.Review, start, end string) []models.Review {
	r, err := NewRange(start, end)
	if err != nil {
		return []models.Review{}
	}
	return FilterByRange(reviews, r)
}

// FilterByRange is FilterByDate with pre-parsed bounds.
func FilterByRange(reviews []models.Review, r Range) []models.Review {
	return lo.Filter(reviews, func(rv models.Review, _ int) bool {
		t, err := ParseDate(rv.Date)
		return err == nil && r.Contains(t)
	})
}

// Normalize rewrites each review date to ISOLayout and drops reviews whose
// date does not parse.
func Normalize(reviews []models.Review) []models.Review {
	return lo.FilterMap(reviews, func(rv models.Review, _ int) (models.Review, bool) {
		t, err := ParseDate(rv.Date)
		if err != nil {
			return rv, false
		}
		rv.Date = FormatISO(t)
		return rv, true
	})
}
