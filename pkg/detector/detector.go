// Package detector recognises pages that are not real review listings:
// bot walls, CAPTCHA interstitials and missing products.
package detector

import "strings"

// Marker is a text fragment whose presence in page HTML means the request
// was blocked.
type Marker struct {
	Text     string
	FoldCase bool // match case-insensitively
}

// G2BlockMarkers are checked against every G2 listing page.
var G2BlockMarkers = []Marker{
	{Text: "Access blocked"},
	{Text: "unusual activity"},
	{Text: "verify you are human", FoldCase: true},
	{Text: "verify you are a human", FoldCase: true},
}

// CapterraBlockMarkers are checked against the Capterra search page.
var CapterraBlockMarkers = []Marker{
	{Text: "captcha"},
	{Text: "Are you a human"},
	{Text: "Access Denied"},
}

// Blocked returns the first marker found in html.
func Blocked(html string, markers []Marker) (Marker, bool) {
	var lower string
	for _, m := range markers {
		if m.FoldCase {
			if lower == "" {
				lower = strings.ToLower(html)
			}
			if strings.Contains(lower, strings.ToLower(m.Text)) {
				return m, true
			}
			continue
		}
		if strings.Contains(html, m.Text) {
			return m, true
		}
	}
	return Marker{}, false
}

// NotFound reports whether a page heading is a "page not found" banner.
func NotFound(heading string) bool {
	return strings.Contains(strings.ToLower(heading), "page not found")
}
