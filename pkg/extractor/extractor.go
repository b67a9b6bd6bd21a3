// Package extractor pulls review fields out of rendered listing HTML.
package extractor

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/dtnitsch/review-scraper/models"
)

// G2 selectors.
const (
	G2CardSelector     = `[data-testid="review-card"]`
	G2TitleSelector    = `[data-testid="review-title"]`
	G2BodySelector     = `[data-testid="review-body"]`
	G2ReviewerSelector = `[data-testid="consumer-name"]`
	G2RatingSelector   = `[itemprop="ratingValue"]`
	G2DateSelector     = `[data-testid="review-date"]`
	G2NextSelector     = `li.next:not(.disabled) a`
)

// Capterra selectors.
const (
	CapterraProductLinkSelector = `a[href*="/p/"]`
	CapterraReadySelector       = `.e1xzmg0z.c1ofrhif`
	CapterraCardSelector        = `div[class*="e1xzmg0z"]`
	CapterraDateSelector        = `.typo-0`
	CapterraTitleSelector       = `.typo-20`
	CapterraBodySelector        = `p`
	CapterraRatingSelector      = `div[data-testid="rating"] > span:last-of-type`
	CapterraReviewerSelector    = `span.typo-20`
)

const (
	defaultTitle    = "No Title"
	defaultReviewer = "Anonymous"
	unknownDate     = "Unknown"
)

// Parse builds a goquery document from page HTML.
func Parse(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// G2Reviews extracts every review card on a G2 listing page. Date holds the
// raw display date with the "Reviewed on " prefix removed.
func G2Reviews(doc *goquery.Document) []models.Review {
	var reviews []models.Review
	doc.Find(G2CardSelector).Each(func(_ int, card *goquery.Selection) {
		r := models.Review{
			Title:       textOr(card, G2TitleSelector, defaultTitle),
			Description: textOr(card, G2BodySelector, ""),
			Reviewer:    textOr(card, G2ReviewerSelector, defaultReviewer),
			Date:        strings.TrimSpace(strings.ReplaceAll(textOr(card, G2DateSelector, ""), "Reviewed on ", "")),
			Source:      models.SourceG2.DisplayName(),
		}
		if rating, ok := card.Find(G2RatingSelector).First().Attr("content"); ok {
			r.Rating = models.StringPtr(strings.TrimSpace(rating))
		}
		reviews = append(reviews, r)
	})
	return reviews
}

// HasG2Next reports whether an enabled "next page" link exists.
func HasG2Next(doc *goquery.Document) bool {
	return doc.Find(G2NextSelector).Length() > 0
}

// CapterraReviews extracts every rendered review card on a Capterra reviews
// page. Date is the raw display text or "Unknown".
func CapterraReviews(doc *goquery.Document) []models.Review {
	var reviews []models.Review
	doc.Find(CapterraCardSelector).Each(func(_ int, card *goquery.Selection) {
		r := models.Review{
			Date:     textOr(card, CapterraDateSelector, unknownDate),
			Title:    textOr(card, CapterraTitleSelector, ""),
			Review:   textOr(card, CapterraBodySelector, ""),
			Reviewer: textOr(card, CapterraReviewerSelector, defaultReviewer),
			Source:   models.SourceCapterra.DisplayName(),
		}
		if rating := textOr(card, CapterraRatingSelector, ""); rating != "" {
			r.Rating = models.StringPtr(rating)
		}
		reviews = append(reviews, r)
	})
	return reviews
}

// FirstProductLink returns the first product link on a Capterra search page,
// resolved against the page URL.
func FirstProductLink(doc *goquery.Document, pageURL string) (string, bool) {
	href, ok := doc.Find(CapterraProductLinkSelector).First().Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" {
		return "", false
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return href, true
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	return base.ResolveReference(ref).String(), true
}

// ReviewsURL turns a product URL into its reviews tab URL.
func ReviewsURL(productURL string) string {
	return strings.TrimSuffix(productURL, "/") + "/reviews"
}

// textOr returns the trimmed text of the first match, or def when there is
// no match or it is blank.
func textOr(s *goquery.Selection, selector, def string) string {
	sel := s.Find(selector).First()
	if sel.Length() == 0 {
		return def
	}
	text := strings.TrimSpace(sel.Text())
	if text == "" {
		return def
	}
	return text
}
