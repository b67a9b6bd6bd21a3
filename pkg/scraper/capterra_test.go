package scraper

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	capterraHost    = "http://capterra.test"
	capterraSearch  = capterraHost + "/search/?query=Acme+Corp"
	capterraReviews = capterraHost + "/p/42/Acme/reviews"
)

const capterraSearchPage = `<html><body>
<a href="/categories/crm">CRM</a>
<a href="/p/42/Acme/">Acme</a>
</body></html>`

const capterraReviewsPage = `<html><body>
<div class="e1xzmg0z c1ofrhif">
  <span class="typo-20">Sam K.</span>
  <div class="typo-0">Jan 12, 2024</div>
  <div data-testid="rating"><span>Overall</span><span>5.0</span></div>
  <p>Support is responsive.</p>
</div>
<div class="e1xzmg0z c1ofrhif">
  <p>Reporting could be better.</p>
</div>
</body></html>`

func newTestCapterra(b *fakeBrowser, a *fakeArtifacts) *Capterra {
	deps := Deps{Launch: b.launcher(), Logger: testLogger(), Options: testOptions()}
	if a != nil {
		deps.Artifacts = a
	}
	return NewCapterra(deps).WithBaseURL(capterraHost)
}

func TestCapterra_Scrape(t *testing.T) {
	b := newFakeBrowser(map[string]string{
		capterraSearch:  capterraSearchPage,
		capterraReviews: capterraReviewsPage,
	})

	got, err := newTestCapterra(b, nil).Scrape(context.Background(), Query{Company: "Acme Corp"})
	require.NoError(t, err)

	assert.Equal(t, []string{capterraSearch, capterraReviews}, b.navigations)
	assert.Equal(t, 2, b.scrolls)
	assert.True(t, b.closed)

	require.Len(t, got, 2)
	assert.Equal(t, "Jan 12, 2024", got[0].Date)
	assert.Equal(t, "Support is responsive.", got[0].Review)
	assert.Equal(t, "Capterra", got[0].Source)
	require.NotNil(t, got[0].Rating)
	assert.Equal(t, "5.0", *got[0].Rating)

	assert.Equal(t, "Unknown", got[1].Date)
	assert.Nil(t, got[1].Rating)
}

func TestCapterra_Blocked(t *testing.T) {
	b := newFakeBrowser(map[string]string{
		capterraSearch: `<html><body><div id="captcha">Are you a human?</div></body></html>`,
	})
	a := &fakeArtifacts{}

	got, err := newTestCapterra(b, a).Scrape(context.Background(), Query{Company: "Acme Corp"})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, []string{"capterra_error_acme-corp.png"}, a.screenshots)
	assert.Equal(t, []string{capterraSearch}, a.snapshots)
}

func TestCapterra_NoProductLink(t *testing.T) {
	b := newFakeBrowser(map[string]string{
		capterraSearch: `<html><body><p>No results for Acme Corp</p></body></html>`,
	})
	a := &fakeArtifacts{}

	got, err := newTestCapterra(b, a).Scrape(context.Background(), Query{Company: "Acme Corp"})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, []string{capterraSearch}, b.navigations)
	assert.Equal(t, []string{"capterra_error_acme-corp.png"}, a.screenshots)
}

func TestCapterra_ReviewsNeverRender(t *testing.T) {
	b := newFakeBrowser(map[string]string{
		capterraSearch:  capterraSearchPage,
		capterraReviews: `<html><body><p>Loading</p></body></html>`,
	})

	got, err := newTestCapterra(b, nil).Scrape(context.Background(), Query{Company: "Acme Corp"})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Zero(t, b.scrolls)
}

func TestCapterra_LaunchFailure(t *testing.T) {
	c := NewCapterra(Deps{
		Launch: func(ctx context.Context) (Browser, error) { return nil, errors.New("chrome not found") },
		Logger: testLogger(),
	})

	_, err := c.Scrape(context.Background(), Query{Company: "Acme Corp"})
	assert.ErrorContains(t, err, "chrome not found")
}
