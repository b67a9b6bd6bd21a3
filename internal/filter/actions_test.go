package filter

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtnitsch/review-scraper/models"
	"github.com/dtnitsch/review-scraper/pkg/storage"
)

func TestApply(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "Acme_g2_reviews.json")
	out := filepath.Join(dir, "january.yaml")
	s := &storage.Storage{}

	require.NoError(t, s.SaveReviews(in, []models.Review{
		{Date: "2023-01-15T00:00:00.000Z", Title: "mid"},
		{Date: "2023-02-01T00:00:00.000Z", Title: "late"},
		{Date: "Unknown", Title: "undated"},
	}, storage.FormatJSON))

	kept, total, err := Apply(s, in, out, "2023-01-01", "2023-01-31")
	require.NoError(t, err)
	assert.Equal(t, 1, kept)
	assert.Equal(t, 3, total)

	got, err := s.LoadReviews(out)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "mid", got[0].Title)
}

func TestApply_MissingInput(t *testing.T) {
	_, _, err := Apply(&storage.Storage{}, filepath.Join(t.TempDir(), "none.json"), "x.json", "2023-01-01", "2023-01-31")
	assert.Error(t, err)
}
