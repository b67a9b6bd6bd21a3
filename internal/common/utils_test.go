package common

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtnitsch/review-scraper/models"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, false, "json")
	logger.Info("Scraping", "company", "Acme")
	assert.Contains(t, buf.String(), `"company":"Acme"`)

	buf.Reset()
	logger = NewLogger(&buf, true, "json")
	logger.Info("hidden")
	logger.Error("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	logger = NewLogger(&buf, false, "text")
	logger.Info("Scraping", "company", "Acme")
	assert.Contains(t, buf.String(), "company=Acme")
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestValidator(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name    string
		req     models.ScrapeRequest
		wantErr string
	}{
		{"valid", models.ScrapeRequest{Company: "Acme", Start: "2024-01-01", End: "2024-01-31", Source: "g2"}, ""},
		{"missing company", models.ScrapeRequest{Start: "2024-01-01", End: "2024-01-31", Source: "g2"}, "--company is required"},
		{"bad start", models.ScrapeRequest{Company: "Acme", Start: "yesterday-ish", End: "2024-01-31", Source: "g2"}, `--start "yesterday-ish" is not a valid date`},
		{"bad source", models.ScrapeRequest{Company: "Acme", Start: "2024-01-01", End: "2024-01-31", Source: "trustpilot"}, "--source must be one of g2 capterra"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.req)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, strings.Contains(ValidationMessage(err), tt.wantErr), ValidationMessage(err))
		})
	}
}
