package models

// ScrapeRequest holds the validated arguments of a scrape run.
// All values come from CLI flags.
type ScrapeRequest struct {
	Company string `validate:"required"`
	Start   string `validate:"required,reviewdate"`
	End     string `validate:"required,reviewdate"`
	Source  string `validate:"required,oneof=g2 capterra"`
}
