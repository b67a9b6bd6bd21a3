package scrape

import (
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/review-scraper/models"
	"github.com/dtnitsch/review-scraper/pkg/config"
	"github.com/dtnitsch/review-scraper/pkg/db"
)

// history records runs in the database. A nil *history is a no-op, and
// failures are logged as warnings.
type history struct {
	db     *db.DB
	logger *slog.Logger
}

func openHistory(c *cli.Context, cfg config.Config, logger *slog.Logger) *history {
	if c.Bool("no-db") {
		return nil
	}
	database, err := db.Open(cfg.Output.DBPath)
	if err != nil {
		logger.Warn("Run history disabled", "error", err)
		return nil
	}
	return &history{db: database, logger: logger}
}

func (h *history) Close() {
	if h == nil {
		return
	}
	_ = h.db.Close()
}

func (h *history) start(runKey string, req models.ScrapeRequest) int64 {
	if h == nil {
		return 0
	}
	runID, err := h.db.CreateRun(runKey, req.Company, req.Source, req.Start, req.End)
	if err != nil {
		h.logger.Warn("Failed to record run", "error", err)
		return 0
	}
	return runID
}

func (h *history) saveReviews(runID int64, reviews []models.Review) {
	if h == nil || runID == 0 {
		return
	}
	if _, err := h.db.InsertReviews(runID, reviews); err != nil {
		h.logger.Warn("Failed to record reviews", "error", err)
	}
}

func (h *history) finish(runID int64, res db.RunResult) {
	if h == nil || runID == 0 {
		return
	}
	if err := h.db.FinishRun(runID, res); err != nil {
		h.logger.Warn("Failed to finish run", "error", err)
	}
}
