package filter

import (
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/review-scraper/internal/common"
	"github.com/dtnitsch/review-scraper/models"
	"github.com/dtnitsch/review-scraper/pkg/dates"
	"github.com/dtnitsch/review-scraper/pkg/storage"
)

// Usage is printed when the filter subcommand is misused.
const Usage = "Usage: review-scraper filter --in <file> --start <YYYY-MM-DD> --end <YYYY-MM-DD> [--out <file>]"

// FilterAction re-applies a date range to an existing output file.
func FilterAction(c *cli.Context) error {
	logger := common.NewLogger(os.Stderr, c.Bool("quiet"), c.String("log-format"))

	in := strings.TrimSpace(c.String("in"))
	if in == "" {
		fmt.Fprintln(os.Stderr, "Error: --in is required")
		return cli.Exit(Usage, 1)
	}
	start, end := strings.TrimSpace(c.String("start")), strings.TrimSpace(c.String("end"))
	if _, err := dates.NewRange(start, end); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return cli.Exit(Usage, 1)
	}

	out := c.String("out")
	if out == "" {
		out = in
	}

	kept, total, err := Apply(&storage.Storage{}, in, out, start, end)
	if err != nil {
		logger.Error("failed to filter reviews", "error", err)
		return cli.Exit(err.Error(), 1)
	}
	logger.Info("Filtered reviews", "in", in, "out", out, "total", total, "kept", kept)
	return nil
}

// Apply loads in, keeps reviews inside [start, end] and writes them to out.
// Records with unparseable dates are dropped.
func Apply(s *storage.Storage, in, out, start, end string) (kept, total int, err error) {
	reviews, err := s.LoadReviews(in)
	if err != nil {
		return 0, 0, err
	}
	filtered := dates.FilterByDate(dates.Normalize(reviews), start, end)
	if filtered == nil {
		filtered = []models.Review{}
	}
	if err := s.SaveReviews(out, filtered, storage.FormatFromPath(out)); err != nil {
		return 0, 0, err
	}
	return len(filtered), len(reviews), nil
}
