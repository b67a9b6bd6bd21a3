package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/review-scraper/internal/common"
	"github.com/dtnitsch/review-scraper/internal/filter"
	"github.com/dtnitsch/review-scraper/internal/runs"
	"github.com/dtnitsch/review-scraper/internal/scrape"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(2)
	}
}

func newApp() *cli.App {
	globalFlags := []cli.Flag{
		&cli.StringFlag{Name: "config", Usage: "YAML config file"},
		&cli.StringFlag{Name: "db", Usage: "run history database path (default: next to the binary)"},
		&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "only log errors"},
		&cli.StringFlag{Name: "log-format", Value: "text", Usage: "text or json"},
	}

	scrapeFlags := append([]cli.Flag{
		&cli.StringFlag{Name: "company", Usage: "company name as listed on the site"},
		&cli.StringFlag{Name: "start", Usage: "first review date to keep (YYYY-MM-DD)"},
		&cli.StringFlag{Name: "end", Usage: "last review date to keep (YYYY-MM-DD)"},
		&cli.StringFlag{Name: "source", Usage: "g2 or capterra"},
		&cli.StringFlag{Name: "output-dir", Value: "Output", Usage: "directory for the review file"},
		&cli.StringFlag{Name: "format", Value: "json", Usage: "json or yaml"},
		&cli.BoolFlag{Name: "no-db", Usage: "do not record the run"},
		&cli.BoolFlag{Name: "headless", Value: true, Usage: "run Chrome without a window"},
		&cli.BoolFlag{Name: "detect-language", Usage: "tag each review with its language"},
	}, globalFlags...)

	return &cli.App{
		Name:         "review-scraper",
		Usage:        "scrape G2 and Capterra reviews for a company within a date range",
		UsageText:    strings.TrimPrefix(common.Usage, "Usage: "),
		Flags:        scrapeFlags,
		Action:       scrape.ScrapeAction,
		OnUsageError: usageError(common.Usage),
		Commands: []*cli.Command{
			{
				Name:         "runs",
				Usage:        "list recent scrape runs",
				Flags:        append([]cli.Flag{&cli.IntFlag{Name: "limit", Value: 20, Usage: "number of runs to show (0 for all)"}}, globalFlags...),
				Action:       runs.RunsAction,
				OnUsageError: usageError("Usage: review-scraper runs [--limit <n>]"),
			},
			{
				Name:         "run",
				Usage:        "print the reviews stored for a run",
				ArgsUsage:    "<id|run_key>",
				Flags:        globalFlags,
				Action:       runs.RunAction,
				OnUsageError: usageError(runs.RunUsage),
			},
			{
				Name:  "filter",
				Usage: "re-apply a date range to an existing review file",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "in", Usage: "review file to read"},
					&cli.StringFlag{Name: "out", Usage: "file to write (default: overwrite --in)"},
					&cli.StringFlag{Name: "start", Usage: "first date to keep (YYYY-MM-DD)"},
					&cli.StringFlag{Name: "end", Usage: "last date to keep (YYYY-MM-DD)"},
				}, globalFlags...),
				Action:       filter.FilterAction,
				OnUsageError: usageError(filter.Usage),
			},
		},
	}
}

// usageError turns flag parsing failures into the usage message and exit
// code 1, the same as a failed validation.
func usageError(usage string) cli.OnUsageErrorFunc {
	return func(c *cli.Context, err error, _ bool) error {
		fmt.Fprintln(c.App.ErrWriter, "Error:", err)
		return cli.Exit(usage, 1)
	}
}
