package runs

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/review-scraper/internal/scrape"
	"github.com/dtnitsch/review-scraper/pkg/config"
	dbpkg "github.com/dtnitsch/review-scraper/pkg/db"
	"github.com/dtnitsch/review-scraper/pkg/storage"
)

// RunUsage is printed when the run subcommand is misused.
const RunUsage = "Usage: review-scraper run <id|run_key>"

func openDB(c *cli.Context) (*dbpkg.DB, error) {
	path := c.String("db")
	if path == "" {
		cfg, err := config.Load(c.String("config"))
		if err != nil {
			return nil, err
		}
		path = cfg.Output.DBPath
	}
	database, err := dbpkg.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, nil
}

// RunsAction lists recent runs.
func RunsAction(c *cli.Context) error {
	database, err := openDB(c)
	if err != nil {
		return err
	}
	defer database.Close()

	runs, err := database.ListRuns(c.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	if len(runs) == 0 {
		fmt.Println("No runs found")
		return nil
	}

	RenderRuns(os.Stdout, runs)
	fmt.Printf("\nTip: Use 'review-scraper run <id|run_key>' to print a run's reviews\n")
	return nil
}

// RenderRuns writes runs as a table.
func RenderRuns(w io.Writer, runs []dbpkg.Run) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"ID", "Created", "Company", "Source", "Range", "Status", "Scraped", "Kept", "Took", "Output"})

	for _, r := range runs {
		took := "-"
		if d := r.Duration(); d > 0 {
			took = d.Round(time.Second).String()
		}
		output := r.OutputPath
		if r.Status == dbpkg.StatusFailed {
			output = r.ErrorMessage
		}
		t.AppendRow(table.Row{
			r.RunID,
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			r.Company,
			r.Source,
			r.RangeStart + " .. " + r.RangeEnd,
			r.Status,
			r.ScrapedCount,
			r.KeptCount,
			took,
			output,
		})
	}

	t.AppendFooter(table.Row{"", "", "", "", "", "Total", len(runs)})
	t.SetStyle(table.StyleRounded)
	t.Render()
}

// RunAction prints the reviews stored for one run as JSON. The run is
// addressed by its numeric id or its run key.
func RunAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit(RunUsage, 1)
	}

	database, err := openDB(c)
	if err != nil {
		return err
	}
	defer database.Close()

	run, err := FindRun(database, c.Args().First())
	if err != nil {
		return err
	}
	reviews, err := database.GetRunReviews(run.RunID)
	if err != nil {
		return err
	}

	data, err := storage.Encode(reviews, storage.FormatJSON)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Run %d: %s on %s, %s .. %s, %d reviews\n",
		run.RunID, run.Company, run.Source, run.RangeStart, run.RangeEnd, len(reviews))
	if len(reviews) > 0 {
		fmt.Fprintf(os.Stderr, "Top keywords: %s\n", scrape.KeywordSummary(reviews, 10))
	}
	fmt.Println(string(data))
	return nil
}

// FindRun resolves ref as a numeric run id, falling back to a run key.
func FindRun(database *dbpkg.DB, ref string) (*dbpkg.Run, error) {
	ref = strings.TrimSpace(ref)
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return database.GetRun(id)
	}
	return database.GetRunByKey(ref)
}
