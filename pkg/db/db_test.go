package db

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/dtnitsch/review-scraper/models"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	// Use in-memory database for tests
	database := &DB{path: ":memory:"}
	var err error
	database.DB, err = openDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	// every pooled connection would get its own empty in-memory database
	database.SetMaxOpenConns(1)

	if err := database.InitSchema(); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}

	return database
}

func TestOpen_CreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "runs.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
	if _, err := db.CreateRun("k1", "Acme", "g2", "2024-01-01", "2024-01-31"); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}
	db.Close()

	// reopening keeps existing rows
	db, err = Open(path)
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	defer db.Close()
	runs, err := db.ListRuns(0)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("len(runs) = %d, want 1", len(runs))
	}
}

func TestCreateAndFinishRun(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	runID, err := db.CreateRun("cr0h4k6f1mg0o1b1ru80", "Acme", "g2", "2024-01-01", "2024-01-31")
	if err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	run, err := db.GetRun(runID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if run.Status != StatusRunning {
		t.Errorf("Status = %q, want %q", run.Status, StatusRunning)
	}
	if run.FinishedAt.Valid {
		t.Error("FinishedAt set on a running run")
	}
	if run.Duration() != 0 {
		t.Errorf("Duration() = %v, want 0", run.Duration())
	}

	err = db.FinishRun(runID, RunResult{
		Status:       StatusSuccess,
		ScrapedCount: 12,
		KeptCount:    4,
		OutputPath:   "Output/Acme_g2_reviews.json",
	})
	if err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}

	run, err = db.GetRunByKey("cr0h4k6f1mg0o1b1ru80")
	if err != nil {
		t.Fatalf("GetRunByKey() error = %v", err)
	}
	if run.Status != StatusSuccess || run.ScrapedCount != 12 || run.KeptCount != 4 {
		t.Errorf("run = %+v, want success 12/4", run)
	}
	if run.OutputPath != "Output/Acme_g2_reviews.json" {
		t.Errorf("OutputPath = %q", run.OutputPath)
	}
	if !run.FinishedAt.Valid {
		t.Error("FinishedAt not set")
	}
	if run.ErrorMessage != "" {
		t.Errorf("ErrorMessage = %q, want empty", run.ErrorMessage)
	}
}

func TestFinishRun_Failed(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	runID, _ := db.CreateRun("k", "Acme", "capterra", "2024-01-01", "2024-01-31")
	if err := db.FinishRun(runID, RunResult{Status: StatusFailed, Err: errors.New("failed to launch browser")}); err != nil {
		t.Fatalf("FinishRun() error = %v", err)
	}

	run, err := db.GetRun(runID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if run.ErrorMessage != "failed to launch browser" {
		t.Errorf("ErrorMessage = %q", run.ErrorMessage)
	}
}

func TestRunNotFound(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	if _, err := db.GetRun(99); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetRun() error = %v, want ErrRunNotFound", err)
	}
	if _, err := db.GetRunByKey("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetRunByKey() error = %v, want ErrRunNotFound", err)
	}
	if err := db.FinishRun(99, RunResult{Status: StatusSuccess}); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("FinishRun() error = %v, want ErrRunNotFound", err)
	}
}

func TestCreateRun_DuplicateKey(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	if _, err := db.CreateRun("same", "Acme", "g2", "2024-01-01", "2024-01-31"); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}
	if _, err := db.CreateRun("same", "Acme", "g2", "2024-01-01", "2024-01-31"); err == nil {
		t.Error("CreateRun() with duplicate key succeeded")
	}
}

func TestListRuns(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	for _, key := range []string{"a", "b", "c"} {
		if _, err := db.CreateRun(key, "Acme", "g2", "2024-01-01", "2024-01-31"); err != nil {
			t.Fatalf("CreateRun(%s) error = %v", key, err)
		}
	}

	tests := []struct {
		name     string
		limit    int
		wantKeys []string
	}{
		{"all", 0, []string{"c", "b", "a"}},
		{"limited", 2, []string{"c", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := db.ListRuns(tt.limit)
			if err != nil {
				t.Fatalf("ListRuns() error = %v", err)
			}
			if len(runs) != len(tt.wantKeys) {
				t.Fatalf("len(runs) = %d, want %d", len(runs), len(tt.wantKeys))
			}
			for i, want := range tt.wantKeys {
				if runs[i].RunKey != want {
					t.Errorf("runs[%d].RunKey = %q, want %q", i, runs[i].RunKey, want)
				}
			}
		})
	}
}

func TestInsertAndGetReviews(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	runID, _ := db.CreateRun("k", "Acme", "g2", "2024-01-01", "2024-12-31")
	reviews := []models.Review{
		{Date: "2024-03-05T00:00:00.000Z", Title: "Great", Description: "Works well", Rating: models.StringPtr("5"), Reviewer: "Pat", Source: "G2", Language: "en"},
		{Date: "2024-02-01T00:00:00.000Z", Title: "Fine", Review: "Does the job", Reviewer: "Anonymous", Source: "Capterra"},
		// duplicate card rendered twice on the page
		{Date: "2024-03-05T00:00:00.000Z", Title: "Great", Description: "Works well", Rating: models.StringPtr("5"), Reviewer: "Pat", Source: "G2", Language: "en"},
	}

	n, err := db.InsertReviews(runID, reviews)
	if err != nil {
		t.Fatalf("InsertReviews() error = %v", err)
	}
	if n != 2 {
		t.Errorf("InsertReviews() inserted %d, want 2", n)
	}

	got, err := db.GetRunReviews(runID)
	if err != nil {
		t.Fatalf("GetRunReviews() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
	if got[0].Description != "Works well" || got[0].Review != "" {
		t.Errorf("got[0] body fields = %q / %q", got[0].Description, got[0].Review)
	}
	if got[0].Rating == nil || *got[0].Rating != "5" {
		t.Errorf("got[0].Rating = %v, want 5", got[0].Rating)
	}
	if got[0].Language != "en" {
		t.Errorf("got[0].Language = %q, want en", got[0].Language)
	}
	if got[1].Review != "Does the job" || got[1].Description != "" {
		t.Errorf("got[1] body fields = %q / %q", got[1].Review, got[1].Description)
	}
	if got[1].Rating != nil {
		t.Errorf("got[1].Rating = %v, want nil", *got[1].Rating)
	}
}

func TestGetRunReviews_Empty(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	got, err := db.GetRunReviews(42)
	if err != nil {
		t.Fatalf("GetRunReviews() error = %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("GetRunReviews() = %v, want empty non-nil slice", got)
	}
}

func TestContentHash(t *testing.T) {
	a := models.Review{Date: "d", Title: "t", Description: "b", Reviewer: "r", Source: "G2"}
	b := a
	b.Title = "other"

	if ContentHash(a) != ContentHash(a) {
		t.Error("ContentHash not stable")
	}
	if ContentHash(a) == ContentHash(b) {
		t.Error("ContentHash ignores title")
	}
	if len(ContentHash(a)) != 16 {
		t.Errorf("len(ContentHash) = %d, want 16", len(ContentHash(a)))
	}
}
