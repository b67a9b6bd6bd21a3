package db

import (
	"crypto/sha256"
	"database/sql"
	"fmt"

	"github.com/dtnitsch/review-scraper/models"
)

const (
	bodyFieldReview      = "review"
	bodyFieldDescription = "description"
)

// ContentHash identifies a review within a run by its visible content.
func ContentHash(r models.Review) string {
	h := sha256.New()
	for _, part := range []string{r.Source, r.Date, r.Reviewer, r.Title, r.Body()} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%x", h.Sum(nil)[:8])
}

// InsertReviews stores a run's reviews in order. Duplicate cards within the
// run are stored once. Returns the number of rows inserted.
func (db *DB) InsertReviews(runID int64, reviews []models.Review) (int, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT OR IGNORE INTO reviews
			(run_id, position, content_hash, review_date, title, body, body_field, rating, reviewer, source, language)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare review insert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for i, r := range reviews {
		field, body := bodyFieldReview, r.Review
		if r.Description != "" {
			field, body = bodyFieldDescription, r.Description
		}
		var rating sql.NullString
		if r.Rating != nil {
			rating = sql.NullString{String: *r.Rating, Valid: true}
		}

		result, err := stmt.Exec(runID, i, ContentHash(r), r.Date, r.Title, body, field,
			rating, r.Reviewer, r.Source, NewNullString(r.Language))
		if err != nil {
			return 0, fmt.Errorf("failed to insert review %d: %w", i, err)
		}
		if n, _ := result.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit reviews: %w", err)
	}
	return inserted, nil
}

// GetRunReviews returns a run's reviews in their original order.
func (db *DB) GetRunReviews(runID int64) ([]models.Review, error) {
	rows, err := db.Query(`
		SELECT review_date, title, body, body_field, rating, reviewer, source, language
		FROM reviews
		WHERE run_id = ?
		ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		var r models.Review
		var title, body, reviewer, language, rating sql.NullString
		var field string
		if err := rows.Scan(&r.Date, &title, &body, &field, &rating, &reviewer, &r.Source, &language); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		r.Title = title.String
		r.Reviewer = reviewer.String
		r.Language = language.String
		if field == bodyFieldDescription {
			r.Description = body.String
		} else {
			r.Review = body.String
		}
		if rating.Valid {
			r.Rating = models.StringPtr(rating.String)
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}
