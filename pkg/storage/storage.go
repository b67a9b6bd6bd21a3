// Package storage reads and writes review output files.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/dtnitsch/review-scraper/models"
)

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Storage struct{}

// OutputPath returns <dir>/<company>_<source>_reviews.<ext>. Company and
// source are used as typed.
func OutputPath(dir, company, source, format string) string {
	ext := FormatJSON
	if strings.EqualFold(format, FormatYAML) {
		ext = FormatYAML
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%s_reviews.%s", company, source, ext))
}

// FormatFromPath guesses the encoding from a file extension.
func FormatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Encode renders reviews as a 2-space indented array. A nil slice encodes
// as an empty array.
func Encode(reviews []models.Review, format string) ([]byte, error) {
	if reviews == nil {
		reviews = []models.Review{}
	}
	switch strings.ToLower(format) {
	case FormatYAML:
		var sb strings.Builder
		enc := yaml.NewEncoder(&sb)
		enc.SetIndent(2)
		if err := enc.Encode(reviews); err != nil {
			return nil, fmt.Errorf("error encoding yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("error encoding yaml: %w", err)
		}
		return []byte(sb.String()), nil
	case FormatJSON, "":
		data, err := json.MarshalIndent(reviews, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("error encoding json: %w", err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("unsupported format %q", format)
}

// Decode parses a file written by Encode.
func Decode(data []byte, format string) ([]models.Review, error) {
	reviews := []models.Review{}
	var err error
	if strings.EqualFold(format, FormatYAML) {
		err = yaml.Unmarshal(data, &reviews)
	} else {
		err = json.Unmarshal(data, &reviews)
	}
	if err != nil {
		return nil, fmt.Errorf("error decoding %s: %w", format, err)
	}
	if reviews == nil {
		reviews = []models.Review{}
	}
	return reviews, nil
}

// SaveReviews encodes reviews and writes them to path, creating the parent
// directory as needed.
func (s *Storage) SaveReviews(path string, reviews []models.Review, format string) error {
	data, err := Encode(reviews, format)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}
	return s.SaveFile(path, data)
}

// LoadReviews reads a review file, picking the decoder from its extension.
func (s *Storage) LoadReviews(path string) ([]models.Review, error) {
	data, err := s.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data, FormatFromPath(path))
}

func (s *Storage) SaveFile(filePath string, content []byte) error {
	if err := os.WriteFile(filePath, content, 0644); err != nil {
		return fmt.Errorf("error saving file: %w", err)
	}
	return nil
}

func (s *Storage) ReadFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	return data, nil
}
