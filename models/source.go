package models

import (
	"fmt"
	"strings"
)

// Source identifies a review site.
type Source string

const (
	SourceG2       Source = "g2"
	SourceCapterra Source = "capterra"
)

// ParseSource resolves a CLI value case-insensitively.
func ParseSource(s string) (Source, error) {
	switch Source(strings.ToLower(strings.TrimSpace(s))) {
	case SourceG2:
		return SourceG2, nil
	case SourceCapterra:
		return SourceCapterra, nil
	}
	return "", fmt.Errorf("invalid source %q: use g2 or capterra", s)
}

// DisplayName is the value written to each review's source field.
func (s Source) DisplayName() string {
	switch s {
	case SourceG2:
		return "G2"
	case SourceCapterra:
		return "Capterra"
	}
	return string(s)
}
