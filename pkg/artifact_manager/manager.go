package artifact_manager

import (
	"crypto/sha256"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

const (
	DefaultBaseDir = "artifacts"
	ScreenshotsDir = "screenshots"
	SnapshotsDir   = "snapshots"
)

// GetRunDir returns the directory holding one run's captures.
// Example: artifacts/cr0h4k6f1mg0o1b1ru80/
func GetRunDir(baseDir, runKey string) string {
	if baseDir == "" {
		baseDir = DefaultBaseDir
	}
	return filepath.Join(baseDir, runKey)
}

// Manager stores debugging captures (screenshots and page HTML) for a run.
type Manager struct {
	runDir string
}

// NewManager creates the run directory and its subdirectories.
func NewManager(baseDir, runKey string) (*Manager, error) {
	if runKey == "" {
		return nil, fmt.Errorf("run key is required")
	}
	runDir := GetRunDir(baseDir, runKey)
	for _, sub := range []string{ScreenshotsDir, SnapshotsDir} {
		if err := os.MkdirAll(filepath.Join(runDir, sub), 0750); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", sub, err)
		}
	}
	return &Manager{runDir: runDir}, nil
}

// RunDir returns the directory this manager writes into.
func (m *Manager) RunDir() string {
	return m.runDir
}

// SaveScreenshot writes a PNG under screenshots/ and returns its path.
func (m *Manager) SaveScreenshot(name string, png []byte) (string, error) {
	name = filepath.Base(name)
	if !strings.HasSuffix(name, ".png") {
		name += ".png"
	}
	filePath := filepath.Join(m.runDir, ScreenshotsDir, name)
	if err := os.WriteFile(filePath, png, 0600); err != nil {
		return "", fmt.Errorf("failed to write screenshot: %w", err)
	}
	return filePath, nil
}

// SaveSnapshot writes page HTML under snapshots/, named after the URL.
func (m *Manager) SaveSnapshot(pageURL, html string) (string, error) {
	filePath, err := m.GetArtifactPath(SnapshotsDir, pageURL, ".html")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filePath, []byte(html), 0600); err != nil {
		return "", fmt.Errorf("failed to write page snapshot: %w", err)
	}
	return filePath, nil
}

// GetArtifactPath builds "<slug>-<hash><ext>" inside artifactDir. The hash
// is taken over the normalized URL so equivalent URLs share a file.
func (m *Manager) GetArtifactPath(artifactDir, rawURL, ext string) (string, error) {
	normalizedURL, err := normalizeURL(rawURL)
	if err != nil {
		return "", err
	}
	slug := sanitizeSlug(rawURL)
	filename := fmt.Sprintf("%s-%s%s", slug, getShortHash(normalizedURL), ext)
	return filepath.Join(m.runDir, artifactDir, filename), nil
}

// normalizeURL creates a canonical representation of a URL for consistent hashing.
func normalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}

	if u.Scheme == "http" {
		u.Scheme = "https"
	}
	u.Host = strings.ToLower(u.Host)

	if u.RawQuery != "" {
		params := u.Query()
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sorted := url.Values{}
		for _, k := range keys {
			for _, v := range params[k] {
				sorted.Add(k, v)
			}
		}
		u.RawQuery = sorted.Encode()
	}
	u.Fragment = ""

	return u.String(), nil
}

// getShortHash returns 12 hex chars of the URL's sha256.
func getShortHash(normalizedURL string) string {
	hash := sha256.Sum256([]byte(normalizedURL))
	return fmt.Sprintf("%x", hash[:6])
}

var invalidFilenameChar = regexp.MustCompile(`[^a-zA-Z0-9\-_]+`)

// sanitizeSlug creates a filesystem-safe slug from a URL's host and path.
func sanitizeSlug(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		safe := invalidFilenameChar.ReplaceAllString(rawURL, "_")
		return strings.Trim(safe, "_")
	}

	hostPart := strings.ReplaceAll(u.Host, ".", "_")
	pathPart := strings.TrimPrefix(u.Path, "/")
	pathPart = invalidFilenameChar.ReplaceAllString(pathPart, "_")
	pathPart = strings.Trim(pathPart, "_")

	if pathPart == "" {
		return hostPart
	}
	return fmt.Sprintf("%s_%s", hostPart, pathPart)
}
