// Package output persists answer runs as timestamped JSON files.
package output

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"websearch/internal/answer"
	"websearch/internal/logger"
)

// Writer saves answer outputs under a base directory.
type Writer struct {
	directory string
	prefix    string
}

// NewWriter creates a writer. Zero values select "output" and "answer".
func NewWriter(directory, prefix string) *Writer {
	if directory == "" {
		directory = "output"
	}
	if prefix == "" {
		prefix = "answer"
	}
	return &Writer{directory: directory, prefix: prefix}
}

// Write saves the output as pretty-printed JSON and returns the file path.
// Filenames carry a query slug and timestamp so runs never overwrite each
// other.
func (w *Writer) Write(out *answer.Output) (string, error) {
	if err := os.MkdirAll(w.directory, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(w.directory, w.filename(out.Query, time.Now()))

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal output: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write output file: %w", err)
	}

	logger.Info("answer output written", "path", path)
	return path, nil
}

// filename builds "<prefix>_<query-slug>_<timestamp>.json".
func (w *Writer) filename(query string, now time.Time) string {
	timestamp := now.Format("20060102_150405")
	slug := slugify(query)
	if slug == "" {
		return fmt.Sprintf("%s_%s.json", w.prefix, timestamp)
	}
	return fmt.Sprintf("%s_%s_%s.json", w.prefix, slug, timestamp)
}

// slugify keeps alphanumerics from the first 50 characters of the query and
// joins words with underscores.
func slugify(query string) string {
	if len(query) > 50 {
		query = query[:50]
	}
	var b strings.Builder
	for _, r := range query {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(strings.ToLower(b.String())), "_")
}
