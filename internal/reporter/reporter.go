// Package reporter renders a TableAccessResult as console text, CSV, or
// JSON, and writes the static report bundle served by the dashboard.
package reporter

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/zippowriter/bigquery-dashboard/internal/models"
)

// Formatter renders a counting result into one output format.
type Formatter interface {
	Format(result *models.TableAccessResult) (string, error)
}

// New returns the formatter for a format name.
func New(format string) (Formatter, error) {
	switch format {
	case "text", "":
		return &TextFormatter{}, nil
	case "csv":
		return &CSVFormatter{}, nil
	case "json":
		return &JSONFormatter{}, nil
	default:
		return nil, fmt.Errorf("invalid --format value %q: must be one of text, csv, json", format)
	}
}

// Write renders result with f and sends it to path, or stdout when path
// is empty.
func Write(f Formatter, result *models.TableAccessResult, path string) error {
	rendered, err := f.Format(result)
	if err != nil {
		return err
	}

	if path == "" {
		_, err := fmt.Fprintln(os.Stdout, rendered)
		return err
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(rendered), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// WriteReport writes the JSON result and dashboard assets into dir so the
// serve command can pick them up.
func WriteReport(result *models.TableAccessResult, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	rendered, err := (&JSONFormatter{}).Format(result)
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "result.json"), []byte(rendered), 0644); err != nil {
		return fmt.Errorf("failed to write result.json: %w", err)
	}

	return WriteAssets(dir)
}
