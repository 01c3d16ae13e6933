package reporter

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
)

//go:embed web
var webAssets embed.FS

// WriteAssets writes the static dashboard files next to result.json so the
// serve command can present the report in a browser.
func WriteAssets(outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	for _, file := range []string{"index.html"} {
		data, err := webAssets.ReadFile("web/" + file)
		if err != nil {
			return fmt.Errorf("failed to read embedded asset %s: %w", file, err)
		}
		dst := filepath.Join(outputDir, file)
		if err := os.WriteFile(dst, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", file, err)
		}
	}

	return nil
}
