package reporter

import (
	"fmt"
	"strings"

	"github.com/zippowriter/bigquery-dashboard/internal/models"
)

// TextFormatter renders the merged view as a fixed-width console table,
// warnings first.
type TextFormatter struct{}

// Format implements Formatter.
func (f *TextFormatter) Format(result *models.TableAccessResult) (string, error) {
	if result == nil {
		return "", fmt.Errorf("result is nil")
	}

	var b strings.Builder

	for _, warning := range result.Warnings {
		fmt.Fprintf(&b, "[WARNING] %s\n", warning)
	}
	if len(result.Warnings) > 0 {
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Table references for %s (%s to %s)\n",
		result.ProjectID,
		result.StartDate.UTC().Format("2006-01-02"),
		result.EndDate.UTC().Format("2006-01-02"))
	b.WriteString(textHeader())
	b.WriteString(textSeparator())

	for _, access := range result.MergedResults {
		b.WriteString(textRow(access))
	}

	fmt.Fprintf(&b, "\n%d tables\n", len(result.MergedResults))
	return b.String(), nil
}

func textHeader() string {
	return fmt.Sprintf("%-20s | %-20s | %-30s | %12s | %-12s\n",
		"project_id", "dataset_id", "table_id", "access_count", "source")
}

func textSeparator() string {
	return strings.Repeat("-", 106) + "\n"
}

func textRow(access models.TableAccessCount) string {
	return fmt.Sprintf("%-20s | %-20s | %-30s | %12d | %-12s\n",
		access.ProjectID, access.DatasetID, access.TableID, access.AccessCount, access.Source)
}
