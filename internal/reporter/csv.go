package reporter

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/zippowriter/bigquery-dashboard/internal/models"
)

// CSVHeader is the column layout of the merged-view CSV output.
var CSVHeader = []string{"project_id", "dataset_id", "table_id", "access_count", "source"}

// CSVFormatter renders the merged view as CSV.
type CSVFormatter struct{}

// Format implements Formatter.
func (f *CSVFormatter) Format(result *models.TableAccessResult) (string, error) {
	if result == nil {
		return "", fmt.Errorf("result is nil")
	}

	var b strings.Builder
	w := csv.NewWriter(&b)

	if err := w.Write(CSVHeader); err != nil {
		return "", fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, access := range result.MergedResults {
		record := []string{
			access.ProjectID,
			access.DatasetID,
			access.TableID,
			strconv.FormatInt(access.AccessCount, 10),
			string(access.Source),
		}
		if err := w.Write(record); err != nil {
			return "", fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush CSV: %w", err)
	}
	return b.String(), nil
}
