package reporter

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/zippowriter/bigquery-dashboard/internal/models"
)

// jsonReport is the wire shape of the JSON output. Warnings are always
// present (an empty array, never null) so consumers can index blindly.
type jsonReport struct {
	StartDate     string                    `json:"start_date"`
	EndDate       string                    `json:"end_date"`
	ProjectID     string                    `json:"project_id"`
	Warnings      []string                  `json:"warnings"`
	TableAccesses []models.TableAccessCount `json:"table_accesses"`
}

// JSONFormatter renders the result as an indented JSON object.
type JSONFormatter struct{}

// Format implements Formatter.
func (f *JSONFormatter) Format(result *models.TableAccessResult) (string, error) {
	if result == nil {
		return "", fmt.Errorf("result is nil")
	}

	report := jsonReport{
		StartDate:     result.StartDate.UTC().Format(time.RFC3339),
		EndDate:       result.EndDate.UTC().Format(time.RFC3339),
		ProjectID:     result.ProjectID,
		Warnings:      result.Warnings,
		TableAccesses: result.MergedResults,
	}
	if report.Warnings == nil {
		report.Warnings = []string{}
	}
	if report.TableAccesses == nil {
		report.TableAccesses = []models.TableAccessCount{}
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal result to JSON: %w", err)
	}
	return string(data), nil
}
