package counter

import (
	"github.com/zippowriter/bigquery-dashboard/internal/models"
	"github.com/zippowriter/bigquery-dashboard/pkg/config"
)

// ApplyFilters drops merged entries below the minimum access count and
// outside the dataset/table filters. Applied to the merged view only; the
// raw per-source lists stay unfiltered for auditability.
func ApplyFilters(results []models.TableAccessCount, fc config.FilterConfig) []models.TableAccessCount {
	filtered := make([]models.TableAccessCount, 0, len(results))
	for _, r := range results {
		if r.AccessCount < fc.MinAccessCount {
			continue
		}
		if !fc.MatchesDataset(r.DatasetID) {
			continue
		}
		if !fc.MatchesTable(r.TableID) {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}
