// Package counter reconciles the two data sources into one per-table
// reference-count view and orchestrates a counting run end to end.
package counter

import (
	"sort"

	"github.com/zippowriter/bigquery-dashboard/internal/models"
)

type mergeKey struct {
	project string
	dataset string
	table   string
}

// Merge combines both sources' counts into one reconciled list keyed by
// (project, dataset, table). When a table appears in both inputs the
// merged count is the maximum of the two, not the sum: the sources measure
// access at different granularities (query jobs vs read events) and are
// not additive. Output is sorted by access count descending, full path
// ascending, so identical inputs always produce identical output.
func Merge(a, b []models.TableAccessCount) []models.TableAccessCount {
	maxCounts := make(map[mergeKey]models.TableAccessCount, len(a)+len(b))

	for _, c := range append(append([]models.TableAccessCount{}, a...), b...) {
		key := mergeKey{project: c.ProjectID, dataset: c.DatasetID, table: c.TableID}
		if existing, ok := maxCounts[key]; !ok || c.AccessCount > existing.AccessCount {
			c.Source = models.SourceMerged
			maxCounts[key] = c
		}
	}

	merged := make([]models.TableAccessCount, 0, len(maxCounts))
	for _, c := range maxCounts {
		merged = append(merged, c)
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].AccessCount != merged[j].AccessCount {
			return merged[i].AccessCount > merged[j].AccessCount
		}
		return merged[i].FullPath() < merged[j].FullPath()
	})

	return merged
}
