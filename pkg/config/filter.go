package config

import (
	"regexp"
	"strings"
	"time"

	"github.com/zippowriter/bigquery-dashboard/internal/bqerr"
)

const (
	// DefaultDays is the lookback window used when no explicit range is given.
	DefaultDays = 30
	// InfoSchemaRetentionDays is the upstream retention ceiling for
	// INFORMATION_SCHEMA.JOBS_BY_PROJECT. Windows beyond it are accepted but
	// produce a warning; older data is simply unavailable.
	InfoSchemaRetentionDays = 180
)

// FilterConfig restricts which table accesses are counted and reported.
// Construct with NewFilterConfig so the table pattern is compiled and
// validated up front; a zero value with Days set is also usable when no
// pattern is present.
type FilterConfig struct {
	Days           int
	StartDate      time.Time
	EndDate        time.Time
	DatasetFilter  string
	TablePattern   string
	MinAccessCount int64

	tableRe *regexp.Regexp
}

// NewFilterConfig validates the parameters and compiles the table pattern.
// Malformed patterns fail here, never at filter-application time.
func NewFilterConfig(days int, start, end time.Time, datasetFilter, tablePattern string, minAccessCount int64) (FilterConfig, error) {
	fc := FilterConfig{
		Days:           days,
		StartDate:      start,
		EndDate:        end,
		DatasetFilter:  strings.TrimSpace(datasetFilter),
		TablePattern:   strings.TrimSpace(tablePattern),
		MinAccessCount: minAccessCount,
	}
	if fc.Days == 0 {
		fc.Days = DefaultDays
	}

	if fc.Days < 0 {
		return FilterConfig{}, bqerr.Validation("days must be positive, got %d", fc.Days)
	}
	if fc.MinAccessCount < 0 {
		return FilterConfig{}, bqerr.Validation("min access count must be >= 0, got %d", fc.MinAccessCount)
	}
	if fc.StartDate.IsZero() != fc.EndDate.IsZero() {
		return FilterConfig{}, bqerr.Validation("start date and end date must be given together")
	}
	if !fc.StartDate.IsZero() && !fc.StartDate.Before(fc.EndDate) {
		return FilterConfig{}, bqerr.Validation("start date %s must be before end date %s",
			fc.StartDate.Format(time.RFC3339), fc.EndDate.Format(time.RFC3339))
	}

	if fc.TablePattern != "" {
		re, err := regexp.Compile(fc.TablePattern)
		if err != nil {
			return FilterConfig{}, bqerr.Validation("invalid table pattern %q: %v", fc.TablePattern, err)
		}
		fc.tableRe = re
	}

	return fc, nil
}

// HasExplicitRange reports whether an explicit start/end pair is set.
func (f FilterConfig) HasExplicitRange() bool {
	return !f.StartDate.IsZero() && !f.EndDate.IsZero()
}

// EffectiveRange returns the explicit range, or [now-Days, now) when no
// explicit bounds are set.
func (f FilterConfig) EffectiveRange(now time.Time) (time.Time, time.Time) {
	if f.HasExplicitRange() {
		return f.StartDate, f.EndDate
	}
	return now.AddDate(0, 0, -f.Days), now
}

// ExceedsRetention reports whether the effective window reaches past the
// INFORMATION_SCHEMA retention ceiling.
func (f FilterConfig) ExceedsRetention(now time.Time) bool {
	start, end := f.EffectiveRange(now)
	return end.Sub(start) > InfoSchemaRetentionDays*24*time.Hour
}

// MatchesDataset reports whether datasetID passes the dataset filter.
// The filter matches exactly or as a prefix.
func (f FilterConfig) MatchesDataset(datasetID string) bool {
	if f.DatasetFilter == "" {
		return true
	}
	return datasetID == f.DatasetFilter || strings.HasPrefix(datasetID, f.DatasetFilter)
}

// MatchesTable reports whether tableID passes the table pattern.
func (f FilterConfig) MatchesTable(tableID string) bool {
	if f.tableRe == nil {
		return true
	}
	return f.tableRe.MatchString(tableID)
}
