// Package cache persists merged counting results as timestamped CSV files
// so past runs can be inspected and served without re-querying BigQuery.
package cache

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/zippowriter/bigquery-dashboard/internal/models"
)

const timestampLayout = "20060102T150405Z"

var header = []string{"project_id", "dataset_id", "table_id", "access_count", "source"}

// ErrNoCachedResult is returned when no cached run exists for a project.
var ErrNoCachedResult = errors.New("no cached result found")

// Store is a directory of cached run results, one CSV per run.
type Store struct {
	dir string
	now func() time.Time
}

// NewStore creates a store rooted at dir. The directory is created lazily
// on first save.
func NewStore(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

// Save writes the merged view of result as a timestamped CSV and returns
// the file path.
func (s *Store) Save(result *models.TableAccessResult) (string, error) {
	if result == nil {
		return "", errors.New("result is nil")
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("create cache directory: %w", err)
	}

	name := fmt.Sprintf("%s-%s.csv", result.ProjectID, s.now().UTC().Format(timestampLayout))
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create cache file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("write cache header: %w", err)
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
			return "", fmt.Errorf("write cache row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("flush cache file: %w", err)
	}
	return path, nil
}

// List returns the cached run files for a project, newest first.
func (s *Store) List(projectID string) ([]string, error) {
	pattern := filepath.Join(s.dir, projectID+"-*.csv")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("list cache files: %w", err)
	}

	// Timestamped names sort chronologically.
	sort.Sort(sort.Reverse(sort.StringSlice(matches)))
	return matches, nil
}

// LoadLatest loads the most recent cached run for a project.
func (s *Store) LoadLatest(projectID string) ([]models.TableAccessCount, time.Time, error) {
	files, err := s.List(projectID)
	if err != nil {
		return nil, time.Time{}, err
	}
	if len(files) == 0 {
		return nil, time.Time{}, ErrNoCachedResult
	}

	counts, err := s.Load(files[0])
	if err != nil {
		return nil, time.Time{}, err
	}

	ts, err := parseTimestamp(files[0], projectID)
	if err != nil {
		return nil, time.Time{}, err
	}
	return counts, ts, nil
}

// Load reads one cached run file.
func (s *Store) Load(path string) ([]models.TableAccessCount, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open cache file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read cache file %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("cache file %s is empty", path)
	}

	var counts []models.TableAccessCount
	for i, record := range records[1:] {
		if len(record) != len(header) {
			return nil, fmt.Errorf("cache file %s: row %d has %d columns, want %d", path, i+1, len(record), len(header))
		}
		count, err := strconv.ParseInt(record[3], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("cache file %s: row %d has invalid access count %q", path, i+1, record[3])
		}
		counts = append(counts, models.TableAccessCount{
			ProjectID:   record[0],
			DatasetID:   record[1],
			TableID:     record[2],
			AccessCount: count,
			Source:      models.DataSource(record[4]),
		})
	}
	return counts, nil
}

func parseTimestamp(path, projectID string) (time.Time, error) {
	base := strings.TrimSuffix(filepath.Base(path), ".csv")
	stamp := strings.TrimPrefix(base, projectID+"-")
	ts, err := time.Parse(timestampLayout, stamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("cache file %s has no parseable timestamp", path)
	}
	return ts, nil
}
