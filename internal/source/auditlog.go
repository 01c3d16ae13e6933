package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/logging"
	"cloud.google.com/go/logging/logadmin"
	"google.golang.org/api/iterator"
	"google.golang.org/genproto/googleapis/cloud/audit"

	"github.com/zippowriter/bigquery-dashboard/internal/bqerr"
	"github.com/zippowriter/bigquery-dashboard/internal/models"
	"github.com/zippowriter/bigquery-dashboard/pkg/config"
)

const (
	// AuditLogName identifies the audit-log source in warnings and errors.
	AuditLogName = "Cloud Audit Logs"

	auditLogRole = "roles/logging.viewer"
)

// resourceNamePattern matches fully-qualified BigQuery table resource names
// found in tableDataRead audit entries.
var resourceNamePattern = regexp.MustCompile(
	`projects/(?P<project>[^/]+)/datasets/(?P<dataset>[^/]+)/tables/(?P<table>[^/]+)`)

type entryIterator interface {
	Next() (*logging.Entry, error)
}

type entryLister interface {
	Entries(ctx context.Context, filter string) entryIterator
}

type logadminLister struct {
	client *logadmin.Client
}

func (l logadminLister) Entries(ctx context.Context, filter string) entryIterator {
	return l.client.Entries(ctx, logadmin.Filter(filter))
}

// AuditLog counts per-table read events via Cloud Audit Log tableDataRead
// entries. One unit of access is one read event, which is finer-grained
// than a query job; counts from this source are not comparable one-to-one
// with INFORMATION_SCHEMA counts.
type AuditLog struct {
	lister  entryLister
	limiter *RateLimiter
	retry   retryConfig
	now     func() time.Time
}

// NewAuditLog creates the audit-log adapter. rps bounds how fast log pages
// are pulled from the Cloud Logging API.
func NewAuditLog(client *logadmin.Client, rps, maxRetries int) *AuditLog {
	return &AuditLog{
		lister:  logadminLister{client: client},
		limiter: NewRateLimiter(rps),
		retry:   defaultRetryConfig(maxRetries),
		now:     time.Now,
	}
}

// Name implements Source.
func (s *AuditLog) Name() string { return AuditLogName }

// FetchTableAccess implements Source.
func (s *AuditLog) FetchTableAccess(ctx context.Context, projectID string, fc config.FilterConfig, onProgress Progress) ([]models.TableAccessCount, error) {
	if err := validateProjectID(projectID); err != nil {
		return nil, err
	}

	filter := buildLogFilter(fc, s.now())
	slog.Debug("listing audit log entries", slog.String("project", projectID), slog.String("filter", filter))

	counts := make(map[models.TableAccessCount]int64)
	processed := 0

	it := s.lister.Entries(ctx, filter)
	for {
		entry, err := s.nextEntry(ctx, it)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, classifyAPIError(err, AuditLogName, auditLogRole)
		}

		processed++
		if name := extractResourceName(entry); name != "" {
			if key, ok := parseResourceName(name); ok {
				counts[key]++
			}
		}

		// Total entry count is unknown until the iterator is drained.
		reportProgress(onProgress, processed, processed,
			fmt.Sprintf("%s: processed %d log entries", AuditLogName, processed))
	}

	if len(counts) == 0 {
		enabled, err := s.probeDataAccessLogs(ctx, projectID, fc)
		if err != nil {
			return nil, classifyAPIError(err, AuditLogName, auditLogRole)
		}
		if !enabled {
			return nil, bqerr.NotEnabled(AuditLogName)
		}
		// Logging is on and the tables were genuinely idle.
	}

	results := aggregateCounts(counts)
	reportProgress(onProgress, processed, processed,
		fmt.Sprintf("%s: done (%d tables)", AuditLogName, len(results)))
	return results, nil
}

// nextEntry pulls one entry through the rate limiter, retrying
// rate-limited responses with bounded backoff.
func (s *AuditLog) nextEntry(ctx context.Context, it entryIterator) (*logging.Entry, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var entry *logging.Entry
	err := executeWithRetry(ctx, s.retry, AuditLogName, func() error {
		var nextErr error
		entry, nextErr = it.Next()
		if errors.Is(nextErr, iterator.Done) {
			return nextErr
		}
		return nextErr
	})
	return entry, err
}

// probeDataAccessLogs checks whether any BigQuery audit entries exist at
// all in the window. Zero tableDataRead hits with other BigQuery audit
// activity present is a valid empty result; zero audit entries of any kind
// means Data Access logging is off for the project.
func (s *AuditLog) probeDataAccessLogs(ctx context.Context, projectID string, fc config.FilterConfig) (bool, error) {
	start, _ := fc.EffectiveRange(s.now())
	filter := fmt.Sprintf(
		`resource.type="bigquery_dataset" AND timestamp>=%q`,
		start.UTC().Format(time.RFC3339))

	it := s.lister.Entries(ctx, filter)
	_, err := s.nextEntry(ctx, it)
	if errors.Is(err, iterator.Done) {
		slog.Debug("no BigQuery audit entries found during capability probe",
			slog.String("project", projectID))
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// buildLogFilter renders the Cloud Logging filter expression for
// tableDataRead events within the effective window.
func buildLogFilter(fc config.FilterConfig, now time.Time) string {
	filters := []string{
		`resource.type="bigquery_dataset"`,
		`protoPayload.metadata.tableDataRead:*`,
	}

	if fc.HasExplicitRange() {
		filters = append(filters,
			fmt.Sprintf("timestamp>=%q", fc.StartDate.UTC().Format(time.RFC3339)),
			fmt.Sprintf("timestamp<%q", fc.EndDate.UTC().Format(time.RFC3339)),
		)
	} else {
		start, _ := fc.EffectiveRange(now)
		filters = append(filters,
			fmt.Sprintf("timestamp>=%q", start.UTC().Format(time.RFC3339)))
	}

	return strings.Join(filters, " AND ")
}

// extractResourceName pulls the table resource name out of an audit entry
// payload. Entries without an AuditLog payload are skipped.
func extractResourceName(entry *logging.Entry) string {
	if entry == nil {
		return ""
	}
	if payload, ok := entry.Payload.(*audit.AuditLog); ok {
		return payload.GetResourceName()
	}
	return ""
}

// parseResourceName splits projects/P/datasets/D/tables/T into a count key.
func parseResourceName(name string) (models.TableAccessCount, bool) {
	m := resourceNamePattern.FindStringSubmatch(name)
	if m == nil {
		return models.TableAccessCount{}, false
	}
	return models.TableAccessCount{
		ProjectID: m[resourceNamePattern.SubexpIndex("project")],
		DatasetID: m[resourceNamePattern.SubexpIndex("dataset")],
		TableID:   m[resourceNamePattern.SubexpIndex("table")],
		Source:    models.SourceAuditLog,
	}, true
}

// aggregateCounts converts the count map into a deterministic list sorted
// by access count descending, full path ascending.
func aggregateCounts(counts map[models.TableAccessCount]int64) []models.TableAccessCount {
	results := make([]models.TableAccessCount, 0, len(counts))
	for key, count := range counts {
		key.AccessCount = count
		results = append(results, key)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].AccessCount != results[j].AccessCount {
			return results[i].AccessCount > results[j].AccessCount
		}
		return results[i].FullPath() < results[j].FullPath()
	})
	return results
}
