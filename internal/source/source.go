// Package source provides the data source adapters that measure per-table
// access counts: one over INFORMATION_SCHEMA.JOBS_BY_PROJECT and one over
// Cloud Audit Log tableDataRead events. The two adapters count different
// units, so callers must reconcile their outputs rather than sum them.
package source

import (
	"context"
	"strings"

	"github.com/zippowriter/bigquery-dashboard/internal/bqerr"
	"github.com/zippowriter/bigquery-dashboard/internal/models"
	"github.com/zippowriter/bigquery-dashboard/pkg/config"
)

// Progress is invoked with monotonically increasing counters while an
// adapter pages through results. Passing nil is always valid; it only
// removes visibility, never changes the returned data.
type Progress func(current, total int, message string)

// Source is the capability contract both adapters implement.
type Source interface {
	// Name identifies the source in warnings and error messages.
	Name() string
	// FetchTableAccess returns one entry per distinct (dataset, table)
	// observed within the filter window.
	FetchTableAccess(ctx context.Context, projectID string, fc config.FilterConfig, onProgress Progress) ([]models.TableAccessCount, error)
}

// ClassifyClientError maps a client-construction failure into the error
// taxonomy. Exposed for callers that build the underlying clients.
func ClassifyClientError(err error, sourceName, role string) error {
	return classifyAPIError(err, sourceName, role)
}

// Role constants for client construction error classification.
const (
	InfoSchemaRole = infoSchemaRole
	AuditLogRole   = auditLogRole
)

func validateProjectID(projectID string) error {
	if strings.TrimSpace(projectID) == "" {
		return bqerr.Validation("project id must not be empty")
	}
	return nil
}

func reportProgress(onProgress Progress, current, total int, message string) {
	if onProgress != nil {
		onProgress(current, total, message)
	}
}
