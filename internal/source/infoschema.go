package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/zippowriter/bigquery-dashboard/internal/models"
	"github.com/zippowriter/bigquery-dashboard/pkg/config"
)

const (
	// InfoSchemaName identifies the job-history source in warnings and errors.
	InfoSchemaName = "INFORMATION_SCHEMA"

	infoSchemaRole = "roles/bigquery.resourceViewer"

	// progressInterval controls how often row consumption reports progress.
	progressInterval = 100
)

// jobsRow is one aggregated row from INFORMATION_SCHEMA.JOBS_BY_PROJECT.
// The view also exposes how many distinct principals referenced the table;
// it is carried for debug logging but does not enter the merge key.
type jobsRow struct {
	ProjectID      string `bigquery:"project_id"`
	DatasetID      string `bigquery:"dataset_id"`
	TableID        string `bigquery:"table_id"`
	AccessCount    int64  `bigquery:"access_count"`
	PrincipalCount int64  `bigquery:"principal_count"`
}

type rowIterator interface {
	Next(dst any) error
	Total() uint64
}

type queryRunner interface {
	Run(ctx context.Context, sql string, params []bigquery.QueryParameter) (rowIterator, error)
}

type bqQueryRunner struct {
	client *bigquery.Client
}

func (r bqQueryRunner) Run(ctx context.Context, sql string, params []bigquery.QueryParameter) (rowIterator, error) {
	q := r.client.Query(sql)
	q.Parameters = params
	it, err := q.Read(ctx)
	if err != nil {
		return nil, err
	}
	return bqRowIterator{it: it}, nil
}

type bqRowIterator struct {
	it *bigquery.RowIterator
}

func (r bqRowIterator) Next(dst any) error { return r.it.Next(dst) }
func (r bqRowIterator) Total() uint64      { return r.it.TotalRows }

// InfoSchema counts per-table query-job references via the
// INFORMATION_SCHEMA.JOBS_BY_PROJECT view. One unit of access is one
// finished query job referencing the table.
type InfoSchema struct {
	runner queryRunner
	region string
	retry  retryConfig
}

// NewInfoSchema creates the job-history adapter. region names the BigQuery
// region whose INFORMATION_SCHEMA is queried (e.g. "us").
func NewInfoSchema(client *bigquery.Client, region string, maxRetries int) *InfoSchema {
	return &InfoSchema{
		runner: bqQueryRunner{client: client},
		region: region,
		retry:  defaultRetryConfig(maxRetries),
	}
}

// Name implements Source.
func (s *InfoSchema) Name() string { return InfoSchemaName }

// FetchTableAccess implements Source.
func (s *InfoSchema) FetchTableAccess(ctx context.Context, projectID string, fc config.FilterConfig, onProgress Progress) ([]models.TableAccessCount, error) {
	if err := validateProjectID(projectID); err != nil {
		return nil, err
	}

	sql, params := buildJobsQuery(projectID, s.region, fc)
	slog.Debug("running INFORMATION_SCHEMA query", slog.String("project", projectID), slog.String("region", s.region))

	var it rowIterator
	err := executeWithRetry(ctx, s.retry, InfoSchemaName, func() error {
		var runErr error
		it, runErr = s.runner.Run(ctx, sql, params)
		return runErr
	})
	if err != nil {
		return nil, classifyAPIError(err, InfoSchemaName, infoSchemaRole)
	}

	var results []models.TableAccessCount
	for {
		var row jobsRow
		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, classifyAPIError(err, InfoSchemaName, infoSchemaRole)
		}

		results = append(results, models.TableAccessCount{
			ProjectID:   row.ProjectID,
			DatasetID:   row.DatasetID,
			TableID:     row.TableID,
			AccessCount: row.AccessCount,
			Source:      models.SourceInfoSchema,
		})

		if len(results)%progressInterval == 0 || uint64(len(results)) == it.Total() {
			reportProgress(onProgress, len(results), int(it.Total()),
				fmt.Sprintf("%s: processed %d rows", InfoSchemaName, len(results)))
		}
	}

	reportProgress(onProgress, len(results), len(results),
		fmt.Sprintf("%s: done (%d tables)", InfoSchemaName, len(results)))
	return results, nil
}

// buildJobsQuery renders the JOBS_BY_PROJECT aggregation. Project and
// region are identifiers and must be interpolated; all filter values go
// through query parameters.
func buildJobsQuery(projectID, region string, fc config.FilterConfig) (string, []bigquery.QueryParameter) {
	var b strings.Builder
	var params []bigquery.QueryParameter

	b.WriteString("SELECT\n")
	b.WriteString("    ref.project_id AS project_id,\n")
	b.WriteString("    ref.dataset_id AS dataset_id,\n")
	b.WriteString("    ref.table_id AS table_id,\n")
	b.WriteString("    COUNT(*) AS access_count,\n")
	b.WriteString("    COUNT(DISTINCT user_email) AS principal_count\n")
	fmt.Fprintf(&b, "FROM `%s.region-%s.INFORMATION_SCHEMA.JOBS_BY_PROJECT`,\n", projectID, region)
	b.WriteString("    UNNEST(referenced_tables) AS ref\n")
	b.WriteString("WHERE job_type = 'QUERY'\n")
	b.WriteString("  AND state = 'DONE'\n")

	if fc.HasExplicitRange() {
		b.WriteString("  AND creation_time >= @start_date\n")
		b.WriteString("  AND creation_time < @end_date\n")
		params = append(params,
			bigquery.QueryParameter{Name: "start_date", Value: fc.StartDate},
			bigquery.QueryParameter{Name: "end_date", Value: fc.EndDate},
		)
	} else {
		b.WriteString("  AND creation_time >= TIMESTAMP_SUB(CURRENT_TIMESTAMP(), INTERVAL @days DAY)\n")
		params = append(params, bigquery.QueryParameter{Name: "days", Value: int64(fc.Days)})
	}

	if fc.DatasetFilter != "" {
		b.WriteString("  AND STARTS_WITH(ref.dataset_id, @dataset)\n")
		params = append(params, bigquery.QueryParameter{Name: "dataset", Value: fc.DatasetFilter})
	}
	if fc.TablePattern != "" {
		b.WriteString("  AND REGEXP_CONTAINS(ref.table_id, @table_pattern)\n")
		params = append(params, bigquery.QueryParameter{Name: "table_pattern", Value: fc.TablePattern})
	}

	b.WriteString("GROUP BY project_id, dataset_id, table_id\n")
	b.WriteString("ORDER BY access_count DESC")

	return b.String(), params
}
