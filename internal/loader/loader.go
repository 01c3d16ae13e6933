// Package loader bulk-loads dataset and table metadata for a project.
// Per-dataset failures are accumulated alongside successes instead of
// aborting the load, so one unreadable dataset never hides the rest.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"cloud.google.com/go/bigquery"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/iterator"

	"github.com/zippowriter/bigquery-dashboard/internal/models"
)

const defaultConcurrency = 5

// Progress is invoked once per dataset as table listing completes.
type Progress func(current, total int, datasetID string)

// MetadataClient lists datasets and tables. *bigquery.Client satisfies it
// through the adapter returned by NewBigQueryClient.
type MetadataClient interface {
	ListDatasets(ctx context.Context, projectID string) ([]models.DatasetInfo, error)
	ListTables(ctx context.Context, projectID, datasetID string) ([]models.TableInfo, error)
}

type bqMetadataClient struct {
	client *bigquery.Client
}

// NewBigQueryClient adapts a BigQuery client into a MetadataClient.
func NewBigQueryClient(client *bigquery.Client) MetadataClient {
	return bqMetadataClient{client: client}
}

func (c bqMetadataClient) ListDatasets(ctx context.Context, projectID string) ([]models.DatasetInfo, error) {
	it := c.client.Datasets(ctx)
	it.ProjectID = projectID

	var datasets []models.DatasetInfo
	for {
		ds, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list datasets in %s: %w", projectID, err)
		}
		datasets = append(datasets, models.DatasetInfo{
			ProjectID: ds.ProjectID,
			DatasetID: ds.DatasetID,
		})
	}
	return datasets, nil
}

func (c bqMetadataClient) ListTables(ctx context.Context, projectID, datasetID string) ([]models.TableInfo, error) {
	it := c.client.DatasetInProject(projectID, datasetID).Tables(ctx)

	var tables []models.TableInfo
	for {
		t, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list tables in %s.%s: %w", projectID, datasetID, err)
		}
		tables = append(tables, models.TableInfo{
			ProjectID: t.ProjectID,
			DatasetID: t.DatasetID,
			TableID:   t.TableID,
		})
	}
	return tables, nil
}

// Loader runs the bulk load with bounded concurrency per dataset.
type Loader struct {
	client      MetadataClient
	concurrency int
}

// New creates a Loader.
func New(client MetadataClient, concurrency int) *Loader {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Loader{client: client, concurrency: concurrency}
}

// LoadAll lists every dataset in the project and the tables of each.
// Failing datasets are recorded in the result's Errors map; only the
// initial dataset listing can fail the whole call.
func (l *Loader) LoadAll(ctx context.Context, projectID string, onProgress Progress) (*models.LoadResult, error) {
	datasets, err := l.client.ListDatasets(ctx, projectID)
	if err != nil {
		return nil, err
	}

	result := &models.LoadResult{
		Datasets: datasets,
		Errors:   make(map[string]string),
	}

	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)

	for _, dataset := range datasets {
		dataset := dataset
		g.Go(func() error {
			tables, err := l.client.ListTables(gctx, projectID, dataset.DatasetID)

			mu.Lock()
			defer mu.Unlock()
			done++
			if err != nil {
				slog.Warn("failed to list tables",
					slog.String("dataset", dataset.DatasetID),
					slog.String("error", err.Error()))
				result.DatasetsFailed++
				result.Errors[dataset.DatasetID] = err.Error()
			} else {
				result.DatasetsSuccess++
				result.Tables = append(result.Tables, tables...)
				result.TablesTotal += len(tables)
			}
			if onProgress != nil {
				onProgress(done, len(datasets), dataset.DatasetID)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(result.Tables, func(i, j int) bool {
		return result.Tables[i].FullPath() < result.Tables[j].FullPath()
	})
	return result, nil
}
