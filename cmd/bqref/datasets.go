package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"cloud.google.com/go/bigquery"
	"github.com/spf13/cobra"

	"github.com/zippowriter/bigquery-dashboard/internal/bqerr"
	"github.com/zippowriter/bigquery-dashboard/internal/loader"
	"github.com/zippowriter/bigquery-dashboard/internal/source"
)

// NewDatasetsCmd creates the datasets command
func NewDatasetsCmd() *cobra.Command {
	var projectID string
	var concurrency int

	cmd := &cobra.Command{
		Use:   "datasets",
		Short: "List all datasets and tables in a project",
		Long: `Bulk-load dataset and table metadata for a project. Datasets that
cannot be listed are reported individually; the rest of the load
continues.`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if projectID == "" {
				return bqerr.Validation("--project is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDatasets(cmd.Context(), projectID, concurrency)
		},
	}

	cmd.Flags().StringVar(&projectID, "project", "", "GCP project ID (required)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 5, "Concurrent dataset listings")

	return cmd
}

func runDatasets(ctx context.Context, projectID string, concurrency int) error {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return source.ClassifyClientError(err, source.InfoSchemaName, source.InfoSchemaRole)
	}
	defer client.Close()

	progress := newProgressPrinter(os.Stderr)
	l := loader.New(loader.NewBigQueryClient(client), concurrency)
	result, err := l.LoadAll(ctx, projectID, func(current, total int, datasetID string) {
		progress.update(current, total, fmt.Sprintf("listing %s", datasetID))
	})
	progress.finish()
	if err != nil {
		return source.ClassifyClientError(err, source.InfoSchemaName, source.InfoSchemaRole)
	}

	for _, table := range result.Tables {
		fmt.Println(table.FullPath())
	}

	fmt.Printf("\n%d datasets (%d failed), %d tables\n",
		result.DatasetsSuccess+result.DatasetsFailed, result.DatasetsFailed, result.TablesTotal)

	if len(result.Errors) > 0 {
		ids := make([]string, 0, len(result.Errors))
		for id := range result.Errors {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Fprintf(os.Stderr, "[WARNING] %s: %s\n", id, result.Errors[id])
		}
	}

	return nil
}
