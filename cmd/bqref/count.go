package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/logging/logadmin"
	"github.com/spf13/cobra"

	"github.com/zippowriter/bigquery-dashboard/internal/bqerr"
	"github.com/zippowriter/bigquery-dashboard/internal/cache"
	"github.com/zippowriter/bigquery-dashboard/internal/counter"
	"github.com/zippowriter/bigquery-dashboard/internal/reporter"
	"github.com/zippowriter/bigquery-dashboard/internal/source"
	"github.com/zippowriter/bigquery-dashboard/pkg/config"
)

const dateLayout = "2006-01-02"

// NewCountCmd creates the count command
func NewCountCmd() *cobra.Command {
	cfg := config.DefaultConfig()

	// String variables for custom flag parsing
	var lookbackStr string
	var queryTimeoutStr string
	var startDateStr string
	var endDateStr string
	var sourceOpt counter.SourceOption

	cmd := &cobra.Command{
		Use:   "count",
		Short: "Count table references and print the merged report",
		Long: `Count per-table references from INFORMATION_SCHEMA job history and
Cloud Audit Log read events, merge them into one reconciled view, and
print the result as text, CSV, or JSON.`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if lookbackStr != "" {
				days, err := config.ParseLookbackDays(lookbackStr)
				if err != nil {
					return fmt.Errorf("invalid --days value: %w", err)
				}
				cfg.Filter.Days = days
			}

			if queryTimeoutStr != "" {
				d, err := config.ParseDuration(queryTimeoutStr)
				if err != nil {
					return fmt.Errorf("invalid --query-timeout duration: %w", err)
				}
				cfg.QueryTimeout = d
			}

			var start, end time.Time
			var err error
			if startDateStr != "" {
				start, err = time.Parse(dateLayout, startDateStr)
				if err != nil {
					return fmt.Errorf("invalid --start-date value (want YYYY-MM-DD): %w", err)
				}
			}
			if endDateStr != "" {
				end, err = time.Parse(dateLayout, endDateStr)
				if err != nil {
					return fmt.Errorf("invalid --end-date value (want YYYY-MM-DD): %w", err)
				}
			}

			if fileCfg, path, err := config.AutoLoadFile(); err != nil {
				return fmt.Errorf("config file %s: %w", path, err)
			} else if fileCfg != nil {
				if err := fileCfg.Apply(cfg); err != nil {
					return err
				}
			}

			cfg.Filter, err = config.NewFilterConfig(
				cfg.Filter.Days, start, end,
				cfg.Filter.DatasetFilter, cfg.Filter.TablePattern,
				cfg.Filter.MinAccessCount)
			if err != nil {
				return err
			}

			sourceOpt, err = counter.ParseSourceOption(cfg.Source)
			if err != nil {
				return err
			}
			if _, err := reporter.New(cfg.Format); err != nil {
				return err
			}
			if cfg.ProjectID == "" {
				return bqerr.Validation("--project is required")
			}

			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCount(cmd.Context(), cfg, sourceOpt)
		},
	}

	cmd.Flags().StringVar(&cfg.ProjectID, "project", "", "GCP project ID (required unless set in .bqref.yaml)")
	cmd.Flags().StringVar(&cfg.Region, "region", cfg.Region, "BigQuery region for INFORMATION_SCHEMA queries")

	cmd.Flags().StringVar(&lookbackStr, "days", "", "Lookback window (e.g. 30, 30d, 720h; default 30d)")
	cmd.Flags().StringVar(&startDateStr, "start-date", "", "Explicit window start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&endDateStr, "end-date", "", "Explicit window end (YYYY-MM-DD)")
	cmd.Flags().StringVar(&cfg.Filter.DatasetFilter, "dataset", "", "Only count tables in datasets matching this exact name or prefix")
	cmd.Flags().StringVar(&cfg.Filter.TablePattern, "table-pattern", "", "Only count tables whose ID matches this regular expression")
	cmd.Flags().Int64Var(&cfg.Filter.MinAccessCount, "min-count", 0, "Drop tables with fewer accesses from the merged view")

	cmd.Flags().StringVar(&cfg.Source, "source", cfg.Source, "Data source (info_schema, audit_log, both)")
	cmd.Flags().StringVar(&queryTimeoutStr, "query-timeout", "", "Per-source timeout (e.g. 5m, 10m, 1h)")
	cmd.Flags().IntVar(&cfg.MaxRetries, "max-retries", cfg.MaxRetries, "Retries for rate-limited API calls")
	cmd.Flags().IntVar(&cfg.RateLimit, "rate-limit", cfg.RateLimit, "Cloud Logging API requests per second")

	cmd.Flags().StringVar(&cfg.Format, "format", cfg.Format, "Output format (text, csv, json)")
	cmd.Flags().StringVar(&cfg.OutputPath, "output", "", "Write output to this file instead of stdout")
	cmd.Flags().StringVar(&cfg.CacheDir, "cache-dir", cfg.CacheDir, "Directory for the report bundle and cached runs")

	return cmd
}

func runCount(ctx context.Context, cfg *config.Config, opt counter.SourceOption) error {
	var infoSrc, auditSrc source.Source

	if opt == counter.OptionInfoSchema || opt == counter.OptionBoth {
		client, err := bigquery.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			return source.ClassifyClientError(err, source.InfoSchemaName, source.InfoSchemaRole)
		}
		defer client.Close()
		infoSrc = source.NewInfoSchema(client, cfg.Region, cfg.MaxRetries)
	}

	if opt == counter.OptionAuditLog || opt == counter.OptionBoth {
		client, err := logadmin.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			return source.ClassifyClientError(err, source.AuditLogName, source.AuditLogRole)
		}
		defer client.Close()
		auditSrc = source.NewAuditLog(client, cfg.RateLimit, cfg.MaxRetries)
	}

	ctr := counter.New(infoSrc, auditSrc, counter.WithTimeout(cfg.QueryTimeout))

	progress := newProgressPrinter(os.Stderr)
	result, err := ctr.CountAccess(ctx, cfg.ProjectID, cfg.Filter, opt, progress.update)
	progress.finish()
	if err != nil {
		return err
	}

	if cfg.CacheDir != "" {
		store := cache.NewStore(cfg.CacheDir)
		if _, err := store.Save(result); err != nil {
			return err
		}
		if err := reporter.WriteReport(result, cfg.CacheDir); err != nil {
			return err
		}
	}

	formatter, err := reporter.New(cfg.Format)
	if err != nil {
		return err
	}
	return reporter.Write(formatter, result, cfg.OutputPath)
}
