package counter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zippowriter/bigquery-dashboard/internal/bqerr"
	"github.com/zippowriter/bigquery-dashboard/internal/models"
	"github.com/zippowriter/bigquery-dashboard/internal/source"
	"github.com/zippowriter/bigquery-dashboard/pkg/config"
)

// SourceOption selects which data sources a counting run uses.
type SourceOption string

const (
	OptionInfoSchema SourceOption = "info_schema"
	OptionAuditLog   SourceOption = "audit_log"
	OptionBoth       SourceOption = "both"
)

// ParseSourceOption validates a source selection string.
func ParseSourceOption(s string) (SourceOption, error) {
	switch SourceOption(s) {
	case OptionInfoSchema, OptionAuditLog, OptionBoth:
		return SourceOption(s), nil
	default:
		return "", bqerr.Validation("invalid source %q: must be one of info_schema, audit_log, both", s)
	}
}

// Counter orchestrates a counting run: it invokes the selected adapters,
// tolerates one-sided recoverable failures, merges and filters the
// results, and assembles the final TableAccessResult.
type Counter struct {
	infoSchema source.Source
	auditLog   source.Source
	timeout    time.Duration
	now        func() time.Time
}

// Option configures a Counter.
type Option func(*Counter)

// WithTimeout bounds each adapter call; expiry surfaces as a network error.
func WithTimeout(d time.Duration) Option {
	return func(c *Counter) { c.timeout = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Counter) { c.now = now }
}

// New creates a Counter over the two adapters. Either adapter may be nil
// when the caller never selects it.
func New(infoSchema, auditLog source.Source, opts ...Option) *Counter {
	c := &Counter{
		infoSchema: infoSchema,
		auditLog:   auditLog,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CountAccess runs one aggregation. With OptionBoth, a recoverable failure
// in one source (permission denied, network, audit logging not enabled)
// degrades to a warning and the run continues on the other source; when
// both fail, the first error is returned wrapped with both source names.
// Authentication failures always propagate: they are systemic, not
// per-source.
func (c *Counter) CountAccess(ctx context.Context, projectID string, fc config.FilterConfig, opt SourceOption, onProgress source.Progress) (*models.TableAccessResult, error) {
	if _, err := ParseSourceOption(string(opt)); err != nil {
		return nil, err
	}

	now := c.now()
	var warnings []string
	if fc.ExceedsRetention(now) {
		start, end := fc.EffectiveRange(now)
		warnings = append(warnings, fmt.Sprintf(
			"requested window of %d days exceeds the %d-day INFORMATION_SCHEMA retention; only available data is returned",
			int(end.Sub(start).Hours()/24), config.InfoSchemaRetentionDays))
	}

	reporter := NewReporter(onProgress)
	useInfo := opt == OptionInfoSchema || opt == OptionBoth
	useAudit := opt == OptionAuditLog || opt == OptionBoth

	infoProgress := reporter.Sub(0, progressScale)
	auditProgress := reporter.Sub(0, progressScale)
	if useInfo && useAudit {
		infoProgress = reporter.Sub(0, progressScale/2)
		auditProgress = reporter.Sub(progressScale/2, progressScale/2)
	}

	var infoResults, auditResults []models.TableAccessCount
	var firstErr error

	if useInfo {
		results, err := c.fetch(ctx, c.infoSchema, projectID, fc, infoProgress)
		switch {
		case err == nil:
			infoResults = results
		case opt != OptionBoth || !bqerr.IsRecoverable(err):
			return nil, err
		default:
			firstErr = err
			warnings = append(warnings, fmt.Sprintf("%s source skipped: %v", source.InfoSchemaName, err))
		}
	}

	if useAudit {
		results, err := c.fetch(ctx, c.auditLog, projectID, fc, auditProgress)
		switch {
		case err == nil:
			auditResults = results
		case opt != OptionBoth || !bqerr.IsRecoverable(err):
			return nil, err
		case firstErr != nil:
			return nil, fmt.Errorf("all sources failed (%s, %s): %w",
				source.InfoSchemaName, source.AuditLogName, firstErr)
		default:
			warnings = append(warnings, fmt.Sprintf("%s source skipped: %v", source.AuditLogName, err))
		}
	}

	merged := ApplyFilters(Merge(infoResults, auditResults), fc)
	start, end := fc.EffectiveRange(now)

	return &models.TableAccessResult{
		StartDate:         start,
		EndDate:           end,
		ProjectID:         projectID,
		InfoSchemaResults: infoResults,
		AuditLogResults:   auditResults,
		MergedResults:     merged,
		Warnings:          warnings,
	}, nil
}

func (c *Counter) fetch(ctx context.Context, src source.Source, projectID string, fc config.FilterConfig, onProgress source.Progress) ([]models.TableAccessCount, error) {
	if src == nil {
		return nil, nil
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	results, err := src.FetchTableAccess(ctx, projectID, fc, onProgress)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && bqerr.KindOf(err) == bqerr.KindUnknown {
			return nil, bqerr.Network(src.Name(), err)
		}
		return nil, err
	}
	return results, nil
}
