package models

import (
	"fmt"
	"time"
)

// DataSource tags where an access count was measured.
type DataSource string

const (
	// SourceInfoSchema marks counts derived from INFORMATION_SCHEMA.JOBS_BY_PROJECT.
	SourceInfoSchema DataSource = "info_schema"
	// SourceAuditLog marks counts derived from Cloud Audit Log tableDataRead events.
	SourceAuditLog DataSource = "audit_log"
	// SourceMerged marks counts produced by merging both sources.
	SourceMerged DataSource = "merged"
)

// TableAccessCount is one table's access count as seen by a single source.
// Identity for merging is (ProjectID, DatasetID, TableID); Source is
// provenance only. The two sources count different units (query jobs vs
// read events), so counts from different sources are not additive.
type TableAccessCount struct {
	ProjectID   string     `json:"project_id"`
	DatasetID   string     `json:"dataset_id"`
	TableID     string     `json:"table_id"`
	AccessCount int64      `json:"access_count"`
	Source      DataSource `json:"source"`
}

// FullPath returns the "project.dataset.table" identifier.
func (t TableAccessCount) FullPath() string {
	return fmt.Sprintf("%s.%s.%s", t.ProjectID, t.DatasetID, t.TableID)
}

// TableAccessResult is the aggregate of one counting run. The per-source
// lists are kept unfiltered for auditability; MergedResults carries the
// reconciled, filtered view.
type TableAccessResult struct {
	StartDate         time.Time          `json:"start_date"`
	EndDate           time.Time          `json:"end_date"`
	ProjectID         string             `json:"project_id"`
	InfoSchemaResults []TableAccessCount `json:"info_schema_results"`
	AuditLogResults   []TableAccessCount `json:"audit_log_results"`
	MergedResults     []TableAccessCount `json:"merged_results"`
	Warnings          []string           `json:"warnings"`
}

// DatasetInfo describes a BigQuery dataset.
type DatasetInfo struct {
	ProjectID string `json:"project_id"`
	DatasetID string `json:"dataset_id"`
}

// FullPath returns the "project.dataset" identifier.
func (d DatasetInfo) FullPath() string {
	return fmt.Sprintf("%s.%s", d.ProjectID, d.DatasetID)
}

// TableInfo describes a table inside a dataset.
type TableInfo struct {
	ProjectID string `json:"project_id"`
	DatasetID string `json:"dataset_id"`
	TableID   string `json:"table_id"`
}

// FullPath returns the "project.dataset.table" identifier.
func (t TableInfo) FullPath() string {
	return fmt.Sprintf("%s.%s.%s", t.ProjectID, t.DatasetID, t.TableID)
}

// LoadResult summarizes a bulk dataset/table load. Per-dataset failures are
// accumulated in Errors instead of aborting the whole load.
type LoadResult struct {
	Datasets        []DatasetInfo     `json:"datasets"`
	Tables          []TableInfo       `json:"tables"`
	DatasetsSuccess int               `json:"datasets_success"`
	DatasetsFailed  int               `json:"datasets_failed"`
	TablesTotal     int               `json:"tables_total"`
	Errors          map[string]string `json:"errors,omitempty"`
}
