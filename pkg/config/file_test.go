package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, ".bqref.yaml", `
project: my-project
region: eu
source: audit_log
format: json
days: 14
dataset: analytics
table_pattern: "^events_"
min_access_count: 5
query_timeout: 10m
`)

	fc, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fc.Project != "my-project" {
		t.Errorf("project = %q", fc.Project)
	}
	if fc.Region != "eu" {
		t.Errorf("region = %q", fc.Region)
	}
	if fc.Days != 14 {
		t.Errorf("days = %d", fc.Days)
	}
	if fc.MinAccessCount == nil || *fc.MinAccessCount != 5 {
		t.Errorf("min_access_count = %v", fc.MinAccessCount)
	}
	if fc.QueryTimeout != "10m" {
		t.Errorf("query_timeout = %q", fc.QueryTimeout)
	}
}

func TestLoadFileMalformed(t *testing.T) {
	dir := t.TempDir()
	path := writeConfigFile(t, dir, ".bqref.yaml", "project: [unclosed")

	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestApplyFlagsTakePrecedence(t *testing.T) {
	min := int64(5)
	fc := &FileConfig{
		Project:        "file-project",
		Region:         "eu",
		Source:         "audit_log",
		Format:         "json",
		Days:           14,
		DatasetFilter:  "analytics",
		MinAccessCount: &min,
		QueryTimeout:   "10m",
	}

	cfg := DefaultConfig()
	cfg.ProjectID = "flag-project"
	cfg.Region = "asia"
	cfg.Filter.Days = 7

	if err := fc.Apply(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.ProjectID != "flag-project" {
		t.Errorf("flag project should win, got %q", cfg.ProjectID)
	}
	if cfg.Region != "asia" {
		t.Errorf("flag region should win, got %q", cfg.Region)
	}
	if cfg.Filter.Days != 7 {
		t.Errorf("flag days should win, got %d", cfg.Filter.Days)
	}
	if cfg.Source != "audit_log" {
		t.Errorf("file source should fill default, got %q", cfg.Source)
	}
	if cfg.Format != "json" {
		t.Errorf("file format should fill default, got %q", cfg.Format)
	}
	if cfg.Filter.DatasetFilter != "analytics" {
		t.Errorf("file dataset should fill empty, got %q", cfg.Filter.DatasetFilter)
	}
	if cfg.Filter.MinAccessCount != 5 {
		t.Errorf("file min should fill zero, got %d", cfg.Filter.MinAccessCount)
	}
	if cfg.QueryTimeout != 10*time.Minute {
		t.Errorf("file query_timeout should fill default, got %v", cfg.QueryTimeout)
	}
}

func TestApplyInvalidQueryTimeout(t *testing.T) {
	fc := &FileConfig{QueryTimeout: "never"}
	cfg := DefaultConfig()
	if err := fc.Apply(cfg); err == nil {
		t.Fatal("expected error for invalid query_timeout")
	}
}

func TestApplyNilReceiver(t *testing.T) {
	var fc *FileConfig
	cfg := DefaultConfig()
	if err := fc.Apply(cfg); err != nil {
		t.Fatalf("nil file config should be a no-op, got %v", err)
	}
}
