package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigFileYAML is the canonical config filename.
	DefaultConfigFileYAML = ".bqref.yaml"
	// DefaultConfigFileYML is a compatible alternate config filename.
	DefaultConfigFileYML = ".bqref.yml"
)

// FileConfig represents values loaded from a .bqref.yaml file. Flags take
// precedence; file values only fill fields left at their defaults.
type FileConfig struct {
	Project        string `yaml:"project"`
	Region         string `yaml:"region"`
	Source         string `yaml:"source"`
	Format         string `yaml:"format"`
	CacheDir       string `yaml:"cache_dir"`
	Days           int    `yaml:"days"`
	DatasetFilter  string `yaml:"dataset"`
	TablePattern   string `yaml:"table_pattern"`
	MinAccessCount *int64 `yaml:"min_access_count"`
	QueryTimeout   string `yaml:"query_timeout"`
}

// Normalize trims string fields in place.
func (fc *FileConfig) Normalize() {
	if fc == nil {
		return
	}
	fc.Project = strings.TrimSpace(fc.Project)
	fc.Region = strings.TrimSpace(fc.Region)
	fc.Source = strings.TrimSpace(fc.Source)
	fc.Format = strings.TrimSpace(fc.Format)
	fc.CacheDir = strings.TrimSpace(fc.CacheDir)
	fc.DatasetFilter = strings.TrimSpace(fc.DatasetFilter)
	fc.TablePattern = strings.TrimSpace(fc.TablePattern)
	fc.QueryTimeout = strings.TrimSpace(fc.QueryTimeout)
}

// LoadFile reads and parses a config file.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc FileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	fc.Normalize()
	return &fc, nil
}

// AutoLoadFile discovers and loads the first available config file in the
// working directory. A missing file is not an error.
func AutoLoadFile() (*FileConfig, string, error) {
	for _, name := range []string{DefaultConfigFileYAML, DefaultConfigFileYML} {
		fc, err := LoadFile(name)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, name, err
		}
		return fc, name, nil
	}
	return nil, "", nil
}

// Apply copies file values into cfg for fields the flags left untouched.
func (fc *FileConfig) Apply(cfg *Config) error {
	if fc == nil || cfg == nil {
		return nil
	}

	if cfg.ProjectID == "" {
		cfg.ProjectID = fc.Project
	}
	if fc.Region != "" && cfg.Region == DefaultConfig().Region {
		cfg.Region = fc.Region
	}
	if fc.Source != "" && cfg.Source == DefaultConfig().Source {
		cfg.Source = fc.Source
	}
	if fc.Format != "" && cfg.Format == DefaultConfig().Format {
		cfg.Format = fc.Format
	}
	if fc.CacheDir != "" && cfg.CacheDir == DefaultConfig().CacheDir {
		cfg.CacheDir = fc.CacheDir
	}
	if fc.Days > 0 && cfg.Filter.Days == DefaultDays {
		cfg.Filter.Days = fc.Days
	}
	if fc.DatasetFilter != "" && cfg.Filter.DatasetFilter == "" {
		cfg.Filter.DatasetFilter = fc.DatasetFilter
	}
	if fc.TablePattern != "" && cfg.Filter.TablePattern == "" {
		cfg.Filter.TablePattern = fc.TablePattern
	}
	if fc.MinAccessCount != nil && cfg.Filter.MinAccessCount == 0 {
		cfg.Filter.MinAccessCount = *fc.MinAccessCount
	}
	if fc.QueryTimeout != "" {
		d, err := ParseDuration(fc.QueryTimeout)
		if err != nil {
			return fmt.Errorf("invalid query_timeout in config file: %w", err)
		}
		if cfg.QueryTimeout == DefaultConfig().QueryTimeout {
			cfg.QueryTimeout = d
		}
	}

	return nil
}
