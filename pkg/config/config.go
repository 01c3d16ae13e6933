package config

import "time"

// Config holds all runtime configuration
type Config struct {
	// Target settings
	ProjectID string
	Region    string

	// Source selection: "info_schema", "audit_log", or "both"
	Source string

	// Query settings
	QueryTimeout time.Duration
	MaxRetries   int
	RateLimit    int // audit-log API requests per second

	// Concurrency settings (dataset loader)
	Concurrency int

	// Output settings
	Format     string
	OutputPath string
	CacheDir   string

	// Server settings
	ServerPort int

	// Operational flags
	Verbose bool

	// Filter settings
	Filter FilterConfig
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Region:       "us",
		Source:       "both",
		QueryTimeout: 5 * time.Minute,
		MaxRetries:   3,
		RateLimit:    10,
		Concurrency:  5,
		Format:       "text",
		CacheDir:     "./report",
		ServerPort:   8080,
		Verbose:      false,
		Filter:       FilterConfig{Days: DefaultDays},
	}
}
