package pipeline

import (
	"fmt"
	"time"

	"mercator-hq/tabula/pkg/config"
	"mercator-hq/tabula/pkg/export/cursor"
	"mercator-hq/tabula/pkg/export/fields"
)

// Config contains configuration for the exporter.
type Config struct {
	// BatchSize is the number of records fetched and written per batch.
	// Default: 10000
	BatchSize int

	// TempDir is where temporary files are created. Empty means the OS
	// temp directory.
	TempDir string

	// UnknownFields decides what happens to unknown field identifiers.
	// Default: reject
	UnknownFields fields.UnknownFieldPolicy

	// PersistRetries is the number of retries after a failed save.
	// Default: 3
	PersistRetries int

	// PersistBackoff is the delay before the first retry. Later retries
	// back off exponentially.
	// Default: 500ms
	PersistBackoff time.Duration
}

// DefaultConfig returns the default exporter configuration.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      cursor.DefaultBatchSize,
		UnknownFields:  fields.RejectUnknown,
		PersistRetries: config.DefaultExportPersistRetries,
		PersistBackoff: config.DefaultExportPersistBackoff,
	}
}

// ConfigFrom converts the export section of the application config.
func ConfigFrom(cfg *config.ExportConfig) (*Config, error) {
	policy, err := fields.ParsePolicy(cfg.UnknownFields)
	if err != nil {
		return nil, fmt.Errorf("export.unknown_fields: %w", err)
	}
	c := &Config{
		BatchSize:      cfg.BatchSize,
		TempDir:        cfg.TempDir,
		UnknownFields:  policy,
		PersistRetries: cfg.PersistRetries,
		PersistBackoff: cfg.PersistBackoff,
	}
	c.applyDefaults()
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.BatchSize < 1 {
		c.BatchSize = cursor.DefaultBatchSize
	}
	if c.UnknownFields == "" {
		c.UnknownFields = fields.RejectUnknown
	}
	if c.PersistRetries < 0 {
		c.PersistRetries = 0
	}
	if c.PersistBackoff <= 0 {
		c.PersistBackoff = config.DefaultExportPersistBackoff
	}
}
