package config

import "time"

// Config is the root configuration structure for tabula.
// It contains all configuration sections for the export pipeline, the
// catalog store, file storage, notifications, schedules and the job server.
type Config struct {
	// Catalog contains the record store configuration.
	Catalog CatalogConfig `yaml:"catalog"`

	// Export contains pipeline and job queue configuration.
	Export ExportConfig `yaml:"export"`

	// Files contains the configuration of the store finished exports are
	// saved to.
	Files FilesConfig `yaml:"files"`

	// Notify contains configuration for completion notifications.
	Notify NotifyConfig `yaml:"notify"`

	// Schedules lists exports run periodically by `tabula serve`.
	Schedules []ScheduleConfig `yaml:"schedules"`

	// Server contains the job API listener configuration.
	Server ServerConfig `yaml:"server"`

	// Telemetry contains observability configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// CatalogConfig configures the SQLite record store.
type CatalogConfig struct {
	// Driver selects the database/sql driver.
	// Options: "sqlite3" (cgo, mattn/go-sqlite3), "sqlite" (pure Go)
	// Default: "sqlite3"
	Driver string `yaml:"driver"`

	// Path is the database file path.
	// Default: "data/catalog.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long a connection waits on a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// ExportConfig configures the export pipeline and the job queue.
type ExportConfig struct {
	// BatchSize is the number of record ids fetched per batch.
	// Default: 10000
	BatchSize int `yaml:"batch_size"`

	// TempDir is where temporary export files are created.
	// Empty means the OS temp directory.
	TempDir string `yaml:"temp_dir"`

	// UnknownFields controls how unknown field identifiers are handled.
	// Options: "reject", "blank"
	// Default: "reject"
	UnknownFields string `yaml:"unknown_fields"`

	// PersistRetries is how many times saving a finished file is retried.
	// Default: 3
	PersistRetries int `yaml:"persist_retries"`

	// PersistBackoff is the initial delay between persist attempts.
	// Default: 500ms
	PersistBackoff time.Duration `yaml:"persist_backoff"`

	// Jobs configures the background job queue.
	Jobs JobsConfig `yaml:"jobs"`
}

// JobsConfig configures the worker pool that runs submitted exports.
type JobsConfig struct {
	// Workers is the number of exports run concurrently.
	// Default: 2
	Workers int `yaml:"workers"`

	// QueueSize is the number of pending jobs accepted before Submit fails.
	// Default: 100
	QueueSize int `yaml:"queue_size"`

	// Timeout bounds a single export.
	// Default: 30m
	Timeout time.Duration `yaml:"timeout"`

	// Retain is how long finished jobs stay visible to status queries.
	// Default: 24h
	Retain time.Duration `yaml:"retain"`
}

// FilesConfig configures the file store.
type FilesConfig struct {
	// Backend selects the store.
	// Options: "local", "s3", "memory"
	// Default: "local"
	Backend string `yaml:"backend"`

	// Local contains local directory store configuration.
	Local LocalFilesConfig `yaml:"local"`

	// S3 contains S3 store configuration.
	S3 S3Config `yaml:"s3"`
}

// LocalFilesConfig configures the local directory store.
type LocalFilesConfig struct {
	// Dir is the directory exports are saved under.
	// Default: "data/exports"
	Dir string `yaml:"dir"`
}

// S3Config contains S3-compatible object storage configuration.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Prefix    string `yaml:"prefix"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`

	// ForcePathStyle is needed for most S3-compatible services.
	ForcePathStyle bool `yaml:"force_path_style"`
}

// NotifyConfig configures completion notifications.
type NotifyConfig struct {
	// Backend selects the notifier.
	// Options: "log", "sendgrid"
	// Default: "log"
	Backend string `yaml:"backend"`

	// SendGrid contains SendGrid mail configuration.
	SendGrid SendGridConfig `yaml:"sendgrid"`
}

// SendGridConfig contains SendGrid API configuration.
type SendGridConfig struct {
	APIKey    string `yaml:"api_key"`
	FromName  string `yaml:"from_name"`
	FromEmail string `yaml:"from_email"`
}

// ScheduleConfig describes a periodic export.
type ScheduleConfig struct {
	// Name identifies the schedule in logs.
	Name string `yaml:"name"`

	// Cron is a five-field cron expression.
	Cron string `yaml:"cron"`

	// Kind is the export target ("products" or "gift_cards").
	Kind string `yaml:"kind"`

	// FileType is "csv" or "xlsx".
	// Default: "csv"
	FileType string `yaml:"file_type"`

	// Delimiter is the csv delimiter.
	// Default: ","
	Delimiter string `yaml:"delimiter"`

	// Recipient receives the completion notification.
	Recipient string `yaml:"recipient"`

	// CreatedToday restricts the export to records created on the day the
	// schedule fires. Only meaningful for gift card exports.
	CreatedToday bool `yaml:"created_today"`

	// Fields lists the columns to export. Empty means all static fields.
	Fields []string `yaml:"fields"`
}

// ServerConfig configures the HTTP job API.
type ServerConfig struct {
	// ListenAddress is the address the server binds to.
	// Default: "127.0.0.1:8090"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading a request.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out a response.
	// Default: 30s
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxBodyBytes limits the size of a submitted export payload.
	// Default: 1MB
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
	Health  HealthConfig  `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "tabula"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "export"
	Subsystem string `yaml:"subsystem"`

	// DurationBuckets defines histogram buckets for export duration (seconds).
	DurationBuckets []float64 `yaml:"duration_buckets"`

	// BatchDurationBuckets defines histogram buckets for batch duration (seconds).
	BatchDurationBuckets []float64 `yaml:"batch_duration_buckets"`

	// FileSizeBuckets defines histogram buckets for finished file sizes (bytes).
	FileSizeBuckets []float64 `yaml:"file_size_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Default: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "tabula"
	ServiceName string `yaml:"service_name"`

	// Insecure disables TLS for the OTLP connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout is the timeout for OTLP exports.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains health check endpoint configuration.
type HealthConfig struct {
	// LivenessPath is the path for the liveness probe endpoint.
	// Default: "/health"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the path for the readiness probe endpoint.
	// Default: "/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// CheckTimeout is the timeout for individual component health checks.
	// Default: 5s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
