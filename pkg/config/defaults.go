package config

import "time"

// Default values for configuration fields.
const (
	// Catalog defaults
	DefaultCatalogDriver       = "sqlite3"
	DefaultCatalogPath         = "data/catalog.db"
	DefaultCatalogMaxOpenConns = 10
	DefaultCatalogMaxIdleConns = 5
	DefaultCatalogWALMode      = true
	DefaultCatalogBusyTimeout  = 5 * time.Second

	// Export defaults
	DefaultExportBatchSize      = 10000
	DefaultExportUnknownFields  = "reject"
	DefaultExportPersistRetries = 3
	DefaultExportPersistBackoff = 500 * time.Millisecond
	DefaultJobsWorkers          = 2
	DefaultJobsQueueSize        = 100
	DefaultJobsTimeout          = 30 * time.Minute
	DefaultJobsRetain           = 24 * time.Hour

	// Files defaults
	DefaultFilesBackend  = "local"
	DefaultFilesLocalDir = "data/exports"
	DefaultS3Region      = "us-east-1"

	// Notify defaults
	DefaultNotifyBackend     = "log"
	DefaultSendGridFromName  = "Tabula"
	DefaultScheduleFileType  = "csv"
	DefaultScheduleDelimiter = ","

	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8090"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultMaxBodyBytes    = int64(1 << 20)

	// Telemetry defaults
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "json"
	DefaultMetricsEnabled   = true
	DefaultMetricsPath      = "/metrics"
	DefaultMetricsNamespace = "tabula"
	DefaultMetricsSubsystem = "export"
	DefaultTracingEnabled   = false
	DefaultTracingSampler   = "ratio"
	DefaultTracingRatio     = 0.1
	DefaultTracingEndpoint  = "localhost:4317"
	DefaultTracingService   = "tabula"
	DefaultTracingInsecure  = true
	DefaultTracingTimeout   = 10 * time.Second
	DefaultLivenessPath     = "/health"
	DefaultReadinessPath    = "/ready"
	DefaultCheckTimeout     = 5 * time.Second
)

// Default histogram buckets.
var (
	DefaultDurationBuckets      = []float64{0.5, 1, 5, 15, 30, 60, 300, 900, 1800}
	DefaultBatchDurationBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	DefaultFileSizeBuckets      = []float64{1 << 10, 1 << 14, 1 << 17, 1 << 20, 1 << 23, 1 << 26, 1 << 29}
)

// Default returns a configuration populated with every default, including
// the boolean defaults that ApplyDefaults cannot infer from zero values.
// LoadConfig decodes YAML on top of it so that omitted booleans keep their
// default while explicit false values win.
func Default() *Config {
	cfg := &Config{
		Catalog: CatalogConfig{WALMode: DefaultCatalogWALMode},
		Telemetry: TelemetryConfig{
			Metrics: MetricsConfig{Enabled: DefaultMetricsEnabled},
			Tracing: TracingConfig{
				Enabled:  DefaultTracingEnabled,
				Insecure: DefaultTracingInsecure,
			},
		},
	}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Catalog defaults
	if cfg.Catalog.Driver == "" {
		cfg.Catalog.Driver = DefaultCatalogDriver
	}
	if cfg.Catalog.Path == "" {
		cfg.Catalog.Path = DefaultCatalogPath
	}
	if cfg.Catalog.MaxOpenConns == 0 {
		cfg.Catalog.MaxOpenConns = DefaultCatalogMaxOpenConns
	}
	if cfg.Catalog.MaxIdleConns == 0 {
		cfg.Catalog.MaxIdleConns = DefaultCatalogMaxIdleConns
	}
	if cfg.Catalog.BusyTimeout == 0 {
		cfg.Catalog.BusyTimeout = DefaultCatalogBusyTimeout
	}

	// Export defaults
	if cfg.Export.BatchSize == 0 {
		cfg.Export.BatchSize = DefaultExportBatchSize
	}
	if cfg.Export.UnknownFields == "" {
		cfg.Export.UnknownFields = DefaultExportUnknownFields
	}
	if cfg.Export.PersistRetries == 0 {
		cfg.Export.PersistRetries = DefaultExportPersistRetries
	}
	if cfg.Export.PersistBackoff == 0 {
		cfg.Export.PersistBackoff = DefaultExportPersistBackoff
	}
	if cfg.Export.Jobs.Workers == 0 {
		cfg.Export.Jobs.Workers = DefaultJobsWorkers
	}
	if cfg.Export.Jobs.QueueSize == 0 {
		cfg.Export.Jobs.QueueSize = DefaultJobsQueueSize
	}
	if cfg.Export.Jobs.Timeout == 0 {
		cfg.Export.Jobs.Timeout = DefaultJobsTimeout
	}
	if cfg.Export.Jobs.Retain == 0 {
		cfg.Export.Jobs.Retain = DefaultJobsRetain
	}

	// Files defaults
	if cfg.Files.Backend == "" {
		cfg.Files.Backend = DefaultFilesBackend
	}
	if cfg.Files.Local.Dir == "" {
		cfg.Files.Local.Dir = DefaultFilesLocalDir
	}
	if cfg.Files.S3.Region == "" {
		cfg.Files.S3.Region = DefaultS3Region
	}

	// Notify defaults
	if cfg.Notify.Backend == "" {
		cfg.Notify.Backend = DefaultNotifyBackend
	}
	if cfg.Notify.SendGrid.FromName == "" {
		cfg.Notify.SendGrid.FromName = DefaultSendGridFromName
	}

	for i := range cfg.Schedules {
		s := &cfg.Schedules[i]
		if s.FileType == "" {
			s.FileType = DefaultScheduleFileType
		}
		if s.Delimiter == "" {
			s.Delimiter = DefaultScheduleDelimiter
		}
	}

	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}

	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyTelemetryDefaults(t *TelemetryConfig) {
	if t.Logging.Level == "" {
		t.Logging.Level = DefaultLogLevel
	}
	if t.Logging.Format == "" {
		t.Logging.Format = DefaultLogFormat
	}

	if t.Metrics.Path == "" {
		t.Metrics.Path = DefaultMetricsPath
	}
	if t.Metrics.Namespace == "" {
		t.Metrics.Namespace = DefaultMetricsNamespace
	}
	if t.Metrics.Subsystem == "" {
		t.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(t.Metrics.DurationBuckets) == 0 {
		t.Metrics.DurationBuckets = append([]float64(nil), DefaultDurationBuckets...)
	}
	if len(t.Metrics.BatchDurationBuckets) == 0 {
		t.Metrics.BatchDurationBuckets = append([]float64(nil), DefaultBatchDurationBuckets...)
	}
	if len(t.Metrics.FileSizeBuckets) == 0 {
		t.Metrics.FileSizeBuckets = append([]float64(nil), DefaultFileSizeBuckets...)
	}

	if t.Tracing.Sampler == "" {
		t.Tracing.Sampler = DefaultTracingSampler
	}
	if t.Tracing.SampleRatio == 0 {
		t.Tracing.SampleRatio = DefaultTracingRatio
	}
	if t.Tracing.Endpoint == "" {
		t.Tracing.Endpoint = DefaultTracingEndpoint
	}
	if t.Tracing.ServiceName == "" {
		t.Tracing.ServiceName = DefaultTracingService
	}
	if t.Tracing.Timeout == 0 {
		t.Tracing.Timeout = DefaultTracingTimeout
	}

	if t.Health.LivenessPath == "" {
		t.Health.LivenessPath = DefaultLivenessPath
	}
	if t.Health.ReadinessPath == "" {
		t.Health.ReadinessPath = DefaultReadinessPath
	}
	if t.Health.CheckTimeout == 0 {
		t.Health.CheckTimeout = DefaultCheckTimeout
	}
}
