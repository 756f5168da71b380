package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "TABULA_"

// LoadConfig loads configuration from a YAML file at the specified path.
// The file is decoded on top of Default, so omitted fields keep their
// default values. An empty path yields the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
		}
	}

	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention TABULA_SECTION_FIELD (e.g., TABULA_EXPORT_BATCH_SIZE).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load variables from a .env file next to the working directory, if any
// 2. Load YAML from file on top of the defaults
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	if err := applyEnvOverrides(cfg, os.Getenv); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv loads environment variables from the given files. Missing files
// are ignored and variables already present in the environment are kept.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file %q: %w", p, err)
		}
	}
	return nil
}

// envOverride binds one environment variable to a configuration field.
type envOverride struct {
	key   string
	apply func(cfg *Config, val string) error
}

func stringVar(key string, field func(*Config) *string) envOverride {
	return envOverride{key: key, apply: func(cfg *Config, val string) error {
		*field(cfg) = val
		return nil
	}}
}

func intVar(key string, field func(*Config) *int) envOverride {
	return envOverride{key: key, apply: func(cfg *Config, val string) error {
		i, err := cast.ToIntE(val)
		if err != nil {
			return err
		}
		*field(cfg) = i
		return nil
	}}
}

func boolVar(key string, field func(*Config) *bool) envOverride {
	return envOverride{key: key, apply: func(cfg *Config, val string) error {
		b, err := cast.ToBoolE(val)
		if err != nil {
			return err
		}
		*field(cfg) = b
		return nil
	}}
}

func durationVar(key string, field func(*Config) *time.Duration) envOverride {
	return envOverride{key: key, apply: func(cfg *Config, val string) error {
		d, err := cast.ToDurationE(val)
		if err != nil {
			return err
		}
		*field(cfg) = d
		return nil
	}}
}

func floatVar(key string, field func(*Config) *float64) envOverride {
	return envOverride{key: key, apply: func(cfg *Config, val string) error {
		f, err := cast.ToFloat64E(val)
		if err != nil {
			return err
		}
		*field(cfg) = f
		return nil
	}}
}

var envOverrides = []envOverride{
	stringVar("CATALOG_DRIVER", func(c *Config) *string { return &c.Catalog.Driver }),
	stringVar("CATALOG_PATH", func(c *Config) *string { return &c.Catalog.Path }),
	intVar("CATALOG_MAX_OPEN_CONNS", func(c *Config) *int { return &c.Catalog.MaxOpenConns }),
	boolVar("CATALOG_WAL_MODE", func(c *Config) *bool { return &c.Catalog.WALMode }),
	durationVar("CATALOG_BUSY_TIMEOUT", func(c *Config) *time.Duration { return &c.Catalog.BusyTimeout }),

	intVar("EXPORT_BATCH_SIZE", func(c *Config) *int { return &c.Export.BatchSize }),
	stringVar("EXPORT_TEMP_DIR", func(c *Config) *string { return &c.Export.TempDir }),
	stringVar("EXPORT_UNKNOWN_FIELDS", func(c *Config) *string { return &c.Export.UnknownFields }),
	intVar("EXPORT_PERSIST_RETRIES", func(c *Config) *int { return &c.Export.PersistRetries }),
	durationVar("EXPORT_PERSIST_BACKOFF", func(c *Config) *time.Duration { return &c.Export.PersistBackoff }),
	intVar("EXPORT_JOBS_WORKERS", func(c *Config) *int { return &c.Export.Jobs.Workers }),
	intVar("EXPORT_JOBS_QUEUE_SIZE", func(c *Config) *int { return &c.Export.Jobs.QueueSize }),
	durationVar("EXPORT_JOBS_TIMEOUT", func(c *Config) *time.Duration { return &c.Export.Jobs.Timeout }),

	stringVar("FILES_BACKEND", func(c *Config) *string { return &c.Files.Backend }),
	stringVar("FILES_LOCAL_DIR", func(c *Config) *string { return &c.Files.Local.Dir }),
	stringVar("FILES_S3_BUCKET", func(c *Config) *string { return &c.Files.S3.Bucket }),
	stringVar("FILES_S3_REGION", func(c *Config) *string { return &c.Files.S3.Region }),
	stringVar("FILES_S3_PREFIX", func(c *Config) *string { return &c.Files.S3.Prefix }),
	stringVar("FILES_S3_ENDPOINT", func(c *Config) *string { return &c.Files.S3.Endpoint }),
	stringVar("FILES_S3_ACCESS_KEY", func(c *Config) *string { return &c.Files.S3.AccessKey }),
	stringVar("FILES_S3_SECRET_KEY", func(c *Config) *string { return &c.Files.S3.SecretKey }),
	boolVar("FILES_S3_FORCE_PATH_STYLE", func(c *Config) *bool { return &c.Files.S3.ForcePathStyle }),

	stringVar("NOTIFY_BACKEND", func(c *Config) *string { return &c.Notify.Backend }),
	stringVar("NOTIFY_SENDGRID_API_KEY", func(c *Config) *string { return &c.Notify.SendGrid.APIKey }),
	stringVar("NOTIFY_SENDGRID_FROM_NAME", func(c *Config) *string { return &c.Notify.SendGrid.FromName }),
	stringVar("NOTIFY_SENDGRID_FROM_EMAIL", func(c *Config) *string { return &c.Notify.SendGrid.FromEmail }),

	stringVar("SERVER_LISTEN_ADDRESS", func(c *Config) *string { return &c.Server.ListenAddress }),
	durationVar("SERVER_READ_TIMEOUT", func(c *Config) *time.Duration { return &c.Server.ReadTimeout }),
	durationVar("SERVER_WRITE_TIMEOUT", func(c *Config) *time.Duration { return &c.Server.WriteTimeout }),

	stringVar("TELEMETRY_LOGGING_LEVEL", func(c *Config) *string { return &c.Telemetry.Logging.Level }),
	stringVar("TELEMETRY_LOGGING_FORMAT", func(c *Config) *string { return &c.Telemetry.Logging.Format }),
	boolVar("TELEMETRY_METRICS_ENABLED", func(c *Config) *bool { return &c.Telemetry.Metrics.Enabled }),
	stringVar("TELEMETRY_METRICS_PATH", func(c *Config) *string { return &c.Telemetry.Metrics.Path }),
	boolVar("TELEMETRY_TRACING_ENABLED", func(c *Config) *bool { return &c.Telemetry.Tracing.Enabled }),
	stringVar("TELEMETRY_TRACING_ENDPOINT", func(c *Config) *string { return &c.Telemetry.Tracing.Endpoint }),
	floatVar("TELEMETRY_TRACING_SAMPLE_RATIO", func(c *Config) *float64 { return &c.Telemetry.Tracing.SampleRatio }),
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Unparseable values are reported as a ValidationError naming the variable.
func applyEnvOverrides(cfg *Config, getenv func(string) string) error {
	var errs []FieldError
	for _, o := range envOverrides {
		val := getenv(EnvPrefix + o.key)
		if val == "" {
			continue
		}
		if err := o.apply(cfg, val); err != nil {
			errs = append(errs, FieldError{
				Field:   EnvPrefix + o.key,
				Message: fmt.Sprintf("invalid value %q: %v", val, err),
			})
		}
	}
	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

// EnvKeys lists every supported environment variable, sorted as declared.
func EnvKeys() []string {
	keys := make([]string, 0, len(envOverrides))
	for _, o := range envOverrides {
		keys = append(keys, EnvPrefix+o.key)
	}
	return keys
}
