package config

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/robfig/cron/v3"
)

// MaxBatchSize bounds export.batch_size.
const MaxBatchSize = 1_000_000

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "export.batch_size").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateCatalog(&cfg.Catalog)...)
	errs = append(errs, validateExport(&cfg.Export)...)
	errs = append(errs, validateFiles(&cfg.Files)...)
	errs = append(errs, validateNotify(&cfg.Notify)...)
	errs = append(errs, validateSchedules(cfg.Schedules)...)
	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateCatalog(cfg *CatalogConfig) []FieldError {
	var errs []FieldError

	validDrivers := map[string]bool{"sqlite3": true, "sqlite": true}
	if !validDrivers[cfg.Driver] {
		errs = append(errs, FieldError{
			Field:   "catalog.driver",
			Message: fmt.Sprintf("invalid driver %q (must be 'sqlite3' or 'sqlite')", cfg.Driver),
		})
	}
	if cfg.Path == "" {
		errs = append(errs, FieldError{Field: "catalog.path", Message: "path is required"})
	}
	if cfg.MaxOpenConns < 0 {
		errs = append(errs, FieldError{Field: "catalog.max_open_conns", Message: "must be non-negative"})
	}
	if cfg.MaxIdleConns < 0 {
		errs = append(errs, FieldError{Field: "catalog.max_idle_conns", Message: "must be non-negative"})
	}
	if cfg.BusyTimeout < 0 {
		errs = append(errs, FieldError{Field: "catalog.busy_timeout", Message: "busy timeout must be positive"})
	}

	return errs
}

func validateExport(cfg *ExportConfig) []FieldError {
	var errs []FieldError

	if cfg.BatchSize <= 0 {
		errs = append(errs, FieldError{Field: "export.batch_size", Message: "batch size must be positive"})
	} else if cfg.BatchSize > MaxBatchSize {
		errs = append(errs, FieldError{
			Field:   "export.batch_size",
			Message: fmt.Sprintf("batch size exceeds limit (%d)", MaxBatchSize),
		})
	}

	validPolicies := map[string]bool{"reject": true, "blank": true}
	if !validPolicies[cfg.UnknownFields] {
		errs = append(errs, FieldError{
			Field:   "export.unknown_fields",
			Message: fmt.Sprintf("invalid policy %q (must be 'reject' or 'blank')", cfg.UnknownFields),
		})
	}

	if cfg.PersistRetries < 0 || cfg.PersistRetries > 10 {
		errs = append(errs, FieldError{Field: "export.persist_retries", Message: "must be between 0 and 10"})
	}
	if cfg.PersistBackoff < 0 {
		errs = append(errs, FieldError{Field: "export.persist_backoff", Message: "backoff must be positive"})
	}

	if cfg.Jobs.Workers <= 0 {
		errs = append(errs, FieldError{Field: "export.jobs.workers", Message: "at least one worker is required"})
	}
	if cfg.Jobs.QueueSize <= 0 {
		errs = append(errs, FieldError{Field: "export.jobs.queue_size", Message: "queue size must be positive"})
	}
	if cfg.Jobs.Timeout < 0 {
		errs = append(errs, FieldError{Field: "export.jobs.timeout", Message: "timeout must be positive"})
	}

	return errs
}

func validateFiles(cfg *FilesConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "local":
		if cfg.Local.Dir == "" {
			errs = append(errs, FieldError{Field: "files.local.dir", Message: "directory is required for local backend"})
		}
	case "s3":
		if cfg.S3.Bucket == "" {
			errs = append(errs, FieldError{Field: "files.s3.bucket", Message: "bucket is required for s3 backend"})
		}
		if (cfg.S3.AccessKey == "") != (cfg.S3.SecretKey == "") {
			errs = append(errs, FieldError{
				Field:   "files.s3.access_key",
				Message: "access key and secret key must be set together",
			})
		}
	case "memory":
	default:
		errs = append(errs, FieldError{
			Field:   "files.backend",
			Message: fmt.Sprintf("invalid backend %q (must be 'local', 's3', or 'memory')", cfg.Backend),
		})
	}

	return errs
}

func validateNotify(cfg *NotifyConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "log":
	case "sendgrid":
		if cfg.SendGrid.APIKey == "" {
			errs = append(errs, FieldError{Field: "notify.sendgrid.api_key", Message: "API key is required for sendgrid backend"})
		}
		if _, err := mail.ParseAddress(cfg.SendGrid.FromEmail); err != nil {
			errs = append(errs, FieldError{
				Field:   "notify.sendgrid.from_email",
				Message: fmt.Sprintf("invalid sender address %q", cfg.SendGrid.FromEmail),
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "notify.backend",
			Message: fmt.Sprintf("invalid backend %q (must be 'log' or 'sendgrid')", cfg.Backend),
		})
	}

	return errs
}

var validScheduleKinds = map[string]bool{
	"product": true, "products": true,
	"gift_card": true, "gift_cards": true,
	"order": true, "orders": true,
}

func validateSchedules(schedules []ScheduleConfig) []FieldError {
	var errs []FieldError
	seen := make(map[string]bool, len(schedules))

	for i, s := range schedules {
		prefix := fmt.Sprintf("schedules[%d]", i)

		if s.Name == "" {
			errs = append(errs, FieldError{Field: prefix + ".name", Message: "name is required"})
		} else if seen[s.Name] {
			errs = append(errs, FieldError{Field: prefix + ".name", Message: fmt.Sprintf("duplicate schedule %q", s.Name)})
		}
		seen[s.Name] = true

		if _, err := cron.ParseStandard(s.Cron); err != nil {
			errs = append(errs, FieldError{Field: prefix + ".cron", Message: fmt.Sprintf("invalid cron expression: %v", err)})
		}
		if !validScheduleKinds[strings.ToLower(s.Kind)] {
			errs = append(errs, FieldError{Field: prefix + ".kind", Message: fmt.Sprintf("unknown export kind %q", s.Kind)})
		}
		if ft := strings.ToLower(s.FileType); ft != "csv" && ft != "xlsx" {
			errs = append(errs, FieldError{Field: prefix + ".file_type", Message: fmt.Sprintf("unknown file type %q", s.FileType)})
		}
		if utf8.RuneCountInString(s.Delimiter) != 1 {
			errs = append(errs, FieldError{Field: prefix + ".delimiter", Message: "delimiter must be a single character"})
		}
	}

	return errs
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{Field: "server.listen_address", Message: "listen address is required"})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.read_timeout", Message: "read timeout must be positive"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.write_timeout", Message: "write timeout must be positive"})
	}
	if cfg.MaxBodyBytes < 0 {
		errs = append(errs, FieldError{Field: "server.max_body_bytes", Message: "must be non-negative"})
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(cfg.Logging.Level)] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid log level %q (must be 'debug', 'info', 'warn', or 'error')", cfg.Logging.Level),
		})
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(cfg.Logging.Format)] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q (must be 'json' or 'text')", cfg.Logging.Format),
		})
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "path must start with '/'"})
	}

	validSamplers := map[string]bool{"always": true, "never": true, "ratio": true}
	if !validSamplers[cfg.Tracing.Sampler] {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q (must be 'always', 'never', or 'ratio')", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errs = append(errs, FieldError{Field: "telemetry.tracing.sample_ratio", Message: "sample ratio must be between 0.0 and 1.0"})
	}
	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{Field: "telemetry.tracing.endpoint", Message: "endpoint is required when tracing is enabled"})
	}

	if cfg.Health.CheckTimeout < 0 {
		errs = append(errs, FieldError{Field: "telemetry.health.check_timeout", Message: "check timeout must be positive"})
	}

	return errs
}
