// Package logging configures structured logging for tabula on top of
// log/slog.
//
// Setup installs the configured handler as the slog default. Components
// derive their loggers from it:
//
//	logger := slog.Default().With("component", "export.pipeline")
//	logger.InfoContext(ctx, "state transition", "from", "created", "to", "scope_resolved")
//
// Records logged with a context carry export_id, job_id, schedule and
// trace_id when present. Values under secret-looking keys and e-mail
// addresses are redacted before they are written.
package logging
