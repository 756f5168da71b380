package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

type contextKey string

const (
	exportIDKey contextKey = "export_id"
	jobIDKey    contextKey = "job_id"
	scheduleKey contextKey = "schedule"
)

// WithExportID adds an export id to the context.
func WithExportID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, exportIDKey, id)
}

// ExportID returns the export id in ctx, or "".
func ExportID(ctx context.Context) string {
	id, _ := ctx.Value(exportIDKey).(string)
	return id
}

// WithJobID adds a job id to the context.
func WithJobID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, jobIDKey, id)
}

// JobID returns the job id in ctx, or "".
func JobID(ctx context.Context) string {
	id, _ := ctx.Value(jobIDKey).(string)
	return id
}

// WithSchedule adds the name of the schedule that triggered the work.
func WithSchedule(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, scheduleKey, name)
}

// Schedule returns the schedule name in ctx, or "".
func Schedule(ctx context.Context) string {
	name, _ := ctx.Value(scheduleKey).(string)
	return name
}

// contextAttrs extracts the log fields carried by ctx.
func contextAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr
	if id := ExportID(ctx); id != "" {
		attrs = append(attrs, slog.String("export_id", id))
	}
	if id := JobID(ctx); id != "" {
		attrs = append(attrs, slog.String("job_id", id))
	}
	if name := Schedule(ctx); name != "" {
		attrs = append(attrs, slog.String("schedule", name))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		attrs = append(attrs, slog.String("trace_id", sc.TraceID().String()))
	}
	return attrs
}
