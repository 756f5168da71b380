package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys set on export spans.
const (
	AttrExportID   = attribute.Key("tabula.export.id")
	AttrExportKind = attribute.Key("tabula.export.kind")
	AttrFileType   = attribute.Key("tabula.export.file_type")
	AttrState      = attribute.Key("tabula.export.state")
	AttrRows       = attribute.Key("tabula.export.rows")
	AttrBatch      = attribute.Key("tabula.batch.index")
	AttrBatchSize  = attribute.Key("tabula.batch.size")
	AttrAfterID    = attribute.Key("tabula.batch.after_id")
	AttrFileName   = attribute.Key("tabula.file.name")
	AttrFileBytes  = attribute.Key("tabula.file.bytes")
	AttrAttempt    = attribute.Key("tabula.persist.attempt")
	AttrJobID      = attribute.Key("tabula.job.id")
)

// ExportAttributes returns the attributes identifying an export.
func ExportAttributes(id, kind, fileType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		AttrExportID.String(id),
		AttrExportKind.String(kind),
		AttrFileType.String(fileType),
	}
}

// SetBatchAttributes annotates a batch span.
func SetBatchAttributes(span trace.Span, index int, size int, afterID int64) {
	span.SetAttributes(
		AttrBatch.Int(index),
		AttrBatchSize.Int(size),
		AttrAfterID.Int64(afterID),
	)
}

// AddStateEvent records a state transition on the export span.
func AddStateEvent(span trace.Span, from, to string) {
	span.AddEvent("state_transition", trace.WithAttributes(
		attribute.String("from", from),
		AttrState.String(to),
	))
}
