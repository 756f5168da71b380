package pipeline

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"mercator-hq/tabula/pkg/export"
	"mercator-hq/tabula/pkg/filestore"
	"mercator-hq/tabula/pkg/telemetry/tracing"
)

// maxPersistInterval caps the delay between two save attempts.
const maxPersistInterval = 30 * time.Second

// persist saves the finished file under a fresh name. Each attempt reads
// the file from the start, so the batch loop never runs twice.
func (r *run) persist(ctx context.Context, file tempFile) (*filestore.Reference, error) {
	e := r.exporter
	name := export.FileName(r.req.Kind, r.req.FileType, e.now())

	ctx, span := e.tracer.Start(ctx, "export.persist")
	defer span.End()
	span.SetAttributes(tracing.AttrFileName.String(name))

	var (
		ref     *filestore.Reference
		attempt int
	)
	op := func() error {
		attempt++
		rc, err := file.Open()
		if err != nil {
			return backoff.Permanent(err)
		}
		defer rc.Close()

		ref, err = e.files.Save(ctx, name, rc, r.req.FileType.ContentType())
		return err
	}
	onRetry := func(err error, delay time.Duration) {
		e.metrics.RecordPersistRetry(string(r.req.Kind))
		r.logger.WarnContext(ctx, "failed to persist export file, retrying",
			"file", name,
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
	}

	err := backoff.RetryNotify(op, e.persistBackOff(ctx), onRetry)
	span.SetAttributes(tracing.AttrAttempt.Int(attempt))
	tracing.SetError(span, err)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(tracing.AttrFileBytes.Int64(ref.Size))
	r.logger.InfoContext(ctx, "export file persisted",
		"file", ref.Name,
		"location", ref.Location,
		"bytes", ref.Size,
		"attempts", attempt,
	)
	return ref, nil
}

func (e *Exporter) persistBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.config.PersistBackoff
	b.RandomizationFactor = 0.2
	b.Multiplier = 2
	b.MaxInterval = maxPersistInterval
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(e.config.PersistRetries)), ctx)
}
