// Package pipeline runs exports end to end.
//
// An Exporter resolves the request scope, pages through matching records
// with a keyset cursor, projects each batch into rows and appends them to a
// temporary file. The finished file is handed to a filestore.Store and a
// notify.Notifier is told where it went. The temporary file is removed on
// every path, and nothing is saved unless every batch was written.
//
// Basic usage:
//
//	exp := pipeline.New(store, files, notifier, pipeline.DefaultConfig(),
//		pipeline.WithMetrics(collector),
//		pipeline.WithTracer(tracer),
//	)
//	result, err := exp.Export(ctx, req)
//
// Exports are strictly sequential internally. Run several at once through
// the jobs package.
package pipeline
