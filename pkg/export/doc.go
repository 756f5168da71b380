// Package export holds the types shared by the export pipeline: the export
// Request and its parts, the fixed-schema Row written to files, the export
// State machine and the typed Error every stage reports.
//
// The pipeline itself is split across subpackages:
//
//   - scope resolves a request scope into an ordered catalog query
//   - cursor pages through the query by primary key
//   - fields projects records into rows
//   - tabular writes rows into a temporary csv or xlsx file
//   - pipeline drives the stages and hands the file to storage
//   - jobs and schedule run exports in the background
package export
