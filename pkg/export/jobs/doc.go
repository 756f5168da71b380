// Package jobs runs exports in the background on a fixed pool of workers.
//
// The HTTP API and the scheduler submit requests to a Queue and poll the
// job by id. Each job runs one export under its own timeout; finished jobs
// stay visible for the configured retention period.
package jobs
