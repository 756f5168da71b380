// Package api implements the HTTP job API served by `tabula serve`.
//
// Routes:
//
//	POST   /exports               submit an export payload, returns 202 {"job_id": ...}
//	GET    /exports               list known jobs
//	GET    /exports/{id}          job status
//	DELETE /exports/{id}          cancel a queued or running job
//	GET    /schedules             configured cron exports
//	POST   /schedules/{name}/run  run a scheduled export now
//
// Errors use a single JSON shape:
//
//	{"error": {"message": "...", "type": "invalid_request_error", "code": "malformed_scope"}}
package api
