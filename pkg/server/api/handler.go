package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"mercator-hq/tabula/pkg/config"
	"mercator-hq/tabula/pkg/export"
	"mercator-hq/tabula/pkg/export/jobs"
	"mercator-hq/tabula/pkg/export/schedule"
	"mercator-hq/tabula/pkg/server/middleware"
)

// Queue is the job queue the API submits to. *jobs.Queue implements it.
type Queue interface {
	Submit(ctx context.Context, req *export.Request) (jobs.Job, error)
	Get(id string) (jobs.Job, error)
	List() []jobs.Job
	Cancel(id string) (bool, error)
}

// Schedules exposes configured cron exports. *schedule.Scheduler
// implements it.
type Schedules interface {
	Entries() []schedule.Status
	Trigger(ctx context.Context, name string) (jobs.Job, error)
}

// Handler serves the job API.
type Handler struct {
	queue        Queue
	schedules    Schedules
	maxBodyBytes int64
	logger       *slog.Logger
}

// NewHandler creates the API handler. schedules may be nil, in which case
// the schedule routes report no entries.
func NewHandler(queue Queue, schedules Schedules, maxBodyBytes int64) *Handler {
	if maxBodyBytes <= 0 {
		maxBodyBytes = config.DefaultMaxBodyBytes
	}
	return &Handler{
		queue:        queue,
		schedules:    schedules,
		maxBodyBytes: maxBodyBytes,
		logger:       slog.Default().With("component", "server.api"),
	}
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /exports", h.submit)
	mux.HandleFunc("GET /exports", h.list)
	mux.HandleFunc("GET /exports/{id}", h.get)
	mux.HandleFunc("DELETE /exports/{id}", h.cancel)
	mux.HandleFunc("GET /schedules", h.listSchedules)
	mux.HandleFunc("POST /schedules/{name}/run", h.runSchedule)
}

type submitResponse struct {
	JobID  string      `json:"job_id"`
	Status jobs.Status `json:"status"`
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	req, err := export.DecodeRequest(body)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	job, err := h.queue.Submit(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/exports/"+job.ID)
	writeJSON(w, http.StatusAccepted, submitResponse{JobID: job.ID, Status: job.Status})
}

type listResponse struct {
	Jobs []jobs.Job `json:"jobs"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, listResponse{Jobs: h.queue.List()})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	job, err := h.queue.Get(r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

type cancelResponse struct {
	JobID    string `json:"job_id"`
	Canceled bool   `json:"canceled"`
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ok, err := h.queue.Cancel(id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	code := http.StatusAccepted
	if !ok {
		code = http.StatusConflict
	}
	writeJSON(w, code, cancelResponse{JobID: id, Canceled: ok})
}

type schedulesResponse struct {
	Schedules []schedule.Status `json:"schedules"`
}

func (h *Handler) listSchedules(w http.ResponseWriter, r *http.Request) {
	resp := schedulesResponse{Schedules: []schedule.Status{}}
	if h.schedules != nil {
		resp.Schedules = h.schedules.Entries()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) runSchedule(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if h.schedules == nil {
		h.writeError(w, r, fmt.Errorf("%w %q", schedule.ErrUnknownSchedule, name))
		return
	}
	job, err := h.schedules.Trigger(r.Context(), name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/exports/"+job.ID)
	writeJSON(w, http.StatusAccepted, submitResponse{JobID: job.ID, Status: job.Status})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorFrom(err)
	code := resp.HTTPStatusCode()
	if code >= http.StatusInternalServerError && code != http.StatusServiceUnavailable {
		h.logger.ErrorContext(r.Context(), "api request failed",
			"error", err,
			"request_id", middleware.GetRequestID(r.Context()),
		)
	}
	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
