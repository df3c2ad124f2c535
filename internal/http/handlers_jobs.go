// Package httpx provides the HTTP API of the disclosure collector.
package httpx

import (
	"net/http"

	"github.com/target/disclosure-collector/internal/domain/model"
	"github.com/target/disclosure-collector/internal/service"
)

// JobHandlers launches collection and export runs and reports their status.
type JobHandlers struct {
	Launcher *service.Launcher
	Jobs     *service.JobStatusService
}

// LaunchCollection handles POST /api/collections.
func (h *JobHandlers) LaunchCollection(w http.ResponseWriter, r *http.Request) {
	var req model.CollectRequest
	if !DecodeJSON(w, r, &req, false) {
		return
	}

	resp, err := h.Launcher.LaunchCollection(r.Context(), req)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, resp)
}

// LaunchExport handles POST /api/exports. The body is optional.
func (h *JobHandlers) LaunchExport(w http.ResponseWriter, r *http.Request) {
	var req model.ExportRequest
	if !DecodeJSON(w, r, &req, true) {
		return
	}

	resp, err := h.Launcher.LaunchExport(r.Context(), req)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, resp)
}

// GetCollection handles GET /api/collections/{job_id}.
func (h *JobHandlers) GetCollection(w http.ResponseWriter, r *http.Request) {
	h.getJob(w, r, model.JobKindCollect)
}

// GetExport handles GET /api/exports/{job_id}.
func (h *JobHandlers) GetExport(w http.ResponseWriter, r *http.Request) {
	h.getJob(w, r, model.JobKindExport)
}

func (h *JobHandlers) getJob(w http.ResponseWriter, r *http.Request, kind model.JobKind) {
	job, err := h.Jobs.GetKind(r.Context(), r.PathValue("job_id"), kind)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, job)
}
