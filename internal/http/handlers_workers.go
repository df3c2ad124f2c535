package httpx

import (
	"net/http"

	"github.com/target/disclosure-collector/internal/core"
	"github.com/target/disclosure-collector/internal/domain/model"
	apperrors "github.com/target/disclosure-collector/internal/errors"
)

// WorkerHandlers exposes in-process workers to a remote launcher.
type WorkerHandlers struct {
	Workers map[model.JobKind]core.Worker
}

// Start handles POST /internal/workers/{kind}. The path selects the worker; a kind in the
// body must agree with it.
func (h *WorkerHandlers) Start(w http.ResponseWriter, r *http.Request) {
	var kind model.JobKind
	if err := kind.UnmarshalText([]byte(r.PathValue("kind"))); err != nil {
		WriteError(w, r, apperrors.NotFoundf("unknown worker %q", r.PathValue("kind")))
		return
	}
	worker, ok := h.Workers[kind]
	if !ok {
		WriteError(w, r, apperrors.NotFoundf("worker %s is not enabled", kind))
		return
	}

	var req model.WorkerRequest
	if !DecodeJSON(w, r, &req, true) {
		return
	}
	if req.Kind != "" && req.Kind != kind {
		WriteError(w, r, apperrors.ValidationField("kind", "kind does not match the worker path"))
		return
	}
	req.Kind = kind

	resp, err := worker.Start(r.Context(), req)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusAccepted, resp)
}
