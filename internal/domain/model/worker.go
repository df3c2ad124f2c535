package model

import "time"

// WorkerRequest is the payload a launcher sends to a worker.
type WorkerRequest struct {
	Kind        JobKind `json:"kind,omitempty"`
	StartDate   string  `json:"start_date,omitempty"`
	EndDate     string  `json:"end_date,omitempty"`
	CompanyCode string  `json:"company_code,omitempty"`
}

// Params returns the job parameters recorded for the request.
func (r WorkerRequest) Params() JobParams {
	return JobParams{StartDate: r.StartDate, EndDate: r.EndDate, CompanyCode: r.CompanyCode}
}

// WorkerResponse is returned synchronously by a worker once it has registered its job.
type WorkerResponse struct {
	JobID     string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	Message   string    `json:"message"`
	StartedAt time.Time `json:"started_at"`
}

// CollectRequest is the public launch body for a collection run.
type CollectRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// ExportRequest is the optional public launch body for an export run.
type ExportRequest struct {
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	CompanyCode string `json:"company_code,omitempty"`
}

// LaunchResponse is returned by the launch endpoints.
type LaunchResponse struct {
	JobID     string    `json:"job_id"`
	Status    JobStatus `json:"status"`
	Message   string    `json:"message"`
	StartedAt time.Time `json:"started_at"`
}
