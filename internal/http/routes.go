package httpx

import (
	"log/slog"
	"net/http"

	"github.com/target/disclosure-collector/internal/core"
	"github.com/target/disclosure-collector/internal/data"
	"github.com/target/disclosure-collector/internal/domain/model"
	apperrors "github.com/target/disclosure-collector/internal/errors"
	"github.com/target/disclosure-collector/internal/service"
)

// DefaultAPIKeyHeader is the header clients present their API key in.
const DefaultAPIKeyHeader = "X-API-Key"

// RouterServices holds all the services needed by the HTTP router.
// A nil Launcher disables the public API; an empty Workers map disables the worker endpoints.
type RouterServices struct {
	Launcher *service.Launcher
	Jobs     *service.JobStatusService
	Records  *service.RecordStore
	Grants   *service.GrantIssuer
	Workers  map[model.JobKind]core.Worker

	// Required: verifies the API key on every /api and /internal route.
	Auth APIKeyVerifier
	// Optional: header carrying the API key. Defaults to X-API-Key.
	APIKeyHeader string
	Clock        data.TimeProvider
	Logger       *slog.Logger
}

// NewRouter creates the HTTP router with the standard middleware chain:
// RequestID, Recover, Logging, then RequireAPIKey on authenticated routes.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	header := services.APIKeyHeader
	if header == "" {
		header = DefaultAPIKeyHeader
	}

	protected := http.NewServeMux()
	if services.Launcher != nil {
		registerAPIRoutes(protected, services)
	}
	if len(services.Workers) > 0 {
		registerWorkerRoutes(protected, &WorkerHandlers{Workers: services.Workers})
	}
	protected.HandleFunc("/", notFoundHandler)

	mux := http.NewServeMux()
	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	authed := RequireAPIKey(services.Auth, header)(protected)
	mux.Handle("/api/", authed)
	mux.Handle("/internal/", authed)
	mux.HandleFunc("/", notFoundHandler)

	return Chain(mux,
		RequestID(),
		Recover(logger),
		Logging(logger.With("component", "http")),
	)
}

func registerAPIRoutes(mux *http.ServeMux, services RouterServices) {
	jobs := &JobHandlers{Launcher: services.Launcher, Jobs: services.Jobs}
	disclosures := &DisclosureHandlers{Records: services.Records, Grants: services.Grants, Clock: services.Clock}

	mux.HandleFunc("POST /api/collections", jobs.LaunchCollection)
	mux.HandleFunc("GET /api/collections/{job_id}", jobs.GetCollection)
	mux.HandleFunc("POST /api/exports", jobs.LaunchExport)
	mux.HandleFunc("GET /api/exports/{job_id}", jobs.GetExport)
	mux.HandleFunc("GET /api/disclosures", disclosures.List)
	mux.HandleFunc("GET /api/disclosures/{record_id}/download", disclosures.Download)
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteError(w, r, apperrors.NotFoundf("no route for %s %s", r.Method, r.URL.Path))
}

func registerWorkerRoutes(mux *http.ServeMux, h *WorkerHandlers) {
	mux.HandleFunc("POST /internal/workers/{kind}", h.Start)
}
