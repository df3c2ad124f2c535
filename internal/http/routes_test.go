package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/disclosure-collector/internal/core"
	"github.com/target/disclosure-collector/internal/data"
	"github.com/target/disclosure-collector/internal/domain/model"
	apperrors "github.com/target/disclosure-collector/internal/errors"
	"github.com/target/disclosure-collector/internal/mocks"
	"github.com/target/disclosure-collector/internal/retry"
	"github.com/target/disclosure-collector/internal/service"
)

const testAPIKey = "test-api-key"

var t0 = time.Date(2024, 1, 14, 9, 30, 0, 0, time.UTC)

// staticVerifier accepts exactly one key.
type staticVerifier string

func (v staticVerifier) Verify(_ context.Context, presented string) error {
	switch presented {
	case "":
		return apperrors.Unauthenticated("missing API key")
	case string(v):
		return nil
	default:
		return apperrors.Unauthenticated("invalid API key")
	}
}

type routerFixture struct {
	invoker *mocks.MockWorkerInvoker
	jobs    *mocks.MockJobStatusRepository
	records *mocks.MockDisclosureRepository
	objects *mocks.MockObjectStore
	collect *mocks.MockWorker
	handler http.Handler
}

func newRouterFixture(t *testing.T) routerFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	clock := data.NewFixedTimeProvider(t0)
	noRetry := &retry.Policy{MaxRetries: 0}

	f := routerFixture{
		invoker: mocks.NewMockWorkerInvoker(ctrl),
		jobs:    mocks.NewMockJobStatusRepository(ctrl),
		records: mocks.NewMockDisclosureRepository(ctrl),
		objects: mocks.NewMockObjectStore(ctrl),
		collect: mocks.NewMockWorker(ctrl),
	}

	launcher, err := service.NewLauncher(service.LauncherOptions{Invoker: f.invoker, TimeProvider: clock})
	require.NoError(t, err)
	jobs, err := service.NewJobStatusService(service.JobStatusServiceOptions{Repo: f.jobs, Retry: noRetry})
	require.NoError(t, err)
	records, err := service.NewRecordStore(service.RecordStoreOptions{Repo: f.records, Retry: noRetry})
	require.NoError(t, err)
	grants, err := service.NewGrantIssuer(service.GrantIssuerOptions{
		Records: records, Objects: f.objects, Retry: noRetry, TimeProvider: clock,
	})
	require.NoError(t, err)

	f.handler = NewRouter(RouterServices{
		Launcher: launcher,
		Jobs:     jobs,
		Records:  records,
		Grants:   grants,
		Workers:  map[model.JobKind]core.Worker{model.JobKindCollect: f.collect},
		Auth:     staticVerifier(testAPIKey),
		Clock:    clock,
	})
	return f
}

func (f routerFixture) do(t *testing.T, method, target string, body any) *http.Response {
	t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, rdr)
	req.Header.Set(DefaultAPIKeyHeader, testAPIKey)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	resp := rec.Result()
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestRouter_HealthzSkipsAuth(t *testing.T) {
	f := newRouterFixture(t)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestRouter_RequiresAPIKey(t *testing.T) {
	f := newRouterFixture(t)

	for _, key := range []string{"", "wrong"} {
		req := httptest.NewRequest(http.MethodGet, "/api/collections/collect_1_deadbeef", nil)
		if key != "" {
			req.Header.Set(DefaultAPIKeyHeader, key)
		}
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		var body ErrorBody
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, CodeAuthentication, body.Code)
		assert.Equal(t, rec.Header().Get(RequestIDHeader), body.RequestID)
	}
}

func TestRouter_LaunchCollection(t *testing.T) {
	f := newRouterFixture(t)
	f.invoker.EXPECT().Invoke(gomock.Any(), model.WorkerRequest{
		Kind: model.JobKindCollect, StartDate: "2024-01-10", EndDate: "2024-01-12",
	}).Return(&model.WorkerResponse{
		JobID: "collect_1705224600000_0a1b2c3d", Status: model.JobStatusRunning, StartedAt: t0,
	}, nil).Times(1)

	resp := f.do(t, http.MethodPost, "/api/collections", model.CollectRequest{StartDate: "2024-01-10", EndDate: "2024-01-12"})

	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeBody[model.LaunchResponse](t, resp)
	assert.Equal(t, "collect_1705224600000_0a1b2c3d", got.JobID)
	assert.Equal(t, model.JobStatusPending, got.Status)
	assert.NotEmpty(t, got.Message)
	assert.True(t, t0.Equal(got.StartedAt))
}

func TestRouter_LaunchCollection_ValidationSkipsWorker(t *testing.T) {
	f := newRouterFixture(t)
	f.invoker.EXPECT().Invoke(gomock.Any(), gomock.Any()).Times(0)

	tests := []struct {
		name string
		body any
	}{
		{"impossible date", model.CollectRequest{StartDate: "2024-02-30", EndDate: "2024-03-01"}},
		{"inverted range", model.CollectRequest{StartDate: "2024-01-12", EndDate: "2024-01-10"}},
		{"end after tomorrow", model.CollectRequest{StartDate: "2024-01-10", EndDate: "2024-01-20"}},
		{"malformed json", "{"},
		{"unknown field", `{"start_date":"2024-01-10","end_date":"2024-01-11","extra":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.do(t, http.MethodPost, "/api/collections", tt.body)
			require.Equal(t, http.StatusBadRequest, resp.StatusCode)
			body := decodeBody[ErrorBody](t, resp)
			assert.Equal(t, CodeValidation, body.Code)
			assert.NotEmpty(t, body.RequestID)
		})
	}
}

func TestRouter_LaunchCollection_WorkerFailure(t *testing.T) {
	f := newRouterFixture(t)
	f.invoker.EXPECT().Invoke(gomock.Any(), gomock.Any()).
		Return(nil, apperrors.Unavailable(io.ErrUnexpectedEOF, "send request")).Times(1)

	resp := f.do(t, http.MethodPost, "/api/collections", model.CollectRequest{StartDate: "2024-01-10", EndDate: "2024-01-10"})

	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body := decodeBody[ErrorBody](t, resp)
	assert.Equal(t, CodeInternal, body.Code)
	assert.Equal(t, "failed to start collect job", body.Message)
}

func TestRouter_LaunchExport_EmptyBody(t *testing.T) {
	f := newRouterFixture(t)
	f.invoker.EXPECT().Invoke(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, req model.WorkerRequest) (*model.WorkerResponse, error) {
			assert.Equal(t, model.JobKindExport, req.Kind)
			assert.Equal(t, "2024-01-14", req.EndDate)
			return &model.WorkerResponse{JobID: "export_1705224600000_0a1b2c3d", StartedAt: t0}, nil
		})

	resp := f.do(t, http.MethodPost, "/api/exports", nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeBody[model.LaunchResponse](t, resp)
	assert.Equal(t, model.JobStatusProcessing, got.Status)
	assert.Equal(t, "export_1705224600000_0a1b2c3d", got.JobID)
}

func TestRouter_GetJob(t *testing.T) {
	f := newRouterFixture(t)
	job := model.NewJob("collect_1705224600000_0a1b2c3d", model.JobKindCollect,
		model.JobParams{StartDate: "2024-01-10", EndDate: "2024-01-12"}, t0)
	f.jobs.EXPECT().Get(gomock.Any(), job.JobID).Return(job, nil).Times(2)

	resp := f.do(t, http.MethodGet, "/api/collections/"+job.JobID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeBody[model.Job](t, resp)
	assert.Equal(t, job.JobID, got.JobID)
	assert.Equal(t, model.JobStatusPending, got.Status)

	resp = f.do(t, http.MethodGet, "/api/exports/"+job.JobID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_GetJob_Unknown(t *testing.T) {
	f := newRouterFixture(t)
	f.jobs.EXPECT().Get(gomock.Any(), "collect_0_00000000").Return(nil, apperrors.NotFound("job not found"))

	resp := f.do(t, http.MethodGet, "/api/collections/collect_0_00000000", nil)

	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decodeBody[ErrorBody](t, resp)
	assert.Equal(t, CodeNotFound, body.Code)
}

func storedRecord(id string) *model.Disclosure {
	key := "disclosures/2024-01-10/" + id + ".pdf"
	return &model.Disclosure{
		RecordID:    id,
		CompanyCode: "7203",
		CompanyName: "Toyota Motor",
		Title:       "Quarterly report",
		DisclosedAt: time.Date(2024, 1, 10, 6, 0, 0, 0, time.UTC),
		DateKey:     "2024-01-10",
		StorageKey:  &key,
		JobID:       "collect_1_deadbeef",
		CreatedAt:   t0,
	}
}

func TestRouter_Download(t *testing.T) {
	f := newRouterFixture(t)
	rec := storedRecord("E001")
	f.records.EXPECT().GetByID(gomock.Any(), "E001").Return(rec, nil)
	f.objects.EXPECT().Exists(gomock.Any(), *rec.StorageKey).Return(nil)
	f.objects.EXPECT().PresignGet(gomock.Any(), *rec.StorageKey, 600*time.Second).Return("https://signed/E001.pdf", nil)

	resp := f.do(t, http.MethodGet, "/api/disclosures/E001/download?expiration=600", nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	got := decodeBody[map[string]string](t, resp)
	assert.Equal(t, "https://signed/E001.pdf", got["download_url"])
	assert.Equal(t, t0.Add(10*time.Minute).Format(time.RFC3339), got["expires_at"])
}

func TestRouter_Download_ExpirationOutOfRange(t *testing.T) {
	f := newRouterFixture(t)
	f.records.EXPECT().GetByID(gomock.Any(), gomock.Any()).Times(0)

	for _, raw := range []string{"30", "604801", "abc"} {
		resp := f.do(t, http.MethodGet, "/api/disclosures/E001/download?expiration="+raw, nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, raw)
		body := decodeBody[ErrorBody](t, resp)
		assert.Equal(t, CodeValidation, body.Code)
		assert.Equal(t, "expiration", body.Details["field"])
	}
}

func TestRouter_Download_MissingArtifact(t *testing.T) {
	f := newRouterFixture(t)
	rec := storedRecord("E002")
	rec.StorageKey = nil
	f.records.EXPECT().GetByID(gomock.Any(), "E002").Return(rec, nil)

	resp := f.do(t, http.MethodGet, "/api/disclosures/E002/download", nil)

	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decodeBody[ErrorBody](t, resp)
	assert.Contains(t, body.Message, "artifact not associated")
}

func TestRouter_ListDisclosures(t *testing.T) {
	f := newRouterFixture(t)
	f.records.EXPECT().ListByDateRange(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, q model.DisclosureQuery) ([]*model.Disclosure, error) {
			assert.Equal(t, "2024-01-08", q.Range.StartKey())
			assert.Equal(t, "2024-01-10", q.Range.EndKey())
			assert.Equal(t, "7203", q.CompanyCode)
			assert.Equal(t, 5, q.Limit)
			return []*model.Disclosure{storedRecord("E001")}, nil
		})

	resp := f.do(t, http.MethodGet, "/api/disclosures?start_date=2024-01-08&end_date=2024-01-10&company_code=7203&limit=5", nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeBody[DisclosureList](t, resp)
	assert.Equal(t, 1, got.Count)
	assert.Equal(t, "E001", got.Items[0].RecordID)
}

func TestRouter_ListDisclosures_BadLimit(t *testing.T) {
	f := newRouterFixture(t)
	resp := f.do(t, http.MethodGet, "/api/disclosures?start_date=2024-01-08&end_date=2024-01-10&limit=ten", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_WorkerEndpoint(t *testing.T) {
	f := newRouterFixture(t)
	f.collect.EXPECT().Start(gomock.Any(), model.WorkerRequest{
		Kind: model.JobKindCollect, StartDate: "2024-01-10", EndDate: "2024-01-10",
	}).Return(&model.WorkerResponse{JobID: "collect_1_deadbeef", Status: model.JobStatusPending}, nil)

	resp := f.do(t, http.MethodPost, "/internal/workers/collect", model.WorkerRequest{StartDate: "2024-01-10", EndDate: "2024-01-10"})

	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	got := decodeBody[model.WorkerResponse](t, resp)
	assert.Equal(t, "collect_1_deadbeef", got.JobID)
}

func TestRouter_WorkerEndpoint_Rejections(t *testing.T) {
	f := newRouterFixture(t)

	resp := f.do(t, http.MethodPost, "/internal/workers/export", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/internal/workers/purge", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = f.do(t, http.MethodPost, "/internal/workers/collect", model.WorkerRequest{Kind: model.JobKindExport})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_UnknownRoute(t *testing.T) {
	f := newRouterFixture(t)
	resp := f.do(t, http.MethodGet, "/api/nope", nil)

	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, CodeNotFound, decodeBody[ErrorBody](t, resp).Code)
}
