package workerclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/target/disclosure-collector/internal/core"
	"github.com/target/disclosure-collector/internal/domain/model"
	apperrors "github.com/target/disclosure-collector/internal/errors"
	"github.com/target/disclosure-collector/internal/mocks"
)

type staticCredential string

func (s staticCredential) Credential(context.Context) (string, error) { return string(s), nil }

type failingCredential struct{}

func (failingCredential) Credential(context.Context) (string, error) {
	return "", errors.New("secret unavailable")
}

var startedAt = time.Date(2024, 1, 14, 9, 30, 0, 0, time.UTC)

func newInvoker(t *testing.T, url string) *HTTPInvoker {
	t.Helper()
	inv, err := NewHTTPInvoker(HTTPInvokerOptions{BaseURL: url, Credentials: staticCredential("k-123")})
	require.NoError(t, err)
	return inv
}

func TestNewHTTPInvoker_Validation(t *testing.T) {
	_, err := NewHTTPInvoker(HTTPInvokerOptions{Credentials: staticCredential("k")})
	assert.ErrorContains(t, err, "base URL is required")

	_, err = NewHTTPInvoker(HTTPInvokerOptions{BaseURL: "ftp://worker", Credentials: staticCredential("k")})
	assert.ErrorContains(t, err, "must be http or https")

	_, err = NewHTTPInvoker(HTTPInvokerOptions{BaseURL: "http://worker"})
	assert.ErrorContains(t, err, "CredentialSource is required")
}

func TestHTTPInvoker_Invoke(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/internal/workers/collect", r.URL.Path)
		assert.Equal(t, "k-123", r.Header.Get(DefaultAPIKeyHeader))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req model.WorkerRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "2024-01-01", req.StartDate)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(model.WorkerResponse{
			JobID:     "collect_1705224600000_0a1b2c3d",
			Status:    model.JobStatusPending,
			Message:   "Collection job accepted",
			StartedAt: startedAt,
		})
	}))
	defer srv.Close()

	resp, err := newInvoker(t, srv.URL+"/").Invoke(context.Background(), model.WorkerRequest{
		Kind: model.JobKindCollect, StartDate: "2024-01-01", EndDate: "2024-01-02",
	})
	require.NoError(t, err)
	assert.Equal(t, "collect_1705224600000_0a1b2c3d", resp.JobID)
	assert.Equal(t, model.JobStatusPending, resp.Status)
	assert.True(t, startedAt.Equal(resp.StartedAt))
	assert.Equal(t, int32(1), calls.Load())
}

func TestHTTPInvoker_Invoke_StatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"throttled", http.StatusTooManyRequests, apperrors.IsRetryable},
		{"unavailable", http.StatusServiceUnavailable, apperrors.IsRetryable},
		{"server error", http.StatusBadGateway, apperrors.IsRetryable},
		{"unauthorized", http.StatusUnauthorized, apperrors.IsInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				http.Error(w, "nope", tt.status)
			}))
			defer srv.Close()

			_, err := newInvoker(t, srv.URL).Invoke(context.Background(), model.WorkerRequest{Kind: model.JobKindExport})
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected classification: %v", err)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestHTTPInvoker_Invoke_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>"))
	}))
	defer srv.Close()

	_, err := newInvoker(t, srv.URL).Invoke(context.Background(), model.WorkerRequest{Kind: model.JobKindExport})
	assert.ErrorContains(t, err, "decode worker response")
}

func TestHTTPInvoker_Invoke_CredentialFailure(t *testing.T) {
	inv, err := NewHTTPInvoker(HTTPInvokerOptions{BaseURL: "http://127.0.0.1:1", Credentials: failingCredential{}})
	require.NoError(t, err)

	_, err = inv.Invoke(context.Background(), model.WorkerRequest{Kind: model.JobKindCollect})
	assert.ErrorContains(t, err, "resolve worker credential")
}

func TestHTTPInvoker_Invoke_UnknownKind(t *testing.T) {
	_, err := newInvoker(t, "http://127.0.0.1:1").Invoke(context.Background(), model.WorkerRequest{Kind: "purge"})
	assert.True(t, apperrors.IsValidation(err))
}

func TestLocalInvoker(t *testing.T) {
	ctrl := gomock.NewController(t)
	collect := mocks.NewMockWorker(ctrl)
	export := mocks.NewMockWorker(ctrl)

	inv, err := NewLocalInvoker(map[model.JobKind]core.Worker{
		model.JobKindCollect: collect,
		model.JobKindExport:  export,
	})
	require.NoError(t, err)

	req := model.WorkerRequest{Kind: model.JobKindExport}
	export.EXPECT().Start(gomock.Any(), req).Return(&model.WorkerResponse{JobID: "export_1_deadbeef"}, nil)

	resp, err := inv.Invoke(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "export_1_deadbeef", resp.JobID)
}

func TestLocalInvoker_Validation(t *testing.T) {
	_, err := NewLocalInvoker(nil)
	assert.Error(t, err)

	_, err = NewLocalInvoker(map[model.JobKind]core.Worker{"purge": nil})
	assert.True(t, apperrors.IsValidation(err))

	ctrl := gomock.NewController(t)
	inv, err := NewLocalInvoker(map[model.JobKind]core.Worker{model.JobKindCollect: mocks.NewMockWorker(ctrl)})
	require.NoError(t, err)
	_, err = inv.Invoke(context.Background(), model.WorkerRequest{Kind: model.JobKindExport})
	assert.True(t, apperrors.IsInternal(err))
}
