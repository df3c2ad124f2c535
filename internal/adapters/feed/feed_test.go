package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/target/disclosure-collector/internal/errors"
)

func newTestFeed(t *testing.T, h http.Handler, opts ...func(*Options)) (*HTTPFeed, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	o := Options{BaseURL: srv.URL + "/v1"}
	for _, fn := range opts {
		fn(&o)
	}
	f, err := New(o)
	require.NoError(t, err)
	return f, srv
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{})
	assert.ErrorContains(t, err, "base URL is required")
	_, err = New(Options{BaseURL: "file:///tmp"})
	assert.ErrorContains(t, err, "must be http or https")
}

func TestHTTPFeed_Fetch(t *testing.T) {
	f, _ := newTestFeed(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/disclosures", r.URL.Path)
		assert.Equal(t, "2024-01-10", r.URL.Query().Get("date"))
		assert.Equal(t, "disclosure-collector/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[
			{"id":"E001","company_code":"7203","company_name":"Toyota Motor","title":"Q3 report",
			 "disclosed_at":"2024-01-10T06:00:00Z","document_url":"https://docs.example.com/E001.pdf"},
			{"id":"E002","company_code":"6758","company_name":"Sony Group","title":"Notice",
			 "disclosed_at":"2024-01-10T07:15:00Z"}
		]}`))
	}))

	items, err := f.Fetch(context.Background(), time.Date(2024, 1, 10, 23, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "E001", items[0].ID)
	assert.Equal(t, "https://docs.example.com/E001.pdf", items[0].DocumentURL)
	assert.Equal(t, time.Date(2024, 1, 10, 7, 15, 0, 0, time.UTC), items[1].DisclosedAt.UTC())
}

func TestHTTPFeed_Fetch_StatusClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"not found", http.StatusNotFound, apperrors.IsNotFound},
		{"rate limited", http.StatusTooManyRequests, apperrors.IsRetryable},
		{"bad gateway", http.StatusBadGateway, apperrors.IsRetryable},
		{"forbidden", http.StatusForbidden, apperrors.IsInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, _ := newTestFeed(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			_, err := f.Fetch(context.Background(), time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected classification: %v", err)
		})
	}
}

func TestHTTPFeed_Fetch_MalformedListing(t *testing.T) {
	f, _ := newTestFeed(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[`))
	}))
	_, err := f.Fetch(context.Background(), time.Now())
	assert.True(t, apperrors.IsInternal(err))
}

func TestHTTPFeed_Download(t *testing.T) {
	f, srv := newTestFeed(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/docs/E001.pdf", r.URL.Path)
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.7"))
	}))

	body, contentType, err := f.Download(context.Background(), srv.URL+"/docs/E001.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(body))
	assert.Equal(t, "application/pdf", contentType)
}

func TestHTTPFeed_Download_TooLarge(t *testing.T) {
	f, srv := newTestFeed(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(make([]byte, 32))
	}), func(o *Options) { o.MaxDocumentBytes = 16 })

	_, _, err := f.Download(context.Background(), srv.URL+"/big.pdf")
	assert.ErrorContains(t, err, "exceeds 16 bytes")
}

func TestHTTPFeed_Download_InvalidURL(t *testing.T) {
	f, _ := newTestFeed(t, http.NotFoundHandler())
	_, _, err := f.Download(context.Background(), "javascript:alert(1)")
	assert.True(t, apperrors.IsValidation(err))
}

func TestHTTPFeed_Download_ConnectionRefused(t *testing.T) {
	f, srv := newTestFeed(t, http.NotFoundHandler())
	target := srv.URL + "/doc.pdf"
	srv.Close()

	_, _, err := f.Download(context.Background(), target)
	require.Error(t, err)
	assert.True(t, apperrors.IsRetryable(err), "unexpected classification: %v", err)
}
