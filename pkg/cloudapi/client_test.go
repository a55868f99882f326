package cloudapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	apperrors "roomcast/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *Client {
	return NewClient(ClientConfig{
		BaseURL:       baseURL,
		AccessToken:   "test-token",
		PhoneNumberID: "12345",
		Timeout:       5 * time.Second,
		RetryCount:    2,
	})
}

func TestGetMediaInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/media-1", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"media-1","url":"https://cdn.example/dl","mime_type":"image/jpeg","file_size":2048}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	info, err := client.GetMediaInfo(context.Background(), "media-1")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/dl", info.URL)
	assert.Equal(t, int64(2048), info.FileSize)
}

func TestGetMediaInfoErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantCode  apperrors.ErrorCode
		retryable bool
	}{
		{"expired reference", http.StatusNotFound, apperrors.ErrCodeMediaNotFound, false},
		{"gone", http.StatusGone, apperrors.ErrCodeMediaNotFound, false},
		{"bad credential", http.StatusUnauthorized, apperrors.ErrCodeMediaAccessDenied, false},
		{"forbidden", http.StatusForbidden, apperrors.ErrCodeMediaAccessDenied, false},
		{"server error", http.StatusInternalServerError, apperrors.ErrCodeMediaTransient, true},
		{"rate limited", http.StatusTooManyRequests, apperrors.ErrCodeMediaTransient, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			_, err := client.GetMediaInfo(context.Background(), "media-1")
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, tt.wantCode))
			assert.Equal(t, tt.retryable, apperrors.IsRetryable(err))
		})
	}
}

func TestDownload(t *testing.T) {
	payload := []byte("some media bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	data, contentType, err := client.Download(context.Background(), server.URL, 1024)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	assert.Equal(t, "image/jpeg", contentType)
}

func TestDownloadEnforcesLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// No Content-Length: force the streaming limit check.
		w.Header().Set("Content-Type", "application/octet-stream")
		flusher := w.(http.Flusher)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(strings.Repeat("x", 100)))
		flusher.Flush()
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, _, err := client.Download(context.Background(), server.URL, 50)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeMediaTooLarge))
}

func TestDownloadDeclaredOversize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "2048")
		_, _ = w.Write([]byte(strings.Repeat("x", 2048)))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, _, err := client.Download(context.Background(), server.URL, 100)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeMediaTooLarge))
}

func TestSendText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/12345/messages", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messaging_product":"whatsapp","messages":[{"id":"wamid.OUT"}]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	resp, err := client.SendText(context.Background(), "6287000000001", "hello")
	require.NoError(t, err)
	assert.Equal(t, "wamid.OUT", resp.MessageID())
}

func TestSendTextRetriesTransientFailures(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.RETRIED"}]}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	resp, err := client.SendText(context.Background(), "6287000000001", "hello")
	require.NoError(t, err)
	assert.Equal(t, "wamid.RETRIED", resp.MessageID())
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestSendTextPermanentFailureNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid recipient","code":100}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.SendText(context.Background(), "bogus", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid recipient")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
