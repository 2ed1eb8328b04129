package ingest

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T, client *fakeMediaClient, store *fakeStore) chi.Router {
	t.Helper()
	params := Params{
		Media:           client,
		Logger:          zap.NewNop(),
		TransformName:   "Content Adaptive Multiple Bitrate MP4",
		UploadURLExpiry: time.Hour,
	}
	if store != nil {
		params.Store = store
	}
	svc := NewService(params)
	r := chi.NewRouter()
	NewHTTPHandler(svc, zap.NewNop(), 1<<20, 1<<20).Register(r)
	return r
}

func multipartBody(t *testing.T, fieldName, fileName, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile(fieldName, fileName)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return body, mw.FormDataContentType()
}

func TestHandleBlobUpload(t *testing.T) {
	client := &fakeMediaClient{}
	router := newTestRouter(t, client, nil)

	body, contentType := multipartBody(t, "file", "movie.mp4", "fake video bytes")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/blobs", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var result Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "job-"+result.Token, result.JobName)
	assert.Equal(t, "job-"+result.Token, client.submittedJob)
	assert.Equal(t, "movie.mp4", client.uploadedName)
}

func TestHandleBlobUploadMissingFile(t *testing.T) {
	router := newTestRouter(t, &fakeMediaClient{}, nil)

	body, contentType := multipartBody(t, "document", "movie.mp4", "bytes")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/blobs", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleBlobUploadIngestFailure(t *testing.T) {
	client := &fakeMediaClient{uploadErr: assert.AnError}
	router := newTestRouter(t, client, nil)

	body, contentType := multipartBody(t, "file", "movie.mp4", "bytes")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/blobs", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleBlobNotification(t *testing.T) {
	client := &fakeMediaClient{}
	store := &fakeStore{objects: map[string]string{"inbox/clip.mp4": "stored bytes"}}
	router := newTestRouter(t, client, store)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/blob",
		strings.NewReader(`{"bucket":"encodeflow-inbox","key":"inbox/clip.mp4","size":12}`))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Equal(t, []byte("stored bytes"), client.uploadedBytes)
}

func TestHandleBlobNotificationMissingKey(t *testing.T) {
	router := newTestRouter(t, &fakeMediaClient{}, &fakeStore{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/blob",
		strings.NewReader(`{"bucket":"encodeflow-inbox"}`))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
