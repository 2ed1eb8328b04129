package completion

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRouter(client *fakeMediaClient) chi.Router {
	svc := newTestService(client, nil)
	r := chi.NewRouter()
	NewHTTPHandler(svc, zap.NewNop()).Register(r)
	return r
}

func postEvents(router chi.Router, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandleEventsSingleEnvelope(t *testing.T) {
	client := &fakeMediaClient{}
	router := newTestRouter(client)

	rec := postEvents(router, `{
		"id": "evt-1",
		"eventType": "Microsoft.Media.JobOutputStateChange",
		"data": {"output": {"state": "Finished", "assetName": "output-abc123"}}
	}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"output-abc123"}, client.published)
}

func TestHandleEventsBatch(t *testing.T) {
	client := &fakeMediaClient{}
	router := newTestRouter(client)

	rec := postEvents(router, `[
		{"id": "evt-1", "eventType": "Microsoft.Media.JobScheduled", "data": {}},
		{"id": "evt-2", "eventType": "Microsoft.Media.JobOutputStateChange",
		 "data": {"output": {"state": "Processing", "assetName": "output-abc123"}}},
		{"id": "evt-3", "eventType": "Microsoft.Media.JobOutputStateChange",
		 "data": {"output": {"state": "Finished", "assetName": "output-abc123"}}}
	]`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"output-abc123"}, client.published, "exactly one publish for the finished output")
	assert.Equal(t, 3, client.logins)
}

func TestHandleEventsInvalidBody(t *testing.T) {
	router := newTestRouter(&fakeMediaClient{})

	rec := postEvents(router, `{"id": broken`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
