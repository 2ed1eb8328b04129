package ingest

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/your-org/encodeflow/internal/httpx"
)

// HTTPHandler exposes the two blob triggers: an inline multipart upload and
// an object-store bucket notification.
type HTTPHandler struct {
	service      *Service
	logger       *zap.Logger
	maxSizeBytes int64
	formMemBytes int64
}

// NewHTTPHandler constructs the HTTP handler for the ingest triggers.
func NewHTTPHandler(service *Service, logger *zap.Logger, maxSizeBytes, formMemBytes int64) *HTTPHandler {
	return &HTTPHandler{
		service:      service,
		logger:       logger,
		maxSizeBytes: maxSizeBytes,
		formMemBytes: formMemBytes,
	}
}

// Register mounts the ingest routes on r.
func (h *HTTPHandler) Register(r chi.Router) {
	r.Post("/api/v1/blobs", h.handleBlobUpload)
	r.Post("/api/v1/notifications/blob", h.handleBlobNotification)
}

func (h *HTTPHandler) handleBlobUpload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > 0 && r.ContentLength > h.maxSizeBytes {
		httpx.WriteError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	if err := r.ParseMultipartForm(h.formMemBytes); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	if header.Size > h.maxSizeBytes {
		httpx.WriteError(w, http.StatusRequestEntityTooLarge, "file exceeds max size limit")
		return
	}

	result, err := h.service.ProcessBlob(r.Context(), file, header.Size, header.Filename)
	if err != nil {
		h.logger.Error("ingest failed", zap.String("file", header.Filename), zap.Error(err))
		httpx.WriteError(w, http.StatusInternalServerError, "ingest failed")
		return
	}

	httpx.WriteJSON(w, http.StatusAccepted, result)
}

type blobNotification struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	Size   int64  `json:"size"`
}

func (h *HTTPHandler) handleBlobNotification(w http.ResponseWriter, r *http.Request) {
	var note blobNotification
	if err := json.NewDecoder(r.Body).Decode(&note); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid notification body")
		return
	}
	if note.Key == "" {
		httpx.WriteError(w, http.StatusBadRequest, "key is required")
		return
	}

	result, err := h.service.ProcessStoredBlob(r.Context(), note.Key)
	if err != nil {
		h.logger.Error("ingest failed", zap.String("key", note.Key), zap.Error(err))
		httpx.WriteError(w, http.StatusInternalServerError, "ingest failed")
		return
	}

	httpx.WriteJSON(w, http.StatusAccepted, result)
}
