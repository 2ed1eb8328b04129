package completion

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/your-org/encodeflow/internal/httpx"
)

// HTTPHandler exposes the notification webhook. Deliveries may carry a single
// envelope or a JSON array of envelopes.
type HTTPHandler struct {
	service *Service
	logger  *zap.Logger
}

// NewHTTPHandler constructs the HTTP handler for the notification trigger.
func NewHTTPHandler(service *Service, logger *zap.Logger) *HTTPHandler {
	return &HTTPHandler{service: service, logger: logger}
}

// Register mounts the completion routes on r.
func (h *HTTPHandler) Register(r chi.Router) {
	r.Post("/api/v1/events", h.handleEvents)
}

func (h *HTTPHandler) handleEvents(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	events, err := decodeEvents(body)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid event payload")
		return
	}

	for _, evt := range events {
		if err := h.service.HandleEvent(r.Context(), evt); err != nil {
			h.logger.Error("event handling failed",
				zap.String("event_id", evt.ID),
				zap.String("event_type", evt.EventType),
				zap.Error(err))
			httpx.WriteError(w, http.StatusInternalServerError, "event handling failed")
			return
		}
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]int{"handled": len(events)})
}

func decodeEvents(body []byte) ([]Event, error) {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var events []Event
		if err := json.Unmarshal(body, &events); err != nil {
			return nil, err
		}
		return events, nil
	}
	var evt Event
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, err
	}
	return []Event{evt}, nil
}
