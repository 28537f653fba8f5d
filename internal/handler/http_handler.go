package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/provant-erp/be-prs-dashboard/internal/apperrors"
	"github.com/provant-erp/be-prs-dashboard/internal/service"
)

// FeedProvider is the service surface the handler drives.
type FeedProvider interface {
	GetFeed(ctx context.Context, req *service.FeedRequest) (*service.FeedResponse, error)
}

// HTTPHandler handles HTTP requests.
type HTTPHandler struct {
	feed FeedProvider
	log  zerolog.Logger
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(feed FeedProvider, log zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{feed: feed, log: log}
}

// GetFeed serves the unified requisition document feed.
func (h *HTTPHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req service.FeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.Wrap(err, apperrors.CodeValidation, "invalid request body"))
		return
	}

	resp, err := h.feed.GetFeed(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode feed response")
	}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Str("stage", string(apperrors.StageOf(err))).Msg("Feed request failed")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": err.Error(),
		"code":  string(apperrors.CodeOf(err)),
	})
}
