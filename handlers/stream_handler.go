package handlers

import (
	"net/http"

	"github.com/Dosada05/stream-follow/middleware"
	"github.com/Dosada05/stream-follow/services"
)

type StreamHandler struct {
	streamService services.StreamService
}

func NewStreamHandler(streamService services.StreamService) *StreamHandler {
	return &StreamHandler{streamService: streamService}
}

func (h *StreamHandler) AddStream(w http.ResponseWriter, r *http.Request) {
	matchID, err := idFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	streamerID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	var input struct {
		Comment *string `json:"comment,omitempty"`
	}
	// Тело опционально: стрим можно объявить без комментария.
	if r.ContentLength > 0 {
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	}

	if err := h.streamService.AddStream(r.Context(), streamerID, matchID, input.Comment); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *StreamHandler) RemoveStream(w http.ResponseWriter, r *http.Request) {
	matchID, err := idFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	streamerID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	if err := h.streamService.RemoveStream(r.Context(), streamerID, matchID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
