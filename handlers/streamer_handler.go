package handlers

import (
	"net/http"

	"github.com/Dosada05/stream-follow/middleware"
	"github.com/Dosada05/stream-follow/services"
)

type StreamerHandler struct {
	streamerService services.StreamerService
}

func NewStreamerHandler(streamerService services.StreamerService) *StreamerHandler {
	return &StreamerHandler{streamerService: streamerService}
}

func (h *StreamerHandler) GetStreamer(w http.ResponseWriter, r *http.Request) {
	streamerID, err := idFromURL(r, "streamerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	view, err := h.streamerService.GetDisplayedStreamer(r.Context(), streamerID, middleware.ViewerID(r.Context()))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, view, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *StreamerHandler) ListStreamers(w http.ResponseWriter, r *http.Request) {
	filter, err := services.ParseListFilter(r.URL.Query().Get("filter"))
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	cursor, dir, err := pageParamsFromQuery(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	page, err := h.streamerService.ListStreamers(r.Context(), filter, middleware.ViewerID(r.Context()), cursor, dir)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, pageEnvelope(page), nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
