package handlers

import (
	"context"
	"net/http"

	"github.com/Dosada05/stream-follow/middleware"
	"github.com/Dosada05/stream-follow/services"
)

type StarHandler struct {
	starService services.StarService
}

func NewStarHandler(starService services.StarService) *StarHandler {
	return &StarHandler{starService: starService}
}

// Звезды идемпотентны: повторный PUT/DELETE отвечает так же, как первый.

func (h *StarHandler) StarMatch(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "matchID", h.starService.StarMatch)
}

func (h *StarHandler) UnstarMatch(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "matchID", h.starService.UnstarMatch)
}

func (h *StarHandler) StarTeam(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "teamID", h.starService.StarTeam)
}

func (h *StarHandler) UnstarTeam(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "teamID", h.starService.UnstarTeam)
}

func (h *StarHandler) StarStreamer(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "streamerID", h.starService.StarStreamer)
}

func (h *StarHandler) UnstarStreamer(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, "streamerID", h.starService.UnstarStreamer)
}

func (h *StarHandler) mutate(w http.ResponseWriter, r *http.Request, param string, op func(ctx context.Context, userID, targetID int) error) {
	targetID, err := idFromURL(r, param)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	if err := op(r.Context(), userID, targetID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
