package handlers

import (
	"errors"
	"net/http"

	"github.com/Dosada05/stream-follow/middleware"
	"github.com/Dosada05/stream-follow/services"
)

type VoteHandler struct {
	voteService services.VoteService
}

func NewVoteHandler(voteService services.VoteService) *VoteHandler {
	return &VoteHandler{voteService: voteService}
}

type voteInput struct {
	ThumbUp *bool `json:"thumb_up"`
}

func (h *VoteHandler) SetPlaylistVote(w http.ResponseWriter, r *http.Request) {
	playlistID, err := idFromURL(r, "playlistID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	var input voteInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.ThumbUp == nil {
		badRequestResponse(w, r, errors.New("thumb_up is required"))
		return
	}

	if err := h.voteService.SetPlaylistVote(r.Context(), userID, playlistID, *input.ThumbUp); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *VoteHandler) RemovePlaylistVote(w http.ResponseWriter, r *http.Request) {
	playlistID, err := idFromURL(r, "playlistID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	if err := h.voteService.RemovePlaylistVote(r.Context(), userID, playlistID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *VoteHandler) SetBookmarkVote(w http.ResponseWriter, r *http.Request) {
	bookmarkID, err := idFromURL(r, "bookmarkID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	var input voteInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.ThumbUp == nil {
		badRequestResponse(w, r, errors.New("thumb_up is required"))
		return
	}

	if err := h.voteService.SetBookmarkVote(r.Context(), userID, bookmarkID, *input.ThumbUp); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *VoteHandler) RemoveBookmarkVote(w http.ResponseWriter, r *http.Request) {
	bookmarkID, err := idFromURL(r, "bookmarkID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	if err := h.voteService.RemoveBookmarkVote(r.Context(), userID, bookmarkID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
