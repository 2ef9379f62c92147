package handlers

import (
	"net/http"

	"github.com/Dosada05/stream-follow/middleware"
	"github.com/Dosada05/stream-follow/services"
)

type PlaylistHandler struct {
	playlistService services.PlaylistService
}

func NewPlaylistHandler(playlistService services.PlaylistService) *PlaylistHandler {
	return &PlaylistHandler{playlistService: playlistService}
}

func (h *PlaylistHandler) CreatePlaylist(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	var input services.CreatePlaylistInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	playlist, err := h.playlistService.CreatePlaylist(r.Context(), userID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"playlist": playlist}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PlaylistHandler) GetPlaylist(w http.ResponseWriter, r *http.Request) {
	playlistID, err := idFromURL(r, "playlistID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	view, err := h.playlistService.GetDisplayedPlaylist(r.Context(), middleware.ViewerID(r.Context()), playlistID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, view, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PlaylistHandler) ListPlaylists(w http.ResponseWriter, r *http.Request) {
	cursor, dir, err := pageParamsFromQuery(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	page, err := h.playlistService.ListPlaylists(r.Context(), cursor, dir)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, pageEnvelope(page), nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PlaylistHandler) AddBookmarkToPlaylist(w http.ResponseWriter, r *http.Request) {
	playlistID, err := idFromURL(r, "playlistID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
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

	if err := h.playlistService.AddBookmarkToPlaylist(r.Context(), userID, playlistID, bookmarkID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *PlaylistHandler) RemoveBookmarkFromPlaylist(w http.ResponseWriter, r *http.Request) {
	playlistID, err := idFromURL(r, "playlistID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
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

	if err := h.playlistService.RemoveBookmarkFromPlaylist(r.Context(), userID, playlistID, bookmarkID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *PlaylistHandler) AddVideo(w http.ResponseWriter, r *http.Request) {
	var input services.AddVideoInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	video, err := h.playlistService.AddVideo(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"video": video}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PlaylistHandler) GetVideo(w http.ResponseWriter, r *http.Request) {
	videoID, err := idFromURL(r, "videoID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	view, err := h.playlistService.GetDisplayedVideo(r.Context(), videoID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, view, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PlaylistHandler) AddBookmark(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	var input services.AddBookmarkInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	bookmark, err := h.playlistService.AddBookmark(r.Context(), userID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"bookmark": bookmark}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PlaylistHandler) ListBookmarksBy(w http.ResponseWriter, r *http.Request) {
	userID, err := idFromURL(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	cursor, dir, err := pageParamsFromQuery(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	page, err := h.playlistService.ListBookmarksBy(r.Context(), userID, cursor, dir)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, pageEnvelope(page), nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
