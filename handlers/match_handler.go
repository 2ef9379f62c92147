package handlers

import (
	"net/http"

	"github.com/Dosada05/stream-follow/middleware"
	"github.com/Dosada05/stream-follow/services"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(matchService services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: matchService}
}

func (h *MatchHandler) CreateMatch(w http.ResponseWriter, r *http.Request) {
	var input services.AddMatchInput

	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.AddMatch(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := idFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	view, err := h.matchService.GetDisplayedMatch(r.Context(), matchID, middleware.ViewerID(r.Context()))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, view, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
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

	page, err := h.matchService.ListMatches(r.Context(), filter, middleware.ViewerID(r.Context()), cursor, dir)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, pageEnvelope(page), nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *MatchHandler) ListMatchesByTeam(w http.ResponseWriter, r *http.Request) {
	teamID, err := idFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	cursor, dir, err := pageParamsFromQuery(r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	page, err := h.matchService.ListMatchesByTeam(r.Context(), teamID, cursor, dir)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, pageEnvelope(page), nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
