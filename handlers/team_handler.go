package handlers

import (
	"net/http"

	"github.com/Dosada05/stream-follow/middleware"
	"github.com/Dosada05/stream-follow/services"
)

type TeamHandler struct {
	teamService services.TeamService
}

func NewTeamHandler(teamService services.TeamService) *TeamHandler {
	return &TeamHandler{teamService: teamService}
}

func (h *TeamHandler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	var input services.AddTeamInput

	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	team, err := h.teamService.AddTeam(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"team": team}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TeamHandler) GetTeam(w http.ResponseWriter, r *http.Request) {
	teamID, err := idFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	view, err := h.teamService.GetDisplayedTeam(r.Context(), teamID, middleware.ViewerID(r.Context()))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, view, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TeamHandler) ListTeams(w http.ResponseWriter, r *http.Request) {
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

	page, err := h.teamService.ListTeams(r.Context(), filter, middleware.ViewerID(r.Context()), cursor, dir)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, pageEnvelope(page), nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
