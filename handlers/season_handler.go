package handlers

import (
	"net/http"

	"github.com/pitchside/season-engine/services"
)

type SeasonHandler struct {
	seasons *services.SeasonService
}

func NewSeasonHandler(seasons *services.SeasonService) *SeasonHandler {
	return &SeasonHandler{seasons: seasons}
}

// Status reports the active season and the derived calendar position.
func (h *SeasonHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.seasons.Status(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"season": status}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
