package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pitchside/season-engine/services"
)

type MatchHandler struct {
	engine *services.Engine
}

func NewMatchHandler(engine *services.Engine) *MatchHandler {
	return &MatchHandler{engine: engine}
}

// Complete is the result webhook the match execution service calls when a
// simulation finishes. Duplicate deliveries are absorbed by the engine.
func (h *MatchHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "matchID"))
	if err != nil || id <= 0 {
		notFoundResponse(w, r)
		return
	}

	var input struct {
		HomeScore *int `json:"home_score"`
		AwayScore *int `json:"away_score"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.HomeScore == nil || input.AwayScore == nil {
		badRequestResponse(w, r, errors.New("home_score and away_score are required"))
		return
	}

	if err := h.engine.OnMatchCompleted(r.Context(), id, *input.HomeScore, *input.AwayScore); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
