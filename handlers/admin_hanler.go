package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pitchside/season-engine/services"
)

// AdminHandler exposes the operator recovery surface. Everything here
// delegates to the same idempotent operations the schedulers drive, so a
// manual invocation can never fork the state machine.
type AdminHandler struct {
	engine  *services.Engine
	seasons *services.SeasonService
}

func NewAdminHandler(engine *services.Engine, seasons *services.SeasonService) *AdminHandler {
	return &AdminHandler{engine: engine, seasons: seasons}
}

// RunTrigger fires one named season action out of schedule.
func (h *AdminHandler) RunTrigger(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	if err := h.seasons.RunTrigger(r.Context(), kind); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"triggered": kind}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Tick runs one catch-up sweep on demand.
func (h *AdminHandler) Tick(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Tick(r.Context()); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"swept": true}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AdvanceTournament re-evaluates round advancement for one tournament.
func (h *AdminHandler) AdvanceTournament(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "tournamentID"))
	if err != nil || id <= 0 {
		notFoundResponse(w, r)
		return
	}
	if err := h.engine.AdvanceRound(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"advanced": id}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
