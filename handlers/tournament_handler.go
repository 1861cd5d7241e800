package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pitchside/season-engine/models"
	"github.com/pitchside/season-engine/repositories"
	"github.com/pitchside/season-engine/services"
)

type TournamentHandler struct {
	bracket        services.BracketService
	tournamentRepo repositories.TournamentRepository
	entryRepo      repositories.EntryRepository
	matchRepo      repositories.MatchRepository
}

func NewTournamentHandler(
	bracket services.BracketService,
	tournamentRepo repositories.TournamentRepository,
	entryRepo repositories.EntryRepository,
	matchRepo repositories.MatchRepository,
) *TournamentHandler {
	return &TournamentHandler{
		bracket:        bracket,
		tournamentRepo: tournamentRepo,
		entryRepo:      entryRepo,
		matchRepo:      matchRepo,
	}
}

func tournamentIDParam(r *http.Request) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, "tournamentID"))
	if err != nil || id <= 0 {
		return 0, errors.New("invalid tournament id")
	}
	return id, nil
}

// Status returns the bracket with its entries and every round's matches, so
// an operator can see at a glance which round a tournament is stuck in.
func (h *TournamentHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, err := tournamentIDParam(r)
	if err != nil {
		notFoundResponse(w, r)
		return
	}

	tournament, err := h.tournamentRepo.GetByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	entries, err := h.entryRepo.ListBySeed(r.Context(), id)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}

	rounds := make(map[string][]*models.Match)
	for round := 1; round <= tournament.CurrentRound+1; round++ {
		matches, err := h.matchRepo.ListByTournamentRound(r.Context(), id, round)
		if err != nil {
			serverErrorResponse(w, r, err)
			return
		}
		if len(matches) > 0 {
			rounds[strconv.Itoa(round)] = matches
		}
	}
	consolation, err := h.matchRepo.ListByTournamentRound(r.Context(), id, models.ConsolationRound)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}
	if len(consolation) > 0 {
		rounds["consolation"] = consolation
	}

	response := jsonResponse{
		"tournament": tournament,
		"entries":    entries,
		"rounds":     rounds,
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RegisterEntry adds a team to an open registration.
func (h *TournamentHandler) RegisterEntry(w http.ResponseWriter, r *http.Request) {
	id, err := tournamentIDParam(r)
	if err != nil {
		notFoundResponse(w, r)
		return
	}

	var input struct {
		TeamID int `json:"team_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if input.TeamID <= 0 {
		badRequestResponse(w, r, errors.New("team_id is required"))
		return
	}

	entry, err := h.bracket.RegisterEntry(r.Context(), id, input.TeamID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusCreated, jsonResponse{"entry": entry}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
