package models

import "time"

// TournamentKind mirrors the tournaments.kind ENUM in the database.
type TournamentKind string

const (
	KindMidSeasonCup TournamentKind = "mid_season_cup"
	KindPlayoff      TournamentKind = "playoff"
)

// HasConsolation reports whether the kind plays a third-place match
// between the semifinal losers.
func (k TournamentKind) HasConsolation() bool {
	return k == KindPlayoff
}

// TournamentStatus mirrors the tournaments.status ENUM in the database.
type TournamentStatus string

const (
	StatusRegistrationOpen TournamentStatus = "registration_open"
	StatusCountdown        TournamentStatus = "countdown"
	StatusInProgress       TournamentStatus = "in_progress"
	StatusCompleted        TournamentStatus = "completed"
)

// Tournament is one elimination bracket. Status and CurrentRound are owned
// exclusively by the bracket engine; every transition goes through a
// conditional update against the previous value.
type Tournament struct {
	ID           int              `json:"id" db:"id"`
	Kind         TournamentKind   `json:"kind" db:"kind"`
	SeasonID     int              `json:"season_id" db:"season_id"`
	DivisionID   int              `json:"division_id" db:"division_id"`
	Status       TournamentStatus `json:"status" db:"status"`
	CurrentRound int              `json:"current_round" db:"current_round"`
	Capacity     int              `json:"capacity" db:"capacity"`
	FillDeadline time.Time        `json:"fill_deadline" db:"fill_deadline"`
	// CountdownEndsAt is set on the transition into countdown; the round-1
	// kickoff is recoverable from it after a restart.
	CountdownEndsAt *time.Time `json:"countdown_ends_at,omitempty" db:"countdown_ends_at"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
}
