package models

import "time"

type MatchStatus string

const (
	MatchScheduled  MatchStatus = "scheduled"
	MatchInProgress MatchStatus = "in_progress"
	MatchCompleted  MatchStatus = "completed"
)

// ConsolationRound marks the third-place match. It sits outside the main
// round sequence so that round-completion checks never wait on it.
const ConsolationRound = -1

// Match covers both league fixtures (TournamentID nil) and bracket matches
// (TournamentID and Round set). HomeSeed/AwaySeed carry the bracket slot for
// elimination matches and are zero for league fixtures.
type Match struct {
	ID           int         `json:"id" db:"id"`
	UID          string      `json:"uid" db:"uid"`
	SeasonID     int         `json:"season_id" db:"season_id"`
	DivisionID   int         `json:"division_id" db:"division_id"`
	TournamentID *int        `json:"tournament_id,omitempty" db:"tournament_id"`
	Round        *int        `json:"round,omitempty" db:"round"`
	HomeTeamID   int         `json:"home_team_id" db:"home_team_id"`
	AwayTeamID   int         `json:"away_team_id" db:"away_team_id"`
	HomeSeed     int         `json:"home_seed" db:"home_seed"`
	AwaySeed     int         `json:"away_seed" db:"away_seed"`
	HomeScore    *int        `json:"home_score,omitempty" db:"home_score"`
	AwayScore    *int        `json:"away_score,omitempty" db:"away_score"`
	Status       MatchStatus `json:"status" db:"status"`
	KickoffAt    time.Time   `json:"kickoff_at" db:"kickoff_at"`
}

// IsBracket reports whether the match belongs to an elimination bracket.
func (m *Match) IsBracket() bool {
	return m.TournamentID != nil && m.Round != nil
}
