package models

// TournamentEntry registers a team in a bracket. Seed is assigned once at
// registration and drives every pairing decision; FinalRank is written
// exactly once, at settlement, and never overwritten.
type TournamentEntry struct {
	ID           int  `json:"id" db:"id"`
	TournamentID int  `json:"tournament_id" db:"tournament_id"`
	TeamID       int  `json:"team_id" db:"team_id"`
	Seed         int  `json:"seed" db:"seed"`
	FinalRank    *int `json:"final_rank,omitempty" db:"final_rank"`
}
