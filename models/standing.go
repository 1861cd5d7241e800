package models

// Standing is a division table row aggregated from completed league fixtures.
// Standings are computed, not stored; rollover archives them as a snapshot.
type Standing struct {
	SeasonID     int `json:"season_id"`
	DivisionID   int `json:"division_id"`
	TeamID       int `json:"team_id"`
	Played       int `json:"played"`
	Wins         int `json:"wins"`
	Draws        int `json:"draws"`
	Losses       int `json:"losses"`
	GoalsFor     int `json:"goals_for"`
	GoalsAgainst int `json:"goals_against"`
	Points       int `json:"points"`
}
