package models

import "time"

// Reward is a one-time credit/gem payout.
type Reward struct {
	Credits int `json:"credits"`
	Gems    int `json:"gems"`
}

// RewardGrant records an issued payout. The (tournament_id, team_id) pair is
// unique in the database; a row exists only for grants the ledger accepted,
// which is what makes settlement retries safe.
type RewardGrant struct {
	TournamentID int       `json:"tournament_id" db:"tournament_id"`
	TeamID       int       `json:"team_id" db:"team_id"`
	Credits      int       `json:"credits" db:"credits"`
	Gems         int       `json:"gems" db:"gems"`
	GrantedAt    time.Time `json:"granted_at" db:"granted_at"`
}
