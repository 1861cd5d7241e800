package models

import "time"

// SeasonStatus mirrors the seasons.status ENUM in the database.
type SeasonStatus string

const (
	SeasonActive   SeasonStatus = "active"
	SeasonArchived SeasonStatus = "archived"
)

// Season is the persisted record of a calendar cycle. The live position
// inside the cycle (day, phase) is derived from StartDate, never stored.
type Season struct {
	ID        int          `json:"id" db:"id"`
	Number    int          `json:"number" db:"number"`
	StartDate time.Time    `json:"start_date" db:"start_date"`
	Status    SeasonStatus `json:"status" db:"status"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}
