package models

// Division is a parallel competition bucket of a fixed team count.
// Tier 1 is the top division; promotion moves a team to a lower tier number.
type Division struct {
	ID       int    `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	Tier     int    `json:"tier" db:"tier"`
	Capacity int    `json:"capacity" db:"capacity"`
}
