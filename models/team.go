package models

import "time"

type Team struct {
	ID         int       `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	DivisionID int       `json:"division_id" db:"division_id"`
	Synthetic  bool      `json:"synthetic" db:"synthetic"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
