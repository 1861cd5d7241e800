package repositories

import (
	"context"
	"database/sql"

	"github.com/pitchside/season-engine/models"
)

// StandingRepository aggregates division tables from completed league
// fixtures. Standings are derived on read; nothing is written back.
type StandingRepository interface {
	// ListByDivision returns the table ordered by points, then goal
	// difference, then goals for, then team id. Teams without a completed
	// fixture still appear with zeroed stats.
	ListByDivision(ctx context.Context, seasonID, divisionID int) ([]models.Standing, error)
}

type postgresStandingRepository struct {
	db *sql.DB
}

func NewPostgresStandingRepository(db *sql.DB) StandingRepository {
	return &postgresStandingRepository{db: db}
}

func (r *postgresStandingRepository) ListByDivision(ctx context.Context, seasonID, divisionID int) ([]models.Standing, error) {
	query := `
		WITH results AS (
			SELECT home_team_id AS team_id, home_score AS scored, away_score AS conceded
			FROM matches
			WHERE season_id = $1 AND division_id = $2 AND tournament_id IS NULL AND status = $3
			UNION ALL
			SELECT away_team_id, away_score, home_score
			FROM matches
			WHERE season_id = $1 AND division_id = $2 AND tournament_id IS NULL AND status = $3
		)
		SELECT
			t.id,
			COUNT(r.team_id) AS played,
			COALESCE(SUM(CASE WHEN r.scored > r.conceded THEN 1 ELSE 0 END), 0) AS wins,
			COALESCE(SUM(CASE WHEN r.scored = r.conceded THEN 1 ELSE 0 END), 0) AS draws,
			COALESCE(SUM(CASE WHEN r.scored < r.conceded THEN 1 ELSE 0 END), 0) AS losses,
			COALESCE(SUM(r.scored), 0) AS goals_for,
			COALESCE(SUM(r.conceded), 0) AS goals_against
		FROM teams t
		LEFT JOIN results r ON r.team_id = t.id
		WHERE t.division_id = $2
		GROUP BY t.id
		ORDER BY
			SUM(CASE WHEN r.scored > r.conceded THEN 3 WHEN r.scored = r.conceded THEN 1 ELSE 0 END) DESC NULLS LAST,
			COALESCE(SUM(r.scored), 0) - COALESCE(SUM(r.conceded), 0) DESC,
			COALESCE(SUM(r.scored), 0) DESC,
			t.id`
	rows, err := r.db.QueryContext(ctx, query, seasonID, divisionID, models.MatchCompleted)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var standings []models.Standing
	for rows.Next() {
		s := models.Standing{SeasonID: seasonID, DivisionID: divisionID}
		if err := rows.Scan(&s.TeamID, &s.Played, &s.Wins, &s.Draws, &s.Losses, &s.GoalsFor, &s.GoalsAgainst); err != nil {
			return nil, err
		}
		s.Points = 3*s.Wins + s.Draws
		standings = append(standings, s)
	}
	return standings, rows.Err()
}
