package repositories

import (
	"context"
	"database/sql"

	"github.com/pitchside/season-engine/models"
)

type RewardGrantRepository interface {
	// InsertIfAbsent records a grant keyed by (tournamentID, teamID) and
	// reports whether this call created the row. An existing row means the
	// payout was already issued and must be skipped.
	InsertIfAbsent(ctx context.Context, g *models.RewardGrant) (bool, error)
	// Delete releases a reservation whose ledger call failed, so the next
	// settlement attempt retries it.
	Delete(ctx context.Context, tournamentID, teamID int) error
	ListGrantedTeamIDs(ctx context.Context, tournamentID int) (map[int]bool, error)
}

type postgresRewardGrantRepository struct {
	db *sql.DB
}

func NewPostgresRewardGrantRepository(db *sql.DB) RewardGrantRepository {
	return &postgresRewardGrantRepository{db: db}
}

func (r *postgresRewardGrantRepository) InsertIfAbsent(ctx context.Context, g *models.RewardGrant) (bool, error) {
	query := `
		INSERT INTO reward_grants (tournament_id, team_id, credits, gems)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tournament_id, team_id) DO NOTHING`
	result, err := r.db.ExecContext(ctx, query, g.TournamentID, g.TeamID, g.Credits, g.Gems)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	return affected > 0, err
}

func (r *postgresRewardGrantRepository) Delete(ctx context.Context, tournamentID, teamID int) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM reward_grants WHERE tournament_id = $1 AND team_id = $2`,
		tournamentID, teamID,
	)
	return err
}

func (r *postgresRewardGrantRepository) ListGrantedTeamIDs(ctx context.Context, tournamentID int) (map[int]bool, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT team_id FROM reward_grants WHERE tournament_id = $1`, tournamentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	granted := make(map[int]bool)
	for rows.Next() {
		var teamID int
		if err := rows.Scan(&teamID); err != nil {
			return nil, err
		}
		granted[teamID] = true
	}
	return granted, rows.Err()
}
