package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/pitchside/season-engine/models"
)

var (
	ErrMatchNotFound         = errors.New("match not found")
	ErrRoundAlreadyExists    = errors.New("round batch already exists for this tournament")
	ErrScheduleAlreadyExists = errors.New("league schedule already exists for this division")
	ErrEmptyBatch            = errors.New("match batch is empty")
)

type MatchRepository interface {
	GetByID(ctx context.Context, id int) (*models.Match, error)
	// CreateRoundBatch inserts a whole round in one guarded statement: it
	// writes nothing unless the (tournamentID, round) pair has no rows yet.
	// Concurrent attempts leave exactly one batch; losers get
	// ErrRoundAlreadyExists.
	CreateRoundBatch(ctx context.Context, tournamentID, round int, matches []*models.Match) error
	ListByTournamentRound(ctx context.Context, tournamentID, round int) ([]*models.Match, error)
	ListScheduledByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error)
	// StartIfScheduled transitions a single match scheduled→in_progress and
	// reports whether this call performed the transition.
	StartIfScheduled(ctx context.Context, id int) (bool, error)
	// StartScheduledBefore transitions every overdue scheduled match to
	// in_progress and returns the ids this call transitioned.
	StartScheduledBefore(ctx context.Context, now time.Time) ([]int, error)
	// CompleteIf records the score and transitions to completed unless the
	// match already is; reports whether this call performed the transition.
	CompleteIf(ctx context.Context, id, homeScore, awayScore int) (bool, error)
	LeagueScheduleExists(ctx context.Context, seasonID, divisionID int) (bool, error)
	CreateLeagueSchedule(ctx context.Context, seasonID, divisionID int, matches []*models.Match) error
}

type postgresMatchRepository struct {
	db *sql.DB
}

func NewPostgresMatchRepository(db *sql.DB) MatchRepository {
	return &postgresMatchRepository{db: db}
}

const matchColumns = `id, uid, season_id, division_id, tournament_id, round,
	home_team_id, away_team_id, home_seed, away_seed, home_score, away_score, status, kickoff_at`

func scanMatch(row interface{ Scan(...interface{}) error }) (*models.Match, error) {
	m := &models.Match{}
	err := row.Scan(&m.ID, &m.UID, &m.SeasonID, &m.DivisionID, &m.TournamentID, &m.Round,
		&m.HomeTeamID, &m.AwayTeamID, &m.HomeSeed, &m.AwaySeed, &m.HomeScore, &m.AwayScore,
		&m.Status, &m.KickoffAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, id int) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`
	m, err := scanMatch(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMatchNotFound
	}
	return m, err
}

// CreateRoundBatch relies on the partial unique index over
// (tournament_id, round, home_seed); combined with the NOT EXISTS guard the
// insert is all-or-nothing even when two writers race it.
func (r *postgresMatchRepository) CreateRoundBatch(ctx context.Context, tournamentID, round int, matches []*models.Match) error {
	if len(matches) == 0 {
		return ErrEmptyBatch
	}

	uids := make([]string, len(matches))
	homeIDs := make([]int64, len(matches))
	awayIDs := make([]int64, len(matches))
	homeSeeds := make([]int64, len(matches))
	awaySeeds := make([]int64, len(matches))
	for i, m := range matches {
		uids[i] = m.UID
		homeIDs[i] = int64(m.HomeTeamID)
		awayIDs[i] = int64(m.AwayTeamID)
		homeSeeds[i] = int64(m.HomeSeed)
		awaySeeds[i] = int64(m.AwaySeed)
	}

	first := matches[0]
	query := `
		INSERT INTO matches (uid, season_id, division_id, tournament_id, round,
			home_team_id, away_team_id, home_seed, away_seed, status, kickoff_at)
		SELECT b.uid, $2, $3, $1, $4, b.home_id, b.away_id, b.home_seed, b.away_seed, $5, $6
		FROM unnest($7::text[], $8::int[], $9::int[], $10::int[], $11::int[])
			AS b(uid, home_id, away_id, home_seed, away_seed)
		WHERE NOT EXISTS (
			SELECT 1 FROM matches WHERE tournament_id = $1 AND round = $4
		)
		ON CONFLICT DO NOTHING`

	result, err := r.db.ExecContext(ctx, query,
		tournamentID, first.SeasonID, first.DivisionID, round,
		models.MatchScheduled, first.KickoffAt,
		pq.Array(uids), pq.Array(homeIDs), pq.Array(awayIDs),
		pq.Array(homeSeeds), pq.Array(awaySeeds),
	)
	if err != nil {
		return fmt.Errorf("create round %d for tournament %d: %w", round, tournamentID, err)
	}
	return checkAffectedRows(result, ErrRoundAlreadyExists)
}

func (r *postgresMatchRepository) ListByTournamentRound(ctx context.Context, tournamentID, round int) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + `
		FROM matches
		WHERE tournament_id = $1 AND round = $2
		ORDER BY home_seed, id`
	return r.list(ctx, query, tournamentID, round)
}

func (r *postgresMatchRepository) ListScheduledByTournament(ctx context.Context, tournamentID int) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + `
		FROM matches
		WHERE tournament_id = $1 AND status = $2
		ORDER BY round, home_seed, id`
	return r.list(ctx, query, tournamentID, models.MatchScheduled)
}

func (r *postgresMatchRepository) StartIfScheduled(ctx context.Context, id int) (bool, error) {
	query := `UPDATE matches SET status = $1 WHERE id = $2 AND status = $3`
	result, err := r.db.ExecContext(ctx, query, models.MatchInProgress, id, models.MatchScheduled)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	return affected > 0, err
}

func (r *postgresMatchRepository) StartScheduledBefore(ctx context.Context, now time.Time) ([]int, error) {
	query := `
		UPDATE matches SET status = $1
		WHERE status = $2 AND kickoff_at <= $3
		RETURNING id`
	rows, err := r.db.QueryContext(ctx, query, models.MatchInProgress, models.MatchScheduled, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *postgresMatchRepository) CompleteIf(ctx context.Context, id, homeScore, awayScore int) (bool, error) {
	query := `
		UPDATE matches SET status = $1, home_score = $2, away_score = $3
		WHERE id = $4 AND status <> $1`
	result, err := r.db.ExecContext(ctx, query, models.MatchCompleted, homeScore, awayScore, id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	return affected > 0, err
}

func (r *postgresMatchRepository) LeagueScheduleExists(ctx context.Context, seasonID, divisionID int) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM matches
		WHERE season_id = $1 AND division_id = $2 AND tournament_id IS NULL
	)`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, seasonID, divisionID).Scan(&exists)
	return exists, err
}

func (r *postgresMatchRepository) CreateLeagueSchedule(ctx context.Context, seasonID, divisionID int, matches []*models.Match) error {
	if len(matches) == 0 {
		return ErrEmptyBatch
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Serialize concurrent schedule generation on the division row, then
	// re-check existence inside the transaction.
	if _, err := tx.ExecContext(ctx, `SELECT id FROM divisions WHERE id = $1 FOR UPDATE`, divisionID); err != nil {
		return err
	}
	var exists bool
	guard := `SELECT EXISTS (
		SELECT 1 FROM matches
		WHERE season_id = $1 AND division_id = $2 AND tournament_id IS NULL
	)`
	if err := tx.QueryRowContext(ctx, guard, seasonID, divisionID).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrScheduleAlreadyExists
	}

	insert := `
		INSERT INTO matches (uid, season_id, division_id, home_team_id, away_team_id, status, kickoff_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, m := range matches {
		if _, err := tx.ExecContext(ctx, insert,
			m.UID, seasonID, divisionID, m.HomeTeamID, m.AwayTeamID, models.MatchScheduled, m.KickoffAt,
		); err != nil {
			return fmt.Errorf("insert league fixture %s: %w", m.UID, err)
		}
	}
	return tx.Commit()
}

func (r *postgresMatchRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Match, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []*models.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
