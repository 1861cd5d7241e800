package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/pitchside/season-engine/models"
)

var (
	ErrEntryNotFound      = errors.New("tournament entry not found")
	ErrEntryConflict      = errors.New("team is already registered for this tournament")
	ErrTournamentCapacity = errors.New("tournament is at capacity")
)

type EntryRepository interface {
	Create(ctx context.Context, e *models.TournamentEntry) error
	// CreateNextSeed inserts an entry with the next free seed, in a single
	// statement guarded by the capacity. Two racing inserts for the last
	// slot collide on the seed, so the bracket can never go over capacity.
	// Returns ErrTournamentCapacity when the bracket is already full.
	CreateNextSeed(ctx context.Context, tournamentID, teamID, capacity int) (*models.TournamentEntry, error)
	CountByTournament(ctx context.Context, tournamentID int) (int, error)
	// ListBySeed returns all entries ordered by seed ascending.
	ListBySeed(ctx context.Context, tournamentID int) ([]models.TournamentEntry, error)
	// SetFinalRankIfUnset writes the rank once; a set rank is never
	// overwritten and re-settlement reports false instead of failing.
	SetFinalRankIfUnset(ctx context.Context, entryID, rank int) (bool, error)
	// MaxSeed returns the highest assigned seed, 0 when no entries exist.
	MaxSeed(ctx context.Context, tournamentID int) (int, error)
}

type postgresEntryRepository struct {
	db *sql.DB
}

func NewPostgresEntryRepository(db *sql.DB) EntryRepository {
	return &postgresEntryRepository{db: db}
}

func (r *postgresEntryRepository) Create(ctx context.Context, e *models.TournamentEntry) error {
	query := `
		INSERT INTO tournament_entries (tournament_id, team_id, seed)
		VALUES ($1, $2, $3)
		RETURNING id`
	err := r.db.QueryRowContext(ctx, query, e.TournamentID, e.TeamID, e.Seed).Scan(&e.ID)
	if err != nil && isUniqueViolation(err) {
		return ErrEntryConflict
	}
	return err
}

func (r *postgresEntryRepository) CreateNextSeed(ctx context.Context, tournamentID, teamID, capacity int) (*models.TournamentEntry, error) {
	query := `
		INSERT INTO tournament_entries (tournament_id, team_id, seed)
		SELECT $1, $2, COALESCE(MAX(seed), 0) + 1
		FROM tournament_entries
		WHERE tournament_id = $1
		HAVING COUNT(*) < $3
		RETURNING id, seed`
	e := &models.TournamentEntry{TournamentID: tournamentID, TeamID: teamID}
	err := r.db.QueryRowContext(ctx, query, tournamentID, teamID, capacity).Scan(&e.ID, &e.Seed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTournamentCapacity
	}
	if err != nil && isUniqueViolation(err) {
		return nil, ErrEntryConflict
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *postgresEntryRepository) CountByTournament(ctx context.Context, tournamentID int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tournament_entries WHERE tournament_id = $1`, tournamentID,
	).Scan(&count)
	return count, err
}

func (r *postgresEntryRepository) ListBySeed(ctx context.Context, tournamentID int) ([]models.TournamentEntry, error) {
	query := `
		SELECT id, tournament_id, team_id, seed, final_rank
		FROM tournament_entries
		WHERE tournament_id = $1
		ORDER BY seed`
	rows, err := r.db.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.TournamentEntry
	for rows.Next() {
		var e models.TournamentEntry
		if err := rows.Scan(&e.ID, &e.TournamentID, &e.TeamID, &e.Seed, &e.FinalRank); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *postgresEntryRepository) SetFinalRankIfUnset(ctx context.Context, entryID, rank int) (bool, error) {
	query := `UPDATE tournament_entries SET final_rank = $1 WHERE id = $2 AND final_rank IS NULL`
	result, err := r.db.ExecContext(ctx, query, rank, entryID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	return affected > 0, err
}

func (r *postgresEntryRepository) MaxSeed(ctx context.Context, tournamentID int) (int, error) {
	var max int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seed), 0) FROM tournament_entries WHERE tournament_id = $1`, tournamentID,
	).Scan(&max)
	return max, err
}
