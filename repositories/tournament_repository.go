package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/pitchside/season-engine/models"
)

var (
	ErrTournamentNotFound       = errors.New("tournament not found")
	ErrTournamentStatusConflict = errors.New("tournament is no longer in the expected status")
)

type TournamentRepository interface {
	Create(ctx context.Context, t *models.Tournament) error
	GetByID(ctx context.Context, id int) (*models.Tournament, error)
	// UpdateStatusIf moves a tournament from one status to another. It
	// returns ErrTournamentStatusConflict when the row is no longer in the
	// from status, which is how concurrent callers lose the race cleanly.
	UpdateStatusIf(ctx context.Context, id int, from, to models.TournamentStatus) error
	// BeginCountdown moves an open registration into countdown and persists
	// when the countdown ends, so the round-1 start survives a restart.
	BeginCountdown(ctx context.Context, id int, endsAt time.Time) error
	// SetCurrentRound raises the round cursor. It never lowers it, so a
	// stale race loser cannot roll the bookkeeping back.
	SetCurrentRound(ctx context.Context, id, round int) error
	ExistsForSeason(ctx context.Context, seasonID, divisionID int, kind models.TournamentKind) (bool, error)
	// ListFillExpired finds open registrations whose fill deadline passed.
	ListFillExpired(ctx context.Context, now time.Time) ([]*models.Tournament, error)
	// ListCountdownExpired finds countdown tournaments whose countdown ran
	// out, typically because the process restarted while the timer was armed.
	ListCountdownExpired(ctx context.Context, now time.Time) ([]*models.Tournament, error)
	// ListAdvanceCandidates finds in-progress tournaments whose current
	// round is fully completed but whose next round batch was never created.
	// Tournaments sitting on a completed final round are included so stalled
	// settlements are retried too.
	ListAdvanceCandidates(ctx context.Context) ([]*models.Tournament, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

const tournamentColumns = `id, kind, season_id, division_id, status, current_round, capacity, fill_deadline, countdown_ends_at, created_at`

func scanTournament(row interface{ Scan(...interface{}) error }) (*models.Tournament, error) {
	t := &models.Tournament{}
	err := row.Scan(&t.ID, &t.Kind, &t.SeasonID, &t.DivisionID, &t.Status,
		&t.CurrentRound, &t.Capacity, &t.FillDeadline, &t.CountdownEndsAt, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (kind, season_id, division_id, status, current_round, capacity, fill_deadline)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`
	return r.db.QueryRowContext(ctx, query,
		t.Kind, t.SeasonID, t.DivisionID, t.Status, t.CurrentRound, t.Capacity, t.FillDeadline,
	).Scan(&t.ID, &t.CreatedAt)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, id int) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`
	t, err := scanTournament(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTournamentNotFound
	}
	return t, err
}

func (r *postgresTournamentRepository) UpdateStatusIf(ctx context.Context, id int, from, to models.TournamentStatus) error {
	query := `UPDATE tournaments SET status = $1 WHERE id = $2 AND status = $3`
	result, err := r.db.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentStatusConflict)
}

func (r *postgresTournamentRepository) BeginCountdown(ctx context.Context, id int, endsAt time.Time) error {
	query := `
		UPDATE tournaments SET status = $1, countdown_ends_at = $2
		WHERE id = $3 AND status = $4`
	result, err := r.db.ExecContext(ctx, query, models.StatusCountdown, endsAt, id, models.StatusRegistrationOpen)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentStatusConflict)
}

func (r *postgresTournamentRepository) SetCurrentRound(ctx context.Context, id, round int) error {
	query := `UPDATE tournaments SET current_round = GREATEST(current_round, $1) WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, round, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) ExistsForSeason(ctx context.Context, seasonID, divisionID int, kind models.TournamentKind) (bool, error) {
	query := `SELECT EXISTS (
		SELECT 1 FROM tournaments WHERE season_id = $1 AND division_id = $2 AND kind = $3
	)`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, seasonID, divisionID, kind).Scan(&exists)
	return exists, err
}

func (r *postgresTournamentRepository) ListFillExpired(ctx context.Context, now time.Time) ([]*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + `
		FROM tournaments
		WHERE status = $1 AND fill_deadline <= $2
		ORDER BY id`
	return r.list(ctx, query, models.StatusRegistrationOpen, now)
}

func (r *postgresTournamentRepository) ListCountdownExpired(ctx context.Context, now time.Time) ([]*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + `
		FROM tournaments
		WHERE status = $1 AND countdown_ends_at <= $2
		ORDER BY id`
	return r.list(ctx, query, models.StatusCountdown, now)
}

func (r *postgresTournamentRepository) ListAdvanceCandidates(ctx context.Context) ([]*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + `
		FROM tournaments t
		WHERE t.status = $1
		  AND EXISTS (
			SELECT 1 FROM matches m
			WHERE m.tournament_id = t.id AND m.round = t.current_round
		  )
		  AND NOT EXISTS (
			SELECT 1 FROM matches m
			WHERE m.tournament_id = t.id AND m.round = t.current_round AND m.status <> $2
		  )
		  AND NOT EXISTS (
			SELECT 1 FROM matches m
			WHERE m.tournament_id = t.id AND m.round = t.current_round + 1
		  )
		ORDER BY t.id`
	return r.list(ctx, query, models.StatusInProgress, models.MatchCompleted)
}

func (r *postgresTournamentRepository) list(ctx context.Context, query string, args ...interface{}) ([]*models.Tournament, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tournaments []*models.Tournament
	for rows.Next() {
		t, err := scanTournament(rows)
		if err != nil {
			return nil, err
		}
		tournaments = append(tournaments, t)
	}
	return tournaments, rows.Err()
}
