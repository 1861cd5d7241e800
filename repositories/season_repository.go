package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/pitchside/season-engine/models"
)

var (
	ErrSeasonNotFound = errors.New("season not found")
	ErrSeasonConflict = errors.New("season number already exists")
)

type SeasonRepository interface {
	// Current returns the active season with the highest number.
	Current(ctx context.Context) (*models.Season, error)
	Create(ctx context.Context, s *models.Season) error
	Archive(ctx context.Context, id int) error
}

type postgresSeasonRepository struct {
	db *sql.DB
}

func NewPostgresSeasonRepository(db *sql.DB) SeasonRepository {
	return &postgresSeasonRepository{db: db}
}

func (r *postgresSeasonRepository) Current(ctx context.Context) (*models.Season, error) {
	query := `
		SELECT id, number, start_date, status, created_at
		FROM seasons
		WHERE status = $1
		ORDER BY number DESC
		LIMIT 1`
	s := &models.Season{}
	err := r.db.QueryRowContext(ctx, query, models.SeasonActive).
		Scan(&s.ID, &s.Number, &s.StartDate, &s.Status, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSeasonNotFound
	}
	return s, err
}

func (r *postgresSeasonRepository) Create(ctx context.Context, s *models.Season) error {
	query := `
		INSERT INTO seasons (number, start_date, status)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, s.Number, s.StartDate, s.Status).
		Scan(&s.ID, &s.CreatedAt)
	if err != nil && isUniqueViolation(err) {
		return ErrSeasonConflict
	}
	return err
}

func (r *postgresSeasonRepository) Archive(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE seasons SET status = $1 WHERE id = $2`, models.SeasonArchived, id,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrSeasonNotFound)
}
