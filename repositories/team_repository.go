package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/pitchside/season-engine/models"
)

var ErrTeamNotFound = errors.New("team not found")

type TeamRepository interface {
	GetByID(ctx context.Context, id int) (*models.Team, error)
	ListByDivision(ctx context.Context, divisionID int) ([]models.Team, error)
	CountByDivision(ctx context.Context, divisionID int) (int, error)
	// CreateSynthetic inserts an AI-controlled filler team.
	CreateSynthetic(ctx context.Context, name string, divisionID int) (*models.Team, error)
	UpdateDivision(ctx context.Context, teamID, divisionID int) error
}

type postgresTeamRepository struct {
	db *sql.DB
}

func NewPostgresTeamRepository(db *sql.DB) TeamRepository {
	return &postgresTeamRepository{db: db}
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, id int) (*models.Team, error) {
	query := `SELECT id, name, division_id, synthetic, created_at FROM teams WHERE id = $1`
	t := &models.Team{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&t.ID, &t.Name, &t.DivisionID, &t.Synthetic, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTeamNotFound
	}
	return t, err
}

func (r *postgresTeamRepository) ListByDivision(ctx context.Context, divisionID int) ([]models.Team, error) {
	query := `
		SELECT id, name, division_id, synthetic, created_at
		FROM teams
		WHERE division_id = $1
		ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, divisionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var teams []models.Team
	for rows.Next() {
		var t models.Team
		if err := rows.Scan(&t.ID, &t.Name, &t.DivisionID, &t.Synthetic, &t.CreatedAt); err != nil {
			return nil, err
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

func (r *postgresTeamRepository) CountByDivision(ctx context.Context, divisionID int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM teams WHERE division_id = $1`, divisionID,
	).Scan(&count)
	return count, err
}

func (r *postgresTeamRepository) CreateSynthetic(ctx context.Context, name string, divisionID int) (*models.Team, error) {
	query := `
		INSERT INTO teams (name, division_id, synthetic)
		VALUES ($1, $2, TRUE)
		RETURNING id, created_at`
	t := &models.Team{Name: name, DivisionID: divisionID, Synthetic: true}
	err := r.db.QueryRowContext(ctx, query, name, divisionID).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *postgresTeamRepository) UpdateDivision(ctx context.Context, teamID, divisionID int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE teams SET division_id = $1 WHERE id = $2`, divisionID, teamID,
	)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}
