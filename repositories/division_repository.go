package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/pitchside/season-engine/models"
)

var ErrDivisionNotFound = errors.New("division not found")

type DivisionRepository interface {
	GetByID(ctx context.Context, id int) (*models.Division, error)
	// List returns all divisions ordered by tier, best tier first.
	List(ctx context.Context) ([]models.Division, error)
}

type postgresDivisionRepository struct {
	db *sql.DB
}

func NewPostgresDivisionRepository(db *sql.DB) DivisionRepository {
	return &postgresDivisionRepository{db: db}
}

func (r *postgresDivisionRepository) GetByID(ctx context.Context, id int) (*models.Division, error) {
	query := `SELECT id, name, tier, capacity FROM divisions WHERE id = $1`
	d := &models.Division{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&d.ID, &d.Name, &d.Tier, &d.Capacity)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDivisionNotFound
	}
	return d, err
}

func (r *postgresDivisionRepository) List(ctx context.Context) ([]models.Division, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, tier, capacity FROM divisions ORDER BY tier, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var divisions []models.Division
	for rows.Next() {
		var d models.Division
		if err := rows.Scan(&d.ID, &d.Name, &d.Tier, &d.Capacity); err != nil {
			return nil, err
		}
		divisions = append(divisions, d)
	}
	return divisions, rows.Err()
}
