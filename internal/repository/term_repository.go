package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/grayson-dev/gcis-api/internal/models"
)

// TermRepository provides persistence for academic terms.
type TermRepository struct {
	db *sqlx.DB
}

// NewTermRepository creates a new term repository.
func NewTermRepository(db *sqlx.DB) *TermRepository {
	return &TermRepository{db: db}
}

// List returns terms, optionally filtered by the active flag.
func (r *TermRepository) List(ctx context.Context, filter models.TermFilter) ([]models.Term, error) {
	query := `SELECT id, year, semester, active FROM terms`
	var args []interface{}
	if filter.Active != nil {
		query += ` WHERE active = $1`
		args = append(args, *filter.Active)
	}
	query += ` ORDER BY year DESC, semester`
	var terms []models.Term
	if err := r.db.SelectContext(ctx, &terms, query, args...); err != nil {
		return nil, fmt.Errorf("list terms: %w", err)
	}
	return terms, nil
}

// FindByID loads a term by surrogate id.
func (r *TermRepository) FindByID(ctx context.Context, id int64) (*models.Term, error) {
	const query = `SELECT id, year, semester, active FROM terms WHERE id = $1`
	var term models.Term
	if err := r.db.GetContext(ctx, &term, query, id); err != nil {
		return nil, err
	}
	return &term, nil
}

// FindByNaturalKey loads a term by (year, semester).
func (r *TermRepository) FindByNaturalKey(ctx context.Context, year int, semester models.Semester) (*models.Term, error) {
	const query = `SELECT id, year, semester, active FROM terms WHERE year = $1 AND semester = $2`
	var term models.Term
	if err := r.db.GetContext(ctx, &term, query, year, semester); err != nil {
		return nil, err
	}
	return &term, nil
}
