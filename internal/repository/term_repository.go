package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/kanvas-api/internal/models"
)

// TermRepository handles persistence for academic terms.
type TermRepository struct {
	db *sqlx.DB
}

func NewTermRepository(db *sqlx.DB) *TermRepository {
	return &TermRepository{db: db}
}

// List returns all terms, newest first.
func (r *TermRepository) List(ctx context.Context) ([]models.Term, error) {
	const query = `SELECT id, code, starts_on, ends_on FROM terms ORDER BY starts_on DESC`
	var terms []models.Term
	if err := r.db.SelectContext(ctx, &terms, query); err != nil {
		return nil, fmt.Errorf("list terms: %w", err)
	}
	return terms, nil
}

// FindCurrent returns the term containing day.
func (r *TermRepository) FindCurrent(ctx context.Context, day time.Time) (*models.Term, error) {
	const query = `SELECT id, code, starts_on, ends_on FROM terms WHERE $1::date BETWEEN starts_on AND ends_on ORDER BY starts_on DESC LIMIT 1`
	var t models.Term
	if err := r.db.GetContext(ctx, &t, query, day); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find current term: %w", err)
	}
	return &t, nil
}

// FindNext returns the earliest term starting after day.
func (r *TermRepository) FindNext(ctx context.Context, day time.Time) (*models.Term, error) {
	const query = `SELECT id, code, starts_on, ends_on FROM terms WHERE starts_on > $1::date ORDER BY starts_on ASC LIMIT 1`
	var t models.Term
	if err := r.db.GetContext(ctx, &t, query, day); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find next term: %w", err)
	}
	return &t, nil
}
