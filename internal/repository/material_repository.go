package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/kanvas-api/internal/models"
)

// MaterialRepository persists offering materials.
type MaterialRepository struct {
	db *sqlx.DB
}

func NewMaterialRepository(db *sqlx.DB) *MaterialRepository {
	return &MaterialRepository{db: db}
}

func (r *MaterialRepository) Create(ctx context.Context, m *models.Material) error {
	const query = `INSERT INTO materials (offering_id, title, url, uploaded_by) VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	row := r.db.QueryRowxContext(ctx, query, m.OfferingID, m.Title, m.URL, m.UploadedBy)
	if err := row.Scan(&m.ID, &m.CreatedAt); err != nil {
		return fmt.Errorf("create material: %w", err)
	}
	return nil
}

func (r *MaterialRepository) FindByID(ctx context.Context, id int64) (*models.Material, error) {
	const query = `SELECT id, offering_id, title, url, uploaded_by, created_at FROM materials WHERE id = $1`
	var m models.Material
	if err := r.db.GetContext(ctx, &m, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find material: %w", err)
	}
	return &m, nil
}

func (r *MaterialRepository) ListByOffering(ctx context.Context, offeringID int64) ([]models.Material, error) {
	const query = `SELECT id, offering_id, title, url, uploaded_by, created_at FROM materials WHERE offering_id = $1 ORDER BY created_at DESC`
	var list []models.Material
	if err := r.db.SelectContext(ctx, &list, query, offeringID); err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	return list, nil
}

func (r *MaterialRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM materials WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete material: %w", err)
	}
	return nil
}
