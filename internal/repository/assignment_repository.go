package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/kanvas-api/internal/models"
)

const assignmentColumns = `id, offering_id, title, description, weight_percent, assigned_on, due_at, is_open, created_at, updated_at`

// AssignmentRepository persists assignments.
type AssignmentRepository struct {
	db *sqlx.DB
}

func NewAssignmentRepository(db *sqlx.DB) *AssignmentRepository {
	return &AssignmentRepository{db: db}
}

func (r *AssignmentRepository) FindByID(ctx context.Context, id int64) (*models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE id = $1`
	var a models.Assignment
	if err := r.db.GetContext(ctx, &a, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find assignment: %w", err)
	}
	return &a, nil
}

// ListByOffering orders by due date with undated work last.
func (r *AssignmentRepository) ListByOffering(ctx context.Context, offeringID int64) ([]models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM assignments WHERE offering_id = $1 ORDER BY due_at ASC NULLS LAST, id ASC`
	var list []models.Assignment
	if err := r.db.SelectContext(ctx, &list, query, offeringID); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	return list, nil
}

// ListDueForStudent returns dated assignments of the offerings the student is enrolled in.
func (r *AssignmentRepository) ListDueForStudent(ctx context.Context, studentID int64) ([]models.AssignmentDue, error) {
	const query = `SELECT a.id, a.offering_id, a.title, a.description, a.weight_percent, a.assigned_on, a.due_at,
        a.is_open, a.created_at, a.updated_at, o.code AS offering_code
        FROM assignments a
        JOIN offerings o ON o.id = a.offering_id
        JOIN enrollments e ON e.offering_id = a.offering_id AND e.student_id = $1 AND e.status = 'enrolled'
        WHERE a.due_at IS NOT NULL
        ORDER BY a.due_at ASC`
	var list []models.AssignmentDue
	if err := r.db.SelectContext(ctx, &list, query, studentID); err != nil {
		return nil, fmt.Errorf("list due assignments: %w", err)
	}
	return list, nil
}

func (r *AssignmentRepository) Create(ctx context.Context, a *models.Assignment) error {
	const query = `INSERT INTO assignments (offering_id, title, description, weight_percent, assigned_on, due_at, is_open)
        VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at, updated_at`
	row := r.db.QueryRowxContext(ctx, query, a.OfferingID, a.Title, a.Description, a.WeightPercent, a.AssignedOn, a.DueAt, a.IsOpen)
	if err := row.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

func (r *AssignmentRepository) Update(ctx context.Context, a *models.Assignment) error {
	const query = `UPDATE assignments SET title = $2, description = $3, weight_percent = $4, due_at = $5, updated_at = NOW()
        WHERE id = $1 RETURNING updated_at`
	if err := r.db.GetContext(ctx, &a.UpdatedAt, query, a.ID, a.Title, a.Description, a.WeightPercent, a.DueAt); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("update assignment: %w", err)
	}
	return nil
}

// SetOpen toggles whether submissions are accepted.
func (r *AssignmentRepository) SetOpen(ctx context.Context, id int64, open bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE assignments SET is_open = $2, updated_at = NOW() WHERE id = $1`, id, open)
	if err != nil {
		return fmt.Errorf("set assignment open: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *AssignmentRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM assignments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// GradedItems lists every assignment of the offering with the student's grade.
func (r *AssignmentRepository) GradedItems(ctx context.Context, offeringID, studentID int64) ([]models.GradedItem, error) {
	const query = `SELECT a.id AS assignment_id, a.title, a.weight_percent, s.grade_percent
        FROM assignments a
        LEFT JOIN submissions s ON s.assignment_id = a.id AND s.student_id = $2
        WHERE a.offering_id = $1
        ORDER BY a.due_at ASC NULLS LAST, a.id ASC`
	var items []models.GradedItem
	if err := r.db.SelectContext(ctx, &items, query, offeringID, studentID); err != nil {
		return nil, fmt.Errorf("list graded items: %w", err)
	}
	return items, nil
}
