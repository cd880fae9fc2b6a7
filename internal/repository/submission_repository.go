package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/kanvas-api/internal/models"
)

const submissionDetailSelect = `SELECT s.id, s.assignment_id, s.student_id, s.submission_url, s.submitted_at,
        s.grade_percent, s.graded_at, s.graded_by, a.offering_id, a.title AS assignment_title,
        u.first_name, u.last_name
        FROM submissions s
        JOIN assignments a ON a.id = s.assignment_id
        JOIN users u ON u.id = s.student_id`

// SubmissionRepository persists one submission per (assignment, student).
type SubmissionRepository struct {
	db *sqlx.DB
}

func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Upsert records a submission. A resubmission replaces the URL and timestamp
// and leaves any existing grade alone.
func (r *SubmissionRepository) Upsert(ctx context.Context, s *models.Submission) error {
	const query = `INSERT INTO submissions (assignment_id, student_id, submission_url, submitted_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (assignment_id, student_id)
        DO UPDATE SET submission_url = EXCLUDED.submission_url, submitted_at = EXCLUDED.submitted_at
        RETURNING id, assignment_id, student_id, submission_url, submitted_at, grade_percent, graded_at, graded_by`
	if err := r.db.GetContext(ctx, s, query, s.AssignmentID, s.StudentID, s.SubmissionURL, s.SubmittedAt); err != nil {
		return fmt.Errorf("upsert submission: %w", err)
	}
	return nil
}

// Grade sets the grade on an existing submission or returns sql.ErrNoRows.
func (r *SubmissionRepository) Grade(ctx context.Context, assignmentID, studentID int64, percent float64, gradedBy int64, at time.Time) (*models.Submission, error) {
	const query = `UPDATE submissions SET grade_percent = $3, graded_by = $4, graded_at = $5
        WHERE assignment_id = $1 AND student_id = $2
        RETURNING id, assignment_id, student_id, submission_url, submitted_at, grade_percent, graded_at, graded_by`
	var s models.Submission
	if err := r.db.GetContext(ctx, &s, query, assignmentID, studentID, percent, gradedBy, at); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("grade submission: %w", err)
	}
	return &s, nil
}

// ListByOffering returns all submissions of an offering.
func (r *SubmissionRepository) ListByOffering(ctx context.Context, offeringID int64) ([]models.SubmissionDetail, error) {
	query := submissionDetailSelect + ` WHERE a.offering_id = $1 ORDER BY a.id, u.last_name, u.first_name`
	var list []models.SubmissionDetail
	if err := r.db.SelectContext(ctx, &list, query, offeringID); err != nil {
		return nil, fmt.Errorf("list offering submissions: %w", err)
	}
	return list, nil
}

// ListByTeacher returns submissions across every offering the teacher owns.
func (r *SubmissionRepository) ListByTeacher(ctx context.Context, teacherID int64) ([]models.SubmissionDetail, error) {
	query := submissionDetailSelect + `
        JOIN offerings o ON o.id = a.offering_id
        WHERE o.teacher_id = $1
        ORDER BY s.submitted_at DESC`
	var list []models.SubmissionDetail
	if err := r.db.SelectContext(ctx, &list, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher submissions: %w", err)
	}
	return list, nil
}

// ListForStudent returns the student's own submissions in an offering.
func (r *SubmissionRepository) ListForStudent(ctx context.Context, offeringID, studentID int64) ([]models.SubmissionDetail, error) {
	query := submissionDetailSelect + ` WHERE a.offering_id = $1 AND s.student_id = $2 ORDER BY a.id`
	var list []models.SubmissionDetail
	if err := r.db.SelectContext(ctx, &list, query, offeringID, studentID); err != nil {
		return nil, fmt.Errorf("list student submissions: %w", err)
	}
	return list, nil
}
