package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/kanvas-api/internal/grading"
	"github.com/noah-isme/kanvas-api/internal/models"
)

const enrollmentColumns = `id, offering_id, student_id, status, requested_at, enrolled_at, completed_at, final_percent, updated_at`

// EnrollmentRepository persists the single enrollment row per (offering, student).
// Every status change is a conditional write on the expected current status.
type EnrollmentRepository struct {
	db *sqlx.DB
}

func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Find returns the enrollment for a pair or sql.ErrNoRows.
func (r *EnrollmentRepository) Find(ctx context.Context, offeringID, studentID int64) (*models.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE offering_id = $1 AND student_id = $2`
	var e models.Enrollment
	if err := r.db.GetContext(ctx, &e, query, offeringID, studentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find enrollment: %w", err)
	}
	return &e, nil
}

// Insert creates the first row for a pair. A concurrent insert for the same
// pair surfaces as ErrStaleState.
func (r *EnrollmentRepository) Insert(ctx context.Context, e *models.Enrollment) error {
	query := `INSERT INTO enrollments (offering_id, student_id, status, requested_at, updated_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING ` + enrollmentColumns
	if err := r.db.GetContext(ctx, e, query, e.OfferingID, e.StudentID, e.Status, e.RequestedAt, e.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrStaleState
		}
		return fmt.Errorf("insert enrollment: %w", err)
	}
	return nil
}

// Transition writes next only if the stored status still equals from.
func (r *EnrollmentRepository) Transition(ctx context.Context, next *models.Enrollment, from models.EnrollmentStatus) error {
	query := `UPDATE enrollments
        SET status = $3, requested_at = $4, enrolled_at = $5, completed_at = $6, final_percent = $7, updated_at = $8
        WHERE offering_id = $1 AND student_id = $2 AND status = $9
        RETURNING ` + enrollmentColumns
	err := r.db.GetContext(ctx, next, query,
		next.OfferingID, next.StudentID, next.Status, next.RequestedAt,
		next.EnrolledAt, next.CompletedAt, next.FinalPercent, next.UpdatedAt, from)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrStaleState
		}
		return fmt.Errorf("transition enrollment: %w", err)
	}
	return nil
}

// DeleteWaitlisted removes a waitlisted row.
func (r *EnrollmentRepository) DeleteWaitlisted(ctx context.Context, offeringID, studentID int64) error {
	const query = `DELETE FROM enrollments WHERE offering_id = $1 AND student_id = $2 AND status = $3`
	res, err := r.db.ExecContext(ctx, query, offeringID, studentID, models.EnrollmentWaitlisted)
	if err != nil {
		return fmt.Errorf("delete waitlist entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete waitlist entry: %w", err)
	}
	if affected == 0 {
		return ErrStaleState
	}
	return nil
}

// ApproveWithSeatGuard moves a waitlisted row to enrolled. The offering row is
// locked first so concurrent approvals for the same offering serialize, and
// the UPDATE re-counts enrolled rows in its WHERE clause. Returns ErrNoSeat
// when the offering is full and ErrStaleState when the row left the waitlist.
func (r *EnrollmentRepository) ApproveWithSeatGuard(ctx context.Context, offeringID, studentID int64, at time.Time) (*models.Enrollment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin approve tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var totalSeats int
	if err := tx.GetContext(ctx, &totalSeats, `SELECT total_seats FROM offerings WHERE id = $1 FOR UPDATE`, offeringID); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("lock offering: %w", err)
	}

	query := `UPDATE enrollments
        SET status = $3, enrolled_at = $4, updated_at = $4
        WHERE offering_id = $1 AND student_id = $2 AND status = $5
          AND (SELECT COUNT(*) FROM enrollments x WHERE x.offering_id = $1 AND x.status = $3)
              < (SELECT o.total_seats FROM offerings o WHERE o.id = $1)
        RETURNING ` + enrollmentColumns
	var e models.Enrollment
	if err := tx.GetContext(ctx, &e, query, offeringID, studentID, models.EnrollmentEnrolled, at, models.EnrollmentWaitlisted); err != nil {
		if err != sql.ErrNoRows {
			return nil, fmt.Errorf("approve enrollment: %w", err)
		}
		var status models.EnrollmentStatus
		if lookupErr := tx.GetContext(ctx, &status, `SELECT status FROM enrollments WHERE offering_id = $1 AND student_id = $2`, offeringID, studentID); lookupErr != nil {
			if lookupErr == sql.ErrNoRows {
				return nil, ErrStaleState
			}
			return nil, fmt.Errorf("recheck enrollment: %w", lookupErr)
		}
		if status == models.EnrollmentWaitlisted {
			return nil, ErrNoSeat
		}
		return nil, ErrStaleState
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit approve: %w", err)
	}
	return &e, nil
}

// CountEnrolled counts rows currently holding a seat.
func (r *EnrollmentRepository) CountEnrolled(ctx context.Context, offeringID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM enrollments WHERE offering_id = $1 AND status = $2`
	var n int
	if err := r.db.GetContext(ctx, &n, query, offeringID, models.EnrollmentEnrolled); err != nil {
		return 0, fmt.Errorf("count enrolled: %w", err)
	}
	return n, nil
}

// ListByStatus returns the offering's rows in one status with student identity.
func (r *EnrollmentRepository) ListByStatus(ctx context.Context, offeringID int64, status models.EnrollmentStatus) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.offering_id, e.student_id, e.status, e.requested_at, e.enrolled_at, e.completed_at,
        e.final_percent, e.updated_at, u.first_name, u.last_name, u.email, u.student_number
        FROM enrollments e
        JOIN users u ON u.id = e.student_id
        WHERE e.offering_id = $1 AND e.status = $2
        ORDER BY e.requested_at ASC, e.id ASC`
	var rows []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &rows, query, offeringID, status); err != nil {
		return nil, fmt.Errorf("list enrollments by status: %w", err)
	}
	if rows == nil {
		rows = []models.EnrollmentDetail{}
	}
	return rows, nil
}

// HasPassedCourse reports a completed, passing enrollment in any offering of the course.
func (r *EnrollmentRepository) HasPassedCourse(ctx context.Context, studentID, courseID int64) (bool, error) {
	const query = `SELECT EXISTS (
        SELECT 1 FROM enrollments e
        JOIN offerings o ON o.id = e.offering_id
        WHERE e.student_id = $1 AND o.course_id = $2 AND e.status = $3 AND e.final_percent >= $4)`
	var passed bool
	if err := r.db.GetContext(ctx, &passed, query, studentID, courseID, models.EnrollmentCompleted, grading.PassThreshold); err != nil {
		return false, fmt.Errorf("check passed course: %w", err)
	}
	return passed, nil
}

// MissingPrerequisites returns the codes of prerequisite courses of the
// offering that the student has not passed in any offering.
func (r *EnrollmentRepository) MissingPrerequisites(ctx context.Context, offeringID, studentID int64) ([]string, error) {
	const query = `SELECT DISTINCT c.code
        FROM offering_prereqs op
        JOIN offerings po ON po.id = op.prereq_offering_id
        JOIN courses c ON c.id = po.course_id
        WHERE op.offering_id = $1
          AND NOT EXISTS (
            SELECT 1 FROM enrollments e
            JOIN offerings eo ON eo.id = e.offering_id
            WHERE e.student_id = $2 AND eo.course_id = po.course_id
              AND e.status = $3 AND e.final_percent >= $4)
        ORDER BY c.code`
	var codes []string
	if err := r.db.SelectContext(ctx, &codes, query, offeringID, studentID, models.EnrollmentCompleted, grading.PassThreshold); err != nil {
		return nil, fmt.Errorf("missing prerequisites: %w", err)
	}
	return codes, nil
}

// UpdateFinalPercent stores a final grade if the row is still enrolled or completed.
func (r *EnrollmentRepository) UpdateFinalPercent(ctx context.Context, offeringID, studentID int64, percent float64, at time.Time) (*models.Enrollment, error) {
	query := `UPDATE enrollments SET final_percent = $3, updated_at = $4
        WHERE offering_id = $1 AND student_id = $2 AND status IN ($5, $6)
        RETURNING ` + enrollmentColumns
	var e models.Enrollment
	if err := r.db.GetContext(ctx, &e, query, offeringID, studentID, percent, at, models.EnrollmentEnrolled, models.EnrollmentCompleted); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrStaleState
		}
		return nil, fmt.Errorf("update final percent: %w", err)
	}
	return &e, nil
}

// CompletedFinals lists a student's completed enrollments with course credits.
func (r *EnrollmentRepository) CompletedFinals(ctx context.Context, studentID int64) ([]models.FinalRecord, error) {
	const query = `SELECT e.offering_id, o.course_id, c.code AS course_code, c.name AS course_name, t.code AS term_code,
        o.credits, e.final_percent, e.completed_at
        FROM enrollments e
        JOIN offerings o ON o.id = e.offering_id
        JOIN courses c ON c.id = o.course_id
        JOIN terms t ON t.id = o.term_id
        WHERE e.student_id = $1 AND e.status = $2
        ORDER BY t.starts_on ASC, c.code ASC`
	var rows []models.FinalRecord
	if err := r.db.SelectContext(ctx, &rows, query, studentID, models.EnrollmentCompleted); err != nil {
		return nil, fmt.Errorf("list completed finals: %w", err)
	}
	return rows, nil
}
