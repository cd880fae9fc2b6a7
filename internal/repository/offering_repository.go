package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/kanvas-api/internal/models"
)

const offeringColumns = `o.id, o.course_id, o.term_id, o.teacher_id, o.code, o.name, o.description, o.section,
        o.credits, o.total_seats, o.enrollment_open, o.is_active, o.created_at, o.updated_at`

// offeringDetailSelect derives seats from a live count of enrolled rows.
const offeringDetailSelect = `SELECT ` + offeringColumns + `,
        c.code AS course_code, t.code AS term_code,
        (u.first_name || ' ' || u.last_name) AS teacher_name,
        COALESCE(ec.enrolled_count, 0) AS enrolled_count,
        o.total_seats - COALESCE(ec.enrolled_count, 0) AS seats_left
        FROM offerings o
        JOIN courses c ON c.id = o.course_id
        JOIN terms t ON t.id = o.term_id
        JOIN users u ON u.id = o.teacher_id
        LEFT JOIN (
            SELECT offering_id, COUNT(*) AS enrolled_count
            FROM enrollments WHERE status = 'enrolled'
            GROUP BY offering_id
        ) ec ON ec.offering_id = o.id`

// OfferingRepository handles offerings, their prerequisite edges and seat counts.
type OfferingRepository struct {
	db *sqlx.DB
}

func NewOfferingRepository(db *sqlx.DB) *OfferingRepository {
	return &OfferingRepository{db: db}
}

// FindByID returns the bare offering or sql.ErrNoRows.
func (r *OfferingRepository) FindByID(ctx context.Context, id int64) (*models.Offering, error) {
	query := `SELECT ` + offeringColumns + ` FROM offerings o WHERE o.id = $1`
	var o models.Offering
	if err := r.db.GetContext(ctx, &o, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find offering: %w", err)
	}
	return &o, nil
}

// FindDetail returns the offering with seats and prerequisites.
func (r *OfferingRepository) FindDetail(ctx context.Context, id int64) (*models.OfferingDetail, error) {
	var d models.OfferingDetail
	if err := r.db.GetContext(ctx, &d, offeringDetailSelect+` WHERE o.id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find offering detail: %w", err)
	}
	prereqs, err := r.ListPrereqs(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Prerequisites = prereqs
	return &d, nil
}

// List filters offerings and reports the total before paging.
func (r *OfferingRepository) List(ctx context.Context, filter models.OfferingFilter) ([]models.OfferingDetail, int, error) {
	var conditions []string
	var args []interface{}

	if filter.TermID != nil {
		args = append(args, *filter.TermID)
		conditions = append(conditions, fmt.Sprintf("o.term_id = $%d", len(args)))
	}
	if filter.TeacherID != nil {
		args = append(args, *filter.TeacherID)
		conditions = append(conditions, fmt.Sprintf("o.teacher_id = $%d", len(args)))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+q+"%")
		conditions = append(conditions, fmt.Sprintf("(o.code ILIKE $%d OR o.name ILIKE $%d OR c.code ILIKE $%d)", len(args), len(args), len(args)))
	}
	if filter.Section != "" {
		args = append(args, filter.Section)
		conditions = append(conditions, fmt.Sprintf("o.section = $%d", len(args)))
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	limit, offset := normalizePage(filter.Limit, filter.Offset)
	query := fmt.Sprintf("%s%s ORDER BY t.starts_on DESC, o.code ASC, o.section ASC LIMIT %d OFFSET %d", offeringDetailSelect, clause, limit, offset)

	var offerings []models.OfferingDetail
	if err := r.db.SelectContext(ctx, &offerings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list offerings: %w", err)
	}

	countQuery := `SELECT COUNT(*) FROM offerings o JOIN courses c ON c.id = o.course_id` + clause
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count offerings: %w", err)
	}
	return offerings, total, nil
}

// ListForStudent returns offerings where the student holds a seat or has completed.
func (r *OfferingRepository) ListForStudent(ctx context.Context, studentID int64) ([]models.OfferingDetail, error) {
	query := offeringDetailSelect + `
        JOIN enrollments me ON me.offering_id = o.id AND me.student_id = $1 AND me.status IN ('enrolled', 'completed')
        ORDER BY t.starts_on DESC, o.code ASC`
	var offerings []models.OfferingDetail
	if err := r.db.SelectContext(ctx, &offerings, query, studentID); err != nil {
		return nil, fmt.Errorf("list student offerings: %w", err)
	}
	return offerings, nil
}

// Create inserts an offering and fills generated columns.
func (r *OfferingRepository) Create(ctx context.Context, o *models.Offering) error {
	const query = `INSERT INTO offerings (course_id, term_id, teacher_id, code, name, description, section, credits,
        total_seats, enrollment_open, is_active)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING id, created_at, updated_at`
	row := r.db.QueryRowxContext(ctx, query, o.CourseID, o.TermID, o.TeacherID, o.Code, o.Name, o.Description,
		o.Section, o.Credits, o.TotalSeats, o.EnrollmentOpen, o.IsActive)
	if err := row.Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create offering: %w", err)
	}
	return nil
}

// Update writes the mutable columns of an offering. The offering row is
// locked the same way ApproveWithSeatGuard locks it, and the write only
// lands when total_seats still covers every enrolled row; otherwise
// ErrSeatsBelowEnrolled is returned.
func (r *OfferingRepository) Update(ctx context.Context, o *models.Offering) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin offering update tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	if err := tx.GetContext(ctx, &id, `SELECT id FROM offerings WHERE id = $1 FOR UPDATE`, o.ID); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("lock offering: %w", err)
	}

	const query = `UPDATE offerings SET name = $2, description = $3, section = $4, credits = $5, total_seats = $6,
        enrollment_open = $7, is_active = $8, updated_at = NOW()
        WHERE id = $1
          AND $6 >= (SELECT COUNT(*) FROM enrollments e WHERE e.offering_id = $1 AND e.status = 'enrolled')
        RETURNING updated_at`
	row := tx.QueryRowxContext(ctx, query, o.ID, o.Name, o.Description, o.Section, o.Credits, o.TotalSeats,
		o.EnrollmentOpen, o.IsActive)
	if err := row.Scan(&o.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return ErrSeatsBelowEnrolled
		}
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update offering: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit offering update: %w", err)
	}
	return nil
}

// Delete removes an offering.
func (r *OfferingRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM offerings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete offering: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SeatCount computes seats live from enrolled rows.
func (r *OfferingRepository) SeatCount(ctx context.Context, id int64) (*models.SeatCount, error) {
	const query = `SELECT o.id AS offering_id, o.total_seats,
        (SELECT COUNT(*) FROM enrollments e WHERE e.offering_id = o.id AND e.status = 'enrolled') AS enrolled_count,
        o.total_seats - (SELECT COUNT(*) FROM enrollments e WHERE e.offering_id = o.id AND e.status = 'enrolled') AS seats_left
        FROM offerings o WHERE o.id = $1`
	var sc models.SeatCount
	if err := r.db.GetContext(ctx, &sc, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("seat count: %w", err)
	}
	return &sc, nil
}

// ListPrereqs returns the prerequisite edges of an offering.
func (r *OfferingRepository) ListPrereqs(ctx context.Context, offeringID int64) ([]models.OfferingPrereq, error) {
	const query = `SELECT op.offering_id, op.prereq_offering_id, po.course_id, c.code AS course_code
        FROM offering_prereqs op
        JOIN offerings po ON po.id = op.prereq_offering_id
        JOIN courses c ON c.id = po.course_id
        WHERE op.offering_id = $1
        ORDER BY c.code`
	var prereqs []models.OfferingPrereq
	if err := r.db.SelectContext(ctx, &prereqs, query, offeringID); err != nil {
		return nil, fmt.Errorf("list prerequisites: %w", err)
	}
	return prereqs, nil
}

const courseEdgesQuery = `SELECT DISTINCT o.course_id, po.course_id AS prereq_course_id
        FROM offering_prereqs op
        JOIN offerings o ON o.id = op.offering_id
        JOIN offerings po ON po.id = op.prereq_offering_id`

// CourseEdges projects every offering prerequisite onto courses.
func (r *OfferingRepository) CourseEdges(ctx context.Context) ([]models.CourseEdge, error) {
	var edges []models.CourseEdge
	if err := r.db.SelectContext(ctx, &edges, courseEdgesQuery); err != nil {
		return nil, fmt.Errorf("list course edges: %w", err)
	}
	return edges, nil
}

// prereqGraphLock serializes prerequisite insertions so the cycle check and
// the insert see the same graph.
const prereqGraphLock = 7301

// AddPrereq inserts an edge; an existing edge is left untouched. guard sees
// the course edges as they stand under the graph lock and can veto the
// insert by returning an error, which is passed through unchanged.
func (r *OfferingRepository) AddPrereq(ctx context.Context, offeringID, prereqOfferingID int64, guard func([]models.CourseEdge) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin prerequisite tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, prereqGraphLock); err != nil {
		return fmt.Errorf("lock prerequisite graph: %w", err)
	}
	var edges []models.CourseEdge
	if err := tx.SelectContext(ctx, &edges, courseEdgesQuery); err != nil {
		return fmt.Errorf("list course edges: %w", err)
	}
	if guard != nil {
		if err := guard(edges); err != nil {
			return err
		}
	}

	const query = `INSERT INTO offering_prereqs (offering_id, prereq_offering_id) VALUES ($1, $2)
        ON CONFLICT (offering_id, prereq_offering_id) DO NOTHING`
	if _, err := tx.ExecContext(ctx, query, offeringID, prereqOfferingID); err != nil {
		return fmt.Errorf("add prerequisite: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit prerequisite: %w", err)
	}
	return nil
}

// RemovePrereq deletes an edge or returns sql.ErrNoRows.
func (r *OfferingRepository) RemovePrereq(ctx context.Context, offeringID, prereqOfferingID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM offering_prereqs WHERE offering_id = $1 AND prereq_offering_id = $2`, offeringID, prereqOfferingID)
	if err != nil {
		return fmt.Errorf("remove prerequisite: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// IsMember reports whether the student is enrolled in or has completed the offering.
func (r *OfferingRepository) IsMember(ctx context.Context, offeringID, studentID int64) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM enrollments WHERE offering_id = $1 AND student_id = $2 AND status IN ('enrolled', 'completed'))`
	var ok bool
	if err := r.db.GetContext(ctx, &ok, query, offeringID, studentID); err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return ok, nil
}

// Classmates lists enrolled students of an offering, optionally filtered by name or email.
func (r *OfferingRepository) Classmates(ctx context.Context, offeringID int64, search string) ([]models.Classmate, error) {
	query := `SELECT u.id AS student_id, u.first_name, u.last_name, u.email
        FROM enrollments e JOIN users u ON u.id = e.student_id
        WHERE e.offering_id = $1 AND e.status = 'enrolled'`
	args := []interface{}{offeringID}
	if s := strings.TrimSpace(search); s != "" {
		args = append(args, "%"+s+"%")
		query += ` AND (u.first_name ILIKE $2 OR u.last_name ILIKE $2 OR u.email ILIKE $2)`
	}
	query += ` ORDER BY u.last_name, u.first_name`
	var mates []models.Classmate
	if err := r.db.SelectContext(ctx, &mates, query, args...); err != nil {
		return nil, fmt.Errorf("list classmates: %w", err)
	}
	return mates, nil
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
