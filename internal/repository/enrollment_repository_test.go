package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kanvas-api/internal/models"
)

var enrollmentCols = []string{"id", "offering_id", "student_id", "status", "requested_at", "enrolled_at", "completed_at", "final_percent", "updated_at"}

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func enrollmentRow(status models.EnrollmentStatus) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(enrollmentCols).AddRow(9, 1, 2, string(status), now, nil, nil, nil, now)
}

func TestEnrollmentRepositoryFindNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM enrollments WHERE offering_id = $1 AND student_id = $2")).
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows(enrollmentCols))

	_, err := repo.Find(context.Background(), 1, 2)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryInsertDuplicateIsStale(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO enrollments")).
		WillReturnError(&pq.Error{Code: pqUniqueViolation})

	now := time.Now()
	err := repo.Insert(context.Background(), &models.Enrollment{OfferingID: 1, StudentID: 2, Status: models.EnrollmentWaitlisted, RequestedAt: now, UpdatedAt: now})
	assert.ErrorIs(t, err, ErrStaleState)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryTransitionGuardsStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	now := time.Now()
	next := &models.Enrollment{OfferingID: 1, StudentID: 2, Status: models.EnrollmentDenied, RequestedAt: now, UpdatedAt: now}

	mock.ExpectQuery(regexp.QuoteMeta("WHERE offering_id = $1 AND student_id = $2 AND status = $9")).
		WithArgs(int64(1), int64(2), models.EnrollmentDenied, sqlmock.AnyArg(), nil, nil, nil, sqlmock.AnyArg(), models.EnrollmentWaitlisted).
		WillReturnRows(enrollmentRow(models.EnrollmentDenied))
	require.NoError(t, repo.Transition(context.Background(), next, models.EnrollmentWaitlisted))
	assert.Equal(t, int64(9), next.ID)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE offering_id = $1 AND student_id = $2 AND status = $9")).
		WillReturnRows(sqlmock.NewRows(enrollmentCols))
	err := repo.Transition(context.Background(), next, models.EnrollmentWaitlisted)
	assert.ErrorIs(t, err, ErrStaleState)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryDeleteWaitlisted(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM enrollments WHERE offering_id = $1 AND student_id = $2 AND status = $3")).
		WithArgs(int64(1), int64(2), models.EnrollmentWaitlisted).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.DeleteWaitlisted(context.Background(), 1, 2))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM enrollments")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.DeleteWaitlisted(context.Background(), 1, 2), ErrStaleState)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryApproveWithSeatGuard(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT total_seats FROM offerings WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"total_seats"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta("(SELECT COUNT(*) FROM enrollments x WHERE x.offering_id = $1 AND x.status = $3)")).
		WithArgs(int64(1), int64(2), models.EnrollmentEnrolled, sqlmock.AnyArg(), models.EnrollmentWaitlisted).
		WillReturnRows(enrollmentRow(models.EnrollmentEnrolled))
	mock.ExpectCommit()

	e, err := repo.ApproveWithSeatGuard(context.Background(), 1, 2, time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentEnrolled, e.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryApproveNoSeat(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"total_seats"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE enrollments")).
		WillReturnRows(sqlmock.NewRows(enrollmentCols))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM enrollments WHERE offering_id = $1 AND student_id = $2")).
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("waitlisted"))
	mock.ExpectRollback()

	_, err := repo.ApproveWithSeatGuard(context.Background(), 1, 2, time.Now())
	assert.ErrorIs(t, err, ErrNoSeat)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryApproveAlreadyEnrolled(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows([]string{"total_seats"}).AddRow(5))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE enrollments")).
		WillReturnRows(sqlmock.NewRows(enrollmentCols))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT status FROM enrollments")).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("enrolled"))
	mock.ExpectRollback()

	_, err := repo.ApproveWithSeatGuard(context.Background(), 1, 2, time.Now())
	assert.ErrorIs(t, err, ErrStaleState)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryMissingPrerequisites(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM offering_prereqs op")).
		WithArgs(int64(5), int64(2), models.EnrollmentCompleted, 77.0).
		WillReturnRows(sqlmock.NewRows([]string{"code"}).AddRow("CS101").AddRow("MATH120"))

	codes, err := repo.MissingPrerequisites(context.Background(), 5, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"CS101", "MATH120"}, codes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryUpdateFinalPercentWrongStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE enrollments SET final_percent = $3")).
		WithArgs(int64(1), int64(2), 88.5, sqlmock.AnyArg(), models.EnrollmentEnrolled, models.EnrollmentCompleted).
		WillReturnRows(sqlmock.NewRows(enrollmentCols))

	_, err := repo.UpdateFinalPercent(context.Background(), 1, 2, 88.5, time.Now())
	assert.ErrorIs(t, err, ErrStaleState)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryListByStatusEmpty(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE e.offering_id = $1 AND e.status = $2")).
		WithArgs(int64(1), models.EnrollmentWaitlisted).
		WillReturnRows(sqlmock.NewRows(append(enrollmentCols, "first_name", "last_name", "email", "student_number")))

	rows, err := repo.ListByStatus(context.Background(), 1, models.EnrollmentWaitlisted)
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
	require.NoError(t, mock.ExpectationsWereMet())
}
