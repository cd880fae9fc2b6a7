package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kanvas-api/internal/models"
)

var offeringDetailCols = []string{"id", "course_id", "term_id", "teacher_id", "code", "name", "description", "section",
	"credits", "total_seats", "enrollment_open", "is_active", "created_at", "updated_at",
	"course_code", "term_code", "teacher_name", "enrolled_count", "seats_left"}

func TestOfferingRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewOfferingRepository(db)

	now := time.Now()
	term := int64(4)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE o.term_id = $1 AND (o.code ILIKE $2 OR o.name ILIKE $2 OR c.code ILIKE $2) ORDER BY t.starts_on DESC, o.code ASC, o.section ASC LIMIT 10 OFFSET 20")).
		WithArgs(term, "%intro%").
		WillReturnRows(sqlmock.NewRows(offeringDetailCols).
			AddRow(1, 10, 4, 7, "CS101-F26", "Intro", "", "001", 3, 30, true, true, now, now, "CS101", "F26", "Grace H", 28, 2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM offerings o JOIN courses c ON c.id = o.course_id WHERE o.term_id = $1")).
		WithArgs(term, "%intro%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(21))

	list, total, err := repo.List(context.Background(), models.OfferingFilter{TermID: &term, Query: " intro ", Limit: 10, Offset: 20})
	require.NoError(t, err)
	assert.Equal(t, 21, total)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].SeatsLeft)
	assert.Equal(t, "CS101", list[0].CourseCode)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOfferingRepositorySeatCount(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewOfferingRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("AS seats_left")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"offering_id", "total_seats", "enrolled_count", "seats_left"}).AddRow(1, 30, 30, 0))

	sc, err := repo.SeatCount(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 0, sc.SeatsLeft)
	assert.Equal(t, sc.TotalSeats-sc.EnrolledCount, sc.SeatsLeft)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOfferingRepositoryRemovePrereqMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewOfferingRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM offering_prereqs")).
		WithArgs(int64(1), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.RemovePrereq(context.Background(), 1, 2), sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOfferingRepositoryCourseEdges(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewOfferingRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT o.course_id, po.course_id AS prereq_course_id")).
		WillReturnRows(sqlmock.NewRows([]string{"course_id", "prereq_course_id"}).AddRow(3, 2).AddRow(2, 1))

	edges, err := repo.CourseEdges(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.CourseEdge{{CourseID: 3, PrereqCourseID: 2}, {CourseID: 2, PrereqCourseID: 1}}, edges)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOfferingRepositoryUpdateLocksAndChecksEnrolled(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewOfferingRepository(db)

	o := &models.Offering{ID: 1, Name: "Intro", Section: "A", Credits: 3, TotalSeats: 30, EnrollmentOpen: true, IsActive: true}
	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM offerings WHERE id = $1 FOR UPDATE")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("AND $6 >= (SELECT COUNT(*) FROM enrollments e WHERE e.offering_id = $1 AND e.status = 'enrolled')")).
		WithArgs(int64(1), "Intro", "", "A", 3, 30, true, true).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(now))
	mock.ExpectCommit()

	require.NoError(t, repo.Update(context.Background(), o))
	assert.True(t, o.UpdatedAt.Equal(now))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOfferingRepositoryUpdateSeatsBelowEnrolled(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewOfferingRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE offerings SET")).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}))
	mock.ExpectRollback()

	err := repo.Update(context.Background(), &models.Offering{ID: 1, TotalSeats: 2})
	assert.ErrorIs(t, err, ErrSeatsBelowEnrolled)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOfferingRepositoryUpdateMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewOfferingRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := repo.Update(context.Background(), &models.Offering{ID: 9, TotalSeats: 2})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOfferingRepositoryAddPrereqUnderGraphLock(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewOfferingRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).
		WithArgs(prereqGraphLock).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT o.course_id, po.course_id AS prereq_course_id")).
		WillReturnRows(sqlmock.NewRows([]string{"course_id", "prereq_course_id"}).AddRow(2, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO offering_prereqs")).
		WithArgs(int64(3), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var seen []models.CourseEdge
	err := repo.AddPrereq(context.Background(), 3, 2, func(edges []models.CourseEdge) error {
		seen = edges
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []models.CourseEdge{{CourseID: 2, PrereqCourseID: 1}}, seen)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOfferingRepositoryAddPrereqGuardRejects(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewOfferingRepository(db)

	rejected := errors.New("cycle")
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("pg_advisory_xact_lock")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT o.course_id")).
		WillReturnRows(sqlmock.NewRows([]string{"course_id", "prereq_course_id"}).AddRow(1, 2))
	mock.ExpectRollback()

	err := repo.AddPrereq(context.Background(), 1, 2, func([]models.CourseEdge) error { return rejected })
	assert.ErrorIs(t, err, rejected)
	require.NoError(t, mock.ExpectationsWereMet())
}
