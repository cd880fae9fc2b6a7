package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kanvas-api/internal/models"
	"github.com/noah-isme/kanvas-api/internal/repository"
	appErrors "github.com/noah-isme/kanvas-api/pkg/errors"
)

func pct(v float64) *float64 { return &v }

type stubGradedItems struct {
	items []models.GradedItem
}

func (s stubGradedItems) GradedItems(ctx context.Context, offeringID, studentID int64) ([]models.GradedItem, error) {
	out := make([]models.GradedItem, len(s.items))
	copy(out, s.items)
	return out, nil
}

type stubFinals struct {
	rows    map[pairKey]*models.Enrollment
	records []models.FinalRecord
}

func (s *stubFinals) Find(ctx context.Context, offeringID, studentID int64) (*models.Enrollment, error) {
	e, ok := s.rows[pairKey{offeringID, studentID}]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return e, nil
}

func (s *stubFinals) UpdateFinalPercent(ctx context.Context, offeringID, studentID int64, percent float64, at time.Time) (*models.Enrollment, error) {
	e, ok := s.rows[pairKey{offeringID, studentID}]
	if !ok || (e.Status != models.EnrollmentEnrolled && e.Status != models.EnrollmentCompleted) {
		return nil, repository.ErrStaleState
	}
	e.FinalPercent = &percent
	e.UpdatedAt = at
	return e, nil
}

func (s *stubFinals) CompletedFinals(ctx context.Context, studentID int64) ([]models.FinalRecord, error) {
	return s.records, nil
}

type stubUsers map[int64]*models.User

func (s stubUsers) FindByID(ctx context.Context, id int64) (*models.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func newGradeFixture(items []models.GradedItem) (*GradeService, *memoryEnrollments, *stubFinals, *MetricsService) {
	offerings := newMemoryEnrollments(openOffering(5))
	offerings.put(offeringID, 1, models.EnrollmentEnrolled)
	finals := &stubFinals{rows: map[pairKey]*models.Enrollment{}}
	users := stubUsers{1: {ID: 1, Email: "ada@example.edu", FirstName: "Ada", LastName: "Lovelace", Role: models.RoleStudent}}
	metrics := NewMetricsService()
	svc := NewGradeService(offerings, stubGradedItems{items: items}, finals, users, &recordingAudit{}, metrics, nil, nil)
	return svc, offerings, finals, metrics
}

func TestCurrentWeightedUsesGradedWorkOnly(t *testing.T) {
	items := []models.GradedItem{
		{AssignmentID: 1, Title: "Quiz", WeightPercent: 40, GradePercent: pct(80)},
		{AssignmentID: 2, Title: "Exam", WeightPercent: 60},
	}
	svc, _, _, _ := newGradeFixture(items)

	current, err := svc.CurrentWeighted(context.Background(), student(1), offeringID, 0)
	require.NoError(t, err)
	require.NotNil(t, current.Percent)
	assert.InDelta(t, 80.0, *current.Percent, 1e-9)
	assert.Equal(t, "B-", current.Letter)
	assert.Equal(t, 1, current.GradedCount)
	assert.Equal(t, 2, current.AssignedCount)
	assert.Equal(t, 40.0, current.GradedWeight)
}

func TestCurrentWeightedAllGraded(t *testing.T) {
	items := []models.GradedItem{
		{AssignmentID: 1, WeightPercent: 40, GradePercent: pct(80)},
		{AssignmentID: 2, WeightPercent: 60, GradePercent: pct(90)},
	}
	svc, _, _, _ := newGradeFixture(items)

	current, err := svc.CurrentWeighted(context.Background(), owner, offeringID, 1)
	require.NoError(t, err)
	assert.InDelta(t, 86.0, *current.Percent, 1e-9)
}

func TestCurrentWeightedNothingGraded(t *testing.T) {
	svc, _, _, _ := newGradeFixture([]models.GradedItem{{AssignmentID: 1, WeightPercent: 100}})

	current, err := svc.CurrentWeighted(context.Background(), owner, offeringID, 1)
	require.NoError(t, err)
	assert.Nil(t, current.Percent)
	assert.Empty(t, current.Letter)
}

func TestBreakdownAccess(t *testing.T) {
	items := []models.GradedItem{{AssignmentID: 1, WeightPercent: 30, GradePercent: pct(97)}, {AssignmentID: 2, WeightPercent: 50}}
	svc, _, _, _ := newGradeFixture(items)
	ctx := context.Background()

	b, err := svc.Breakdown(ctx, student(1), offeringID, 99)
	require.NoError(t, err)
	assert.Equal(t, int64(1), b.StudentID)
	assert.Equal(t, 80.0, b.WeightTotal)
	assert.Equal(t, "A+", b.Items[0].Letter)
	assert.Empty(t, b.Items[1].Letter)

	_, err = svc.Breakdown(ctx, student(2), offeringID, 0)
	assertAppError(t, err, appErrors.ErrForbidden, "Forbidden")
	_, err = svc.Breakdown(ctx, stranger, offeringID, 1)
	assertAppError(t, err, appErrors.ErrForbidden, "Forbidden")
	_, err = svc.Breakdown(ctx, owner, offeringID, 0)
	assertAppError(t, err, appErrors.ErrValidation, "")
}

func TestCumulativeGPA(t *testing.T) {
	svc, _, finals, _ := newGradeFixture(nil)
	finals.records = []models.FinalRecord{
		{OfferingID: 1, CourseCode: "CS101", Credits: 3, FinalPercent: pct(95)},
		{OfferingID: 2, CourseCode: "MATH201", Credits: 4, FinalPercent: pct(85)},
		{OfferingID: 3, CourseCode: "ART100", Credits: 2},
	}

	gpa, err := svc.CumulativeGPA(context.Background(), student(1), 0)
	require.NoError(t, err)
	require.NotNil(t, gpa.GPA)
	assert.InDelta(t, 3.43, *gpa.GPA, 0.005)
	assert.Equal(t, 7, gpa.Credits)
	assert.Equal(t, 2, gpa.Courses)

	byCourse, err := svc.GPAByCourse(context.Background(), student(1), 0)
	require.NoError(t, err)
	require.Len(t, byCourse, 2)
	assert.Equal(t, "A", byCourse[0].Letter)
	assert.Equal(t, 4.0, *byCourse[0].GPAPoints)
	assert.True(t, byCourse[1].Passed)
}

func TestCumulativeGPAWithoutGrades(t *testing.T) {
	svc, _, _, _ := newGradeFixture(nil)

	gpa, err := svc.CumulativeGPA(context.Background(), student(1), 0)
	require.NoError(t, err)
	assert.Nil(t, gpa.GPA)
	assert.Zero(t, gpa.Credits)
}

func TestResolveStudent(t *testing.T) {
	id, err := resolveStudent(student(3), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)

	_, err = resolveStudent(student(3), 4)
	assertAppError(t, err, appErrors.ErrForbidden, "")

	id, err = resolveStudent(admin, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(4), id)

	_, err = resolveStudent(owner, 4)
	assertAppError(t, err, appErrors.ErrForbidden, "")
}

func TestUpdateFinalGradeByPercentAndLetter(t *testing.T) {
	svc, _, finals, metrics := newGradeFixture(nil)
	finals.rows[pairKey{offeringID, 1}] = &models.Enrollment{OfferingID: offeringID, StudentID: 1, Status: models.EnrollmentCompleted}
	ctx := context.Background()

	e, err := svc.UpdateFinalGrade(ctx, owner, models.UpdateFinalGradeRequest{OfferingID: offeringID, StudentID: 1, FinalPercent: pct(88.456)})
	require.NoError(t, err)
	assert.Equal(t, 88.46, *e.FinalPercent)

	e, err = svc.UpdateFinalGrade(ctx, admin, models.UpdateFinalGradeRequest{OfferingID: offeringID, StudentID: 1, Letter: "b+"})
	require.NoError(t, err)
	assert.Equal(t, 88.5, *e.FinalPercent)
	assert.Contains(t, scrape(metrics), "final_grade_updates_total 2")
}

func TestUpdateFinalGradeRejections(t *testing.T) {
	svc, _, finals, _ := newGradeFixture(nil)
	finals.rows[pairKey{offeringID, 2}] = &models.Enrollment{OfferingID: offeringID, StudentID: 2, Status: models.EnrollmentWaitlisted}
	ctx := context.Background()

	_, err := svc.UpdateFinalGrade(ctx, owner, models.UpdateFinalGradeRequest{OfferingID: offeringID, StudentID: 1, FinalPercent: pct(101)})
	assertAppError(t, err, appErrors.ErrValidation, "")

	_, err = svc.UpdateFinalGrade(ctx, owner, models.UpdateFinalGradeRequest{OfferingID: offeringID, StudentID: 1, Letter: "E"})
	assertAppError(t, err, appErrors.ErrValidation, "unknown letter grade")

	_, err = svc.UpdateFinalGrade(ctx, stranger, models.UpdateFinalGradeRequest{OfferingID: offeringID, StudentID: 1, FinalPercent: pct(90)})
	assertAppError(t, err, appErrors.ErrForbidden, "Forbidden")

	_, err = svc.UpdateFinalGrade(ctx, owner, models.UpdateFinalGradeRequest{OfferingID: offeringID, StudentID: 9, FinalPercent: pct(90)})
	assertAppError(t, err, appErrors.ErrNotFound, "enrollment not found")

	_, err = svc.UpdateFinalGrade(ctx, owner, models.UpdateFinalGradeRequest{OfferingID: offeringID, StudentID: 2, FinalPercent: pct(90)})
	assertAppError(t, err, appErrors.ErrConflict, "")
}

func TestTranscript(t *testing.T) {
	svc, _, finals, _ := newGradeFixture(nil)
	finals.records = []models.FinalRecord{{OfferingID: 1, CourseCode: "CS101", Credits: 3, FinalPercent: pct(72)}}

	tr, err := svc.Transcript(context.Background(), student(1), 0)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", tr.Student.Name)
	require.Len(t, tr.Records, 1)
	assert.Equal(t, "C-", tr.Records[0].Letter)
	assert.False(t, tr.Records[0].Passed)
	assert.InDelta(t, 1.7, *tr.Cumulative.GPA, 1e-9)
}
