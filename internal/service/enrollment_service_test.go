package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kanvas-api/internal/models"
	"github.com/noah-isme/kanvas-api/internal/repository"
	appErrors "github.com/noah-isme/kanvas-api/pkg/errors"
)

const (
	teacherID  int64 = 10
	otherTchr  int64 = 11
	offeringID int64 = 100
)

var (
	owner    = models.Actor{ID: teacherID, Role: models.RoleTeacher}
	stranger = models.Actor{ID: otherTchr, Role: models.RoleTeacher}
	admin    = models.Actor{ID: 1, Role: models.RoleAdmin}
)

func student(id int64) models.Actor { return models.Actor{ID: id, Role: models.RoleStudent} }

type pairKey struct{ offering, student int64 }

// memoryEnrollments is an in-memory enrollment store whose seat guard is
// serialized by a mutex, mirroring the row lock taken in postgres.
type memoryEnrollments struct {
	mu        sync.Mutex
	offerings map[int64]*models.Offering
	rows      map[pairKey]*models.Enrollment
	missing   map[int64][]string
	passed    map[pairKey]bool
	writes    int
	nextID    int64
}

func newMemoryEnrollments(offerings ...*models.Offering) *memoryEnrollments {
	m := &memoryEnrollments{
		offerings: map[int64]*models.Offering{},
		rows:      map[pairKey]*models.Enrollment{},
		missing:   map[int64][]string{},
		passed:    map[pairKey]bool{},
	}
	for _, o := range offerings {
		m.offerings[o.ID] = o
	}
	return m
}

func (m *memoryEnrollments) put(offeringID, studentID int64, status models.EnrollmentStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.rows[pairKey{offeringID, studentID}] = &models.Enrollment{ID: m.nextID, OfferingID: offeringID, StudentID: studentID, Status: status}
}

func (m *memoryEnrollments) status(offeringID, studentID int64) models.EnrollmentStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.rows[pairKey{offeringID, studentID}]; ok {
		return e.Status
	}
	return ""
}

func (m *memoryEnrollments) enrolledLocked(offeringID int64) int {
	n := 0
	for k, e := range m.rows {
		if k.offering == offeringID && e.Status == models.EnrollmentEnrolled {
			n++
		}
	}
	return n
}

// offering side

func (m *memoryEnrollments) FindByID(ctx context.Context, id int64) (*models.Offering, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.offerings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *o
	return &cp, nil
}

func (m *memoryEnrollments) IsMember(ctx context.Context, offeringID, studentID int64) (bool, error) {
	s := m.status(offeringID, studentID)
	return s == models.EnrollmentEnrolled || s == models.EnrollmentCompleted, nil
}

func (m *memoryEnrollments) SeatCount(ctx context.Context, id int64) (*models.SeatCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.offerings[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	n := m.enrolledLocked(id)
	return &models.SeatCount{OfferingID: id, TotalSeats: o.TotalSeats, EnrolledCount: n, SeatsLeft: o.TotalSeats - n}, nil
}

// enrollment side

func (m *memoryEnrollments) Find(ctx context.Context, offeringID, studentID int64) (*models.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[pairKey{offeringID, studentID}]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

func (m *memoryEnrollments) Insert(ctx context.Context, e *models.Enrollment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := pairKey{e.OfferingID, e.StudentID}
	if _, ok := m.rows[k]; ok {
		return repository.ErrStaleState
	}
	m.nextID++
	e.ID = m.nextID
	cp := *e
	m.rows[k] = &cp
	m.writes++
	return nil
}

func (m *memoryEnrollments) Transition(ctx context.Context, next *models.Enrollment, from models.EnrollmentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := pairKey{next.OfferingID, next.StudentID}
	cur, ok := m.rows[k]
	if !ok || cur.Status != from {
		return repository.ErrStaleState
	}
	cp := *next
	m.rows[k] = &cp
	m.writes++
	return nil
}

func (m *memoryEnrollments) DeleteWaitlisted(ctx context.Context, offeringID, studentID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := pairKey{offeringID, studentID}
	cur, ok := m.rows[k]
	if !ok || cur.Status != models.EnrollmentWaitlisted {
		return repository.ErrStaleState
	}
	delete(m.rows, k)
	m.writes++
	return nil
}

func (m *memoryEnrollments) ApproveWithSeatGuard(ctx context.Context, offeringID, studentID int64, at time.Time) (*models.Enrollment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.offerings[offeringID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cur, ok := m.rows[pairKey{offeringID, studentID}]
	if !ok || cur.Status != models.EnrollmentWaitlisted {
		return nil, repository.ErrStaleState
	}
	if m.enrolledLocked(offeringID) >= o.TotalSeats {
		return nil, repository.ErrNoSeat
	}
	cur.Status = models.EnrollmentEnrolled
	cur.EnrolledAt = &at
	cur.UpdatedAt = at
	m.writes++
	cp := *cur
	return &cp, nil
}

func (m *memoryEnrollments) CountEnrolled(ctx context.Context, offeringID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enrolledLocked(offeringID), nil
}

func (m *memoryEnrollments) ListByStatus(ctx context.Context, offeringID int64, status models.EnrollmentStatus) ([]models.EnrollmentDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.EnrollmentDetail
	for k, e := range m.rows {
		if k.offering == offeringID && e.Status == status {
			out = append(out, models.EnrollmentDetail{Enrollment: *e})
		}
	}
	return out, nil
}

func (m *memoryEnrollments) MissingPrerequisites(ctx context.Context, offeringID, studentID int64) ([]string, error) {
	return m.missing[studentID], nil
}

func (m *memoryEnrollments) HasPassedCourse(ctx context.Context, studentID, courseID int64) (bool, error) {
	return m.passed[pairKey{courseID, studentID}], nil
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []models.AuditLog
	err     error
}

func (r *recordingAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *log)
	return r.err
}

func openOffering(seats int) *models.Offering {
	return &models.Offering{ID: offeringID, CourseID: 7, TeacherID: teacherID, TotalSeats: seats, IsActive: true, EnrollmentOpen: true}
}

func newEnrollmentFixture(seats int) (*EnrollmentService, *memoryEnrollments, *recordingAudit, *MetricsService) {
	store := newMemoryEnrollments(openOffering(seats))
	audit := &recordingAudit{}
	metrics := NewMetricsService()
	eligibility := NewEligibilityService(store, store, nil)
	svc := NewEnrollmentService(store, store, eligibility, audit, metrics, nil, nil)
	return svc, store, audit, metrics
}

func action(studentID int64) models.EnrollmentActionRequest {
	return models.EnrollmentActionRequest{OfferingID: offeringID, StudentID: studentID}
}

func assertAppError(t *testing.T, err error, want *appErrors.Error, message string) {
	t.Helper()
	require.Error(t, err)
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr), "expected *errors.Error, got %T", err)
	assert.Equal(t, want.Code, appErr.Code)
	assert.Equal(t, want.Status, appErr.Status)
	if message != "" {
		assert.Equal(t, message, appErr.Message)
	}
}

func TestRequestWaitlistCreatesRow(t *testing.T) {
	svc, store, audit, _ := newEnrollmentFixture(2)

	e, err := svc.RequestWaitlist(context.Background(), student(1), models.WaitlistRequest{OfferingID: offeringID})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentWaitlisted, e.Status)
	assert.Nil(t, e.EnrolledAt)
	assert.Equal(t, models.EnrollmentWaitlisted, store.status(offeringID, 1))
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionWaitlistRequest, audit.entries[0].Action)
}

func TestRequestWaitlistAllowedWhenFull(t *testing.T) {
	svc, store, _, _ := newEnrollmentFixture(1)
	store.put(offeringID, 1, models.EnrollmentEnrolled)

	e, err := svc.RequestWaitlist(context.Background(), student(2), models.WaitlistRequest{OfferingID: offeringID})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentWaitlisted, e.Status)
}

func TestRequestWaitlistUnmetPrerequisiteLeavesStateUntouched(t *testing.T) {
	svc, store, audit, _ := newEnrollmentFixture(2)
	store.missing[1] = []string{"MATH101"}

	_, err := svc.RequestWaitlist(context.Background(), student(1), models.WaitlistRequest{OfferingID: offeringID})
	var inel *IneligibleError
	require.True(t, errors.As(err, &inel))
	assert.False(t, inel.Result.Eligible)
	assert.Contains(t, inel.Result.Reasons[0], "prerequisites")
	assert.Equal(t, models.EnrollmentStatus(""), store.status(offeringID, 1))
	assert.Zero(t, store.writes)
	assert.Empty(t, audit.entries)
}

func TestRequestWaitlistTwiceIsRejected(t *testing.T) {
	svc, _, _, _ := newEnrollmentFixture(2)
	ctx := context.Background()

	_, err := svc.RequestWaitlist(ctx, student(1), models.WaitlistRequest{OfferingID: offeringID})
	require.NoError(t, err)
	_, err = svc.RequestWaitlist(ctx, student(1), models.WaitlistRequest{OfferingID: offeringID})
	var inel *IneligibleError
	require.True(t, errors.As(err, &inel))
	assert.Contains(t, inel.Result.Reasons, "already waitlisted in this offering")
}

func TestRequestWaitlistReentersAfterDeny(t *testing.T) {
	svc, store, _, _ := newEnrollmentFixture(2)
	store.put(offeringID, 1, models.EnrollmentDenied)

	e, err := svc.RequestWaitlist(context.Background(), student(1), models.WaitlistRequest{OfferingID: offeringID})
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentWaitlisted, e.Status)
	assert.Equal(t, models.EnrollmentWaitlisted, store.status(offeringID, 1))
}

func TestRequestWaitlistRules(t *testing.T) {
	svc, _, _, _ := newEnrollmentFixture(2)
	ctx := context.Background()

	_, err := svc.RequestWaitlist(ctx, owner, models.WaitlistRequest{OfferingID: offeringID})
	assertAppError(t, err, appErrors.ErrForbidden, "Forbidden")

	_, err = svc.RequestWaitlist(ctx, student(1), models.WaitlistRequest{OfferingID: 999})
	assertAppError(t, err, appErrors.ErrNotFound, "Offering not found")

	_, err = svc.RequestWaitlist(ctx, student(1), models.WaitlistRequest{})
	assertAppError(t, err, appErrors.ErrValidation, "")
}

func TestCancelWaitlist(t *testing.T) {
	svc, store, _, _ := newEnrollmentFixture(2)
	store.put(offeringID, 1, models.EnrollmentWaitlisted)

	require.NoError(t, svc.CancelWaitlist(context.Background(), student(1), models.WaitlistRequest{OfferingID: offeringID}))
	assert.Equal(t, models.EnrollmentStatus(""), store.status(offeringID, 1))
}

func TestCancelWaitlistWhenEnrolledIsNotFound(t *testing.T) {
	svc, store, _, _ := newEnrollmentFixture(2)
	store.put(offeringID, 1, models.EnrollmentEnrolled)

	err := svc.CancelWaitlist(context.Background(), student(1), models.WaitlistRequest{OfferingID: offeringID})
	assertAppError(t, err, appErrors.ErrNotFound, "no waitlist entry")
	assert.Equal(t, models.EnrollmentEnrolled, store.status(offeringID, 1))
}

func TestApproveSeatsStudent(t *testing.T) {
	svc, store, audit, metrics := newEnrollmentFixture(2)
	store.put(offeringID, 1, models.EnrollmentWaitlisted)

	e, err := svc.Approve(context.Background(), owner, action(1))
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentEnrolled, e.Status)
	require.NotNil(t, e.EnrolledAt)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, "100:1", *audit.entries[0].ResourceID)
	assert.Contains(t, scrape(metrics), `enrollment_transitions_total{action="approve",result="ok"} 1`)
}

func TestApproveTwiceConflicts(t *testing.T) {
	svc, store, _, _ := newEnrollmentFixture(2)
	store.put(offeringID, 1, models.EnrollmentWaitlisted)
	ctx := context.Background()

	_, err := svc.Approve(ctx, owner, action(1))
	require.NoError(t, err)
	_, err = svc.Approve(ctx, owner, action(1))
	assertAppError(t, err, appErrors.ErrConflict, "not on waitlist")
}

func TestApproveOwnership(t *testing.T) {
	svc, store, _, _ := newEnrollmentFixture(2)
	store.put(offeringID, 1, models.EnrollmentWaitlisted)
	ctx := context.Background()

	_, err := svc.Approve(ctx, stranger, action(1))
	assertAppError(t, err, appErrors.ErrForbidden, "Forbidden")
	_, err = svc.Approve(ctx, student(1), action(1))
	assertAppError(t, err, appErrors.ErrForbidden, "Forbidden")
	assert.Equal(t, models.EnrollmentWaitlisted, store.status(offeringID, 1))

	_, err = svc.Approve(ctx, admin, action(1))
	require.NoError(t, err)
}

func TestApproveWithoutRowIsNotFound(t *testing.T) {
	svc, _, _, _ := newEnrollmentFixture(2)

	_, err := svc.Approve(context.Background(), owner, action(5))
	assertAppError(t, err, appErrors.ErrNotFound, "no waitlist entry")
}

func TestDropFreesSeatForNextApproval(t *testing.T) {
	svc, store, _, _ := newEnrollmentFixture(1)
	store.put(offeringID, 1, models.EnrollmentEnrolled)
	store.put(offeringID, 2, models.EnrollmentWaitlisted)
	ctx := context.Background()

	_, err := svc.Approve(ctx, owner, action(2))
	assertAppError(t, err, appErrors.ErrNoSeat, "no seat available")

	_, err = svc.Drop(ctx, owner, action(1))
	require.NoError(t, err)

	e, err := svc.Approve(ctx, owner, action(2))
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentEnrolled, e.Status)

	sc, err := svc.SeatsLeft(ctx, offeringID)
	require.NoError(t, err)
	assert.Equal(t, 0, sc.SeatsLeft)
}

func TestConcurrentApprovalsNeverOverbook(t *testing.T) {
	const seats, applicants = 3, 12
	svc, store, _, _ := newEnrollmentFixture(seats)
	for i := int64(1); i <= applicants; i++ {
		store.put(offeringID, i, models.EnrollmentWaitlisted)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		approved int
		noSeat   int
	)
	for i := int64(1); i <= applicants; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := svc.Approve(context.Background(), owner, action(id))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				approved++
			case errors.Is(err, appErrors.ErrNoSeat):
				noSeat++
			default:
				t.Errorf("unexpected error for student %d: %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, seats, approved)
	assert.Equal(t, applicants-seats, noSeat)
	sc, err := svc.SeatsLeft(context.Background(), offeringID)
	require.NoError(t, err)
	assert.Equal(t, 0, sc.SeatsLeft)
	assert.Equal(t, seats, sc.EnrolledCount)
}

func TestDenyWithoutWaitlistEntry(t *testing.T) {
	svc, store, _, _ := newEnrollmentFixture(2)
	store.put(offeringID, 1, models.EnrollmentEnrolled)

	_, err := svc.Deny(context.Background(), owner, action(1))
	assertAppError(t, err, appErrors.ErrNotFound, "no waitlist entry to deny")
}

func TestCompleteAndDropRequireEnrolled(t *testing.T) {
	svc, store, _, _ := newEnrollmentFixture(2)
	store.put(offeringID, 1, models.EnrollmentEnrolled)
	store.put(offeringID, 2, models.EnrollmentWaitlisted)
	ctx := context.Background()

	e, err := svc.Complete(ctx, owner, action(1))
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentCompleted, e.Status)
	assert.NotNil(t, e.CompletedAt)
	assert.Nil(t, e.FinalPercent)

	_, err = svc.Drop(ctx, owner, action(1))
	assertAppError(t, err, appErrors.ErrNotFound, "not enrolled")
	_, err = svc.Complete(ctx, owner, action(2))
	assertAppError(t, err, appErrors.ErrNotFound, "not enrolled")
}

func TestAuditFailureDoesNotFailTransition(t *testing.T) {
	svc, store, audit, _ := newEnrollmentFixture(2)
	audit.err = fmt.Errorf("audit table missing")
	store.put(offeringID, 1, models.EnrollmentWaitlisted)

	_, err := svc.Deny(context.Background(), owner, action(1))
	require.NoError(t, err)
	assert.Equal(t, models.EnrollmentDenied, store.status(offeringID, 1))
}

func TestListWaitlistRequiresOwner(t *testing.T) {
	svc, store, _, _ := newEnrollmentFixture(2)
	store.put(offeringID, 1, models.EnrollmentWaitlisted)
	store.put(offeringID, 2, models.EnrollmentEnrolled)
	ctx := context.Background()

	rows, err := svc.ListWaitlist(ctx, owner, offeringID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(1), rows[0].StudentID)

	rows, err = svc.ListEnrolled(ctx, admin, offeringID)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	_, err = svc.ListWaitlist(ctx, stranger, offeringID)
	assertAppError(t, err, appErrors.ErrForbidden, "")
}
