package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kanvas-api/internal/models"
	"github.com/noah-isme/kanvas-api/internal/service"
	appErrors "github.com/noah-isme/kanvas-api/pkg/errors"
)

type fakeEnrollmentSrv struct {
	waitlistErr  error
	lastActor    models.Actor
	lastAction   models.EnrollmentActionRequest
	approveErr   error
	seats        *models.SeatCount
	seatsOffered int64
}

func (f *fakeEnrollmentSrv) RequestWaitlist(_ context.Context, actor models.Actor, req models.WaitlistRequest) (*models.Enrollment, error) {
	f.lastActor = actor
	if f.waitlistErr != nil {
		return nil, f.waitlistErr
	}
	return &models.Enrollment{ID: 1, OfferingID: req.OfferingID, StudentID: actor.ID, Status: models.EnrollmentWaitlisted}, nil
}

func (f *fakeEnrollmentSrv) CancelWaitlist(context.Context, models.Actor, models.WaitlistRequest) error {
	return nil
}

func (f *fakeEnrollmentSrv) Approve(_ context.Context, actor models.Actor, req models.EnrollmentActionRequest) (*models.Enrollment, error) {
	f.lastActor, f.lastAction = actor, req
	if f.approveErr != nil {
		return nil, f.approveErr
	}
	return &models.Enrollment{OfferingID: req.OfferingID, StudentID: req.StudentID, Status: models.EnrollmentEnrolled}, nil
}

func (f *fakeEnrollmentSrv) Deny(context.Context, models.Actor, models.EnrollmentActionRequest) (*models.Enrollment, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "waitlist entry not found")
}

func (f *fakeEnrollmentSrv) Drop(context.Context, models.Actor, models.EnrollmentActionRequest) (*models.Enrollment, error) {
	return &models.Enrollment{Status: models.EnrollmentDropped}, nil
}

func (f *fakeEnrollmentSrv) Complete(context.Context, models.Actor, models.EnrollmentActionRequest) (*models.Enrollment, error) {
	return &models.Enrollment{Status: models.EnrollmentCompleted}, nil
}

func (f *fakeEnrollmentSrv) SeatsLeft(_ context.Context, offeringID int64) (*models.SeatCount, error) {
	f.seatsOffered = offeringID
	return f.seats, nil
}

func (f *fakeEnrollmentSrv) ListWaitlist(context.Context, models.Actor, int64) ([]models.EnrollmentDetail, error) {
	return []models.EnrollmentDetail{}, nil
}

func (f *fakeEnrollmentSrv) ListEnrolled(context.Context, models.Actor, int64) ([]models.EnrollmentDetail, error) {
	return nil, appErrors.ErrForbidden
}

func TestEnrollmentHandlerWaitlistCreated(t *testing.T) {
	srv := &fakeEnrollmentSrv{}
	h := NewEnrollmentHandler(srv)
	c, rec := newTestContext(http.MethodPost, "/enrollments/waitlist", `{"offering_id":5}`, claimsFor(3, models.RoleStudent))

	h.RequestWaitlist(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, models.Actor{ID: 3, Role: models.RoleStudent}, srv.lastActor)
	assert.Contains(t, rec.Body.String(), `"status":"waitlisted"`)
}

func TestEnrollmentHandlerIneligibleCarriesResult(t *testing.T) {
	result := &models.Eligibility{Eligible: false, Reasons: []string{"Missing prerequisite: CS101"}}
	h := NewEnrollmentHandler(&fakeEnrollmentSrv{waitlistErr: &service.IneligibleError{Result: result}})
	c, rec := newTestContext(http.MethodPost, "/enrollments/waitlist", `{"offering_id":5}`, claimsFor(3, models.RoleStudent))

	h.RequestWaitlist(c)

	require.Equal(t, http.StatusConflict, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error)
	assert.Equal(t, "Not eligible: Missing prerequisite: CS101", env.Error.Message)
	var data models.Eligibility
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.False(t, data.Eligible)
	assert.Equal(t, []string{"Missing prerequisite: CS101"}, data.Reasons)
}

func TestEnrollmentHandlerRequiresCaller(t *testing.T) {
	h := NewEnrollmentHandler(&fakeEnrollmentSrv{})
	c, rec := newTestContext(http.MethodPost, "/enrollments/waitlist", `{"offering_id":5}`, nil)

	h.RequestWaitlist(c)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestEnrollmentHandlerApproveNoSeat(t *testing.T) {
	srv := &fakeEnrollmentSrv{approveErr: appErrors.ErrNoSeat}
	h := NewEnrollmentHandler(srv)
	c, rec := newTestContext(http.MethodPost, "/enrollments/approve", `{"offering_id":5,"student_id":3}`, claimsFor(10, models.RoleTeacher))

	h.Approve(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, models.EnrollmentActionRequest{OfferingID: 5, StudentID: 3}, srv.lastAction)
}

func TestEnrollmentHandlerDenyNotFound(t *testing.T) {
	h := NewEnrollmentHandler(&fakeEnrollmentSrv{})
	c, rec := newTestContext(http.MethodPost, "/enrollments/deny", `{"offering_id":5,"student_id":3}`, claimsFor(10, models.RoleTeacher))

	h.Deny(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "waitlist entry not found", decodeEnvelope(t, rec).Error.Message)
}

func TestEnrollmentHandlerSeatsLeft(t *testing.T) {
	srv := &fakeEnrollmentSrv{seats: &models.SeatCount{OfferingID: 5, TotalSeats: 2, EnrolledCount: 1, SeatsLeft: 1}}
	h := NewEnrollmentHandler(srv)
	c, rec := newTestContext(http.MethodGet, "/enrollments/5/seats-left", "", claimsFor(3, models.RoleStudent))
	c.Params = gin.Params{{Key: "offeringId", Value: "5"}}

	h.SeatsLeft(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(5), srv.seatsOffered)
	assert.Contains(t, rec.Body.String(), `"seats_left":1`)
}

func TestEnrollmentHandlerRejectsBadOfferingID(t *testing.T) {
	h := NewEnrollmentHandler(&fakeEnrollmentSrv{})
	c, rec := newTestContext(http.MethodGet, "/enrollments/abc/seats-left", "", claimsFor(3, models.RoleStudent))
	c.Params = gin.Params{{Key: "offeringId", Value: "abc"}}

	h.SeatsLeft(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid offeringId", decodeEnvelope(t, rec).Error.Message)
}

func TestEnrollmentHandlerEnrolledForbidden(t *testing.T) {
	h := NewEnrollmentHandler(&fakeEnrollmentSrv{})
	c, rec := newTestContext(http.MethodGet, "/enrollments/5/enrolled", "", claimsFor(11, models.RoleTeacher))
	c.Params = gin.Params{{Key: "offeringId", Value: "5"}}

	h.Enrolled(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
