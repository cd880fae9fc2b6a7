package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/kanvas-api/internal/models"
	"github.com/noah-isme/kanvas-api/internal/service"
	appErrors "github.com/noah-isme/kanvas-api/pkg/errors"
	"github.com/noah-isme/kanvas-api/pkg/response"
)

type enrollmentService interface {
	RequestWaitlist(ctx context.Context, actor models.Actor, req models.WaitlistRequest) (*models.Enrollment, error)
	CancelWaitlist(ctx context.Context, actor models.Actor, req models.WaitlistRequest) error
	Approve(ctx context.Context, actor models.Actor, req models.EnrollmentActionRequest) (*models.Enrollment, error)
	Deny(ctx context.Context, actor models.Actor, req models.EnrollmentActionRequest) (*models.Enrollment, error)
	Drop(ctx context.Context, actor models.Actor, req models.EnrollmentActionRequest) (*models.Enrollment, error)
	Complete(ctx context.Context, actor models.Actor, req models.EnrollmentActionRequest) (*models.Enrollment, error)
	SeatsLeft(ctx context.Context, offeringID int64) (*models.SeatCount, error)
	ListWaitlist(ctx context.Context, actor models.Actor, offeringID int64) ([]models.EnrollmentDetail, error)
	ListEnrolled(ctx context.Context, actor models.Actor, offeringID int64) ([]models.EnrollmentDetail, error)
}

// EnrollmentHandler exposes the waitlist and seat state machine.
type EnrollmentHandler struct {
	enrollments enrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(enrollments enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments}
}

// RequestWaitlist godoc
// @Summary Join an offering's waitlist
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body models.WaitlistRequest true "Offering"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope "Not eligible; data carries the eligibility result"
// @Router /enrollments/waitlist [post]
func (h *EnrollmentHandler) RequestWaitlist(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.WaitlistRequest
	if !bindJSON(c, &req, "invalid waitlist payload") {
		return
	}
	enrollment, err := h.enrollments.RequestWaitlist(c.Request.Context(), actor, req)
	if err != nil {
		var ineligible *service.IneligibleError
		if errors.As(err, &ineligible) {
			response.ErrorWithData(c, appErrors.Clone(appErrors.ErrConflict, ineligible.Error()), ineligible.Result)
			return
		}
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// CancelWaitlist godoc
// @Summary Leave an offering's waitlist
// @Tags Enrollments
// @Accept json
// @Param payload body models.WaitlistRequest true "Offering"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /enrollments/waitlist [delete]
func (h *EnrollmentHandler) CancelWaitlist(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.WaitlistRequest
	if !bindJSON(c, &req, "invalid waitlist payload") {
		return
	}
	if err := h.enrollments.CancelWaitlist(c.Request.Context(), actor, req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Approve godoc
// @Summary Approve a waitlisted student into a seat
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body models.EnrollmentActionRequest true "Offering and student"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /enrollments/approve [post]
func (h *EnrollmentHandler) Approve(c *gin.Context) {
	h.transition(c, h.enrollments.Approve)
}

// Deny godoc
// @Summary Deny a waitlisted student
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body models.EnrollmentActionRequest true "Offering and student"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /enrollments/deny [post]
func (h *EnrollmentHandler) Deny(c *gin.Context) {
	h.transition(c, h.enrollments.Deny)
}

// Drop godoc
// @Summary Drop an enrolled student
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body models.EnrollmentActionRequest true "Offering and student"
// @Success 200 {object} response.Envelope
// @Router /enrollments/drop [post]
func (h *EnrollmentHandler) Drop(c *gin.Context) {
	h.transition(c, h.enrollments.Drop)
}

// Complete godoc
// @Summary Mark an enrolled student as completed
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body models.EnrollmentActionRequest true "Offering and student"
// @Success 200 {object} response.Envelope
// @Router /enrollments/complete [post]
func (h *EnrollmentHandler) Complete(c *gin.Context) {
	h.transition(c, h.enrollments.Complete)
}

// SeatsLeft godoc
// @Summary Live seat count
// @Tags Enrollments
// @Produce json
// @Param offeringId path int true "Offering ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{offeringId}/seats-left [get]
func (h *EnrollmentHandler) SeatsLeft(c *gin.Context) {
	offeringID, ok := pathID(c, "offeringId")
	if !ok {
		return
	}
	seats, err := h.enrollments.SeatsLeft(c.Request.Context(), offeringID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, seats)
}

// Waitlist godoc
// @Summary Waitlisted students (owner only)
// @Tags Enrollments
// @Produce json
// @Param offeringId path int true "Offering ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{offeringId}/waitlist [get]
func (h *EnrollmentHandler) Waitlist(c *gin.Context) {
	h.list(c, h.enrollments.ListWaitlist)
}

// Enrolled godoc
// @Summary Enrolled students (owner only)
// @Tags Enrollments
// @Produce json
// @Param offeringId path int true "Offering ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{offeringId}/enrolled [get]
func (h *EnrollmentHandler) Enrolled(c *gin.Context) {
	h.list(c, h.enrollments.ListEnrolled)
}

type transitionFunc func(ctx context.Context, actor models.Actor, req models.EnrollmentActionRequest) (*models.Enrollment, error)

func (h *EnrollmentHandler) transition(c *gin.Context, fn transitionFunc) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.EnrollmentActionRequest
	if !bindJSON(c, &req, "invalid enrollment payload") {
		return
	}
	enrollment, err := fn(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment, nil)
}

type rosterFunc func(ctx context.Context, actor models.Actor, offeringID int64) ([]models.EnrollmentDetail, error)

func (h *EnrollmentHandler) list(c *gin.Context, fn rosterFunc) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	offeringID, ok := pathID(c, "offeringId")
	if !ok {
		return
	}
	rows, err := fn(c.Request.Context(), actor, offeringID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, rows)
}
