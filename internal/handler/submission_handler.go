package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/kanvas-api/internal/models"
	"github.com/noah-isme/kanvas-api/internal/service"
	"github.com/noah-isme/kanvas-api/pkg/response"
)

// SubmissionHandler exposes submission endpoints.
type SubmissionHandler struct {
	submissions *service.SubmissionService
}

// NewSubmissionHandler constructs SubmissionHandler.
func NewSubmissionHandler(submissions *service.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissions: submissions}
}

// Submit godoc
// @Summary Submit or resubmit work
// @Tags Submissions
// @Accept json
// @Produce json
// @Param payload body models.SubmitRequest true "Submission"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope "Assignment closed"
// @Router /submissions [post]
func (h *SubmissionHandler) Submit(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.SubmitRequest
	if !bindJSON(c, &req, "invalid submission payload") {
		return
	}
	sub, err := h.submissions.Submit(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sub)
}

// Grade godoc
// @Summary Grade a submission
// @Tags Submissions
// @Accept json
// @Produce json
// @Param payload body models.GradeSubmissionRequest true "Grade"
// @Success 200 {object} response.Envelope
// @Router /submissions/grade [post]
func (h *SubmissionHandler) Grade(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.GradeSubmissionRequest
	if !bindJSON(c, &req, "invalid grade payload") {
		return
	}
	sub, err := h.submissions.Grade(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, sub)
}

// TeacherAll godoc
// @Summary Submissions across the caller's offerings
// @Tags Submissions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /submissions/teacher/all [get]
func (h *SubmissionHandler) TeacherAll(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	list, err := h.submissions.ListForTeacher(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// ByOffering godoc
// @Summary Submissions of an offering (owner only)
// @Tags Submissions
// @Produce json
// @Param offeringId path int true "Offering ID"
// @Success 200 {object} response.Envelope
// @Router /submissions/offering/{offeringId} [get]
func (h *SubmissionHandler) ByOffering(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	offeringID, ok := pathID(c, "offeringId")
	if !ok {
		return
	}
	list, err := h.submissions.ListByOffering(c.Request.Context(), actor, offeringID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Mine godoc
// @Summary The caller's submissions in an offering
// @Tags Submissions
// @Produce json
// @Param offeringId path int true "Offering ID"
// @Success 200 {object} response.Envelope
// @Router /submissions/my/{offeringId} [get]
func (h *SubmissionHandler) Mine(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	offeringID, ok := pathID(c, "offeringId")
	if !ok {
		return
	}
	list, err := h.submissions.ListMine(c.Request.Context(), actor, offeringID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}
