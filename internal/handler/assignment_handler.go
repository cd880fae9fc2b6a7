package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/kanvas-api/internal/models"
	"github.com/noah-isme/kanvas-api/internal/service"
	"github.com/noah-isme/kanvas-api/pkg/response"
)

// AssignmentHandler exposes assignment endpoints and the due-date feed.
type AssignmentHandler struct {
	assignments *service.AssignmentService
	exports     *service.ExportService
}

// NewAssignmentHandler constructs AssignmentHandler.
func NewAssignmentHandler(assignments *service.AssignmentService, exports *service.ExportService) *AssignmentHandler {
	return &AssignmentHandler{assignments: assignments, exports: exports}
}

// Create godoc
// @Summary Create assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param payload body models.CreateAssignmentRequest true "Assignment"
// @Success 201 {object} response.Envelope
// @Router /assignments [post]
func (h *AssignmentHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.CreateAssignmentRequest
	if !bindJSON(c, &req, "invalid assignment payload") {
		return
	}
	a, err := h.assignments.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, a)
}

// Update godoc
// @Summary Update assignment
// @Tags Assignments
// @Accept json
// @Produce json
// @Param id path int true "Assignment ID"
// @Param payload body models.UpdateAssignmentRequest true "Assignment"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id} [patch]
func (h *AssignmentHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req models.UpdateAssignmentRequest
	if !bindJSON(c, &req, "invalid assignment payload") {
		return
	}
	a, err := h.assignments.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, a)
}

// Open godoc
// @Summary Reopen assignment for submissions
// @Tags Assignments
// @Param id path int true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/open [patch]
func (h *AssignmentHandler) Open(c *gin.Context) {
	h.setOpen(c, true)
}

// Close godoc
// @Summary Close assignment for submissions
// @Tags Assignments
// @Param id path int true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id}/close [patch]
func (h *AssignmentHandler) Close(c *gin.Context) {
	h.setOpen(c, false)
}

func (h *AssignmentHandler) setOpen(c *gin.Context, open bool) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	a, err := h.assignments.SetOpen(c.Request.Context(), actor, id, open)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, a)
}

// Delete godoc
// @Summary Delete assignment
// @Tags Assignments
// @Param id path int true "Assignment ID"
// @Success 204
// @Router /assignments/{id} [delete]
func (h *AssignmentHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.assignments.Delete(c.Request.Context(), actor, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Get godoc
// @Summary Get assignment
// @Tags Assignments
// @Produce json
// @Param id path int true "Assignment ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/{id} [get]
func (h *AssignmentHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	a, err := h.assignments.Get(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, a)
}

// ListByOffering godoc
// @Summary Assignments of an offering
// @Tags Assignments
// @Produce json
// @Param offeringId path int true "Offering ID"
// @Success 200 {object} response.Envelope
// @Router /assignments/offering/{offeringId} [get]
func (h *AssignmentHandler) ListByOffering(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	offeringID, ok := pathID(c, "offeringId")
	if !ok {
		return
	}
	list, err := h.assignments.ListByOffering(c.Request.Context(), actor, offeringID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, list)
}

// Calendar godoc
// @Summary iCalendar feed of the caller's assignment due dates
// @Tags Assignments
// @Produce text/calendar
// @Success 200 {string} string "VCALENDAR"
// @Router /assignments/calendar.ics [get]
func (h *AssignmentHandler) Calendar(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	file, err := h.exports.Calendar(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	serveFile(c, file, true)
}

func serveFile(c *gin.Context, file *service.ExportFile, inline bool) {
	disposition := "attachment"
	if inline {
		disposition = "inline"
	}
	c.Header("Content-Disposition", disposition+"; filename="+strconv.Quote(file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(200, file.ContentType, file.Data)
}
