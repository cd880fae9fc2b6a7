package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/kanvas-api/internal/models"
	"github.com/noah-isme/kanvas-api/internal/service"
	"github.com/noah-isme/kanvas-api/pkg/response"
)

// OfferingHandler exposes offerings, prerequisites, eligibility checks and rosters.
type OfferingHandler struct {
	offerings   *service.OfferingService
	eligibility *service.EligibilityService
}

// NewOfferingHandler constructs OfferingHandler.
func NewOfferingHandler(offerings *service.OfferingService, eligibility *service.EligibilityService) *OfferingHandler {
	return &OfferingHandler{offerings: offerings, eligibility: eligibility}
}

// List godoc
// @Summary List offerings with live seat counts
// @Tags Offerings
// @Produce json
// @Param termId query int false "Filter by term"
// @Param teacherId query int false "Filter by teacher"
// @Param q query string false "Search code or name"
// @Param section query string false "Filter by section"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /offerings [get]
func (h *OfferingHandler) List(c *gin.Context) {
	termID, ok := queryID(c, "termId")
	if !ok {
		return
	}
	teacherID, ok := queryID(c, "teacherId")
	if !ok {
		return
	}
	filter := models.OfferingFilter{
		Query:   strings.TrimSpace(c.Query("q")),
		Section: strings.TrimSpace(c.Query("section")),
		Limit:   queryInt(c, "limit", 50),
		Offset:  queryInt(c, "offset", 0),
	}
	if termID > 0 {
		filter.TermID = &termID
	}
	if teacherID > 0 {
		filter.TeacherID = &teacherID
	}

	offerings, pagination, err := h.offerings.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, offerings, pagination)
}

// Mine godoc
// @Summary Offerings the caller teaches or takes
// @Tags Offerings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /offerings/mine [get]
func (h *OfferingHandler) Mine(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	offerings, err := h.offerings.ListMine(c.Request.Context(), actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, offerings)
}

// Get godoc
// @Summary Get offering
// @Tags Offerings
// @Produce json
// @Param id path int true "Offering ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /offerings/{id} [get]
func (h *OfferingHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	detail, err := h.offerings.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, detail)
}

// Create godoc
// @Summary Create offering
// @Tags Offerings
// @Accept json
// @Produce json
// @Param payload body models.CreateOfferingRequest true "Offering"
// @Success 201 {object} response.Envelope
// @Router /offerings [post]
func (h *OfferingHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.CreateOfferingRequest
	if !bindJSON(c, &req, "invalid offering payload") {
		return
	}
	offering, err := h.offerings.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, offering)
}

// Update godoc
// @Summary Update offering
// @Tags Offerings
// @Accept json
// @Produce json
// @Param id path int true "Offering ID"
// @Param payload body models.UpdateOfferingRequest true "Offering"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /offerings/{id} [patch]
func (h *OfferingHandler) Update(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req models.UpdateOfferingRequest
	if !bindJSON(c, &req, "invalid offering payload") {
		return
	}
	offering, err := h.offerings.Update(c.Request.Context(), actor, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, offering)
}

// Delete godoc
// @Summary Delete offering
// @Tags Offerings
// @Param id path int true "Offering ID"
// @Success 204
// @Router /offerings/{id} [delete]
func (h *OfferingHandler) Delete(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.offerings.Delete(c.Request.Context(), actor, id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AddPrereq godoc
// @Summary Add prerequisite offering
// @Tags Offerings
// @Accept json
// @Produce json
// @Param id path int true "Offering ID"
// @Param payload body models.AddPrereqRequest true "Prerequisite"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /offerings/{id}/prereqs [post]
func (h *OfferingHandler) AddPrereq(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req models.AddPrereqRequest
	if !bindJSON(c, &req, "invalid prerequisite payload") {
		return
	}
	detail, err := h.offerings.AddPrereq(c.Request.Context(), actor, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, detail)
}

// RemovePrereq godoc
// @Summary Remove prerequisite offering
// @Tags Offerings
// @Param id path int true "Offering ID"
// @Param prereqId path int true "Prerequisite offering ID"
// @Success 204
// @Router /offerings/{id}/prereqs/{prereqId} [delete]
func (h *OfferingHandler) RemovePrereq(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	prereqID, ok := pathID(c, "prereqId")
	if !ok {
		return
	}
	if err := h.offerings.RemovePrereq(c.Request.Context(), actor, id, prereqID); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SelfEligibility godoc
// @Summary Check the caller's eligibility for an offering
// @Tags Offerings
// @Produce json
// @Param id path int true "Offering ID"
// @Success 200 {object} response.Envelope
// @Router /offerings/{id}/eligibility [get]
func (h *OfferingHandler) SelfEligibility(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	result, err := h.eligibility.CheckSelf(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// StudentEligibility godoc
// @Summary Check a student's eligibility (owner only)
// @Tags Offerings
// @Produce json
// @Param id path int true "Offering ID"
// @Param studentId path int true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /offerings/{id}/eligibility/{studentId} [get]
func (h *OfferingHandler) StudentEligibility(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	studentID, ok := pathID(c, "studentId")
	if !ok {
		return
	}
	result, err := h.eligibility.CheckStudent(c.Request.Context(), actor, id, studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Classmates godoc
// @Summary Enrolled students of an offering
// @Tags Offerings
// @Produce json
// @Param id path int true "Offering ID"
// @Param q query string false "Search by name"
// @Success 200 {object} response.Envelope
// @Router /offerings/{id}/classmates [get]
func (h *OfferingHandler) Classmates(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	mates, err := h.offerings.Classmates(c.Request.Context(), actor, id, strings.TrimSpace(c.Query("q")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, mates)
}
