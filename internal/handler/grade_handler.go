package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/kanvas-api/internal/models"
	"github.com/noah-isme/kanvas-api/internal/service"
	"github.com/noah-isme/kanvas-api/pkg/response"
)

type gradeService interface {
	Breakdown(ctx context.Context, actor models.Actor, offeringID, studentID int64) (*models.GradeBreakdown, error)
	CurrentWeighted(ctx context.Context, actor models.Actor, offeringID, studentID int64) (*models.CurrentGrade, error)
	Finals(ctx context.Context, actor models.Actor, studentID int64) ([]models.FinalRecord, error)
	GPAByCourse(ctx context.Context, actor models.Actor, studentID int64) ([]models.FinalRecord, error)
	CumulativeGPA(ctx context.Context, actor models.Actor, studentID int64) (*models.CumulativeGPA, error)
	UpdateFinalGrade(ctx context.Context, actor models.Actor, req models.UpdateFinalGradeRequest) (*models.Enrollment, error)
}

type transcriptExporter interface {
	Transcript(ctx context.Context, actor models.Actor, studentID int64, format string) (*service.ExportFile, error)
}

// GradeHandler exposes running grades, finals, GPA and transcripts.
type GradeHandler struct {
	grades  gradeService
	exports transcriptExporter
}

// NewGradeHandler constructs GradeHandler.
func NewGradeHandler(grades gradeService, exports transcriptExporter) *GradeHandler {
	return &GradeHandler{grades: grades, exports: exports}
}

// Breakdown godoc
// @Summary Per-assignment grades in an offering
// @Tags Grades
// @Produce json
// @Param offeringId path int true "Offering ID"
// @Param studentId query int false "Student (owners and admins)"
// @Success 200 {object} response.Envelope
// @Router /grades/{offeringId}/breakdown [get]
func (h *GradeHandler) Breakdown(c *gin.Context) {
	actor, offeringID, studentID, ok := h.offeringScope(c)
	if !ok {
		return
	}
	out, err := h.grades.Breakdown(c.Request.Context(), actor, offeringID, studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}

// Current godoc
// @Summary Current weighted grade over graded work
// @Tags Grades
// @Produce json
// @Param offeringId path int true "Offering ID"
// @Param studentId query int false "Student (owners and admins)"
// @Success 200 {object} response.Envelope
// @Router /grades/{offeringId}/current [get]
func (h *GradeHandler) Current(c *gin.Context) {
	actor, offeringID, studentID, ok := h.offeringScope(c)
	if !ok {
		return
	}
	out, err := h.grades.CurrentWeighted(c.Request.Context(), actor, offeringID, studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}

// Finals godoc
// @Summary Completed courses with final grades
// @Tags Grades
// @Produce json
// @Param studentId query int false "Student (admins)"
// @Success 200 {object} response.Envelope
// @Router /grades/finals [get]
func (h *GradeHandler) Finals(c *gin.Context) {
	actor, studentID, ok := h.studentScope(c)
	if !ok {
		return
	}
	out, err := h.grades.Finals(c.Request.Context(), actor, studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}

// GPAByCourse godoc
// @Summary GPA points per graded completed course
// @Tags Grades
// @Produce json
// @Param studentId query int false "Student (admins)"
// @Success 200 {object} response.Envelope
// @Router /grades/gpa/by-course [get]
func (h *GradeHandler) GPAByCourse(c *gin.Context) {
	actor, studentID, ok := h.studentScope(c)
	if !ok {
		return
	}
	out, err := h.grades.GPAByCourse(c.Request.Context(), actor, studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}

// Cumulative godoc
// @Summary Credit weighted cumulative GPA
// @Tags Grades
// @Produce json
// @Param studentId query int false "Student (admins)"
// @Success 200 {object} response.Envelope
// @Router /grades/gpa/cumulative [get]
func (h *GradeHandler) Cumulative(c *gin.Context) {
	actor, studentID, ok := h.studentScope(c)
	if !ok {
		return
	}
	out, err := h.grades.CumulativeGPA(c.Request.Context(), actor, studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}

// UpdateFinal godoc
// @Summary Set a final grade by percent or letter
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body models.UpdateFinalGradeRequest true "Final grade"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /grades/final [patch]
func (h *GradeHandler) UpdateFinal(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req models.UpdateFinalGradeRequest
	if !bindJSON(c, &req, "invalid final grade payload") {
		return
	}
	out, err := h.grades.UpdateFinalGrade(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, out)
}

// Transcript godoc
// @Summary Download transcript
// @Tags Grades
// @Produce text/csv,application/pdf,application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param format query string false "csv, pdf or xlsx"
// @Param studentId query int false "Student (admins)"
// @Success 200 {file} file
// @Router /grades/transcript [get]
func (h *GradeHandler) Transcript(c *gin.Context) {
	actor, studentID, ok := h.studentScope(c)
	if !ok {
		return
	}
	file, err := h.exports.Transcript(c.Request.Context(), actor, studentID, c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	serveFile(c, file, false)
}

func (h *GradeHandler) offeringScope(c *gin.Context) (models.Actor, int64, int64, bool) {
	actor, ok := actorFromContext(c)
	if !ok {
		return actor, 0, 0, false
	}
	offeringID, ok := pathID(c, "offeringId")
	if !ok {
		return actor, 0, 0, false
	}
	studentID, ok := queryID(c, "studentId")
	return actor, offeringID, studentID, ok
}

func (h *GradeHandler) studentScope(c *gin.Context) (models.Actor, int64, bool) {
	actor, ok := actorFromContext(c)
	if !ok {
		return actor, 0, false
	}
	studentID, ok := queryID(c, "studentId")
	return actor, studentID, ok
}
