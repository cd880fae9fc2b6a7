package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/kanvas-api/internal/grading"
	"github.com/noah-isme/kanvas-api/internal/models"
	"github.com/noah-isme/kanvas-api/internal/repository"
	appErrors "github.com/noah-isme/kanvas-api/pkg/errors"
)

type gradedItemReader interface {
	GradedItems(ctx context.Context, offeringID, studentID int64) ([]models.GradedItem, error)
}

type finalGradeStore interface {
	Find(ctx context.Context, offeringID, studentID int64) (*models.Enrollment, error)
	UpdateFinalPercent(ctx context.Context, offeringID, studentID int64, percent float64, at time.Time) (*models.Enrollment, error)
	CompletedFinals(ctx context.Context, studentID int64) ([]models.FinalRecord, error)
}

type userFinder interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
}

// GradeService computes running grades, records final grades and derives GPA.
type GradeService struct {
	access      offeringAccess
	assignments gradedItemReader
	enrollments finalGradeStore
	users       userFinder
	audit       auditTrail
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewGradeService constructs GradeService.
func NewGradeService(offerings offeringReader, assignments gradedItemReader, enrollments finalGradeStore, users userFinder, audit auditWriter, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{
		access:      offeringAccess{offerings: offerings},
		assignments: assignments,
		enrollments: enrollments,
		users:       users,
		audit:       auditTrail{writer: audit, logger: logger},
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Breakdown lists every assignment of the offering with the student's grade.
// Students always see their own breakdown; owners pick the student.
func (s *GradeService) Breakdown(ctx context.Context, actor models.Actor, offeringID, studentID int64) (*models.GradeBreakdown, error) {
	studentID, err := s.authorizeOffering(ctx, actor, offeringID, studentID)
	if err != nil {
		return nil, err
	}
	items, err := s.assignments.GradedItems(ctx, offeringID, studentID)
	if err != nil {
		return nil, internalError(err, "failed to load grades")
	}
	out := &models.GradeBreakdown{OfferingID: offeringID, StudentID: studentID, Items: make([]models.GradedItem, 0, len(items))}
	for _, it := range items {
		if it.GradePercent != nil {
			it.Letter = grading.PercentToLetter(*it.GradePercent)
		}
		out.WeightTotal += it.WeightPercent
		out.Items = append(out.Items, it)
	}
	out.WeightTotal = grading.Round(out.WeightTotal, 2)
	return out, nil
}

// CurrentWeighted averages graded work so far. Percent is nil until
// something with weight has been graded.
func (s *GradeService) CurrentWeighted(ctx context.Context, actor models.Actor, offeringID, studentID int64) (*models.CurrentGrade, error) {
	breakdown, err := s.Breakdown(ctx, actor, offeringID, studentID)
	if err != nil {
		return nil, err
	}
	scores := make([]grading.WeightedScore, 0, len(breakdown.Items))
	out := &models.CurrentGrade{OfferingID: offeringID, StudentID: breakdown.StudentID, AssignedCount: len(breakdown.Items)}
	for _, it := range breakdown.Items {
		scores = append(scores, grading.WeightedScore{Weight: it.WeightPercent, Percent: it.GradePercent})
		if it.GradePercent != nil {
			out.GradedCount++
		}
	}
	if avg, weight, ok := grading.WeightedAverage(scores); ok {
		out.Percent = &avg
		out.Letter = grading.PercentToLetter(avg)
		out.GradedWeight = weight
	}
	return out, nil
}

// Finals lists completed courses with letter, GPA points and pass flag.
func (s *GradeService) Finals(ctx context.Context, actor models.Actor, studentID int64) ([]models.FinalRecord, error) {
	studentID, err := resolveStudent(actor, studentID)
	if err != nil {
		return nil, err
	}
	return s.finals(ctx, studentID)
}

// GPAByCourse keeps only completed courses that carry a final grade.
func (s *GradeService) GPAByCourse(ctx context.Context, actor models.Actor, studentID int64) ([]models.FinalRecord, error) {
	records, err := s.Finals(ctx, actor, studentID)
	if err != nil {
		return nil, err
	}
	graded := make([]models.FinalRecord, 0, len(records))
	for _, r := range records {
		if r.FinalPercent != nil {
			graded = append(graded, r)
		}
	}
	return graded, nil
}

// CumulativeGPA is credit weighted over completed, graded courses.
func (s *GradeService) CumulativeGPA(ctx context.Context, actor models.Actor, studentID int64) (*models.CumulativeGPA, error) {
	studentID, err := resolveStudent(actor, studentID)
	if err != nil {
		return nil, err
	}
	records, err := s.finals(ctx, studentID)
	if err != nil {
		return nil, err
	}
	gpa := cumulative(studentID, records)
	return &gpa, nil
}

// Transcript bundles identity, finals and cumulative GPA for export.
func (s *GradeService) Transcript(ctx context.Context, actor models.Actor, studentID int64) (*models.Transcript, error) {
	studentID, err := resolveStudent(actor, studentID)
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, internalError(err, "failed to load student")
	}
	records, err := s.finals(ctx, studentID)
	if err != nil {
		return nil, err
	}
	return &models.Transcript{
		Student:    models.UserInfo{ID: user.ID, Email: user.Email, Name: user.FullName(), Role: user.Role},
		Records:    records,
		Cumulative: cumulative(studentID, records),
		IssuedAt:   s.now(),
	}, nil
}

// UpdateFinalGrade stores the owner's final grade, given as a percent or a
// letter. The enrollment must be enrolled or completed.
func (s *GradeService) UpdateFinalGrade(ctx context.Context, actor models.Actor, req models.UpdateFinalGradeRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid final grade payload")
	}
	percent, err := finalPercent(req)
	if err != nil {
		return nil, err
	}
	if _, err := s.access.requireOwner(ctx, actor, req.OfferingID); err != nil {
		return nil, err
	}

	updated, err := s.enrollments.UpdateFinalPercent(ctx, req.OfferingID, req.StudentID, percent, s.now())
	if err != nil {
		if !errors.Is(err, repository.ErrStaleState) {
			return nil, internalError(err, "failed to update final grade")
		}
		if _, findErr := s.enrollments.Find(ctx, req.OfferingID, req.StudentID); errors.Is(findErr, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Clone(appErrors.ErrConflict, "final grade requires an enrolled or completed student")
	}

	s.metrics.RecordFinalGrade()
	s.logger.Info("final grade updated",
		zap.Int64("offering_id", req.OfferingID),
		zap.Int64("student_id", req.StudentID),
		zap.Float64("final_percent", percent),
		zap.Int64("actor_id", actor.ID),
	)
	s.audit.record(ctx, actor, models.AuditActionFinalGrade, "enrollment",
		strconv.FormatInt(req.OfferingID, 10)+":"+strconv.FormatInt(req.StudentID, 10), updated)
	return updated, nil
}

func (s *GradeService) authorizeOffering(ctx context.Context, actor models.Actor, offeringID, studentID int64) (int64, error) {
	if actor.IsStudent() {
		if _, err := s.access.requireViewer(ctx, actor, offeringID); err != nil {
			return 0, err
		}
		return actor.ID, nil
	}
	if _, err := s.access.requireOwner(ctx, actor, offeringID); err != nil {
		return 0, err
	}
	if studentID <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, "student_id is required")
	}
	return studentID, nil
}

func (s *GradeService) finals(ctx context.Context, studentID int64) ([]models.FinalRecord, error) {
	records, err := s.enrollments.CompletedFinals(ctx, studentID)
	if err != nil {
		return nil, internalError(err, "failed to load final grades")
	}
	for i := range records {
		if p := records[i].FinalPercent; p != nil {
			points := grading.GPAPoints(*p)
			records[i].Letter = grading.PercentToLetter(*p)
			records[i].GPAPoints = &points
			records[i].Passed = grading.Passed(*p)
		}
	}
	if records == nil {
		records = []models.FinalRecord{}
	}
	return records, nil
}

func cumulative(studentID int64, records []models.FinalRecord) models.CumulativeGPA {
	grades := make([]grading.CreditedGrade, 0, len(records))
	courses := 0
	for _, r := range records {
		grades = append(grades, grading.CreditedGrade{Credits: r.Credits, FinalPercent: r.FinalPercent})
		if r.FinalPercent != nil && r.Credits > 0 {
			courses++
		}
	}
	out := models.CumulativeGPA{StudentID: studentID, Courses: courses}
	if gpa, credits, ok := grading.CumulativeGPA(grades); ok {
		out.GPA = &gpa
		out.Credits = credits
	}
	return out
}

// resolveStudent picks whose records are read: students read their own,
// admins name a student.
func resolveStudent(actor models.Actor, requested int64) (int64, error) {
	switch {
	case actor.IsStudent() && (requested == 0 || requested == actor.ID):
		return actor.ID, nil
	case actor.IsAdmin() && requested > 0:
		return requested, nil
	case actor.IsAdmin():
		return 0, appErrors.Clone(appErrors.ErrValidation, "student_id is required")
	default:
		return 0, appErrors.ErrForbidden
	}
}

func finalPercent(req models.UpdateFinalGradeRequest) (float64, error) {
	if req.FinalPercent != nil {
		return grading.Round(*req.FinalPercent, 2), nil
	}
	p, err := grading.LetterToPercent(req.Letter)
	if err != nil {
		return 0, validationError(err, "unknown letter grade")
	}
	return p, nil
}
