package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/kanvas-api/internal/models"
	appErrors "github.com/noah-isme/kanvas-api/pkg/errors"
)

type submissionRepository interface {
	Upsert(ctx context.Context, s *models.Submission) error
	Grade(ctx context.Context, assignmentID, studentID int64, percent float64, gradedBy int64, at time.Time) (*models.Submission, error)
	ListByOffering(ctx context.Context, offeringID int64) ([]models.SubmissionDetail, error)
	ListByTeacher(ctx context.Context, teacherID int64) ([]models.SubmissionDetail, error)
	ListForStudent(ctx context.Context, offeringID, studentID int64) ([]models.SubmissionDetail, error)
}

type assignmentFinder interface {
	FindByID(ctx context.Context, id int64) (*models.Assignment, error)
}

type enrollmentFinder interface {
	Find(ctx context.Context, offeringID, studentID int64) (*models.Enrollment, error)
}

// SubmissionService accepts student work and records per-assignment grades.
type SubmissionService struct {
	repo        submissionRepository
	assignments assignmentFinder
	enrollments enrollmentFinder
	access      offeringAccess
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewSubmissionService constructs SubmissionService.
func NewSubmissionService(repo submissionRepository, assignments assignmentFinder, enrollments enrollmentFinder, offerings offeringReader, validate *validator.Validate, logger *zap.Logger) *SubmissionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionService{
		repo:        repo,
		assignments: assignments,
		enrollments: enrollments,
		access:      offeringAccess{offerings: offerings},
		validator:   validate,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Submit stores or replaces the calling student's work. Only enrolled
// students may submit, and only while the assignment is open.
func (s *SubmissionService) Submit(ctx context.Context, actor models.Actor, req models.SubmitRequest) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid submission payload")
	}
	if !actor.IsStudent() {
		return nil, appErrors.ErrForbidden
	}
	a, err := s.assignment(ctx, req.AssignmentID)
	if err != nil {
		return nil, err
	}
	e, err := s.enrollments.Find(ctx, a.OfferingID, actor.ID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, internalError(err, "failed to load enrollment")
	}
	if e == nil || e.Status != models.EnrollmentEnrolled {
		return nil, appErrors.ErrForbidden
	}
	if !a.IsOpen {
		return nil, appErrors.Clone(appErrors.ErrConflict, "assignment is closed")
	}

	sub := &models.Submission{AssignmentID: a.ID, StudentID: actor.ID, SubmissionURL: req.SubmissionURL, SubmittedAt: s.now()}
	if err := s.repo.Upsert(ctx, sub); err != nil {
		return nil, internalError(err, "failed to save submission")
	}
	return sub, nil
}

// Grade sets a submission's percent. The actor must own the offering.
func (s *SubmissionService) Grade(ctx context.Context, actor models.Actor, req models.GradeSubmissionRequest) (*models.Submission, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid grade payload")
	}
	a, err := s.assignment(ctx, req.AssignmentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.access.requireOwner(ctx, actor, a.OfferingID); err != nil {
		return nil, err
	}
	sub, err := s.repo.Grade(ctx, req.AssignmentID, req.StudentID, *req.GradePercent, actor.ID, s.now())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "submission not found")
		}
		return nil, internalError(err, "failed to grade submission")
	}
	s.logger.Info("submission graded",
		zap.Int64("assignment_id", req.AssignmentID),
		zap.Int64("student_id", req.StudentID),
		zap.Int64("actor_id", actor.ID),
	)
	return sub, nil
}

// ListForTeacher returns submissions across the teacher's offerings.
func (s *SubmissionService) ListForTeacher(ctx context.Context, actor models.Actor) ([]models.SubmissionDetail, error) {
	if !actor.IsTeacher() && !actor.IsAdmin() {
		return nil, appErrors.ErrForbidden
	}
	list, err := s.repo.ListByTeacher(ctx, actor.ID)
	if err != nil {
		return nil, internalError(err, "failed to list submissions")
	}
	return nonNilSubmissions(list), nil
}

// ListByOffering returns every submission of an offering to its owner.
func (s *SubmissionService) ListByOffering(ctx context.Context, actor models.Actor, offeringID int64) ([]models.SubmissionDetail, error) {
	if _, err := s.access.requireOwner(ctx, actor, offeringID); err != nil {
		return nil, err
	}
	list, err := s.repo.ListByOffering(ctx, offeringID)
	if err != nil {
		return nil, internalError(err, "failed to list submissions")
	}
	return nonNilSubmissions(list), nil
}

// ListMine returns the calling student's submissions in an offering.
func (s *SubmissionService) ListMine(ctx context.Context, actor models.Actor, offeringID int64) ([]models.SubmissionDetail, error) {
	if !actor.IsStudent() {
		return nil, appErrors.ErrForbidden
	}
	if _, err := s.access.requireViewer(ctx, actor, offeringID); err != nil {
		return nil, err
	}
	list, err := s.repo.ListForStudent(ctx, offeringID, actor.ID)
	if err != nil {
		return nil, internalError(err, "failed to list submissions")
	}
	return nonNilSubmissions(list), nil
}

func (s *SubmissionService) assignment(ctx context.Context, id int64) (*models.Assignment, error) {
	a, err := s.assignments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, internalError(err, "failed to load assignment")
	}
	return a, nil
}

func nonNilSubmissions(list []models.SubmissionDetail) []models.SubmissionDetail {
	if list == nil {
		return []models.SubmissionDetail{}
	}
	return list
}
