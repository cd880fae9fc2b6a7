package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/kanvas-api/internal/enrollment"
	"github.com/noah-isme/kanvas-api/internal/models"
	appErrors "github.com/noah-isme/kanvas-api/pkg/errors"
)

type eligibilityFacts interface {
	Find(ctx context.Context, offeringID, studentID int64) (*models.Enrollment, error)
	CountEnrolled(ctx context.Context, offeringID int64) (int, error)
	MissingPrerequisites(ctx context.Context, offeringID, studentID int64) ([]string, error)
	HasPassedCourse(ctx context.Context, studentID, courseID int64) (bool, error)
}

// EligibilityService gathers enrollment facts and evaluates waitlist eligibility.
// It never writes.
type EligibilityService struct {
	access      offeringAccess
	enrollments eligibilityFacts
	logger      *zap.Logger
}

func NewEligibilityService(offerings offeringReader, enrollments eligibilityFacts, logger *zap.Logger) *EligibilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EligibilityService{access: offeringAccess{offerings: offerings}, enrollments: enrollments, logger: logger}
}

// Evaluate returns the eligibility of studentID for offeringID. A missing
// offering yields an ineligible result, not an error.
func (s *EligibilityService) Evaluate(ctx context.Context, offeringID, studentID int64) (*models.Eligibility, error) {
	offering, err := s.access.offerings.FindByID(ctx, offeringID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			result := enrollment.Evaluate(enrollment.Facts{})
			return &result, nil
		}
		return nil, internalError(err, "failed to load offering")
	}

	facts := enrollment.Facts{Offering: offering}
	if facts.EnrolledCount, err = s.enrollments.CountEnrolled(ctx, offeringID); err != nil {
		return nil, internalError(err, "failed to count enrolled students")
	}
	current, err := s.enrollments.Find(ctx, offeringID, studentID)
	switch {
	case err == nil:
		facts.Current = current
	case !errors.Is(err, sql.ErrNoRows):
		return nil, internalError(err, "failed to load enrollment")
	}
	if facts.MissingPrereqs, err = s.enrollments.MissingPrerequisites(ctx, offeringID, studentID); err != nil {
		return nil, internalError(err, "failed to check prerequisites")
	}
	if facts.AlreadyPassed, err = s.enrollments.HasPassedCourse(ctx, studentID, offering.CourseID); err != nil {
		return nil, internalError(err, "failed to check course history")
	}

	result := enrollment.Evaluate(facts)
	return &result, nil
}

// CheckSelf evaluates the calling student.
func (s *EligibilityService) CheckSelf(ctx context.Context, actor models.Actor, offeringID int64) (*models.Eligibility, error) {
	if !actor.IsStudent() {
		return nil, appErrors.ErrForbidden
	}
	return s.Evaluate(ctx, offeringID, actor.ID)
}

// CheckStudent lets the offering's owner evaluate any student.
func (s *EligibilityService) CheckStudent(ctx context.Context, actor models.Actor, offeringID, studentID int64) (*models.Eligibility, error) {
	if _, err := s.access.requireOwner(ctx, actor, offeringID); err != nil {
		return nil, err
	}
	return s.Evaluate(ctx, offeringID, studentID)
}
