package service

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/kanvas-api/internal/enrollment"
	"github.com/noah-isme/kanvas-api/internal/models"
	"github.com/noah-isme/kanvas-api/internal/repository"
	appErrors "github.com/noah-isme/kanvas-api/pkg/errors"
)

type enrollmentStore interface {
	Find(ctx context.Context, offeringID, studentID int64) (*models.Enrollment, error)
	Insert(ctx context.Context, e *models.Enrollment) error
	Transition(ctx context.Context, next *models.Enrollment, from models.EnrollmentStatus) error
	DeleteWaitlisted(ctx context.Context, offeringID, studentID int64) error
	ApproveWithSeatGuard(ctx context.Context, offeringID, studentID int64, at time.Time) (*models.Enrollment, error)
	CountEnrolled(ctx context.Context, offeringID int64) (int, error)
	ListByStatus(ctx context.Context, offeringID int64, status models.EnrollmentStatus) ([]models.EnrollmentDetail, error)
}

type eligibilityEvaluator interface {
	Evaluate(ctx context.Context, offeringID, studentID int64) (*models.Eligibility, error)
}

type seatCounter interface {
	SeatCount(ctx context.Context, id int64) (*models.SeatCount, error)
}

type enrollmentOfferings interface {
	offeringReader
	seatCounter
}

// IneligibleError rejects a waitlist request and carries the evaluation so
// callers can show which rule failed.
type IneligibleError struct {
	Result *models.Eligibility
}

func (e *IneligibleError) Error() string {
	return "Not eligible: " + strings.Join(e.Result.Reasons, "; ")
}

// EnrollmentService drives the waitlist lifecycle of (offering, student) pairs.
type EnrollmentService struct {
	access      offeringAccess
	seats       seatCounter
	repo        enrollmentStore
	eligibility eligibilityEvaluator
	audit       auditTrail
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewEnrollmentService constructs EnrollmentService. metrics and audit may be nil.
func NewEnrollmentService(offerings enrollmentOfferings, repo enrollmentStore, eligibility eligibilityEvaluator, audit auditWriter, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		access:      offeringAccess{offerings: offerings},
		seats:       offerings,
		repo:        repo,
		eligibility: eligibility,
		audit:       auditTrail{writer: audit, logger: logger},
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// RequestWaitlist puts the calling student on the offering's waitlist.
func (s *EnrollmentService) RequestWaitlist(ctx context.Context, actor models.Actor, req models.WaitlistRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid waitlist payload")
	}
	if !actor.IsStudent() {
		return nil, appErrors.ErrForbidden
	}
	if _, err := s.access.load(ctx, req.OfferingID); err != nil {
		return nil, err
	}

	result, err := s.eligibility.Evaluate(ctx, req.OfferingID, actor.ID)
	if err != nil {
		return nil, err
	}
	if !result.Eligible {
		s.metrics.RecordTransition(string(enrollment.ActionRequestWaitlist), "ineligible")
		return nil, &IneligibleError{Result: result}
	}

	current, err := s.find(ctx, req.OfferingID, actor.ID)
	if err != nil {
		return nil, err
	}
	next, err := enrollment.RequestWaitlist(current, req.OfferingID, actor.ID, s.now())
	if err != nil {
		return nil, s.fail(enrollment.ActionRequestWaitlist, err)
	}

	if current == nil {
		err = s.repo.Insert(ctx, &next)
	} else {
		err = s.repo.Transition(ctx, &next, current.Status)
	}
	if err != nil {
		return nil, s.fail(enrollment.ActionRequestWaitlist, err)
	}

	s.succeed(ctx, actor, enrollment.ActionRequestWaitlist, models.AuditActionWaitlistRequest, &next)
	return &next, nil
}

// CancelWaitlist withdraws the calling student's pending request.
func (s *EnrollmentService) CancelWaitlist(ctx context.Context, actor models.Actor, req models.WaitlistRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return validationError(err, "invalid waitlist payload")
	}
	if !actor.IsStudent() {
		return appErrors.ErrForbidden
	}
	if _, err := s.access.load(ctx, req.OfferingID); err != nil {
		return err
	}
	current, err := s.find(ctx, req.OfferingID, actor.ID)
	if err != nil {
		return err
	}
	if err := enrollment.CancelWaitlist(current); err != nil {
		return s.fail(enrollment.ActionCancelWaitlist, err)
	}
	if err := s.repo.DeleteWaitlisted(ctx, req.OfferingID, actor.ID); err != nil {
		return s.fail(enrollment.ActionCancelWaitlist, err)
	}
	s.succeed(ctx, actor, enrollment.ActionCancelWaitlist, models.AuditActionWaitlistCancel, current)
	return nil
}

// Approve seats a waitlisted student if capacity remains at write time.
func (s *EnrollmentService) Approve(ctx context.Context, actor models.Actor, req models.EnrollmentActionRequest) (*models.Enrollment, error) {
	offering, current, err := s.prepareOwnerAction(ctx, actor, req)
	if err != nil {
		return nil, err
	}
	enrolled, err := s.repo.CountEnrolled(ctx, req.OfferingID)
	if err != nil {
		return nil, internalError(err, "failed to count enrolled students")
	}
	if _, err := enrollment.Approve(current, enrollment.SeatsLeft(offering.TotalSeats, enrolled), s.now()); err != nil {
		return nil, s.fail(enrollment.ActionApprove, err)
	}

	next, err := s.repo.ApproveWithSeatGuard(ctx, req.OfferingID, req.StudentID, s.now())
	if err != nil {
		return nil, s.fail(enrollment.ActionApprove, err)
	}
	s.succeed(ctx, actor, enrollment.ActionApprove, models.AuditActionApprove, next)
	return next, nil
}

// Deny rejects a waitlisted request.
func (s *EnrollmentService) Deny(ctx context.Context, actor models.Actor, req models.EnrollmentActionRequest) (*models.Enrollment, error) {
	return s.ownerTransition(ctx, actor, req, enrollment.ActionDeny, models.AuditActionDeny, enrollment.Deny)
}

// Drop removes an enrolled student and frees the seat.
func (s *EnrollmentService) Drop(ctx context.Context, actor models.Actor, req models.EnrollmentActionRequest) (*models.Enrollment, error) {
	return s.ownerTransition(ctx, actor, req, enrollment.ActionDrop, models.AuditActionDrop, enrollment.Drop)
}

// Complete closes an enrolled student's enrollment.
func (s *EnrollmentService) Complete(ctx context.Context, actor models.Actor, req models.EnrollmentActionRequest) (*models.Enrollment, error) {
	return s.ownerTransition(ctx, actor, req, enrollment.ActionComplete, models.AuditActionComplete, enrollment.Complete)
}

// SeatsLeft reports live capacity. It is never cached.
func (s *EnrollmentService) SeatsLeft(ctx context.Context, offeringID int64) (*models.SeatCount, error) {
	sc, err := s.seats.SeatCount(ctx, offeringID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Offering not found")
		}
		return nil, internalError(err, "failed to count seats")
	}
	return sc, nil
}

// ListWaitlist returns pending requests in request order.
func (s *EnrollmentService) ListWaitlist(ctx context.Context, actor models.Actor, offeringID int64) ([]models.EnrollmentDetail, error) {
	return s.listByStatus(ctx, actor, offeringID, models.EnrollmentWaitlisted)
}

// ListEnrolled returns students currently holding a seat.
func (s *EnrollmentService) ListEnrolled(ctx context.Context, actor models.Actor, offeringID int64) ([]models.EnrollmentDetail, error) {
	return s.listByStatus(ctx, actor, offeringID, models.EnrollmentEnrolled)
}

func (s *EnrollmentService) listByStatus(ctx context.Context, actor models.Actor, offeringID int64, status models.EnrollmentStatus) ([]models.EnrollmentDetail, error) {
	if _, err := s.access.requireOwner(ctx, actor, offeringID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByStatus(ctx, offeringID, status)
	if err != nil {
		return nil, internalError(err, "failed to list enrollments")
	}
	return rows, nil
}

type transitionFunc func(current *models.Enrollment, now time.Time) (models.Enrollment, error)

func (s *EnrollmentService) ownerTransition(ctx context.Context, actor models.Actor, req models.EnrollmentActionRequest, action enrollment.Action, auditAction string, apply transitionFunc) (*models.Enrollment, error) {
	_, current, err := s.prepareOwnerAction(ctx, actor, req)
	if err != nil {
		return nil, err
	}
	next, err := apply(current, s.now())
	if err != nil {
		return nil, s.fail(action, err)
	}
	if err := s.repo.Transition(ctx, &next, current.Status); err != nil {
		return nil, s.fail(action, err)
	}
	s.succeed(ctx, actor, action, auditAction, &next)
	return &next, nil
}

func (s *EnrollmentService) prepareOwnerAction(ctx context.Context, actor models.Actor, req models.EnrollmentActionRequest) (*models.Offering, *models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, validationError(err, "invalid enrollment payload")
	}
	offering, err := s.access.requireOwner(ctx, actor, req.OfferingID)
	if err != nil {
		return nil, nil, err
	}
	current, err := s.find(ctx, req.OfferingID, req.StudentID)
	if err != nil {
		return nil, nil, err
	}
	return offering, current, nil
}

// find returns nil without error when the pair has no row.
func (s *EnrollmentService) find(ctx context.Context, offeringID, studentID int64) (*models.Enrollment, error) {
	current, err := s.repo.Find(ctx, offeringID, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, internalError(err, "failed to load enrollment")
	}
	return current, nil
}

// fail maps transition and storage failures onto the error taxonomy and
// counts the rejection.
func (s *EnrollmentService) fail(action enrollment.Action, err error) error {
	if te, ok := enrollment.AsTransitionError(err); ok {
		s.metrics.RecordTransition(string(action), te.Kind.String())
		if te.Kind == enrollment.KindNotFound {
			return appErrors.Clone(appErrors.ErrNotFound, te.Reason)
		}
		if te.Reason == enrollment.ReasonNoSeatAvailable {
			return appErrors.ErrNoSeat
		}
		return appErrors.Clone(appErrors.ErrConflict, te.Reason)
	}

	switch {
	case errors.Is(err, repository.ErrNoSeat):
		s.metrics.RecordTransition(string(action), "no_seat")
		return appErrors.ErrNoSeat
	case errors.Is(err, repository.ErrStaleState):
		s.metrics.RecordTransition(string(action), "stale")
		return staleStateError(action)
	case errors.Is(err, sql.ErrNoRows):
		return appErrors.Clone(appErrors.ErrNotFound, "Offering not found")
	}
	s.metrics.RecordTransition(string(action), "error")
	return internalError(err, "failed to update enrollment")
}

// staleStateError reports a row that left the expected status between read
// and conditional write the same way the pure guard would have.
func staleStateError(action enrollment.Action) error {
	switch action {
	case enrollment.ActionCancelWaitlist:
		return appErrors.Clone(appErrors.ErrNotFound, enrollment.ReasonNoWaitlistEntry)
	case enrollment.ActionDeny:
		return appErrors.Clone(appErrors.ErrNotFound, enrollment.ReasonNoWaitlistToDeny)
	case enrollment.ActionDrop, enrollment.ActionComplete:
		return appErrors.Clone(appErrors.ErrNotFound, enrollment.ReasonNotEnrolled)
	case enrollment.ActionApprove:
		return appErrors.Clone(appErrors.ErrConflict, enrollment.ReasonNotOnWaitlist)
	default:
		return appErrors.Clone(appErrors.ErrConflict, enrollment.ReasonAlreadyInEnrollment)
	}
}

func (s *EnrollmentService) succeed(ctx context.Context, actor models.Actor, action enrollment.Action, auditAction string, e *models.Enrollment) {
	s.metrics.RecordTransition(string(action), "ok")
	s.logger.Info("enrollment transition",
		zap.String("action", string(action)),
		zap.Int64("offering_id", e.OfferingID),
		zap.Int64("student_id", e.StudentID),
		zap.String("status", string(e.Status)),
		zap.Int64("actor_id", actor.ID),
	)
	s.audit.record(ctx, actor, auditAction, "enrollment", strconv.FormatInt(e.OfferingID, 10)+":"+strconv.FormatInt(e.StudentID, 10), e)
}
