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

type assignmentRepository interface {
	FindByID(ctx context.Context, id int64) (*models.Assignment, error)
	ListByOffering(ctx context.Context, offeringID int64) ([]models.Assignment, error)
	ListDueForStudent(ctx context.Context, studentID int64) ([]models.AssignmentDue, error)
	Create(ctx context.Context, a *models.Assignment) error
	Update(ctx context.Context, a *models.Assignment) error
	SetOpen(ctx context.Context, id int64, open bool) error
	Delete(ctx context.Context, id int64) error
}

// AssignmentService manages graded work and its submission gate. Weights are
// not required to add up to 100.
type AssignmentService struct {
	repo      assignmentRepository
	access    offeringAccess
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewAssignmentService constructs AssignmentService.
func NewAssignmentService(repo assignmentRepository, offerings offeringReader, validate *validator.Validate, logger *zap.Logger) *AssignmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{repo: repo, access: offeringAccess{offerings: offerings}, validator: validate, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Create adds an assignment to an offering the actor owns.
func (s *AssignmentService) Create(ctx context.Context, actor models.Actor, req models.CreateAssignmentRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid assignment payload")
	}
	if _, err := s.access.requireOwner(ctx, actor, req.OfferingID); err != nil {
		return nil, err
	}
	a := &models.Assignment{
		OfferingID:    req.OfferingID,
		Title:         req.Title,
		Description:   req.Description,
		WeightPercent: req.WeightPercent,
		AssignedOn:    s.now(),
		DueAt:         req.DueAt,
		IsOpen:        boolOr(req.IsOpen, true),
	}
	if req.AssignedOn != nil {
		a.AssignedOn = *req.AssignedOn
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, internalError(err, "failed to create assignment")
	}
	return a, nil
}

// Update patches an assignment.
func (s *AssignmentService) Update(ctx context.Context, actor models.Actor, id int64, req models.UpdateAssignmentRequest) (*models.Assignment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid assignment payload")
	}
	a, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		a.Title = *req.Title
	}
	if req.Description != nil {
		a.Description = *req.Description
	}
	if req.WeightPercent != nil {
		a.WeightPercent = *req.WeightPercent
	}
	if req.DueAt != nil {
		a.DueAt = req.DueAt
	}
	if err := s.repo.Update(ctx, a); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, internalError(err, "failed to update assignment")
	}
	return a, nil
}

// SetOpen opens or closes an assignment for submissions.
func (s *AssignmentService) SetOpen(ctx context.Context, actor models.Actor, id int64, open bool) (*models.Assignment, error) {
	a, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetOpen(ctx, id, open); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, internalError(err, "failed to update assignment")
	}
	a.IsOpen = open
	s.logger.Info("assignment gate changed", zap.Int64("assignment_id", id), zap.Bool("open", open))
	return a, nil
}

// Delete removes an assignment and its submissions.
func (s *AssignmentService) Delete(ctx context.Context, actor models.Actor, id int64) error {
	if _, err := s.owned(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return internalError(err, "failed to delete assignment")
	}
	return nil
}

// Get returns one assignment to anyone who may view its offering.
func (s *AssignmentService) Get(ctx context.Context, actor models.Actor, id int64) (*models.Assignment, error) {
	a, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.access.requireViewer(ctx, actor, a.OfferingID); err != nil {
		return nil, err
	}
	return a, nil
}

// ListByOffering returns an offering's assignments to viewers.
func (s *AssignmentService) ListByOffering(ctx context.Context, actor models.Actor, offeringID int64) ([]models.Assignment, error) {
	if _, err := s.access.requireViewer(ctx, actor, offeringID); err != nil {
		return nil, err
	}
	list, err := s.repo.ListByOffering(ctx, offeringID)
	if err != nil {
		return nil, internalError(err, "failed to list assignments")
	}
	if list == nil {
		list = []models.Assignment{}
	}
	return list, nil
}

// DueForStudent lists dated assignments across the student's current offerings.
func (s *AssignmentService) DueForStudent(ctx context.Context, actor models.Actor) ([]models.AssignmentDue, error) {
	if !actor.IsStudent() {
		return nil, appErrors.ErrForbidden
	}
	list, err := s.repo.ListDueForStudent(ctx, actor.ID)
	if err != nil {
		return nil, internalError(err, "failed to list due assignments")
	}
	return list, nil
}

func (s *AssignmentService) find(ctx context.Context, id int64) (*models.Assignment, error) {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "assignment not found")
		}
		return nil, internalError(err, "failed to load assignment")
	}
	return a, nil
}

func (s *AssignmentService) owned(ctx context.Context, actor models.Actor, id int64) (*models.Assignment, error) {
	a, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.access.requireOwner(ctx, actor, a.OfferingID); err != nil {
		return nil, err
	}
	return a, nil
}
