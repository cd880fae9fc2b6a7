package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/kanvas-api/internal/enrollment"
	"github.com/noah-isme/kanvas-api/internal/models"
	"github.com/noah-isme/kanvas-api/internal/repository"
	appErrors "github.com/noah-isme/kanvas-api/pkg/errors"
)

const (
	defaultSection   = "A"
	listMinePageSize = 200
)

type offeringRepository interface {
	offeringReader
	seatCounter
	FindDetail(ctx context.Context, id int64) (*models.OfferingDetail, error)
	List(ctx context.Context, filter models.OfferingFilter) ([]models.OfferingDetail, int, error)
	ListForStudent(ctx context.Context, studentID int64) ([]models.OfferingDetail, error)
	Create(ctx context.Context, o *models.Offering) error
	Update(ctx context.Context, o *models.Offering) error
	Delete(ctx context.Context, id int64) error
	AddPrereq(ctx context.Context, offeringID, prereqOfferingID int64, guard func([]models.CourseEdge) error) error
	RemovePrereq(ctx context.Context, offeringID, prereqOfferingID int64) error
	Classmates(ctx context.Context, offeringID int64, search string) ([]models.Classmate, error)
}

type courseFinder interface {
	FindByID(ctx context.Context, id int64) (*models.Course, error)
}

// OfferingService manages offerings, their prerequisite edges and rosters.
type OfferingService struct {
	repo      offeringRepository
	courses   courseFinder
	access    offeringAccess
	validator *validator.Validate
	logger    *zap.Logger
}

// NewOfferingService constructs OfferingService.
func NewOfferingService(repo offeringRepository, courses courseFinder, validate *validator.Validate, logger *zap.Logger) *OfferingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OfferingService{repo: repo, courses: courses, access: offeringAccess{offerings: repo}, validator: validate, logger: logger}
}

// List filters offerings with live seat counts.
func (s *OfferingService) List(ctx context.Context, filter models.OfferingFilter) ([]models.OfferingDetail, *models.Pagination, error) {
	offerings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, internalError(err, "failed to list offerings")
	}
	if offerings == nil {
		offerings = []models.OfferingDetail{}
	}
	limit, offset := filter.Limit, filter.Offset
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return offerings, &models.Pagination{Limit: limit, Offset: offset, TotalCount: total}, nil
}

// ListMine returns what a teacher teaches or what a student takes.
func (s *OfferingService) ListMine(ctx context.Context, actor models.Actor) ([]models.OfferingDetail, error) {
	if actor.IsStudent() {
		offerings, err := s.repo.ListForStudent(ctx, actor.ID)
		if err != nil {
			return nil, internalError(err, "failed to list offerings")
		}
		if offerings == nil {
			offerings = []models.OfferingDetail{}
		}
		return offerings, nil
	}
	teacherID := actor.ID
	filter := models.OfferingFilter{TeacherID: &teacherID, Limit: listMinePageSize}
	all := []models.OfferingDetail{}
	for {
		page, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, internalError(err, "failed to list offerings")
		}
		all = append(all, page...)
		if len(page) == 0 || len(all) >= total {
			return all, nil
		}
		filter.Offset += len(page)
	}
}

// Get returns one offering with prerequisites and seats.
func (s *OfferingService) Get(ctx context.Context, id int64) (*models.OfferingDetail, error) {
	detail, err := s.repo.FindDetail(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Offering not found")
		}
		return nil, internalError(err, "failed to load offering")
	}
	return detail, nil
}

// Create adds an offering. Teachers own what they create; admins must name a teacher.
func (s *OfferingService) Create(ctx context.Context, actor models.Actor, req models.CreateOfferingRequest) (*models.Offering, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid offering payload")
	}
	teacherID := actor.ID
	switch {
	case actor.IsAdmin() && req.TeacherID > 0:
		teacherID = req.TeacherID
	case actor.IsAdmin():
		return nil, appErrors.Clone(appErrors.ErrValidation, "teacher_id is required")
	case !actor.IsTeacher():
		return nil, appErrors.ErrForbidden
	}
	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, internalError(err, "failed to load course")
	}

	o := &models.Offering{
		CourseID:       req.CourseID,
		TermID:         req.TermID,
		TeacherID:      teacherID,
		Code:           req.Code,
		Name:           req.Name,
		Description:    req.Description,
		Section:        req.Section,
		Credits:        req.Credits,
		TotalSeats:     req.TotalSeats,
		EnrollmentOpen: boolOr(req.EnrollmentOpen, true),
		IsActive:       boolOr(req.IsActive, true),
	}
	if o.Section == "" {
		o.Section = defaultSection
	}
	if err := s.repo.Create(ctx, o); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "offering already exists for this course, term and section")
		}
		return nil, internalError(err, "failed to create offering")
	}
	s.logger.Info("offering created", zap.Int64("offering_id", o.ID), zap.Int64("teacher_id", o.TeacherID))
	return o, nil
}

// Update patches an offering. Seats cannot drop below the enrolled count.
func (s *OfferingService) Update(ctx context.Context, actor models.Actor, id int64, req models.UpdateOfferingRequest) (*models.Offering, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid offering payload")
	}
	o, err := s.access.requireOwner(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		o.Name = *req.Name
	}
	if req.Description != nil {
		o.Description = *req.Description
	}
	if req.Section != nil && *req.Section != "" {
		o.Section = *req.Section
	}
	if req.Credits != nil {
		o.Credits = *req.Credits
	}
	if req.EnrollmentOpen != nil {
		o.EnrollmentOpen = *req.EnrollmentOpen
	}
	if req.IsActive != nil {
		o.IsActive = *req.IsActive
	}
	if req.TotalSeats != nil {
		o.TotalSeats = *req.TotalSeats
	}

	if err := s.repo.Update(ctx, o); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Offering not found")
		case errors.Is(err, repository.ErrSeatsBelowEnrolled):
			return nil, appErrors.Clone(appErrors.ErrConflict, "total_seats cannot be lower than the enrolled count")
		case errors.Is(err, repository.ErrDuplicate):
			return nil, appErrors.Clone(appErrors.ErrConflict, "offering already exists for this course, term and section")
		}
		return nil, internalError(err, "failed to update offering")
	}
	return o, nil
}

// Delete removes an offering the actor owns.
func (s *OfferingService) Delete(ctx context.Context, actor models.Actor, id int64) error {
	if _, err := s.access.requireOwner(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "Offering not found")
		}
		return internalError(err, "failed to delete offering")
	}
	s.logger.Info("offering deleted", zap.Int64("offering_id", id), zap.Int64("actor_id", actor.ID))
	return nil
}

// AddPrereq links a prerequisite offering, refusing edges that would make
// a course depend on itself through the course graph.
func (s *OfferingService) AddPrereq(ctx context.Context, actor models.Actor, id int64, req models.AddPrereqRequest) (*models.OfferingDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid prerequisite payload")
	}
	o, err := s.access.requireOwner(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	prereq, err := s.repo.FindByID(ctx, req.PrereqOfferingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "prerequisite offering not found")
		}
		return nil, internalError(err, "failed to load prerequisite offering")
	}

	acyclic := func(edges []models.CourseEdge) error {
		if enrollment.NewPrereqGraph(edges).WouldCycle(o.CourseID, prereq.CourseID) {
			return appErrors.ErrPrereqCycle
		}
		return nil
	}
	if err := s.repo.AddPrereq(ctx, id, prereq.ID, acyclic); err != nil {
		if errors.Is(err, appErrors.ErrPrereqCycle) {
			return nil, appErrors.ErrPrereqCycle
		}
		return nil, internalError(err, "failed to add prerequisite")
	}
	return s.Get(ctx, id)
}

// RemovePrereq unlinks a prerequisite offering.
func (s *OfferingService) RemovePrereq(ctx context.Context, actor models.Actor, id, prereqID int64) error {
	if _, err := s.access.requireOwner(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repo.RemovePrereq(ctx, id, prereqID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "prerequisite not found")
		}
		return internalError(err, "failed to remove prerequisite")
	}
	return nil
}

// Classmates lists enrolled students to the owner, admins and members.
func (s *OfferingService) Classmates(ctx context.Context, actor models.Actor, id int64, search string) ([]models.Classmate, error) {
	if _, err := s.access.requireViewer(ctx, actor, id); err != nil {
		return nil, err
	}
	mates, err := s.repo.Classmates(ctx, id, search)
	if err != nil {
		return nil, internalError(err, "failed to list classmates")
	}
	if mates == nil {
		mates = []models.Classmate{}
	}
	return mates, nil
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
