package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/kanvas-api/internal/models"
	appErrors "github.com/noah-isme/kanvas-api/pkg/errors"
)

type materialRepository interface {
	Create(ctx context.Context, m *models.Material) error
	FindByID(ctx context.Context, id int64) (*models.Material, error)
	ListByOffering(ctx context.Context, offeringID int64) ([]models.Material, error)
	Delete(ctx context.Context, id int64) error
}

// MaterialService shares links with an offering's members.
type MaterialService struct {
	repo      materialRepository
	access    offeringAccess
	validator *validator.Validate
	logger    *zap.Logger
}

func NewMaterialService(repo materialRepository, offerings offeringReader, validate *validator.Validate, logger *zap.Logger) *MaterialService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MaterialService{repo: repo, access: offeringAccess{offerings: offerings}, validator: validate, logger: logger}
}

func (s *MaterialService) Create(ctx context.Context, actor models.Actor, req models.CreateMaterialRequest) (*models.Material, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid material payload")
	}
	if _, err := s.access.requireOwner(ctx, actor, req.OfferingID); err != nil {
		return nil, err
	}
	m := &models.Material{OfferingID: req.OfferingID, Title: req.Title, URL: req.URL, UploadedBy: actor.ID}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, internalError(err, "failed to create material")
	}
	return m, nil
}

// ListByOffering is visible to the owner, admins and members.
func (s *MaterialService) ListByOffering(ctx context.Context, actor models.Actor, offeringID int64) ([]models.Material, error) {
	if _, err := s.access.requireViewer(ctx, actor, offeringID); err != nil {
		return nil, err
	}
	list, err := s.repo.ListByOffering(ctx, offeringID)
	if err != nil {
		return nil, internalError(err, "failed to list materials")
	}
	if list == nil {
		list = []models.Material{}
	}
	return list, nil
}

func (s *MaterialService) Delete(ctx context.Context, actor models.Actor, id int64) error {
	m, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "material not found")
		}
		return internalError(err, "failed to load material")
	}
	if _, err := s.access.requireOwner(ctx, actor, m.OfferingID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "material not found")
		}
		return internalError(err, "failed to delete material")
	}
	return nil
}
