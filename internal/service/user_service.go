package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/kanvas-api/internal/models"
	appErrors "github.com/noah-isme/kanvas-api/pkg/errors"
)

type userRepository interface {
	FindByID(ctx context.Context, id int64) (*models.User, error)
	ListMajors(ctx context.Context, userID int64) ([]models.Major, error)
	ReplaceMajors(ctx context.Context, userID int64, codes []string) error
}

// UserService handles profile reads and major declarations.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

// Me returns the caller's profile.
func (s *UserService) Me(ctx context.Context, actor models.Actor) (*models.Profile, error) {
	return s.profile(ctx, actor.ID)
}

// Get returns any user's profile. Admin only.
func (s *UserService) Get(ctx context.Context, actor models.Actor, id int64) (*models.Profile, error) {
	if !actor.IsAdmin() && actor.ID != id {
		return nil, appErrors.ErrForbidden
	}
	return s.profile(ctx, id)
}

// UpdateMajors replaces a student's declared majors.
func (s *UserService) UpdateMajors(ctx context.Context, actor models.Actor, req models.UpdateMajorsRequest) (*models.Profile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid majors payload")
	}
	if !actor.IsStudent() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students declare majors")
	}
	codes := make([]string, 0, len(req.Majors))
	seen := make(map[string]struct{}, len(req.Majors))
	for _, c := range req.Majors {
		code := strings.ToUpper(strings.TrimSpace(c))
		if _, dup := seen[code]; dup || code == "" {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	if err := s.repo.ReplaceMajors(ctx, actor.ID, codes); err != nil {
		return nil, internalError(err, "failed to update majors")
	}
	s.logger.Info("majors updated", zap.Int64("user_id", actor.ID), zap.Strings("majors", codes))
	return s.profile(ctx, actor.ID)
}

func (s *UserService) profile(ctx context.Context, id int64) (*models.Profile, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, internalError(err, "failed to load user")
	}
	majors, err := s.repo.ListMajors(ctx, id)
	if err != nil {
		return nil, internalError(err, "failed to load majors")
	}
	if majors == nil {
		majors = []models.Major{}
	}
	return &models.Profile{User: *user, Majors: majors}, nil
}
