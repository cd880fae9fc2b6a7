package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/kanvas-api/internal/models"
	appErrors "github.com/noah-isme/kanvas-api/pkg/errors"
)

type termRepository interface {
	List(ctx context.Context) ([]models.Term, error)
	FindCurrent(ctx context.Context, day time.Time) (*models.Term, error)
	FindNext(ctx context.Context, day time.Time) (*models.Term, error)
}

// TermService exposes academic terms relative to today.
type TermService struct {
	repo   termRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewTermService creates a new term service instance.
func NewTermService(repo termRepository, logger *zap.Logger) *TermService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TermService{repo: repo, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// List returns all terms, newest first.
func (s *TermService) List(ctx context.Context) ([]models.Term, error) {
	terms, err := s.repo.List(ctx)
	if err != nil {
		return nil, internalError(err, "failed to list terms")
	}
	if terms == nil {
		terms = []models.Term{}
	}
	return terms, nil
}

// Current returns the term containing today.
func (s *TermService) Current(ctx context.Context) (*models.Term, error) {
	return s.find(ctx, s.repo.FindCurrent, "no current term")
}

// Next returns the first term starting after today.
func (s *TermService) Next(ctx context.Context) (*models.Term, error) {
	return s.find(ctx, s.repo.FindNext, "no upcoming term")
}

func (s *TermService) find(ctx context.Context, lookup func(context.Context, time.Time) (*models.Term, error), missing string) (*models.Term, error) {
	term, err := lookup(ctx, s.now())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, missing)
		}
		return nil, internalError(err, "failed to load term")
	}
	return term, nil
}
