package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/noah-isme/kanvas-api/internal/models"
	appErrors "github.com/noah-isme/kanvas-api/pkg/errors"
)

type offeringReader interface {
	FindByID(ctx context.Context, id int64) (*models.Offering, error)
	IsMember(ctx context.Context, offeringID, studentID int64) (bool, error)
}

// offeringAccess answers the ownership and visibility questions every
// offering scoped service asks.
type offeringAccess struct {
	offerings offeringReader
}

func (a offeringAccess) load(ctx context.Context, id int64) (*models.Offering, error) {
	o, err := a.offerings.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Offering not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load offering")
	}
	return o, nil
}

// requireOwner loads the offering and checks actor is its teacher or an admin.
func (a offeringAccess) requireOwner(ctx context.Context, actor models.Actor, id int64) (*models.Offering, error) {
	o, err := a.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(o.TeacherID) {
		return nil, appErrors.ErrForbidden
	}
	return o, nil
}

// requireViewer admits the owner, admins and enrolled or completed students.
func (a offeringAccess) requireViewer(ctx context.Context, actor models.Actor, id int64) (*models.Offering, error) {
	o, err := a.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Owns(o.TeacherID) {
		return o, nil
	}
	if actor.IsStudent() {
		member, err := a.offerings.IsMember(ctx, id, actor.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check membership")
		}
		if member {
			return o, nil
		}
	}
	return nil, appErrors.ErrForbidden
}

func internalError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func validationError(err error, message string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
}
