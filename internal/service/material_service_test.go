package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kanvas-api/internal/models"
	appErrors "github.com/noah-isme/kanvas-api/pkg/errors"
)

type fakeMaterialRepo struct {
	items map[int64]*models.Material
}

func (f *fakeMaterialRepo) Create(ctx context.Context, m *models.Material) error {
	m.ID = int64(len(f.items) + 1)
	f.items[m.ID] = m
	return nil
}

func (f *fakeMaterialRepo) FindByID(ctx context.Context, id int64) (*models.Material, error) {
	m, ok := f.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return m, nil
}

func (f *fakeMaterialRepo) ListByOffering(ctx context.Context, offeringID int64) ([]models.Material, error) {
	var out []models.Material
	for _, m := range f.items {
		if m.OfferingID == offeringID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeMaterialRepo) Delete(ctx context.Context, id int64) error {
	delete(f.items, id)
	return nil
}

func TestMaterialsVisibleToMembersOnly(t *testing.T) {
	repo := &fakeMaterialRepo{items: map[int64]*models.Material{}}
	offerings := newFakeOfferingRepo(offeringOf(offeringID, 7))
	offerings.members[pairKey{offeringID, 1}] = true
	svc := NewMaterialService(repo, offerings, nil, nil)
	ctx := context.Background()

	m, err := svc.Create(ctx, owner, models.CreateMaterialRequest{OfferingID: offeringID, Title: "Syllabus", URL: "https://docs.example.edu/syllabus"})
	require.NoError(t, err)
	assert.Equal(t, teacherID, m.UploadedBy)

	_, err = svc.Create(ctx, student(1), models.CreateMaterialRequest{OfferingID: offeringID, Title: "x", URL: "https://x.example"})
	assertAppError(t, err, appErrors.ErrForbidden, "")

	list, err := svc.ListByOffering(ctx, student(1), offeringID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.ListByOffering(ctx, student(3), offeringID)
	assertAppError(t, err, appErrors.ErrForbidden, "Forbidden")

	assertAppError(t, svc.Delete(ctx, stranger, m.ID), appErrors.ErrForbidden, "")
	require.NoError(t, svc.Delete(ctx, owner, m.ID))
	assertAppError(t, svc.Delete(ctx, owner, m.ID), appErrors.ErrNotFound, "material not found")
}
