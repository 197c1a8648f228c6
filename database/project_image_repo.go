package database

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/demohub/demohub-backend/models"
)

type ProjectImageRepo struct {
	db *gorm.DB
}

func NewProjectImageRepo(db *gorm.DB) *ProjectImageRepo {
	return &ProjectImageRepo{db}
}

// FindByID returns nil when no image has the id.
func (r *ProjectImageRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.ProjectImage, error) {
	var image models.ProjectImage
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&image).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &image, nil
}

// FindByProject returns a project's images by display order.
func (r *ProjectImageRepo) FindByProject(ctx context.Context, projectID uuid.UUID) ([]models.ProjectImage, error) {
	images := []models.ProjectImage{}
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("display_order ASC").
		Order("created_at ASC").
		Find(&images).Error
	return images, err
}

// NextDisplayOrder is one past the highest display order of the project's
// images, or 0 when it has none.
func (r *ProjectImageRepo) NextDisplayOrder(ctx context.Context, projectID uuid.UUID) (int, error) {
	var top []models.ProjectImage
	err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("display_order DESC").
		Limit(1).
		Find(&top).Error
	if err != nil {
		return 0, err
	}
	if len(top) == 0 {
		return 0, nil
	}
	return top[0].DisplayOrder + 1, nil
}

func (r *ProjectImageRepo) Add(ctx context.Context, image *models.ProjectImage) error {
	return r.db.WithContext(ctx).Create(image).Error
}

func (r *ProjectImageRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ProjectImage{}).Error
}

// Reorder writes every display order in one transaction. Each update is
// scoped to the project, so ids belonging elsewhere change nothing.
func (r *ProjectImageRepo) Reorder(ctx context.Context, projectID uuid.UUID, orders []models.ImageOrder) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, order := range orders {
			err := tx.Model(&models.ProjectImage{}).
				Where("id = ? AND project_id = ?", order.ID, projectID).
				Update("display_order", order.DisplayOrder).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}
