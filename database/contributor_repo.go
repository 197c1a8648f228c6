package database

import (
	"context"

	"gorm.io/gorm"

	"github.com/demohub/demohub-backend/models"
)

type ContributorRepo struct {
	db *gorm.DB
}

func NewContributorRepo(db *gorm.DB) *ContributorRepo {
	return &ContributorRepo{db}
}

func (r *ContributorRepo) FindAll(ctx context.Context) ([]models.Contributor, error) {
	contributors := []models.Contributor{}
	err := r.db.WithContext(ctx).Order("name ASC").Find(&contributors).Error
	return contributors, err
}

// EnsureByName returns the contributor with the given name, creating it when
// missing.
func (r *ContributorRepo) EnsureByName(ctx context.Context, contributor *models.Contributor) error {
	return r.db.WithContext(ctx).
		Where(models.Contributor{Name: contributor.Name}).
		Attrs(models.Contributor{Email: contributor.Email}).
		FirstOrCreate(contributor).Error
}
