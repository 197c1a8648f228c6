package database

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/demohub/demohub-backend/models"
)

type TechnologyRepo struct {
	db *gorm.DB
}

func NewTechnologyRepo(db *gorm.DB) *TechnologyRepo {
	return &TechnologyRepo{db}
}

// FindAll returns all technologies by name.
func (r *TechnologyRepo) FindAll(ctx context.Context) ([]models.Technology, error) {
	technologies := []models.Technology{}
	err := r.db.WithContext(ctx).Order("name ASC").Find(&technologies).Error
	return technologies, err
}

// FindBySlug returns nil when the slug is unknown.
func (r *TechnologyRepo) FindBySlug(ctx context.Context, slug string) (*models.Technology, error) {
	var technology models.Technology
	err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&technology).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &technology, nil
}

// FindAllWithCounts returns every technology with the number of projects
// linked to it, by name.
func (r *TechnologyRepo) FindAllWithCounts(ctx context.Context) ([]models.TechnologyCount, error) {
	counts := []models.TechnologyCount{}
	err := r.db.WithContext(ctx).
		Model(&models.Technology{}).
		Select("technologies.id, technologies.name, technologies.slug, COUNT(project_technologies.project_id) AS project_count").
		Joins("LEFT JOIN project_technologies ON project_technologies.technology_id = technologies.id").
		Group("technologies.id, technologies.name, technologies.slug").
		Order("technologies.name ASC").
		Scan(&counts).Error
	return counts, err
}

// Ensure inserts the technology unless its slug already exists.
func (r *TechnologyRepo) Ensure(ctx context.Context, technology *models.Technology) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "slug"}}, DoNothing: true}).
		Create(technology).Error
}
