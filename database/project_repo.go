package database

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/demohub/demohub-backend/models"
)

type ProjectRepo struct {
	db *gorm.DB
}

func NewProjectRepo(db *gorm.DB) *ProjectRepo {
	return &ProjectRepo{db}
}

// ProjectFilter narrows a project listing.
type ProjectFilter struct {
	PublicOnly     bool
	TechnologySlug string
}

// ProjectChanges holds the columns an update writes. Nil association slices
// leave the existing links alone; a non-nil slice replaces them all.
type ProjectChanges struct {
	Columns        map[string]interface{}
	TechnologyIDs  []uuid.UUID
	ContributorIDs []uuid.UUID
}

// ProjectStats counts projects that are not soft deleted.
type ProjectStats struct {
	TotalPublished int64 `json:"totalPublished"`
	TotalDraft     int64 `json:"totalDraft"`
	Total          int64 `json:"total"`
}

func withRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Technologies.Technology").
		Preload("Contributors.Contributor").
		Preload("Images", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC").Order("created_at ASC")
		})
}

func publicOnly(db *gorm.DB) *gorm.DB {
	return db.Where("projects.is_published = ? AND projects.deleted_at IS NULL", true)
}

func (r *ProjectRepo) filtered(ctx context.Context, filter ProjectFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Project{})
	if filter.PublicOnly {
		q = q.Scopes(publicOnly)
	}
	if filter.TechnologySlug != "" {
		sub := r.db.Table("project_technologies").
			Select("project_technologies.project_id").
			Joins("JOIN technologies ON technologies.id = project_technologies.technology_id").
			Where("technologies.slug = ?", filter.TechnologySlug)
		q = q.Where("projects.id IN (?)", sub)
	}
	return q
}

// FindPage returns one page of projects, newest first, with the total number
// of matching rows.
func (r *ProjectRepo) FindPage(ctx context.Context, filter ProjectFilter, offset, limit int) ([]models.Project, int64, error) {
	var total int64
	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var projects []models.Project
	err := r.filtered(ctx, filter).
		Scopes(withRelations).
		Order("projects.created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&projects).Error
	if err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}

// FindAll returns every project regardless of state, newest first.
func (r *ProjectRepo) FindAll(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	err := r.db.WithContext(ctx).
		Scopes(withRelations).
		Order("projects.created_at DESC").
		Find(&projects).Error
	return projects, err
}

// FindByID returns nil when no project has the id.
func (r *ProjectRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	return r.first(r.db.WithContext(ctx).Scopes(withRelations), id)
}

// FindPublicByID returns nil when the project is missing, unpublished or
// soft deleted.
func (r *ProjectRepo) FindPublicByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	return r.first(r.db.WithContext(ctx).Scopes(withRelations, publicOnly), id)
}

func (r *ProjectRepo) first(q *gorm.DB, id uuid.UUID) (*models.Project, error) {
	var project models.Project
	err := q.Where("projects.id = ?", id).First(&project).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// Add inserts the project together with its join rows and images.
func (r *ProjectRepo) Add(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		technologies := project.Technologies
		contributors := project.Contributors
		images := project.Images

		err := tx.Omit("Technologies", "Contributors", "Images").Create(project).Error
		if err != nil {
			return err
		}

		for i := range technologies {
			technologies[i].ProjectID = project.ID
		}
		for i := range contributors {
			contributors[i].ProjectID = project.ID
		}
		for i := range images {
			images[i].ProjectID = project.ID
		}

		if len(technologies) > 0 {
			if err := tx.Omit("Technology").Create(&technologies).Error; err != nil {
				return err
			}
		}
		if len(contributors) > 0 {
			if err := tx.Omit("Contributor").Create(&contributors).Error; err != nil {
				return err
			}
		}
		if len(images) > 0 {
			if err := tx.Create(&images).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Update applies changes to an existing project in one transaction. It
// returns false when the project does not exist.
func (r *ProjectRepo) Update(ctx context.Context, id uuid.UUID, changes ProjectChanges) (bool, error) {
	found := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Project{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return nil
		}
		found = true

		columns := make(map[string]interface{}, len(changes.Columns)+1)
		for k, v := range changes.Columns {
			columns[k] = v
		}
		columns["updated_at"] = time.Now()
		if err := tx.Model(&models.Project{}).Where("id = ?", id).Updates(columns).Error; err != nil {
			return err
		}

		if changes.TechnologyIDs != nil {
			if err := tx.Where("project_id = ?", id).Delete(&models.ProjectTechnology{}).Error; err != nil {
				return err
			}
			if len(changes.TechnologyIDs) > 0 {
				rows := make([]models.ProjectTechnology, 0, len(changes.TechnologyIDs))
				for _, techID := range changes.TechnologyIDs {
					rows = append(rows, models.ProjectTechnology{ProjectID: id, TechnologyID: techID})
				}
				if err := tx.Omit("Technology").Create(&rows).Error; err != nil {
					return err
				}
			}
		}

		if changes.ContributorIDs != nil {
			if err := tx.Where("project_id = ?", id).Delete(&models.ProjectContributor{}).Error; err != nil {
				return err
			}
			if len(changes.ContributorIDs) > 0 {
				rows := make([]models.ProjectContributor, 0, len(changes.ContributorIDs))
				for _, contributorID := range changes.ContributorIDs {
					rows = append(rows, models.ProjectContributor{ProjectID: id, ContributorID: contributorID})
				}
				if err := tx.Omit("Contributor").Create(&rows).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	return found, err
}

// Delete removes the project row and everything hanging off it.
func (r *ProjectRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&models.ProjectImage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.ProjectTechnology{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.ProjectContributor{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Project{}).Error
	})
}

func (r *ProjectRepo) Stats(ctx context.Context) (ProjectStats, error) {
	count := func(published bool, dest *int64) error {
		return r.db.WithContext(ctx).
			Model(&models.Project{}).
			Where("deleted_at IS NULL AND is_published = ?", published).
			Count(dest).Error
	}

	var stats ProjectStats
	if err := count(true, &stats.TotalPublished); err != nil {
		return stats, err
	}
	if err := count(false, &stats.TotalDraft); err != nil {
		return stats, err
	}
	stats.Total = stats.TotalPublished + stats.TotalDraft
	return stats, nil
}
