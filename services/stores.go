package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/demohub/demohub-backend/database"
	"github.com/demohub/demohub-backend/errs"
	"github.com/demohub/demohub-backend/models"
)

// The store interfaces are satisfied by the repositories in package database.

type AdminStore interface {
	FindByEmail(ctx context.Context, email string) (*models.Admin, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Admin, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type ProjectStore interface {
	FindPage(ctx context.Context, filter database.ProjectFilter, offset, limit int) ([]models.Project, int64, error)
	FindAll(ctx context.Context) ([]models.Project, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	FindPublicByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	Add(ctx context.Context, project *models.Project) error
	Update(ctx context.Context, id uuid.UUID, changes database.ProjectChanges) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context) (database.ProjectStats, error)
}

type ImageStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.ProjectImage, error)
	FindByProject(ctx context.Context, projectID uuid.UUID) ([]models.ProjectImage, error)
	NextDisplayOrder(ctx context.Context, projectID uuid.UUID) (int, error)
	Add(ctx context.Context, image *models.ProjectImage) error
	Delete(ctx context.Context, id uuid.UUID) error
	Reorder(ctx context.Context, projectID uuid.UUID, orders []models.ImageOrder) error
}

type TechnologyStore interface {
	FindAll(ctx context.Context) ([]models.Technology, error)
	FindBySlug(ctx context.Context, slug string) (*models.Technology, error)
	FindAllWithCounts(ctx context.Context) ([]models.TechnologyCount, error)
}

var (
	ErrInvalidCredentials = errs.NewUnauthorizedError(errs.CodeInvalidCredentials, "Invalid email or password")
	ErrAdminNotFound      = errs.NewNotFoundError(errs.CodeAdminNotFound, "Admin not found")
	ErrProjectNotFound    = errs.NewNotFoundError(errs.CodeProjectNotFound, "Project not found")
	ErrImageNotFound      = errs.NewNotFoundError(errs.CodeNotFound, "Image not found")
	ErrTechnologyNotFound = errs.NewNotFoundError(errs.CodeTechnologyNotFound, "Technology not found")
)

// errProjectMissing is what admin operations report for an unknown project.
// It still matches ErrProjectNotFound with errors.Is.
var errProjectMissing = errs.NewNotFoundError(errs.CodeNotFound, "Project not found").WithCause(ErrProjectNotFound)
