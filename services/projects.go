package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/demohub/demohub-backend/database"
	"github.com/demohub/demohub-backend/errs"
	"github.com/demohub/demohub-backend/models"
)

const (
	DefaultPage  = 1
	DefaultLimit = 8
	MaxLimit     = 100
)

// ListParams selects one page of the public listing. Technology is an
// optional technology slug.
type ListParams struct {
	Page       int
	Limit      int
	Technology string
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

func NewPagination(page, limit int, total int64) Pagination {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

type ProjectPage struct {
	Projects   []models.ProjectView
	Pagination Pagination
}

// ProjectService serves the public gallery.
type ProjectService struct {
	projects ProjectStore
}

func NewProjectService(projects ProjectStore) *ProjectService {
	return &ProjectService{projects: projects}
}

// ListPublic returns published, not deleted projects, newest first. Out of
// range paging values fall back to the defaults or the limit cap.
func (s *ProjectService) ListPublic(ctx context.Context, params ListParams) (*ProjectPage, error) {
	page, limit := params.Page, params.Limit
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	filter := database.ProjectFilter{PublicOnly: true, TechnologySlug: params.Technology}
	projects, total, err := s.projects.FindPage(ctx, filter, (page-1)*limit, limit)
	if err != nil {
		return nil, errs.NewDatabaseError("find", "projects", err)
	}

	return &ProjectPage{
		Projects:   models.Views(projects),
		Pagination: NewPagination(page, limit, total),
	}, nil
}

func (s *ProjectService) GetPublicByID(ctx context.Context, id uuid.UUID) (*models.ProjectView, error) {
	project, err := s.projects.FindPublicByID(ctx, id)
	if err != nil {
		return nil, errs.NewDatabaseError("find", "project", err)
	}
	if project == nil {
		return nil, ErrProjectNotFound
	}
	view := project.View()
	return &view, nil
}

func (s *ProjectService) Stats(ctx context.Context) (*database.ProjectStats, error) {
	stats, err := s.projects.Stats(ctx)
	if err != nil {
		return nil, errs.NewDatabaseError("count", "projects", err)
	}
	return &stats, nil
}

type TechnologyService struct {
	technologies TechnologyStore
}

func NewTechnologyService(technologies TechnologyStore) *TechnologyService {
	return &TechnologyService{technologies: technologies}
}

// List returns every technology by name.
func (s *TechnologyService) List(ctx context.Context) ([]models.Technology, error) {
	technologies, err := s.technologies.FindAll(ctx)
	if err != nil {
		return nil, errs.NewDatabaseError("find", "technologies", err)
	}
	return technologies, nil
}

func (s *TechnologyService) GetBySlug(ctx context.Context, slug string) (*models.Technology, error) {
	technology, err := s.technologies.FindBySlug(ctx, slug)
	if err != nil {
		return nil, errs.NewDatabaseError("find", "technology", err)
	}
	if technology == nil {
		return nil, ErrTechnologyNotFound
	}
	return technology, nil
}

// ListWithCounts adds the number of projects using each technology.
func (s *TechnologyService) ListWithCounts(ctx context.Context) ([]models.TechnologyCount, error) {
	counts, err := s.technologies.FindAllWithCounts(ctx)
	if err != nil {
		return nil, errs.NewDatabaseError("count", "technologies", err)
	}
	return counts, nil
}
