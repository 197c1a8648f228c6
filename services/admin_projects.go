package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/demohub/demohub-backend/database"
	"github.com/demohub/demohub-backend/errs"
	"github.com/demohub/demohub-backend/media"
	"github.com/demohub/demohub-backend/models"
)

type ContributorStore interface {
	FindAll(ctx context.Context) ([]models.Contributor, error)
}

// Field is one value of a partial update. Set reports whether the caller
// supplied it at all, a nil Value means it was supplied as null.
type Field[T any] struct {
	Set   bool
	Value *T
}

func Value[T any](v T) Field[T] {
	return Field[T]{Set: true, Value: &v}
}

func Null[T any]() Field[T] {
	return Field[T]{Set: true}
}

type CreateProjectInput struct {
	Name           string
	Description    string
	StartDate      *time.Time
	EndDate        *time.Time
	DemoURL        *string
	GithubURL      *string
	IsPublished    bool
	TechnologyIDs  []uuid.UUID
	ContributorIDs []uuid.UUID
	// Images were already uploaded to the media store, in display order.
	Images []media.Object
}

// Validate checks the required fields. Callers holding uploads run it before
// sending anything to the media store.
func (in CreateProjectInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Description) == "" || in.StartDate == nil {
		return errs.NewValidationError("Name, description, and start_date are required")
	}
	return nil
}

// UpdateProjectInput changes only the fields that are Set. A non-nil ID slice
// replaces the existing links, an empty one removes them all.
type UpdateProjectInput struct {
	Name           Field[string]
	Description    Field[string]
	StartDate      Field[time.Time]
	EndDate        Field[time.Time]
	DemoURL        Field[string]
	GithubURL      Field[string]
	IsPublished    Field[bool]
	TechnologyIDs  []uuid.UUID
	ContributorIDs []uuid.UUID
}

// AdminProjectService manages projects and their images for the admin.
type AdminProjectService struct {
	projects     ProjectStore
	images       ImageStore
	contributors ContributorStore
	media        media.Store
	logger       zerolog.Logger
}

func NewAdminProjectService(projects ProjectStore, images ImageStore, contributors ContributorStore, store media.Store) *AdminProjectService {
	return &AdminProjectService{
		projects:     projects,
		images:       images,
		contributors: contributors,
		media:        store,
		logger:       log.With().Str("service", "adminProjects").Logger(),
	}
}

// ListAll returns every project, drafts and deleted ones included.
func (s *AdminProjectService) ListAll(ctx context.Context) ([]models.ProjectView, error) {
	projects, err := s.projects.FindAll(ctx)
	if err != nil {
		return nil, errs.NewDatabaseError("find", "projects", err)
	}
	return models.Views(projects), nil
}

func (s *AdminProjectService) Contributors(ctx context.Context) ([]models.Contributor, error) {
	contributors, err := s.contributors.FindAll(ctx)
	if err != nil {
		return nil, errs.NewDatabaseError("find", "contributors", err)
	}
	return contributors, nil
}

// UploadImages stores every upload or none: when one fails the ones already
// stored are removed again.
func (s *AdminProjectService) UploadImages(ctx context.Context, uploads []media.Upload) ([]media.Object, error) {
	objects := make([]media.Object, 0, len(uploads))
	for _, u := range uploads {
		obj, err := s.media.Upload(ctx, u)
		if err != nil {
			s.discard(ctx, objects)
			return nil, uploadError(u, err)
		}
		objects = append(objects, *obj)
	}
	return objects, nil
}

// Create inserts the project with its links and images. The first image is
// the primary one. If the insert fails the images are removed from the media
// store.
func (s *AdminProjectService) Create(ctx context.Context, in CreateProjectInput) (*models.ProjectView, error) {
	if err := in.Validate(); err != nil {
		s.discard(ctx, in.Images)
		return nil, err
	}

	project := &models.Project{
		Name:        in.Name,
		Description: in.Description,
		StartDate:   *in.StartDate,
		EndDate:     in.EndDate,
		DemoURL:     nonEmpty(in.DemoURL),
		GithubURL:   nonEmpty(in.GithubURL),
		IsPublished: in.IsPublished,
	}
	for _, id := range dedupe(in.TechnologyIDs) {
		project.Technologies = append(project.Technologies, models.ProjectTechnology{TechnologyID: id})
	}
	for _, id := range dedupe(in.ContributorIDs) {
		project.Contributors = append(project.Contributors, models.ProjectContributor{ContributorID: id})
	}
	for i, obj := range in.Images {
		project.Images = append(project.Images, models.ProjectImage{
			ImageURL:     obj.URL,
			PublicID:     obj.PublicID,
			DisplayOrder: i,
			IsPrimary:    i == 0,
		})
	}

	if err := s.projects.Add(ctx, project); err != nil {
		s.discard(ctx, in.Images)
		return nil, errs.NewDatabaseError("create", "project", err)
	}

	s.logger.Info().Str("projectID", project.ID.String()).Int("images", len(in.Images)).Msg("project created")
	return s.reload(ctx, project.ID)
}

// Update applies the supplied fields. An empty update still bumps updatedAt.
func (s *AdminProjectService) Update(ctx context.Context, id uuid.UUID, in UpdateProjectInput) (*models.ProjectView, error) {
	columns := map[string]interface{}{}

	if in.Name.Set {
		if in.Name.Value == nil || strings.TrimSpace(*in.Name.Value) == "" {
			return nil, fieldRequired("name")
		}
		columns["name"] = *in.Name.Value
	}
	if in.Description.Set {
		if in.Description.Value == nil || strings.TrimSpace(*in.Description.Value) == "" {
			return nil, fieldRequired("description")
		}
		columns["description"] = *in.Description.Value
	}
	if in.StartDate.Set {
		if in.StartDate.Value == nil {
			return nil, fieldRequired("startDate")
		}
		columns["start_date"] = *in.StartDate.Value
	}
	if in.EndDate.Set {
		columns["end_date"] = in.EndDate.Value
	}
	if in.DemoURL.Set {
		columns["demo_url"] = nonEmpty(in.DemoURL.Value)
	}
	if in.GithubURL.Set {
		columns["github_url"] = nonEmpty(in.GithubURL.Value)
	}
	if in.IsPublished.Set && in.IsPublished.Value != nil {
		columns["is_published"] = *in.IsPublished.Value
	}

	changes := database.ProjectChanges{Columns: columns}
	if in.TechnologyIDs != nil {
		changes.TechnologyIDs = dedupe(in.TechnologyIDs)
	}
	if in.ContributorIDs != nil {
		changes.ContributorIDs = dedupe(in.ContributorIDs)
	}

	found, err := s.projects.Update(ctx, id, changes)
	if err != nil {
		return nil, errs.NewDatabaseError("update", "project", err)
	}
	if !found {
		return nil, errProjectMissing
	}
	return s.reload(ctx, id)
}

// Delete removes the project's images from the media store first and only
// then the project itself. If the media store fails nothing is deleted
// locally.
func (s *AdminProjectService) Delete(ctx context.Context, id uuid.UUID) error {
	project, err := s.projects.FindByID(ctx, id)
	if err != nil {
		return errs.NewDatabaseError("find", "project", err)
	}
	if project == nil {
		return errProjectMissing
	}

	publicIDs := make([]string, 0, len(project.Images))
	for _, image := range project.Images {
		publicIDs = append(publicIDs, image.PublicID)
	}
	if len(publicIDs) > 0 {
		if err := s.media.DeleteMany(ctx, publicIDs); err != nil {
			return errs.NewMediaStoreError("delete project images", err)
		}
	}

	if err := s.projects.Delete(ctx, id); err != nil {
		return errs.NewDatabaseError("delete", "project", err)
	}
	s.logger.Info().Str("projectID", id.String()).Int("images", len(publicIDs)).Msg("project deleted")
	return nil
}

// UploadImage stores one upload and appends it to the project's images.
func (s *AdminProjectService) UploadImage(ctx context.Context, projectID uuid.UUID, u media.Upload) (*models.ProjectImage, error) {
	if err := s.requireProject(ctx, projectID); err != nil {
		return nil, err
	}
	objects, err := s.UploadImages(ctx, []media.Upload{u})
	if err != nil {
		return nil, err
	}
	image, err := s.addImage(ctx, projectID, objects[0])
	if err != nil {
		s.discard(ctx, objects)
		return nil, err
	}
	return image, nil
}

// AddImage appends an already stored image after the project's last one.
func (s *AdminProjectService) AddImage(ctx context.Context, projectID uuid.UUID, obj media.Object) (*models.ProjectImage, error) {
	if err := s.requireProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.addImage(ctx, projectID, obj)
}

func (s *AdminProjectService) addImage(ctx context.Context, projectID uuid.UUID, obj media.Object) (*models.ProjectImage, error) {
	order, err := s.images.NextDisplayOrder(ctx, projectID)
	if err != nil {
		return nil, errs.NewDatabaseError("find", "project images", err)
	}

	image := &models.ProjectImage{
		ProjectID:    projectID,
		ImageURL:     obj.URL,
		PublicID:     obj.PublicID,
		DisplayOrder: order,
	}
	if err := s.images.Add(ctx, image); err != nil {
		return nil, errs.NewDatabaseError("create", "project image", err)
	}
	return image, nil
}

// DeleteImage removes the image from the media store, then its row. The row
// stays when the media store fails.
func (s *AdminProjectService) DeleteImage(ctx context.Context, imageID uuid.UUID) error {
	image, err := s.images.FindByID(ctx, imageID)
	if err != nil {
		return errs.NewDatabaseError("find", "project image", err)
	}
	if image == nil {
		return ErrImageNotFound
	}

	if err := s.media.Delete(ctx, image.PublicID); err != nil {
		return errs.NewMediaStoreError("delete image", err)
	}
	if err := s.images.Delete(ctx, imageID); err != nil {
		return errs.NewDatabaseError("delete", "project image", err)
	}
	return nil
}

// ReorderImages sets the display order of the listed images. Ids of images
// that belong to another project are ignored.
func (s *AdminProjectService) ReorderImages(ctx context.Context, projectID uuid.UUID, orders []models.ImageOrder) ([]models.ProjectImage, error) {
	if err := s.images.Reorder(ctx, projectID, orders); err != nil {
		return nil, errs.NewDatabaseError("update", "project images", err)
	}
	images, err := s.images.FindByProject(ctx, projectID)
	if err != nil {
		return nil, errs.NewDatabaseError("find", "project images", err)
	}
	return images, nil
}

func (s *AdminProjectService) requireProject(ctx context.Context, id uuid.UUID) error {
	project, err := s.projects.FindByID(ctx, id)
	if err != nil {
		return errs.NewDatabaseError("find", "project", err)
	}
	if project == nil {
		return errProjectMissing
	}
	return nil
}

func (s *AdminProjectService) reload(ctx context.Context, id uuid.UUID) (*models.ProjectView, error) {
	project, err := s.projects.FindByID(ctx, id)
	if err != nil {
		return nil, errs.NewDatabaseError("find", "project", err)
	}
	if project == nil {
		return nil, errProjectMissing
	}
	view := project.View()
	return &view, nil
}

// discard removes freshly uploaded objects that will not be referenced.
// Failures only leave orphans behind, so they are logged.
func (s *AdminProjectService) discard(ctx context.Context, objects []media.Object) {
	if len(objects) == 0 {
		return
	}
	ids := make([]string, 0, len(objects))
	for _, obj := range objects {
		ids = append(ids, obj.PublicID)
	}
	if err := s.media.DeleteMany(context.WithoutCancel(ctx), ids); err != nil {
		s.logger.Warn().Err(err).Strs("publicIDs", ids).Msg("failed to remove orphaned images")
	}
}

func uploadError(u media.Upload, err error) error {
	if errors.Is(err, media.ErrUnsupportedType) || errors.Is(err, media.ErrTooLarge) || errors.Is(err, media.ErrEmpty) {
		return errs.NewInvalidFileError(u.Filename, err.Error())
	}
	return errs.NewMediaStoreError("upload image", err)
}

func fieldRequired(field string) error {
	e := errs.NewValidationError(field + " cannot be empty")
	e.Field = field
	return e
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return nil
	}
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
