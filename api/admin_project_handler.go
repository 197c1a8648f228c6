package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/demohub/demohub-backend/errs"
	"github.com/demohub/demohub-backend/models"
	"github.com/demohub/demohub-backend/services"
)

// Body keys, camelCase first. Multipart clients send list fields with a
// "[]" suffix.
var (
	startDateKeys     = []string{"startDate", "start_date"}
	endDateKeys       = []string{"endDate", "end_date"}
	demoURLKeys       = []string{"demoUrl", "demo_url"}
	githubURLKeys     = []string{"githubUrl", "github_url"}
	isPublishedKeys   = []string{"isPublished", "is_published"}
	technologyIDsKeys = []string{"technologyIds", "technologyIds[]", "technology_ids", "technologies"}
	contributorIDKeys = []string{"contributorIds", "contributorIds[]", "contributor_ids", "contributors"}
)

type adminProjectHandler struct {
	responder Responder
	logger    zerolog.Logger
	projects  *services.AdminProjectService
}

func newAdminProjectHandler(projects *services.AdminProjectService, production bool) adminProjectHandler {
	logger := log.With().Str("handlerName", "adminProjectHandler").Logger()

	return adminProjectHandler{
		responder: NewResponder(logger, production),
		logger:    logger,
		projects:  projects,
	}
}

func field[T any](v *T, present bool) services.Field[T] {
	if !present {
		return services.Field[T]{}
	}
	return services.Field[T]{Set: true, Value: v}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// listProjects returns every project including drafts
// @Summary List all projects
// @Tags Admin Projects
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.ProjectView
// @Router /api/admin/projects [get]
func (h adminProjectHandler) listProjects() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projects, err := h.projects.ListAll(r.Context())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteData(w, http.StatusOK, projects, "")
	}
}

// createProject creates a project from JSON or a multipart form with images
// @Summary Create project
// @Tags Admin Projects
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param images formData file false "Up to 10 images"
// @Success 201 {object} models.ProjectView
// @Failure 400 {object} errorBody "VALIDATION_ERROR, INVALID_DATE or INVALID_FILE"
// @Router /api/admin/projects [post]
func (h adminProjectHandler) createProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := parseInput(w, r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		input, err := h.createInput(in)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if err := input.Validate(); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		uploads, closeUploads, err := in.uploads("images", "images[]")
		defer closeUploads()
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		if len(uploads) > 0 {
			input.Images, err = h.projects.UploadImages(r.Context(), uploads)
			if err != nil {
				h.responder.WriteError(w, err)
				return
			}
		}

		project, err := h.projects.Create(r.Context(), input)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteData(w, http.StatusCreated, project, "Project created successfully")
	}
}

func (h adminProjectHandler) createInput(in *formInput) (services.CreateProjectInput, error) {
	var input services.CreateProjectInput

	name, _, err := in.str("name")
	if err != nil {
		return input, err
	}
	description, _, err := in.str("description")
	if err != nil {
		return input, err
	}
	if input.StartDate, _, err = in.date(startDateKeys...); err != nil {
		return input, err
	}
	if input.EndDate, _, err = in.date(endDateKeys...); err != nil {
		return input, err
	}
	if input.DemoURL, _, err = in.str(demoURLKeys...); err != nil {
		return input, err
	}
	if input.GithubURL, _, err = in.str(githubURLKeys...); err != nil {
		return input, err
	}
	published, _, err := in.boolean(isPublishedKeys...)
	if err != nil {
		return input, err
	}
	if input.TechnologyIDs, _, err = in.ids(technologyIDsKeys...); err != nil {
		return input, err
	}
	if input.ContributorIDs, _, err = in.ids(contributorIDKeys...); err != nil {
		return input, err
	}

	input.Name = deref(name)
	input.Description = deref(description)
	input.IsPublished = published != nil && *published
	return input, nil
}

// updateProject changes the supplied fields of a project
// @Summary Update project
// @Description Fields left out are unchanged. endDate, demoUrl and githubUrl sent as null clear the value. A technologyIds list replaces the current links.
// @Tags Admin Projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Project ID" format(uuid)
// @Success 200 {object} models.ProjectView
// @Failure 400 {object} errorBody "INVALID_ID, INVALID_DATE or VALIDATION_ERROR"
// @Failure 404 {object} errorBody "NOT_FOUND"
// @Router /api/admin/projects/{id} [put]
func (h adminProjectHandler) updateProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		in, err := parseInput(w, r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		input, err := h.updateInput(in)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		project, err := h.projects.Update(r.Context(), id, input)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteData(w, http.StatusOK, project, "Project updated successfully")
	}
}

func (h adminProjectHandler) updateInput(in *formInput) (services.UpdateProjectInput, error) {
	var input services.UpdateProjectInput

	name, present, err := in.str("name")
	if err != nil {
		return input, err
	}
	input.Name = field(name, present)

	description, present, err := in.str("description")
	if err != nil {
		return input, err
	}
	input.Description = field(description, present)

	startDate, present, err := in.date(startDateKeys...)
	if err != nil {
		return input, err
	}
	input.StartDate = field(startDate, present)

	endDate, present, err := in.date(endDateKeys...)
	if err != nil {
		return input, err
	}
	input.EndDate = field(endDate, present)

	demoURL, present, err := in.str(demoURLKeys...)
	if err != nil {
		return input, err
	}
	input.DemoURL = field(demoURL, present)

	githubURL, present, err := in.str(githubURLKeys...)
	if err != nil {
		return input, err
	}
	input.GithubURL = field(githubURL, present)

	published, present, err := in.boolean(isPublishedKeys...)
	if err != nil {
		return input, err
	}
	input.IsPublished = field(published, present)

	if input.TechnologyIDs, _, err = in.ids(technologyIDsKeys...); err != nil {
		return input, err
	}
	if input.ContributorIDs, _, err = in.ids(contributorIDKeys...); err != nil {
		return input, err
	}
	return input, nil
}

// deleteProject removes a project and its images
// @Summary Delete project
// @Description Images are removed from the media store first. If that fails the project is kept.
// @Tags Admin Projects
// @Produce json
// @Security BearerAuth
// @Param id path string true "Project ID" format(uuid)
// @Success 200 {object} envelope
// @Failure 404 {object} errorBody "NOT_FOUND"
// @Failure 502 {object} errorBody "MEDIA_STORE_ERROR"
// @Router /api/admin/projects/{id} [delete]
func (h adminProjectHandler) deleteProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		if err := h.projects.Delete(r.Context(), id); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteMessage(w, "Project deleted successfully")
	}
}

// uploadImage appends one image to a project
// @Summary Upload project image
// @Tags Admin Projects
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param id path string true "Project ID" format(uuid)
// @Param image formData file true "Image"
// @Success 201 {object} models.ProjectImage
// @Failure 400 {object} errorBody "NO_FILE or INVALID_FILE"
// @Router /api/admin/projects/{id}/images [post]
func (h adminProjectHandler) uploadImage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		in, err := parseInput(w, r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		uploads, closeUploads, err := in.uploads("image")
		defer closeUploads()
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if len(uploads) == 0 {
			h.responder.WriteError(w, errs.NoFile)
			return
		}

		image, err := h.projects.UploadImage(r.Context(), id, uploads[0])
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteData(w, http.StatusCreated, image, "Image uploaded successfully")
	}
}

// deleteImage removes one image. The image is looked up by its own id.
// @Summary Delete project image
// @Tags Admin Projects
// @Produce json
// @Security BearerAuth
// @Param id path string true "Project ID" format(uuid)
// @Param imageId path string true "Image ID" format(uuid)
// @Success 200 {object} envelope
// @Failure 404 {object} errorBody "NOT_FOUND"
// @Router /api/admin/projects/{id}/images/{imageId} [delete]
func (h adminProjectHandler) deleteImage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := pathID(r, "id"); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		imageID, err := pathID(r, "imageId")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		if err := h.projects.DeleteImage(r.Context(), imageID); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteMessage(w, "Image deleted successfully")
	}
}

type imageOrderRequest struct {
	ID                string `json:"id"`
	DisplayOrder      *int   `json:"display_order"`
	DisplayOrderCamel *int   `json:"displayOrder"`
}

// parseImageOrders reads {"imageOrders": [{"id", "display_order"}]}.
func parseImageOrders(in *formInput) ([]models.ImageOrder, error) {
	raw, ok := in.json["imageOrders"]
	if !ok || isNull(raw) {
		return nil, errs.InvalidImageOrders
	}

	var items []imageOrderRequest
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errs.InvalidImageOrders.WithCause(err)
	}

	orders := make([]models.ImageOrder, 0, len(items))
	for _, item := range items {
		id, err := uuid.Parse(item.ID)
		if err != nil {
			return nil, errs.InvalidImageOrders.WithDetails("invalid image id " + item.ID)
		}
		order := item.DisplayOrder
		if order == nil {
			order = item.DisplayOrderCamel
		}
		if order == nil {
			return nil, errs.InvalidImageOrders.WithDetails("missing display_order for image " + item.ID)
		}
		orders = append(orders, models.ImageOrder{ID: id, DisplayOrder: *order})
	}
	return orders, nil
}

// reorderImages sets the display order of a project's images
// @Summary Reorder project images
// @Tags Admin Projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Project ID" format(uuid)
// @Success 200 {array} models.ProjectImage
// @Failure 400 {object} errorBody "INVALID_DATA"
// @Router /api/admin/projects/{id}/images/reorder [put]
func (h adminProjectHandler) reorderImages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		in, err := parseInput(w, r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		orders, err := parseImageOrders(in)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		images, err := h.projects.ReorderImages(r.Context(), id, orders)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteData(w, http.StatusOK, images, "Images reordered successfully")
	}
}

// @Summary List contributors
// @Tags Admin Projects
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Contributor
// @Router /api/admin/contributors [get]
func (h adminProjectHandler) listContributors() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		contributors, err := h.projects.Contributors(r.Context())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteData(w, http.StatusOK, contributors, "")
	}
}
