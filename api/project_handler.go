package api

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/demohub/demohub-backend/errs"
	"github.com/demohub/demohub-backend/services"
)

type projectHandler struct {
	responder Responder
	logger    zerolog.Logger
	projects  *services.ProjectService
}

func newProjectHandler(projects *services.ProjectService, production bool) projectHandler {
	logger := log.With().Str("handlerName", "projectHandler").Logger()

	return projectHandler{
		responder: NewResponder(logger, production),
		logger:    logger,
		projects:  projects,
	}
}

// parseListParams reads page, limit and technology from the query string.
// Absent values take the defaults, anything present must be in bounds.
func parseListParams(r *http.Request) (services.ListParams, error) {
	q := r.URL.Query()

	page, err := queryInt(q, "page", services.DefaultPage)
	if err != nil {
		return services.ListParams{}, err
	}
	limit, err := queryInt(q, "limit", services.DefaultLimit)
	if err != nil {
		return services.ListParams{}, err
	}
	if page < 1 || limit < 1 || limit > services.MaxLimit {
		return services.ListParams{}, errs.NewInvalidParametersError("Page must be >= 1 and limit must be between 1 and 100")
	}

	return services.ListParams{
		Page:       page,
		Limit:      limit,
		Technology: strings.TrimSpace(q.Get("technology")),
	}, nil
}

// listProjects returns published projects, newest first
// @Summary List published projects
// @Tags Projects
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size, at most 100" default(8)
// @Param technology query string false "Technology slug"
// @Success 200 {object} envelope "data is a list of projects, with pagination"
// @Failure 400 {object} errorBody "INVALID_PARAMETERS"
// @Router /api/projects [get]
func (h projectHandler) listProjects() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := parseListParams(r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		logEvent := h.logger.Debug().Int("page", params.Page).Int("limit", params.Limit)
		if claims := claimsFromCtx(r.Context()); claims != nil {
			logEvent = logEvent.Str("adminID", claims.UserID)
		}
		logEvent.Msg("listing public projects")

		page, err := h.projects.ListPublic(r.Context(), params)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteJSON(w, http.StatusOK, envelope{
			Success:    true,
			Data:       page.Projects,
			Pagination: &page.Pagination,
		})
	}
}

// getProject returns one published project
// @Summary Get published project
// @Tags Projects
// @Produce json
// @Param id path string true "Project ID" format(uuid)
// @Success 200 {object} models.ProjectView
// @Failure 400 {object} errorBody "INVALID_ID"
// @Failure 404 {object} errorBody "PROJECT_NOT_FOUND"
// @Router /api/projects/{id} [get]
func (h projectHandler) getProject() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		project, err := h.projects.GetPublicByID(r.Context(), id)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteData(w, http.StatusOK, project, "")
	}
}

// @Summary Project counts
// @Tags Projects
// @Produce json
// @Success 200 {object} database.ProjectStats
// @Router /api/projects/stats [get]
func (h projectHandler) getStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := h.projects.Stats(r.Context())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteData(w, http.StatusOK, stats, "")
	}
}
