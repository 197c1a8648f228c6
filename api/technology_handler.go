package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/demohub/demohub-backend/services"
)

type technologyHandler struct {
	responder    Responder
	logger       zerolog.Logger
	technologies *services.TechnologyService
}

func newTechnologyHandler(technologies *services.TechnologyService, production bool) technologyHandler {
	logger := log.With().Str("handlerName", "technologyHandler").Logger()

	return technologyHandler{
		responder:    NewResponder(logger, production),
		logger:       logger,
		technologies: technologies,
	}
}

// listTechnologies returns every technology by name
// @Summary List technologies
// @Tags Technologies
// @Produce json
// @Param withCounts query bool false "Include the number of projects per technology"
// @Success 200 {array} models.Technology
// @Router /api/technologies [get]
func (h technologyHandler) listTechnologies() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if withCounts, _ := strconv.ParseBool(r.URL.Query().Get("withCounts")); withCounts {
			counts, err := h.technologies.ListWithCounts(r.Context())
			if err != nil {
				h.responder.WriteError(w, err)
				return
			}
			h.responder.WriteData(w, http.StatusOK, counts, "")
			return
		}

		technologies, err := h.technologies.List(r.Context())
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteData(w, http.StatusOK, technologies, "")
	}
}

// getTechnology returns one technology by slug
// @Summary Get technology
// @Tags Technologies
// @Produce json
// @Param slug path string true "Technology slug"
// @Success 200 {object} models.Technology
// @Failure 404 {object} errorBody "TECHNOLOGY_NOT_FOUND"
// @Router /api/technologies/{slug} [get]
func (h technologyHandler) getTechnology() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		technology, err := h.technologies.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteData(w, http.StatusOK, technology, "")
	}
}
