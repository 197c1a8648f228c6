package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/demohub/demohub-backend/errs"
)

// setupPublicRoutes mounts the routes anyone may call. A valid bearer token
// is recognized but never required.
func setupPublicRoutes(r chi.Router, handlers *routeHandlers, authMiddleware authMiddleware) {
	r.Get("/health", handlers.healthHandler.health())

	r.Route("/api/projects", func(r chi.Router) {
		r.Use(authMiddleware.optionalAuthenticate)
		r.Get("/", handlers.projectHandler.listProjects())
		r.Get("/stats", handlers.projectHandler.getStats())
		r.Get("/{id}", handlers.projectHandler.getProject())
	})

	r.Route("/api/technologies", func(r chi.Router) {
		r.Get("/", handlers.technologyHandler.listTechnologies())
		r.Get("/{slug}", handlers.technologyHandler.getTechnology())
	})
}

// setupAdminRoutes mounts the session endpoints and, behind the bearer
// token check, project management
func setupAdminRoutes(r chi.Router, handlers *routeHandlers, authMiddleware authMiddleware) {
	r.Route("/api/admin", func(r chi.Router) {
		r.Post("/login", handlers.sessionHandler.login())
		r.Post("/logout", handlers.sessionHandler.logout())
		r.Post("/refresh", handlers.sessionHandler.refresh())

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.authenticate)

			r.Get("/me", handlers.sessionHandler.me())
			r.Get("/contributors", handlers.adminProjectHandler.listContributors())

			r.Route("/projects", func(r chi.Router) {
				r.Get("/", handlers.adminProjectHandler.listProjects())
				r.Post("/", handlers.adminProjectHandler.createProject())
				r.Put("/{id}", handlers.adminProjectHandler.updateProject())
				r.Delete("/{id}", handlers.adminProjectHandler.deleteProject())
				r.Post("/{id}/images", handlers.adminProjectHandler.uploadImage())
				r.Put("/{id}/images/reorder", handlers.adminProjectHandler.reorderImages())
				r.Delete("/{id}/images/{imageId}", handlers.adminProjectHandler.deleteImage())
			})
		})
	})
}

func setupFallbackRoutes(r chi.Router, responder Responder) {
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		responder.WriteJSON(w, http.StatusNotFound, envelope{Error: &errorBody{
			Code:    errs.CodeNotFound,
			Message: "Route " + r.Method + " " + r.URL.Path + " not found",
		}})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		responder.WriteJSON(w, http.StatusMethodNotAllowed, envelope{Error: &errorBody{
			Code:    "METHOD_NOT_ALLOWED",
			Message: "Method " + r.Method + " is not allowed on " + r.URL.Path,
		}})
	})
}
