package api

import (
	"time"

	"github.com/demohub/demohub-backend/auth"
	"github.com/demohub/demohub-backend/config"
	"github.com/demohub/demohub-backend/database"
	"github.com/demohub/demohub-backend/media"
	"github.com/demohub/demohub-backend/services"
)

// initializeHandlers creates and returns all handlers organized in a routeHandlers struct
func initializeHandlers(db database.Database, tokens *auth.TokenCodec, store media.Store, settings config.Settings, startupTime time.Time) *routeHandlers {
	production := settings.IsProduction()

	sessions := services.NewSessionService(db.AdminRepo(), tokens)
	projects := services.NewProjectService(db.ProjectRepo())
	adminProjects := services.NewAdminProjectService(db.ProjectRepo(), db.ProjectImageRepo(), db.ContributorRepo(), store)
	technologies := services.NewTechnologyService(db.TechnologyRepo())

	return &routeHandlers{
		healthHandler:       newHealthHandler(settings.Environment, startupTime, production),
		sessionHandler:      newSessionHandler(sessions, tokens, production),
		projectHandler:      newProjectHandler(projects, production),
		adminProjectHandler: newAdminProjectHandler(adminProjects, production),
		technologyHandler:   newTechnologyHandler(technologies, production),
	}
}
