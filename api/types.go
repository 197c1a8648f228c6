package api

import (
	"github.com/demohub/demohub-backend/models"
	"github.com/demohub/demohub-backend/services"
)

// routeHandlers contains all the handlers for different route types
type routeHandlers struct {
	healthHandler       healthHandler
	sessionHandler      sessionHandler
	projectHandler      projectHandler
	adminProjectHandler adminProjectHandler
	technologyHandler   technologyHandler
}

// envelope is the shape of every API response.
// @Description Response envelope
type envelope struct {
	Success    bool                 `json:"success"`
	Data       any                  `json:"data,omitempty"`
	Error      *errorBody           `json:"error,omitempty"`
	Message    string               `json:"message,omitempty"`
	Pagination *services.Pagination `json:"pagination,omitempty"`
}

// errorBody represents an error response from the API
// @Description Error response structure
type errorBody struct {
	Code    string `json:"code" example:"VALIDATION_ERROR"`
	Message string `json:"message" example:"Name, description, and start_date are required"`
	Field   string `json:"field,omitempty" example:"startDate"`
	Details string `json:"details,omitempty" example:"Additional error details"`
	Cause   string `json:"cause,omitempty" example:"Underlying error cause"`
}

// LoginResponse is the data of a successful login. The refresh token travels
// in a cookie only.
type LoginResponse struct {
	AccessToken string              `json:"accessToken"`
	Admin       models.AdminProfile `json:"admin"`
}

type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
}

type HealthResponse struct {
	Success     bool    `json:"success"`
	Message     string  `json:"message"`
	Timestamp   string  `json:"timestamp"`
	Environment string  `json:"environment"`
	Uptime      float64 `json:"uptime"`
}
