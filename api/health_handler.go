package api

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

type healthHandler struct {
	responder   Responder
	environment string
	startupTime time.Time
	now         func() time.Time
}

func newHealthHandler(environment string, startupTime time.Time, production bool) healthHandler {
	logger := log.With().Str("handlerName", "healthHandler").Logger()

	return healthHandler{
		responder:   NewResponder(logger, production),
		environment: environment,
		startupTime: startupTime,
		now:         time.Now,
	}
}

// health reports that the process is serving
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h healthHandler) health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		now := h.now()
		h.responder.WriteJSON(w, http.StatusOK, HealthResponse{
			Success:     true,
			Message:     "DemoHub API is running",
			Timestamp:   now.UTC().Format(time.RFC3339Nano),
			Environment: h.environment,
			Uptime:      now.Sub(h.startupTime).Seconds(),
		})
	}
}
