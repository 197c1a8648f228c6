package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/demohub/demohub-backend/auth"
	"github.com/demohub/demohub-backend/config"
	"github.com/demohub/demohub-backend/database"
	"github.com/demohub/demohub-backend/media"
)

type Server struct {
	*http.Server
	startupTime time.Time
}

func NewServer(settings config.Settings, db database.Database, tokens *auth.TokenCodec, store media.Store) (Server, error) {
	if tokens == nil {
		return Server{}, fmt.Errorf("token codec is required")
	}
	if store == nil {
		store = media.Unconfigured{}
	}

	address := fmt.Sprintf("0.0.0.0:%s", settings.Port)

	startupTime := time.Now()

	router := newRouter(db, tokens, store, withSettings(settings), withStartupTime(startupTime))

	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  settings.ReadTimeout,
		WriteTimeout: settings.WriteTimeout,
		IdleTimeout:  settings.IdleTimeout,
	}

	return Server{server, startupTime}, nil
}

type router struct {
	settings    config.Settings
	startupTime time.Time
}

func withSettings(settings config.Settings) func(*router) {
	return func(r *router) {
		r.settings = settings
	}
}

func withStartupTime(startupTime time.Time) func(*router) {
	return func(r *router) {
		r.startupTime = startupTime
	}
}

func newRouter(db database.Database, tokens *auth.TokenCodec, store media.Store, opts ...func(*router)) *chi.Mux {
	router := router{startupTime: time.Now()}
	for _, opt := range opts {
		opt(&router)
	}
	production := router.settings.IsProduction()
	registry, httpMetrics := newMetricsRegistry()

	chiRouter := chi.NewRouter()
	chiRouter.Use(middleware.RequestID)
	chiRouter.Use(middleware.RealIP)
	chiRouter.Use(LogInternalServerErrors(production))
	chiRouter.Use(httpMetrics.middleware)
	chiRouter.Use(HTTPLoggingMiddleware(log.With().Str("component", "http").Logger()))

	chiRouter.Use(CORSCheckMiddleware(router.settings.CORSOrigins, production))
	chiRouter.Use(corsMiddleware(router.settings.CORSOrigins))

	handlers := initializeHandlers(db, tokens, store, router.settings, router.startupTime)

	authMiddleware := newAuthMiddleware(tokens, production)

	setupPublicRoutes(chiRouter, handlers, authMiddleware)
	setupAdminRoutes(chiRouter, handlers, authMiddleware)
	chiRouter.Method(http.MethodGet, "/metrics", metricsHandler(registry))
	setupFallbackRoutes(chiRouter, NewResponder(log.With().Str("handlerName", "fallback").Logger(), production))

	return chiRouter
}

// Start serves until the listener fails or the server is shut down. Only a
// failure is sent on errChannel.
func (s Server) Start(errChannel chan<- error) {
	log.Info().Msgf("Server started on: %s", s.Addr)
	if err := s.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		errChannel <- err
	}
}

func (s Server) ShutdownGracefully(timeout time.Duration) {
	log.Info().Msg("Gracefully shutting down...")

	gracefulCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.Shutdown(gracefulCtx); err != nil {
		log.Error().Msgf("Error shutting down the server: %v", err)
	} else {
		log.Info().Msg("HttpServer gracefully shut down")
	}
}
