package api

import (
	"errors"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/demohub/demohub-backend/auth"
	"github.com/demohub/demohub-backend/errs"
)

type authMiddleware struct {
	responder Responder
	tokens    *auth.TokenCodec
}

func newAuthMiddleware(tokens *auth.TokenCodec, production bool) authMiddleware {
	logger := log.With().Str("handlerName", "authMiddleware").Logger()
	return authMiddleware{
		responder: NewResponder(logger, production),
		tokens:    tokens,
	}
}

// bearerToken extracts the token from an Authorization header. It returns
// errs.NoToken when the header is missing or the token empty, and
// errs.InvalidTokenFormat when the scheme is not Bearer.
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errs.NoToken
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return "", errs.InvalidTokenFormat
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" {
		return "", errs.NoToken
	}
	return token, nil
}

// authenticate rejects requests without a valid access token and stores the
// claims of valid ones in the request context.
func (m authMiddleware) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r.Header.Get("Authorization"))
		if err != nil {
			m.responder.WriteError(w, err)
			return
		}

		claims, err := m.tokens.VerifyAccessToken(token)
		if err != nil {
			if errors.Is(err, auth.ErrConfiguration) {
				m.responder.WriteError(w, errs.NewConfigurationError("Token verification is not configured", err))
				return
			}
			m.responder.WriteError(w, errs.InvalidToken)
			return
		}

		next.ServeHTTP(w, r.WithContext(ctxWithClaims(r.Context(), claims)))
	})
}

// optionalAuthenticate attaches claims when a valid token is present and
// never rejects.
func (m authMiddleware) optionalAuthenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r.Header.Get("Authorization"))
		if err == nil {
			if claims, err := m.tokens.VerifyAccessToken(token); err == nil {
				r = r.WithContext(ctxWithClaims(r.Context(), claims))
			}
		}
		next.ServeHTTP(w, r)
	})
}

type statusResponseWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusResponseWriter) WriteHeader(statusCode int) {
	if !w.wroteHeader {
		w.status = statusCode
		w.wroteHeader = true
		w.ResponseWriter.WriteHeader(statusCode)
	}
}

func (w *statusResponseWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// LogInternalServerErrors recovers panics into a 500 envelope and logs every
// 500 response.
func LogInternalServerErrors(production bool) func(http.Handler) http.Handler {
	responder := NewResponder(log.With().Str("handlerName", "recoverer").Logger(), production)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			srw := &statusResponseWriter{ResponseWriter: w, status: http.StatusOK}

			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					log.Error().
						Str("method", r.Method).
						Str("path", r.URL.Path).
						Interface("panic", err).
						Str("stack", string(debug.Stack())).
						Msg("Recovered from panic")

					if !srw.wroteHeader {
						responder.WriteError(srw, errs.NewInternalError("An unexpected error occurred"))
					}
				}
			}()

			next.ServeHTTP(srw, r)

			if srw.status == http.StatusInternalServerError {
				log.Error().
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Str("requestID", middleware.GetReqID(r.Context())).
					Msg("500 error response")
			}
		})
	}
}

// CORSCheckMiddleware answers preflight requests from unknown origins with a
// CORS_BLOCKED envelope instead of a bare 403.
func CORSCheckMiddleware(allowedOrigins []string, production bool) func(http.Handler) http.Handler {
	responder := NewResponder(log.With().Str("handlerName", "corsCheck").Logger(), production)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" || r.Method != http.MethodOptions || originAllowed(allowedOrigins, origin) {
				next.ServeHTTP(w, r)
				return
			}
			responder.WriteError(w, errs.NewCORSError(origin))
		})
	}
}

func originAllowed(allowedOrigins []string, origin string) bool {
	for _, allowed := range allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

// corsMiddleware sets the CORS headers. Credentials are allowed so the
// refresh cookie reaches the admin endpoints.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// HTTPLoggingMiddleware logs every request at a level matching its status.
func HTTPLoggingMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			srw := &statusResponseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(srw, r)

			var logEvent *zerolog.Event
			switch {
			case srw.status >= 500:
				logEvent = logger.Error()
			case srw.status >= 400:
				logEvent = logger.Warn()
			default:
				logEvent = logger.Info()
			}

			logEvent.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", srw.status).
				Dur("duration", time.Since(start)).
				Str("remote_addr", r.RemoteAddr).
				Str("requestID", middleware.GetReqID(r.Context())).
				Msg("HTTP Request")
		})
	}
}
