package api

import (
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/demohub/demohub-backend/auth"
	"github.com/demohub/demohub-backend/errs"
	"github.com/demohub/demohub-backend/services"
)

const (
	refreshCookieName = "refreshToken"
	refreshCookiePath = "/api/admin"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type sessionHandler struct {
	responder     Responder
	logger        zerolog.Logger
	sessions      *services.SessionService
	tokens        *auth.TokenCodec
	secureCookies bool
}

func newSessionHandler(sessions *services.SessionService, tokens *auth.TokenCodec, production bool) sessionHandler {
	logger := log.With().Str("handlerName", "sessionHandler").Logger()

	return sessionHandler{
		responder:     NewResponder(logger, production),
		logger:        logger,
		sessions:      sessions,
		tokens:        tokens,
		secureCookies: production,
	}
}

func (h sessionHandler) refreshCookie(value string, maxAge time.Duration) *http.Cookie {
	cookie := &http.Cookie{
		Name:     refreshCookieName,
		Value:    value,
		Path:     refreshCookiePath,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteStrictMode,
	}
	if maxAge > 0 {
		cookie.MaxAge = int(maxAge.Seconds())
		cookie.Expires = time.Now().Add(maxAge)
	} else {
		cookie.MaxAge = -1
		cookie.Expires = time.Unix(0, 0)
	}
	return cookie
}

// login checks admin credentials and starts a session
// @Summary Admin login
// @Description Returns an access token and sets the refresh token cookie
// @Tags Admin
// @Accept json
// @Produce json
// @Param credentials body object true "email and password"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} errorBody "MISSING_CREDENTIALS or INVALID_EMAIL"
// @Failure 401 {object} errorBody "INVALID_CREDENTIALS"
// @Router /api/admin/login [post]
func (h sessionHandler) login() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := parseInput(w, r)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		email, _, err := in.str("email")
		if err != nil {
			h.responder.WriteError(w, errs.MissingCredentials)
			return
		}
		password, _, err := in.str("password")
		if err != nil {
			h.responder.WriteError(w, errs.MissingCredentials)
			return
		}
		if email == nil || password == nil || strings.TrimSpace(*email) == "" || *password == "" {
			h.responder.WriteError(w, errs.MissingCredentials)
			return
		}
		if !emailPattern.MatchString(strings.TrimSpace(*email)) {
			h.responder.WriteError(w, errs.InvalidEmail)
			return
		}

		result, err := h.sessions.Login(r.Context(), *email, *password)
		if err != nil {
			if errors.Is(err, services.ErrInvalidCredentials) {
				h.logger.Warn().Str("email", *email).Msg("failed login attempt")
			}
			h.responder.WriteError(w, err)
			return
		}

		http.SetCookie(w, h.refreshCookie(result.RefreshToken, h.tokens.RefreshTTL()))
		h.responder.WriteData(w, http.StatusOK, LoginResponse{
			AccessToken: result.AccessToken,
			Admin:       result.Admin,
		}, "Login successful")
	}
}

// logout clears the refresh token cookie. Issued access tokens stay valid
// until they expire.
// @Summary Admin logout
// @Tags Admin
// @Produce json
// @Success 200 {object} envelope
// @Router /api/admin/logout [post]
func (h sessionHandler) logout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, h.refreshCookie("", 0))
		h.responder.WriteMessage(w, "Logout successful")
	}
}

// refresh mints a new access token from the refresh token cookie
// @Summary Refresh access token
// @Tags Admin
// @Produce json
// @Success 200 {object} RefreshResponse
// @Failure 401 {object} errorBody "NO_REFRESH_TOKEN or INVALID_REFRESH_TOKEN"
// @Router /api/admin/refresh [post]
func (h sessionHandler) refresh() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(refreshCookieName)
		if err != nil || cookie.Value == "" {
			h.responder.WriteError(w, errs.NoRefreshToken)
			return
		}

		claims, err := h.tokens.VerifyRefreshToken(cookie.Value)
		if err != nil {
			if errors.Is(err, auth.ErrConfiguration) {
				h.responder.WriteError(w, errs.NewConfigurationError("Token verification is not configured", err))
				return
			}
			h.responder.WriteError(w, errs.InvalidRefreshToken)
			return
		}

		accessToken, err := h.sessions.RefreshAccessToken(claims)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteData(w, http.StatusOK, RefreshResponse{AccessToken: accessToken}, "Token refreshed successfully")
	}
}

// me returns the authenticated admin
// @Summary Current admin
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.AdminProfile
// @Failure 401 {object} errorBody
// @Failure 404 {object} errorBody "ADMIN_NOT_FOUND"
// @Router /api/admin/me [get]
func (h sessionHandler) me() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFromCtx(r.Context())
		if claims == nil {
			h.responder.WriteError(w, errs.NoToken)
			return
		}

		adminID, err := uuid.Parse(claims.UserID)
		if err != nil {
			h.responder.WriteError(w, errs.InvalidToken)
			return
		}

		admin, err := h.sessions.GetByID(r.Context(), adminID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		h.responder.WriteData(w, http.StatusOK, admin, "")
	}
}
