package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/demohub/demohub-backend/auth"
	"github.com/demohub/demohub-backend/errs"
	"github.com/demohub/demohub-backend/models"
)

// LoginResult is handed back on a successful login. The refresh token never
// leaves the server in a response body, the API sets it as a cookie.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	Admin        models.AdminProfile
}

// SessionService checks admin credentials and mints tokens.
type SessionService struct {
	admins AdminStore
	tokens *auth.TokenCodec
	now    func() time.Time
}

func NewSessionService(admins AdminStore, tokens *auth.TokenCodec) *SessionService {
	return &SessionService{admins: admins, tokens: tokens, now: time.Now}
}

// dummyHash is compared against when the email is unknown so both failure
// paths cost one bcrypt comparison.
var dummyHash = sync.OnceValue(func() []byte {
	hash, _ := bcrypt.GenerateFromPassword([]byte("demohub-dummy-password"), bcrypt.DefaultCost)
	return hash
})

// Login returns ErrInvalidCredentials for an unknown email and for a wrong
// password alike.
func (s *SessionService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	admin, err := s.admins.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, errs.NewDatabaseError("find", "admin", err)
	}
	if admin == nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash(), []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := s.admins.TouchLastLogin(ctx, admin.ID, s.now()); err != nil {
		return nil, errs.NewDatabaseError("update", "admin", err)
	}

	payload := auth.Payload{UserID: admin.ID.String(), Email: admin.Email, Role: admin.Role}
	accessToken, err := s.tokens.IssueAccessToken(payload)
	if err != nil {
		return nil, tokenError(err)
	}
	refreshToken, err := s.tokens.IssueRefreshToken(payload)
	if err != nil {
		return nil, tokenError(err)
	}

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		Admin:        admin.Profile(),
	}, nil
}

// GetByID returns the admin without its password hash.
func (s *SessionService) GetByID(ctx context.Context, id uuid.UUID) (*models.AdminProfile, error) {
	admin, err := s.admins.FindByID(ctx, id)
	if err != nil {
		return nil, errs.NewDatabaseError("find", "admin", err)
	}
	if admin == nil {
		return nil, ErrAdminNotFound
	}
	profile := admin.Profile()
	return &profile, nil
}

// RefreshAccessToken mints a new access token for an already verified refresh
// token. It does not look at the datastore.
func (s *SessionService) RefreshAccessToken(claims *auth.Claims) (string, error) {
	token, err := s.tokens.IssueAccessToken(claims.Payload)
	if err != nil {
		return "", tokenError(err)
	}
	return token, nil
}

func tokenError(err error) error {
	if errors.Is(err, auth.ErrConfiguration) {
		return errs.NewConfigurationError("Token signing is not configured", err)
	}
	return errs.NewInternalErrorWithCause("Failed to issue token", err)
}
