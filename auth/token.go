// Package auth issues and verifies the signed tokens admins authenticate with.
//
// Access tokens are short lived bearer credentials. Refresh tokens live for
// days, travel only in an HTTP-only cookie and can mint new access tokens.
// The two classes are signed with different secrets and carry their class in
// the claims, so neither verifies as the other.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultAccessTTL  = 30 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour

	issuer = "demohub"
)

var (
	ErrConfiguration = errors.New("token secret is not defined")
	ErrInvalidToken  = errors.New("invalid or expired token")
)

type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

// Payload identifies the principal a token was issued to.
type Payload struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

type Claims struct {
	Payload
	TokenType TokenType `json:"tokenType"`
	jwt.RegisteredClaims
}

type Options struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	// Now overrides the clock, for tests.
	Now func() time.Time
}

type TokenCodec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewTokenCodec(opts Options) *TokenCodec {
	c := &TokenCodec{
		accessSecret:  []byte(opts.AccessSecret),
		refreshSecret: []byte(opts.RefreshSecret),
		accessTTL:     opts.AccessTTL,
		refreshTTL:    opts.RefreshTTL,
		now:           opts.Now,
	}
	if c.accessTTL <= 0 {
		c.accessTTL = DefaultAccessTTL
	}
	if c.refreshTTL <= 0 {
		c.refreshTTL = DefaultRefreshTTL
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Validate reports a missing secret up front so the process can refuse to
// start instead of failing on the first login.
func (c *TokenCodec) Validate() error {
	if len(c.accessSecret) == 0 {
		return fmt.Errorf("JWT_SECRET: %w", ErrConfiguration)
	}
	if len(c.refreshSecret) == 0 {
		return fmt.Errorf("JWT_REFRESH_SECRET: %w", ErrConfiguration)
	}
	return nil
}

func (c *TokenCodec) RefreshTTL() time.Duration {
	return c.refreshTTL
}

func (c *TokenCodec) IssueAccessToken(p Payload) (string, error) {
	if len(c.accessSecret) == 0 {
		return "", fmt.Errorf("JWT_SECRET: %w", ErrConfiguration)
	}
	return c.issue(p, AccessToken, c.accessSecret, c.accessTTL)
}

func (c *TokenCodec) IssueRefreshToken(p Payload) (string, error) {
	if len(c.refreshSecret) == 0 {
		return "", fmt.Errorf("JWT_REFRESH_SECRET: %w", ErrConfiguration)
	}
	return c.issue(p, RefreshToken, c.refreshSecret, c.refreshTTL)
}

func (c *TokenCodec) issue(p Payload, typ TokenType, secret []byte, ttl time.Duration) (string, error) {
	now := c.now()
	claims := Claims{
		Payload:   p,
		TokenType: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.UserID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

func (c *TokenCodec) VerifyAccessToken(token string) (*Claims, error) {
	if len(c.accessSecret) == 0 {
		return nil, fmt.Errorf("JWT_SECRET: %w", ErrConfiguration)
	}
	return c.verify(token, AccessToken, c.accessSecret)
}

func (c *TokenCodec) VerifyRefreshToken(token string) (*Claims, error) {
	if len(c.refreshSecret) == 0 {
		return nil, fmt.Errorf("JWT_REFRESH_SECRET: %w", ErrConfiguration)
	}
	return c.verify(token, RefreshToken, c.refreshSecret)
}

func (c *TokenCodec) verify(tokenString string, typ TokenType, secret []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.TokenType != typ {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Decode reads the claims without checking signature or expiry. It returns
// nil for anything that is not a well formed token. Never use the result to
// make an access decision.
func Decode(tokenString string) *Claims {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil
	}
	return claims
}
