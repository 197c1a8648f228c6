package api

import (
	"context"

	"github.com/demohub/demohub-backend/auth"
)

type keyType string

const claimsKey keyType = "claims"

// ctxWithClaims attaches verified access token claims to the context
func ctxWithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// claimsFromCtx returns the claims of the authenticated admin, or nil
func claimsFromCtx(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}
