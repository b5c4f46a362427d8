// Package auth adapts the shared token validation to the adherence service.
package auth

import (
	"context"
	"errors"
	"fmt"

	authlib "github.com/goshak24/ScolioFrontend-sub001/internal/platform/auth"
)

// Claims mirrors the shared auth claims type for service convenience.
type Claims = authlib.Claims

// Config mirrors the shared auth config.
type Config = authlib.Config

// ErrForbidden is returned when the patient token lacks the required scope.
var ErrForbidden = errors.New("insufficient scope")

// WithClaims stores the claims in the request context.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return authlib.WithClaims(ctx, claims)
}

// FromContext retrieves claims from context.
func FromContext(ctx context.Context) (*Claims, bool) {
	return authlib.FromContext(ctx)
}

// Allows reports whether claims grant scope. Write access implies read access.
func Allows(claims *Claims, scope string) bool {
	if claims == nil {
		return false
	}
	if claims.HasScope(scope) {
		return true
	}
	return scope == ScopeAdherenceRead && claims.HasScope(ScopeAdherenceWrite)
}

// Authorize returns the caller's claims when they grant scope. It fails with
// authlib.ErrMissingToken when no token was validated and ErrForbidden when
// the scope is missing.
func Authorize(ctx context.Context, scope string) (*Claims, error) {
	claims, ok := FromContext(ctx)
	if !ok {
		return nil, authlib.ErrMissingToken
	}
	if !Allows(claims, scope) {
		return nil, fmt.Errorf("%w: %s required", ErrForbidden, scope)
	}
	return claims, nil
}
