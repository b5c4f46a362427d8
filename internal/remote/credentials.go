package remote

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/goshak24/ScolioFrontend-sub001/internal/domain"
)

// CredentialSource yields the bearer token attached to backend calls.
type CredentialSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenHolder keeps the patient's current session token. It never verifies the
// signature (the backend does); it only refuses empty or expired tokens locally
// so that no network call is attempted without a usable credential.
type TokenHolder struct {
	mu    sync.RWMutex
	token string
	now   func() time.Time
}

// NewTokenHolder constructs a TokenHolder seeded with token (which may be empty).
func NewTokenHolder(token string) *TokenHolder {
	return &TokenHolder{token: strings.TrimSpace(token), now: time.Now}
}

// Update swaps the held token.
func (h *TokenHolder) Update(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = strings.TrimSpace(token)
}

// Clear forgets the held token (sign-out).
func (h *TokenHolder) Clear() {
	h.Update("")
}

// Token implements CredentialSource.
func (h *TokenHolder) Token(context.Context) (string, error) {
	h.mu.RLock()
	token := h.token
	h.mu.RUnlock()

	if token == "" {
		return "", domain.ErrAuthMissing
	}
	if expired, err := tokenExpired(token, h.now()); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrAuthMissing, err)
	} else if expired {
		return "", fmt.Errorf("%w: token expired", domain.ErrAuthMissing)
	}
	return token, nil
}

func tokenExpired(token string, now time.Time) (bool, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return false, err
	}
	if exp == nil {
		return false, nil
	}
	return !now.Before(exp.Time), nil
}
