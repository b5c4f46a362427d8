package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
)

var rejectedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "adherence",
	Subsystem: "auth",
	Name:      "rejected_requests_total",
	Help:      "Requests rejected by bearer-token validation, labeled by reason.",
}, []string{"reason"})

func init() {
	prometheus.MustRegister(rejectedCounter)
}

// Skipper allows callers to bypass authentication for specific requests.
type Skipper func(r *http.Request) bool

// Middleware provides HTTP middleware for bearer-token validation.
type Middleware struct {
	Config  Config
	Skipper Skipper
}

// NewMiddleware constructs a middleware with optional skipper.
func NewMiddleware(cfg Config, skipper Skipper) Middleware {
	return Middleware{Config: cfg, Skipper: skipper}
}

// Wrap wraps an http.Handler with authentication. Rejections are answered with
// a JSON problem body; an expired session is reported distinctly so the app
// can prompt the patient to sign in again.
func (m Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Skipper != nil && m.Skipper(r) {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := m.parseRequest(r)
		if err != nil {
			reason := RejectionReason(err)
			rejectedCounter.WithLabelValues(reason).Inc()
			w.Header().Set("WWW-Authenticate", `Bearer realm="adherence"`)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"type": reason, "detail": err.Error()})
			return
		}
		ctx := WithClaims(r.Context(), claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RejectionReason classifies a token error as missing_token, expired_token or invalid_token.
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrMissingToken):
		return "missing_token"
	case errors.Is(err, jwt.ErrTokenExpired):
		return "expired_token"
	default:
		return "invalid_token"
	}
}

func (m Middleware) parseRequest(r *http.Request) (*Claims, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return nil, ErrInvalidToken
	}
	return Parse(token, m.Config)
}
