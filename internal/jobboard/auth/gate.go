// Package auth issues and verifies session tokens and resolves the caller
// of a request into a user record.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CookieName is the session cookie set at login and registration.
const CookieName = "token"

type contextKey string

const userContextKey contextKey = "user"

// UserLookup resolves the token subject to a stored user.
type UserLookup interface {
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Gate authenticates requests carrying a session token.
type Gate struct {
	jwtSecret string
	users     UserLookup
	logger    *zap.Logger
}

// NewGate creates a Gate verifying tokens signed with jwtSecret.
func NewGate(jwtSecret string, users UserLookup, logger *zap.Logger) *Gate {
	return &Gate{
		jwtSecret: jwtSecret,
		users:     users,
		logger:    logger.Named("auth_gate"),
	}
}

// Authenticate resolves the caller of r. Every token or identity failure is
// reported as ErrUnauthenticated; storage failures are returned as is.
func (g *Gate) Authenticate(r *http.Request) (*models.User, error) {
	tokenString, err := extractToken(r)
	if err != nil {
		return nil, err
	}

	claims, err := validateToken(tokenString, g.jwtSecret)
	if err != nil {
		g.logger.Debug("rejected token", zap.Error(err))
		return nil, fmt.Errorf("%w: invalid token", e.ErrUnauthenticated)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid token subject", e.ErrUnauthenticated)
	}

	user, err := g.users.GetUser(r.Context(), userID)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", e.ErrUnauthenticated)
		}
		return nil, fmt.Errorf("failed to resolve user: %w", err)
	}
	return user, nil
}

// extractToken reads the session cookie first and the bearer header second.
func extractToken(r *http.Request) (string, error) {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("%w: no token provided", e.ErrUnauthenticated)
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", fmt.Errorf("%w: invalid authorization format: missing Bearer prefix", e.ErrUnauthenticated)
	}
	tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if tokenString == "" {
		return "", fmt.Errorf("%w: invalid authorization format: empty token", e.ErrUnauthenticated)
	}
	return tokenString, nil
}

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// UserFromContext returns the user attached by the gate.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userContextKey).(*models.User)
	return user, ok && user != nil
}

// SetSessionCookie stores token in an httpOnly cookie expiring with it.
func SetSessionCookie(w http.ResponseWriter, token string, expires time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie. Tokens copied elsewhere
// stay valid until their own expiry.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
