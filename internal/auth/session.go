package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/statafdev/nomadnest-front/internal/models"
)

const (
	// SessionCookieName is the cookie holding the API-issued token
	SessionCookieName = "session"

	// SessionDuration is the fixed cookie lifetime, independent of the
	// token's own expiry
	SessionDuration = 7 * 24 * time.Hour
)

var (
	ErrMissingSecret = errors.New("session secret is not configured")
	ErrInvalidToken  = errors.New("invalid session token")
	ErrExpiredToken  = errors.New("session token expired")
)

var allowedAlgorithms = []string{"HS256", "HS384", "HS512"}

// sessionClaims is the wire form of the token payload
type sessionClaims struct {
	UserID   string      `json:"id,omitempty"`
	Email    string      `json:"email,omitempty"`
	Username string      `json:"username,omitempty"`
	Role     models.Role `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// SessionContext is the per-request authentication state. A nil
// *SessionContext means no valid session.
type SessionContext struct {
	Token  string
	Claims models.Claims
}

// IsAdmin reports whether the session carries the admin role
func (s *SessionContext) IsAdmin() bool {
	return s != nil && s.Claims.Role == models.RoleAdmin
}

// UserID returns the user identifier from the token claims
func (s *SessionContext) UserID() string {
	if s == nil {
		return ""
	}
	return s.Claims.Identity()
}

// Manager issues, verifies and revokes the session cookie
type Manager struct {
	secret []byte
	secure bool
	logger *zap.Logger
	now    func() time.Time
}

// NewManager creates a session manager. An empty secret makes every
// session invalid.
func NewManager(secret string, secure bool, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		secret: []byte(secret),
		secure: secure,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock overrides the time source used for cookie and token expiry
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// CreateSession stores the token in the session cookie
func (m *Manager) CreateSession(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  m.now().Add(SessionDuration),
		MaxAge:   int(SessionDuration.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// DeleteSession expires the session cookie. Safe to call without a session.
func (m *Manager) DeleteSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// VerifySession reads and verifies the session cookie. It returns nil when
// the cookie is absent or fails verification; failures are only logged.
func (m *Manager) VerifySession(r *http.Request) *SessionContext {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}

	sess, err := m.VerifyToken(cookie.Value)
	if err != nil {
		m.logger.Warn("Failed to verify session", zap.Error(err))
		return nil
	}
	return sess
}

// VerifyToken checks the token signature against the shared secret and, when
// present, its exp and nbf claims. The secret is owned by the API, so any
// HMAC key length is accepted.
func (m *Manager) VerifyToken(token string) (*SessionContext, error) {
	if len(m.secret) == 0 {
		return nil, ErrMissingSecret
	}

	var wire sessionClaims
	_, err := jwt.ParseWithClaims(token, &wire, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods(allowedAlgorithms),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrExpiredToken, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims := models.Claims{
		Subject:  wire.Subject,
		UserID:   wire.UserID,
		Email:    wire.Email,
		Username: wire.Username,
		Role:     wire.Role,
	}
	if wire.IssuedAt != nil {
		claims.IssuedAt = wire.IssuedAt.Time
	}
	if wire.ExpiresAt != nil {
		claims.ExpiresAt = wire.ExpiresAt.Time
	}

	return &SessionContext{Token: token, Claims: claims}, nil
}
