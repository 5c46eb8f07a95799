package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/statafdev/nomadnest-front/internal/models"
)

// ContextKeySession is where LoadSession stores the *SessionContext
const ContextKeySession = "session"

// LoadSession verifies the session cookie once per request and stores the
// result in the context. A cookie that fails verification is removed.
func LoadSession(m *Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess := m.VerifySession(c.Request())
			if sess == nil {
				if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
					m.DeleteSession(c.Response())
				}
			}
			c.Set(ContextKeySession, sess)
			return next(c)
		}
	}
}

// RouteGate applies the gate decision to every request. Must be used after
// LoadSession.
func RouteGate(g *Gate) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			d := g.Decide(c.Request().URL.Path, SessionFrom(c))
			if !d.Allow {
				return c.Redirect(http.StatusSeeOther, d.RedirectTo)
			}
			return next(c)
		}
	}
}

// RequireRole redirects requests whose session lacks one of roles. No session
// goes to the login path, a session with the wrong role goes to the client
// home. Must be used after LoadSession.
func RequireRole(g *Gate, roles ...models.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess := SessionFrom(c)
			if sess == nil {
				return c.Redirect(http.StatusSeeOther, g.LoginPath)
			}

			for _, role := range roles {
				if sess.Claims.Role == role {
					return next(c)
				}
			}

			return c.Redirect(http.StatusSeeOther, g.ClientHome)
		}
	}
}

// SessionFrom retrieves the session stored by LoadSession, or nil
func SessionFrom(c echo.Context) *SessionContext {
	sess, ok := c.Get(ContextKeySession).(*SessionContext)
	if !ok {
		return nil
	}
	return sess
}
