package auth

import "strings"

// Decision is the outcome of evaluating one request path
type Decision struct {
	Allow      bool
	RedirectTo string
}

// Gate classifies request paths against static lists. It holds no state
// between requests.
type Gate struct {
	// Protected paths match as prefixes on a segment boundary
	Protected []string
	// Public paths match exactly
	Public []string

	LoginPath  string
	ClientHome string
	AdminHome  string
}

// DefaultGate returns the gate used by the web front end
func DefaultGate() *Gate {
	return &Gate{
		Protected:  []string{"/client"},
		Public:     []string{"/login", "/", "/register"},
		LoginPath:  "/login",
		ClientHome: "/client",
		AdminHome:  "/admin",
	}
}

// Decide returns whether path may proceed for the given session (nil when
// unauthenticated)
func (g *Gate) Decide(path string, sess *SessionContext) Decision {
	if g.IsProtected(path) && sess == nil {
		return Decision{RedirectTo: g.LoginPath}
	}
	if path == g.LoginPath && g.IsPublic(path) && sess != nil {
		return Decision{RedirectTo: g.Landing(sess)}
	}
	return Decision{Allow: true}
}

// Landing is where an authenticated user is sent after login
func (g *Gate) Landing(sess *SessionContext) string {
	if sess.IsAdmin() {
		return g.AdminHome
	}
	return g.ClientHome
}

// IsProtected reports whether path requires a session
func (g *Gate) IsProtected(path string) bool {
	for _, prefix := range g.Protected {
		if path == prefix || strings.HasPrefix(path, strings.TrimRight(prefix, "/")+"/") {
			return true
		}
	}
	return false
}

// IsPublic reports whether path is on the public list
func (g *Gate) IsPublic(path string) bool {
	for _, p := range g.Public {
		if path == p {
			return true
		}
	}
	return false
}
