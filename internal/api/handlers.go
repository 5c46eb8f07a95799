package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/statafdev/nomadnest-front/internal/auth"
	"github.com/statafdev/nomadnest-front/internal/blob"
	"github.com/statafdev/nomadnest-front/internal/marketplace"
	"github.com/statafdev/nomadnest-front/internal/web"
)

// Deps carries everything the handlers need
type Deps struct {
	Market   *marketplace.Service
	Sessions *auth.Manager
	Gate     *auth.Gate
	Limiter  *auth.RateLimiter
	Flash    *Flasher
	Blobs    blob.Store // nil disables image uploads
	Audit    *AuditLogger
	Logger   *zap.Logger
}

// Handlers serves the NomadNest pages and the listings proxy
type Handlers struct {
	market   *marketplace.Service
	sessions *auth.Manager
	gate     *auth.Gate
	limiter  *auth.RateLimiter
	flash    *Flasher
	blobs    blob.Store
	audit    *AuditLogger
	logger   *zap.Logger
}

// NewHandlers fills unset optional dependencies with defaults
func NewHandlers(d Deps) *Handlers {
	h := &Handlers{
		market:   d.Market,
		sessions: d.Sessions,
		gate:     d.Gate,
		limiter:  d.Limiter,
		flash:    d.Flash,
		blobs:    d.Blobs,
		audit:    d.Audit,
		logger:   d.Logger,
	}
	if h.gate == nil {
		h.gate = auth.DefaultGate()
	}
	if h.limiter == nil {
		h.limiter = auth.DefaultRateLimiter()
	}
	if h.logger == nil {
		h.logger = zap.NewNop()
	}
	if h.audit == nil {
		h.audit = NewAuditLogger(nil, h.logger)
	}
	return h
}

// render wraps data in a web.Page with the session, CSRF token and pending
// flash toasts. Extra toasts are shown after the flashed ones.
func (h *Handlers) render(c echo.Context, status int, name, title string, data any, toasts ...web.Toast) error {
	csrf, _ := c.Get("csrf").(string)

	page := web.Page{
		Title:   title,
		Path:    c.Request().URL.Path,
		Session: auth.SessionFrom(c),
		CSRF:    csrf,
		Toasts:  append(h.flash.Pop(c), toasts...),
		Data:    data,
	}
	return c.Render(status, name, page)
}

// redirect flashes a toast and sends the browser to path with 303
func (h *Handlers) redirect(c echo.Context, path string, toast *web.Toast) error {
	if toast != nil {
		h.flash.Add(c, *toast)
	}
	return c.Redirect(http.StatusSeeOther, path)
}

func success(msg string) web.Toast {
	return web.Toast{Kind: "success", Message: msg}
}

func failure(msg string) web.Toast {
	return web.Toast{Kind: "error", Message: msg}
}
