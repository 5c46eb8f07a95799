package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/statafdev/nomadnest-front/internal/auth"
	"github.com/statafdev/nomadnest-front/internal/logger"
	"github.com/statafdev/nomadnest-front/internal/web"
)

// ServerOptions tune the echo instance built by NewServer
type ServerOptions struct {
	Production bool
	// UploadDir is served under /uploads when images are stored on disk
	UploadDir string
}

// NewServer builds the echo instance with middleware, renderer and routes
func NewServer(h *Handlers, log *zap.Logger, opts ServerOptions) (*echo.Echo, error) {
	renderer, err := web.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = renderer
	e.Validator = NewValidator()
	e.HTTPErrorHandler = h.HTTPErrorHandler

	e.Pre(middleware.RemoveTrailingSlash())

	e.Use(middleware.Recover())
	e.Use(logger.RequestID())
	e.Use(logger.RequestLogger(log))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))
	// listing photos are the largest bodies: up to eight 10MB images
	e.Use(middleware.BodyLimit("90M"))
	e.Use(auth.LoadSession(h.sessions))
	e.Use(auth.RouteGate(h.gate))
	e.Use(middleware.CSRFWithConfig(middleware.CSRFConfig{
		TokenLookup:    "form:_csrf",
		CookieName:     "_csrf",
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSecure:   opts.Production,
		CookieSameSite: http.SameSiteLaxMode,
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Request().URL.Path, "/api/")
		},
	}))

	e.StaticFS("/static", web.Static())
	if opts.UploadDir != "" {
		e.Static("/uploads", opts.UploadDir)
	}

	h.RegisterRoutes(e)
	return e, nil
}
