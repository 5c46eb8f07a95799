package api

import (
	"github.com/labstack/echo/v4"

	"github.com/statafdev/nomadnest-front/internal/auth"
	"github.com/statafdev/nomadnest-front/internal/models"
)

// RegisterRoutes sets up the pages and the /api proxy
func (h *Handlers) RegisterRoutes(e *echo.Echo) {
	// JSON proxy (CSRF exempt)
	api := e.Group("/api")
	api.GET("/health", h.healthCheck)
	api.GET("/listings", h.proxyListListings)
	api.POST("/listings", h.proxyCreateListing)

	// Public pages
	e.GET("/", h.home)
	e.GET("/listings", h.browse)
	e.GET("/listings/:id", h.showListing)

	// Session
	e.GET("/login", h.showLogin)
	e.POST("/login", h.login, h.limiter.Middleware())
	e.GET("/register", h.showRegister)
	e.POST("/register", h.register)
	e.POST("/logout", h.logout)

	// Client area, guarded by the route gate
	client := e.Group("/client")
	client.GET("", h.dashboard)
	client.GET("/my-listings", h.myListings)
	client.GET("/my-listings/:id", h.myListing)
	client.GET("/profile", h.profile)
	client.GET("/create", h.showCreateListing)
	client.POST("/create", h.createListing)

	// Back office (admins only)
	admin := e.Group("/admin", h.resolveRole, auth.RequireRole(h.gate, models.RoleAdmin))
	admin.GET("", h.adminDashboard)
	admin.GET("/activity/:id", h.activityEntry)
	admin.POST("/users/:id/delete", h.deleteUser)
	admin.POST("/listings/:id/delete", h.deleteListing)
	admin.GET("/create-admin", h.showCreateAdmin)
	admin.POST("/create-admin", h.createAdmin)
}
