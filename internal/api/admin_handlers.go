package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/statafdev/nomadnest-front/internal/auth"
	"github.com/statafdev/nomadnest-front/internal/database"
	"github.com/statafdev/nomadnest-front/internal/gateway"
	"github.com/statafdev/nomadnest-front/internal/marketplace"
	"github.com/statafdev/nomadnest-front/internal/models"
	"github.com/statafdev/nomadnest-front/internal/web"
)

const (
	tabStats    = "stats"
	tabListings = "listings"
	tabUsers    = "users"
	tabActivity = "activity"
)

type adminPage struct {
	Tab      string
	View     *marketplace.AdminView
	Logs     []*models.AuditLog
	LogTotal int
}

type createAdminPage struct {
	Form  registerForm
	Error string
}

func adminTab(raw string) string {
	switch raw {
	case tabListings, tabUsers, tabActivity:
		return raw
	default:
		return tabStats
	}
}

// resolveRole fills a missing role claim from the API so RequireRole can
// decide on tokens that do not carry one
func (h *Handlers) resolveRole(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		sess := auth.SessionFrom(c)
		if sess != nil && sess.Claims.Role == "" {
			user, err := h.market.CurrentUser(c.Request().Context(), sess.Token)
			if err != nil {
				h.logger.Debug("could not resolve role", zap.Error(err))
			} else {
				sess.Claims.Role = user.Role
			}
		}
		return next(c)
	}
}

// adminDashboard handles GET /admin?tab=
func (h *Handlers) adminDashboard(c echo.Context) error {
	tab := adminTab(c.QueryParam("tab"))
	if tab == tabActivity {
		return h.renderActivity(c)
	}

	view, err := h.loadAdminView(c)
	if err != nil {
		return err
	}
	return h.renderAdmin(c, tab, view)
}

func (h *Handlers) loadAdminView(c echo.Context) (*marketplace.AdminView, error) {
	sess := auth.SessionFrom(c)
	view, err := h.market.LoadAdminView(c.Request().Context(), sess.Token)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusServiceUnavailable, "Request cancelled").SetInternal(err)
	}
	return view, nil
}

func (h *Handlers) renderAdmin(c echo.Context, tab string, view *marketplace.AdminView, toasts ...web.Toast) error {
	return h.render(c, http.StatusOK, "admin.html", "Back office", adminPage{Tab: tab, View: view}, toasts...)
}

func (h *Handlers) renderActivity(c echo.Context) error {
	logs, total, err := h.audit.List(auditFilterFromQuery(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load activity").SetInternal(err)
	}
	return h.render(c, http.StatusOK, "admin.html", "Activity", adminPage{
		Tab:      tabActivity,
		Logs:     logs,
		LogTotal: total,
	})
}

// activityEntry handles GET /admin/activity/:id
func (h *Handlers) activityEntry(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusNotFound, "Activity entry not found")
	}

	entry, err := h.audit.Get(id)
	if errors.Is(err, database.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Activity entry not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load activity").SetInternal(err)
	}
	return h.render(c, http.StatusOK, "activity.html", "Activity", entry)
}

// deleteUser handles POST /admin/users/:id/delete. The page state changes
// only after the API confirms the delete, and the user's listings go with it.
func (h *Handlers) deleteUser(c echo.Context) error {
	id := c.Param("id")
	sess := auth.SessionFrom(c)

	view, err := h.loadAdminView(c)
	if err != nil {
		return err
	}

	ok, err := h.market.DeleteUser(c.Request().Context(), sess.Token, id)
	if !ok {
		h.logger.Warn("delete user failed", zap.String("id", id), zap.Error(err))
		return h.renderAdmin(c, tabUsers, view, failure(mutationFailure("Failed to delete user", err)))
	}

	removed := view.RemoveUser(id)
	h.audit.LogFromContext(c, models.ActionUserDelete, id, map[string]any{"listings_removed": removed})

	msg := "User deleted."
	if removed > 0 {
		msg = fmt.Sprintf("User deleted along with %d listing(s).", removed)
	}
	return h.renderAdmin(c, tabUsers, view, success(msg))
}

// deleteListing handles POST /admin/listings/:id/delete
func (h *Handlers) deleteListing(c echo.Context) error {
	id := c.Param("id")
	sess := auth.SessionFrom(c)

	view, err := h.loadAdminView(c)
	if err != nil {
		return err
	}

	ok, err := h.market.DeleteListing(c.Request().Context(), sess.Token, id)
	if !ok {
		h.logger.Warn("delete listing failed", zap.String("id", id), zap.Error(err))
		return h.renderAdmin(c, tabListings, view, failure(mutationFailure("Failed to delete listing", err)))
	}

	view.RemoveListing(id)
	h.audit.LogFromContext(c, models.ActionListingDelete, id, nil)
	return h.renderAdmin(c, tabListings, view, success("Listing deleted."))
}

func mutationFailure(prefix string, err error) string {
	switch {
	case errors.Is(err, gateway.ErrMissingBaseURL):
		return msgNotConfigured
	case errors.Is(err, gateway.ErrNetwork), errors.Is(err, gateway.ErrServer):
		return prefix + ". " + msgUnavailable
	}
	if msg := gateway.APIMessage(err); msg != "" {
		return prefix + ": " + msg
	}
	return prefix + "."
}

// showCreateAdmin handles GET /admin/create-admin
func (h *Handlers) showCreateAdmin(c echo.Context) error {
	return h.render(c, http.StatusOK, "create_admin.html", "Create admin", createAdminPage{})
}

// createAdmin handles POST /admin/create-admin
func (h *Handlers) createAdmin(c echo.Context) error {
	sess := auth.SessionFrom(c)

	var form registerForm
	if err := c.Bind(&form); err != nil {
		return h.render(c, http.StatusBadRequest, "create_admin.html", "Create admin",
			createAdminPage{Error: "Invalid request"})
	}

	page := createAdminPage{Form: registerForm{Username: form.Username, Email: form.Email}}
	if err := c.Validate(&form); err != nil {
		page.Error = validationMessages(err)[0]
		return h.render(c, http.StatusUnprocessableEntity, "create_admin.html", "Create admin", page)
	}

	err := h.market.Register(c.Request().Context(), models.RegisterRequest{
		Username:        form.Username,
		Email:           form.Email,
		Password:        form.Password,
		PasswordConfirm: form.PasswordConfirm,
		Role:            models.RoleAdmin,
	}, sess.Token)
	if err != nil {
		status, msg := registrationFailure(err)
		h.logger.Warn("create admin failed", zap.Error(err))
		page.Error = msg
		return h.render(c, status, "create_admin.html", "Create admin", page)
	}

	h.audit.LogFromContext(c, models.ActionAdminCreate, form.Email, map[string]any{"username": form.Username})

	created := success("Admin account created for " + form.Email + ".")
	return h.redirect(c, "/admin?tab="+tabUsers, &created)
}
