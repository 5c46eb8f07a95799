package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/statafdev/nomadnest-front/internal/gateway"
	"github.com/statafdev/nomadnest-front/internal/marketplace"
	"github.com/statafdev/nomadnest-front/internal/models"
)

const (
	msgNotConfigured = "The marketplace API is not configured."
	msgUnavailable   = "The marketplace is unreachable right now. Please try again."
)

type loginForm struct {
	Email    string `form:"email" validate:"required,email"`
	Password string `form:"password" validate:"required"`
}

type loginPage struct {
	Email string
	Error string
	// Remaining is set after a rejected attempt
	Remaining int
}

type registerForm struct {
	Username        string `form:"username" validate:"required,min=3,max=32"`
	Email           string `form:"email" validate:"required,email"`
	Password        string `form:"password" validate:"required,min=8"`
	PasswordConfirm string `form:"passwordConfirm" validate:"required,eqfield=Password"`
}

type registerPage struct {
	Form  registerForm
	Error string
}

// showLogin handles GET /login
func (h *Handlers) showLogin(c echo.Context) error {
	return h.render(c, http.StatusOK, "login.html", "Log in", loginPage{})
}

// login handles POST /login
func (h *Handlers) login(c echo.Context) error {
	var form loginForm
	if err := c.Bind(&form); err != nil {
		return h.render(c, http.StatusBadRequest, "login.html", "Log in",
			loginPage{Error: "Invalid request"})
	}
	if err := c.Validate(&form); err != nil {
		return h.render(c, http.StatusUnprocessableEntity, "login.html", "Log in",
			loginPage{Email: form.Email, Error: "Email and password are required"})
	}

	resp, err := h.market.Login(c.Request().Context(), form.Email, form.Password)
	if err != nil {
		page := loginPage{Email: form.Email}
		status := http.StatusUnauthorized
		switch {
		case errors.Is(err, gateway.ErrMissingBaseURL):
			page.Error, status = msgNotConfigured, http.StatusInternalServerError
		case errors.Is(err, marketplace.ErrUnavailable):
			h.logger.Warn("login unavailable", zap.Error(err))
			page.Error, status = msgUnavailable, http.StatusServiceUnavailable
		default:
			page.Error = "Invalid email or password"
			page.Remaining = h.limiter.RemainingAttempts(c.RealIP())
		}
		return h.render(c, status, "login.html", "Log in", page)
	}

	h.limiter.RecordSuccess(c.RealIP())
	h.sessions.CreateSession(c.Response(), resp.Token)
	h.audit.Log(resp.User.ID, resp.User.Email, models.ActionLogin, "", nil, c.RealIP())

	dest := h.gate.ClientHome
	if resp.User.IsAdmin() {
		dest = h.gate.AdminHome
	} else if sess, err := h.sessions.VerifyToken(resp.Token); err == nil {
		dest = h.gate.Landing(sess)
	}

	welcome := success("Welcome back!")
	if resp.User.Username != "" {
		welcome = success("Welcome back, " + resp.User.Username + "!")
	}
	return h.redirect(c, dest, &welcome)
}

// logout handles POST /logout
func (h *Handlers) logout(c echo.Context) error {
	h.audit.LogFromContext(c, models.ActionLogout, "", nil)
	h.sessions.DeleteSession(c.Response())

	bye := success("You have been logged out.")
	return h.redirect(c, "/login", &bye)
}

// showRegister handles GET /register
func (h *Handlers) showRegister(c echo.Context) error {
	return h.render(c, http.StatusOK, "register.html", "Sign up", registerPage{})
}

// register handles POST /register
func (h *Handlers) register(c echo.Context) error {
	var form registerForm
	if err := c.Bind(&form); err != nil {
		return h.render(c, http.StatusBadRequest, "register.html", "Sign up",
			registerPage{Error: "Invalid request"})
	}

	page := registerPage{Form: registerForm{Username: form.Username, Email: form.Email}}
	if err := c.Validate(&form); err != nil {
		page.Error = validationMessages(err)[0]
		return h.render(c, http.StatusUnprocessableEntity, "register.html", "Sign up", page)
	}

	err := h.market.Register(c.Request().Context(), models.RegisterRequest{
		Username:        form.Username,
		Email:           form.Email,
		Password:        form.Password,
		PasswordConfirm: form.PasswordConfirm,
		Role:            models.RoleUser,
	}, "")
	if err != nil {
		status, msg := registrationFailure(err)
		if status >= http.StatusInternalServerError {
			h.logger.Warn("registration failed", zap.Error(err))
		}
		page.Error = msg
		return h.render(c, status, "register.html", "Sign up", page)
	}

	created := success("Account created. Please log in.")
	return h.redirect(c, h.gate.LoginPath, &created)
}

// registrationFailure maps a Register error to a status and the message
// shown above the form, preferring the API's own wording
func registrationFailure(err error) (int, string) {
	switch {
	case errors.Is(err, gateway.ErrMissingBaseURL):
		return http.StatusInternalServerError, msgNotConfigured
	case errors.Is(err, marketplace.ErrUnavailable):
		return http.StatusServiceUnavailable, msgUnavailable
	}
	if msg := gateway.APIMessage(err); msg != "" {
		return http.StatusBadRequest, msg
	}
	return http.StatusBadRequest, "Registration failed. Please check your details."
}
