package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type errorPage struct {
	Code    int
	Message string
}

// HTTPErrorHandler answers /api requests with a JSON envelope and everything
// else with the error page
func (h *Handlers) HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := http.StatusText(code)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		msg = fmt.Sprint(he.Message)
		if he.Internal != nil {
			err = he.Internal
		}
	}

	if code >= http.StatusInternalServerError {
		h.logger.Error("request error",
			zap.String("method", c.Request().Method),
			zap.String("path", c.Request().URL.Path),
			zap.Int("status", code),
			zap.Error(err))
		if he == nil {
			msg = "Something went wrong. Please try again."
		}
	}

	if strings.HasPrefix(c.Request().URL.Path, "/api/") {
		err = c.JSON(code, apiError(msg))
	} else if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = h.render(c, code, "error.html", http.StatusText(code), errorPage{Code: code, Message: msg})
	}
	if err != nil {
		h.logger.Error("failed to write error response", zap.Error(err))
	}
}

func apiError(msg string) map[string]string {
	return map[string]string{"status": "error", "message": msg}
}
