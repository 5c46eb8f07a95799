package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/statafdev/nomadnest-front/internal/auth"
	"github.com/statafdev/nomadnest-front/internal/gateway"
)

const (
	proxyListingsPath = "/listings"
	maxProxyBody      = 1 << 20 // 1MB
)

// healthCheck handles GET /api/health
func (h *Handlers) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":         "ok",
		"api_configured": h.market.Gateway().Configured(),
	})
}

// proxyListListings handles GET /api/listings by relaying the API response
func (h *Handlers) proxyListListings(c echo.Context) error {
	gw := h.market.Gateway()
	if !gw.Configured() {
		return c.JSON(http.StatusInternalServerError, apiError(gateway.ErrMissingBaseURL.Error()))
	}

	resp, err := gw.Do(c.Request().Context(), gateway.Request{
		Method: http.MethodGet,
		URL:    proxyListingsPath,
	})
	if err != nil {
		h.logger.Error("listings proxy failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, apiError("Unable to reach listings service"))
	}
	return h.relay(c, resp, "Unable to reach listings service")
}

// proxyCreateListing handles POST /api/listings. The session cookie is
// forwarded as a bearer token and the API decides whether it is valid.
func (h *Handlers) proxyCreateListing(c echo.Context) error {
	gw := h.market.Gateway()
	if !gw.Configured() {
		return c.JSON(http.StatusInternalServerError, apiError(gateway.ErrMissingBaseURL.Error()))
	}

	cookie, err := c.Cookie(auth.SessionCookieName)
	if err != nil || cookie.Value == "" {
		return c.JSON(http.StatusUnauthorized, apiError("Authentication required to create listings"))
	}

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxProxyBody))
	if err != nil {
		return c.JSON(http.StatusBadRequest, apiError("invalid request body"))
	}

	resp, err := gw.Do(c.Request().Context(), gateway.Request{
		Method: http.MethodPost,
		URL:    proxyListingsPath,
		Header: http.Header{
			"Authorization": {"Bearer " + cookie.Value},
			"Content-Type":  {echo.MIMEApplicationJSON},
		},
		Body: body,
	})
	if err != nil {
		h.logger.Error("create listing proxy failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, apiError("Unable to publish listing right now"))
	}
	return h.relay(c, resp, "Unable to publish listing right now")
}

// relay copies the upstream status and JSON body. A body that is not JSON is
// treated as a failure.
func (h *Handlers) relay(c echo.Context, resp *http.Response, failMsg string) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil || !json.Valid(body) {
		h.logger.Warn("upstream returned an unreadable body",
			zap.Int("status", resp.StatusCode), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, apiError(failMsg))
	}
	return c.JSONBlob(resp.StatusCode, body)
}
