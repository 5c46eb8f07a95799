package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/statafdev/nomadnest-front/internal/auth"
	"github.com/statafdev/nomadnest-front/internal/gateway"
	"github.com/statafdev/nomadnest-front/internal/marketplace"
	"github.com/statafdev/nomadnest-front/internal/models"
)

const featuredCount = 6

type listingsPage struct {
	Query    string
	Listings []models.Listing
	Total    int
}

type listingPage struct {
	Listing *models.Listing
	Back    string
	Owned   bool
}

// home handles GET /
func (h *Handlers) home(c echo.Context) error {
	listings := h.market.ListListings(c.Request().Context())
	if len(listings) > featuredCount {
		listings = listings[:featuredCount]
	}
	return h.render(c, http.StatusOK, "home.html", "", listingsPage{Listings: listings})
}

// browse handles GET /listings with an optional ?q= filter
func (h *Handlers) browse(c echo.Context) error {
	all := h.market.ListListings(c.Request().Context())
	q := strings.TrimSpace(c.QueryParam("q"))

	return h.render(c, http.StatusOK, "listings.html", "Browse stays", listingsPage{
		Query:    q,
		Listings: marketplace.FilterListings(all, q),
		Total:    len(all),
	})
}

// showListing handles GET /listings/:id
func (h *Handlers) showListing(c echo.Context) error {
	sess := auth.SessionFrom(c)
	var token string
	if sess != nil {
		token = sess.Token
	}

	listing, err := h.loadListing(c, c.Param("id"), token)
	if err != nil {
		return err
	}
	return h.render(c, http.StatusOK, "listing.html", listing.Title, listingPage{
		Listing: listing,
		Back:    "/listings",
		Owned:   sess != nil && listing.OwnedBy(sess.UserID()),
	})
}

// loadListing fetches one listing, turning read failures into a 404
func (h *Handlers) loadListing(c echo.Context, id, token string) (*models.Listing, error) {
	listing, err := h.market.GetListing(c.Request().Context(), id, token)
	if err != nil {
		if errors.Is(err, gateway.ErrMissingBaseURL) {
			return nil, echo.NewHTTPError(http.StatusInternalServerError, msgNotConfigured).SetInternal(err)
		}
		return nil, echo.NewHTTPError(http.StatusNotFound, "Listing not found")
	}
	return listing, nil
}
