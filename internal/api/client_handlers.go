package api

import (
	"errors"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/statafdev/nomadnest-front/internal/auth"
	"github.com/statafdev/nomadnest-front/internal/blob"
	"github.com/statafdev/nomadnest-front/internal/gateway"
	"github.com/statafdev/nomadnest-front/internal/marketplace"
	"github.com/statafdev/nomadnest-front/internal/models"
)

const maxListingImages = 8

type dashboardPage struct {
	User     *models.User
	Listings []models.Listing
}

type myListingsPage struct {
	Listings []models.Listing
}

type profilePage struct {
	User *models.User
}

type listingForm struct {
	Title       string  `form:"title"`
	Description string  `form:"description"`
	Price       float64 `form:"price"`
	Location    string  `form:"location"`
	Category    string  `form:"category"`
	MaxGuests   int     `form:"maxGuests"`
	Bedrooms    int     `form:"bedrooms"`
	Bathrooms   int     `form:"bathrooms"`
	Amenities   string  `form:"amenities"`
}

func (f listingForm) draft() models.ListingDraft {
	var amenities []string
	for _, a := range strings.Split(f.Amenities, ",") {
		if a = strings.TrimSpace(a); a != "" {
			amenities = append(amenities, a)
		}
	}
	return models.ListingDraft{
		Title:       strings.TrimSpace(f.Title),
		Description: strings.TrimSpace(f.Description),
		Price:       f.Price,
		Location:    strings.TrimSpace(f.Location),
		Category:    strings.TrimSpace(f.Category),
		Images:      []string{},
		Amenities:   amenities,
		MaxGuests:   f.MaxGuests,
		Bedrooms:    f.Bedrooms,
		Bathrooms:   f.Bathrooms,
	}
}

type createPage struct {
	Form   models.ListingDraft
	Errors []string
}

// sessionUser resolves the signed-in account. When the API cannot answer the
// claims stand in, so the result is never nil.
func (h *Handlers) sessionUser(c echo.Context, sess *auth.SessionContext) *models.User {
	user, err := h.market.CurrentUser(c.Request().Context(), sess.Token)
	if err == nil && user.ID != "" {
		return user
	}
	if err != nil {
		h.logger.Debug("falling back to session claims", zap.Error(err))
	}
	return claimsUser(sess)
}

func claimsUser(sess *auth.SessionContext) *models.User {
	return &models.User{
		ID:       sess.UserID(),
		Username: sess.Claims.Username,
		Email:    sess.Claims.Email,
		Role:     sess.Claims.Role,
	}
}

// dashboard handles GET /client
func (h *Handlers) dashboard(c echo.Context) error {
	sess := auth.SessionFrom(c)
	page := dashboardPage{}

	g, ctx := errgroup.WithContext(c.Request().Context())
	g.Go(func() error {
		user, err := h.market.CurrentUser(ctx, sess.Token)
		if err != nil {
			h.logger.Debug("falling back to session claims", zap.Error(err))
			return nil
		}
		page.User = user
		return nil
	})
	g.Go(func() error {
		page.Listings = h.market.MyListings(ctx, sess.Token)
		return nil
	})
	_ = g.Wait()

	if page.User == nil || page.User.ID == "" {
		page.User = claimsUser(sess)
	}
	return h.render(c, http.StatusOK, "client.html", "Dashboard", page)
}

// myListings handles GET /client/my-listings
func (h *Handlers) myListings(c echo.Context) error {
	sess := auth.SessionFrom(c)
	listings := h.market.MyListings(c.Request().Context(), sess.Token)
	return h.render(c, http.StatusOK, "my_listings.html", "My listings", myListingsPage{Listings: listings})
}

// myListing handles GET /client/my-listings/:id
func (h *Handlers) myListing(c echo.Context) error {
	sess := auth.SessionFrom(c)
	listing, err := h.loadListing(c, c.Param("id"), sess.Token)
	if err != nil {
		return err
	}
	return h.render(c, http.StatusOK, "listing.html", listing.Title, listingPage{
		Listing: listing,
		Back:    "/client/my-listings",
		Owned:   listing.OwnedBy(sess.UserID()),
	})
}

// profile handles GET /client/profile
func (h *Handlers) profile(c echo.Context) error {
	sess := auth.SessionFrom(c)
	return h.render(c, http.StatusOK, "profile.html", "Profile", profilePage{User: h.sessionUser(c, sess)})
}

// showCreateListing handles GET /client/create
func (h *Handlers) showCreateListing(c echo.Context) error {
	return h.render(c, http.StatusOK, "create.html", "New listing", createPage{})
}

// createListing handles POST /client/create. Images are uploaded to the blob
// store first and only their URLs reach the API.
func (h *Handlers) createListing(c echo.Context) error {
	sess := auth.SessionFrom(c)

	var form listingForm
	if err := c.Bind(&form); err != nil {
		return h.render(c, http.StatusBadRequest, "create.html", "New listing",
			createPage{Errors: []string{"Invalid form submission"}})
	}

	page := createPage{Form: form.draft()}
	if err := c.Validate(&page.Form); err != nil {
		page.Errors = validationMessages(err)
		return h.render(c, http.StatusUnprocessableEntity, "create.html", "New listing", page)
	}

	var files []*multipart.FileHeader
	if mf, err := c.MultipartForm(); err == nil {
		files = mf.File["images"]
	}
	if len(files) > maxListingImages {
		page.Errors = []string{"You can attach at most 8 photos"}
		return h.render(c, http.StatusUnprocessableEntity, "create.html", "New listing", page)
	}
	if len(files) > 0 && h.blobs == nil {
		page.Errors = []string{blob.ErrNotSupported.Error()}
		return h.render(c, http.StatusUnprocessableEntity, "create.html", "New listing", page)
	}

	// reject the whole batch before anything reaches the store
	for _, fh := range files {
		if err := blob.CheckImage(fh); err != nil {
			page.Errors = []string{err.Error()}
			return h.render(c, http.StatusUnprocessableEntity, "create.html", "New listing", page)
		}
	}

	ctx := c.Request().Context()
	images := make([]string, 0, len(files))
	for _, fh := range files {
		src, err := blob.UploadImage(ctx, h.blobs, fh)
		if err != nil {
			status := http.StatusUnprocessableEntity
			msg := err.Error()
			if !errors.Is(err, blob.ErrTooLarge) && !errors.Is(err, blob.ErrNotImage) && !errors.Is(err, blob.ErrEmptyFile) {
				h.logger.Error("image upload failed", zap.String("file", fh.Filename), zap.Error(err))
				status = http.StatusBadGateway
				msg = "Failed to upload " + fh.Filename
			}
			page.Errors = []string{msg}
			return h.render(c, status, "create.html", "New listing", page)
		}
		images = append(images, src)
	}
	draft := page.Form
	draft.Images = images

	id, err := h.market.CreateListing(ctx, sess.Token, draft)
	if err != nil {
		status, msg := http.StatusBadRequest, "Could not publish the listing."
		switch {
		case errors.Is(err, gateway.ErrMissingBaseURL):
			status, msg = http.StatusInternalServerError, msgNotConfigured
		case errors.Is(err, marketplace.ErrUnavailable):
			status, msg = http.StatusServiceUnavailable, msgUnavailable
		default:
			if apiMsg := gateway.APIMessage(err); apiMsg != "" {
				msg = apiMsg
			}
		}
		h.logger.Warn("create listing failed", zap.Error(err))
		page.Errors = []string{msg}
		return h.render(c, status, "create.html", "New listing", page)
	}

	h.audit.LogFromContext(c, models.ActionListingCreate, id, map[string]any{
		"title":  draft.Title,
		"images": len(images),
	})

	published := success("Listing published.")
	dest := "/client/my-listings"
	if id != "" {
		dest += "/" + url.PathEscape(id)
	}
	return h.redirect(c, dest, &published)
}
