package marketplace

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/statafdev/nomadnest-front/internal/gateway"
	"github.com/statafdev/nomadnest-front/internal/models"
)

// AdminView is the per-request state behind the back-office page. It is
// owned by one handler and never shared.
type AdminView struct {
	Users    []models.User
	Listings []models.Listing
	Stats    models.Stats
}

// LoadAdminView fetches users, listings and stats concurrently, then resolves
// stats against the fetched collections. Read failures leave the
// corresponding part empty; only cancellation is returned as an error.
func (s *Service) LoadAdminView(ctx context.Context, token string) (*AdminView, error) {
	view := &AdminView{}
	var statsBody []byte

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		view.Users = s.ListUsers(gctx, token)
		return gctx.Err()
	})
	g.Go(func() error {
		view.Listings = s.AdminListings(gctx, token)
		return gctx.Err()
	})
	g.Go(func() error {
		body, err := s.gw.FetchJSON(gctx, http.MethodGet, statsURLs, credentials(token)...)
		if err != nil {
			s.logger.Debug("stats endpoint unavailable, computing locally", zap.Error(err))
			return gctx.Err()
		}
		statsBody = body
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	view.Stats = gateway.ResolveStats(statsBody, view.Users, view.Listings)
	return view, nil
}

// RemoveUser drops the user and every listing it owns, whether the owner is
// a bare id or an embedded object, and adjusts the totals. It returns the
// number of listings removed.
func (v *AdminView) RemoveUser(id string) int {
	before := len(v.Users)
	v.Users = slices.DeleteFunc(v.Users, func(u models.User) bool {
		return u.ID == id
	})
	if len(v.Users) < before {
		v.Stats.TotalUsers = floor(v.Stats.TotalUsers - (before - len(v.Users)))
	}

	removed := 0
	v.Listings = slices.DeleteFunc(v.Listings, func(l models.Listing) bool {
		if !l.OwnedBy(id) {
			return false
		}
		v.forgetListing(l)
		removed++
		return true
	})
	return removed
}

// RemoveListing drops one listing and adjusts the totals
func (v *AdminView) RemoveListing(id string) bool {
	found := false
	v.Listings = slices.DeleteFunc(v.Listings, func(l models.Listing) bool {
		if l.ID != id {
			return false
		}
		v.forgetListing(l)
		found = true
		return true
	})
	return found
}

func (v *AdminView) forgetListing(l models.Listing) {
	v.Stats.TotalListings = floor(v.Stats.TotalListings - 1)
	if loc := strings.TrimSpace(l.Location); loc != "" && v.Stats.ByLocation != nil {
		if n := v.Stats.ByLocation[loc] - 1; n > 0 {
			v.Stats.ByLocation[loc] = n
		} else {
			delete(v.Stats.ByLocation, loc)
		}
	}
}

// UserListingCount returns how many held listings belong to the user
func (v *AdminView) UserListingCount(id string) int {
	n := 0
	for i := range v.Listings {
		if v.Listings[i].OwnedBy(id) {
			n++
		}
	}
	return n
}

func floor(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// FilterListings returns listings whose title, location or category contains
// q, case-insensitively. An empty query returns all listings.
func FilterListings(listings []models.Listing, q string) []models.Listing {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return listings
	}

	out := make([]models.Listing, 0, len(listings))
	for _, l := range listings {
		if strings.Contains(strings.ToLower(l.Title), q) ||
			strings.Contains(strings.ToLower(l.Location), q) ||
			strings.Contains(strings.ToLower(l.Category), q) {
			out = append(out, l)
		}
	}
	return out
}
