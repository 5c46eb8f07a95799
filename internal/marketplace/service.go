package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/statafdev/nomadnest-front/internal/gateway"
	"github.com/statafdev/nomadnest-front/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnavailable        = errors.New("marketplace service unavailable")
	ErrRegistration       = errors.New("registration failed")
	ErrCreateListing      = errors.New("failed to create listing")
)

// Candidate endpoints, tried in order
var (
	loginURLs      = []string{"/auth/login", "/api/auth/login"}
	registerURLs   = []string{"/auth/register", "/api/auth/register"}
	currentURLs    = []string{"/auth/me", "/api/auth/me"}
	usersURLs      = []string{"/admin/users", "/users"}
	listingsURLs   = []string{"/listings", "/api/listings"}
	adminListURLs  = []string{"/admin/listings", "/listings"}
	myListingsURLs = []string{"/listings/user/my-listings", "/api/listings/user/my-listings"}
	statsURLs      = []string{"/admin/stats"}
)

func listingURLs(id string) []string {
	id = url.PathEscape(id)
	return []string{"/listings/" + id, "/api/listings/" + id}
}

func deleteUserURLs(id string) []string {
	id = url.PathEscape(id)
	return []string{"/admin/users/" + id, "/users/" + id}
}

func deleteListingURLs(id string) []string {
	id = url.PathEscape(id)
	return []string{"/admin/listings/" + id, "/listings/admin/" + id, "/listings/" + id}
}

// Service exposes the remote marketplace API as typed operations
type Service struct {
	gw     *gateway.Client
	logger *zap.Logger
}

// NewService creates a marketplace service
func NewService(gw *gateway.Client, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{gw: gw, logger: logger}
}

// Gateway returns the underlying gateway client
func (s *Service) Gateway() *gateway.Client {
	return s.gw
}

// credentials sends the token both ways the API accepts it
func credentials(token string) []gateway.RequestOption {
	return []gateway.RequestOption{gateway.WithBearer(token), gateway.WithSessionCookie(token)}
}

// Login exchanges credentials for an API token
func (s *Service) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	body, err := s.gw.FetchJSON(ctx, http.MethodPost, loginURLs,
		gateway.WithJSONBody(models.LoginRequest{Email: email, Password: password}))
	if err != nil {
		return nil, classify(err, ErrInvalidCredentials)
	}

	var resp models.LoginResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Token == "" {
		if inner, ok := gateway.UnwrapObject(body, "data"); ok {
			resp = models.LoginResponse{}
			_ = json.Unmarshal(inner, &resp)
		}
	}
	if resp.Token == "" {
		return nil, fmt.Errorf("%w: login response carried no token", ErrUnavailable)
	}
	return &resp, nil
}

// Register creates an account. token is sent when an admin creates another
// admin; it is empty for self-registration.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest, token string) error {
	opts := append(credentials(token), gateway.WithJSONBody(req))
	ok, err := s.gw.MutateSequential(ctx, http.MethodPost, registerURLs, opts...)
	if !ok {
		return classify(err, ErrRegistration)
	}
	return nil
}

// CurrentUser returns the account behind token
func (s *Service) CurrentUser(ctx context.Context, token string) (*models.User, error) {
	obj, err := s.gw.FetchObject(ctx, currentURLs, []string{"data", "user"}, credentials(token)...)
	if err != nil {
		if errors.Is(err, gateway.ErrMissingBaseURL) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load current user: %w", err)
	}

	var user models.User
	if err := json.Unmarshal(obj, &user); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	return &user, nil
}

// ListListings returns every public listing, or an empty list
func (s *Service) ListListings(ctx context.Context) []models.Listing {
	return gateway.FetchInto[models.Listing](ctx, s.gw, listingsURLs)
}

// AdminListings returns every listing as seen by an admin
func (s *Service) AdminListings(ctx context.Context, token string) []models.Listing {
	return gateway.FetchInto[models.Listing](ctx, s.gw, adminListURLs, credentials(token)...)
}

// MyListings returns the listings owned by the token's user
func (s *Service) MyListings(ctx context.Context, token string) []models.Listing {
	return gateway.FetchInto[models.Listing](ctx, s.gw, myListingsURLs, credentials(token)...)
}

// ListUsers returns every account, or an empty list
func (s *Service) ListUsers(ctx context.Context, token string) []models.User {
	return gateway.FetchInto[models.User](ctx, s.gw, usersURLs, credentials(token)...)
}

// GetListing returns one listing. Any read failure is reported as
// gateway.ErrNotFound unless the base URL is missing.
func (s *Service) GetListing(ctx context.Context, id, token string) (*models.Listing, error) {
	obj, err := s.gw.FetchObject(ctx, listingURLs(id), []string{"data", "listing"}, credentials(token)...)
	if err != nil {
		if errors.Is(err, gateway.ErrMissingBaseURL) {
			return nil, err
		}
		s.logger.Debug("listing unavailable", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("listing %s: %w", id, gateway.ErrNotFound)
	}

	var listing models.Listing
	if err := json.Unmarshal(obj, &listing); err != nil {
		return nil, fmt.Errorf("listing %s: %w", id, gateway.ErrNotFound)
	}
	return &listing, nil
}

// CreateListing submits a draft whose images are already uploaded. It returns
// the new listing id when the API reports one.
func (s *Service) CreateListing(ctx context.Context, token string, draft models.ListingDraft) (string, error) {
	opts := append(credentials(token), gateway.WithJSONBody(draft))
	body, err := s.gw.FetchJSON(ctx, http.MethodPost, listingsURLs, opts...)
	if err != nil {
		return "", classify(err, ErrCreateListing)
	}

	obj, ok := gateway.UnwrapObject(body, "data", "listing")
	if !ok {
		return "", nil
	}
	var created models.Listing
	if err := json.Unmarshal(obj, &created); err != nil {
		return "", nil
	}
	return created.ID, nil
}

// DeleteUser removes an account. The caller updates its view only on true.
func (s *Service) DeleteUser(ctx context.Context, token, id string) (bool, error) {
	return s.gw.MutateSequential(ctx, http.MethodDelete, deleteUserURLs(id), credentials(token)...)
}

// DeleteListing removes a listing. The caller updates its view only on true.
func (s *Service) DeleteListing(ctx context.Context, token, id string) (bool, error) {
	return s.gw.MutateSequential(ctx, http.MethodDelete, deleteListingURLs(id), credentials(token)...)
}

// classify keeps configuration and transport failures distinct from API
// rejections, which are wrapped with rejected
func classify(err, rejected error) error {
	switch {
	case errors.Is(err, gateway.ErrMissingBaseURL):
		return err
	case errors.Is(err, gateway.ErrNetwork), errors.Is(err, gateway.ErrServer):
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	default:
		return fmt.Errorf("%w: %w", rejected, err)
	}
}
