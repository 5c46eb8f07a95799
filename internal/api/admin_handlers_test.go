package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statafdev/nomadnest-front/internal/database"
	"github.com/statafdev/nomadnest-front/internal/models"
)

const (
	adminUsers = `{"data":[
		{"_id":"u1","username":"nina","email":"nina@example.com","role":"user"},
		{"_id":"u2","username":"omar","email":"omar@example.com","role":"user"}
	]}`
	adminListings = `{"listings":[
		{"_id":"l1","title":"Harbour Loft","location":"Lisbon","owner":"u1"},
		{"_id":"l2","title":"Alfama Studio","location":"Lisbon","owner":{"_id":"u1","username":"nina"}},
		{"_id":"l3","title":"Canal House","location":"Porto","owner":"u2"}
	]}`
)

func backOffice(deleteUser, deleteListing http.HandlerFunc) map[string]http.HandlerFunc {
	handlers := map[string]http.HandlerFunc{
		"GET /admin/users":    jsonReply(http.StatusOK, adminUsers),
		"GET /admin/listings": jsonReply(http.StatusOK, adminListings),
	}
	if deleteUser != nil {
		handlers["DELETE /admin/users/u1"] = deleteUser
	}
	if deleteListing != nil {
		handlers["DELETE /admin/listings/l3"] = deleteListing
	}
	return handlers
}

func TestAdmin_RequiresAdminRole(t *testing.T) {
	env := newTestEnv(t, backOffice(nil, nil))

	rec := env.get("/admin", "")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get(echo.HeaderLocation))

	rec = env.get("/admin", sessionToken(t, "u1", models.RoleUser))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/client", rec.Header().Get(echo.HeaderLocation))
}

func TestAdmin_ResolvesMissingRoleFromAPI(t *testing.T) {
	handlers := backOffice(nil, nil)
	handlers["GET /auth/me"] = jsonReply(http.StatusOK, `{"user":{"_id":"a1","role":"admin"}}`)
	env := newTestEnv(t, handlers)

	rec := env.get("/admin?tab=users", sessionToken(t, "a1", ""))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "omar@example.com")
}

func TestAdmin_StatsFallBackToLoadedRecords(t *testing.T) {
	env := newTestEnv(t, backOffice(nil, nil))

	rec := env.get("/admin", sessionToken(t, "a1", models.RoleAdmin))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "Lisbon")
	assert.Contains(t, body, "computed from the records")
}

func TestAdminDeleteUser_RemovesOwnedListings(t *testing.T) {
	env := newTestEnv(t, backOffice(jsonReply(http.StatusOK, `{"status":"success"}`), nil))
	token := sessionToken(t, "a1", models.RoleAdmin)

	rec := env.postForm("/admin/users/u1/delete", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "User deleted along with 2 listing(s).")
	assert.NotContains(t, body, "nina@example.com")
	assert.Contains(t, body, "omar@example.com")
	assert.Contains(t, env.api.Hits(), "DELETE /admin/users/u1")
}

func TestAdminDeleteUser_FailureKeepsView(t *testing.T) {
	env := newTestEnv(t, backOffice(jsonReply(http.StatusInternalServerError, `{}`), nil))
	token := sessionToken(t, "a1", models.RoleAdmin)

	rec := env.postForm("/admin/users/u1/delete", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "Failed to delete user")
	assert.Contains(t, body, "nina@example.com")

	// every candidate is tried once, in order
	var deletes []string
	for _, hit := range env.api.Hits() {
		if strings.HasPrefix(hit, "DELETE ") {
			deletes = append(deletes, hit)
		}
	}
	assert.Equal(t, []string{"DELETE /admin/users/u1", "DELETE /users/u1"}, deletes)
}

func TestAdminDeleteListing_UsesFallbackEndpoint(t *testing.T) {
	handlers := backOffice(nil, nil)
	handlers["DELETE /listings/admin/l3"] = jsonReply(http.StatusNoContent, "")
	env := newTestEnv(t, handlers)

	rec := env.postForm("/admin/listings/l3/delete", sessionToken(t, "a1", models.RoleAdmin), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "Listing deleted.")
	assert.NotContains(t, body, "Canal House")
	assert.Contains(t, body, "Harbour Loft")
	assert.NotContains(t, env.api.Hits(), "DELETE /listings/l3")
}

func TestCreateAdmin_SendsAdminRoleWithToken(t *testing.T) {
	var got models.RegisterRequest
	var gotAuth string
	handlers := backOffice(nil, nil)
	handlers["POST /auth/register"] = func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		jsonReply(http.StatusCreated, `{}`)(w, r)
	}
	env := newTestEnv(t, handlers)
	token := sessionToken(t, "a1", models.RoleAdmin)

	rec := env.postForm("/admin/create-admin", token, url.Values{
		"username":        {"root2"},
		"email":           {"root2@example.com"},
		"password":        {"longpassword"},
		"passwordConfirm": {"longpassword"},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin?tab=users", rec.Header().Get(echo.HeaderLocation))
	assert.Equal(t, models.RoleAdmin, got.Role)
	assert.Equal(t, "Bearer "+token, gotAuth)
}

func TestAdmin_UsersTabShowsListingCounts(t *testing.T) {
	env := newTestEnv(t, backOffice(nil, nil))

	rec := env.get("/admin?tab=users", sessionToken(t, "a1", models.RoleAdmin))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `<td class="listing-count">2</td>`)
	assert.Contains(t, body, `<td class="listing-count">1</td>`)
}

func TestAdminActivityEntry(t *testing.T) {
	require.NoError(t, database.Open(database.Config{Path: filepath.Join(t.TempDir(), "audit.db")}))
	t.Cleanup(func() {
		_ = database.Close()
		database.DB = nil
	})

	repo := database.NewAuditRepo()
	require.NoError(t, repo.Log("a1", "root@example.com", models.ActionUserDelete, "u1",
		map[string]any{"listings_removed": 2}, "10.0.0.7"))
	logs, _, err := repo.List(models.AuditFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, logs, 1)

	env := newAuditedTestEnv(t, backOffice(nil, nil), NewAuditLogger(repo, nil))
	token := sessionToken(t, "a1", models.RoleAdmin)

	rec := env.get("/admin?tab=activity", token)
	require.Equal(t, http.StatusOK, rec.Code)
	entryPath := "/admin/activity/" + strconv.FormatInt(logs[0].ID, 10)
	assert.Contains(t, rec.Body.String(), `href="`+entryPath+`"`)

	rec = env.get(entryPath, token)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, models.ActionUserDelete)
	assert.Contains(t, body, "root@example.com")
	assert.Contains(t, body, "10.0.0.7")
	assert.Contains(t, body, "listings_removed")

	for _, path := range []string{"/admin/activity/9999", "/admin/activity/abc"} {
		rec = env.get(path, token)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestAdminActivityEntry_WithoutAuditTrail(t *testing.T) {
	env := newTestEnv(t, backOffice(nil, nil))

	rec := env.get("/admin/activity/1", sessionToken(t, "a1", models.RoleAdmin))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
