package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/statafdev/nomadnest-front/internal/auth"
)

func proxyRequest(env *testEnv, method, body, cookie string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/api/listings", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: cookie})
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func TestProxy_MissingBaseURL(t *testing.T) {
	env := newTestEnv(t, nil)
	want := `{"status":"error","message":"API base URL is not configured"}`

	rec := proxyRequest(env, http.MethodGet, "", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, want, rec.Body.String())

	// configuration is checked before the session
	rec = proxyRequest(env, http.MethodPost, `{}`, "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, want, rec.Body.String())
}

func TestProxy_CreateRequiresSessionCookie(t *testing.T) {
	env := newTestEnv(t, map[string]http.HandlerFunc{
		"POST /listings": jsonReply(http.StatusCreated, `{}`),
	})

	rec := proxyRequest(env, http.MethodPost, `{"title":"Loft"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"status":"error","message":"Authentication required to create listings"}`, rec.Body.String())
	assert.Empty(t, env.api.Hits())
}

func TestProxy_CreateForwardsBearerAndRelaysStatus(t *testing.T) {
	var gotAuth, gotBody string
	env := newTestEnv(t, map[string]http.HandlerFunc{
		"POST /listings": func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			b, _ := io.ReadAll(r.Body)
			gotBody = string(b)
			jsonReply(http.StatusCreated, `{"_id":"l1","title":"Loft"}`)(w, r)
		},
	})

	rec := proxyRequest(env, http.MethodPost, `{"title":"Loft"}`, "opaque-token")
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"_id":"l1","title":"Loft"}`, rec.Body.String())
	assert.Equal(t, "Bearer opaque-token", gotAuth)
	assert.JSONEq(t, `{"title":"Loft"}`, gotBody)
}

func TestProxy_ListRelaysUpstreamStatus(t *testing.T) {
	env := newTestEnv(t, map[string]http.HandlerFunc{
		"GET /listings": jsonReply(http.StatusServiceUnavailable, `{"message":"maintenance"}`),
	})

	rec := proxyRequest(env, http.MethodGet, "", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"message":"maintenance"}`, rec.Body.String())
	assert.Equal(t, []string{"GET /listings"}, env.api.Hits())
}

func TestProxy_UnreadableUpstream(t *testing.T) {
	env := newTestEnv(t, map[string]http.HandlerFunc{
		"GET /listings": func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "<html>oops</html>")
		},
	})

	rec := proxyRequest(env, http.MethodGet, "", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"status":"error","message":"Unable to reach listings service"}`, rec.Body.String())
}
