package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// recorder is a fake remote API that answers each path with a fixed status
// and body and records the order of hits
type recorder struct {
	mu     sync.Mutex
	hits   []string
	routes map[string]route
}

type route struct {
	status int
	body   string
}

func newRecorder(routes map[string]route) (*recorder, *httptest.Server) {
	rec := &recorder{routes: routes}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.mu.Lock()
		rec.hits = append(rec.hits, r.Method+" "+r.URL.Path)
		rec.mu.Unlock()

		rt, ok := rec.routes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(rt.status)
		_, _ = io.WriteString(w, rt.body)
	}))
	return rec, srv
}

func (r *recorder) Hits() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.hits...)
}

func TestFetchWithFallback_StopsAtFirstSuccess(t *testing.T) {
	rec, srv := newRecorder(map[string]route{
		"/a": {status: http.StatusInternalServerError, body: `{}`},
		"/b": {status: http.StatusOK, body: `{"ok":true}`},
		"/c": {status: http.StatusOK, body: `{"ok":true}`},
	})
	defer srv.Close()

	c := New(srv.URL)
	resp, err := c.FetchWithFallback(context.Background(), []string{"/a", "/b", "/c"})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"GET /a", "GET /b"}, rec.Hits())
}

func TestFetchWithFallback_RaisesLastFailure(t *testing.T) {
	rec, srv := newRecorder(map[string]route{
		"/a": {status: http.StatusInternalServerError, body: `{}`},
		"/b": {status: http.StatusForbidden, body: `{"message":"admins only"}`},
	})
	defer srv.Close()

	c := New(srv.URL)
	resp, err := c.FetchWithFallback(context.Background(), []string{"/a", "/b"})
	require.Error(t, err)
	assert.Nil(t, resp)

	assert.ErrorIs(t, err, ErrAllCandidatesFailed)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.NotErrorIs(t, err, ErrServer)
	assert.Equal(t, KindForbidden, KindOf(err))
	assert.Equal(t, "admins only", APIMessage(err))

	var fe *FallbackError
	require.True(t, errors.As(err, &fe))
	require.Len(t, fe.Attempts, 2)
	assert.Equal(t, "/b", fe.Last().URL)
	assert.Equal(t, http.StatusInternalServerError, fe.Attempts[0].Status)
	assert.Equal(t, []string{"GET /a", "GET /b"}, rec.Hits())
}

func TestAPIMessage_SurvivesLaterFailures(t *testing.T) {
	_, srv := newRecorder(map[string]route{
		"/auth/register": {status: http.StatusBadRequest, body: `{"status":"fail","message":"Email already in use"}`},
	})
	defer srv.Close()

	_, err := New(srv.URL).Send(context.Background(), http.MethodPost, []string{"/auth/register", "/api/auth/register"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "Email already in use", APIMessage(err))
}

func TestFetchWithFallback_NetworkFailureMovesOn(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	rec, srv := newRecorder(map[string]route{
		"/ok": {status: http.StatusOK, body: `[]`},
	})
	defer srv.Close()

	c := New(srv.URL)
	resp, err := c.FetchWithFallback(context.Background(), []string{deadURL + "/gone", "/ok"})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, []string{"GET /ok"}, rec.Hits())
}

func TestFetchWithFallback_AllNetworkFailures(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	c := New("")
	_, err := c.FetchWithFallback(context.Background(), []string{deadURL + "/a"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.Equal(t, KindNetwork, KindOf(err))
}

func TestAttempt_Errors(t *testing.T) {
	c := New("")

	_, err := c.Attempt(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoCandidates)

	_, err = c.FetchWithFallback(context.Background(), []string{"/listings"})
	assert.ErrorIs(t, err, ErrMissingBaseURL)
}

func TestAttempt_CancelledContext(t *testing.T) {
	rec, srv := newRecorder(map[string]route{"/a": {status: http.StatusOK, body: `[]`}})
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(srv.URL).FetchWithFallback(ctx, []string{"/a"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.Hits())
}

func TestRequestOptions(t *testing.T) {
	var got *http.Request
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	ok, err := New(srv.URL+"/").MutateSequential(context.Background(), http.MethodPost, []string{"listings"},
		WithBearer("tok"),
		WithSessionCookie("tok"),
		WithJSONBody(map[string]string{"title": "Cabin"}),
	)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NotNil(t, got)
	assert.Equal(t, "/listings", got.URL.Path)
	assert.Equal(t, "Bearer tok", got.Header.Get("Authorization"))
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	cookie, err := got.Cookie(SessionCookieName)
	require.NoError(t, err)
	assert.Equal(t, "tok", cookie.Value)
	assert.JSONEq(t, `{"title":"Cabin"}`, string(body))
}

func TestMutateSequential_AllFail(t *testing.T) {
	rec, srv := newRecorder(map[string]route{
		"/admin/users/u1": {status: http.StatusNotFound, body: `{}`},
		"/users/u1":       {status: http.StatusBadGateway, body: `{}`},
	})
	defer srv.Close()

	ok, err := New(srv.URL).MutateSequential(context.Background(), http.MethodDelete,
		[]string{"/admin/users/u1", "/users/u1"})
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrServer)
	assert.Equal(t, []string{"DELETE /admin/users/u1", "DELETE /users/u1"}, rec.Hits())
}

func TestFetchCollection(t *testing.T) {
	_, srv := newRecorder(map[string]route{
		"/wrapped": {status: http.StatusOK, body: `{"data":[1,2],"listings":[3]}`},
		"/nested":  {status: http.StatusOK, body: `{"status":"success","data":{"data":[{"_id":"l1"}]}}`},
		"/bare":    {status: http.StatusOK, body: `[{"_id":"x"}]`},
		"/garbage": {status: http.StatusOK, body: `<html>`},
	})
	defer srv.Close()
	c := New(srv.URL)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		items := c.FetchCollection(ctx, []string{"/wrapped"})
		require.Len(t, items, 2)
		assert.JSONEq(t, "1", string(items[0]))
	}

	assert.Len(t, c.FetchCollection(ctx, []string{"/nested"}), 1)
	assert.Len(t, c.FetchCollection(ctx, []string{"/missing", "/bare"}), 1)

	empty := c.FetchCollection(ctx, []string{"/garbage"})
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	assert.Empty(t, c.FetchCollection(ctx, []string{"/missing"}))
}

func TestFetchInto(t *testing.T) {
	_, srv := newRecorder(map[string]route{
		"/users": {status: http.StatusOK, body: `{"users":[{"_id":"u1","email":"a@b.c"},{"id":"u2"}]}`},
		"/bad":   {status: http.StatusOK, body: `{"users":[{"_id":"u1"}, 42]}`},
	})
	defer srv.Close()
	c := New(srv.URL)

	type user struct {
		ID    string `json:"_id"`
		Email string `json:"email"`
	}

	users := FetchInto[user](context.Background(), c, []string{"/users"})
	require.Len(t, users, 2)
	assert.Equal(t, "u1", users[0].ID)
}

func TestFetchInto_SkipsUndecodableElements(t *testing.T) {
	_, srv := newRecorder(map[string]route{
		"/listings": {status: http.StatusOK, body: `{"listings":[{"_id":"l1","price":120},{"_id":"l2","price":"cheap"},42,{"_id":"l3"}]}`},
	})
	defer srv.Close()

	core, logs := observer.New(zap.WarnLevel)
	c := New(srv.URL, WithLogger(zap.New(core)))

	type listing struct {
		ID    string  `json:"_id"`
		Price float64 `json:"price"`
	}

	got := FetchInto[listing](context.Background(), c, []string{"/listings"})
	require.Len(t, got, 2)
	assert.Equal(t, "l1", got[0].ID)
	assert.Equal(t, "l3", got[1].ID)
	assert.Equal(t, 2, logs.FilterMessage("skipping undecodable collection element").Len())
}

func TestFetchObject(t *testing.T) {
	_, srv := newRecorder(map[string]route{
		"/listings/l1": {status: http.StatusOK, body: `{"status":"success","data":{"listing":{"_id":"l1","title":"Loft"}}}`},
		"/listings/l2": {status: http.StatusOK, body: `{"status":"success"}`},
	})
	defer srv.Close()
	c := New(srv.URL)
	keys := []string{"data", "listing"}

	obj, err := c.FetchObject(context.Background(), []string{"/listings/l1"}, keys)
	require.NoError(t, err)
	var l struct {
		ID string `json:"_id"`
	}
	require.NoError(t, json.Unmarshal(obj, &l))
	assert.Equal(t, "l1", l.ID)

	_, err = c.FetchObject(context.Background(), []string{"/listings/l2"}, keys)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.FetchObject(context.Background(), []string{"/listings/l3"}, keys)
	assert.ErrorIs(t, err, ErrNotFound)
}
