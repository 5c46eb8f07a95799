package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statafdev/nomadnest-front/internal/web"
)

func TestDeriveFlashKey(t *testing.T) {
	a, err := DeriveFlashKey("secret-one")
	require.NoError(t, err)
	b, err := DeriveFlashKey("secret-one")
	require.NoError(t, err)
	c, err := DeriveFlashKey("secret-two")
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestFlasher_AddThenPop(t *testing.T) {
	key, err := DeriveFlashKey("flash-test")
	require.NoError(t, err)
	f := NewFlasher(key, false, nil)
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/login", nil), rec)
	f.Add(c, web.Toast{Kind: "success", Message: "Welcome back!"})

	cookie := cookieNamed(rec, flashSessionName)
	require.NotNil(t, cookie)

	req := httptest.NewRequest(http.MethodGet, "/client", nil)
	req.AddCookie(cookie)
	c = e.NewContext(req, httptest.NewRecorder())
	assert.Equal(t, []web.Toast{{Kind: "success", Message: "Welcome back!"}}, f.Pop(c))

	// no cookie, nothing queued
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/client", nil), httptest.NewRecorder())
	assert.Nil(t, f.Pop(c))
}
