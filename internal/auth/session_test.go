package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/statafdev/nomadnest-front/internal/models"
)

const testSecret = "test-secret-that-is-long-enough-for-hs256"

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func signToken(t *testing.T, secret string, claims sessionClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func registered(sub string, expiry time.Time) jwt.RegisteredClaims {
	rc := jwt.RegisteredClaims{Subject: sub}
	if !expiry.IsZero() {
		rc.ExpiresAt = jwt.NewNumericDate(expiry)
	}
	return rc
}

func validToken(t *testing.T, role models.Role) string {
	rc := registered("u1", testNow.Add(time.Hour))
	rc.IssuedAt = jwt.NewNumericDate(testNow.Add(-time.Hour))
	return signToken(t, testSecret, sessionClaims{
		UserID:           "u1",
		Email:            "ana@example.com",
		Role:             role,
		RegisteredClaims: rc,
	})
}

func newTestManager(secret string) *Manager {
	m := NewManager(secret, false, nil)
	m.SetClock(func() time.Time { return testNow })
	return m
}

func requestWithSession(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/client", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	}
	return req
}

func TestCreateSession_CookieAttributes(t *testing.T) {
	m := NewManager(testSecret, true, nil)
	m.SetClock(func() time.Time { return testNow })

	rec := httptest.NewRecorder()
	m.CreateSession(rec, "opaque-token")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]

	assert.Equal(t, SessionCookieName, c.Name)
	assert.Equal(t, "opaque-token", c.Value)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, "/", c.Path)
	assert.Equal(t, testNow.Add(7*24*time.Hour).Unix(), c.Expires.Unix())
}

func TestCreateSession_InsecureOutsideProduction(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestManager(testSecret).CreateSession(rec, "tok")
	assert.False(t, rec.Result().Cookies()[0].Secure)
}

func TestDeleteSession_Idempotent(t *testing.T) {
	m := newTestManager(testSecret)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		m.DeleteSession(rec)
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, SessionCookieName, cookies[0].Name)
		assert.Equal(t, "", cookies[0].Value)
		assert.Equal(t, -1, cookies[0].MaxAge)
	}
}

func TestVerifySession_Valid(t *testing.T) {
	m := newTestManager(testSecret)
	token := validToken(t, models.RoleAdmin)

	sess := m.VerifySession(requestWithSession(token))
	require.NotNil(t, sess)
	assert.Equal(t, token, sess.Token)
	assert.Equal(t, "u1", sess.UserID())
	assert.Equal(t, "u1", sess.Claims.Subject)
	assert.Equal(t, "ana@example.com", sess.Claims.Email)
	assert.True(t, sess.IsAdmin())
	assert.Equal(t, testNow.Add(time.Hour).Unix(), sess.Claims.ExpiresAt.Unix())
}

func TestVerifySession_NoSession(t *testing.T) {
	m := newTestManager(testSecret)

	tests := []struct {
		name  string
		m     *Manager
		token string
	}{
		{"no cookie", m, ""},
		{"malformed", m, "not-a-jwt"},
		{"truncated", m, validToken(t, models.RoleUser)[:40]},
		{"wrong secret", m, signToken(t, "another-secret-that-is-long-enough!!", sessionClaims{RegisteredClaims: registered("u1", time.Time{})})},
		{"expired", m, signToken(t, testSecret, sessionClaims{RegisteredClaims: registered("u1", testNow.Add(-time.Minute))})},
		{"missing secret", newTestManager(""), validToken(t, models.RoleUser)},
		{"unsigned", m, unsignedToken(t)},
		{"asymmetric alg", m, "eyJhbGciOiJSUzI1NiIsInR5cCI6IkpXVCJ9.eyJzdWIiOiJ1MSJ9.c2ln"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, tt.m.VerifySession(requestWithSession(tt.token)))
		})
	}
}

func TestVerifyToken_Errors(t *testing.T) {
	_, err := newTestManager("").VerifyToken("x")
	assert.ErrorIs(t, err, ErrMissingSecret)

	_, err = newTestManager(testSecret).VerifyToken("x.y.z")
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := signToken(t, testSecret, sessionClaims{RegisteredClaims: registered("", testNow.Add(-time.Second))})
	_, err = newTestManager(testSecret).VerifyToken(expired)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifyToken_NoExpiryAccepted(t *testing.T) {
	token := signToken(t, testSecret, sessionClaims{Role: models.RoleUser, RegisteredClaims: registered("u9", time.Time{})})
	sess, err := newTestManager(testSecret).VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u9", sess.UserID())
	assert.False(t, sess.IsAdmin())
}

func unsignedToken(t *testing.T) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u1"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	return token
}

func TestVerifyToken_ShortSecret(t *testing.T) {
	const secret = "your-super-secret-key"
	require.Len(t, secret, 21)

	for _, method := range []jwt.SigningMethod{jwt.SigningMethodHS256, jwt.SigningMethodHS384, jwt.SigningMethodHS512} {
		t.Run(method.Alg(), func(t *testing.T) {
			token, err := jwt.NewWithClaims(method, sessionClaims{
				UserID:           "u7",
				Role:             models.RoleUser,
				RegisteredClaims: registered("u7", testNow.Add(time.Hour)),
			}).SignedString([]byte(secret))
			require.NoError(t, err)

			sess := newTestManager(secret).VerifySession(requestWithSession(token))
			require.NotNil(t, sess)
			assert.Equal(t, "u7", sess.UserID())
		})
	}
}

func TestSessionContext_NilSafe(t *testing.T) {
	var sess *SessionContext
	assert.False(t, sess.IsAdmin())
	assert.Equal(t, "", sess.UserID())
}
