package api

import (
	"crypto/sha256"
	"encoding/gob"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/hkdf"

	"github.com/statafdev/nomadnest-front/internal/web"
)

const flashSessionName = "nomadnest_flash"

func init() {
	gob.Register(web.Toast{})
}

// Flasher carries toasts across a redirect in a signed cookie
type Flasher struct {
	store  sessions.Store
	logger *zap.Logger
}

// NewFlasher creates a flasher backed by a cookie store signed with key
func NewFlasher(key []byte, secure bool, logger *zap.Logger) *Flasher {
	store := sessions.NewCookieStore(key)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Flasher{store: store, logger: logger}
}

// DeriveFlashKey derives a 32 byte cookie signing key from secret, so flash
// cookies survive restarts without a dedicated key
func DeriveFlashKey(secret string) ([]byte, error) {
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte("nomadnest flash cookie"))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("failed to derive flash key: %w", err)
	}
	return key, nil
}

// Add queues a toast for the next rendered page
func (f *Flasher) Add(c echo.Context, t web.Toast) {
	if f == nil {
		return
	}
	sess, _ := f.store.Get(c.Request(), flashSessionName)
	sess.AddFlash(t)
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		f.logger.Warn("failed to save flash", zap.Error(err))
	}
}

// Pop returns and clears the queued toasts
func (f *Flasher) Pop(c echo.Context) []web.Toast {
	if f == nil {
		return nil
	}
	if _, err := c.Cookie(flashSessionName); err != nil {
		return nil
	}

	sess, err := f.store.Get(c.Request(), flashSessionName)
	if err != nil {
		return nil
	}
	flashes := sess.Flashes()
	if len(flashes) == 0 {
		return nil
	}
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		f.logger.Warn("failed to clear flash", zap.Error(err))
	}

	toasts := make([]web.Toast, 0, len(flashes))
	for _, v := range flashes {
		if t, ok := v.(web.Toast); ok {
			toasts = append(toasts, t)
		}
	}
	return toasts
}
