package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/securecookie"
	"go.uber.org/zap"

	"github.com/statafdev/nomadnest-front/internal/api"
	"github.com/statafdev/nomadnest-front/internal/auth"
	"github.com/statafdev/nomadnest-front/internal/blob"
	"github.com/statafdev/nomadnest-front/internal/certs"
	"github.com/statafdev/nomadnest-front/internal/config"
	"github.com/statafdev/nomadnest-front/internal/database"
	"github.com/statafdev/nomadnest-front/internal/gateway"
	"github.com/statafdev/nomadnest-front/internal/logger"
	"github.com/statafdev/nomadnest-front/internal/marketplace"
)

const (
	defaultUploadDir = "./uploads"
	auditRetention   = 90 * 24 * time.Hour
)

func main() {
	cfg, err := config.Load(os.Getenv("NOMADNEST_CONFIG"))
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Production())
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("initializing audit database", zap.String("path", cfg.DBPath))
	if err := database.Open(database.Config{Path: cfg.DBPath}); err != nil {
		return err
	}
	defer database.Close()

	auditRepo := database.NewAuditRepo()
	go pruneAuditLogs(ctx, auditRepo, log)

	if cfg.APIBaseURL == "" {
		log.Warn("API base URL is not configured; data pages will be empty and the proxy will return 500")
	}
	if cfg.JWTSecret == "" {
		log.Warn("JWT secret is not configured; every session will be rejected")
	}

	gw := gateway.New(cfg.APIBaseURL,
		gateway.WithTimeout(cfg.RequestTimeout),
		gateway.WithLogger(log.Named("gateway")))

	store, uploadDir, err := blobStore(cfg)
	if err != nil {
		return err
	}

	key, err := flashKey(cfg, log)
	if err != nil {
		return err
	}

	limiter := auth.DefaultRateLimiter()
	defer limiter.Stop()

	h := api.NewHandlers(api.Deps{
		Market:   marketplace.NewService(gw, log.Named("marketplace")),
		Sessions: auth.NewManager(cfg.JWTSecret, cfg.Production(), log.Named("session")),
		Gate:     auth.DefaultGate(),
		Limiter:  limiter,
		Flash:    api.NewFlasher(key, cfg.Production(), log),
		Blobs:    store,
		Audit:    api.NewAuditLogger(auditRepo, log),
		Logger:   log,
	})

	e, err := api.NewServer(h, log, api.ServerOptions{
		Production: cfg.Production(),
		UploadDir:  uploadDir,
	})
	if err != nil {
		return err
	}

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		if cfg.TLS {
			certPath, keyPath, err := certs.EnsureCertificates(cfg.CertDir)
			if err != nil {
				errCh <- err
				return
			}
			log.Info("starting NomadNest over TLS", zap.String("addr", addr), zap.String("cert", certPath))
			errCh <- e.StartTLS(addr, certPath, keyPath)
			return
		}
		log.Info("starting NomadNest", zap.String("addr", addr), zap.String("api", cfg.APIBaseURL))
		errCh <- e.Start(addr)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// blobStore picks the remote store when configured and falls back to a local
// directory served under /uploads
func blobStore(cfg *config.Config) (blob.Store, string, error) {
	if cfg.BlobURL != "" {
		return blob.NewHTTPStore(cfg.BlobURL, cfg.BlobToken, nil), "", nil
	}

	dir := cfg.UploadDir
	if dir == "" {
		dir = defaultUploadDir
	}
	store, err := blob.NewDiskStore(dir, "/uploads")
	if err != nil {
		return nil, "", err
	}
	return store, store.Dir(), nil
}

// flashKey prefers the configured key, then one derived from the JWT secret,
// then a random per-process key
func flashKey(cfg *config.Config, log *zap.Logger) ([]byte, error) {
	switch {
	case cfg.FlashKey != "":
		return []byte(cfg.FlashKey), nil
	case cfg.JWTSecret != "":
		return api.DeriveFlashKey(cfg.JWTSecret)
	default:
		log.Warn("flash key is not configured; generating one for this process")
		return securecookie.GenerateRandomKey(32), nil
	}
}

func pruneAuditLogs(ctx context.Context, repo *database.AuditRepo, log *zap.Logger) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		n, err := repo.DeleteOlderThan(time.Now().Add(-auditRetention))
		if err != nil {
			log.Warn("failed to prune audit logs", zap.Error(err))
		} else if n > 0 {
			log.Info("pruned audit logs", zap.Int64("deleted", n))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
