package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"receipt2pdf/internal/access"
	"receipt2pdf/internal/app"
	"receipt2pdf/internal/compose"
	u "receipt2pdf/internal/utils"
)

const shutdownGrace = 5 * time.Second

func main() {
	cfg := u.LoadConfig()
	u.InitLogger(
		cfg.Logger.File,
		cfg.Logger.MaxSizeMB,
		cfg.Logger.MaxBackups,
		cfg.Logger.MaxAgeDays,
		cfg.Logger.Compress,
		cfg.Logger.Level,
	)
	u.SetLogLevel(cfg.Logger.Level)

	if err := compose.CheckAssets(cfg.Receipt.Assets); err != nil {
		u.Error("Receipt assets not usable, rendering will fail until fixed", "kind", "asset", "error", err)
	}

	rdb := newRedisClient(cfg)
	if rdb != nil {
		defer rdb.Close()
	}

	idleConnsClosed := make(chan struct{})
	keys := startKeyStore(cfg, idleConnsClosed)

	app := app.SetupApp(cfg, rdb, keys)

	startServer(app, cfg, idleConnsClosed)
}

// newRedisClient returns nil when no Redis host is configured.
func newRedisClient(cfg u.Config) *redis.Client {
	if cfg.Cache.RedisHost == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr: cfg.Cache.RedisHost,
		DB:   cfg.Cache.RateLimitDB,
	})
}

// startKeyStore loads API keys from Postgres and keeps reloading them until
// stop is closed. Without a database the store is ready with no keys.
func startKeyStore(cfg u.Config, stop <-chan struct{}) *access.KeyStore {
	keys := access.NewKeyStore(cfg.Auth.Postgres)
	if !keys.Configured() {
		keys.LoadMap(nil)
		return keys
	}
	if err := keys.Load(context.Background()); err != nil {
		u.Error("Failed to load API keys", "error", err)
	} else {
		u.Info("API keys loaded", "count", keys.Len())
	}
	go keys.Refresh(cfg.Auth.ReloadInterval, stop)
	return keys
}

// startServer serves until SIGINT or SIGTERM, then drains in-flight requests
// for up to shutdownGrace and closes stop.
func startServer(app *fiber.App, cfg u.Config, stop chan struct{}) {
	addr := cfg.Server.Host + cfg.Server.Port
	listenErr := make(chan error, 1)
	go func() {
		u.Info("Server listening", "addr", addr)
		listenErr <- app.Listen(addr)
	}()

	ctx, cancelSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancelSignals()

	select {
	case err := <-listenErr:
		if err != nil {
			u.Error("Server error", "addr", addr, "error", err)
		}
	case <-ctx.Done():
		u.Warn("Shutdown signal received", "grace", shutdownGrace)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			u.Error("Forced shutdown", "error", err)
		}
	}

	close(stop)
	u.Info("Receipt service stopped")
}
