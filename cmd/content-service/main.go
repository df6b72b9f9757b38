// The content service owns the catalog: listing with cache-aside reads,
// lookups with view counting, and role-gated mutations. It runs the same
// authentication gate as the user service against the shared Redis.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/osvitahub/backend/internal/cache"
	"github.com/osvitahub/backend/internal/config"
	"github.com/osvitahub/backend/internal/handler"
	"github.com/osvitahub/backend/internal/ratelimit"
	"github.com/osvitahub/backend/internal/service"
	"github.com/osvitahub/backend/internal/session"
	"github.com/osvitahub/backend/internal/store"
	"github.com/osvitahub/backend/internal/token"
)

const (
	defaultPort  = "3002"
	listCacheTTL = 5 * time.Minute
)

func main() {
	if err := run(); err != nil {
		slog.Error("content-service failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := store.Migrate(ctx, db); err != nil {
		return err
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	issuer, err := token.New(token.Config{
		Secret: []byte(cfg.JWTSecret),
		TTL:    cfg.TokenTTL,
		Issuer: "osvita",
	})
	if err != nil {
		return err
	}

	sessions := session.NewRegistry(rdb, cfg.SessionTTL)

	generalLimiter := ratelimit.New(rdb, ratelimit.Config{
		Window:  time.Minute,
		Max:     100,
		Prefix:  "rl:content:general",
		Message: "Too many requests from this IP, please try again later",
	})
	mutationLimiter := ratelimit.New(rdb, ratelimit.Config{
		Window:  time.Minute,
		Max:     30,
		Prefix:  "rl:content:mutate",
		Message: "Too many content changes, please slow down",
	})

	contentService := service.NewContentService(
		store.NewContentStore(db),
		cache.New(rdb, "content:", listCacheTTL),
		logger,
	)

	router := handler.NewContentRouter(handler.ContentRouterDeps{
		Content:         handler.NewContentHandler(contentService),
		Issuer:          issuer,
		Sessions:        sessions,
		GeneralLimiter:  generalLimiter,
		MutationLimiter: mutationLimiter,
		Logger:          logger,
		CORSOrigins:     cfg.CORSOrigins,
	})

	logger.Info("content-service listening", "port", cfg.Port, "env", cfg.Environment)
	return router.Run(":" + cfg.Port)
}

func newLogger(cfg *config.Config) *slog.Logger {
	if cfg.Production() {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
