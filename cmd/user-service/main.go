// The user service owns accounts: registration, login, logout, profile
// management and password changes. It shares the JWT secret and the Redis
// instance with the content service so tokens and sessions are recognized
// across both.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/osvitahub/backend/internal/config"
	"github.com/osvitahub/backend/internal/handler"
	"github.com/osvitahub/backend/internal/password"
	"github.com/osvitahub/backend/internal/ratelimit"
	"github.com/osvitahub/backend/internal/service"
	"github.com/osvitahub/backend/internal/session"
	"github.com/osvitahub/backend/internal/store"
	"github.com/osvitahub/backend/internal/token"
)

const defaultPort = "3001"

func main() {
	if err := run(); err != nil {
		slog.Error("user-service failed", "error", err)
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

	hasher, err := password.NewHasher(password.DefaultConfig())
	if err != nil {
		return err
	}

	sessions := session.NewRegistry(rdb, cfg.SessionTTL)

	generalLimiter := ratelimit.New(rdb, ratelimit.Config{
		Window:  time.Minute,
		Max:     100,
		Prefix:  "rl:general",
		Message: "Too many requests from this IP, please try again later",
	})
	loginLimiter := ratelimit.New(rdb, ratelimit.Config{
		Window:  15 * time.Minute,
		Max:     5,
		Prefix:  "rl:login",
		Message: "Too many login attempts, please try again later",
	})
	registerLimiter := ratelimit.New(rdb, ratelimit.Config{
		Window:  time.Hour,
		Max:     3,
		Prefix:  "rl:register",
		Message: "Too many accounts created, please try again later",
	})

	authService := service.NewAuthService(store.NewUserStore(db), hasher, issuer, sessions, logger)

	router := handler.NewUserRouter(handler.UserRouterDeps{
		Auth:            handler.NewAuthHandler(authService, loginLimiter),
		Issuer:          issuer,
		Sessions:        sessions,
		GeneralLimiter:  generalLimiter,
		LoginLimiter:    loginLimiter,
		RegisterLimiter: registerLimiter,
		Logger:          logger,
		CORSOrigins:     cfg.CORSOrigins,
	})

	logger.Info("user-service listening", "port", cfg.Port, "env", cfg.Environment)
	return router.Run(":" + cfg.Port)
}

func newLogger(cfg *config.Config) *slog.Logger {
	if cfg.Production() {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
