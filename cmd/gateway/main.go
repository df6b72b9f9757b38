// The gateway is the single public entry point: it forwards API traffic to
// the user and content services and applies a coarse per-IP throttle at the
// edge.
package main

import (
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/osvitahub/backend/internal/config"
	"github.com/osvitahub/backend/internal/gateway"
)

const defaultPort = "8080"

func main() {
	if err := run(); err != nil {
		slog.Error("gateway failed", "error", err)
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

	router := gateway.NewRouter(gateway.Deps{
		UserServiceURL:    cfg.UserServiceURL,
		ContentServiceURL: cfg.ContentServiceURL,
		Throttle:          gateway.NewThrottle(cfg.GatewayRateLimit, cfg.GatewayRateWindow),
		Logger:            logger,
		CORSOrigins:       cfg.CORSOrigins,
	})

	logger.Info("gateway listening", "port", cfg.Port, "env", cfg.Environment)
	return router.Run(":" + cfg.Port)
}

func newLogger(cfg *config.Config) *slog.Logger {
	if cfg.Production() {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
