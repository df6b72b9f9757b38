package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/osvitahub/backend/internal/middleware"
	"github.com/osvitahub/backend/internal/model"
	"github.com/osvitahub/backend/internal/ratelimit"
	"github.com/osvitahub/backend/internal/session"
	"github.com/osvitahub/backend/internal/token"
)

// UserRouterDeps carries everything the user-service router needs.
type UserRouterDeps struct {
	Auth            *AuthHandler
	Issuer          *token.Issuer
	Sessions        *session.Registry
	GeneralLimiter  *ratelimit.Limiter
	LoginLimiter    *ratelimit.Limiter
	RegisterLimiter *ratelimit.Limiter
	Logger          *slog.Logger
	CORSOrigins     []string
}

// NewUserRouter assembles the user-service pipeline: limiter first,
// authentication next, authorization last, handler at the end.
func NewUserRouter(deps UserRouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.CORS(deps.CORSOrigins))
	r.Use(middleware.RateLimit(deps.GeneralLimiter, middleware.KeyByIP, deps.Logger))

	r.GET("/health", Health("user-service"))

	authn := middleware.Authenticate(deps.Issuer, deps.Sessions)

	api := r.Group("/api/users")
	{
		api.POST("/register",
			middleware.RateLimit(deps.RegisterLimiter, middleware.KeyByIP, deps.Logger),
			deps.Auth.Register)
		api.POST("/login",
			middleware.RateLimit(deps.LoginLimiter, middleware.KeyByIP, deps.Logger),
			deps.Auth.Login)

		api.POST("/logout", authn, deps.Auth.Logout)
		api.GET("/profile", authn, deps.Auth.Profile)
		api.PUT("/profile", authn, deps.Auth.UpdateProfile)
		api.POST("/change-password", authn, deps.Auth.ChangePassword)

		api.GET("/admin/users", authn, middleware.Authorize(model.RoleAdmin), deps.Auth.ListUsers)
	}

	return r
}

// ContentRouterDeps carries everything the content-service router needs.
type ContentRouterDeps struct {
	Content         *ContentHandler
	Issuer          *token.Issuer
	Sessions        *session.Registry
	GeneralLimiter  *ratelimit.Limiter
	MutationLimiter *ratelimit.Limiter
	Logger          *slog.Logger
	CORSOrigins     []string
}

// NewContentRouter assembles the content-service pipeline. Reads are
// public; mutations require authentication and are throttled per user
// rather than per address, since the caller is already identified.
func NewContentRouter(deps ContentRouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.CORS(deps.CORSOrigins))
	r.Use(middleware.RateLimit(deps.GeneralLimiter, middleware.KeyByIP, deps.Logger))

	r.GET("/health", Health("content-service"))

	authn := middleware.Authenticate(deps.Issuer, deps.Sessions)
	mutation := middleware.RateLimit(deps.MutationLimiter, middleware.KeyByUser, deps.Logger)

	api := r.Group("/api/content")
	{
		api.GET("", deps.Content.List)
		api.GET("/:id", deps.Content.Get)

		api.POST("", authn,
			middleware.Authorize(model.RoleAdmin, model.RoleModerator),
			mutation, deps.Content.Create)
		api.PUT("/:id", authn, mutation, deps.Content.Update)
		api.DELETE("/:id", authn, mutation, deps.Content.Delete)
	}

	return r
}

// Health reports process liveness.
func Health(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, model.OK(gin.H{"service": name, "status": "ok"}))
	}
}
