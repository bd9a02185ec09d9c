// Package api registers the gateway's HTTP routes.
package api

import (
	"github.com/gin-gonic/gin"
	"github.com/lessonloop/gateway/internal/auth"
	"github.com/lessonloop/gateway/internal/config"
	"github.com/lessonloop/gateway/internal/http/api/handlers"
	"github.com/lessonloop/gateway/internal/insights"
	"github.com/lessonloop/gateway/internal/prompt"
	"github.com/lessonloop/gateway/internal/ratelimit"
	"github.com/lessonloop/gateway/internal/relay"
	"github.com/lessonloop/gateway/internal/usage"
	"gorm.io/gorm"
)

// Deps carries the wired components the routes need.
type Deps struct {
	DB       *gorm.DB
	Config   config.Config
	Quota    *ratelimit.QuotaLimiter
	Burst    *ratelimit.Manager
	Builder  *prompt.Builder
	Insights insights.Source
	Upstream relay.Upstream
	Tracker  *usage.Tracker
}

// RegisterRoutes registers all gateway routes and middleware.
func RegisterRoutes(r *gin.Engine, deps Deps) {
	if r == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(deps.DB)
	r.GET("/healthz", healthHandler.Healthz)

	v0 := r.Group("/v0")

	authHandler := handlers.NewAuthHandler(deps.DB, deps.Config.JWT)
	v0.POST("/auth/login", authHandler.Login)

	authed := v0.Group("")
	authed.Use(auth.Middleware(deps.Config.JWT, deps.Config.Dev))

	chatHandler := handlers.NewChatHandler(
		deps.Quota,
		deps.Burst,
		deps.Builder,
		deps.Insights,
		deps.Upstream,
		deps.Tracker,
		deps.Config.Upstream.Model,
	)
	authed.POST("/chat/stream", chatHandler.Stream)

	usageHandler := handlers.NewUsageHandler(deps.DB)
	authed.GET("/usage", usageHandler.List)
}
