// Package app wires the gateway's components and runs the HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lessonloop/gateway/internal/config"
	"github.com/lessonloop/gateway/internal/db"
	"github.com/lessonloop/gateway/internal/http/api"
	"github.com/lessonloop/gateway/internal/insights"
	"github.com/lessonloop/gateway/internal/prompt"
	"github.com/lessonloop/gateway/internal/ratelimit"
	"github.com/lessonloop/gateway/internal/relay"
	"github.com/lessonloop/gateway/internal/usage"
	log "github.com/sirupsen/logrus"
)

// Migrate opens the database and runs migrations.
func Migrate(_ context.Context, configPath string) error {
	cfg, errLoad := config.Load(configPath)
	if errLoad != nil {
		return errLoad
	}
	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	return db.Migrate(conn)
}

// RunServer boots the gateway with database-backed components.
func RunServer(ctx context.Context, configPath string, portOverride int) error {
	cfg, errLoad := config.Load(configPath)
	if errLoad != nil {
		return errLoad
	}
	if portOverride > 0 {
		cfg.Server.Port = portOverride
	}

	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	log.WithField("dialect", db.DialectName(conn)).Info("database ready")
	if db.IsSQLite(conn) {
		log.Warn("sqlite database in use; run postgres for multi-instance deployments")
	}

	quotas := make(map[string]ratelimit.Quota, len(cfg.RateLimit.Categories))
	for category, quota := range cfg.RateLimit.Categories {
		quotas[category] = ratelimit.Quota{Limit: quota.Limit, Window: quota.Window}
	}
	if cfg.RateLimit.Bypass {
		log.Warn("rate limit bypass is enabled; all requests are admitted")
	}
	quotaLimiter := ratelimit.NewQuotaLimiter(ratelimit.NewGormEventStore(conn), quotas, cfg.RateLimit.Bypass, nil)

	burstManager := ratelimit.NewManager(func() ratelimit.BurstSettings {
		return ratelimit.BurstSettings{
			PerSecond:     cfg.RateLimit.Burst.PerSecond,
			RedisEnabled:  cfg.RateLimit.Burst.RedisEnabled,
			RedisAddr:     cfg.RateLimit.Burst.RedisAddr,
			RedisPassword: cfg.RateLimit.Burst.RedisPassword,
			RedisDB:       cfg.RateLimit.Burst.RedisDB,
			RedisPrefix:   cfg.RateLimit.Burst.RedisPrefix,
		}
	}, nil, nil)

	upstream, errUpstream := buildUpstream(cfg.Upstream)
	if errUpstream != nil {
		return errUpstream
	}

	pricing := usage.DefaultPricing()
	if len(cfg.Pricing) > 0 {
		overrides := make(usage.Pricing, len(cfg.Pricing))
		for model, price := range cfg.Pricing {
			overrides[model] = usage.ModelPrice{InputPerMillion: price.Input, OutputPerMillion: price.Output}
		}
		pricing = pricing.Merge(overrides)
	}
	tracker := usage.NewTracker(conn, pricing)

	engine := gin.New()
	engine.Use(gin.Recovery())
	api.RegisterRoutes(engine, api.Deps{
		DB:       conn,
		Config:   cfg,
		Quota:    quotaLimiter,
		Burst:    burstManager,
		Builder:  prompt.NewBuilder(cfg.Assistant.Instructions),
		Insights: insights.NewGormSource(conn),
		Upstream: upstream,
		Tracker:  tracker,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("gateway listening on %s", server.Addr)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case errServe := <-serveErr:
		if errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			return errServe
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
		log.WithError(errShutdown).Warn("server shutdown incomplete")
	}
	// In-flight usage writes are detached from requests; wait for them so
	// they are not abandoned mid-write.
	tracker.Drain()
	return nil
}

// buildUpstream selects the configured completion provider.
func buildUpstream(cfg config.UpstreamConfig) (relay.Upstream, error) {
	if cfg.Mock {
		log.Warn("upstream mock mode is enabled; no provider calls will be made")
		return relay.DefaultMockUpstream(), nil
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, config.ErrMissingUpstreamAPIKey
	}
	return relay.NewOpenAIUpstream(cfg.APIKey, cfg.BaseURL), nil
}
