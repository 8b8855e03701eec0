package app

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Druk83/TrainingGround-sub001/internal/config"
	"github.com/Druk83/TrainingGround-sub001/internal/exercise"
	"github.com/Druk83/TrainingGround-sub001/internal/handler"
	"github.com/Druk83/TrainingGround-sub001/internal/middleware"
	"github.com/Druk83/TrainingGround-sub001/internal/obs"
	"github.com/Druk83/TrainingGround-sub001/internal/quota"
	"github.com/Druk83/TrainingGround-sub001/internal/session"
	"github.com/Druk83/TrainingGround-sub001/internal/store"
	"github.com/Druk83/TrainingGround-sub001/internal/task"
	"github.com/Druk83/TrainingGround-sub001/internal/timer"
)

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, func() error, error) {

	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	// ----------------------------
	// Dependencies
	// ----------------------------

	metrics := obs.NewMetrics(prometheus.DefaultRegisterer)

	kv := store.NewRedis(infra.Redis.Client, metrics)
	sessionStore := session.NewRedisStore(kv, cfg.SessionDuration, metrics)
	enforcer := quota.NewEnforcer(kv, cfg.UserRateLimit, cfg.IPRateLimit, cfg.RateWindow, metrics)
	broadcaster := timer.NewBroadcaster(sessionStore, cfg.TickInterval, metrics)

	tasks := task.NewPostgresRepo(infra.DB.DB)
	exercises := exercise.NewService(sessionStore, tasks, kv, infra.DB.DB, cfg.MaxHintsPerSession)

	sessionHandler := handler.NewHandler(sessionStore, tasks, exercises, broadcaster)

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Trace())

	sessionHandler.RegisterRoutes(router, middleware.Quota(enforcer))

	// Storage unavailability is a service-level failure: the health check
	// goes red instead of requests silently retrying against a dead store.
	router.GET("/health", func(c *gin.Context) {
		if err := infra.Redis.Healthy(c.Request.Context()); err != nil {
			c.JSON(503, gin.H{"status": "degraded", "error": "store unreachable"})
			return
		}
		c.JSON(200, gin.H{"status": "ok"})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ----------------------------
	// Cleanup
	// ----------------------------

	return router, func() error {
		if err := infra.Redis.Close(); err != nil {
			return err
		}
		return infra.DB.Close()
	}, nil
}
