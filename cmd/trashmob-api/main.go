package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/TrashMob-eco/trashmob-api/api/swagger"
	"github.com/TrashMob-eco/trashmob-api/internal/handler"
	"github.com/TrashMob-eco/trashmob-api/internal/middleware"
	"github.com/TrashMob-eco/trashmob-api/internal/models"
	"github.com/TrashMob-eco/trashmob-api/internal/repository"
	"github.com/TrashMob-eco/trashmob-api/internal/service"
	"github.com/TrashMob-eco/trashmob-api/pkg/cache"
	"github.com/TrashMob-eco/trashmob-api/pkg/config"
	"github.com/TrashMob-eco/trashmob-api/pkg/database"
	"github.com/TrashMob-eco/trashmob-api/pkg/jobs"
	"github.com/TrashMob-eco/trashmob-api/pkg/logger"
	corsmiddleware "github.com/TrashMob-eco/trashmob-api/pkg/middleware/cors"
	reqidmiddleware "github.com/TrashMob-eco/trashmob-api/pkg/middleware/requestid"
)

// @title TrashMob API
// @version 1.0.0
// @description Community cleanup event coordination backend
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	telemetry := service.NewTelemetryService()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	eventRepo := repository.NewEventRepository(db)
	attendeeRepo := repository.NewEventAttendeeRepository(db)
	metricsRepo := repository.NewEventMetricsRepository(db)
	partnerRepo := repository.NewPartnerRepository(db)
	statsRepo := repository.NewStatsRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	cacheSvc := service.NewCacheService(cacheRepo, telemetry, cfg.Leaderboard.CacheTTL, logr, cfg.Leaderboard.Enabled && redisClient != nil)
	notificationSvc := service.NewNotificationService(service.NewLogSender(logr), telemetry, jobs.QueueConfig{
		Workers:    cfg.Notifications.WorkerConcurrency,
		MaxRetries: cfg.Notifications.WorkerRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
	}, cfg.Notifications.Enabled, logr)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "trashmob-api",
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	eventSvc := service.NewEventService(eventRepo, validate, logr)
	attendeeSvc := service.NewEventAttendeeService(attendeeRepo, eventRepo, logr)
	leaderboardSvc := service.NewLeaderboardService(statsRepo, eventRepo, attendeeRepo, cacheSvc, cfg.Leaderboard.CacheTTL, cfg.Leaderboard.TopLimit, logr)
	metricsSvc := service.NewEventMetricsService(metricsRepo, eventRepo, attendeeRepo, notificationSvc, leaderboardSvc, validate, logr)
	partnerSvc := service.NewPartnerService(partnerRepo, eventRepo, notificationSvc, validate, logr)

	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		exportSvc = service.NewExportService(metricsRepo, eventRepo, nil, nil, logr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	notificationSvc.Start(ctx)
	defer notificationSvc.Stop()

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	eventHandler := handler.NewEventHandler(eventSvc)
	attendeeHandler := handler.NewEventAttendeeHandler(attendeeSvc)
	metricsHandler := handler.NewEventMetricsHandler(metricsSvc, exportSvc)
	partnerHandler := handler.NewPartnerHandler(partnerSvc)
	statsHandler := handler.NewStatsHandler(leaderboardSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Telemetry(telemetry))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(telemetry.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	// Public surface.
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)
	api.POST("/users/register", userHandler.Register)
	api.GET("/events", eventHandler.List)
	api.GET("/events/:id", eventHandler.Get)
	api.GET("/events/:id/summary", metricsHandler.Summary)
	api.GET("/stats", statsHandler.SiteStats)
	api.GET("/leaderboard", statsHandler.Leaderboard)
	api.GET("/partners", partnerHandler.List)

	// Authenticated surface.
	auth := api.Group("")
	auth.Use(middleware.JWT(authSvc))
	{
		auth.POST("/auth/logout", authHandler.Logout)
		auth.POST("/auth/change-password", authHandler.ChangePassword)
		auth.GET("/auth/me", authHandler.Me)

		auth.GET("/me/events", attendeeHandler.MyEvents)
		auth.GET("/me/impact", metricsHandler.MyImpact)

		auth.POST("/events/:id/register", attendeeHandler.Register)
		auth.DELETE("/events/:id/register", attendeeHandler.Unregister)

		auth.POST("/events/:id/metrics", metricsHandler.Submit)
		auth.GET("/events/:id/metrics/mine", metricsHandler.GetMine)
		auth.GET("/events/:id/metrics/submitted", metricsHandler.HasSubmitted)
		auth.GET("/events/:id/metrics/totals", metricsHandler.Totals)

		admin := auth.Group("")
		admin.Use(middleware.RequireRoles(models.RoleSiteAdmin))
		{
			admin.GET("/users", userHandler.List)
			admin.DELETE("/users/:id", userHandler.Delete)
			admin.POST("/partners", partnerHandler.Create)
		}

		self := auth.Group("")
		self.Use(middleware.RBAC(string(models.RoleSiteAdmin), "SELF"))
		{
			self.GET("/users/:id", userHandler.Get)
			self.PUT("/users/:id", userHandler.Update)
			self.GET("/users/:id/impact", metricsHandler.UserImpact)
		}

		leads := auth.Group("")
		leads.Use(middleware.RequireRoles(models.RoleSiteAdmin, models.RoleEventLead))
		{
			leads.POST("/events", eventHandler.Create)
			leads.PUT("/events/:id", eventHandler.Update)
			leads.POST("/events/:id/cancel", eventHandler.Cancel)
			leads.POST("/events/:id/complete", eventHandler.Complete)
			leads.GET("/events/:id/attendees", attendeeHandler.ListByEvent)

			leads.GET("/events/:id/metrics", metricsHandler.ListByEvent)
			leads.GET("/events/:id/metrics/pending", metricsHandler.ListPending)
			leads.POST("/events/:id/metrics/approve-all", metricsHandler.ApproveAll)
			leads.POST("/metrics/:id/approve", metricsHandler.Approve)
			leads.POST("/metrics/:id/reject", metricsHandler.Reject)
			leads.POST("/metrics/:id/adjust", metricsHandler.Adjust)
			leads.GET("/events/:id/metrics/export", metricsHandler.Export)

			leads.POST("/events/:id/partner-requests", partnerHandler.RequestService)
			leads.GET("/events/:id/partner-requests", partnerHandler.ListByEvent)
			leads.GET("/partners/:id/requests", partnerHandler.ListByPartner)
			leads.POST("/partner-requests/:id/accept", partnerHandler.Accept)
			leads.POST("/partner-requests/:id/decline", partnerHandler.Decline)
			leads.POST("/partner-requests/:id/complete", partnerHandler.Complete)
		}
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	if err := cacheRepo.Close(); err != nil {
		logr.Sugar().Warnw("failed to close redis", "error", err)
	}
}
