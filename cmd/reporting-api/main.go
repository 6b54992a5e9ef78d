package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/tumainiaid/reporting-api/api/swagger"
	"github.com/tumainiaid/reporting-api/internal/handler"
	"github.com/tumainiaid/reporting-api/internal/middleware"
	"github.com/tumainiaid/reporting-api/internal/models"
	"github.com/tumainiaid/reporting-api/internal/repository"
	"github.com/tumainiaid/reporting-api/internal/scheduler"
	"github.com/tumainiaid/reporting-api/internal/service"
	"github.com/tumainiaid/reporting-api/pkg/cache"
	"github.com/tumainiaid/reporting-api/pkg/config"
	"github.com/tumainiaid/reporting-api/pkg/database"
	"github.com/tumainiaid/reporting-api/pkg/logger"
	"github.com/tumainiaid/reporting-api/pkg/mailer"
	corsmiddleware "github.com/tumainiaid/reporting-api/pkg/middleware/cors"
	reqidmiddleware "github.com/tumainiaid/reporting-api/pkg/middleware/requestid"
	"github.com/tumainiaid/reporting-api/pkg/ratelimit"
)

// @title Tumaini Aid Reporting API
// @version 1.0.0
// @description Periodic update reporting, review and compliance service
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching and send dedup disabled", zap.Error(err))
		redisClient = nil
	}

	// Repositories.
	childRepo := repository.NewChildRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	sponsorRepo := repository.NewSponsorRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	// Services.
	metricsSvc := service.NewMetricsService()
	validate := validator.New()

	authSvc := service.NewAuthService(userRepo, validate, logr, cfg.JWT)
	workflowSvc := service.NewWorkflowService(submissionRepo, childRepo, userRepo, logr,
		service.WithWorkflowMetrics(metricsSvc))
	complianceSvc := service.NewComplianceService(childRepo, submissionRepo, logr,
		service.WithComplianceCache(cacheRepo, cfg.Compliance.CacheTTL),
		service.WithComplianceMetrics(metricsSvc))
	mail := mailer.New(cfg.Notifications, logr)
	escalationSvc := service.NewEscalationService(mail, cfg.Notifications, cfg.Compliance.ReminderOffsetDays, logr,
		service.WithTierMarkers(cacheRepo),
		service.WithEscalationMetrics(metricsSvc))
	sponsorSvc := service.NewSponsorService(sponsorRepo, userRepo, cfg.Sponsors.CooldownDays, logr)
	exportSvc := service.NewExportService(complianceSvc, logr)

	// Rate limiting. One shared counter store, separate policies per
	// namespace.
	var limiterStore *ratelimit.Store
	submitPolicy := ratelimit.Config{MaxRequests: cfg.RateLimit.SubmitMax, Window: cfg.RateLimit.SubmitWindow}
	sponsorPolicy := ratelimit.Config{MaxRequests: cfg.RateLimit.SponsorMax, Window: cfg.RateLimit.SponsorWindow}
	if cfg.RateLimit.Enabled {
		limiterStore = ratelimit.NewStore(cfg.RateLimit.CleanupInterval, ratelimit.WithLogger(logr))
		limiterStore.Start(ctx)
		defer limiterStore.Stop()
	}

	// Background sweep.
	if cfg.Scheduler.Enabled {
		sweeper := scheduler.NewSweeper(complianceSvc, escalationSvc, cfg.Scheduler, cfg.Compliance.DeadlineDay, logr)
		if err := sweeper.Start(ctx); err != nil {
			logr.Fatal("failed to start compliance sweeper", zap.Error(err))
		}
		defer sweeper.Stop()
	}

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	submissionHandler := handler.NewSubmissionHandler(workflowSvc)
	complianceHandler := handler.NewComplianceHandler(complianceSvc, exportSvc)
	sponsorHandler := handler.NewSponsorHandler(sponsorSvc)
	childHandler := handler.NewChildHandler(childRepo)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, func(ctx context.Context) error {
		return db.PingContext(ctx)
	})

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	updates := authed.Group("/updates")
	updates.POST("",
		middleware.RateLimit(limiterStore, submitPolicy, "submit", metricsSvc),
		middleware.RequireRoles(models.RoleFieldOfficer, models.RoleSchoolLiaison),
		submissionHandler.Create)
	updates.GET("", submissionHandler.List)
	updates.GET("/:id", submissionHandler.Get)
	// Submitter roles may move records to PENDING_REVIEW; review outcomes
	// are gated to the admin role inside the workflow service.
	updates.PATCH("/:id/status",
		middleware.RequireRoles(models.RoleAdmin, models.RoleFieldOfficer, models.RoleSchoolLiaison),
		submissionHandler.ChangeStatus)

	compliance := authed.Group("/compliance")
	compliance.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleFieldOfficer, models.RoleSchoolLiaison))
	compliance.GET("/missing", complianceHandler.Missing)
	compliance.GET("/summary", complianceHandler.Summary)
	if cfg.Exports.Enabled {
		compliance.GET("/summary/export", complianceHandler.Export)
	}

	children := authed.Group("/children")
	children.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleFieldOfficer, models.RoleSchoolLiaison))
	children.GET("", childHandler.List)
	children.GET("/:id", childHandler.Get)

	authed.POST("/sponsors/:id/update-requests",
		middleware.RateLimit(limiterStore, sponsorPolicy, "sponsor", metricsSvc),
		middleware.RBAC(string(models.RoleAdmin), "SELF"),
		sponsorHandler.RequestUpdate)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
