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

	_ "github.com/slotline/slotline-api/api/swagger"
	"github.com/slotline/slotline-api/internal/handler"
	"github.com/slotline/slotline-api/internal/middleware"
	"github.com/slotline/slotline-api/internal/models"
	"github.com/slotline/slotline-api/internal/repository"
	"github.com/slotline/slotline-api/internal/service"
	"github.com/slotline/slotline-api/internal/sweep"
	"github.com/slotline/slotline-api/pkg/cache"
	"github.com/slotline/slotline-api/pkg/config"
	"github.com/slotline/slotline-api/pkg/database"
	"github.com/slotline/slotline-api/pkg/logger"
	corsmiddleware "github.com/slotline/slotline-api/pkg/middleware/cors"
	reqidmiddleware "github.com/slotline/slotline-api/pkg/middleware/requestid"
)

// @title Slotline API
// @version 1.0.0
// @description Scheduling and queueing engine for multi-tenant appointment platforms
// @BasePath /
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

	var cacheRepo service.CacheRepository
	if cfg.Availability.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		defer redisClient.Close()
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Availability.CacheTTL, logr, cfg.Availability.CacheEnabled)

	providerRepo := repository.NewProviderRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	queueRepo := repository.NewQueueRepository(db)
	entryRepo := repository.NewQueueEntryRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db)

	providerSvc := service.NewProviderService(providerRepo, logr)
	availabilitySvc := service.NewAvailabilityService(availabilityRepo, providerRepo, cacheSvc, cfg.Availability.CacheTTL, validate, logr)
	queueSvc := service.NewQueueService(queueRepo, service.QueueDefaults{
		MaxSize:           cfg.Queues.DefaultMaxSize,
		EstimatedWaitTime: cfg.Queues.DefaultEstimatedWait,
	}, metricsSvc, logr)
	assignmentSvc := service.NewAssignmentService(appointmentRepo, queueSvc, metricsSvc, logr)
	lifecycleSvc := service.NewLifecycleService(providerRepo, appointmentRepo, queueSvc, assignmentSvc, metricsSvc, logr)
	entrySvc := service.NewEntryService(entryRepo, queueSvc, metricsSvc, logr)
	exportSvc := service.NewExportService(queueSvc, entryRepo, nil, nil, logr)
	authSvc := service.NewAuthService(service.AuthConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
	}, logr)

	providerHandler := handler.NewProviderHandler(providerSvc)
	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc)
	queueHandler := handler.NewQueueHandler(queueSvc)
	entryHandler := handler.NewEntryHandler(entrySvc)
	sweepHandler := handler.NewSweepHandler(lifecycleSvc, assignmentSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	authHandler := handler.NewAuthHandler()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(authSvc))
	{
		api.GET("/auth/me", authHandler.Me)

		api.GET("/providers", providerHandler.List)
		api.GET("/providers/:id", providerHandler.Get)
		api.GET("/providers/:id/availability", availabilityHandler.Resolve)
		api.GET("/providers/:id/schedule", availabilityHandler.WeeklySchedule)
		api.GET("/providers/:id/queues", queueHandler.ListDaily)
		api.GET("/queues/:id", queueHandler.Get)
		api.GET("/queues/:id/entries", entryHandler.List)
		api.GET("/entries/:id", entryHandler.Get)

		staff := api.Group("")
		staff.Use(middleware.RBAC(models.RoleAdmin, models.RoleProvider, models.RoleStaff))
		{
			staff.POST("/queues/:id/entries", entryHandler.Join)
			staff.PATCH("/entries/:id/status", entryHandler.Transition)
			staff.POST("/appointments/:id/assign", sweepHandler.AssignAppointment)
			if cfg.Export.Enabled {
				staff.GET("/providers/:id/day-sheet", exportHandler.DaySheet)
			}
		}

		manage := api.Group("")
		manage.Use(middleware.RBAC(models.RoleAdmin, models.RoleProvider))
		{
			manage.POST("/providers/:id/availability/rules", availabilityHandler.CreateRule)
			manage.PUT("/availability/rules/:id", availabilityHandler.UpdateRule)
			manage.DELETE("/availability/rules/:id", availabilityHandler.DeleteRule)
			manage.POST("/providers/:id/availability/exceptions", availabilityHandler.CreateException)
			manage.POST("/providers/:id/queues", queueHandler.GetOrCreate)
			manage.PATCH("/queues/:id/status", queueHandler.SetStatus)
		}

		admin := api.Group("/admin")
		admin.Use(middleware.RBAC(models.RoleAdmin))
		{
			admin.POST("/sweeps/daily", sweepHandler.RunDaily)
			admin.POST("/sweeps/close-past", sweepHandler.ClosePast)
		}
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var scheduler *sweep.Scheduler
	if cfg.Sweep.Enabled {
		scheduler, err = sweep.NewScheduler(lifecycleSvc, cfg.Sweep, logr)
		if err != nil {
			logr.Sugar().Fatalw("failed to build sweep scheduler", "error", err)
		}
		scheduler.Start(rootCtx)
		defer scheduler.Stop()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-rootCtx.Done()
	logr.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("server shutdown failed", "error", err)
	}
}
