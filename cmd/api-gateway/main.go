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

	_ "github.com/secuteam/gwm-api/api/swagger"
	"github.com/secuteam/gwm-api/internal/handler"
	"github.com/secuteam/gwm-api/internal/middleware"
	"github.com/secuteam/gwm-api/internal/models"
	"github.com/secuteam/gwm-api/internal/repository"
	"github.com/secuteam/gwm-api/internal/service"
	"github.com/secuteam/gwm-api/pkg/cache"
	"github.com/secuteam/gwm-api/pkg/config"
	"github.com/secuteam/gwm-api/pkg/database"
	"github.com/secuteam/gwm-api/pkg/jobs"
	"github.com/secuteam/gwm-api/pkg/logger"
	corsmiddleware "github.com/secuteam/gwm-api/pkg/middleware/cors"
	reqidmiddleware "github.com/secuteam/gwm-api/pkg/middleware/requestid"
	"github.com/secuteam/gwm-api/pkg/storage"
)

// @title GWM API
// @version 1.0.0
// @description Guard workforce management: events, zones, assignments and attendance
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
		// Redis is an accelerator, not a dependency. Counters and
		// dashboards fall back to the database when it is absent.
		logr.Sugar().Warnw("redis unavailable, running without cache", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	eventRepo := repository.NewEventRepository(db)
	zoneRepo := repository.NewZoneRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	notificationSvc := service.NewNotificationService(notificationRepo, cacheRepo, logr, jobs.QueueConfig{
		Workers:    cfg.Notifications.WorkerConcurrency,
		BufferSize: cfg.Notifications.QueueBuffer,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	})

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "gwm-api",
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	eventSvc := service.NewEventService(eventRepo, userRepo, validate, logr)
	supervisorSvc := service.NewZoneSupervisorService(zoneRepo, logr)
	zoneSvc := service.NewZoneService(zoneRepo, eventRepo, assignmentRepo, userRepo, validate, logr)
	assignmentSvc := service.NewAssignmentService(
		assignmentRepo,
		userRepo,
		eventRepo,
		zoneRepo,
		supervisorSvc,
		notificationSvc,
		userRepo,
		validate,
		logr,
		cfg.Assignments.DetachSupervisorOnDelete,
	)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, assignmentRepo, eventRepo, userRepo, logr)
	messageSvc := service.NewMessageService(messageRepo, userRepo, notificationSvc, logr)
	var reportSvc *service.ReportService
	if cfg.Reports.ArchiveDir != "" {
		store, err := storage.NewLocalStorage(cfg.Reports.ArchiveDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to prepare report archive", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.JWT.Secret, cfg.Reports.DownloadTTL)
		reportSvc = service.NewReportService(eventRepo, assignmentRepo, attendanceRepo, store, signer, logr)
	} else {
		reportSvc = service.NewReportService(eventRepo, assignmentRepo, attendanceRepo, nil, nil, logr)
	}
	dashboardSvc := service.NewDashboardService(cacheRepo, eventRepo, assignmentRepo, attendanceRepo, zoneRepo, cfg.Dashboard.CacheTTL, logr)
	metricsSvc := service.NewMetricsService()

	if cfg.Notifications.Enabled {
		notificationSvc.StartQueue(context.Background())
		defer notificationSvc.StopQueue()
	}

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	eventHandler := handler.NewEventHandler(eventSvc)
	zoneHandler := handler.NewZoneHandler(zoneSvc, supervisorSvc)
	assignmentHandler := handler.NewAssignmentHandler(assignmentSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	messageHandler := handler.NewMessageHandler(messageSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc, metricsSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

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
	r.GET("/metrics", metricsHandler.Prometheus())

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	authed.POST("/auth/logout", authHandler.Logout)
	authed.POST("/auth/change-password", authHandler.ChangePassword)
	authed.GET("/auth/me", authHandler.Me)

	admin := string(models.RoleAdmin)
	supervisor := string(models.RoleSupervisor)

	authed.GET("/users", middleware.RBAC(admin, supervisor), userHandler.List)
	authed.GET("/users/:id", middleware.RBAC(admin, supervisor, "SELF"), userHandler.Get)
	authed.POST("/users", middleware.RBAC(admin), userHandler.Create)
	authed.PUT("/users/:id", middleware.RBAC(admin, "SELF"), userHandler.Update)
	authed.PATCH("/users/:id/status", middleware.RBAC(admin), userHandler.SetStatus)

	authed.GET("/events", eventHandler.List)
	authed.GET("/events/:id", eventHandler.Get)
	authed.POST("/events", middleware.RBAC(admin, supervisor), eventHandler.Create)
	authed.PUT("/events/:id", middleware.RBAC(admin, supervisor), eventHandler.Update)
	authed.PATCH("/events/:id/status", middleware.RBAC(admin, supervisor), eventHandler.SetStatus)

	authed.GET("/events/:id/zones", zoneHandler.ListByEvent)
	authed.GET("/zones/:id", zoneHandler.Get)
	authed.POST("/zones", middleware.RBAC(admin, supervisor), zoneHandler.Create)
	authed.PUT("/zones/:id", middleware.RBAC(admin, supervisor), zoneHandler.Update)
	authed.DELETE("/zones/:id", middleware.RBAC(admin, supervisor), zoneHandler.Delete)
	authed.POST("/zones/:id/supervisors", middleware.RBAC(admin, supervisor), middleware.Audit(userRepo, "ZONE_SUPERVISOR_ADD", "zone"), zoneHandler.AddSupervisor)
	authed.DELETE("/zones/:id/supervisors/:supervisorId", middleware.RBAC(admin, supervisor), middleware.Audit(userRepo, "ZONE_SUPERVISOR_REMOVE", "zone"), zoneHandler.RemoveSupervisor)

	authed.POST("/assignments", middleware.RBAC(admin, supervisor), assignmentHandler.Request)
	authed.POST("/assignments/:id/respond", assignmentHandler.Respond)
	authed.DELETE("/assignments/:id", middleware.RBAC(admin, supervisor), assignmentHandler.Delete)
	authed.GET("/events/:id/assignments", assignmentHandler.ListByEvent)
	authed.POST("/events/:id/assignments/bulk-confirm", middleware.RBAC(admin, supervisor), assignmentHandler.BulkConfirm)
	authed.GET("/agents/:id/assignments", middleware.RBAC(admin, supervisor, "SELF"), assignmentHandler.ListByAgent)

	authed.POST("/assignments/:id/check-in", attendanceHandler.CheckIn)
	authed.POST("/assignments/:id/check-out", attendanceHandler.CheckOut)
	authed.GET("/events/:id/attendance", middleware.RBAC(admin, supervisor), attendanceHandler.ListByEvent)
	authed.GET("/events/:id/attendance/summary", middleware.RBAC(admin, supervisor), attendanceHandler.Summary)

	authed.GET("/notifications", notificationHandler.List)
	authed.GET("/notifications/unread-count", notificationHandler.UnreadCount)
	authed.POST("/notifications/:id/read", notificationHandler.MarkRead)
	authed.POST("/notifications/read-all", notificationHandler.MarkAllRead)

	authed.GET("/messages", messageHandler.Conversations)
	authed.POST("/messages", messageHandler.Send)
	authed.GET("/messages/:peerId", messageHandler.History)

	if cfg.Reports.Enabled {
		authed.GET("/events/:id/reports/staffing", middleware.RBAC(admin, supervisor), reportHandler.Staffing)
		authed.GET("/events/:id/reports/attendance", middleware.RBAC(admin, supervisor), reportHandler.Attendance)
		// Download links carry their own HMAC token, no session required.
		api.GET("/downloads/:token", reportHandler.Download)
	}

	if cfg.Dashboard.Enabled {
		dashboard := authed.Group("/dashboard")
		dashboard.Use(middleware.WithResponseMeta())
		dashboard.GET("/overview", middleware.RBAC(admin, supervisor), dashboardHandler.Overview)
		dashboard.GET("/events/:id", middleware.RBAC(admin, supervisor), dashboardHandler.EventBoard)
		dashboard.DELETE("/cache", middleware.RBAC(admin), dashboardHandler.Invalidate)
	}

	authed.GET("/metrics/snapshot", middleware.RBAC(admin), metricsHandler.Snapshot)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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
}
