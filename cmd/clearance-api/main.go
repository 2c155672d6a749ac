package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/nazarenomarkanthony060120/e-clearance-student/api/swagger"
	"github.com/nazarenomarkanthony060120/e-clearance-student/internal/handler"
	"github.com/nazarenomarkanthony060120/e-clearance-student/internal/middleware"
	"github.com/nazarenomarkanthony060120/e-clearance-student/internal/models"
	"github.com/nazarenomarkanthony060120/e-clearance-student/internal/repository"
	"github.com/nazarenomarkanthony060120/e-clearance-student/internal/service"
	"github.com/nazarenomarkanthony060120/e-clearance-student/pkg/cache"
	"github.com/nazarenomarkanthony060120/e-clearance-student/pkg/config"
	"github.com/nazarenomarkanthony060120/e-clearance-student/pkg/database"
	"github.com/nazarenomarkanthony060120/e-clearance-student/pkg/jobs"
	"github.com/nazarenomarkanthony060120/e-clearance-student/pkg/logger"
	corsmiddleware "github.com/nazarenomarkanthony060120/e-clearance-student/pkg/middleware/cors"
	reqidmiddleware "github.com/nazarenomarkanthony060120/e-clearance-student/pkg/middleware/requestid"
	"github.com/nazarenomarkanthony060120/e-clearance-student/pkg/storage"
)

// @title E-Clearance Student API
// @version 1.0.0
// @description Student clearance submission and approval tracker
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("postgres connection failed", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("redis connection failed", "error", err)
	}
	defer redisClient.Close()

	uploads, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("upload storage init failed", "error", err)
	}
	exports, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("export storage init failed", "error", err)
	}

	uploadSigner := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)
	exportSigner := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Reports.SignedURLTTL)

	userRepo := repository.NewUserRepository(db)
	clearanceRepo := repository.NewClearanceRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	reportRepo := repository.NewReportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, cacheRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "e-clearance-student",
		ProfileCacheTTL:    cfg.Tracker.ProfileCacheTTL,
	})
	clearanceSvc := service.NewClearanceService(clearanceRepo, submissionRepo, userRepo, nil, logr)
	submissionSvc := service.NewSubmissionService(submissionRepo, clearanceRepo, userRepo, uploads, metricsSvc, nil, logr)
	trackerSvc := service.NewTrackerService(submissionRepo, clearanceRepo, userRepo, cacheRepo, metricsSvc, logr, service.TrackerConfig{
		MaxFetchAttempts: cfg.Tracker.MaxFetchAttempts,
		BudgetTTL:        cfg.Tracker.BudgetTTL,
		ProfileCacheTTL:  cfg.Tracker.ProfileCacheTTL,
	})
	exportSvc := service.NewExportService(submissionRepo, clearanceRepo, exports, exportSigner, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Reports.SignedURLTTL,
	}, logr, nil, nil)

	reportWorker := service.NewReportWorker(reportRepo, exportSvc, cfg.Reports.WorkerRetries, logr)
	reportQueue := jobs.NewQueue("reports", reportWorker.Handle, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		Logger:     logr,
	})
	reportSvc := service.NewReportService(reportRepo, reportQueue, exportSvc, logr, service.ReportServiceConfig{
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
		MaxRetries:      cfg.Reports.WorkerRetries,
	})

	if cfg.Reports.Enabled {
		reportQueue.Start(ctx)
		defer reportQueue.Stop()
		reportSvc.RecoverPendingJobs(ctx)
		reportSvc.StartCleanup(ctx)
	}

	authHandler := handler.NewAuthHandler(authSvc)
	clearanceHandler := handler.NewClearanceHandler(clearanceSvc)
	submissionHandler := handler.NewSubmissionHandler(submissionSvc)
	trackerHandler := handler.NewTrackerHandler(trackerSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	fileHandler := handler.NewFileHandler(uploads, uploadSigner, cfg.APIPrefix)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.MaxMultipartMemory = cfg.Uploads.MaxFileSizeBytes

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
	auth.GET("/profile", middleware.JWT(authSvc), authHandler.Profile)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))

	protected.GET("/clearances", middleware.RequireRoles(models.RoleStudent), clearanceHandler.Catalog)
	protected.GET("/clearances/:id", clearanceHandler.Get)
	protected.POST("/clearances", middleware.RequireRoles(models.RoleApprover), clearanceHandler.Create)

	students := protected.Group("")
	students.Use(middleware.RequireRoles(models.RoleStudent))
	students.POST("/submissions", submissionHandler.Create)
	students.GET("/submissions", trackerHandler.View)
	students.GET("/submissions/:id", trackerHandler.Detail)
	students.POST("/submissions/:id/resubmit", submissionHandler.Resubmit)
	students.POST("/reports/clearance-status", reportHandler.Create)
	students.GET("/reports/:id", reportHandler.Status)
	students.GET("/files/token", fileHandler.Sign)
	students.GET("/metrics/summary", metricsHandler.Snapshot)

	api.GET("/files", fileHandler.Download)
	api.GET("/export/:token", reportHandler.Download)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
