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
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/pbessa/diario-turma-api/api/swagger"
	"github.com/pbessa/diario-turma-api/internal/handler"
	"github.com/pbessa/diario-turma-api/internal/middleware"
	"github.com/pbessa/diario-turma-api/internal/repository"
	"github.com/pbessa/diario-turma-api/internal/service"
	"github.com/pbessa/diario-turma-api/pkg/cache"
	"github.com/pbessa/diario-turma-api/pkg/config"
	"github.com/pbessa/diario-turma-api/pkg/database"
	"github.com/pbessa/diario-turma-api/pkg/jobs"
	"github.com/pbessa/diario-turma-api/pkg/logger"
	corsmiddleware "github.com/pbessa/diario-turma-api/pkg/middleware/cors"
	reqidmiddleware "github.com/pbessa/diario-turma-api/pkg/middleware/requestid"
	"github.com/pbessa/diario-turma-api/pkg/storage"
)

// @title Diário de Turma API
// @version 1.0.0
// @description Attendance, homework and backpack tracking for classroom dashboards
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	metricsService := service.NewMetricsService()

	classRepo := repository.NewClassRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	recordRepo := repository.NewRecordRepository(db)
	userRepo := repository.NewUserRepository(db)

	var cacheService *service.CacheService
	if cfg.Stats.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, stats caching disabled", "error", err)
		} else {
			cacheRepo := repository.NewCacheRepository(redisClient)
			cacheService = service.NewCacheService(cacheRepo, metricsService, cfg.Stats.CacheTTL, logr, true)
			defer cacheRepo.Close() //nolint:errcheck
		}
	}

	statsService := service.NewStatsService(service.StatsServiceParams{
		Classes:  classRepo,
		Students: studentRepo,
		Records:  recordRepo,
		Cache:    cacheService,
		Metrics:  metricsService,
		Logger:   logr,
		Config: service.StatsServiceConfig{
			CacheTTL:       cfg.Stats.CacheTTL,
			TrendWindow:    cfg.Stats.TrendWindow,
			ChartSeriesMax: cfg.Stats.ChartSeriesMax,
		},
	})
	classService := service.NewClassService(classRepo, cacheService, nil, logr)
	studentService := service.NewStudentService(studentRepo, classRepo, cacheService, nil, logr)
	recordService := service.NewRecordService(recordRepo, studentRepo, cacheService, logr)
	authService := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	metricsHandler := handler.NewMetricsHandler(metricsService)
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

	authHandler := handler.NewAuthHandler(authService)
	classHandler := handler.NewClassHandler(classService)
	studentHandler := handler.NewStudentHandler(studentService)
	recordHandler := handler.NewRecordHandler(recordService)
	statsHandler := handler.NewStatsHandler(statsService)

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("")
	protected.Use(middleware.JWT(authService))
	protected.GET("/auth/me", authHandler.Me)

	protected.GET("/classes", classHandler.List)
	protected.POST("/classes", classHandler.Create)
	protected.GET("/classes/:classId", classHandler.Get)
	protected.PUT("/classes/:classId", classHandler.Update)
	protected.DELETE("/classes/:classId", classHandler.Delete)

	protected.GET("/classes/:classId/students", studentHandler.List)
	protected.POST("/classes/:classId/students", studentHandler.Create)
	protected.GET("/classes/:classId/students/:studentId", studentHandler.Get)
	protected.PUT("/classes/:classId/students/:studentId", studentHandler.Update)
	protected.DELETE("/classes/:classId/students/:studentId", studentHandler.Delete)

	protected.GET("/classes/:classId/records/:date", recordHandler.Roster)
	protected.GET("/classes/:classId/students/:studentId/records/:date", recordHandler.Get)
	protected.PUT("/classes/:classId/students/:studentId/records/:date", recordHandler.Save)
	protected.POST("/classes/:classId/students/:studentId/records/:date/toggle/:field", recordHandler.Toggle)

	protected.GET("/stats/year", statsHandler.Year)
	protected.GET("/stats/month", statsHandler.Month)
	protected.GET("/stats/trend", statsHandler.Trend)
	protected.GET("/stats/days/:date", statsHandler.Day)
	protected.GET("/stats/classes/:classId", statsHandler.Class)
	protected.GET("/stats/classes/:classId/students/:studentId", statsHandler.Student)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Reports.Enabled {
		reportService, queue, err := buildReportPipeline(ctx, cfg, db, statsService, logr)
		if err != nil {
			logr.Sugar().Fatalw("failed to init report pipeline", "error", err)
		}
		defer queue.Stop()

		reportHandler := handler.NewReportHandler(reportService)
		protected.POST("/reports", reportHandler.Create)
		protected.GET("/reports/:id", reportHandler.Status)
		api.GET("/reports/download/:token", reportHandler.Download)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logr.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("forced shutdown", "error", err)
	}
}

func buildReportPipeline(ctx context.Context, cfg *config.Config, db *sqlx.DB, stats *service.StatsService, logr *zap.Logger) (*service.ReportService, *jobs.Queue, error) {
	fileStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		return nil, nil, err
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	exportService := service.NewExportService(stats, fileStore, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Reports.SignedURLTTL,
	}, logr, nil, nil)

	jobRepo := repository.NewReportJobRepository(db)
	worker := service.NewReportWorker(jobRepo, exportService, cfg.Reports.WorkerRetries, logr)
	queue := jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		Logger:     logr,
	})
	queue.Start(ctx)

	reportService := service.NewReportService(jobRepo, queue, exportService, logr, service.ReportServiceConfig{
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
		MaxRetries:      cfg.Reports.WorkerRetries,
	})
	reportService.RecoverPendingJobs(ctx)
	reportService.StartCleanup(ctx)
	return reportService, queue, nil
}
