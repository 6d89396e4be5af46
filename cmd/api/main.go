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
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/student-records/api/swagger"
	"github.com/noah-isme/student-records/internal/handler"
	"github.com/noah-isme/student-records/internal/middleware"
	"github.com/noah-isme/student-records/internal/query"
	"github.com/noah-isme/student-records/internal/repository"
	"github.com/noah-isme/student-records/internal/service"
	"github.com/noah-isme/student-records/internal/store"
	"github.com/noah-isme/student-records/pkg/cache"
	"github.com/noah-isme/student-records/pkg/config"
	"github.com/noah-isme/student-records/pkg/database"
	"github.com/noah-isme/student-records/pkg/jobs"
	"github.com/noah-isme/student-records/pkg/logger"
	corsmiddleware "github.com/noah-isme/student-records/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/student-records/pkg/middleware/requestid"
	"github.com/noah-isme/student-records/pkg/storage"
)

// @title Student Records API
// @version 1.0.0
// @description In-memory student record management with undo history, a read-only query language and report exports.
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := service.NewMetricsService()
	checks := map[string]handler.Checker{}
	st := store.New(store.NewHistory(cfg.History.Capacity))

	var (
		db        *sqlx.DB
		persister *service.SnapshotPersister
		queue     *jobs.Queue
	)
	if cfg.Persistence.Enabled {
		db, err = database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			logr.Fatal("failed to connect database", zap.Error(err))
		}
		defer db.Close() //nolint:errcheck
		if err := database.EnsureSchema(ctx, db); err != nil {
			logr.Fatal("failed to prepare schema", zap.Error(err))
		}
		repo := repository.NewStudentRepository(db)
		checks["database"] = repo.Ping

		persister = service.NewSnapshotPersister(repo, metrics, logger.Component(logr, "persistence"))
		queue = jobs.NewQueue("persistence", persister.Handle, jobs.QueueConfig{
			Workers:    cfg.Persistence.Workers,
			MaxRetries: cfg.Persistence.Retries,
			RetryDelay: cfg.Persistence.RetryDelay,
			Logger:     logger.Component(logr, "jobs"),
			OnGiveUp:   persister.OnGiveUp,
		})
	}

	var students *service.StudentService
	validate := validator.New()
	// queue stays an untyped nil when persistence is off.
	if queue != nil {
		students = service.NewStudentService(st, queue, metrics, validate, logger.Component(logr, "students"))
	} else {
		students = service.NewStudentService(st, nil, metrics, validate, logger.Component(logr, "students"))
	}

	if persister != nil {
		records, err := persister.Restore(ctx)
		if err != nil {
			logr.Fatal("failed to restore records", zap.Error(err))
		}
		if err := students.Restore(ctx, records); err != nil {
			logr.Fatal("failed to load restored records", zap.Error(err))
		}
		logr.Info("records restored", zap.Int("count", len(records)))
		queue.Start(ctx)
	}

	var redisClient *redis.Client
	if cfg.QueryCache.Enabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("query cache disabled: redis unavailable", zap.Error(err))
		}
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logger.Component(logr, "cache"))
	defer cacheRepo.Close() //nolint:errcheck
	if redisClient != nil {
		checks["cache"] = cacheRepo.Ping
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.QueryCache.TTL, logger.Component(logr, "cache"), redisClient != nil)
	queries := service.NewQueryService(students, query.NewEngine(), cacheSvc, metrics, cfg.QueryCache.TTL, logger.Component(logr, "query"))
	// Store versions restart at zero, so results cached by a previous process are unusable.
	queries.PurgeCache(ctx)

	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare export storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	reports := service.NewReportService(students, files, signer, service.ReportConfig{
		APIPrefix: cfg.APIPrefix,
		FileTTL:   cfg.Exports.SignedURLTTL,
	}, logger.Component(logr, "reports"), nil, nil)
	go reports.RunCleanup(ctx, cfg.Exports.CleanupInterval)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Handlers{
		Students: handler.NewStudentHandler(students),
		Query:    handler.NewQueryHandler(queries),
		History:  handler.NewHistoryHandler(students),
		Reports:  handler.NewReportHandler(reports),
		System:   handler.NewSystemHandler(metrics, students, checks),
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "persistence", cfg.Persistence.Enabled, "query_cache", redisClient != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server exited", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logr.Info("shutdown signal received")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	cancel()
	if queue != nil {
		logr.Info("draining persistence queue", zap.Int("pending", queue.Pending()))
		queue.Stop()
	}
	logr.Info("server stopped")
}
