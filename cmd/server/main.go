package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/wanxtv/wanx/backend/internal/auth"
	"github.com/wanxtv/wanx/backend/internal/cache"
	"github.com/wanxtv/wanx/backend/internal/config"
	"github.com/wanxtv/wanx/backend/internal/database"
	"github.com/wanxtv/wanx/backend/internal/feeds"
	"github.com/wanxtv/wanx/backend/internal/handlers"
	"github.com/wanxtv/wanx/backend/internal/logger"
	"github.com/wanxtv/wanx/backend/internal/metrics"
	"github.com/wanxtv/wanx/backend/internal/middleware"
	"github.com/wanxtv/wanx/backend/internal/migu"
	"github.com/wanxtv/wanx/backend/internal/repository"
	"github.com/wanxtv/wanx/backend/internal/telemetry"
	"github.com/wanxtv/wanx/backend/internal/util"
	"go.uber.org/zap"
)

const (
	rateLimitSweep   = 5 * time.Minute
	shutdownTimeout  = 30 * time.Second
	readHeaderLimit  = 10 * time.Second
	requestBodyLimit = 1 << 20
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Initialize(cfg.Log.Level, cfg.Log.File); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	logger.Log.Info("=== wanx backend starting ===", zap.String("environment", cfg.Server.Environment))
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics.Initialize()

	tp, err := telemetry.InitTracer(context.Background(), telemetry.Config{
		ServiceName:  cfg.Telemetry.ServiceName,
		Environment:  cfg.Server.Environment,
		OTLPEndpoint: cfg.Telemetry.Endpoint,
		Enabled:      cfg.Telemetry.Enabled,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		logger.Log.Warn("Tracing disabled", zap.Error(err))
	}

	if err := database.Initialize(cfg.Database, cfg.IsDevelopment()); err != nil {
		logger.FatalWithFields("Failed to initialize database", err)
	}
	defer database.Close()
	if err := database.Migrate(); err != nil {
		logger.FatalWithFields("Failed to run migrations", err)
	}

	checks := map[string]handlers.HealthCheck{
		"database": func(context.Context) error { return database.Health() },
	}

	// Locks and the SMS queue live in redis; a single process can do without it
	var (
		locker cache.Locker
		jobs   cache.JobQueue
	)
	redisClient, err := cache.NewRedisClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password)
	if err != nil {
		logger.WarnWithFields("Redis unavailable, using process-local locks and queue", err)
		locker = cache.NewLocalLocker(cache.DefaultLockTTL)
		jobs = cache.NewMemoryQueue()
	} else {
		defer redisClient.Close()
		locker = cache.NewRedisLocker(redisClient, cache.DefaultLockTTL)
		jobs = cache.NewRedisQueue(redisClient, cfg.Report.SMSQueueKey)
		checks["redis"] = redisClient.Ping
	}

	db := database.DB
	videos := repository.NewVideoRepository(db)
	users := repository.NewUserRepository(db)
	relations := repository.NewRelationRepository(db)
	editorial := repository.NewEditorialRepository(db)
	comments := repository.NewCommentRepository(db)

	catalog, err := feeds.NewCatalog(feeds.Repositories{
		Videos:    videos,
		Relations: relations,
		Editorial: editorial,
		Comments:  comments,
	}, feeds.Config{
		MaxRounds:   cfg.Feed.MaxRounds,
		MaxScanned:  cfg.Feed.MaxScanned,
		Concurrency: cfg.Feed.ResolveConcurrency,
		Rules:       cfg.Feed.RuleMap(),
	})
	if err != nil {
		logger.FatalWithFields("Failed to build feeds", err)
	}

	miguClient := migu.NewClient(cfg.Migu)

	h := handlers.NewHandlers(handlers.Deps{
		Videos:    videos,
		Users:     users,
		Games:     repository.NewGameRepository(db),
		Comments:  comments,
		Relations: relations,
		Reports:   repository.NewReportRepository(db),
		Editorial: editorial,
		Feeds:     catalog,
		Auth:      auth.NewService([]byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL, users),
		Partners:  auth.NewPartnerGuard(cfg.Auth.PartnerTokens),
		Locker:    locker,
		Jobs:      jobs,
		Center:    miguClient,
		Pay:       miguClient,
		Words:     util.NewWordFilter(cfg.Content.ForbiddenWords),
		Checks:    checks,
	}, handlers.Options{
		DefaultPageSize: cfg.Feed.DefaultPageSize,
		MaxPageSize:     cfg.Feed.MaxPageSize,
		UploadSecret:    cfg.Upload.SignatureSecret,
		CDNBaseURL:      cfg.Upload.CDNBaseURL,
		HallGameURL:     cfg.Migu.HallGameURL,
		AppDownloadURL:  cfg.Migu.AppDownloadURL,
		IOSHideMoney:    cfg.Migu.IOSHideMoney,
		VIPZoneGridName: cfg.Migu.VIPZoneGridName,
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.TracingMiddleware(cfg.Telemetry.ServiceName))
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", middleware.RequestIDHeader}
	r.Use(cors.New(corsConfig))
	r.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, requestBodyLimit)
		c.Next()
	})

	h.RegisterRoutes(r)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		ticker := time.NewTicker(rateLimitSweep)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := h.SweepRateLimits(); n > 0 {
					logger.Log.Debug("Rate limit buckets swept", zap.Int("removed", n))
				}
			}
		}
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: readHeaderLimit,
	}

	go func() {
		logger.Log.Info("wanx backend listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.FatalWithFields("Failed to start server", err)
		}
	}()

	<-ctx.Done()
	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	if tp != nil {
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Log.Warn("Tracer shutdown failed", zap.Error(err))
		}
	}

	logger.Log.Info("Server exited")
}
