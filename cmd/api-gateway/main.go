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
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-academic-api/api/swagger"
	"github.com/noah-isme/sma-academic-api/internal/dto"
	"github.com/noah-isme/sma-academic-api/internal/handler"
	"github.com/noah-isme/sma-academic-api/internal/repository"
	"github.com/noah-isme/sma-academic-api/internal/service"
	"github.com/noah-isme/sma-academic-api/pkg/cache"
	"github.com/noah-isme/sma-academic-api/pkg/config"
	"github.com/noah-isme/sma-academic-api/pkg/database"
	"github.com/noah-isme/sma-academic-api/pkg/jobs"
	"github.com/noah-isme/sma-academic-api/pkg/logger"
	"github.com/noah-isme/sma-academic-api/pkg/validator"
)

// @title SMA Academic API
// @version 1.0.0
// @description Class scheduling with conflict detection, weighted grades, GPA and class rankings.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

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
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// The API still serves from postgres; caching is simply switched off.
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := buildApp(cfg, db, redisClient, logr)
	app.warmups.Start(ctx)
	defer app.warmups.Stop()

	r := gin.New()
	registerRoutes(r, cfg, app)

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

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

type app struct {
	logger      *zap.Logger
	tokens      *service.TokenService
	metrics     *service.MetricsService
	warmups     *jobs.Queue[dto.WarmupPayload]
	schedules   *handler.ScheduleHandler
	assessments *handler.AssessmentHandler
	grades      *handler.GradeHandler
	ops         *handler.MetricsHandler
}

func buildApp(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, logr *zap.Logger) *app {
	metrics := service.NewMetricsService()
	validate := validator.New()

	var cacheRepo service.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	scheduleCache := service.NewCacheService(cacheRepo, metrics, cfg.Scheduling.CacheTTL, logr, redisClient != nil)
	gradeCache := service.NewCacheService(cacheRepo, metrics, cfg.Grading.CacheTTL, logr, redisClient != nil && cfg.Grading.CacheEnabled)

	scheduleRepo := repository.NewScheduleRepository(db)
	assessmentRepo := repository.NewAssessmentRepository(db)
	scoreRepo := repository.NewScoreRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)

	gradeSvc := service.NewGradeReportService(scoreRepo, enrollmentRepo, gradeCache, metrics, service.GradeReportConfig{
		PassingThreshold: cfg.Grading.PassingThreshold,
		CacheTTL:         cfg.Grading.CacheTTL,
	}, logr)

	warmups := jobs.NewQueue("ranking-warmup", gradeSvc.WarmupHandler(), jobs.QueueConfig{
		Workers:    cfg.Grading.WarmupWorkers,
		MaxRetries: cfg.Grading.WarmupRetries,
		Logger:     logr,
		OnDone:     func(_ string, err error) { metrics.ObserveWarmup(err) },
	})

	scheduleSvc := service.NewScheduleService(scheduleRepo, scheduleCache, metrics, validate, cfg.Scheduling.CacheTTL, logr)
	assessmentSvc := service.NewAssessmentService(assessmentRepo, scoreRepo, gradeCache, warmups, metrics, validate, logr)

	checks := []handler.DependencyCheck{{Name: "postgres", Ping: db.PingContext}}
	if redisClient != nil {
		checks = append(checks, handler.DependencyCheck{Name: "redis", Ping: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}

	return &app{
		logger: logr,
		tokens: service.NewTokenService(service.TokenConfig{
			Secret: cfg.JWT.Secret,
			Issuer: cfg.JWT.Issuer,
			Expiry: cfg.JWT.Expiration,
		}),
		metrics:     metrics,
		warmups:     warmups,
		schedules:   handler.NewScheduleHandler(scheduleSvc),
		assessments: handler.NewAssessmentHandler(assessmentSvc),
		grades:      handler.NewGradeHandler(gradeSvc),
		ops:         handler.NewMetricsHandler(metrics, checks...),
	}
}
