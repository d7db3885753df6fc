package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pmdashboard/internal/auth"
	"pmdashboard/internal/config"
	"pmdashboard/internal/database"
	"pmdashboard/internal/job"
	"pmdashboard/internal/logger"
	"pmdashboard/internal/metrics"
	"pmdashboard/internal/report"
	"pmdashboard/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Server struct {
	Engine  *gin.Engine
	DB      *gorm.DB
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	scheduler *cron.Cron
	redis     *redis.Client
	statsDone chan struct{}
}

func Init(cfg *config.Config) (*Server, error) {
	log, err := logger.New(cfg.Server.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("❌ failed to build logger: %w", err)
	}
	gin.SetMode(cfg.Server.Mode)

	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("❌ failed to connect to DB: %w", err)
	}
	log.Info("✅ Connected to database", zap.String("driver", cfg.Database.Driver))

	if err := database.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("❌ %w", err)
	}
	if cfg.Seed.DefaultUsers {
		n, err := database.SeedDefaultUsers(db, log)
		if err != nil {
			return nil, fmt.Errorf("❌ failed to seed users: %w", err)
		}
		if n > 0 {
			log.Info("🌱 Default users created", zap.Int("count", n))
		}
	}

	m := metrics.New(log)
	if err := database.RegisterMetricsCallbacks(db, m); err != nil {
		return nil, fmt.Errorf("❌ failed to register DB metrics: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var revoked auth.RevocationStore = auth.NewMemoryRevocationStore()
	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = auth.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("❌ failed to connect to redis: %w", err)
		}
		revoked = auth.NewRedisRevocationStore(redisClient)
		log.Info("✅ Token revocations stored in redis")
	}

	var archive report.Archive
	if cfg.S3.Enabled() {
		s3Archive, err := report.NewS3Archive(ctx, cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("❌ failed to configure report archive: %w", err)
		}
		archive = s3Archive
		log.Info("✅ Report archive enabled", zap.String("bucket", cfg.S3.Bucket))
	}

	s, err := build(cfg, db, log, m, prometheus.DefaultGatherer, revoked, archive)
	if err != nil {
		return nil, err
	}
	s.redis = redisClient
	return s, nil
}

// build wires repositories, services, handlers and the scheduler around an open database
func build(cfg *config.Config, db *gorm.DB, log *zap.Logger, m *metrics.Metrics,
	gatherer prometheus.Gatherer, revoked auth.RevocationStore, archive report.Archive) (*Server, error) {
	snapshot := job.NewSnapshot(
		repository.NewProjectRepository(db),
		repository.NewTaskRepository(db),
		repository.NewUserRepository(db),
		m, log,
	)
	scheduler, err := job.Schedule(cfg.Jobs.SnapshotSchedule, snapshot)
	if err != nil {
		return nil, fmt.Errorf("❌ %w", err)
	}

	engine := gin.New()
	engine.Use(middleware(log, m)...)
	registerRoutes(engine, newHandlers(cfg, db, log, m, revoked, archive), gatherer)

	return &Server{
		Engine:    engine,
		DB:        db,
		Config:    cfg,
		Logger:    log,
		Metrics:   m,
		scheduler: scheduler,
	}, nil
}

func (s *Server) Run() {
	srv := &http.Server{
		Addr:    ":" + s.Config.Server.Port,
		Handler: s.Engine,
	}

	s.statsDone = database.StartDBStatsCollector(s.DB, s.Metrics, 15*time.Second)
	s.scheduler.Start()
	s.Logger.Info("⏰ Snapshot job scheduled", zap.String("schedule", s.Config.Jobs.SnapshotSchedule))

	go func() {
		s.Logger.Info("🚀 Server running", zap.String("port", s.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Fatal("❌ Failed to listen", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	s.Logger.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(s.Config.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		s.Logger.Fatal("❌ Server forced to shutdown", zap.Error(err))
	}
	s.close()

	s.Logger.Info("✅ Server exited properly")
	_ = s.Logger.Sync()
}

func (s *Server) close() {
	<-s.scheduler.Stop().Done()
	if s.statsDone != nil {
		close(s.statsDone)
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.Logger.Warn("Failed to close redis client", zap.Error(err))
		}
	}
	if sqlDB, err := s.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			s.Logger.Warn("Failed to close database", zap.Error(err))
		}
	}
}
