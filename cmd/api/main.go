package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/example/staff-onboard/internal/auth"
	"github.com/example/staff-onboard/internal/blobstore"
	"github.com/example/staff-onboard/internal/config"
	"github.com/example/staff-onboard/internal/handlers"
	"github.com/example/staff-onboard/internal/logging"
	"github.com/example/staff-onboard/internal/metrics"
	"github.com/example/staff-onboard/internal/repository"
	"github.com/example/staff-onboard/internal/resolverclient"
	"github.com/example/staff-onboard/internal/server"
	"github.com/example/staff-onboard/internal/usecase"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		panic(err)
	}

	logger, err := logging.NewLogger("onboarding-api", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(reg)

	db := initDatabase(ctx, cfg, logger)
	repo := repository.NewEmployeeRepository(db, logger, cfg.API.PositionMatchExact)
	if err := repo.AutoMigrate(ctx); err != nil {
		logger.Fatal("auto migrate failed", zap.Error(err))
	}

	blobs, err := blobstore.NewStore(cfg.Blob.Dir)
	if err != nil {
		logger.Fatal("failed to initialize photo storage", zap.Error(err))
	}

	var cache usecase.Cache
	if cfg.Redis.Addr != "" {
		cache = usecase.NewRedisCache(initRedis(ctx, cfg.Redis.Addr, logger))
	}

	resolver := resolverclient.NewClient(cfg.Resolver, logger)
	uc := usecase.NewOnboardingUseCase(repo, blobs, resolver, cache, appMetrics, logger, cfg.Redis.TTL)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.MaxMultipartMemory = cfg.API.MaxUploadSize

	var middleware []gin.HandlerFunc
	if cfg.Auth.Secret != "" {
		middleware = append(middleware, auth.JWTMiddleware(cfg.Auth.Secret, cfg.Auth.Audience))
	}
	handlers.RegisterRoutes(router, uc, logger, cfg.API.MaxUploadSize, middleware...)

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("failed to access db handle", zap.Error(err))
	}
	handlers.NewHealthChecker(sqlDB, cfg.Resolver.BaseURL, logger).Register(router)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	srv := &http.Server{
		Addr:              cfg.API.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("onboarding API listening", zap.String("addr", cfg.API.ListenAddr))
	if err := server.Serve(srv, cfg.API.ShutdownTimeout, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

func initDatabase(ctx context.Context, cfg *config.Config, logger *zap.Logger) *gorm.DB {
	db, err := gorm.Open(postgres.Open(cfg.Postgres.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("failed to access db handle", zap.Error(err))
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.PingContext(ctx); err != nil {
		logger.Fatal("database ping failed", zap.Error(err))
	}
	return db
}

func initRedis(ctx context.Context, addr string, logger *zap.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Fatal("redis connection failed", zap.Error(err))
	}
	return client
}
