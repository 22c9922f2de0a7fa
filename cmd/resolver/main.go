package main

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/example/staff-onboard/internal/config"
	"github.com/example/staff-onboard/internal/inference"
	"github.com/example/staff-onboard/internal/logging"
	"github.com/example/staff-onboard/internal/metrics"
	"github.com/example/staff-onboard/internal/server"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		panic(err)
	}

	logger, err := logging.NewLogger("identifier-resolver", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer logger.Sync() //nolint:errcheck

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(reg)

	// A model or label table that fails to load aborts startup; per-request
	// failures never do.
	classifier, err := inference.LoadClassifier(cfg.Model.Path, cfg.Model.LabelsPath, cfg.Model.InputSize)
	if err != nil {
		logger.Fatal("failed to load classifier",
			zap.String("model", cfg.Model.Path),
			zap.String("labels", cfg.Model.LabelsPath),
			zap.Error(err))
	}
	logger.Info("classifier loaded",
		zap.Int("labels", len(classifier.Labels())),
		zap.Int("input_size", classifier.InputSize()))

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.MaxMultipartMemory = inference.MaxImageSize

	inference.RegisterRoutes(router, classifier, appMetrics, logger)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	srv := &http.Server{
		Addr:              cfg.Resolver.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("identifier resolver listening", zap.String("addr", cfg.Resolver.ListenAddr))
	if err := server.Serve(srv, cfg.API.ShutdownTimeout, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}
