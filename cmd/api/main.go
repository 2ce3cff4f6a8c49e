package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tbnow/screening-api/internal/client/reasoning"
	"github.com/tbnow/screening-api/internal/client/recordstore"
	"github.com/tbnow/screening-api/internal/client/vision"
	"github.com/tbnow/screening-api/internal/config"
	healthHandler "github.com/tbnow/screening-api/internal/handler/health"
	recordHandler "github.com/tbnow/screening-api/internal/handler/record"
	screeningHandler "github.com/tbnow/screening-api/internal/handler/screening"
	"github.com/tbnow/screening-api/internal/middleware"
	"github.com/tbnow/screening-api/internal/router"
	recordService "github.com/tbnow/screening-api/internal/service/record"
	sessionService "github.com/tbnow/screening-api/internal/service/session"
	"github.com/tbnow/screening-api/pkg/logger"
	"github.com/tbnow/screening-api/pkg/messaging"
	redisBroker "github.com/tbnow/screening-api/pkg/messaging/redis"
	"github.com/tbnow/screening-api/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := logger.NewLogger(&logger.Config{
		Level:      level,
		TimeFormat: time.RFC3339,
		Pretty:     cfg.Log.Pretty,
	})

	m := metrics.NewMetrics("screening")

	// Event broker is optional; everything degrades to a no-op.
	var broker messaging.Broker = messaging.NoopBroker{}
	if cfg.Events.Enabled {
		b, err := redisBroker.NewRedisBroker(redisBroker.Config{
			URL:          cfg.Events.RedisURL,
			MaxRetries:   3,
			RetryBackoff: 100 * time.Millisecond,
			PoolSize:     10,
			MinIdleConns: 2,
		})
		if err != nil {
			log.Fatal(err, "failed to connect to Redis")
		}
		broker = b
		defer broker.Close()
	}

	// Upstream clients
	reasoningClient := reasoning.NewClient(reasoning.Config{
		BaseURL: cfg.Reasoning.BaseURL,
		Timeout: cfg.Reasoning.Timeout,
		RPS:     cfg.Reasoning.RPS,
		Burst:   cfg.Reasoning.Burst,
	}, log)
	visionClient := vision.NewClient(vision.Config{
		BaseURL: cfg.Vision.BaseURL,
		Timeout: cfg.Vision.Timeout,
	}, log)
	storeClient := recordstore.NewClient(recordstore.Config{
		BaseURL: cfg.Store.BaseURL,
		Timeout: cfg.Store.Timeout,
	}, log, m)

	// Services
	sessionSvc := sessionService.NewService(reasoningClient, visionClient, storeClient, broker, log, m)
	recordSvc := recordService.NewService(storeClient, broker, log)

	// Handlers
	screeningH := screeningHandler.NewHandler(sessionSvc)
	recordH := recordHandler.NewHandler(recordSvc)
	healthH := healthHandler.NewHandler(map[string]healthHandler.Check{
		"reasoning": healthHandler.HTTPCheck(cfg.Reasoning.BaseURL),
		"vision":    healthHandler.HTTPCheck(cfg.Vision.BaseURL),
		"store":     healthHandler.HTTPCheck(cfg.Store.BaseURL),
	})

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.Server.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.Server.AllowedOrigins
	}

	routerConfig := router.Config{
		RequestTimeout: cfg.Server.RequestTimeout,
		CORSConfig:     corsConfig,
		MetricsPrefix:  "screening_api",
	}
	if cfg.RateLimit.Enabled {
		routerConfig.RateLimit = rate.Limit(cfg.RateLimit.RequestsPerSecond)
		routerConfig.RateBurst = cfg.RateLimit.Burst
	}

	r := router.NewRouter(routerConfig, screeningH, recordH, healthH)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	go func() {
		log.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err, "server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error(err, "forced shutdown")
	}
}
