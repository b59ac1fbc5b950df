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

	"github.com/sirupsen/logrus"
	"gorm.io/gorm/logger"

	"github.com/akmatori/opsconsole/internal/alerts"
	"github.com/akmatori/opsconsole/internal/alerts/adapters"
	"github.com/akmatori/opsconsole/internal/config"
	"github.com/akmatori/opsconsole/internal/database"
	"github.com/akmatori/opsconsole/internal/events"
	"github.com/akmatori/opsconsole/internal/handlers"
	"github.com/akmatori/opsconsole/internal/jobs"
	"github.com/akmatori/opsconsole/internal/middleware"
	"github.com/akmatori/opsconsole/internal/notify"
	"github.com/akmatori/opsconsole/internal/seed"
	"github.com/akmatori/opsconsole/internal/services"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logrus.Warnf("Unknown LOG_LEVEL %q, using info", cfg.LogLevel)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	logrus.Info("Starting ops console backend...")

	backend, err := database.Open(cfg.DatabaseURL, gormLogLevel(level))
	if err != nil {
		logrus.Fatalf("Failed to open store: %v", err)
	}
	defer backend.Close()

	dataset, err := seed.Load()
	if err != nil {
		logrus.Fatalf("Failed to load seed data: %v", err)
	}
	if err := seed.Apply(context.Background(), backend, dataset); err != nil {
		logrus.Fatalf("Failed to seed store: %v", err)
	}
	logrus.Info("Store seeded")

	hub := events.NewHub()
	svc := services.New(services.NewStore(backend), services.Options{
		Catalog:      dataset,
		Publisher:    hub,
		Sender:       notify.New(cfg.NotifyMode),
		StepDelay:    cfg.AutomationStep(),
		AnalyticsTTL: cfg.AnalyticsCacheTTL(),
	})
	defer svc.Stop()
	logrus.Infof("Services initialized (notify mode: %s)", cfg.NotifyMode)

	jwtAuth := middleware.NewJWTAuthMiddleware(&middleware.JWTAuthConfig{
		Enabled:       cfg.AuthEnabled,
		JWTSecret:     cfg.JWTSecret,
		Expiry:        cfg.JWTExpiry(),
		DefaultUserID: cfg.DefaultUserID,
		SkipPaths:     handlers.AuthSkipPaths,
	})
	if cfg.AuthEnabled {
		logrus.Info("JWT authentication enabled")
	} else {
		logrus.Infof("Authentication disabled, requests act as %s unless X-User-ID is set", cfg.DefaultUserID)
	}

	registry := alerts.NewRegistry(adapters.NewAlertmanagerAdapter(), adapters.NewGrafanaAdapter())
	logrus.Infof("Alert adapters registered: %v", registry.Sources())

	latencyMin, latencyMax := cfg.Latency()
	router := handlers.NewRouter(handlers.RouterOptions{
		Services:       svc,
		Hub:            hub,
		Auth:           jwtAuth,
		Alerts:         registry,
		WebhookSecret:  cfg.WebhookSecret,
		AllowedOrigins: cfg.AllowedOrigins,
		LatencyMin:     latencyMin,
		LatencyMax:     latencyMax,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go jobs.NewSilenceExpiry(svc.Incidents).Start(ctx, cfg.SilenceSweep())

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.Infof("Starting HTTP server on port %d", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("HTTP server error: %v", err)
		}
	}()

	logrus.Infof("Health check endpoint: http://localhost:%d/health", cfg.HTTPPort)
	logrus.Infof("Alert webhook endpoint: http://localhost:%d/webhook/alert/{source}", cfg.HTTPPort)
	logrus.Infof("Event stream: ws://localhost:%d/ws/events", cfg.HTTPPort)

	<-ctx.Done()
	logrus.Info("Received shutdown signal, cleaning up...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("Error shutting down HTTP server: %v", err)
	}
	logrus.Info("Shutdown complete")
}

// gormLogLevel keeps SQL logging quiet unless debug logging is on
func gormLogLevel(level logrus.Level) logger.LogLevel {
	switch {
	case level >= logrus.DebugLevel:
		return logger.Info
	case level >= logrus.WarnLevel:
		return logger.Warn
	default:
		return logger.Error
	}
}
