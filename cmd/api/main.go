package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/unaibg/merkatu/internal/adapters/http"
	"github.com/unaibg/merkatu/internal/adapters/mail"
	natsadapter "github.com/unaibg/merkatu/internal/adapters/nats"
	"github.com/unaibg/merkatu/internal/adapters/postgres"
	"github.com/unaibg/merkatu/internal/adapters/valkey"
	"github.com/unaibg/merkatu/internal/core/ports"
	"github.com/unaibg/merkatu/internal/core/usecases"
	"github.com/unaibg/merkatu/internal/monitoring"
	"github.com/unaibg/merkatu/internal/pkg/config"
	"github.com/unaibg/merkatu/internal/pkg/logging"
	"github.com/unaibg/merkatu/internal/pkg/metrics"
	"github.com/unaibg/merkatu/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("merkatu-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN(), 50)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Cache. The service keeps working without it, just slower.
	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
		cache = nil
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	// NATS alert publisher
	alertPub, err := natsadapter.NewAlertPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, alerts will only be logged", "error", err)
		alertPub = nil
	} else {
		defer alertPub.Close()
	}

	// Raw NATS connection for the WebSocket alert feed
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	// Telemetry engine
	thresholds := monitoring.Thresholds{
		VerificationCompletionFloor: cfg.Monitoring.VerificationCompletionFloor,
		DeliveryFloor:               cfg.Monitoring.DeliveryFloor,
		PasswordResetSuccessFloor:   cfg.Monitoring.PasswordResetSuccessFloor,
		AuthErrorRateCeiling:        cfg.Monitoring.AuthErrorRateCeiling,
		HardBounceCeiling:           cfg.Monitoring.HardBounceCeiling,
		SpamComplaintCeiling:        cfg.Monitoring.SpamComplaintCeiling,
		SlowQuery:                   cfg.Monitoring.SlowQuery(),
	}

	var notifier monitoring.Notifier = monitoring.NewLogNotifier(slog.Default())
	if alertPub != nil {
		notifier = monitoring.NewMultiNotifier(monitoring.NewLogNotifier(slog.Default()), alertPub)
	}

	monitor := monitoring.NewMonitor(slog.Default(), thresholds)
	errorRates := monitoring.NewErrorRateTracker(slog.Default(), cfg.Monitoring.MaxTrackedEndpoints)
	funnel := monitoring.NewFunnelTracker(slog.Default(), notifier, thresholds, cfg.Monitoring.MaxFunnelEvents)

	// Repos
	vendorRepo := postgres.NewVendorRepo(db)
	listingRepo := postgres.NewListingRepo(db)
	userRepo := postgres.NewUserRepo(db)

	// Use cases
	mailer := mail.NewLogMailer(slog.Default(), fmt.Sprintf("http://localhost:%d", cfg.Server.Port))
	vendorSvc := usecases.NewVendorService(vendorRepo)
	listingSvc := usecases.NewListingService(listingRepo, cacheSvc)
	authSvc := usecases.NewAuthService(userRepo, mailer, funnel,
		cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTL)*time.Minute)

	deps := &http.Dependencies{
		Vendors:    vendorSvc,
		Listings:   listingSvc,
		Auth:       authSvc,
		Monitor:    monitor,
		ErrorRates: errorRates,
		Funnel:     funnel,
		NATS:       natsConn,
		DB:         db,
		Cache:      cache,
		JWTSecret:  cfg.Auth.JWTSecret,
		AdminToken: cfg.Auth.AdminToken,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "Merkatu API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173, https://*.merkatu.eus",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Periodic DB pool gauge refresh
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.UpdateDBPoolMetrics(db.Pool.Stat())
			case <-ctx.Done():
				return
			}
		}
	}()

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
