package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/ahmetcoskunkizilkaya/careerforge/internal/apps"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/apps/judge"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/apps/learning"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/apps/notes"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/apps/roadmaps"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/apps/streak"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/config"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/database"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/logging"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/routes"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/services"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	// Structured logging (JSON to stdout)
	logging.Setup()

	cfg := config.Load()

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBDriver != "sqlite" && cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}

	if err := database.MigrateShared(database.DB); err != nil {
		slog.Error("shared migration failed", "error", err)
		os.Exit(1)
	}

	// ERROR+ records are also batched into system_logs
	dbLogHandler := logging.NewDBHandler(database.DB, 5*time.Second)
	slog.SetDefault(slog.New(logging.NewMultiHandler(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		dbLogHandler,
	)))

	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cfg.LogRetention, cleanupDone)

	plugins := []apps.Plugin{
		roadmaps.New(),
		streak.New(),
		notes.New(),
	}
	publicPlugins := []apps.PublicPlugin{
		learning.New(learning.WithLogger(slog.Default())),
		judge.New(slog.Default()),
	}

	var (
		purgers   []services.AccountPurger
		pluginIDs []string
	)
	for _, p := range publicPlugins {
		pluginIDs = append(pluginIDs, p.ID())
	}
	for _, p := range plugins {
		pluginIDs = append(pluginIDs, p.ID())
		if models := p.Models(); len(models) > 0 {
			if err := database.MigrateModels(database.DB, models); err != nil {
				slog.Error("plugin migration failed", "plugin", p.ID(), "error", err)
				os.Exit(1)
			}
			slog.Info("plugin migrated", "plugin", p.ID(), "models", len(models))
		}
		if purger, ok := p.(services.AccountPurger); ok {
			purgers = append(purgers, purger)
		}
	}

	authService := services.NewAuthService(database.DB, cfg, purgers...)
	logService := services.NewSystemLogService(database.DB, cfg.LogRetention)

	authHandler := handlers.NewAuthHandler(authService)
	healthHandler := handlers.NewHealthHandler(database.DB, pluginIDs)
	logHandler := handlers.NewSystemLogHandler(logService)

	// Sentry error tracking
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      os.Getenv("APP_ENV"),
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	app := fiber.New(fiber.Config{
		BodyLimit:    4 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	routes.Setup(app, cfg, database.DB, authHandler, healthHandler, logHandler, plugins, publicPlugins)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	close(cleanupDone)
	dbLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := database.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
