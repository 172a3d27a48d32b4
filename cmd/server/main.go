package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"biosonar/internal/client"
	"biosonar/internal/config"
	"biosonar/internal/dashboard"
	"biosonar/internal/handlers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if !cfg.IsProduction() {
		log.SetLevel(log.LevelDebug)
	}

	policy, err := dashboard.ParsePolicy(cfg.RacePolicy)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Background triggers are cancelled on shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend := client.NewBackend(cfg.BackendURL, cfg.BackendTimeout)
	board := dashboard.New(backend,
		dashboard.WithPolicy(policy),
		dashboard.WithContext(ctx),
	)

	dashboardHandler := handlers.NewDashboardHandler(board, time.Local)
	healthHandler := handlers.NewHealthHandler("biosonar-dashboard", map[string]handlers.Pinger{
		"backend": backend,
	})

	app := fiber.New(fiber.Config{
		StrictRouting: true,
		CaseSensitive: true,
		ServerHeader:  "Biosonar",
		AppName:       "Biosonar Dashboard v" + handlers.Version,
		ReadTimeout:   time.Second * 10,
		BodyLimit:     1024 * 1024,
		ErrorHandler:  handlers.CustomErrorHandler,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	handlers.RegisterDashboard(app, dashboardHandler, healthHandler)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Infof("Dashboard started on port %s", cfg.Port)
	log.Infof("Environment: %s", cfg.Environment)
	log.Infof("Backend: %s (race policy %s)", backend.BaseURL(), policy)

	<-ctx.Done()
	log.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	board.Wait()

	log.Info("Server shutdown complete")
}
