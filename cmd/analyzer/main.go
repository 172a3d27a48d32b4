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
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"biosonar/internal/config"
	"biosonar/internal/handlers"
	"biosonar/internal/models"
	"biosonar/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if !cfg.IsProduction() {
		log.SetLevel(log.LevelDebug)
	}
	acfg := &cfg.Analyzer

	cacheService := services.NewCacheService(context.Background(), acfg)
	defer cacheService.Close()

	marketDataService := services.NewMarketDataService(acfg, cacheService)
	analysisService := services.NewAnalysisService(acfg, marketDataService)

	analyzeHandler := handlers.NewAnalyzeHandler(analysisService)
	healthHandler := handlers.NewHealthHandler("biosonar-analyzer", nil)

	app := fiber.New(fiber.Config{
		StrictRouting: true,
		CaseSensitive: true,
		ServerHeader:  "Biosonar",
		AppName:       "Biosonar Analyzer v" + handlers.Version,
		ReadTimeout:   time.Second * 10,
		WriteTimeout:  time.Second * 90,
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
	app.Use(cors.New(cors.Config{
		AllowOrigins: acfg.AllowOrigins,
		AllowMethods: "GET,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
		MaxAge:       3600,
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error:   "Rate limit exceeded",
				Message: "Please try again later.",
				Code:    fiber.StatusTooManyRequests,
			})
		},
	}))

	handlers.RegisterAnalyzer(app, analyzeHandler, healthHandler)

	go func() {
		if err := app.Listen(":" + acfg.Port); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Infof("Analyzer started on port %s", acfg.Port)
	log.Infof("Environment: %s", cfg.Environment)
	log.Infof("History sources: %v (persistent cache: %t)", marketDataService.Sources(), cacheService.Persistent())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server shutdown complete")
}
