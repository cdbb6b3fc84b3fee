package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/catalogkit/promotion-system/internal/clock"
	"github.com/catalogkit/promotion-system/internal/config"
	"github.com/catalogkit/promotion-system/internal/handler"
	"github.com/catalogkit/promotion-system/internal/repository"
	"github.com/catalogkit/promotion-system/internal/service"
	"github.com/catalogkit/promotion-system/internal/validator"
	"github.com/catalogkit/promotion-system/pkg/database"
)

func main() {
	// Load configuration first
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Initialize zerolog based on configuration
	initLogger(cfg)

	// Create context for startup
	ctx := context.Background()

	// Initialize database pool with retry
	pool, err := database.NewPool(ctx, cfg.DB.DSN(), 5)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Initialize Fiber with production-ready configuration
	app := fiber.New(fiber.Config{
		AppName:      "Promotion Lifecycle System",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    1 * 1024 * 1024, // 1MB body limit
	})

	// Middleware
	app.Use(recover.New())
	app.Use(requestid.New()) // Adds X-Request-ID header to all requests
	app.Use(logger.New())

	// Initialize validator
	validate := validator.New()

	// Layered wiring: repositories -> overlap validator -> lifecycle service -> handlers
	promoRepo := repository.NewPromotionRepository(pool)
	trashRepo := repository.NewTrashRepository(pool)
	catalogRepo := repository.NewCatalogRepository(pool)
	overlaps := service.NewOverlapValidator(promoRepo)
	promotionService := service.NewPromotionService(
		pool, promoRepo, trashRepo, catalogRepo, overlaps,
		clock.RealClock{}, cfg.Trash.RetentionDays,
	)
	promotionHandler := handler.NewPromotionHandler(promotionService, overlaps, validate)
	trashHandler := handler.NewTrashHandler(promotionService, validate)
	catalogHandler := handler.NewCatalogHandler(catalogRepo)

	// Health handler
	healthHandler := handler.NewHealthHandler(pool)
	app.Get("/health", healthHandler.Check)

	// Promotion lifecycle routes
	app.Post("/api/promotions", promotionHandler.CreatePromotion)
	app.Get("/api/promotions", promotionHandler.ListPromotions)
	app.Get("/api/promotions/overlaps", promotionHandler.CountOverlaps)
	app.Get("/api/promotions/:id", promotionHandler.GetPromotion)
	app.Patch("/api/promotions/:id", promotionHandler.UpdatePromotion)
	app.Delete("/api/promotions/:id", promotionHandler.DeletePromotion)
	app.Post("/api/promotions/:id/products", promotionHandler.AssociateProducts)
	app.Delete("/api/promotions/:id/products", promotionHandler.RemoveProducts)

	// Trash routes
	app.Get("/api/trash", trashHandler.ListTrash)
	app.Get("/api/trash/purgeable", trashHandler.ListPurgeable)
	app.Get("/api/trash/users/:user_id", trashHandler.ListByUser)
	app.Post("/api/trash/:id/restore", trashHandler.Restore)
	app.Delete("/api/trash/:id", trashHandler.PermanentDelete)

	// Catalog pass-through routes
	app.Get("/api/categories", catalogHandler.ListCategories)
	app.Get("/api/products", catalogHandler.ListProducts)

	// Start server with graceful shutdown
	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	log.Info().Int("timeout_seconds", cfg.Server.ShutdownTimeout).Msg("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	// Shutdown server (waits for in-flight requests)
	log.Info().Msg("waiting for in-flight requests to complete...")
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	// Close database pool AFTER server shutdown (even if shutdown timed out)
	log.Info().Msg("closing database connections...")
	pool.Close()
	log.Info().Msg("database connections closed")
	log.Info().Msg("server stopped")
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	// Set log level
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Log.Pretty {
		// Human-readable output for development
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		// JSON output for production
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
