package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/igrejaconnect/campaign-service/environments"
	"github.com/igrejaconnect/campaign-service/handlers"
	"github.com/igrejaconnect/campaign-service/internal/dispatch"
	"github.com/igrejaconnect/campaign-service/internal/repository"
	"github.com/igrejaconnect/campaign-service/internal/service"
	"github.com/igrejaconnect/campaign-service/pkg/database"
	"github.com/igrejaconnect/campaign-service/pkg/logger"
	"github.com/igrejaconnect/campaign-service/pkg/provider"
	"github.com/igrejaconnect/campaign-service/pkg/redis"
	"github.com/igrejaconnect/campaign-service/pkg/validator"
	"github.com/igrejaconnect/campaign-service/routes"

	_ "github.com/igrejaconnect/campaign-service/docs" // swagger docs
)

// @title IgrejaConnect Campaign Service API
// @version 1.0
// @description Campaign broadcast and delivery tracking for the church directory

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

// @schemes http https
func main() {
	logger.Init()

	// Load config
	cfg := environments.Load()
	if cfg.Debug {
		logger.SetDebug(true)
	}

	// Hard-fail if required secrets are missing
	if cfg.Auth.APIToken == "" {
		logger.Fatalf("API_TOKEN is required but not set")
	}
	if cfg.Provider.Token == "" {
		logger.Fatalf("PROVIDER_TOKEN is required but not set")
	}

	logger.Infof("Starting campaign service...")

	// Init DB
	db, err := database.NewMySQLDB(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.RunMigrations(db); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}

	// Seed data
	if os.Getenv("SEED_DATA") == "true" {
		if err := database.SeedTestData(db); err != nil {
			logger.Warnf("Failed to seed test data: %v", err)
		}
	}

	// Init cache; the engine degrades gracefully without it
	var cacheClient *redis.Client
	cacheClient, err = redis.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Warnf("Cache not available, summary caching and cross-process run locks disabled: %v", err)
		cacheClient = nil
	}

	// Initialize the messaging gateway client
	gateway := provider.NewClient(cfg.Provider)
	logger.Infof("Gateway configured: %s (instance %s)", gateway.BaseURL(), cfg.Provider.Instance)

	// Initialize repositories
	recipientRepo := repository.NewRecipientRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	deliveryRepo := repository.NewDeliveryRepository(db)

	// Initialize the dispatcher and service
	var runLocker dispatch.RunLocker
	if cacheClient != nil {
		runLocker = cacheClient
	}
	dispatcher := dispatch.NewDispatcher(
		deliveryRepo,
		gateway,
		runLocker,
		cfg.Campaign.PacingDelay,
		cfg.Campaign.RunLockTTL,
	)

	var summaryCache service.SummaryCache
	if cacheClient != nil {
		summaryCache = cacheClient
	}
	campaignService := service.NewCampaignService(
		recipientRepo,
		campaignRepo,
		deliveryRepo,
		dispatcher,
		summaryCache,
		cfg.Campaign.MaxMessageLength,
	)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db, cacheClient)
	recipientHandler := handlers.NewRecipientHandler(campaignService)
	campaignHandler := handlers.NewCampaignHandler(campaignService)

	e := echo.New()
	e.HideBanner = true
	e.Validator = validator.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
		},
	}))

	// Setup routes
	routes.RegisterRoutes(e, healthHandler, recipientHandler, campaignHandler, cfg)

	// Start server in goroutine
	go func() {
		addr := ":" + cfg.Server.Port
		logger.Infof("Server starting on http://localhost%s", addr)
		logger.Infof("Swagger docs available at http://localhost%s/swagger/index.html", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Shutting down gracefully...")

	// Shutdown HTTP server (with timeout). In-flight campaign runs get the
	// full window to record the outcome of their current attempt.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Infof("Shutting down HTTP server...")
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	} else {
		logger.Infof("HTTP server stopped successfully")
	}

	// Close database connection
	logger.Infof("Closing database connection...")
	if err := db.Close(); err != nil {
		logger.Errorf("Error closing database: %v", err)
	}

	// Close cache connection
	if cacheClient != nil {
		logger.Infof("Closing cache connection...")
		if err := cacheClient.Close(); err != nil {
			logger.Errorf("Error closing cache: %v", err)
		}
	}

	logger.Infof("Graceful shutdown completed")
}
