package routes

import (
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/igrejaconnect/campaign-service/environments"
	"github.com/igrejaconnect/campaign-service/handlers"
	"github.com/igrejaconnect/campaign-service/internal/middlewares"
)

// RegisterRoutes registers all API routes with middleware
func RegisterRoutes(
	e *echo.Echo,
	healthHandler *handlers.HealthHandler,
	recipientHandler *handlers.RecipientHandler,
	campaignHandler *handlers.CampaignHandler,
	cfg *environments.Config,
) {
	e.GET("/health", healthHandler.Health)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// Everything under /api/v1 requires the bearer token.
	v1 := e.Group("/api/v1", middlewares.BearerAuth(cfg.Auth.APIToken))

	v1.POST("/recipients/filter", recipientHandler.FilterRecipients)

	campaigns := v1.Group("/campaigns")
	campaigns.POST("/send", campaignHandler.SendCampaign)
	campaigns.POST("/reprocess", campaignHandler.Reprocess)
	campaigns.GET("/status", campaignHandler.Status)
	campaigns.POST("/clear-history", campaignHandler.ClearHistory)
}
