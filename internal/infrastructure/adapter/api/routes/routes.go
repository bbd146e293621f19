package routes

import (
	"net/http"

	coreport "github.com/maryreaky/betrix-payments/internal/domain/port/core"
	"github.com/maryreaky/betrix-payments/internal/infrastructure/adapter/api/handler"
	"github.com/maryreaky/betrix-payments/internal/infrastructure/adapter/api/middleware"
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all the routes for the API
func SetupRoutes(
	router *gin.Engine,
	paymentHandler *handler.PaymentHandler,
	webhookHandler *handler.WebhookHandler,
) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	paymentRoutes := router.Group("/payments")
	{
		// POST /payments
		paymentRoutes.POST("", paymentHandler.Initiate)

		// GET /payments/:reference
		paymentRoutes.GET("/:reference", paymentHandler.GetByReference)
	}

	// POST /webhooks/payments
	router.POST("/webhooks/payments", webhookHandler.HandleProviderEvent)
}

// SetupMiddlewares configures global middlewares for the API
func SetupMiddlewares(router *gin.Engine, logger coreport.Logger) {
	router.Use(middleware.ErrorHandler(logger))
	router.Use(middleware.Logger(logger))
	router.Use(middleware.CORS())
}
