package routes

import (
	"github.com/commercekit/loyalty-backend/internal/config"
	"github.com/commercekit/loyalty-backend/internal/handlers"
	"github.com/commercekit/loyalty-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// HandlerDependencies groups the handlers wired in main
type HandlerDependencies struct {
	AuthHandler    *handlers.AuthHandler
	LoyaltyHandler *handlers.LoyaltyHandler
}

// SetupRouter sets up the router
func SetupRouter(cfg *config.Config, deps HandlerDependencies) *gin.Engine {
	router := gin.Default()

	router.Use(middleware.CORSMiddleware(cfg))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware())

	// Public routes
	public := router.Group("/api/v1")
	{
		public.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status": "ok",
			})
		})

		public.POST("/auth/login", deps.AuthHandler.Login)

		// Storefront loyalty routes; customer identity is resolved upstream
		loyalty := public.Group("/loyalty")
		{
			accounts := loyalty.Group("/accounts")
			{
				accounts.GET("/:customerId", deps.LoyaltyHandler.GetAccount)
				accounts.GET("/:customerId/tier", deps.LoyaltyHandler.GetTierInfo)
				accounts.GET("/:customerId/transactions", deps.LoyaltyHandler.ListTransactions)
				accounts.PUT("/:customerId/birthday", deps.LoyaltyHandler.UpdateBirthday)
				accounts.GET("/:customerId/birthday-reward/eligibility", deps.LoyaltyHandler.GetBirthdayRewardEligibility)
				accounts.POST("/:customerId/birthday-reward/sent", deps.LoyaltyHandler.MarkBirthdayRewardSent)
			}

			// Checkout completion webhook; duplicate deliveries are safe
			loyalty.POST("/orders/complete", deps.LoyaltyHandler.OrderCompleted)
		}
	}

	// Protected admin routes for manual point adjustments
	protected := router.Group("/api/v1")
	protected.Use(middleware.JWTAuthMiddleware(cfg))
	{
		points := protected.Group("/loyalty/points")
		{
			points.POST("/award", deps.LoyaltyHandler.AwardPoints)
			points.POST("/redeem", deps.LoyaltyHandler.RedeemPoints)
		}
	}

	return router
}
