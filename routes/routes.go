package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/marketinni/backend/controllers"
	"github.com/marketinni/backend/middleware"
	"github.com/marketinni/backend/scheduler"
)

// SetupRoutes sets up all API routes
func SetupRoutes(router *gin.Engine, jobScheduler *scheduler.Scheduler) {
	// Initialize controllers
	authController := controllers.NewAuthController()
	alertController := controllers.NewAlertController()
	watchlistController := controllers.NewWatchlistController()
	streamController := controllers.NewStreamController(jobScheduler)

	// API v1 group
	api := router.Group("/api/v1")
	{
		// Auth routes
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authController.SignUp)
			auth.POST("/signin", middleware.LoginRateLimitMiddleware(), authController.SignIn)
		}

		// Alert routes
		alerts := api.Group("/alerts", middleware.JWTAuthMiddleware())
		{
			alerts.GET("", alertController.GetAlerts)
			alerts.POST("", alertController.CreateAlert)
			alerts.GET("/:id", alertController.GetAlert)
			alerts.PATCH("/:id", alertController.UpdateAlert)
			alerts.DELETE("/:id", alertController.DeleteAlert)
		}

		// Watchlist routes
		watchlist := api.Group("/watchlist", middleware.JWTAuthMiddleware())
		{
			watchlist.GET("", watchlistController.GetWatchlist)
			watchlist.POST("", watchlistController.AddToWatchlist)
			watchlist.DELETE("/:symbol", watchlistController.RemoveFromWatchlist)
		}

		// Change-event fanout: subscriber socket plus the ingest
		// endpoint CRUD handlers push to
		api.GET("/ws", streamController.Subscribe)
		api.POST("/broadcast", streamController.Broadcast)

		// Monitor admin routes
		monitor := api.Group("/monitor", middleware.JWTAuthMiddleware())
		{
			monitor.POST("/check", streamController.RunCheck)
			monitor.GET("/status", streamController.Status)
		}
	}
}
