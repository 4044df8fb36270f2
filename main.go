package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/marketinni/backend/config"
	"github.com/marketinni/backend/middleware"
	"github.com/marketinni/backend/routes"
	"github.com/marketinni/backend/scheduler"
	"github.com/marketinni/backend/services"
)

// storeInitialized tracks whether the document store has been
// connected, so the /ready endpoint can report readiness dynamically
var storeInitialized bool
var storeInitMutex sync.RWMutex

func main() {
	log.Println("==============================================")
	log.Println("  Marketinni Backend API - Starting...")
	log.Println("==============================================")

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("Warning: Config load issue: %v", err)
	}

	// Set Gin mode based on environment
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create Gin router
	router := gin.New()

	// Add middlewares
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestLogger())

	// Setup health check endpoints FIRST so the platform can detect
	// the service is up; the store is initialized in background
	setupHealthEndpoints(router)

	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MB
	}

	// Start server immediately so health checks pass while the
	// store connects
	go func() {
		log.Printf("Server listening on 0.0.0.0:%s", cfg.Port)
		log.Println("==============================================")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Initialize store and services in background
	var jobScheduler *scheduler.Scheduler
	var schedulerMu sync.Mutex
	go func() {
		if err := services.InitMongoDBClient(); err != nil {
			log.Printf("ERROR: MongoDB connection failed: %v", err)
			log.Println("Service will continue in limited mode (health check only)")
			return
		}

		initializeGlobalServices()

		storeInitMutex.Lock()
		storeInitialized = true
		storeInitMutex.Unlock()

		if cfg.MonitorEnabled {
			monitor := scheduler.NewAlertMonitor(
				services.GlobalMongoClient,
				services.GlobalQuoteService,
				services.GlobalMongoClient,
				newEmailNotifier(),
				cfg.AlertCooldown,
				cfg.EqualityTolerance,
			)
			schedulerMu.Lock()
			jobScheduler = scheduler.NewScheduler(monitor, services.GlobalMongoClient, cfg.CheckInterval)
			schedulerMu.Unlock()
			go jobScheduler.Start()
		} else {
			log.Println("Alert monitor disabled on this instance (MONITOR_ENABLED=false)")
		}

		// Setup all API routes
		routes.SetupRoutes(router, jobScheduler)

		log.Println("Application fully initialized")
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("Received signal %v, shutting down gracefully...", sig)

	schedulerMu.Lock()
	if jobScheduler != nil {
		jobScheduler.Stop()
	}
	schedulerMu.Unlock()

	if services.GlobalBroadcastHub != nil {
		services.GlobalBroadcastHub.Shutdown()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	if services.GlobalMongoClient != nil {
		if err := services.GlobalMongoClient.Close(); err == nil {
			log.Println("MongoDB connection closed")
		}
	}

	log.Println("Server shutdown completed")
}

// initializeGlobalServices initializes global service instances
func initializeGlobalServices() {
	if err := services.InitQuoteService(); err != nil {
		log.Printf("Warning: Failed to initialize quote service: %v", err)
	}

	if err := services.InitEmailService(); err != nil {
		log.Printf("Warning: Failed to initialize email service: %v", err)
	}

	if err := services.InitBroadcastHub(); err != nil {
		log.Printf("Warning: Failed to initialize broadcast hub: %v", err)
	}

	if err := services.InitBroadcastBridge(); err != nil {
		log.Printf("Warning: Failed to initialize broadcast bridge: %v", err)
	}

	middleware.InitLoginRateLimiter()

	log.Println("Global services initialized")
}

// emailNotifier adapts the email service to the monitor's Notifier
type emailNotifier struct{}

func newEmailNotifier() *emailNotifier {
	return &emailNotifier{}
}

func (n *emailNotifier) SendPriceAlert(pn scheduler.PriceNotification) error {
	return services.GlobalEmailService.SendPriceAlert(services.PriceAlertEmail{
		Email:        pn.Email,
		Symbol:       pn.Symbol,
		Company:      pn.Company,
		CurrentPrice: services.FormatPrice(pn.CurrentPrice),
		TargetPrice:  services.FormatPrice(pn.TargetPrice),
		Direction:    pn.Direction,
		Timestamp:    services.FormatAlertTimestamp(pn.OccurredAt),
	})
}

// setupHealthEndpoints sets up health check endpoints
func setupHealthEndpoints(router *gin.Engine) {
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Marketinni Backend API",
			"version": "1.0.0",
		})
	})

	// Liveness probe - always returns OK if server is running
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	// Readiness probe - checks if service is ready to receive traffic
	router.GET("/ready", func(c *gin.Context) {
		storeInitMutex.RLock()
		isReady := storeInitialized
		storeInitMutex.RUnlock()

		if !isReady {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "not_ready",
				"message": "Store not connected",
			})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()
		if err := services.GlobalMongoClient.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "not_ready",
				"message": "Store ping failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "ready",
		})
	})
}

// corsMiddleware returns a CORS middleware handler
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestLogger returns a request logging middleware
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip logging for health checks to reduce noise
		path := c.Request.URL.Path
		if path == "/health" || path == "/ready" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		// Only log errors or slow requests
		if c.Writer.Status() >= 400 || duration > 1*time.Second {
			log.Printf("%s %s %d %v", c.Request.Method, path, c.Writer.Status(), duration)
		}
	}
}
