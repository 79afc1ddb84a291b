package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"photofix-api/config"
	"photofix-api/internal/auth"
	"photofix-api/internal/database"
	"photofix-api/internal/handlers"
	"photofix-api/internal/middleware"
	"photofix-api/internal/queue"
	"photofix-api/internal/repositories"
	"photofix-api/internal/services"
	"photofix-api/pkg/billing"
	"photofix-api/pkg/mail"
	"photofix-api/pkg/memorydb"

	"github.com/joho/godotenv"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load .env file
	envPaths := []string{
		"../../.env", // From cmd/api/ to photofix-api/.env
		".env",       // Current directory
	}

	envLoaded := false
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			log.Printf("Loaded .env from: %s", path)
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.NewDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	tokenRepo := repositories.NewRefreshTokenRepository(db)
	photoRepo := repositories.NewPhotoRepository(db)
	orderRepo := repositories.NewOrderRepository(db)
	ticketRepo := repositories.NewTicketRepository(db)
	statsRepo := repositories.NewStatsRepository(db)

	// Initialize Redis. Optional: webhook dedup and stats caching degrade
	// gracefully without it.
	ctx := context.Background()
	var redisClient *memorydb.RedisClient
	if cfg.Redis.URL != "" {
		redisClient, err = memorydb.NewRedisClient(ctx, cfg)
		if err != nil {
			log.Printf("Failed to initialize Redis client: %v. Caching and event dedup disabled.", err)
			redisClient = nil
		} else {
			log.Println("Redis client initialized successfully")
		}
	} else {
		log.Println("REDIS_URL not set. Caching and event dedup disabled.")
	}

	// Initialize services
	tokenService := auth.NewTokenService(cfg)
	authService := services.NewAuthService(userRepo, tokenRepo, tokenService, cfg)

	billingClient := billing.NewClient(cfg)
	var dedup services.EventDeduper
	if redisClient != nil {
		dedup = redisClient
	}
	billingService := services.NewBillingService(orderRepo, billingClient, dedup)

	processor := queue.NewProcessor(photoRepo, cfg.Queue)
	healthService := services.NewHealthService(db, redisClient)

	mailer := mail.NewSender(cfg.Email)
	if !mailer.Enabled() {
		log.Println("SMTP not configured. Notification email disabled.")
	}

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(tokenService)
	internalMW := middleware.NewInternalMiddleware(cfg)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, userRepo)
	userHandler := handlers.NewUserHandler(userRepo)
	photoHandler := handlers.NewPhotoHandler(photoRepo, userRepo)
	billingHandler := handlers.NewBillingHandler(billingService, orderRepo, cfg.Billing.WebhookSecret)
	ticketHandler := handlers.NewTicketHandler(ticketRepo, mailer)
	adminHandler := handlers.NewAdminHandler(statsRepo, redisClient)
	queueHandler := handlers.NewQueueHandler(processor)
	enhanceHandler := handlers.NewEnhanceHandler(photoRepo)

	// Setup router
	router := setupRouter(cfg, authHandler, userHandler, photoHandler, billingHandler, ticketHandler, adminHandler, queueHandler, enhanceHandler, healthService, authMW, internalMW)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s:%s", cfg.Server.Host, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	if redisClient != nil {
		redisClient.Close()
	}

	log.Println("Server exited")
}

func setupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	userHandler *handlers.UserHandler,
	photoHandler *handlers.PhotoHandler,
	billingHandler *handlers.BillingHandler,
	ticketHandler *handlers.TicketHandler,
	adminHandler *handlers.AdminHandler,
	queueHandler *handlers.QueueHandler,
	enhanceHandler *handlers.EnhanceHandler,
	healthService *services.HealthService,
	authMW *middleware.AuthMiddleware,
	internalMW *middleware.InternalMiddleware,
) *gin.Engine {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.ErrorMiddleware())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		checks, healthy := healthService.CheckOverall(c.Request.Context())
		status := http.StatusOK
		overall := "ok"
		if !healthy {
			status = http.StatusServiceUnavailable
			overall = "degraded"
		}
		c.JSON(status, gin.H{
			"status":  overall,
			"service": "photofix-api",
			"checks":  checks,
		})
	})

	v1 := router.Group("/api/v1")
	{
		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authMW.RequireAuth(), authHandler.Logout)
			authGroup.GET("/me", authMW.RequireAuth(), authHandler.Me)
		}

		// Authenticated routes
		protected := v1.Group("")
		protected.Use(authMW.RequireAuth())
		{
			protected.GET("/profile", userHandler.GetProfile)
			protected.PUT("/profile", userHandler.UpdateProfile)
			protected.PUT("/profile/password", userHandler.ChangePassword)

			protected.POST("/photos", photoHandler.Submit)
			protected.GET("/photos", photoHandler.List)
			protected.GET("/photos/:id", photoHandler.GetByID)

			protected.POST("/billing/checkout", billingHandler.Checkout)
			protected.GET("/billing/orders", billingHandler.ListOrders)

			protected.POST("/tickets", ticketHandler.Create)
			protected.GET("/tickets", ticketHandler.List)
			protected.GET("/tickets/:id", ticketHandler.GetByID)
			protected.POST("/tickets/:id/replies", ticketHandler.Reply)
			protected.PUT("/tickets/:id/status", ticketHandler.UpdateStatus)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(authMW.RequireAuth(), authMW.RequireAdmin())
		{
			admin.GET("/stats", adminHandler.Stats)
			admin.GET("/users", userHandler.ListUsers)
		}
	}

	// Billing webhook is authenticated by signature, not by JWT
	router.POST("/api/webhooks/billing", billingHandler.Webhook)

	// Cron trigger. GET and POST both accepted: schedulers differ.
	cron := router.Group("/api/cron")
	cron.Use(internalMW.RequireCronSecret())
	{
		cron.GET("/process-photos", queueHandler.ProcessPhotos)
		cron.POST("/process-photos", queueHandler.ProcessPhotos)
	}

	// Service-to-service routes
	internal := router.Group("/api/internal")
	internal.Use(internalMW.RequireInternalService())
	{
		internal.POST("/enhance", enhanceHandler.Enhance)
	}

	return router
}
