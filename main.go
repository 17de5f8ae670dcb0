package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roadeye/config"
	"roadeye/database"
	"roadeye/handlers"
	"roadeye/middleware"
	"roadeye/rabbitmq"
	"roadeye/storage"
	"roadeye/sweeper"
	"roadeye/validation"
	"roadeye/version"
	ws "roadeye/websocket"

	"github.com/apex/log"
	"github.com/apex/log/handlers/text"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	log.SetHandler(text.New(os.Stderr))

	// .env is optional outside development
	if err := godotenv.Load(); err != nil {
		log.Debugf(".env not loaded: %v", err)
	}

	cfg := config.Load()
	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	db, err := database.NewDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to create database connection: %v", err)
	}
	defer db.Close()

	if err := db.InitializeSchema(); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	authService := database.NewAuthService(db, cfg)

	store, err := storage.NewMinioStorage(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize object storage: %v", err)
	}

	validator := validation.NewValidator(cfg.OpenAIAPIKey, cfg.OpenAIModel)

	// RabbitMQ is optional: lifecycle events are also served over the
	// websocket hub, so a missing broker only degrades fan-out.
	var publisher *rabbitmq.Publisher
	if p, err := rabbitmq.NewPublisher(cfg.GetAMQPURL(), cfg.RabbitMQExchange, cfg.RabbitMQRoutingKey); err != nil {
		log.Warnf("Failed to initialize RabbitMQ publisher, continuing without it: %v", err)
	} else {
		publisher = p
		log.Infof("RabbitMQ publisher initialized: exchange=%s, routing_key=%s", cfg.RabbitMQExchange, cfg.RabbitMQRoutingKey)
	}

	hub := ws.NewHub()
	go hub.Run()

	sw := sweeper.New(db, store, cfg.UploadTTL)
	if err := sw.Start(cfg.SweepSchedule); err != nil {
		log.Warnf("Failed to schedule orphaned upload sweep: %v", err)
	}
	defer sw.Stop()

	h := handlers.NewHandlers(db, authService, cfg, validator, store, publisher, hub)
	router := setupRouter(h, authService)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Infof("Starting HTTP server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			log.Errorf("Failed to close RabbitMQ publisher: %v", err)
		}
	}

	log.Info("Server exited")
}

func setupRouter(h *handlers.Handlers, authService *database.AuthService) *gin.Engine {
	router := gin.Default()

	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeaders())

	api := router.Group("/api/v3")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/signup", h.Signup)
			auth.POST("/login", h.Login)
			auth.POST("/refresh", h.Refresh)
		}

		// Public routes
		api.GET("/map/reports", h.MapReports)
		api.GET("/leaderboard", h.Leaderboard)
		api.GET("/live", h.LiveFeed)
		api.GET("/version", func(c *gin.Context) {
			c.JSON(http.StatusOK, version.Get("roadeye"))
		})

		// Protected routes (require authentication)
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(authService))
		{
			protected.POST("/auth/logout", h.Logout)
			protected.GET("/auth/me", h.Me)

			protected.POST("/reports", h.SubmitReport)
			protected.GET("/reports/mine", h.ListMyReports)
			protected.GET("/reports/:id", h.GetReport)

			protected.GET("/stats/me", h.MyStats)
			protected.PUT("/stats/me", h.UpdateMyProfile)
			protected.GET("/notifications", h.Notifications)

			admin := protected.Group("/admin")
			admin.Use(middleware.AdminOnly())
			{
				admin.GET("/reports", h.ListAllReports)
				admin.POST("/reports/:id/status", h.UpdateStatus)
				admin.POST("/notifications", h.SendNotification)
			}
		}
	}

	// Root health check
	router.GET("/health", h.HealthCheck)

	return router
}
