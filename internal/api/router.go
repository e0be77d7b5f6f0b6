package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Maksud444/market-cairo-server/internal/api/handlers"
	"github.com/Maksud444/market-cairo-server/internal/api/middleware"
	"github.com/Maksud444/market-cairo-server/internal/config"
	"github.com/Maksud444/market-cairo-server/internal/realtime"
	"github.com/Maksud444/market-cairo-server/internal/services"
	"github.com/Maksud444/market-cairo-server/internal/storage"
)

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(
	cfg *config.Config,
	db *mongo.Database,
	registry *realtime.Registry,
	dispatcher services.Dispatcher,
	storageService storage.IS3Storage,
) *gin.Engine {
	// Services needed by the API handlers.
	userService := services.NewUserService(db, dispatcher)
	notificationService := services.NewNotificationService(db, dispatcher)
	verificationService := services.NewVerificationService(db, userService, notificationService, dispatcher)
	listingService := services.NewListingService(db, userService, notificationService, dispatcher)
	chatService := services.NewChatService(db, userService, notificationService, dispatcher)

	r := gin.Default()

	rateLimiter := middleware.NewRateLimiterMiddleware(cfg)
	r.Use(middleware.CORSMiddleware())
	r.Use(rateLimiter.Limit())

	authHandler := handlers.NewAuthHandler(cfg, userService)
	userHandler := handlers.NewUserHandler(userService, storageService)
	verificationHandler := handlers.NewVerificationHandler(verificationService)
	listingHandler := handlers.NewListingHandler(listingService)
	chatHandler := handlers.NewChatHandler(chatService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	adminHandler := handlers.NewAdminHandler(verificationService, listingService, chatService)
	wsHandler := handlers.NewWsHandler(cfg, registry, chatService, userService)

	v1 := r.Group("/v1")
	{
		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		// Public routes
		v1.POST("/auth/register", authHandler.Register)
		v1.POST("/auth/login", authHandler.Login)
		v1.GET("/listing/search", listingHandler.Search)
		v1.GET("/user/:id", userHandler.GetPublicProfile)

		// Public reads that personalize when a token is present.
		optional := v1.Group("/")
		optional.Use(middleware.OptionalAuthMiddleware(cfg.JwtSecret))
		{
			optional.GET("/listing/:id", listingHandler.Get)
			optional.GET("/user/:id/listing", listingHandler.BySeller)
		}

		// Realtime (token in query string).
		v1.GET("/ws", wsHandler.Connect)

		// Authenticated routes
		authRequired := v1.Group("/")
		authRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret))
		{
			authRequired.GET("/me", userHandler.Me)
			authRequired.PATCH("/me", userHandler.UpdateProfile)
			authRequired.DELETE("/me", userHandler.Deactivate)
			authRequired.POST("/me/upload-url", userHandler.UploadURL)

			authRequired.POST("/verification", verificationHandler.Submit)
			authRequired.GET("/verification", verificationHandler.Status)

			authRequired.POST("/listing", listingHandler.Create)
			authRequired.PATCH("/listing/:id", listingHandler.Update)
			authRequired.POST("/listing/:id/sold", listingHandler.MarkSold)
			authRequired.DELETE("/listing/:id", listingHandler.SoftDelete)
			authRequired.POST("/listing/:id/report", listingHandler.Report)
			authRequired.POST("/listing/:id/favorite", listingHandler.ToggleFavorite)

			authRequired.POST("/conversation", chatHandler.Start)
			authRequired.GET("/conversation", chatHandler.List)
			authRequired.GET("/conversation/:id", chatHandler.Open)
			authRequired.POST("/conversation/:id/message", chatHandler.Send)
			authRequired.DELETE("/conversation/:id", chatHandler.Archive)

			authRequired.GET("/notification", notificationHandler.List)
			authRequired.POST("/notification/read-all", notificationHandler.MarkAllRead)
			authRequired.POST("/notification/:id/read", notificationHandler.MarkRead)
		}

		// Admin routes
		adminRequired := v1.Group("/admin")
		adminRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret), middleware.AdminMiddleware())
		{
			adminRequired.GET("/verification", adminHandler.PendingVerifications)
			adminRequired.POST("/verification/:id/review", adminHandler.ReviewVerification)
			adminRequired.GET("/listing", adminHandler.ModerationQueue)
			adminRequired.POST("/listing/:id/moderate", adminHandler.ModerateListing)
			adminRequired.DELETE("/listing/:id", adminHandler.HardDeleteListing)
			adminRequired.GET("/message/:id", adminHandler.GetMessage)
		}
	}

	return r
}
