package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"campusprint/internal/api/middleware"
	"campusprint/internal/auth"
	"campusprint/internal/config"
	"campusprint/internal/jobs"
	"campusprint/internal/order"
	"campusprint/internal/pdfinspect"
	"campusprint/internal/settings"
	"campusprint/internal/storage"
)

// RegisterRoutes wires every API route under /v1.
func RegisterRoutes(
	router *gin.Engine,
	db *gorm.DB,
	authService *auth.AuthService,
	redisClient *redis.Client,
	logger *slog.Logger,
	storageClient *storage.Client,
	cfg *config.Config,
) {
	accumulator := order.NewAccumulator(pdfinspect.New(), cfg.Order.MaxFiles, cfg.Order.UnitRate)
	jobStore := jobs.NewStore(db, cfg.Order.MinPages)
	queue := jobs.NewQueue(jobStore, storageClient)
	registry := settings.NewRegistry(db)

	authHandler := NewAuthHandler(
		db, authService, redisClient, logger,
		cfg.Auth.LoginRateLimitPerHour, cfg.Auth.LoginLockThreshold, cfg.Auth.LoginLockTTL,
		cfg.Auth.CookieDomain,
	)
	orderHandler := NewOrderHandler(accumulator, jobStore, registry, storageClient, logger, cfg.Clamd.Addr, cfg.Order.MaxFileBytes)
	adminHandler := NewAdminHandler(queue, registry, storageClient, logger)
	authMiddleware := middleware.AuthMiddleware(authService)

	v1 := router.Group("/v1")
	{
		v1.GET("/payment-info", authMiddleware, orderHandler.PaymentInfo)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authMiddleware, authHandler.Logout)
		}

		orderGroup := v1.Group("/orders")
		orderGroup.Use(authMiddleware)
		{
			orderGroup.POST("/preview", orderHandler.Preview)
			orderGroup.POST("", orderHandler.Submit)
		}

		adminGroup := v1.Group("/admin")
		adminGroup.Use(authMiddleware, middleware.RequireAdmin())
		{
			adminGroup.GET("/jobs", adminHandler.ListJobs)
			adminGroup.POST("/jobs/:id/complete", adminHandler.CompleteJob)
			adminGroup.GET("/jobs/:id/export", adminHandler.ExportJob)
			adminGroup.PUT("/settings", adminHandler.UpdateSettings)
		}
	}
}
