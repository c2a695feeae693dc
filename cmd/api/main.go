package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"stocker/internal/config"
	"stocker/internal/database"
	"stocker/internal/handlers"
	"stocker/internal/logger"
	"stocker/internal/middleware"
	"stocker/internal/services"
	"stocker/internal/validator"
)

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Register custom request validators
	validator.Register()

	// Initialize services
	db := dbManager.DB()
	userService := services.NewUserService(db)
	stockService := services.NewStockService(db)
	portfolioService := services.NewPortfolioService(db, stockService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userService)
	stockHandler := handlers.NewStockHandler(stockService)
	portfolioHandler := handlers.NewPortfolioHandler(portfolioService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Public routes
	auth := v1.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)

	// Protected routes
	protected := v1.Group("/")
	protected.Use(middleware.AuthMiddleware())

	// User profile
	protected.GET("/profile", authHandler.GetProfile)

	// Stock directory routes
	stocks := protected.Group("/stocks")
	stocks.POST("", stockHandler.CreateStock)
	stocks.GET("", stockHandler.ListStocks)
	stocks.POST("/prices", stockHandler.RecordPrices)
	stocks.GET("/:symbol", stockHandler.GetStock)
	stocks.GET("/:symbol/price", stockHandler.GetLatestPrice)
	stocks.GET("/:symbol/prices", stockHandler.GetPriceHistory)

	// Portfolio routes
	portfolios := protected.Group("/portfolios")
	portfolios.POST("", portfolioHandler.CreatePortfolio)
	portfolios.GET("", portfolioHandler.ListPortfolios)
	portfolios.GET("/:id", portfolioHandler.GetPortfolio)
	portfolios.PUT("/:id", portfolioHandler.UpdatePortfolio)
	portfolios.DELETE("/:id", portfolioHandler.DeletePortfolio)
	portfolios.POST("/:id/transactions", portfolioHandler.AddTransaction)
	portfolios.GET("/:id/transactions", portfolioHandler.ListTransactions)
	portfolios.GET("/:id/value", portfolioHandler.GetValuation)
	portfolios.GET("/:id/performance", portfolioHandler.GetPerformance)
	portfolios.GET("/:id/allocation", portfolioHandler.GetAllocation)
	portfolios.GET("/:id/gains", portfolioHandler.GetGains)

	log.Infof("Starting stocker backend server on port %s", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
