package main

import (
	"time"

	"inventory-service/internal/handler"
	"inventory-service/internal/middleware"
	"inventory-service/pkg/config"
	"inventory-service/pkg/database"
	"inventory-service/pkg/jwtutil"
	"inventory-service/pkg/logger"
	"inventory-service/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func main() {
	// Load configuration from .env file and environment variables
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger with config
	logger.InitLogger(cfg)
	log := logger.GetLogger()
	log.Info("Starting inventory service...", zap.String("environment", cfg.Server.Env))

	// Initialize database
	if err := database.Initialize(database.DBConfig{
		DSN:             cfg.DB.GetDSN(),
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
		LogLevel:        cfg.DB.LogLevel,
	}); err != nil {
		log.Fatal("Failed to initialize database", zap.Error(err))
	}
	log.Info("Database connection established")

	// Initialize JWT utility
	jwtutil.Initialize(&cfg.JWT)
	log.Info("JWT utility initialized")

	// Initialize Prometheus metrics
	prometheus.InitMetrics(cfg)
	log.Info("Prometheus metrics initialized")

	// Rate limiter guards the credential endpoints
	limiter := middleware.NewRateLimiter(cfg.RateLimit.Enabled, cfg.RateLimit.PerMinute, time.Minute)

	// Initialize Echo framework
	e := echo.New()

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.Server.AllowedOrigins,
	}))
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())

	// Public routes - no authentication required
	e.GET("/health", handler.HealthCheck)
	e.GET("/metrics", handler.MetricsHandler)

	// Authentication routes - credential endpoints are rate limited
	auth := e.Group("/api/auth")
	auth.POST("/register", handler.Register, limiter.Middleware())
	auth.POST("/login", handler.Login, limiter.Middleware())
	auth.POST("/token/refresh", handler.RefreshToken)

	// User management - all require authentication
	user := e.Group("/api/auth/user")
	user.Use(middleware.AuthMiddleware)
	user.GET("", handler.GetProfile)
	user.PATCH("/update", handler.UpdateUser)
	user.PATCH("/update/:id", handler.UpdateUser)
	user.DELETE("/delete", handler.DeleteUser)
	user.DELETE("/delete/:id", handler.DeleteUser)
	user.GET("/list", handler.ListUsers, middleware.StaffOnly)

	// Shop management
	shops := e.Group("/api/shops")
	shops.Use(middleware.AuthMiddleware)
	shops.POST("", handler.CreateShop)
	shops.GET("", handler.ListShops)
	shops.GET("/:id", handler.GetShop)
	shops.PUT("/:id", handler.UpdateShop)
	shops.PATCH("/:id", handler.UpdateShop)
	shops.DELETE("/:id", handler.DeleteShop)

	// Inventory - requires authentication and a shop context
	inventory := e.Group("/api/inventory")
	inventory.Use(middleware.AuthMiddleware)
	inventory.Use(middleware.RequireShopContext)

	inventory.GET("/categories", handler.ListCategories)
	inventory.POST("/categories", handler.CreateCategory)
	inventory.GET("/categories/:id", handler.GetCategory)
	inventory.PUT("/categories/:id", handler.UpdateCategory)
	inventory.PATCH("/categories/:id", handler.UpdateCategory)
	inventory.DELETE("/categories/:id", handler.DeleteCategory)

	inventory.GET("/products", handler.ListProducts)
	inventory.POST("/products", handler.CreateProduct)
	inventory.GET("/products/low-stock", handler.LowStockProducts)
	inventory.GET("/products/:id", handler.GetProduct)
	inventory.PUT("/products/:id", handler.UpdateProduct)
	inventory.PATCH("/products/:id", handler.UpdateProduct)
	inventory.DELETE("/products/:id", handler.DeleteProduct)

	inventory.GET("/stock", handler.ListStockEntries)
	inventory.POST("/stock", handler.CreateStockEntry)
	inventory.GET("/stock/:id", handler.GetStockEntry)

	inventory.GET("/dashboard", handler.Dashboard)

	// Orders - same shop context requirement as inventory
	orders := e.Group("/api/orders")
	orders.Use(middleware.AuthMiddleware)
	orders.Use(middleware.RequireShopContext)
	orders.GET("", handler.ListOrders)
	orders.POST("", handler.CreateOrder)
	orders.GET("/all", handler.AllOrders)
	orders.GET("/:id", handler.GetOrder)
	orders.PUT("/:id", handler.UpdateOrder)
	orders.PATCH("/:id", handler.UpdateOrder)
	orders.DELETE("/:id", handler.DeleteOrder)

	// Start server
	port := cfg.Server.Port
	log.Info("Starting server", zap.String("port", port))
	if err := e.Start(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
