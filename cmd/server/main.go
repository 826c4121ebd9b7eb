package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"

	"storefront_payments_echo/internal/config"
	"storefront_payments_echo/internal/handlers"
	authMiddleware "storefront_payments_echo/internal/middleware"
	"storefront_payments_echo/internal/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	cfg := config.Load()

	// Initialize Firebase (admin auth)
	authClient, err := services.InitFirebase(cfg.FirebaseCredentialsPath)
	if err != nil {
		log.Printf("Warning: Firebase initialization failed: %v", err)
		log.Println("Admin endpoints will reject requests until valid credentials are provided")
	}

	// Initialize Database
	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		db, err = services.InitDB(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}

		// Run auto-migration
		if err := services.AutoMigrate(db); err != nil {
			log.Fatalf("Failed to run database migrations: %v", err)
		}
		if err := services.SeedPaymentMethods(db); err != nil {
			log.Fatalf("Failed to seed payment methods: %v", err)
		}
	} else {
		log.Fatal("DATABASE_URL not set")
	}

	// Initialize Redis (optional; the services fall back to the DB)
	var cache *services.RedisCache
	if cfg.RedisURL != "" {
		cache, err = services.NewRedisCache(cfg.RedisURL)
		if err != nil {
			log.Printf("Warning: Redis initialization failed: %v", err)
			cache = nil
		}
	}

	// Payment stack
	crypto, err := services.NewPaymentCrypto(cfg.PaymentSecret, cfg.PaymentEncryptionKey)
	if err != nil {
		log.Fatalf("Failed to initialize payment crypto: %v", err)
	}
	gateway := services.NewKashierService(cfg.Kashier)
	mailer := services.NewEmailService(cfg.SMTP)
	paymentService := services.NewPaymentService(db, cache, gateway, crypto, mailer)
	orderService := services.NewOrderService(db)

	// Create Echo instance
	e := echo.New()

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = authMiddleware.CustomErrorHandler
	e.Validator = handlers.NewRequestValidator()

	// Initialize handlers
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	orderHandler := handlers.NewOrderHandler(orderService)

	// Public API (consumed by the checkout UI)
	e.POST("/api/orders", orderHandler.CreateOrder)
	e.GET("/api/orders/:orderNumber", orderHandler.GetOrder)
	e.GET("/api/payment-methods", paymentHandler.ListPaymentMethods)
	e.POST("/api/payments", paymentHandler.CreatePayment)
	e.GET("/api/payments/:transactionId", paymentHandler.GetTransaction)

	// Gateway callbacks
	e.POST("/webhooks/kashier", paymentHandler.KashierWebhook)

	// Admin routes
	admin := e.Group("/admin")
	admin.Use(authMiddleware.RequireAuth(authClient))
	admin.POST("/payments/:transactionId/status", paymentHandler.UpdatePaymentStatus)
	admin.GET("/payments/:transactionId/logs", paymentHandler.ListPaymentLogs)
	admin.POST("/orders/:orderNumber/status", orderHandler.UpdateOrderStatus)

	// Start server
	log.Printf("Server starting on port %s", cfg.Port)
	e.Logger.Fatal(e.Start(":" + cfg.Port))
}
