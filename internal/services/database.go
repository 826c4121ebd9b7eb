package services

import (
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"storefront_payments_echo/internal/models"
)

// InitDB initializes the database connection with connection pooling
func InitDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})
	if err != nil {
		return nil, err
	}

	// Get underlying sql.DB to configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// Connection pool settings
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Println("Database connection established")
	return db, nil
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	log.Println("Running database migrations...")

	err := db.AutoMigrate(
		&models.Order{},
		&models.OrderItem{},
		&models.PaymentTransaction{},
		&models.PaymentLog{},
		&models.PaymentWebhook{},
		&models.PaymentRefund{},
		&models.PaymentMethod{},
	)
	if err != nil {
		return err
	}

	log.Println("Database migrations completed")
	return nil
}

// SeedPaymentMethods inserts the supported payment methods if the table
// is empty, so a fresh install has a usable checkout.
func SeedPaymentMethods(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.PaymentMethod{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	methods := []models.PaymentMethod{
		{Code: models.PaymentMethodKashier, DisplayName: "Pay Online", Description: "Card payment via Kashier hosted checkout", IsActive: true, SortOrder: 1},
		{Code: models.PaymentMethodCOD, DisplayName: "Cash on Delivery", Description: "Pay the courier on delivery", IsActive: true, SortOrder: 2},
		{Code: models.PaymentMethodBankTransfer, DisplayName: "Bank Transfer", Description: "Manual bank transfer, confirmed by staff", IsActive: true, SortOrder: 3},
	}
	return db.Create(&methods).Error
}
