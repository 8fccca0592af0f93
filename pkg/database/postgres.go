package database

import (
	"log"

	"github.com/Eursukkul/booking-microservice/autosched-service/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewPostgresDB(dsn string) *gorm.DB {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := Migrate(db); err != nil {
		log.Fatalf("failed to auto-migrate: %v", err)
	}
	return db
}

// Migrate creates the platform and scheduling tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		return err
	}
	// Looking up self-service orders by position secret must be unambiguous.
	return db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_position_secret
		ON order_positions (secret)
	`).Error
}
