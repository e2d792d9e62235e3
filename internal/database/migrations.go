package database

import (
	"gorm.io/gorm"

	"github.com/ArtificalManny/sharesync/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Notification{},
		&models.PointEvent{},
		&models.PointTotal{},
	)
}
