package database

import (
	"github.com/Eursukkul/boat-booking/internal/models"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.Boat{}, &models.Reservation{})
}
