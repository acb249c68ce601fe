package database

import (
	"fmt"
	"log/slog"

	"github.com/staldhusene/faellesspisning/internal/config"
	"github.com/staldhusene/faellesspisning/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func Connect(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(cfg.DatabasePath), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	n, err := SeedHouses(db, DefaultHouses)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		slog.Info("seeded house directory", "houses", n)
	}

	return db, nil
}

// Migrate creates or updates the local tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.House{}, &models.ChangeLog{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
