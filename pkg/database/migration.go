package database

import (
	"fmt"

	"github.com/Payphone-Digital/contacts-api/internal/model"
	"gorm.io/gorm"
)

// AutoMigrate creates or updates the users and contacts tables, then the
// search indexes.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.User{},
		&model.Contact{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	return SearchIndexes(db)
}
