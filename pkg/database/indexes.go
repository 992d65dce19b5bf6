package database

import (
	"time"

	"github.com/Payphone-Digital/contacts-api/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// searchIndexStatements back the ILIKE filters of the contact list.
func searchIndexStatements() []string {
	return []string{
		"CREATE EXTENSION IF NOT EXISTS pg_trgm;",

		"CREATE INDEX IF NOT EXISTS idx_contacts_first_name_trgm ON contacts USING GIN (first_name gin_trgm_ops);",
		"CREATE INDEX IF NOT EXISTS idx_contacts_last_name_trgm ON contacts USING GIN (last_name gin_trgm_ops);",
		"CREATE INDEX IF NOT EXISTS idx_contacts_email_trgm ON contacts USING GIN (email gin_trgm_ops);",
	}
}

// SearchIndexes creates the indexes AutoMigrate cannot express as struct tags.
// Failures are logged and skipped.
func SearchIndexes(db *gorm.DB) error {
	start := time.Now()
	created := 0

	for _, stmt := range searchIndexStatements() {
		if err := db.Exec(stmt).Error; err != nil {
			logger.GetLogger().Warn("Failed to create index",
				zap.String("statement", stmt),
				zap.Error(err),
			)
			continue
		}
		created++
	}

	logger.GetLogger().Info("Search indexes ensured",
		zap.Int("applied", created),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}
