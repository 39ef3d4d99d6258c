package db

import (
	types "github.com/uxlens/uxlens-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.Session{},
		&types.SessionImage{},
		&types.AnalysisResult{},
	)
}
