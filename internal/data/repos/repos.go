package repos

import (
	"github.com/uxlens/uxlens-backend/internal/data/repos/analysis"
	"github.com/uxlens/uxlens-backend/internal/platform/logger"
	"gorm.io/gorm"
)

type SessionRepo = analysis.SessionRepo
type SessionImageRepo = analysis.SessionImageRepo
type AnalysisResultRepo = analysis.AnalysisResultRepo

func NewSessionRepo(db *gorm.DB, baseLog *logger.Logger) SessionRepo {
	return analysis.NewSessionRepo(db, baseLog)
}

func NewSessionImageRepo(db *gorm.DB, baseLog *logger.Logger) SessionImageRepo {
	return analysis.NewSessionImageRepo(db, baseLog)
}

func NewAnalysisResultRepo(db *gorm.DB, baseLog *logger.Logger) AnalysisResultRepo {
	return analysis.NewAnalysisResultRepo(db, baseLog)
}
