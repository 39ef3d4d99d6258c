package analysis

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/uxlens/uxlens-backend/internal/domain"
	"github.com/uxlens/uxlens-backend/internal/platform/dbctx"
	"github.com/uxlens/uxlens-backend/internal/platform/logger"
)

// AnalysisResultRepo is insert-only over the result table. Reruns of a
// session add rows; the newest row is the current result.
type AnalysisResultRepo interface {
	Create(dbc dbctx.Context, results []*types.AnalysisResult) ([]*types.AnalysisResult, error)
	GetLatestBySessionID(dbc dbctx.Context, sessionID uuid.UUID) (*types.AnalysisResult, error)
	GetBySessionID(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.AnalysisResult, error)
}

type analysisResultRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnalysisResultRepo(db *gorm.DB, baseLog *logger.Logger) AnalysisResultRepo {
	return &analysisResultRepo{db: db, log: baseLog.With("repo", "AnalysisResultRepo")}
}

func (r *analysisResultRepo) Create(dbc dbctx.Context, results []*types.AnalysisResult) ([]*types.AnalysisResult, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(results) == 0 {
		return []*types.AnalysisResult{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *analysisResultRepo) GetLatestBySessionID(dbc dbctx.Context, sessionID uuid.UUID) (*types.AnalysisResult, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if sessionID == uuid.Nil {
		return nil, nil
	}
	var res types.AnalysisResult
	err := transaction.WithContext(dbc.Ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(1).
		Find(&res).Error
	if err != nil {
		return nil, err
	}
	if res.ID == uuid.Nil {
		return nil, nil
	}
	return &res, nil
}

func (r *analysisResultRepo) GetBySessionID(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.AnalysisResult, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.AnalysisResult
	if sessionID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
