package analysis

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/uxlens/uxlens-backend/internal/domain"
	"github.com/uxlens/uxlens-backend/internal/platform/dbctx"
	"github.com/uxlens/uxlens-backend/internal/platform/logger"
)

type SessionImageRepo interface {
	Create(dbc dbctx.Context, images []*types.SessionImage) ([]*types.SessionImage, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.SessionImage, error)
	GetBySessionID(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.SessionImage, error)
	MaxPosition(dbc dbctx.Context, sessionID uuid.UUID) (int, error)
	// SetClassification records the classifier outcome for one image. The
	// classification fields are written exactly once per run; other image
	// fields stay untouched.
	SetClassification(dbc dbctx.Context, imageID uuid.UUID, screenType string, confidence float64, classifyError string) error
	FullDeleteBySessionIDs(dbc dbctx.Context, sessionIDs []uuid.UUID) error
}

type sessionImageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionImageRepo(db *gorm.DB, baseLog *logger.Logger) SessionImageRepo {
	return &sessionImageRepo{db: db, log: baseLog.With("repo", "SessionImageRepo")}
}

func (r *sessionImageRepo) Create(dbc dbctx.Context, images []*types.SessionImage) ([]*types.SessionImage, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(images) == 0 {
		return []*types.SessionImage{}, nil
	}
	if err := transaction.WithContext(dbc.Ctx).Create(&images).Error; err != nil {
		return nil, err
	}
	return images, nil
}

func (r *sessionImageRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.SessionImage, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.SessionImage
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *sessionImageRepo) GetBySessionID(dbc dbctx.Context, sessionID uuid.UUID) ([]*types.SessionImage, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.SessionImage
	if sessionID == uuid.Nil {
		return out, nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("session_id = ?", sessionID).
		Order("position ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *sessionImageRepo) MaxPosition(dbc dbctx.Context, sessionID uuid.UUID) (int, error) {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if sessionID == uuid.Nil {
		return -1, nil
	}
	var max *int
	err := transaction.WithContext(dbc.Ctx).
		Model(&types.SessionImage{}).
		Where("session_id = ?", sessionID).
		Select("MAX(position)").
		Scan(&max).Error
	if err != nil {
		return -1, err
	}
	if max == nil {
		return -1, nil
	}
	return *max, nil
}

func (r *sessionImageRepo) SetClassification(dbc dbctx.Context, imageID uuid.UUID, screenType string, confidence float64, classifyError string) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if imageID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(dbc.Ctx).
		Model(&types.SessionImage{}).
		Where("id = ?", imageID).
		Updates(map[string]interface{}{
			"screen_type":    screenType,
			"confidence":     confidence,
			"classify_error": classifyError,
			"updated_at":     time.Now(),
		}).Error
}

func (r *sessionImageRepo) FullDeleteBySessionIDs(dbc dbctx.Context, sessionIDs []uuid.UUID) error {
	transaction := dbc.Tx
	if transaction == nil {
		transaction = r.db
	}
	if len(sessionIDs) == 0 {
		return nil
	}
	if err := transaction.WithContext(dbc.Ctx).
		Where("session_id IN ?", sessionIDs).
		Delete(&types.SessionImage{}).Error; err != nil {
		return err
	}
	return nil
}
