package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/uxlens/uxlens-backend/internal/clients/gcp"
	"github.com/uxlens/uxlens-backend/internal/data/repos"
	types "github.com/uxlens/uxlens-backend/internal/domain"
	da "github.com/uxlens/uxlens-backend/internal/domain/analysis"
	"github.com/uxlens/uxlens-backend/internal/platform/dbctx"
	"github.com/uxlens/uxlens-backend/internal/platform/envutil"
	"github.com/uxlens/uxlens-backend/internal/platform/errs"
	"github.com/uxlens/uxlens-backend/internal/platform/logger"
)

// SessionService owns everything around a session except running the
// pipeline: creation, image upload, reads, and archival.
type SessionService interface {
	Create(ctx context.Context, in CreateSessionInput) (*types.Session, error)
	UploadImages(ctx context.Context, sessionID uuid.UUID, uploads []ImageUpload) ([]*types.SessionImage, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Session, error)
	List(ctx context.Context, ownerUserID uuid.UUID, limit int) ([]*types.Session, error)
	LatestResult(ctx context.Context, sessionID uuid.UUID) (*types.AnalysisResult, error)
	Archive(ctx context.Context, id uuid.UUID) error
}

type CreateSessionInput struct {
	OwnerUserID    uuid.UUID
	Persona        string
	Mode           string
	Intent         string
	GoalConfidence float64
}

type ImageUpload struct {
	Filename    string
	ContentType string
	Data        io.Reader
}

type sessionService struct {
	db      *gorm.DB
	log     *logger.Logger
	bucket  gcp.BucketService
	repo    repos.SessionRepo
	images  repos.SessionImageRepo
	results repos.AnalysisResultRepo
}

func NewSessionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	bucket gcp.BucketService,
	repo repos.SessionRepo,
	images repos.SessionImageRepo,
	results repos.AnalysisResultRepo,
) SessionService {
	return &sessionService{
		db:      db,
		log:     baseLog.With("service", "SessionService"),
		bucket:  bucket,
		repo:    repo,
		images:  images,
		results: results,
	}
}

func (s *sessionService) Create(ctx context.Context, in CreateSessionInput) (*types.Session, error) {
	if in.OwnerUserID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing owner user id", errs.ErrInvalidArgument)
	}
	persona, err := da.ParsePersona(in.Persona)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidArgument, err)
	}
	mode, err := da.ParseMode(in.Mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidArgument, err)
	}
	confidence := in.GoalConfidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	sess := &types.Session{
		ID:             uuid.New(),
		OwnerUserID:    in.OwnerUserID,
		Persona:        string(persona),
		Mode:           string(mode),
		Intent:         strings.TrimSpace(in.Intent),
		GoalConfidence: confidence,
		Status:         string(da.StatusDraft),
	}
	if _, err := s.repo.Create(dbctx.Context{Ctx: ctx}, []*types.Session{sess}); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.log.Info("Session created",
		"session_id", sess.ID,
		"owner_user_id", sess.OwnerUserID,
		"persona", sess.Persona,
		"mode", sess.Mode,
	)
	return sess, nil
}

// UploadImages pushes the files to object storage and appends image rows
// with contiguous positions. Uploads are only allowed while the session is
// still draft; once the pipeline starts, the image set is frozen.
func (s *sessionService) UploadImages(ctx context.Context, sessionID uuid.UUID, uploads []ImageUpload) ([]*types.SessionImage, error) {
	if sessionID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing session id", errs.ErrInvalidArgument)
	}
	if len(uploads) == 0 {
		return nil, fmt.Errorf("%w: no files", errs.ErrInvalidArgument)
	}

	sess, err := s.repo.GetByID(dbctx.Context{Ctx: ctx}, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("%w: session %s", errs.ErrNotFound, sessionID)
	}
	if types.Status(sess.Status) != da.StatusDraft {
		return nil, fmt.Errorf("%w: session is %s, images can only be added in draft", errs.ErrConflict, sess.Status)
	}

	maxImages := envutil.Int("SESSION_MAX_IMAGES", 10)
	maxPos, err := s.images.MaxPosition(dbctx.Context{Ctx: ctx}, sessionID)
	if err != nil {
		return nil, err
	}
	if maxPos+1+len(uploads) > maxImages {
		return nil, fmt.Errorf("%w: session is limited to %d images", errs.ErrInvalidArgument, maxImages)
	}
	for _, up := range uploads {
		if !allowedImageType(up.ContentType) {
			return nil, fmt.Errorf("%w: unsupported content type %q", errs.ErrInvalidArgument, up.ContentType)
		}
	}

	rows := make([]*types.SessionImage, 0, len(uploads))
	for i, up := range uploads {
		position := maxPos + 1 + i
		id := uuid.New()
		key := fmt.Sprintf("sessions/%s/%d-%s%s", sessionID, position, id, extensionFor(up.ContentType))
		if err := s.bucket.UploadFile(ctx, key, up.ContentType, up.Data); err != nil {
			return nil, fmt.Errorf("upload image %q: %w", up.Filename, err)
		}
		rows = append(rows, &types.SessionImage{
			ID:         id,
			SessionID:  sessionID,
			StorageKey: key,
			URL:        s.bucket.GetPublicURL(key),
			Position:   position,
		})
	}

	if _, err := s.images.Create(dbctx.Context{Ctx: ctx}, rows); err != nil {
		return nil, fmt.Errorf("persist image rows: %w", err)
	}
	s.log.Info("Session images uploaded", "session_id", sessionID, "count", len(rows))
	return rows, nil
}

func (s *sessionService) Get(ctx context.Context, id uuid.UUID) (*types.Session, error) {
	sess, err := s.repo.GetByIDWithImages(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("%w: session %s", errs.ErrNotFound, id)
	}
	return sess, nil
}

func (s *sessionService) List(ctx context.Context, ownerUserID uuid.UUID, limit int) ([]*types.Session, error) {
	if ownerUserID == uuid.Nil {
		return nil, fmt.Errorf("%w: missing owner user id", errs.ErrInvalidArgument)
	}
	return s.repo.ListByOwner(dbctx.Context{Ctx: ctx}, ownerUserID, limit)
}

func (s *sessionService) LatestResult(ctx context.Context, sessionID uuid.UUID) (*types.AnalysisResult, error) {
	res, err := s.results.GetLatestBySessionID(dbctx.Context{Ctx: ctx}, sessionID)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, fmt.Errorf("%w: no result for session %s", errs.ErrNotFound, sessionID)
	}
	return res, nil
}

// Archive soft-deletes the session. Rows are never physically removed;
// archived sessions just drop out of reads.
func (s *sessionService) Archive(ctx context.Context, id uuid.UUID) error {
	sess, err := s.repo.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return err
	}
	if sess == nil {
		return fmt.Errorf("%w: session %s", errs.ErrNotFound, id)
	}
	return s.repo.SoftDeleteByIDs(dbctx.Context{Ctx: ctx}, []uuid.UUID{id})
}

func allowedImageType(contentType string) bool {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/png", "image/jpeg", "image/jpg", "image/webp":
		return true
	default:
		return false
	}
}

func extensionFor(contentType string) string {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
