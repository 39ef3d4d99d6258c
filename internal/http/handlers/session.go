package handlers

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	da "github.com/uxlens/uxlens-backend/internal/domain/analysis"
	"github.com/uxlens/uxlens-backend/internal/http/response"
	"github.com/uxlens/uxlens-backend/internal/modules/analysis"
	"github.com/uxlens/uxlens-backend/internal/platform/errs"
	"github.com/uxlens/uxlens-backend/internal/platform/logger"
	"github.com/uxlens/uxlens-backend/internal/services"
)

type SessionHandler struct {
	Log        *logger.Logger
	Sessions   services.SessionService
	Controller analysis.Controller
}

func NewSessionHandler(log *logger.Logger, sessions services.SessionService, controller analysis.Controller) *SessionHandler {
	return &SessionHandler{
		Log:        log.With("handler", "SessionHandler"),
		Sessions:   sessions,
		Controller: controller,
	}
}

type createSessionRequest struct {
	OwnerUserID    string  `json:"owner_user_id" binding:"required"`
	Persona        string  `json:"persona" binding:"required"`
	Mode           string  `json:"mode"`
	Intent         string  `json:"intent"`
	GoalConfidence float64 `json:"goal_confidence"`
}

func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_argument", err)
		return
	}
	ownerID, err := uuid.Parse(req.OwnerUserID)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_argument", fmt.Errorf("invalid owner_user_id: %w", err))
		return
	}
	sess, err := h.Sessions.Create(c.Request.Context(), services.CreateSessionInput{
		OwnerUserID:    ownerID,
		Persona:        req.Persona,
		Mode:           req.Mode,
		Intent:         req.Intent,
		GoalConfidence: req.GoalConfidence,
	})
	if err != nil {
		response.RespondSentinel(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

// UploadImages accepts a multipart form with one or more "images" parts and
// appends them to a draft session in form order.
func (h *SessionHandler) UploadImages(c *gin.Context) {
	sessionID, ok := h.pathID(c)
	if !ok {
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_argument", fmt.Errorf("invalid multipart form: %w", err))
		return
	}
	files := form.File["images"]
	if len(files) == 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_argument", fmt.Errorf("no images in form"))
		return
	}

	uploads := make([]services.ImageUpload, 0, len(files))
	opened := make([]multipart.File, 0, len(files))
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_argument", fmt.Errorf("open %q: %w", fh.Filename, err))
			return
		}
		opened = append(opened, f)
		uploads = append(uploads, services.ImageUpload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        f,
		})
	}

	rows, err := h.Sessions.UploadImages(c.Request.Context(), sessionID, uploads)
	if err != nil {
		response.RespondSentinel(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"images": rows})
}

func (h *SessionHandler) GetSession(c *gin.Context) {
	sessionID, ok := h.pathID(c)
	if !ok {
		return
	}
	sess, err := h.Sessions.Get(c.Request.Context(), sessionID)
	if err != nil {
		response.RespondSentinel(c, err)
		return
	}
	response.RespondOK(c, sess)
}

func (h *SessionHandler) ListSessions(c *gin.Context) {
	ownerID, err := uuid.Parse(c.Query("owner_id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_argument", fmt.Errorf("invalid owner_id: %w", err))
		return
	}
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	rows, err := h.Sessions.List(c.Request.Context(), ownerID, limit)
	if err != nil {
		response.RespondSentinel(c, err)
		return
	}
	response.RespondOK(c, gin.H{"sessions": rows})
}

func (h *SessionHandler) GetResult(c *gin.Context) {
	sessionID, ok := h.pathID(c)
	if !ok {
		return
	}
	res, err := h.Sessions.LatestResult(c.Request.Context(), sessionID)
	if err != nil {
		response.RespondSentinel(c, err)
		return
	}
	response.RespondOK(c, res)
}

func (h *SessionHandler) ArchiveSession(c *gin.Context) {
	sessionID, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.Sessions.Archive(c.Request.Context(), sessionID); err != nil {
		response.RespondSentinel(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AnalyzeSession runs the pipeline synchronously. The response reports the
// terminal status: a run that ended in failed is a non-2xx response carrying
// the failing stage, not an internal error.
func (h *SessionHandler) AnalyzeSession(c *gin.Context) {
	sessionID, ok := h.pathID(c)
	if !ok {
		return
	}
	out, err := h.Controller.Start(c.Request.Context(), sessionID)
	if err != nil {
		response.RespondSentinel(c, err)
		return
	}
	if out.Status == da.StatusFailed {
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error":   out.Error,
			"stage":   out.Stage,
		})
		return
	}
	msg := "analysis complete"
	if !out.Started {
		msg = fmt.Sprintf("session already %s", out.Status)
	}
	response.RespondOK(c, gin.H{
		"success":   true,
		"sessionId": out.SessionID,
		"message":   msg,
	})
}

func (h *SessionHandler) pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_argument",
			fmt.Errorf("%w: invalid session id", errs.ErrInvalidArgument))
		return uuid.Nil, false
	}
	return id, true
}
