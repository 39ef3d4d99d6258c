package analysis

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Session struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_user_id"`

	Persona        string  `gorm:"column:persona;not null" json:"persona"`
	Mode           string  `gorm:"column:mode;not null" json:"mode"`
	Intent         string  `gorm:"column:intent" json:"intent"`
	GoalConfidence float64 `gorm:"column:goal_confidence" json:"goal_confidence"`

	Status string `gorm:"column:status;not null;index" json:"status"`
	Stage  string `gorm:"column:stage" json:"stage,omitempty"`
	Error  string `gorm:"column:error" json:"error,omitempty"`

	StartedAt   *time.Time `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`

	Images []SessionImage `gorm:"foreignKey:SessionID;references:ID" json:"images,omitempty"`

	CreatedAt time.Time      `gorm:"not null;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Session) TableName() string { return "analysis_session" }
