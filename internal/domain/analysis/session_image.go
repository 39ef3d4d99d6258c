package analysis

import (
	"time"

	"github.com/google/uuid"
)

type SessionImage struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:uniq_session_image_position" json:"session_id"`

	StorageKey string `gorm:"column:storage_key;not null" json:"storage_key"`
	URL        string `gorm:"column:url;not null" json:"url"`
	Position   int    `gorm:"column:position;not null;uniqueIndex:uniq_session_image_position" json:"position"`

	// Classification outcome, written once by the classification stage.
	ScreenType    string  `gorm:"column:screen_type" json:"screen_type,omitempty"`
	Confidence    float64 `gorm:"column:confidence" json:"confidence"`
	ClassifyError string  `gorm:"column:classify_error" json:"classify_error,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (SessionImage) TableName() string { return "session_image" }
