package analysis

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AnalysisResult rows are insert-only. A session accumulates one row per
// run; the current result is the newest by creation time.
type AnalysisResult struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;index" json:"session_id"`

	Persona string `gorm:"column:persona;not null" json:"persona"`
	Summary string `gorm:"column:summary" json:"summary"`

	PersonaFeedback datatypes.JSON `gorm:"column:persona_feedback;type:jsonb" json:"persona_feedback"`
	Priorities      datatypes.JSON `gorm:"column:priorities;type:jsonb" json:"priorities"`
	Annotations     datatypes.JSON `gorm:"column:annotations;type:jsonb" json:"annotations"`
	Metadata        datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`

	Degraded     bool    `gorm:"column:degraded;not null" json:"degraded"`
	ProcessingMS int64   `gorm:"column:processing_ms" json:"processing_ms"`
	Score        float64 `gorm:"column:score" json:"score"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index" json:"created_at"`
}

func (AnalysisResult) TableName() string { return "analysis_result" }

// Priorities is the works / hurts / next matrix serialized into the
// priorities column.
type Priorities struct {
	Works []string `json:"works"`
	Hurts []string `json:"hurts"`
	Next  []string `json:"next"`
}

// ResultMetadata is serialized into the metadata column and records how the
// run actually went, including degradation detail.
type ResultMetadata struct {
	ModelsConfigured []string         `json:"models_configured"`
	ModelsUsed       []string         `json:"models_used"`
	StageDurationsMS map[string]int64 `json:"stage_durations_ms,omitempty"`
	ClassifierErrors int              `json:"classifier_errors,omitempty"`
	Warnings         []string         `json:"warnings,omitempty"`
}
