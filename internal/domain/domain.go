package domain

import (
	"github.com/uxlens/uxlens-backend/internal/domain/analysis"
)

type Session = analysis.Session
type SessionImage = analysis.SessionImage
type ScreenDetection = analysis.ScreenDetection
type LabelScore = analysis.LabelScore
type AnalysisResult = analysis.AnalysisResult
type Annotation = analysis.Annotation
type Priorities = analysis.Priorities
type ResultMetadata = analysis.ResultMetadata

type Persona = analysis.Persona
type Mode = analysis.Mode
type Status = analysis.Status

const (
	StatusDraft      = analysis.StatusDraft
	StatusProcessing = analysis.StatusProcessing
	StatusCompleted  = analysis.StatusCompleted
	StatusFailed     = analysis.StatusFailed
)
