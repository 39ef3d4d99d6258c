package analysis

import "github.com/google/uuid"

// Feedback severities, ordered from cosmetic to blocking.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Annotation is one spatial feedback item. Coordinates are percentages of
// the image so they stay resolution independent; X and Y are nil when the
// analyzer gave no location, in which case Zone is "overall".
type Annotation struct {
	ImageID *uuid.UUID `json:"image_id,omitempty"`

	X      *float64 `json:"x,omitempty"`
	Y      *float64 `json:"y,omitempty"`
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`

	Zone     string `json:"zone"`
	Severity string `json:"severity"`
	Category string `json:"category"`
	Text     string `json:"text"`

	// Source names the analyzer backend that produced the item; merged items
	// carry every contributing source.
	Sources []string `json:"sources"`

	// Agreement = analyzers surfacing the item / analyzers that ran.
	Agreement float64 `json:"agreement"`
}

func (a Annotation) Located() bool { return a.X != nil && a.Y != nil }

// ResolveZone derives the grid zone from the annotation's coordinates, or
// the overall bucket when it has none.
func (a Annotation) ResolveZone() string {
	if !a.Located() {
		return ZoneOverall
	}
	return Zone(*a.X, *a.Y)
}
