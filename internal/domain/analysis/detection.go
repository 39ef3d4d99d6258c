package analysis

import "github.com/google/uuid"

// Screen-type categories the classifier maps vision labels into.
const (
	ScreenDashboard = "dashboard"
	ScreenLanding   = "landing"
	ScreenForm      = "form"
	ScreenCheckout  = "checkout"
	ScreenProfile   = "profile"
	ScreenSettings  = "settings"
	ScreenMobile    = "mobile"

	// ScreenFallback is substituted whenever classification fails or no
	// category matches.
	ScreenFallback = "interface"
)

type LabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// ScreenDetection is the per-image classification outcome. Every image of a
// session yields exactly one, failure included: a failed classification
// carries the fallback screen type, zero confidence, and the error message.
type ScreenDetection struct {
	ImageID    uuid.UUID    `json:"image_id"`
	Position   int          `json:"position"`
	ScreenType string       `json:"screen_type"`
	Confidence float64      `json:"confidence"`
	RawLabels  []LabelScore `json:"raw_labels,omitempty"`
	Error      string       `json:"error,omitempty"`
}

func (d ScreenDetection) Failed() bool { return d.Error != "" }

// FallbackDetection builds the fail-closed outcome for an image whose
// classification errored.
func FallbackDetection(imageID uuid.UUID, position int, err error) ScreenDetection {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return ScreenDetection{
		ImageID:    imageID,
		Position:   position,
		ScreenType: ScreenFallback,
		Confidence: 0,
		Error:      msg,
	}
}
