package prompts

import (
	"fmt"
	"strings"

	types "github.com/uxlens/uxlens-backend/internal/domain"
	da "github.com/uxlens/uxlens-backend/internal/domain/analysis"
)

// Input carries everything the builder needs. The builder is deterministic:
// no clock, no randomness, and the optional wording overrides are read once
// per process, so identical inputs always produce identical prompts.
type Input struct {
	Persona        types.Persona
	Mode           types.Mode
	Intent         string
	GoalConfidence float64
	Detections     []types.ScreenDetection
}

type Prompt struct {
	System     string
	User       string
	SchemaName string
	Schema     map[string]any
}

const analysisSchemaName = "ux_analysis"

// Build turns (persona, mode, intent, detections) into a model-ready
// instruction set. Failed detections are treated as "unknown screen type"
// rather than erroring; the analyzers still see the image.
func Build(in Input) (Prompt, error) {
	if _, err := da.ParsePersona(string(in.Persona)); err != nil {
		return Prompt{}, err
	}
	params := applyOverride(string(in.Persona), paramsFor(in.Persona))

	var sys strings.Builder
	sys.WriteString("You are ")
	sys.WriteString(params.Voice)
	sys.WriteString(".\n\nFocus areas, in priority order:\n")
	for _, area := range params.FocusAreas {
		sys.WriteString("- ")
		sys.WriteString(area)
		sys.WriteString("\n")
	}
	sys.WriteString("\nScore the design 0-100 through this lens: ")
	sys.WriteString(params.ScoringLens)
	sys.WriteString(".\n")
	sys.WriteString("For every feedback item give a severity (low, medium, high, critical), a short category, and the text of the critique. ")
	sys.WriteString("When the item points at a specific region, include x/y (and optionally width/height) as percentages of the image, 0-100, measured from the top-left corner. ")
	sys.WriteString("Leave coordinates null for feedback about the screen as a whole.")
	if in.Mode == da.ModeMulti {
		sys.WriteString(" Your output will be cross-checked against other reviewers, so be specific enough that equivalent findings can be matched up.")
	}

	var usr strings.Builder
	usr.WriteString(params.Greeting)
	usr.WriteString("\n\n")
	intent := strings.TrimSpace(in.Intent)
	if intent != "" {
		usr.WriteString("The designer's stated goal: ")
		usr.WriteString(intent)
		switch {
		case in.GoalConfidence >= 0.75:
			usr.WriteString(" (they are confident this is the right goal)")
		case in.GoalConfidence > 0 && in.GoalConfidence < 0.4:
			usr.WriteString(" (they are unsure this is the right goal; challenge it if the screens suggest otherwise)")
		}
		usr.WriteString("\n\n")
	}
	usr.WriteString(fmt.Sprintf("You are looking at %d screen(s), in order:\n", len(in.Detections)))
	for i, d := range in.Detections {
		screenType := strings.TrimSpace(d.ScreenType)
		if screenType == "" || d.Failed() {
			usr.WriteString(fmt.Sprintf("%d. unknown screen type\n", i+1))
			continue
		}
		usr.WriteString(fmt.Sprintf("%d. %s (detection confidence %.2f)\n", i+1, screenType, d.Confidence))
	}
	usr.WriteString("\nReference screens by their 1-based index in the image_index field. Respond with JSON only.")

	return Prompt{
		System:     sys.String(),
		User:       usr.String(),
		SchemaName: analysisSchemaName,
		Schema:     analysisSchema(),
	}, nil
}

// analysisSchema is the strict structured-output contract both analyzer
// backends are asked to satisfy.
func analysisSchema() map[string]any {
	nullableNumber := map[string]any{"type": []string{"number", "null"}}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"summary", "score", "priorities", "feedback"},
		"properties": map[string]any{
			"summary": map[string]any{"type": "string"},
			"score":   map[string]any{"type": "number"},
			"priorities": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"required":             []string{"works", "hurts", "next"},
				"properties": map[string]any{
					"works": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"hurts": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"next":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				},
			},
			"feedback": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":                 "object",
					"additionalProperties": false,
					"required":             []string{"image_index", "severity", "category", "text", "x", "y", "width", "height"},
					"properties": map[string]any{
						"image_index": map[string]any{"type": "integer"},
						"severity":    map[string]any{"type": "string", "enum": []string{"low", "medium", "high", "critical"}},
						"category":    map[string]any{"type": "string"},
						"text":        map[string]any{"type": "string"},
						"x":           nullableNumber,
						"y":           nullableNumber,
						"width":       nullableNumber,
						"height":      nullableNumber,
					},
				},
			},
		},
	}
}
