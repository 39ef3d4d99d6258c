package steps

import (
	"testing"

	"github.com/google/uuid"

	"github.com/uxlens/uxlens-backend/internal/data/repos/testutil"
	types "github.com/uxlens/uxlens-backend/internal/domain"
	da "github.com/uxlens/uxlens-backend/internal/domain/analysis"
)

func openAIPayload(items ...map[string]any) map[string]any {
	list := make([]any, 0, len(items))
	for _, it := range items {
		list = append(list, it)
	}
	return map[string]any{
		"summary": "Overall a clean design with conversion gaps.",
		"score":   70.0,
		"priorities": map[string]any{
			"works": []any{"navigation"},
			"hurts": []any{"cta placement"},
			"next":  []any{"test a sticky cta"},
		},
		"feedback": list,
	}
}

func feedbackItem(category string, x, y any) map[string]any {
	return map[string]any{
		"image_index": 1.0,
		"severity":    "high",
		"category":    category,
		"text":        "Finding about " + category + ".",
		"x":           x,
		"y":           y,
		"width":       nil,
		"height":      nil,
	}
}

func TestSynthesizeSingleSource(t *testing.T) {
	log := testutil.Logger(t)
	imageID := uuid.New()

	out, err := Synthesize(SynthesizeDeps{Log: log}, SynthesizeInput{
		Results: []AnalyzerResult{{
			Backend: BackendOpenAI,
			Payload: openAIPayload(
				feedbackItem("conversion", 50.0, 90.0),
				feedbackItem("clarity", nil, nil),
			),
		}},
		Detections: []types.ScreenDetection{{ImageID: imageID, Position: 0, ScreenType: da.ScreenLanding, Confidence: 0.8}},
		Persona:    da.PersonaStrategic,
	})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if out.Degraded {
		t.Fatalf("single well-formed source should not be degraded")
	}
	if len(out.Annotations) != 2 {
		t.Fatalf("expected 2 annotations, got %d", len(out.Annotations))
	}
	for _, ann := range out.Annotations {
		if ann.Agreement != 1.0 {
			t.Fatalf("single source agreement must be 1.0, got %v", ann.Agreement)
		}
		if len(ann.Sources) != 1 || ann.Sources[0] != BackendOpenAI {
			t.Fatalf("annotation sources wrong: %+v", ann.Sources)
		}
	}
	var located, overall bool
	for _, ann := range out.Annotations {
		switch ann.Zone {
		case da.ZoneBottomCenter:
			located = true
			if ann.ImageID == nil || *ann.ImageID != imageID {
				t.Fatalf("located annotation should reference the image, got %+v", ann.ImageID)
			}
		case da.ZoneOverall:
			overall = true
		}
	}
	if !located || !overall {
		t.Fatalf("expected one located and one overall annotation: %+v", out.Annotations)
	}
	if out.Score != 70 {
		t.Fatalf("score passthrough failed: %v", out.Score)
	}
}

func TestSynthesizeMultiSourceAgreement(t *testing.T) {
	log := testutil.Logger(t)

	// Both backends flag conversion at the same spot; only one flags
	// clarity.
	openai := openAIPayload(
		feedbackItem("conversion", 50.0, 90.0),
		feedbackItem("clarity", nil, nil),
	)
	gemini := map[string]any{
		"summary": "Conversion path is weak.",
		"score":   60.0,
		"feedback": []any{
			map[string]any{
				"severity": "major",
				"category": "conversion",
				"text":     "CTA is buried at the bottom.",
				"x":        55.0,
				"y":        95.0,
			},
		},
	}

	out, err := Synthesize(SynthesizeDeps{Log: log}, SynthesizeInput{
		Results: []AnalyzerResult{
			{Backend: BackendOpenAI, Payload: openai},
			{Backend: BackendGemini, Payload: gemini},
		},
		Persona: da.PersonaExecutive,
	})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if out.Degraded {
		t.Fatalf("well-formed multi-source run should not be degraded")
	}

	byKey := map[string]types.Annotation{}
	for _, ann := range out.Annotations {
		byKey[ann.Category+"|"+ann.Zone] = ann
	}
	shared, ok := byKey["conversion|"+da.ZoneBottomCenter]
	if !ok {
		t.Fatalf("expected merged conversion annotation, got %+v", byKey)
	}
	if shared.Agreement != 1.0 {
		t.Fatalf("both analyzers surfaced the item, agreement = %v, want 1.0", shared.Agreement)
	}
	if len(shared.Sources) != 2 {
		t.Fatalf("merged annotation should carry both sources: %+v", shared.Sources)
	}

	solo, ok := byKey["clarity|"+da.ZoneOverall]
	if !ok {
		t.Fatalf("expected solo clarity annotation, got %+v", byKey)
	}
	if solo.Agreement != 0.5 {
		t.Fatalf("one of two analyzers surfaced the item, agreement = %v, want 0.5", solo.Agreement)
	}

	if out.Score != 65 {
		t.Fatalf("score should average across sources, got %v", out.Score)
	}
}

func TestSynthesizeDegradesOnMalformedOutput(t *testing.T) {
	log := testutil.Logger(t)

	out, err := Synthesize(SynthesizeDeps{Log: log}, SynthesizeInput{
		Results: []AnalyzerResult{{
			Backend: BackendOpenAI,
			Payload: map[string]any{"summary": "prose with no feedback list"},
		}},
		Persona: da.PersonaMirror,
	})
	if err != nil {
		t.Fatalf("malformed single-analyzer output must not error: %v", err)
	}
	if !out.Degraded {
		t.Fatalf("expected degraded flag on malformed output")
	}
	if len(out.Warnings) == 0 {
		t.Fatalf("expected a warning describing the degradation")
	}
	if out.Summary == "" {
		t.Fatalf("degraded result should still carry a summary")
	}
	if _, ok := out.PersonaFeedback[BackendOpenAI]; !ok {
		t.Fatalf("raw payload should be passed through in persona feedback")
	}
}

func TestSynthesizeMixedMalformed(t *testing.T) {
	log := testutil.Logger(t)

	out, err := Synthesize(SynthesizeDeps{Log: log}, SynthesizeInput{
		Results: []AnalyzerResult{
			{Backend: BackendOpenAI, Payload: openAIPayload(feedbackItem("conversion", nil, nil))},
			{Backend: BackendGemini, Payload: map[string]any{"summary": "no list here"}},
		},
		Persona: da.PersonaMadScientist,
	})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !out.Degraded {
		t.Fatalf("one malformed backend should mark the result degraded")
	}
	// The surviving backend's items pass through, but the malformed backend
	// still counts among the analyzers that ran.
	if len(out.Annotations) != 1 || out.Annotations[0].Agreement != 0.5 {
		t.Fatalf("surviving source of two ran should score agreement 0.5: %+v", out.Annotations)
	}
	if len(out.Annotations[0].Sources) != 1 || out.Annotations[0].Sources[0] != BackendOpenAI {
		t.Fatalf("annotation sources wrong: %+v", out.Annotations[0].Sources)
	}
}
