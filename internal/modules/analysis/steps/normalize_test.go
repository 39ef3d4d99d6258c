package steps

import (
	"testing"

	da "github.com/uxlens/uxlens-backend/internal/domain/analysis"
)

func TestNormalizeOpenAI(t *testing.T) {
	payload := map[string]any{
		"summary": "Solid layout with a weak call to action.",
		"score":   72.0,
		"priorities": map[string]any{
			"works": []any{"clear navigation"},
			"hurts": []any{"buried CTA"},
			"next":  []any{"move CTA above the fold"},
		},
		"feedback": []any{
			map[string]any{
				"image_index": 1.0,
				"severity":    "high",
				"category":    "conversion",
				"text":        "Primary CTA is below the fold.",
				"x":           50.0,
				"y":           90.0,
				"width":       nil,
				"height":      nil,
			},
			map[string]any{
				"image_index": 0.0,
				"severity":    "low",
				"category":    "visual",
				"text":        "Inconsistent spacing overall.",
				"x":           nil,
				"y":           nil,
				"width":       nil,
				"height":      nil,
			},
		},
	}

	out, err := normalizeOpenAI(payload)
	if err != nil {
		t.Fatalf("normalizeOpenAI: %v", err)
	}
	if out.Summary == "" || out.Score != 72 {
		t.Fatalf("summary/score not extracted: %+v", out)
	}
	if len(out.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(out.Items))
	}
	if out.Items[0].zone() != da.ZoneBottomCenter {
		t.Fatalf("located item zone = %q, want %q", out.Items[0].zone(), da.ZoneBottomCenter)
	}
	if out.Items[1].zone() != da.ZoneOverall {
		t.Fatalf("coordinate-less item zone = %q, want %q", out.Items[1].zone(), da.ZoneOverall)
	}
	if out.Items[0].ImageIndex != 1 || out.Items[1].ImageIndex != 0 {
		t.Fatalf("image index attribution wrong: %+v", out.Items)
	}
}

func TestNormalizeOpenAIMalformed(t *testing.T) {
	if _, err := normalizeOpenAI(nil); err == nil {
		t.Fatalf("expected error for nil payload")
	}
	if _, err := normalizeOpenAI(map[string]any{"summary": "hi"}); err == nil {
		t.Fatalf("expected error when feedback list is missing")
	}
	if _, err := normalizeOpenAI(map[string]any{"feedback": []any{map[string]any{"severity": "high"}}}); err == nil {
		t.Fatalf("expected error for feedback item without text")
	}
}

func TestNormalizeGeminiTolerantShapes(t *testing.T) {
	payload := map[string]any{
		"overview": "Busy screen, unclear hierarchy.",
		"annotations": []any{
			map[string]any{
				"severity":    "major",
				"category":    "Hierarchy",
				"description": "Too many competing headlines.",
				"position":    map[string]any{"x": 10.0, "y": 12.0},
			},
			map[string]any{
				"severity": "blocker",
				"text":     "Form cannot be submitted on mobile.",
			},
		},
		"works": []any{"color palette"},
		"hurts": []any{"headline competition"},
	}

	out, err := normalizeGemini(payload)
	if err != nil {
		t.Fatalf("normalizeGemini: %v", err)
	}
	if out.Summary != "Busy screen, unclear hierarchy." {
		t.Fatalf("summary fallback to overview failed: %q", out.Summary)
	}
	if len(out.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(out.Items))
	}
	if out.Items[0].Severity != da.SeverityHigh {
		t.Fatalf("severity synonym major should map to high, got %q", out.Items[0].Severity)
	}
	if out.Items[0].zone() != da.ZoneTopLeft {
		t.Fatalf("nested position coordinates not picked up: zone %q", out.Items[0].zone())
	}
	if out.Items[1].Severity != da.SeverityCritical {
		t.Fatalf("severity synonym blocker should map to critical, got %q", out.Items[1].Severity)
	}
	if len(out.Priorities.Works) != 1 || len(out.Priorities.Hurts) != 1 {
		t.Fatalf("top-level priorities not extracted: %+v", out.Priorities)
	}
}

func TestNormalizeGeminiMalformed(t *testing.T) {
	if _, err := normalizeGemini(map[string]any{"summary": "prose only"}); err == nil {
		t.Fatalf("expected error when no feedback list present")
	}
	if _, err := normalizeGemini(map[string]any{"feedback": []any{"just a string"}}); err == nil {
		t.Fatalf("expected error when list has no usable items")
	}
}
