package steps

import (
	"fmt"
	"strings"

	types "github.com/uxlens/uxlens-backend/internal/domain"
	da "github.com/uxlens/uxlens-backend/internal/domain/analysis"
)

// normalizedOutput is the only shape the synthesizer consumes. Backend
// payload variance stops at the adapter boundary.
type normalizedOutput struct {
	Summary    string
	Score      float64
	Priorities types.Priorities
	Items      []normalizedItem
}

type normalizedItem struct {
	// ImageIndex is 1-based; 0 means the item was not attributed to a
	// specific image.
	ImageIndex int
	Severity   string
	Category   string
	Text       string
	X          *float64
	Y          *float64
	Width      *float64
	Height     *float64
}

func (it normalizedItem) located() bool { return it.X != nil && it.Y != nil }

func (it normalizedItem) zone() string {
	if !it.located() {
		return da.ZoneOverall
	}
	return da.Zone(*it.X, *it.Y)
}

type normalizer func(payload map[string]any) (normalizedOutput, error)

func normalizerFor(backend string) normalizer {
	switch backend {
	case BackendGemini:
		return normalizeGemini
	default:
		return normalizeOpenAI
	}
}

// normalizeOpenAI parses the strict structured-output payload. The schema is
// enforced server-side, so deviations here are treated as malformed output.
func normalizeOpenAI(payload map[string]any) (normalizedOutput, error) {
	out := normalizedOutput{}
	if payload == nil {
		return out, fmt.Errorf("openai: empty payload")
	}
	out.Summary = stringFromAny(payload["summary"])
	out.Score, _ = floatFromAny(payload["score"])
	out.Priorities = prioritiesFromAny(payload["priorities"])

	rawItems, ok := payload["feedback"].([]any)
	if !ok {
		return out, fmt.Errorf("openai: feedback is not a list")
	}
	for _, raw := range rawItems {
		m := mapFromAny(raw)
		if m == nil {
			return out, fmt.Errorf("openai: feedback item is not an object")
		}
		item, err := itemFromMap(m)
		if err != nil {
			return out, fmt.Errorf("openai: %w", err)
		}
		out.Items = append(out.Items, item)
	}
	return out, nil
}

// normalizeGemini tolerates the looser shapes Gemini actually emits: item
// lists under alternate keys, nested coordinate objects, severity synonyms.
func normalizeGemini(payload map[string]any) (normalizedOutput, error) {
	out := normalizedOutput{}
	if payload == nil {
		return out, fmt.Errorf("gemini: empty payload")
	}
	out.Summary = firstNonEmpty(
		stringFromAny(payload["summary"]),
		stringFromAny(payload["overview"]),
		stringFromAny(payload["narrative"]),
	)
	out.Score, _ = floatFromAny(payload["score"])
	if p := payload["priorities"]; p != nil {
		out.Priorities = prioritiesFromAny(p)
	} else {
		out.Priorities = prioritiesFromAny(payload)
	}

	var rawItems []any
	for _, key := range []string{"feedback", "annotations", "issues", "findings", "items"} {
		if arr, ok := payload[key].([]any); ok {
			rawItems = arr
			break
		}
	}
	if rawItems == nil {
		return out, fmt.Errorf("gemini: no feedback list in payload")
	}
	for _, raw := range rawItems {
		m := mapFromAny(raw)
		if m == nil {
			continue
		}
		// Coordinates sometimes arrive nested.
		if pos := mapFromAny(m["position"]); pos != nil {
			m = merged(m, pos)
		} else if pos := mapFromAny(m["coordinates"]); pos != nil {
			m = merged(m, pos)
		}
		item, err := itemFromMap(m)
		if err != nil {
			continue
		}
		item.Severity = canonicalSeverity(item.Severity)
		out.Items = append(out.Items, item)
	}
	if len(out.Items) == 0 {
		return out, fmt.Errorf("gemini: feedback list had no usable items")
	}
	return out, nil
}

func itemFromMap(m map[string]any) (normalizedItem, error) {
	item := normalizedItem{
		Severity: strings.ToLower(stringFromAny(m["severity"])),
		Category: strings.ToLower(stringFromAny(m["category"])),
		Text: firstNonEmpty(
			stringFromAny(m["text"]),
			stringFromAny(m["description"]),
			stringFromAny(m["feedback"]),
		),
	}
	if item.Text == "" {
		return item, fmt.Errorf("feedback item missing text")
	}
	if item.Severity == "" {
		item.Severity = da.SeverityMedium
	}
	if item.Category == "" {
		item.Category = "general"
	}
	if idx, ok := intFromAny(m["image_index"]); ok && idx > 0 {
		item.ImageIndex = idx
	}
	item.X = coordFromAny(m["x"])
	item.Y = coordFromAny(m["y"])
	item.Width = coordFromAny(m["width"])
	item.Height = coordFromAny(m["height"])
	// Partial coordinates are as good as none.
	if item.X == nil || item.Y == nil {
		item.X, item.Y, item.Width, item.Height = nil, nil, nil, nil
	}
	return item, nil
}

func coordFromAny(v any) *float64 {
	f, ok := floatFromAny(v)
	if !ok {
		return nil
	}
	return &f
}

func prioritiesFromAny(v any) types.Priorities {
	m := mapFromAny(v)
	if m == nil {
		return types.Priorities{}
	}
	return types.Priorities{
		Works: stringSliceFromAny(m["works"]),
		Hurts: stringSliceFromAny(m["hurts"]),
		Next:  stringSliceFromAny(m["next"]),
	}
}

func canonicalSeverity(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case da.SeverityLow, "minor", "nit", "cosmetic":
		return da.SeverityLow
	case da.SeverityMedium, "moderate", "":
		return da.SeverityMedium
	case da.SeverityHigh, "major", "serious":
		return da.SeverityHigh
	case da.SeverityCritical, "blocker", "severe":
		return da.SeverityCritical
	default:
		return da.SeverityMedium
	}
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}

func merged(base, extra map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		if _, exists := out[k]; !exists {
			out[k] = v
		}
	}
	return out
}
