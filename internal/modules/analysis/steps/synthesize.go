package steps

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	types "github.com/uxlens/uxlens-backend/internal/domain"
	da "github.com/uxlens/uxlens-backend/internal/domain/analysis"
	"github.com/uxlens/uxlens-backend/internal/platform/logger"
)

type SynthesizeDeps struct {
	Log *logger.Logger
}

type SynthesizeInput struct {
	// Results are the successful analyzer outputs, in configured backend
	// order. At least one is required.
	Results    []AnalyzerResult
	Detections []types.ScreenDetection
	Persona    types.Persona
}

type SynthesizeOutput struct {
	Summary         string
	Score           float64
	PersonaFeedback map[string]any
	Priorities      types.Priorities
	Annotations     []types.Annotation
	Degraded        bool
	Warnings        []string
}

// Synthesize merges one-or-more analyzer outputs into the canonical result.
// Malformed output from a backend degrades that backend to raw passthrough
// with a warning; it never aborts the session. Agreement is the fraction of
// the analyzers that ran whose output surfaced the same (category, zone)
// finding; a backend whose output failed normalization still counts in the
// denominator.
func Synthesize(deps SynthesizeDeps, in SynthesizeInput) (SynthesizeOutput, error) {
	out := SynthesizeOutput{PersonaFeedback: map[string]any{}}
	if deps.Log == nil {
		return out, fmt.Errorf("synthesize: missing deps")
	}
	if len(in.Results) == 0 {
		return out, fmt.Errorf("synthesize: no analyzer results")
	}

	type sourced struct {
		backend string
		norm    normalizedOutput
	}
	var normalized []sourced
	for _, res := range in.Results {
		out.PersonaFeedback[res.Backend] = res.Payload
		norm, err := normalizerFor(res.Backend)(res.Payload)
		if err != nil {
			deps.Log.Warn("analyzer output failed normalization, passing through raw",
				"backend", res.Backend,
				"error", err,
			)
			out.Degraded = true
			out.Warnings = append(out.Warnings, fmt.Sprintf("%s output malformed: %v", res.Backend, err))
			continue
		}
		normalized = append(normalized, sourced{backend: res.Backend, norm: norm})
	}

	// Every backend malformed: the raw payloads are already in
	// PersonaFeedback, so return a degraded shell instead of erroring.
	if len(normalized) == 0 {
		out.Summary = rawSummaryFallback(in.Results)
		return out, nil
	}

	out.Summary = normalized[0].norm.Summary
	for _, s := range normalized {
		out.Score += s.norm.Score
		out.Priorities.Works = append(out.Priorities.Works, s.norm.Priorities.Works...)
		out.Priorities.Hurts = append(out.Priorities.Hurts, s.norm.Priorities.Hurts...)
		out.Priorities.Next = append(out.Priorities.Next, s.norm.Priorities.Next...)
	}
	out.Score /= float64(len(normalized))
	out.Priorities.Works = dedupeStrings(out.Priorities.Works)
	out.Priorities.Hurts = dedupeStrings(out.Priorities.Hurts)
	out.Priorities.Next = dedupeStrings(out.Priorities.Next)

	ran := len(in.Results)
	if len(normalized) == 1 {
		// Single usable source: items pass straight through, but agreement
		// is still scored against every analyzer that ran. A run where the
		// other backend's output was malformed reads as 1/ran, not 1.0.
		s := normalized[0]
		agreement := 1.0 / float64(ran)
		for _, item := range s.norm.Items {
			out.Annotations = append(out.Annotations, annotationFrom(item, []string{s.backend}, agreement, in.Detections))
		}
		sortAnnotations(out.Annotations)
		return out, nil
	}

	// Multiple sources: group semantically equivalent items by
	// (category, zone) and score agreement across the analyzers that ran.
	type group struct {
		item     normalizedItem
		backends []string
	}
	groups := map[string]*group{}
	var order []string
	for _, s := range normalized {
		for _, item := range s.norm.Items {
			key := item.Category + "|" + item.zone()
			g, ok := groups[key]
			if !ok {
				g = &group{item: item}
				groups[key] = g
				order = append(order, key)
			} else if severityRank(item.Severity) > severityRank(g.item.Severity) {
				text := g.item.Text
				g.item = item
				g.item.Text = text + " " + item.Text
			}
			g.backends = append(g.backends, s.backend)
		}
	}
	for _, key := range order {
		g := groups[key]
		backends := dedupeStrings(g.backends)
		agreement := float64(len(backends)) / float64(ran)
		out.Annotations = append(out.Annotations, annotationFrom(g.item, backends, agreement, in.Detections))
	}
	sortAnnotations(out.Annotations)
	return out, nil
}

func annotationFrom(item normalizedItem, sources []string, agreement float64, detections []types.ScreenDetection) types.Annotation {
	ann := types.Annotation{
		X:         item.X,
		Y:         item.Y,
		Width:     item.Width,
		Height:    item.Height,
		Zone:      item.zone(),
		Severity:  item.Severity,
		Category:  item.Category,
		Text:      item.Text,
		Sources:   sources,
		Agreement: agreement,
	}
	if item.ImageIndex > 0 && item.ImageIndex <= len(detections) {
		id := detections[item.ImageIndex-1].ImageID
		if id != uuid.Nil {
			ann.ImageID = &id
		}
	}
	return ann
}

func rawSummaryFallback(results []AnalyzerResult) string {
	for _, res := range results {
		if s := stringFromAny(res.Payload["summary"]); s != "" {
			return s
		}
	}
	return "Analysis completed, but the output could not be structured."
}

func severityRank(s string) int {
	switch s {
	case da.SeverityCritical:
		return 3
	case da.SeverityHigh:
		return 2
	case da.SeverityMedium:
		return 1
	default:
		return 0
	}
}

func sortAnnotations(anns []types.Annotation) {
	sort.SliceStable(anns, func(i, j int) bool {
		if ri, rj := severityRank(anns[i].Severity), severityRank(anns[j].Severity); ri != rj {
			return ri > rj
		}
		if anns[i].Agreement != anns[j].Agreement {
			return anns[i].Agreement > anns[j].Agreement
		}
		if anns[i].Category != anns[j].Category {
			return anns[i].Category < anns[j].Category
		}
		return strings.Compare(anns[i].Text, anns[j].Text) < 0
	})
}
