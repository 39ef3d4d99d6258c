package steps

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/uxlens/uxlens-backend/internal/clients/gemini"
)

const BackendGemini = "gemini"

type geminiAnalyzer struct {
	ai gemini.Client
}

// NewGeminiAnalyzer adapts the Gemini client to the Analyzer contract. The
// client already scrubs fences and prose, so the payload here is valid JSON
// or an error.
func NewGeminiAnalyzer(ai gemini.Client) Analyzer {
	return &geminiAnalyzer{ai: ai}
}

func (a *geminiAnalyzer) Name() string { return BackendGemini }

func (a *geminiAnalyzer) Analyze(ctx context.Context, req AnalyzerRequest) (AnalyzerResult, error) {
	if a.ai == nil {
		return AnalyzerResult{}, fmt.Errorf("gemini analyzer: client not configured")
	}
	raw, err := a.ai.AnalyzeImages(ctx, req.System, req.Prompt, req.ImageURLs)
	if err != nil {
		return AnalyzerResult{}, err
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return AnalyzerResult{}, fmt.Errorf("gemini analyzer: decode payload: %w", err)
	}
	return AnalyzerResult{Backend: BackendGemini, Payload: payload}, nil
}
