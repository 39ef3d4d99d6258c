package steps

import (
	"context"
	"fmt"

	"github.com/uxlens/uxlens-backend/internal/clients/openai"
)

const BackendOpenAI = "openai"

type openAIAnalyzer struct {
	ai openai.Client
}

// NewOpenAIAnalyzer adapts the structured-output OpenAI client to the
// Analyzer contract.
func NewOpenAIAnalyzer(ai openai.Client) Analyzer {
	return &openAIAnalyzer{ai: ai}
}

func (a *openAIAnalyzer) Name() string { return BackendOpenAI }

func (a *openAIAnalyzer) Analyze(ctx context.Context, req AnalyzerRequest) (AnalyzerResult, error) {
	if a.ai == nil {
		return AnalyzerResult{}, fmt.Errorf("openai analyzer: client not configured")
	}
	images := make([]openai.ImageInput, 0, len(req.ImageURLs))
	for _, u := range req.ImageURLs {
		images = append(images, openai.ImageInput{ImageURL: u, Detail: "high"})
	}
	payload, err := a.ai.GenerateJSONWithImages(ctx, req.System, req.Prompt, images, req.SchemaName, req.Schema)
	if err != nil {
		return AnalyzerResult{}, err
	}
	return AnalyzerResult{Backend: BackendOpenAI, Payload: payload}, nil
}
