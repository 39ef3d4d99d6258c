package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/uxlens/uxlens-backend/internal/observability"
	"github.com/uxlens/uxlens-backend/internal/platform/ctxutil"
	"github.com/uxlens/uxlens-backend/internal/platform/envutil"
	"github.com/uxlens/uxlens-backend/internal/platform/logger"
)

// Client is the Gemini analyzer backend. Responses are requested as JSON and
// scrubbed before being handed back, since the model occasionally wraps its
// output in markdown fences or stray prose.
type Client interface {
	AnalyzeImages(ctx context.Context, system string, prompt string, imageURLs []string) (string, error)
	Close() error
}

type client struct {
	log        *logger.Logger
	sdk        *genai.Client
	model      *genai.GenerativeModel
	modelName  string
	httpClient *http.Client
	timeout    time.Duration
}

func NewClient(log *logger.Logger) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	apiKey := strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	if apiKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY")
	}

	modelName := envutil.Str("GEMINI_MODEL", "gemini-2.0-flash")

	ctx := context.Background()
	sdk, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}

	model := sdk.GenerativeModel(modelName)
	var cfg genai.GenerationConfig
	cfg.ResponseMIMEType = "application/json"
	model.GenerationConfig = cfg

	return &client{
		log:        log.With("service", "GeminiClient"),
		sdk:        sdk,
		model:      model,
		modelName:  modelName,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		timeout:    envutil.Duration("GEMINI_TIMEOUT", 120*time.Second),
	}, nil
}

func (c *client) Close() error {
	if c == nil || c.sdk == nil {
		return nil
	}
	return c.sdk.Close()
}

func (c *client) AnalyzeImages(ctx context.Context, system string, prompt string, imageURLs []string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("prompt required")
	}

	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	parts := make([]genai.Part, 0, 2+len(imageURLs))
	if strings.TrimSpace(system) != "" {
		parts = append(parts, genai.Text(system))
	}
	parts = append(parts, genai.Text(prompt))

	for _, u := range imageURLs {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		format, data, err := c.fetchImage(ctx, u)
		if err != nil {
			return "", fmt.Errorf("fetch image for gemini: %w", err)
		}
		parts = append(parts, genai.ImageData(format, data))
	}

	start := time.Now()
	resp, err := c.model.GenerateContent(ctx, parts...)
	if metrics := observability.Current(); metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.ObserveLLMRequest(c.modelName, "gemini.generate_content", status, time.Since(start), 0, 0)
	}
	if err != nil {
		return "", fmt.Errorf("gemini GenerateContent: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		if candidate.FinishReason != genai.FinishReasonStop && candidate.FinishReason != genai.FinishReasonUnspecified {
			return "", fmt.Errorf("gemini response blocked: %s", candidate.FinishReason.String())
		}
		return "", fmt.Errorf("gemini returned no content parts (finish reason %s)", candidate.FinishReason.String())
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	raw := sb.String()
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("gemini returned empty text")
	}

	cleaned := CleanJSONString(raw)
	if !json.Valid([]byte(cleaned)) {
		return "", fmt.Errorf("gemini output is not valid JSON after cleanup")
	}
	return cleaned, nil
}

func (c *client) fetchImage(ctx context.Context, imageURL string) (string, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", nil, fmt.Errorf("fetch %q: http %d", imageURL, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 20<<20))
	if err != nil {
		return "", nil, err
	}
	format := "png"
	switch ct := resp.Header.Get("Content-Type"); {
	case strings.Contains(ct, "jpeg"), strings.Contains(ct, "jpg"):
		format = "jpeg"
	case strings.Contains(ct, "webp"):
		format = "webp"
	}
	return format, data, nil
}

// CleanJSONString strips markdown fences, leading/trailing prose, invalid
// UTF-8 and control characters from a model response, leaving the outermost
// JSON value.
func CleanJSONString(rawResponse string) string {
	cleaned := strings.TrimSpace(rawResponse)

	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimSuffix(cleaned, "```")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
	}
	cleaned = strings.TrimSpace(cleaned)

	firstBrace := strings.Index(cleaned, "{")
	lastBrace := strings.LastIndex(cleaned, "}")
	firstBracket := strings.Index(cleaned, "[")
	lastBracket := strings.LastIndex(cleaned, "]")
	isObject := firstBrace != -1 && lastBrace > firstBrace
	isArray := firstBracket != -1 && lastBracket > firstBracket

	switch {
	case isObject && (!isArray || firstBrace < firstBracket):
		cleaned = cleaned[firstBrace : lastBrace+1]
	case isArray:
		cleaned = cleaned[firstBracket : lastBracket+1]
	}
	cleaned = strings.TrimSpace(cleaned)

	if !utf8.ValidString(cleaned) {
		cleaned = strings.ToValidUTF8(cleaned, "")
	}

	var sb strings.Builder
	for _, r := range cleaned {
		if (r >= 0 && r < 9) || (r > 10 && r < 13) || (r > 13 && r < 32) || r == 127 {
			continue
		}
		sb.WriteRune(r)
	}
	return strings.TrimPrefix(sb.String(), "\uFEFF")
}
