package gcp

import (
	"context"
	"fmt"
	"sort"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"

	types "github.com/uxlens/uxlens-backend/internal/domain"
	"github.com/uxlens/uxlens-backend/internal/platform/ctxutil"
	"github.com/uxlens/uxlens-backend/internal/platform/envutil"
	"github.com/uxlens/uxlens-backend/internal/platform/logger"
)

// Vision labels a screenshot. It returns raw ranked labels only; mapping
// labels to a screen-type category is the classification stage's job.
type Vision interface {
	LabelImageURL(ctx context.Context, imageURL string) ([]types.LabelScore, error)
	Close() error
}

type visionService struct {
	log     *logger.Logger
	client  *vision.ImageAnnotatorClient
	timeout time.Duration
	maxRes  int
}

func NewVision(log *logger.Logger) (Vision, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	slog := log.With("service", "gcp.Vision")

	ctx := context.Background()
	client, err := vision.NewImageAnnotatorClient(ctx, ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}

	return &visionService{
		log:     slog,
		client:  client,
		timeout: envutil.Duration("VISION_TIMEOUT", 30*time.Second),
		maxRes:  envutil.Int("VISION_MAX_LABELS", 10),
	}, nil
}

func (s *visionService) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *visionService) LabelImageURL(ctx context.Context, imageURL string) ([]types.LabelScore, error) {
	if imageURL == "" {
		return nil, fmt.Errorf("image url required")
	}

	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req := &visionpb.AnnotateImageRequest{
		Image: &visionpb.Image{
			Source: &visionpb.ImageSource{ImageUri: imageURL},
		},
		Features: []*visionpb.Feature{
			{Type: visionpb.Feature_LABEL_DETECTION, MaxResults: int32(s.maxRes)},
		},
	}

	br := &visionpb.BatchAnnotateImagesRequest{Requests: []*visionpb.AnnotateImageRequest{req}}
	resp, err := s.client.BatchAnnotateImages(ctx, br)
	if err != nil {
		return nil, fmt.Errorf("vision BatchAnnotateImages: %w", err)
	}
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return nil, fmt.Errorf("vision returned no responses")
	}

	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Message != "" {
		return nil, fmt.Errorf("vision annotate error: %s", r0.Error.Message)
	}

	labels := make([]types.LabelScore, 0, len(r0.LabelAnnotations))
	for _, ann := range r0.LabelAnnotations {
		if ann == nil || ann.Description == "" {
			continue
		}
		labels = append(labels, types.LabelScore{
			Label: ann.Description,
			Score: float64(ann.Score),
		})
	}
	sort.SliceStable(labels, func(i, j int) bool { return labels[i].Score > labels[j].Score })
	return labels, nil
}
