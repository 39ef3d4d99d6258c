package steps

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/uxlens/uxlens-backend/internal/clients/gcp"
	"github.com/uxlens/uxlens-backend/internal/data/repos"
	types "github.com/uxlens/uxlens-backend/internal/domain"
	da "github.com/uxlens/uxlens-backend/internal/domain/analysis"
	"github.com/uxlens/uxlens-backend/internal/platform/dbctx"
	"github.com/uxlens/uxlens-backend/internal/platform/envutil"
	"github.com/uxlens/uxlens-backend/internal/platform/logger"
)

type ScreenClassifyDeps struct {
	Log    *logger.Logger
	Images repos.SessionImageRepo
	Vision gcp.Vision
}

type ScreenClassifyInput struct {
	Images []*types.SessionImage
}

type ScreenClassifyOutput struct {
	// Detections holds exactly one outcome per input image, in ordinal
	// order, failures included.
	Detections []types.ScreenDetection
	Fallbacks  int
}

// ScreenClassify labels every session image with a screen type. Images are
// classified independently and concurrently; a failed call is absorbed as a
// fallback detection, never escalated, so one broken image cannot block the
// rest of the pipeline.
func ScreenClassify(ctx context.Context, deps ScreenClassifyDeps, in ScreenClassifyInput) (ScreenClassifyOutput, error) {
	out := ScreenClassifyOutput{}
	if deps.Log == nil || deps.Images == nil || deps.Vision == nil {
		return out, fmt.Errorf("screen_classify: missing deps")
	}
	if len(in.Images) == 0 {
		return out, fmt.Errorf("screen_classify: no images")
	}

	out.Detections = make([]types.ScreenDetection, len(in.Images))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(envutil.Int("CLASSIFY_CONCURRENCY", 4))
	for i, img := range in.Images {
		g.Go(func() error {
			out.Detections[i] = classifyOne(gctx, deps, img)
			return nil
		})
	}
	// Goroutines absorb their own failures; the join only orders the merge.
	_ = g.Wait()

	for _, d := range out.Detections {
		if d.Failed() {
			out.Fallbacks++
		}
	}
	return out, nil
}

func classifyOne(ctx context.Context, deps ScreenClassifyDeps, img *types.SessionImage) types.ScreenDetection {
	labels, err := deps.Vision.LabelImageURL(ctx, img.URL)
	if err != nil {
		deps.Log.Warn("image classification failed, using fallback",
			"image_id", img.ID,
			"position", img.Position,
			"error", err,
		)
		det := da.FallbackDetection(img.ID, img.Position, err)
		persistDetection(ctx, deps, det)
		return det
	}

	screenType, confidence := ScreenTypeFromLabels(labels)
	det := types.ScreenDetection{
		ImageID:    img.ID,
		Position:   img.Position,
		ScreenType: screenType,
		Confidence: confidence,
		RawLabels:  labels,
	}
	persistDetection(ctx, deps, det)
	return det
}

// persistDetection writes the outcome onto the image row. The detection in
// memory stays canonical for this run, so a write failure is logged and
// absorbed rather than failing the stage.
func persistDetection(ctx context.Context, deps ScreenClassifyDeps, det types.ScreenDetection) {
	err := deps.Images.SetClassification(
		dbctx.Context{Ctx: ctx},
		det.ImageID,
		det.ScreenType,
		det.Confidence,
		det.Error,
	)
	if err != nil {
		deps.Log.Warn("failed to persist classification", "image_id", det.ImageID, "error", err)
	}
}

// screenKeywords maps ranked vision labels to screen-type categories. Order
// matters twice: labels are scanned in score order, and within a label the
// categories are tried in table order, so the mapping is deterministic.
var screenKeywords = []struct {
	screen   string
	keywords []string
}{
	{da.ScreenCheckout, []string{"checkout", "cart", "payment", "credit card", "billing", "receipt"}},
	{da.ScreenForm, []string{"form", "input", "text field", "questionnaire", "survey", "signup", "login"}},
	{da.ScreenDashboard, []string{"dashboard", "chart", "graph", "analytics", "diagram", "statistics", "plot"}},
	{da.ScreenProfile, []string{"profile", "avatar", "portrait", "account page"}},
	{da.ScreenSettings, []string{"settings", "gear", "preferences", "toggle", "configuration"}},
	{da.ScreenMobile, []string{"mobile", "smartphone", "phone", "touchscreen", "handheld"}},
	{da.ScreenLanding, []string{"landing", "hero", "homepage", "banner", "website", "web page"}},
}

// ScreenTypeFromLabels picks the screen type for a ranked label list. The
// first label (highest score) containing a known keyword wins, and the
// confidence is that label's score. No match falls back to the generic
// screen type at zero confidence, without flagging an error.
func ScreenTypeFromLabels(labels []types.LabelScore) (string, float64) {
	for _, ls := range labels {
		label := strings.ToLower(ls.Label)
		for _, entry := range screenKeywords {
			for _, kw := range entry.keywords {
				if strings.Contains(label, kw) {
					return entry.screen, ls.Score
				}
			}
		}
	}
	return da.ScreenFallback, 0
}
